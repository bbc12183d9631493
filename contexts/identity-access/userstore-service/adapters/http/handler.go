package httpadapter

import (
	"context"
	"log/slog"

	"userrealm/contexts/identity-access/userstore-service/application"
	"userrealm/contexts/identity-access/userstore-service/domain/entities"
	"userrealm/contexts/identity-access/userstore-service/ports"
	httptransport "userrealm/contexts/identity-access/userstore-service/transport/http"
)

// Handler maps HTTP DTOs to user store operations. actorID identifies the
// caller of mutating operations and is recorded on audit events.
type Handler struct {
	Service application.Service
	Logger  *slog.Logger
}

func (h Handler) AuthenticateHandler(
	ctx context.Context,
	request httptransport.AuthenticateRequest,
) (httptransport.AuthenticateResponse, error) {
	h.received(ctx, "authenticate", request.Username)
	ok, err := h.Service.Authenticate(ctx, request.Username, request.Password)
	if err != nil {
		return httptransport.AuthenticateResponse{}, err
	}
	return httptransport.AuthenticateResponse{Username: request.Username, Authenticated: ok}, nil
}

func (h Handler) AddUserHandler(
	ctx context.Context,
	actorID string,
	request httptransport.AddUserRequest,
) (httptransport.UserResponse, error) {
	ctx = ports.WithActor(ctx, actorID)
	h.received(ctx, "add_user", request.Username)
	user, err := h.Service.AddUser(ctx, ports.NewUser{
		Username: request.Username,
		Password: request.Password,
		Groups:   request.Groups,
		Claims:   request.Claims,
		Profile:  request.Profile,
	})
	if err != nil {
		return httptransport.UserResponse{}, err
	}
	return userResponse(user), nil
}

func (h Handler) GetUserHandler(ctx context.Context, username string) (httptransport.UserResponse, error) {
	user, err := h.Service.GetUser(ctx, username)
	if err != nil {
		return httptransport.UserResponse{}, err
	}
	return userResponse(user), nil
}

func (h Handler) ListUsersHandler(ctx context.Context, filter string, limit int) (httptransport.ListUsersResponse, error) {
	users, err := h.Service.ListUsers(ctx, filter, limit)
	if err != nil {
		return httptransport.ListUsersResponse{}, err
	}
	return httptransport.ListUsersResponse{Users: nonNil(users)}, nil
}

func (h Handler) DeleteUserHandler(ctx context.Context, actorID string, username string) (httptransport.StatusResponse, error) {
	ctx = ports.WithActor(ctx, actorID)
	h.received(ctx, "delete_user", username)
	if err := h.Service.DeleteUser(ctx, username); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: "deleted"}, nil
}

func (h Handler) UpdateCredentialHandler(
	ctx context.Context,
	actorID string,
	username string,
	request httptransport.UpdateCredentialRequest,
) (httptransport.StatusResponse, error) {
	ctx = ports.WithActor(ctx, actorID)
	h.received(ctx, "update_credential", username)
	if err := h.Service.UpdateCredential(ctx, username, request.NewPassword, request.OldPassword); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: "updated"}, nil
}

func (h Handler) UpdateCredentialByAdminHandler(
	ctx context.Context,
	actorID string,
	username string,
	request httptransport.UpdateCredentialRequest,
) (httptransport.StatusResponse, error) {
	ctx = ports.WithActor(ctx, actorID)
	h.received(ctx, "update_credential_by_admin", username)
	if err := h.Service.UpdateCredentialByAdmin(ctx, username, request.NewPassword); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: "updated"}, nil
}

func (h Handler) GetClaimsHandler(ctx context.Context, username string, profile string) (httptransport.ClaimsResponse, error) {
	claims, err := h.Service.GetUserClaimValues(ctx, username, profile)
	if err != nil {
		return httptransport.ClaimsResponse{}, err
	}
	if profile == "" {
		profile = h.Service.Policy.Config().DefaultProfile
	}
	return httptransport.ClaimsResponse{Username: username, Profile: profile, Claims: claims}, nil
}

func (h Handler) SetClaimsHandler(
	ctx context.Context,
	actorID string,
	username string,
	request httptransport.SetClaimsRequest,
) (httptransport.StatusResponse, error) {
	ctx = ports.WithActor(ctx, actorID)
	h.received(ctx, "set_user_claim_values", username)
	if err := h.Service.SetUserClaimValues(ctx, username, request.Claims, request.Profile); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: "updated"}, nil
}

func (h Handler) DeleteClaimsHandler(
	ctx context.Context,
	actorID string,
	username string,
	claimURIs []string,
	profile string,
) (httptransport.StatusResponse, error) {
	ctx = ports.WithActor(ctx, actorID)
	h.received(ctx, "delete_user_claim_values", username)
	if err := h.Service.DeleteUserClaimValues(ctx, username, claimURIs, profile); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: "deleted"}, nil
}

func (h Handler) GetUserGroupsHandler(ctx context.Context, username string) (httptransport.UserGroupsResponse, error) {
	groups, err := h.Service.GetGroupListOfUser(ctx, username)
	if err != nil {
		return httptransport.UserGroupsResponse{}, err
	}
	return httptransport.UserGroupsResponse{Username: username, Groups: nonNil(groups)}, nil
}

func (h Handler) UpdateUserGroupsHandler(
	ctx context.Context,
	actorID string,
	username string,
	request httptransport.UpdateUserGroupsRequest,
) (httptransport.UserGroupsResponse, error) {
	ctx = ports.WithActor(ctx, actorID)
	h.received(ctx, "update_group_list_of_user", username)
	if err := h.Service.UpdateGroupListOfUser(ctx, username, request.DeletedGroups, request.AddedGroups); err != nil {
		return httptransport.UserGroupsResponse{}, err
	}
	return h.GetUserGroupsHandler(ctx, username)
}

func (h Handler) AddGroupHandler(
	ctx context.Context,
	actorID string,
	request httptransport.AddGroupRequest,
) (httptransport.GroupResponse, error) {
	ctx = ports.WithActor(ctx, actorID)
	h.received(ctx, "add_group", request.Name)
	group, err := h.Service.AddGroup(ctx, request.Name, request.Users)
	if err != nil {
		return httptransport.GroupResponse{}, err
	}
	return httptransport.GroupResponse{
		GroupID:   group.GroupID,
		Name:      group.Name,
		TenantID:  group.TenantID,
		CreatedAt: group.CreatedAt,
	}, nil
}

func (h Handler) ListGroupsHandler(ctx context.Context, filter string, limit int) (httptransport.ListGroupsResponse, error) {
	groups, err := h.Service.ListGroups(ctx, filter, limit)
	if err != nil {
		return httptransport.ListGroupsResponse{}, err
	}
	return httptransport.ListGroupsResponse{Groups: nonNil(groups)}, nil
}

func (h Handler) DeleteGroupHandler(ctx context.Context, actorID string, group string) (httptransport.StatusResponse, error) {
	ctx = ports.WithActor(ctx, actorID)
	h.received(ctx, "delete_group", group)
	if err := h.Service.DeleteGroup(ctx, group); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: "deleted"}, nil
}

func (h Handler) RenameGroupHandler(
	ctx context.Context,
	actorID string,
	group string,
	request httptransport.RenameGroupRequest,
) (httptransport.StatusResponse, error) {
	ctx = ports.WithActor(ctx, actorID)
	h.received(ctx, "update_group_name", group)
	if err := h.Service.UpdateGroupName(ctx, group, request.NewName); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: "renamed"}, nil
}

func (h Handler) GetGroupMembersHandler(ctx context.Context, group string) (httptransport.GroupMembersResponse, error) {
	users, err := h.Service.GetUserListOfGroup(ctx, group)
	if err != nil {
		return httptransport.GroupMembersResponse{}, err
	}
	return httptransport.GroupMembersResponse{Group: group, Users: nonNil(users)}, nil
}

func (h Handler) UpdateGroupMembersHandler(
	ctx context.Context,
	actorID string,
	group string,
	request httptransport.UpdateGroupMembersRequest,
) (httptransport.GroupMembersResponse, error) {
	ctx = ports.WithActor(ctx, actorID)
	h.received(ctx, "update_user_list_of_group", group)
	if err := h.Service.UpdateUserListOfGroup(ctx, group, request.DeletedUsers, request.AddedUsers); err != nil {
		return httptransport.GroupMembersResponse{}, err
	}
	return h.GetGroupMembersHandler(ctx, group)
}

func (h Handler) received(ctx context.Context, operation string, subject string) {
	application.ResolveLogger(h.Logger).Debug("http userstore request received",
		"event", "userstore_http_"+operation+"_received",
		"module", "identity-access/userstore-service",
		"layer", "transport",
		"subject", subject,
		"actor_id", ports.ActorFromContext(ctx),
	)
}

func userResponse(user entities.User) httptransport.UserResponse {
	return httptransport.UserResponse{
		UserID:        user.UserID,
		Username:      user.Username,
		TenantID:      user.TenantID,
		RequireChange: user.RequireChange,
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
	}
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
