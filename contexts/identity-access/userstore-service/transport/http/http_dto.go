package httptransport

import "time"

type AuthenticateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthenticateResponse struct {
	Username      string `json:"username"`
	Authenticated bool   `json:"authenticated"`
}

// AddUserRequest creates a user with optional groups and claims.
type AddUserRequest struct {
	Username string            `json:"username"`
	Password string            `json:"password"`
	Groups   []string          `json:"groups,omitempty"`
	Claims   map[string]string `json:"claims,omitempty"`
	Profile  string            `json:"profile,omitempty"`
}

type UserResponse struct {
	UserID        string    `json:"user_id"`
	Username      string    `json:"username"`
	TenantID      int       `json:"tenant_id"`
	RequireChange bool      `json:"require_change"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type ListUsersResponse struct {
	Users []string `json:"users"`
}

// UpdateCredentialRequest changes a password. OldPassword is ignored for
// admin resets.
type UpdateCredentialRequest struct {
	OldPassword string `json:"old_password,omitempty"`
	NewPassword string `json:"new_password"`
}

type ClaimsResponse struct {
	Username string            `json:"username"`
	Profile  string            `json:"profile"`
	Claims   map[string]string `json:"claims"`
}

type SetClaimsRequest struct {
	Profile string            `json:"profile,omitempty"`
	Claims  map[string]string `json:"claims"`
}

type UpdateUserGroupsRequest struct {
	DeletedGroups []string `json:"deleted_groups,omitempty"`
	AddedGroups   []string `json:"added_groups,omitempty"`
}

type UserGroupsResponse struct {
	Username string   `json:"username"`
	Groups   []string `json:"groups"`
}

type AddGroupRequest struct {
	Name  string   `json:"name"`
	Users []string `json:"users,omitempty"`
}

type GroupResponse struct {
	GroupID   string    `json:"group_id"`
	Name      string    `json:"name"`
	TenantID  int       `json:"tenant_id"`
	CreatedAt time.Time `json:"created_at"`
}

type ListGroupsResponse struct {
	Groups []string `json:"groups"`
}

type RenameGroupRequest struct {
	NewName string `json:"new_name"`
}

type UpdateGroupMembersRequest struct {
	DeletedUsers []string `json:"deleted_users,omitempty"`
	AddedUsers   []string `json:"added_users,omitempty"`
}

type GroupMembersResponse struct {
	Group string   `json:"group"`
	Users []string `json:"users"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
