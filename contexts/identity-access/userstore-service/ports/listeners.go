package ports

import "context"

// Operation names reported to error listeners and audit events.
const (
	OpAuthenticate            = "authenticate"
	OpAddUser                 = "add_user"
	OpDeleteUser              = "delete_user"
	OpUpdateCredential        = "update_credential"
	OpUpdateCredentialByAdmin = "update_credential_by_admin"
	OpSetUserClaimValues      = "set_user_claim_values"
	OpDeleteUserClaimValues   = "delete_user_claim_values"
	OpAddGroup                = "add_group"
	OpDeleteGroup             = "delete_group"
	OpUpdateGroupName         = "update_group_name"
	OpUpdateUserListOfGroup   = "update_user_list_of_group"
	OpUpdateGroupListOfUser   = "update_group_list_of_user"
)

// Listener is the common part of every user store extension point. Lower
// execution orders run first.
type Listener interface {
	ExecutionOrder() int
}

// Toggle lets a listener switch itself off without being unregistered.
type Toggle interface {
	Enabled() bool
}

// NewUser describes a user about to be added. Password is only populated
// for pre hooks.
type NewUser struct {
	Username string
	Password string
	Groups   []string
	Claims   map[string]string
	Profile  string
}

// ClaimChange describes claim values set on or removed from a user.
type ClaimChange struct {
	Username  string
	Profile   string
	Claims    map[string]string
	ClaimURIs []string
}

// GroupMembersChange edits the user list of one group.
type GroupMembersChange struct {
	Group        string
	DeletedUsers []string
	AddedUsers   []string
}

// UserGroupsChange edits the group list of one user.
type UserGroupsChange struct {
	Username      string
	DeletedGroups []string
	AddedGroups   []string
}

// UserListener hooks user lifecycle operations. A pre hook error vetoes the
// operation; a post hook error rolls the unit of work back.
type UserListener interface {
	Listener
	PreAddUser(ctx context.Context, user NewUser) error
	PostAddUser(ctx context.Context, user NewUser) error
	PreDeleteUser(ctx context.Context, username string) error
	PostDeleteUser(ctx context.Context, username string) error
	PreUpdateCredential(ctx context.Context, username string, newPassword string) error
	PostUpdateCredential(ctx context.Context, username string) error
	PreUpdateCredentialByAdmin(ctx context.Context, username string, newPassword string) error
	PostUpdateCredentialByAdmin(ctx context.Context, username string) error
	PreSetUserClaimValues(ctx context.Context, change ClaimChange) error
	PostSetUserClaimValues(ctx context.Context, change ClaimChange) error
	PreDeleteUserClaimValues(ctx context.Context, change ClaimChange) error
	PostDeleteUserClaimValues(ctx context.Context, change ClaimChange) error
}

// AuthenticationListener hooks credential checks.
type AuthenticationListener interface {
	Listener
	PreAuthenticate(ctx context.Context, username string) error
	PostAuthenticate(ctx context.Context, username string, authenticated bool) error
}

// GroupListener hooks group lifecycle and membership operations.
type GroupListener interface {
	Listener
	PreAddGroup(ctx context.Context, name string, users []string) error
	PostAddGroup(ctx context.Context, name string, users []string) error
	PreDeleteGroup(ctx context.Context, name string) error
	PostDeleteGroup(ctx context.Context, name string) error
	PreUpdateGroupName(ctx context.Context, oldName string, newName string) error
	PostUpdateGroupName(ctx context.Context, oldName string, newName string) error
	PreUpdateUserListOfGroup(ctx context.Context, change GroupMembersChange) error
	PostUpdateUserListOfGroup(ctx context.Context, change GroupMembersChange) error
	PreUpdateGroupListOfUser(ctx context.Context, change UserGroupsChange) error
	PostUpdateGroupListOfUser(ctx context.Context, change UserGroupsChange) error
}

// OperationFailure is reported to error listeners when an operation fails.
type OperationFailure struct {
	Operation string
	Subject   string
	Code      string
	Err       error
}

// ErrorListener observes failed operations. Its errors never change the
// outcome of the failed operation.
type ErrorListener interface {
	Listener
	OnOperationFailure(ctx context.Context, failure OperationFailure) error
}

// NopUserListener implements every UserListener hook as a no-op. Embed it
// and override the hooks of interest.
type NopUserListener struct{}

func (NopUserListener) PreAddUser(context.Context, NewUser) error                 { return nil }
func (NopUserListener) PostAddUser(context.Context, NewUser) error                { return nil }
func (NopUserListener) PreDeleteUser(context.Context, string) error               { return nil }
func (NopUserListener) PostDeleteUser(context.Context, string) error              { return nil }
func (NopUserListener) PreUpdateCredential(context.Context, string, string) error { return nil }
func (NopUserListener) PostUpdateCredential(context.Context, string) error        { return nil }
func (NopUserListener) PreUpdateCredentialByAdmin(context.Context, string, string) error {
	return nil
}
func (NopUserListener) PostUpdateCredentialByAdmin(context.Context, string) error   { return nil }
func (NopUserListener) PreSetUserClaimValues(context.Context, ClaimChange) error    { return nil }
func (NopUserListener) PostSetUserClaimValues(context.Context, ClaimChange) error   { return nil }
func (NopUserListener) PreDeleteUserClaimValues(context.Context, ClaimChange) error { return nil }
func (NopUserListener) PostDeleteUserClaimValues(context.Context, ClaimChange) error {
	return nil
}

// NopAuthenticationListener implements AuthenticationListener hooks as no-ops.
type NopAuthenticationListener struct{}

func (NopAuthenticationListener) PreAuthenticate(context.Context, string) error { return nil }
func (NopAuthenticationListener) PostAuthenticate(context.Context, string, bool) error {
	return nil
}

// NopGroupListener implements every GroupListener hook as a no-op.
type NopGroupListener struct{}

func (NopGroupListener) PreAddGroup(context.Context, string, []string) error       { return nil }
func (NopGroupListener) PostAddGroup(context.Context, string, []string) error      { return nil }
func (NopGroupListener) PreDeleteGroup(context.Context, string) error              { return nil }
func (NopGroupListener) PostDeleteGroup(context.Context, string) error             { return nil }
func (NopGroupListener) PreUpdateGroupName(context.Context, string, string) error  { return nil }
func (NopGroupListener) PostUpdateGroupName(context.Context, string, string) error { return nil }
func (NopGroupListener) PreUpdateUserListOfGroup(context.Context, GroupMembersChange) error {
	return nil
}
func (NopGroupListener) PostUpdateUserListOfGroup(context.Context, GroupMembersChange) error {
	return nil
}
func (NopGroupListener) PreUpdateGroupListOfUser(context.Context, UserGroupsChange) error {
	return nil
}
func (NopGroupListener) PostUpdateGroupListOfUser(context.Context, UserGroupsChange) error {
	return nil
}
