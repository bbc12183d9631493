package events

import (
	"context"
	"fmt"
	"sort"
	"time"

	"userrealm/contexts/identity-access/userstore-service/ports"
)

// AuditExecutionOrder places the audit listener after other post hooks.
const AuditExecutionOrder = 1000

// AuditListener appends one outbox row per completed mutation. Rows are
// written inside the caller's unit of work, so a rolled back operation leaves
// no audit trace.
type AuditListener struct {
	ports.NopUserListener
	ports.NopAuthenticationListener
	ports.NopGroupListener

	Writer      ports.OutboxWriter
	IDGenerator ports.IDGenerator
	Clock       ports.Clock
	// AuditAuthentication also records failed authentication attempts.
	AuditAuthentication bool
	Disabled            bool
	Order               int
}

func (l AuditListener) ExecutionOrder() int {
	if l.Order > 0 {
		return l.Order
	}
	return AuditExecutionOrder
}

func (l AuditListener) Enabled() bool { return !l.Disabled && l.Writer != nil }

func (l AuditListener) PostAddUser(ctx context.Context, user ports.NewUser) error {
	return l.append(ctx, ports.OpAddUser, user.Username, map[string]any{
		"groups":  user.Groups,
		"claims":  claimURIs(user.Claims),
		"profile": user.Profile,
	})
}

func (l AuditListener) PostDeleteUser(ctx context.Context, username string) error {
	return l.append(ctx, ports.OpDeleteUser, username, nil)
}

func (l AuditListener) PostUpdateCredential(ctx context.Context, username string) error {
	return l.append(ctx, ports.OpUpdateCredential, username, nil)
}

func (l AuditListener) PostUpdateCredentialByAdmin(ctx context.Context, username string) error {
	return l.append(ctx, ports.OpUpdateCredentialByAdmin, username, nil)
}

func (l AuditListener) PostSetUserClaimValues(ctx context.Context, change ports.ClaimChange) error {
	return l.append(ctx, ports.OpSetUserClaimValues, change.Username, map[string]any{
		"profile": change.Profile,
		"claims":  claimURIs(change.Claims),
	})
}

func (l AuditListener) PostDeleteUserClaimValues(ctx context.Context, change ports.ClaimChange) error {
	return l.append(ctx, ports.OpDeleteUserClaimValues, change.Username, map[string]any{
		"profile": change.Profile,
		"claims":  change.ClaimURIs,
	})
}

func (l AuditListener) PostAuthenticate(ctx context.Context, username string, authenticated bool) error {
	if authenticated || !l.AuditAuthentication {
		return nil
	}
	return l.append(ctx, ports.OpAuthenticate, username, map[string]any{"authenticated": false})
}

func (l AuditListener) PostAddGroup(ctx context.Context, name string, users []string) error {
	return l.append(ctx, ports.OpAddGroup, name, map[string]any{"users": users})
}

func (l AuditListener) PostDeleteGroup(ctx context.Context, name string) error {
	return l.append(ctx, ports.OpDeleteGroup, name, nil)
}

func (l AuditListener) PostUpdateGroupName(ctx context.Context, oldName string, newName string) error {
	return l.append(ctx, ports.OpUpdateGroupName, newName, map[string]any{"previous_name": oldName})
}

func (l AuditListener) PostUpdateUserListOfGroup(ctx context.Context, change ports.GroupMembersChange) error {
	return l.append(ctx, ports.OpUpdateUserListOfGroup, change.Group, map[string]any{
		"deleted_users": change.DeletedUsers,
		"added_users":   change.AddedUsers,
	})
}

func (l AuditListener) PostUpdateGroupListOfUser(ctx context.Context, change ports.UserGroupsChange) error {
	return l.append(ctx, ports.OpUpdateGroupListOfUser, change.Username, map[string]any{
		"deleted_groups": change.DeletedGroups,
		"added_groups":   change.AddedGroups,
	})
}

func (l AuditListener) append(ctx context.Context, operation string, subject string, attrs map[string]any) error {
	eventID, err := l.IDGenerator.NewID(ctx)
	if err != nil {
		return fmt.Errorf("audit event id: %w", err)
	}
	occurredAt := time.Now().UTC()
	if l.Clock != nil {
		occurredAt = l.Clock.Now().UTC()
	}
	return l.Writer.AppendOutbox(ctx, ports.AuditEvent{
		EventID:    eventID,
		EventType:  EventType(operation),
		ActorID:    ports.ActorFromContext(ctx),
		Subject:    subject,
		Attributes: attrs,
		OccurredAt: occurredAt,
	})
}

func claimURIs(claims map[string]string) []string {
	uris := make([]string, 0, len(claims))
	for uri := range claims {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}
