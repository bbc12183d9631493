package ports

import (
	"context"
	"time"

	"userrealm/contexts/identity-access/userstore-service/domain/entities"
)

// Clock abstracts current time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts UUID generation for users, groups and outbox rows.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// UnitOfWork runs fn with every enlisted data source inside one transaction
// context. Nested calls join the outer unit of work.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// PasswordHasher prepares and verifies stored credentials.
type PasswordHasher interface {
	Hash(password string) (hash string, salt string, err error)
	Verify(password string, hash string, salt string) (bool, error)
}

// UsernameNormalizer canonicalizes user names before they reach the store.
type UsernameNormalizer interface {
	Normalize(username string) string
}

// Repository is the persistence boundary of the user store. Name patterns use
// '*' as the only wildcard.
type Repository interface {
	AddUser(ctx context.Context, record entities.UserRecord) error
	GetUser(ctx context.Context, username string) (entities.UserRecord, error)
	DeleteUser(ctx context.Context, username string) error
	UpdateCredential(ctx context.Context, username string, hash string, salt string, updatedAt time.Time) error
	ListUsers(ctx context.Context, pattern string, limit int) ([]string, error)

	SetUserClaimValues(ctx context.Context, username string, profile string, claims map[string]string) error
	DeleteUserClaimValues(ctx context.Context, username string, profile string, claimURIs []string) error
	GetUserClaimValues(ctx context.Context, username string, profile string) (map[string]string, error)

	AddGroup(ctx context.Context, group entities.Group) error
	DeleteGroup(ctx context.Context, name string) error
	RenameGroup(ctx context.Context, oldName string, newName string) error
	GroupExists(ctx context.Context, name string) (bool, error)
	ListGroups(ctx context.Context, pattern string, limit int) ([]string, error)

	AddUsersToGroup(ctx context.Context, group string, usernames []string) error
	RemoveUsersFromGroup(ctx context.Context, group string, usernames []string) error
	AddGroupsToUser(ctx context.Context, username string, groups []string) error
	RemoveGroupsFromUser(ctx context.Context, username string, groups []string) error
	ListGroupsOfUser(ctx context.Context, username string) ([]string, error)
	ListUsersOfGroup(ctx context.Context, group string) ([]string, error)
}

// AuditEvent is one committed user store change.
type AuditEvent struct {
	EventID    string
	EventType  string
	ActorID    string
	Subject    string
	Attributes map[string]any
	OccurredAt time.Time
}

// OutboxWriter persists audit events inside the caller's unit of work.
type OutboxWriter interface {
	AppendOutbox(ctx context.Context, event AuditEvent) error
}

// OutboxMessage represents a pending relay message.
type OutboxMessage struct {
	OutboxID  string
	EventType string
	Payload   []byte
	CreatedAt time.Time
}

// OutboxRepository supports worker relay polling and acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

// EventPublisher emits relayed outbox payloads to the event bus adapter.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload []byte) error
}

type actorKey struct{}

// WithActor records who performs the operation carried by ctx.
func WithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, actorID)
}

// ActorFromContext returns the actor recorded by WithActor.
func ActorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey{}).(string)
	return actor
}
