package memory

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	auditevents "userrealm/contexts/identity-access/userstore-service/adapters/events"
	"userrealm/contexts/identity-access/userstore-service/domain/entities"
	domainerrors "userrealm/contexts/identity-access/userstore-service/domain/errors"
	"userrealm/contexts/identity-access/userstore-service/ports"
	"userrealm/internal/shared/outbox"

	"github.com/google/uuid"
)

// Store is an in-memory adapter implementing repository/outbox/clock ports.
// It is intended for tests and local development wiring.
type Store struct {
	mu    sync.RWMutex
	txMu  sync.Mutex
	state state
	now   func() time.Time
}

type state struct {
	users   map[string]entities.UserRecord
	groups  map[string]entities.Group
	members map[string]map[string]struct{}
	claims  map[string]map[string]map[string]string
	outbox  map[string]outbox.Message
	order   []string
}

func NewStore() *Store {
	return &Store{
		state: state{
			users:   make(map[string]entities.UserRecord),
			groups:  make(map[string]entities.Group),
			members: make(map[string]map[string]struct{}),
			claims:  make(map[string]map[string]map[string]string),
			outbox:  make(map[string]outbox.Message),
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

// SetNow replaces the store clock, for deterministic tests.
func (s *Store) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) AddUser(_ context.Context, record entities.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.users[record.Username]; ok {
		return domainerrors.ErrUserAlreadyExists
	}
	s.state.users[record.Username] = record
	return nil
}

func (s *Store) GetUser(_ context.Context, username string) (entities.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.state.users[username]
	if !ok {
		return entities.UserRecord{}, domainerrors.ErrUserNotFound
	}
	return record, nil
}

func (s *Store) DeleteUser(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.users[username]; !ok {
		return domainerrors.ErrUserNotFound
	}
	delete(s.state.users, username)
	delete(s.state.claims, username)
	for _, members := range s.state.members {
		delete(members, username)
	}
	return nil
}

func (s *Store) UpdateCredential(_ context.Context, username string, hash string, salt string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.state.users[username]
	if !ok {
		return domainerrors.ErrUserNotFound
	}
	record.PasswordHash = hash
	record.Salt = salt
	record.UpdatedAt = updatedAt.UTC()
	s.state.users[username] = record
	return nil
}

func (s *Store) ListUsers(_ context.Context, pattern string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.state.users))
	for name := range s.state.users {
		names = append(names, name)
	}
	return filterNames(names, pattern, limit), nil
}

func (s *Store) SetUserClaimValues(_ context.Context, username string, profile string, claims map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.users[username]; !ok {
		return domainerrors.ErrUserNotFound
	}
	profiles, ok := s.state.claims[username]
	if !ok {
		profiles = make(map[string]map[string]string)
		s.state.claims[username] = profiles
	}
	values, ok := profiles[profile]
	if !ok {
		values = make(map[string]string)
		profiles[profile] = values
	}
	for uri, value := range claims {
		values[uri] = value
	}
	return nil
}

func (s *Store) DeleteUserClaimValues(_ context.Context, username string, profile string, claimURIs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.users[username]; !ok {
		return domainerrors.ErrUserNotFound
	}
	values := s.state.claims[username][profile]
	for _, uri := range claimURIs {
		delete(values, uri)
	}
	return nil
}

func (s *Store) GetUserClaimValues(_ context.Context, username string, profile string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string)
	for uri, value := range s.state.claims[username][profile] {
		out[uri] = value
	}
	return out, nil
}

func (s *Store) AddGroup(_ context.Context, group entities.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.groups[group.Name]; ok {
		return domainerrors.ErrGroupAlreadyExists
	}
	s.state.groups[group.Name] = group
	s.state.members[group.Name] = make(map[string]struct{})
	return nil
}

func (s *Store) DeleteGroup(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.groups[name]; !ok {
		return domainerrors.ErrGroupNotFound
	}
	delete(s.state.groups, name)
	delete(s.state.members, name)
	return nil
}

func (s *Store) RenameGroup(_ context.Context, oldName string, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	group, ok := s.state.groups[oldName]
	if !ok {
		return domainerrors.ErrGroupNotFound
	}
	if _, taken := s.state.groups[newName]; taken {
		return domainerrors.ErrGroupAlreadyExists
	}
	group.Name = newName
	delete(s.state.groups, oldName)
	s.state.groups[newName] = group
	s.state.members[newName] = s.state.members[oldName]
	delete(s.state.members, oldName)
	return nil
}

func (s *Store) GroupExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.state.groups[name]
	return ok, nil
}

func (s *Store) ListGroups(_ context.Context, pattern string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.state.groups))
	for name := range s.state.groups {
		names = append(names, name)
	}
	return filterNames(names, pattern, limit), nil
}

func (s *Store) AddUsersToGroup(_ context.Context, group string, usernames []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	members, ok := s.state.members[group]
	if !ok {
		return domainerrors.ErrGroupNotFound
	}
	for _, username := range usernames {
		if _, ok := s.state.users[username]; !ok {
			return domainerrors.ErrUserNotFound
		}
		members[username] = struct{}{}
	}
	return nil
}

func (s *Store) RemoveUsersFromGroup(_ context.Context, group string, usernames []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	members, ok := s.state.members[group]
	if !ok {
		return domainerrors.ErrGroupNotFound
	}
	for _, username := range usernames {
		delete(members, username)
	}
	return nil
}

func (s *Store) AddGroupsToUser(_ context.Context, username string, groups []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.users[username]; !ok {
		return domainerrors.ErrUserNotFound
	}
	for _, group := range groups {
		members, ok := s.state.members[group]
		if !ok {
			return domainerrors.ErrGroupNotFound
		}
		members[username] = struct{}{}
	}
	return nil
}

func (s *Store) RemoveGroupsFromUser(_ context.Context, username string, groups []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, group := range groups {
		delete(s.state.members[group], username)
	}
	return nil
}

func (s *Store) ListGroupsOfUser(_ context.Context, username string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var groups []string
	for group, members := range s.state.members {
		if _, ok := members[username]; ok {
			groups = append(groups, group)
		}
	}
	sort.Strings(groups)
	return groups, nil
}

func (s *Store) ListUsersOfGroup(_ context.Context, group string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members, ok := s.state.members[group]
	if !ok {
		return nil, domainerrors.ErrGroupNotFound
	}
	users := make([]string, 0, len(members))
	for username := range members {
		users = append(users, username)
	}
	sort.Strings(users)
	return users, nil
}

// AppendOutbox stores an audit event as a pending outbox row.
func (s *Store) AppendOutbox(_ context.Context, event ports.AuditEvent) error {
	payload, err := auditevents.Encode(event)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.outbox[event.EventID]; ok {
		return domainerrors.ErrRepositoryFailure
	}
	s.state.outbox[event.EventID] = outbox.Message{
		ID:        event.EventID,
		EventType: event.EventType,
		Payload:   payload,
		Status:    outbox.StatusPending,
		CreatedAt: event.OccurredAt.UTC(),
	}
	s.state.order = append(s.state.order, event.EventID)
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, limit)
	for _, id := range s.state.order {
		row := s.state.outbox[id]
		if !row.Pending() {
			continue
		}
		items = append(items, ports.OutboxMessage{
			OutboxID:  row.ID,
			EventType: row.EventType,
			Payload:   append([]byte(nil), row.Payload...),
			CreatedAt: row.CreatedAt,
		})
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.state.outbox[outboxID]
	if !ok {
		return domainerrors.ErrRepositoryFailure
	}
	at := publishedAt.UTC()
	row.Status = outbox.StatusPublished
	row.PublishedAt = &at
	s.state.outbox[outboxID] = row
	return nil
}

// OutboxEventTypes lists outbox event types in insertion order.
func (s *Store) OutboxEventTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	types := make([]string, 0, len(s.state.order))
	for _, id := range s.state.order {
		types = append(types, s.state.outbox[id].EventType)
	}
	return types
}

func (st state) clone() state {
	out := state{
		users:   make(map[string]entities.UserRecord, len(st.users)),
		groups:  make(map[string]entities.Group, len(st.groups)),
		members: make(map[string]map[string]struct{}, len(st.members)),
		claims:  make(map[string]map[string]map[string]string, len(st.claims)),
		outbox:  make(map[string]outbox.Message, len(st.outbox)),
		order:   append([]string(nil), st.order...),
	}
	for k, v := range st.users {
		out.users[k] = v
	}
	for k, v := range st.groups {
		out.groups[k] = v
	}
	for group, members := range st.members {
		copied := make(map[string]struct{}, len(members))
		for username := range members {
			copied[username] = struct{}{}
		}
		out.members[group] = copied
	}
	for username, profiles := range st.claims {
		copiedProfiles := make(map[string]map[string]string, len(profiles))
		for profile, values := range profiles {
			copiedValues := make(map[string]string, len(values))
			for uri, value := range values {
				copiedValues[uri] = value
			}
			copiedProfiles[profile] = copiedValues
		}
		out.claims[username] = copiedProfiles
	}
	for k, v := range st.outbox {
		out.outbox[k] = v
	}
	return out
}

func filterNames(names []string, pattern string, limit int) []string {
	matcher := wildcard(pattern)
	out := make([]string, 0, len(names))
	for _, name := range names {
		if matcher.MatchString(name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func wildcard(pattern string) *regexp.Regexp {
	if strings.TrimSpace(pattern) == "" {
		pattern = "*"
	}
	expr := strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, ".*")
	return regexp.MustCompile("^" + expr + "$")
}
