package postgresadapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"userrealm/contexts/identity-access/userstore-service/domain/entities"
	domainerrors "userrealm/contexts/identity-access/userstore-service/domain/errors"
	"userrealm/internal/platform/db"

	"gorm.io/gorm"
)

// Repository implements ports.Repository over the UM_* tables of one tenant.
// Every call runs on the unit-of-work transaction when one is active.
type Repository struct {
	ds       *db.Postgres
	tenantID int
	sql      Statements
	logger   *slog.Logger
}

func NewRepository(ds *db.Postgres, tenantID int, statements Statements, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	if statements == nil {
		statements = DefaultStatements()
	}
	return &Repository{
		ds:       ds,
		tenantID: tenantID,
		sql:      statements,
		logger:   logger,
	}
}

func (r *Repository) session(ctx context.Context) (*gorm.DB, error) {
	tx, err := db.Session(ctx, r.ds)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domainerrors.ErrRepositoryFailure, err)
	}
	return tx, nil
}

func (r *Repository) AddUser(ctx context.Context, record entities.UserRecord) error {
	tx, err := r.session(ctx)
	if err != nil {
		return err
	}
	_, err = db.UpdateDatabase(ctx, tx, r.sql[AddUserSQL],
		record.UserID,
		record.Username,
		record.PasswordHash,
		record.Salt,
		record.RequireChange,
		record.CreatedAt.UTC(),
		record.UpdatedAt.UTC(),
		r.tenantID,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return domainerrors.ErrUserAlreadyExists
		}
		return r.failure("add user", err)
	}
	return nil
}

func (r *Repository) GetUser(ctx context.Context, username string) (entities.UserRecord, error) {
	tx, err := r.session(ctx)
	if err != nil {
		return entities.UserRecord{}, err
	}
	var rows []userModel
	if err := tx.Raw(r.sql[SelectUserSQL], username, r.tenantID).Scan(&rows).Error; err != nil {
		return entities.UserRecord{}, r.failure("get user", err)
	}
	if len(rows) == 0 {
		return entities.UserRecord{}, domainerrors.ErrUserNotFound
	}
	return rows[0].toEntity(), nil
}

func (r *Repository) DeleteUser(ctx context.Context, username string) error {
	tx, err := r.session(ctx)
	if err != nil {
		return err
	}
	affected, err := db.UpdateDatabase(ctx, tx, r.sql[DeleteUserSQL], username, r.tenantID)
	if err != nil {
		return r.failure("delete user", err)
	}
	if affected == 0 {
		return domainerrors.ErrUserNotFound
	}
	return nil
}

func (r *Repository) UpdateCredential(ctx context.Context, username string, hash string, salt string, updatedAt time.Time) error {
	tx, err := r.session(ctx)
	if err != nil {
		return err
	}
	affected, err := db.UpdateDatabase(ctx, tx, r.sql[UpdateUserPasswordSQL], hash, salt, updatedAt.UTC(), username, r.tenantID)
	if err != nil {
		return r.failure("update credential", err)
	}
	if affected == 0 {
		return domainerrors.ErrUserNotFound
	}
	return nil
}

func (r *Repository) ListUsers(ctx context.Context, pattern string, limit int) ([]string, error) {
	tx, err := r.session(ctx)
	if err != nil {
		return nil, err
	}
	names, err := db.QueryStrings(ctx, tx, r.sql[UserFilterSQL], likePattern(pattern), r.tenantID, limit)
	if err != nil {
		return nil, r.failure("list users", err)
	}
	return names, nil
}

func (r *Repository) SetUserClaimValues(ctx context.Context, username string, profile string, claims map[string]string) error {
	tx, err := r.session(ctx)
	if err != nil {
		return err
	}
	uris := make([]string, 0, len(claims))
	for uri := range claims {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	for _, uri := range uris {
		affected, err := db.UpdateDatabase(ctx, tx, r.sql[AddUserPropertySQL],
			uri, claims[uri], profile, r.tenantID, username, r.tenantID)
		if err != nil {
			return r.failure("set claim "+uri, err)
		}
		if affected == 0 {
			return domainerrors.ErrUserNotFound
		}
	}
	return nil
}

func (r *Repository) DeleteUserClaimValues(ctx context.Context, username string, profile string, claimURIs []string) error {
	tx, err := r.session(ctx)
	if err != nil {
		return err
	}
	if _, err := db.BatchUpdate(ctx, tx, r.sql[DeleteUserPropertySQL],
		claimURIs, profile, r.tenantID, username, r.tenantID); err != nil {
		return r.failure("delete claims", err)
	}
	return nil
}

func (r *Repository) GetUserClaimValues(ctx context.Context, username string, profile string) (map[string]string, error) {
	tx, err := r.session(ctx)
	if err != nil {
		return nil, err
	}
	var rows []attributeModel
	if err := tx.Raw(r.sql[UserPropertiesForProfileSQL], username, profile, r.tenantID).Scan(&rows).Error; err != nil {
		return nil, r.failure("get claims", err)
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Name] = row.Value
	}
	return out, nil
}

func (r *Repository) AddGroup(ctx context.Context, group entities.Group) error {
	tx, err := r.session(ctx)
	if err != nil {
		return err
	}
	_, err = db.UpdateDatabase(ctx, tx, r.sql[AddRoleSQL], group.GroupID, group.Name, group.CreatedAt.UTC(), r.tenantID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return domainerrors.ErrGroupAlreadyExists
		}
		return r.failure("add group", err)
	}
	return nil
}

func (r *Repository) DeleteGroup(ctx context.Context, name string) error {
	tx, err := r.session(ctx)
	if err != nil {
		return err
	}
	affected, err := db.UpdateDatabase(ctx, tx, r.sql[DeleteRoleSQL], name, r.tenantID)
	if err != nil {
		return r.failure("delete group", err)
	}
	if affected == 0 {
		return domainerrors.ErrGroupNotFound
	}
	return nil
}

func (r *Repository) RenameGroup(ctx context.Context, oldName string, newName string) error {
	tx, err := r.session(ctx)
	if err != nil {
		return err
	}
	affected, err := db.UpdateDatabase(ctx, tx, r.sql[UpdateRoleNameSQL], newName, oldName, r.tenantID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return domainerrors.ErrGroupAlreadyExists
		}
		return r.failure("rename group", err)
	}
	if affected == 0 {
		return domainerrors.ErrGroupNotFound
	}
	return nil
}

func (r *Repository) GroupExists(ctx context.Context, name string) (bool, error) {
	tx, err := r.session(ctx)
	if err != nil {
		return false, err
	}
	_, found, err := db.QueryInt(ctx, tx, r.sql[IsRoleExistingSQL], name, r.tenantID)
	if err != nil {
		return false, r.failure("group exists", err)
	}
	return found, nil
}

func (r *Repository) ListGroups(ctx context.Context, pattern string, limit int) ([]string, error) {
	tx, err := r.session(ctx)
	if err != nil {
		return nil, err
	}
	names, err := db.QueryStrings(ctx, tx, r.sql[GetRoleListSQL], likePattern(pattern), r.tenantID, limit)
	if err != nil {
		return nil, r.failure("list groups", err)
	}
	return names, nil
}

func (r *Repository) AddUsersToGroup(ctx context.Context, group string, usernames []string) error {
	return r.batch(ctx, "add users to group", AddUserToRoleSQL, usernames, group, r.tenantID)
}

func (r *Repository) RemoveUsersFromGroup(ctx context.Context, group string, usernames []string) error {
	return r.batch(ctx, "remove users from group", RemoveUserFromRoleSQL, r.tenantID, usernames, r.tenantID, group, r.tenantID)
}

func (r *Repository) AddGroupsToUser(ctx context.Context, username string, groups []string) error {
	return r.batch(ctx, "add groups to user", AddRoleToUserSQL, groups, username, r.tenantID)
}

func (r *Repository) RemoveGroupsFromUser(ctx context.Context, username string, groups []string) error {
	return r.batch(ctx, "remove groups from user", RemoveRoleFromUserSQL, r.tenantID, groups, r.tenantID, username, r.tenantID)
}

func (r *Repository) ListGroupsOfUser(ctx context.Context, username string) ([]string, error) {
	tx, err := r.session(ctx)
	if err != nil {
		return nil, err
	}
	names, err := db.QueryStrings(ctx, tx, r.sql[GetUserRoleSQL], username, r.tenantID)
	if err != nil {
		return nil, r.failure("groups of user", err)
	}
	return names, nil
}

func (r *Repository) ListUsersOfGroup(ctx context.Context, group string) ([]string, error) {
	tx, err := r.session(ctx)
	if err != nil {
		return nil, err
	}
	names, err := db.QueryStrings(ctx, tx, r.sql[GetUserListOfRoleSQL], group, r.tenantID)
	if err != nil {
		return nil, r.failure("users of group", err)
	}
	return names, nil
}

func (r *Repository) batch(ctx context.Context, action string, key string, args ...any) error {
	tx, err := r.session(ctx)
	if err != nil {
		return err
	}
	if _, err := db.BatchUpdate(ctx, tx, r.sql[key], args...); err != nil {
		return r.failure(action, err)
	}
	return nil
}

func (r *Repository) failure(action string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	r.logger.Error("userstore repository call failed",
		"event", "userstore_repository_failed",
		"module", "identity-access/userstore-service",
		"layer", "adapter",
		"action", action,
		"tenant_id", r.tenantID,
		"constraint", db.ConstraintName(err),
		"error", err.Error(),
	)
	return fmt.Errorf("%w: %s: %w", domainerrors.ErrRepositoryFailure, action, err)
}

type userModel struct {
	UserID        string    `gorm:"column:um_user_id"`
	Username      string    `gorm:"column:um_user_name"`
	Password      string    `gorm:"column:um_user_password"`
	Salt          string    `gorm:"column:um_salt_value"`
	RequireChange bool      `gorm:"column:um_require_change"`
	CreatedAt     time.Time `gorm:"column:um_created_time"`
	ChangedAt     time.Time `gorm:"column:um_changed_time"`
	TenantID      int       `gorm:"column:um_tenant_id"`
}

func (m userModel) toEntity() entities.UserRecord {
	return entities.UserRecord{
		User: entities.User{
			UserID:        strings.TrimSpace(m.UserID),
			Username:      m.Username,
			TenantID:      m.TenantID,
			RequireChange: m.RequireChange,
			CreatedAt:     m.CreatedAt.UTC(),
			UpdatedAt:     m.ChangedAt.UTC(),
		},
		PasswordHash: m.Password,
		Salt:         m.Salt,
	}
}

type attributeModel struct {
	Name  string `gorm:"column:um_attr_name"`
	Value string `gorm:"column:um_attr_value"`
}
