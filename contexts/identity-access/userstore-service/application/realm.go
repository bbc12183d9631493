package application

import (
	"context"
	"errors"

	"userrealm/contexts/identity-access/userstore-service/domain/entities"
	domainerrors "userrealm/contexts/identity-access/userstore-service/domain/errors"
)

// EnsureAdmin seeds the admin group and, when a password is given, the admin
// user and its membership. Existing principals are left untouched. Listener
// hooks do not fire for the seed data.
func (s Service) EnsureAdmin(ctx context.Context, adminPassword string) error {
	adminGroup := s.Policy.cfg.AdminGroup
	adminUser := s.normalizeUsername(s.Policy.cfg.AdminUser)

	err := s.inUnitOfWork(ctx, func(ctx context.Context) error {
		exists, err := s.Repo.GroupExists(ctx, adminGroup)
		if err != nil {
			return err
		}
		if !exists {
			groupID, err := s.IDGenerator.NewID(ctx)
			if err != nil {
				return err
			}
			if err := s.Repo.AddGroup(ctx, entities.Group{
				GroupID:   groupID,
				Name:      adminGroup,
				TenantID:  s.Policy.cfg.TenantID,
				CreatedAt: s.now(),
			}); err != nil {
				return err
			}
		}

		if adminPassword == "" {
			return nil
		}
		_, err = s.Repo.GetUser(ctx, adminUser)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domainerrors.ErrUserNotFound) {
			return err
		}

		hash, salt, err := s.Hasher.Hash(adminPassword)
		if err != nil {
			return err
		}
		userID, err := s.IDGenerator.NewID(ctx)
		if err != nil {
			return err
		}
		now := s.now()
		if err := s.Repo.AddUser(ctx, entities.UserRecord{
			User: entities.User{
				UserID:    userID,
				Username:  adminUser,
				TenantID:  s.Policy.cfg.TenantID,
				CreatedAt: now,
				UpdatedAt: now,
			},
			PasswordHash: hash,
			Salt:         salt,
		}); err != nil {
			return err
		}
		return s.Repo.AddGroupsToUser(ctx, adminUser, []string{adminGroup})
	})
	if err != nil {
		return err
	}
	s.logDone("ensure_admin", adminUser)
	return nil
}
