package application

import (
	"context"
	"errors"
	"strings"

	"userrealm/contexts/identity-access/userstore-service/application/listeners"
	"userrealm/contexts/identity-access/userstore-service/domain/entities"
	domainerrors "userrealm/contexts/identity-access/userstore-service/domain/errors"
	"userrealm/contexts/identity-access/userstore-service/ports"
)

// AddUser creates a user with its initial groups and claims.
func (s Service) AddUser(ctx context.Context, request ports.NewUser) (entities.User, error) {
	username := s.normalizeUsername(request.Username)
	if !s.Policy.validUsername(username) {
		return entities.User{}, s.fail(ctx, ports.OpAddUser, username, domainerrors.ErrInvalidUsername)
	}
	if !s.Policy.validPassword(request.Password) {
		return entities.User{}, s.fail(ctx, ports.OpAddUser, username, domainerrors.ErrInvalidPassword)
	}
	claims, ok := cleanClaims(request.Claims)
	if !ok {
		return entities.User{}, s.fail(ctx, ports.OpAddUser, username, domainerrors.ErrInvalidClaim)
	}

	event := ports.NewUser{
		Username: username,
		Password: request.Password,
		Groups:   s.normalizeGroups(request.Groups),
		Claims:   claims,
		Profile:  s.profile(request.Profile),
	}

	hash, salt, err := s.Hasher.Hash(request.Password)
	if err != nil {
		return entities.User{}, s.fail(ctx, ports.OpAddUser, username, err)
	}
	userID, err := s.IDGenerator.NewID(ctx)
	if err != nil {
		return entities.User{}, s.fail(ctx, ports.OpAddUser, username, err)
	}

	now := s.now()
	user := entities.User{
		UserID:    userID,
		Username:  username,
		TenantID:  s.Policy.cfg.TenantID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.inUnitOfWork(ctx, func(ctx context.Context) error {
		if err := s.Listeners.Users(ctx, listeners.StagePre, ports.OpAddUser, func(l ports.UserListener) error {
			return l.PreAddUser(ctx, event)
		}); err != nil {
			return err
		}
		if err := s.requireGroups(ctx, event.Groups); err != nil {
			return err
		}
		if err := s.Repo.AddUser(ctx, entities.UserRecord{User: user, PasswordHash: hash, Salt: salt}); err != nil {
			return err
		}
		if len(event.Groups) > 0 {
			if err := s.Repo.AddGroupsToUser(ctx, username, event.Groups); err != nil {
				return err
			}
		}
		if len(event.Claims) > 0 {
			if err := s.Repo.SetUserClaimValues(ctx, username, event.Profile, event.Claims); err != nil {
				return err
			}
		}

		posted := event
		posted.Password = ""
		return s.Listeners.Users(ctx, listeners.StagePost, ports.OpAddUser, func(l ports.UserListener) error {
			return l.PostAddUser(ctx, posted)
		})
	})
	if err != nil {
		return entities.User{}, s.fail(ctx, ports.OpAddUser, username, err)
	}
	s.logDone(ports.OpAddUser, username)
	return user, nil
}

// DeleteUser removes a user with its memberships and claims. The realm admin
// cannot be deleted.
func (s Service) DeleteUser(ctx context.Context, username string) error {
	username = s.normalizeUsername(username)
	if username == "" {
		return s.fail(ctx, ports.OpDeleteUser, username, domainerrors.ErrInvalidUsername)
	}
	if s.isAdminUser(username) {
		return s.fail(ctx, ports.OpDeleteUser, username, domainerrors.ErrReservedPrincipal)
	}

	err := s.inUnitOfWork(ctx, func(ctx context.Context) error {
		if err := s.requireUser(ctx, username); err != nil {
			return err
		}
		if err := s.Listeners.Users(ctx, listeners.StagePre, ports.OpDeleteUser, func(l ports.UserListener) error {
			return l.PreDeleteUser(ctx, username)
		}); err != nil {
			return err
		}
		if err := s.Repo.DeleteUser(ctx, username); err != nil {
			return err
		}
		return s.Listeners.Users(ctx, listeners.StagePost, ports.OpDeleteUser, func(l ports.UserListener) error {
			return l.PostDeleteUser(ctx, username)
		})
	})
	if err != nil {
		return s.fail(ctx, ports.OpDeleteUser, username, err)
	}
	s.logDone(ports.OpDeleteUser, username)
	return nil
}

// UpdateCredential changes a user's own password after checking the old one.
func (s Service) UpdateCredential(ctx context.Context, username string, newPassword string, oldPassword string) error {
	username = s.normalizeUsername(username)
	if username == "" {
		return s.fail(ctx, ports.OpUpdateCredential, username, domainerrors.ErrInvalidUsername)
	}
	if !s.Policy.validPassword(newPassword) {
		return s.fail(ctx, ports.OpUpdateCredential, username, domainerrors.ErrInvalidPassword)
	}

	err := s.inUnitOfWork(ctx, func(ctx context.Context) error {
		record, err := s.Repo.GetUser(ctx, username)
		if err != nil {
			return err
		}
		if err := s.Listeners.Users(ctx, listeners.StagePre, ports.OpUpdateCredential, func(l ports.UserListener) error {
			return l.PreUpdateCredential(ctx, username, newPassword)
		}); err != nil {
			return err
		}
		ok, err := s.Hasher.Verify(oldPassword, record.PasswordHash, record.Salt)
		if err != nil {
			return err
		}
		if !ok {
			return domainerrors.ErrCredentialMismatch
		}
		if err := s.storeCredential(ctx, username, newPassword); err != nil {
			return err
		}
		return s.Listeners.Users(ctx, listeners.StagePost, ports.OpUpdateCredential, func(l ports.UserListener) error {
			return l.PostUpdateCredential(ctx, username)
		})
	})
	if err != nil {
		return s.fail(ctx, ports.OpUpdateCredential, username, err)
	}
	s.logDone(ports.OpUpdateCredential, username)
	return nil
}

// UpdateCredentialByAdmin resets a user's password without the old one.
func (s Service) UpdateCredentialByAdmin(ctx context.Context, username string, newPassword string) error {
	username = s.normalizeUsername(username)
	if username == "" {
		return s.fail(ctx, ports.OpUpdateCredentialByAdmin, username, domainerrors.ErrInvalidUsername)
	}
	if !s.Policy.validPassword(newPassword) {
		return s.fail(ctx, ports.OpUpdateCredentialByAdmin, username, domainerrors.ErrInvalidPassword)
	}

	err := s.inUnitOfWork(ctx, func(ctx context.Context) error {
		if err := s.requireUser(ctx, username); err != nil {
			return err
		}
		if err := s.Listeners.Users(ctx, listeners.StagePre, ports.OpUpdateCredentialByAdmin, func(l ports.UserListener) error {
			return l.PreUpdateCredentialByAdmin(ctx, username, newPassword)
		}); err != nil {
			return err
		}
		if err := s.storeCredential(ctx, username, newPassword); err != nil {
			return err
		}
		return s.Listeners.Users(ctx, listeners.StagePost, ports.OpUpdateCredentialByAdmin, func(l ports.UserListener) error {
			return l.PostUpdateCredentialByAdmin(ctx, username)
		})
	})
	if err != nil {
		return s.fail(ctx, ports.OpUpdateCredentialByAdmin, username, err)
	}
	s.logDone(ports.OpUpdateCredentialByAdmin, username)
	return nil
}

func (s Service) storeCredential(ctx context.Context, username string, password string) error {
	hash, salt, err := s.Hasher.Hash(password)
	if err != nil {
		return err
	}
	return s.Repo.UpdateCredential(ctx, username, hash, salt, s.now())
}

// GetUser returns the public view of a user.
func (s Service) GetUser(ctx context.Context, username string) (entities.User, error) {
	username = s.normalizeUsername(username)
	if username == "" {
		return entities.User{}, domainerrors.ErrInvalidUsername
	}
	record, err := s.Repo.GetUser(ctx, username)
	if err != nil {
		return entities.User{}, err
	}
	return record.User, nil
}

func (s Service) IsExistingUser(ctx context.Context, username string) (bool, error) {
	_, err := s.GetUser(ctx, username)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domainerrors.ErrUserNotFound), errors.Is(err, domainerrors.ErrInvalidUsername):
		return false, nil
	default:
		return false, err
	}
}

// ListUsers returns user names matching filter ('*' wildcard), capped by the
// realm's maximum list length.
func (s Service) ListUsers(ctx context.Context, filter string, limit int) ([]string, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		filter = "*"
	} else if filter != "*" {
		filter = s.normalizeUsername(filter)
	}
	return s.Repo.ListUsers(ctx, filter, s.listLimit(limit, s.Policy.cfg.MaxUserListLength))
}
