package application

import (
	"context"
	"errors"

	"userrealm/contexts/identity-access/userstore-service/application/listeners"
	"userrealm/contexts/identity-access/userstore-service/domain/entities"
	domainerrors "userrealm/contexts/identity-access/userstore-service/domain/errors"
	"userrealm/contexts/identity-access/userstore-service/ports"
)

// Authenticate checks a credential. Unknown users, disabled accounts and
// names rejected by the username policy authenticate as false without error;
// listener vetoes (for example a locked account) are returned as errors.
func (s Service) Authenticate(ctx context.Context, username string, password string) (bool, error) {
	username = s.normalizeUsername(username)
	if !s.Policy.validUsername(username) || password == "" {
		return false, nil
	}

	authenticated := false
	err := s.inUnitOfWork(ctx, func(ctx context.Context) error {
		if err := s.Listeners.Auth(ctx, listeners.StagePre, func(l ports.AuthenticationListener) error {
			return l.PreAuthenticate(ctx, username)
		}); err != nil {
			return err
		}

		ok, err := s.checkCredential(ctx, username, password)
		if err != nil {
			return err
		}
		authenticated = ok

		return s.Listeners.Auth(ctx, listeners.StagePost, func(l ports.AuthenticationListener) error {
			return l.PostAuthenticate(ctx, username, ok)
		})
	})
	if err != nil {
		return false, s.fail(ctx, ports.OpAuthenticate, username, err)
	}

	ResolveLogger(s.Logger).Info("userstore authentication evaluated",
		"event", "userstore_authenticate",
		"module", "identity-access/userstore-service",
		"layer", "application",
		"subject", username,
		"authenticated", authenticated,
	)
	return authenticated, nil
}

func (s Service) checkCredential(ctx context.Context, username string, password string) (bool, error) {
	record, err := s.Repo.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, domainerrors.ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}

	claims, err := s.Repo.GetUserClaimValues(ctx, username, s.profile(""))
	if err != nil {
		return false, err
	}
	if entities.IsDisabled(claims) {
		return false, nil
	}
	return s.Hasher.Verify(password, record.PasswordHash, record.Salt)
}
