package application

import (
	"context"
	"strings"

	"userrealm/contexts/identity-access/userstore-service/application/listeners"
	domainerrors "userrealm/contexts/identity-access/userstore-service/domain/errors"
	"userrealm/contexts/identity-access/userstore-service/ports"
)

// SetUserClaimValues stores claim values for a user profile, replacing any
// previous value of the same claim.
func (s Service) SetUserClaimValues(ctx context.Context, username string, claims map[string]string, profile string) error {
	username = s.normalizeUsername(username)
	if username == "" {
		return s.fail(ctx, ports.OpSetUserClaimValues, username, domainerrors.ErrInvalidUsername)
	}
	if len(claims) == 0 {
		return s.fail(ctx, ports.OpSetUserClaimValues, username, domainerrors.ErrInvalidClaim)
	}
	cleaned, ok := cleanClaims(claims)
	if !ok {
		return s.fail(ctx, ports.OpSetUserClaimValues, username, domainerrors.ErrInvalidClaim)
	}
	change := ports.ClaimChange{Username: username, Profile: s.profile(profile), Claims: cleaned}

	err := s.inUnitOfWork(ctx, func(ctx context.Context) error {
		if err := s.requireUser(ctx, username); err != nil {
			return err
		}
		if err := s.Listeners.Users(ctx, listeners.StagePre, ports.OpSetUserClaimValues, func(l ports.UserListener) error {
			return l.PreSetUserClaimValues(ctx, change)
		}); err != nil {
			return err
		}
		if err := s.Repo.SetUserClaimValues(ctx, username, change.Profile, change.Claims); err != nil {
			return err
		}
		return s.Listeners.Users(ctx, listeners.StagePost, ports.OpSetUserClaimValues, func(l ports.UserListener) error {
			return l.PostSetUserClaimValues(ctx, change)
		})
	})
	if err != nil {
		return s.fail(ctx, ports.OpSetUserClaimValues, username, err)
	}
	s.logDone(ports.OpSetUserClaimValues, username)
	return nil
}

// DeleteUserClaimValues removes the given claims from a user profile.
func (s Service) DeleteUserClaimValues(ctx context.Context, username string, claimURIs []string, profile string) error {
	username = s.normalizeUsername(username)
	if username == "" {
		return s.fail(ctx, ports.OpDeleteUserClaimValues, username, domainerrors.ErrInvalidUsername)
	}
	uris := make([]string, 0, len(claimURIs))
	for _, uri := range claimURIs {
		if uri = strings.TrimSpace(uri); uri != "" && !contains(uris, uri) {
			uris = append(uris, uri)
		}
	}
	if len(uris) == 0 {
		return s.fail(ctx, ports.OpDeleteUserClaimValues, username, domainerrors.ErrInvalidClaim)
	}
	change := ports.ClaimChange{Username: username, Profile: s.profile(profile), ClaimURIs: uris}

	err := s.inUnitOfWork(ctx, func(ctx context.Context) error {
		if err := s.requireUser(ctx, username); err != nil {
			return err
		}
		if err := s.Listeners.Users(ctx, listeners.StagePre, ports.OpDeleteUserClaimValues, func(l ports.UserListener) error {
			return l.PreDeleteUserClaimValues(ctx, change)
		}); err != nil {
			return err
		}
		if err := s.Repo.DeleteUserClaimValues(ctx, username, change.Profile, change.ClaimURIs); err != nil {
			return err
		}
		return s.Listeners.Users(ctx, listeners.StagePost, ports.OpDeleteUserClaimValues, func(l ports.UserListener) error {
			return l.PostDeleteUserClaimValues(ctx, change)
		})
	})
	if err != nil {
		return s.fail(ctx, ports.OpDeleteUserClaimValues, username, err)
	}
	s.logDone(ports.OpDeleteUserClaimValues, username)
	return nil
}

func (s Service) GetUserClaimValues(ctx context.Context, username string, profile string) (map[string]string, error) {
	username = s.normalizeUsername(username)
	if username == "" {
		return nil, domainerrors.ErrInvalidUsername
	}
	if err := s.requireUser(ctx, username); err != nil {
		return nil, err
	}
	return s.Repo.GetUserClaimValues(ctx, username, s.profile(profile))
}

// cleanClaims trims claim URIs. ok is false when a URI is blank.
func cleanClaims(claims map[string]string) (cleaned map[string]string, ok bool) {
	if claims == nil {
		return nil, true
	}
	cleaned = make(map[string]string, len(claims))
	for uri, value := range claims {
		uri = strings.TrimSpace(uri)
		if uri == "" {
			return nil, false
		}
		cleaned[uri] = value
	}
	return cleaned, true
}
