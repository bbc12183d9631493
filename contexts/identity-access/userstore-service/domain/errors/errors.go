package errors

import "errors"

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrInvalidUsername     = errors.New("invalid username")
	ErrInvalidPassword     = errors.New("invalid password")
	ErrInvalidGroupName    = errors.New("invalid group name")
	ErrInvalidClaim        = errors.New("invalid claim")
	ErrUserNotFound        = errors.New("user not found")
	ErrUserAlreadyExists   = errors.New("user already exists")
	ErrGroupNotFound       = errors.New("group not found")
	ErrGroupAlreadyExists  = errors.New("group already exists")
	ErrCredentialMismatch  = errors.New("old credential does not match")
	ErrReservedPrincipal   = errors.New("operation not permitted on reserved principal")
	ErrAccountLocked       = errors.New("account is locked")
	ErrListenerVeto        = errors.New("operation vetoed by listener")
	ErrUnsupportedListener = errors.New("listener implements no known hook")
	ErrRepositoryFailure   = errors.New("user store repository failure")
)

// Code maps an error to the stable code reported to error listeners and
// HTTP clients.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAccountLocked):
		return "account_locked"
	case errors.Is(err, ErrListenerVeto):
		return "listener_veto"
	case errors.Is(err, ErrInvalidUsername):
		return "invalid_username"
	case errors.Is(err, ErrInvalidPassword):
		return "invalid_password"
	case errors.Is(err, ErrInvalidGroupName):
		return "invalid_group_name"
	case errors.Is(err, ErrInvalidClaim):
		return "invalid_claim"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrUserAlreadyExists):
		return "user_already_exists"
	case errors.Is(err, ErrGroupNotFound):
		return "group_not_found"
	case errors.Is(err, ErrGroupAlreadyExists):
		return "group_already_exists"
	case errors.Is(err, ErrCredentialMismatch):
		return "credential_mismatch"
	case errors.Is(err, ErrReservedPrincipal):
		return "reserved_principal"
	default:
		return "internal_error"
	}
}
