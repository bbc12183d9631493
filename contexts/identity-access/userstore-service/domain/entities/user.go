package entities

import "time"

const (
	ClaimAccountDisabled = "http://wso2.org/claims/identity/accountDisabled"
	ClaimEmail           = "http://wso2.org/claims/emailaddress"
	ClaimGivenName       = "http://wso2.org/claims/givenname"
	ClaimLastName        = "http://wso2.org/claims/lastname"
)

// User is the public view of a stored user.
type User struct {
	UserID        string
	Username      string
	TenantID      int
	RequireChange bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// UserRecord is a user together with its credential material. It never
// leaves the application layer.
type UserRecord struct {
	User
	PasswordHash string
	Salt         string
}

// Group is a named collection of users, called a role in realm SQL schemas.
type Group struct {
	GroupID   string
	Name      string
	TenantID  int
	CreatedAt time.Time
}

// IsDisabled reports whether claims mark the account as disabled.
func IsDisabled(claims map[string]string) bool {
	switch claims[ClaimAccountDisabled] {
	case "true", "TRUE", "True", "1":
		return true
	default:
		return false
	}
}
