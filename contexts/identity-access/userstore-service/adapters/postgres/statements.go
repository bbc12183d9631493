package postgresadapter

import "strings"

// Statement keys. Realm configuration may override any of them under the
// same key; keys it leaves out keep their default.
const (
	AddUserSQL            = "AddUserSQL"
	SelectUserSQL         = "SelectUserSQL"
	DeleteUserSQL         = "DeleteUserSQL"
	UpdateUserPasswordSQL = "UpdateUserPasswordSQL"
	UserFilterSQL         = "UserFilterSQL"

	AddUserPropertySQL          = "AddUserPropertySQL"
	DeleteUserPropertySQL       = "DeleteUserPropertySQL"
	UserPropertiesForProfileSQL = "UserPropertiesForProfileSQL"

	AddRoleSQL        = "AddRoleSQL"
	DeleteRoleSQL     = "DeleteRoleSQL"
	UpdateRoleNameSQL = "UpdateRoleNameSQL"
	IsRoleExistingSQL = "IsRoleExistingSQL"
	GetRoleListSQL    = "GetRoleListSQL"

	AddUserToRoleSQL      = "AddUserToRoleSQL"
	RemoveUserFromRoleSQL = "RemoveUserFromRoleSQL"
	AddRoleToUserSQL      = "AddRoleToUserSQL"
	RemoveRoleFromUserSQL = "RemoveRoleFromUserSQL"
	GetUserRoleSQL        = "GetUserRoleSQL"
	GetUserListOfRoleSQL  = "GetUserListOfRoleSQL"
)

var defaultStatements = map[string]string{
	AddUserSQL: `INSERT INTO UM_USER (UM_USER_ID, UM_USER_NAME, UM_USER_PASSWORD, UM_SALT_VALUE, UM_REQUIRE_CHANGE, UM_CREATED_TIME, UM_CHANGED_TIME, UM_TENANT_ID)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	SelectUserSQL: `SELECT UM_USER_ID, UM_USER_NAME, UM_USER_PASSWORD, UM_SALT_VALUE, UM_REQUIRE_CHANGE, UM_CREATED_TIME, UM_CHANGED_TIME, UM_TENANT_ID
FROM UM_USER WHERE UM_USER_NAME = ? AND UM_TENANT_ID = ?`,
	DeleteUserSQL:         `DELETE FROM UM_USER WHERE UM_USER_NAME = ? AND UM_TENANT_ID = ?`,
	UpdateUserPasswordSQL: `UPDATE UM_USER SET UM_USER_PASSWORD = ?, UM_SALT_VALUE = ?, UM_REQUIRE_CHANGE = FALSE, UM_CHANGED_TIME = ? WHERE UM_USER_NAME = ? AND UM_TENANT_ID = ?`,
	UserFilterSQL:         `SELECT UM_USER_NAME FROM UM_USER WHERE UM_USER_NAME LIKE ? AND UM_TENANT_ID = ? ORDER BY UM_USER_NAME LIMIT ?`,

	AddUserPropertySQL: `INSERT INTO UM_USER_ATTRIBUTE (UM_USER_ID, UM_ATTR_NAME, UM_ATTR_VALUE, UM_PROFILE_ID, UM_TENANT_ID)
SELECT UM_ID, ?, ?, ?, ? FROM UM_USER WHERE UM_USER_NAME = ? AND UM_TENANT_ID = ?
ON CONFLICT (UM_USER_ID, UM_ATTR_NAME, UM_PROFILE_ID, UM_TENANT_ID) DO UPDATE SET UM_ATTR_VALUE = EXCLUDED.UM_ATTR_VALUE`,
	DeleteUserPropertySQL: `DELETE FROM UM_USER_ATTRIBUTE WHERE UM_ATTR_NAME = ? AND UM_PROFILE_ID = ? AND UM_TENANT_ID = ?
AND UM_USER_ID = (SELECT UM_ID FROM UM_USER WHERE UM_USER_NAME = ? AND UM_TENANT_ID = ?)`,
	UserPropertiesForProfileSQL: `SELECT a.UM_ATTR_NAME, a.UM_ATTR_VALUE FROM UM_USER_ATTRIBUTE a JOIN UM_USER u ON u.UM_ID = a.UM_USER_ID
WHERE u.UM_USER_NAME = ? AND a.UM_PROFILE_ID = ? AND u.UM_TENANT_ID = ?`,

	AddRoleSQL:        `INSERT INTO UM_ROLE (UM_ROLE_ID, UM_ROLE_NAME, UM_CREATED_TIME, UM_TENANT_ID) VALUES (?, ?, ?, ?)`,
	DeleteRoleSQL:     `DELETE FROM UM_ROLE WHERE UM_ROLE_NAME = ? AND UM_TENANT_ID = ?`,
	UpdateRoleNameSQL: `UPDATE UM_ROLE SET UM_ROLE_NAME = ? WHERE UM_ROLE_NAME = ? AND UM_TENANT_ID = ?`,
	IsRoleExistingSQL: `SELECT UM_ID FROM UM_ROLE WHERE UM_ROLE_NAME = ? AND UM_TENANT_ID = ?`,
	GetRoleListSQL:    `SELECT UM_ROLE_NAME FROM UM_ROLE WHERE UM_ROLE_NAME LIKE ? AND UM_TENANT_ID = ? ORDER BY UM_ROLE_NAME LIMIT ?`,

	AddUserToRoleSQL: `INSERT INTO UM_USER_ROLE (UM_USER_ID, UM_ROLE_ID, UM_TENANT_ID)
SELECT u.UM_ID, r.UM_ID, u.UM_TENANT_ID FROM UM_USER u, UM_ROLE r
WHERE u.UM_USER_NAME = ? AND r.UM_ROLE_NAME = ? AND u.UM_TENANT_ID = ? AND r.UM_TENANT_ID = u.UM_TENANT_ID
ON CONFLICT DO NOTHING`,
	RemoveUserFromRoleSQL: `DELETE FROM UM_USER_ROLE WHERE UM_TENANT_ID = ?
AND UM_USER_ID = (SELECT UM_ID FROM UM_USER WHERE UM_USER_NAME = ? AND UM_TENANT_ID = ?)
AND UM_ROLE_ID = (SELECT UM_ID FROM UM_ROLE WHERE UM_ROLE_NAME = ? AND UM_TENANT_ID = ?)`,
	AddRoleToUserSQL: `INSERT INTO UM_USER_ROLE (UM_USER_ID, UM_ROLE_ID, UM_TENANT_ID)
SELECT u.UM_ID, r.UM_ID, u.UM_TENANT_ID FROM UM_USER u, UM_ROLE r
WHERE r.UM_ROLE_NAME = ? AND u.UM_USER_NAME = ? AND u.UM_TENANT_ID = ? AND r.UM_TENANT_ID = u.UM_TENANT_ID
ON CONFLICT DO NOTHING`,
	RemoveRoleFromUserSQL: `DELETE FROM UM_USER_ROLE WHERE UM_TENANT_ID = ?
AND UM_ROLE_ID = (SELECT UM_ID FROM UM_ROLE WHERE UM_ROLE_NAME = ? AND UM_TENANT_ID = ?)
AND UM_USER_ID = (SELECT UM_ID FROM UM_USER WHERE UM_USER_NAME = ? AND UM_TENANT_ID = ?)`,
	GetUserRoleSQL: `SELECT r.UM_ROLE_NAME FROM UM_USER_ROLE ur JOIN UM_ROLE r ON r.UM_ID = ur.UM_ROLE_ID JOIN UM_USER u ON u.UM_ID = ur.UM_USER_ID
WHERE u.UM_USER_NAME = ? AND u.UM_TENANT_ID = ? ORDER BY r.UM_ROLE_NAME`,
	GetUserListOfRoleSQL: `SELECT u.UM_USER_NAME FROM UM_USER_ROLE ur JOIN UM_ROLE r ON r.UM_ID = ur.UM_ROLE_ID JOIN UM_USER u ON u.UM_ID = ur.UM_USER_ID
WHERE r.UM_ROLE_NAME = ? AND r.UM_TENANT_ID = ? ORDER BY u.UM_USER_NAME`,
}

// Statements is the SQL catalogue used by the repository.
type Statements map[string]string

// NewStatements overlays overrides on the default catalogue. Blank overrides
// are ignored.
func NewStatements(overrides map[string]string) Statements {
	out := make(Statements, len(defaultStatements))
	for key, stmt := range defaultStatements {
		out[key] = stmt
	}
	for key, stmt := range overrides {
		if strings.TrimSpace(stmt) != "" {
			out[key] = stmt
		}
	}
	return out
}

// DefaultStatements returns a copy of the built-in catalogue.
func DefaultStatements() Statements {
	return NewStatements(nil)
}

// likePattern turns a '*' wildcard into a LIKE pattern, escaping LIKE
// metacharacters in the literal parts.
func likePattern(pattern string) string {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return "%"
	}
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`, `*`, `%`)
	return replacer.Replace(pattern)
}
