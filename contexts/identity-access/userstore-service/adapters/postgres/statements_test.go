package postgresadapter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewStatementsFillsMissingKeysFromDefaults(t *testing.T) {
	custom := "SELECT UM_USER_NAME FROM UM_USER WHERE UM_USER_NAME ILIKE ? AND UM_TENANT_ID = ? LIMIT ?"
	stmts := NewStatements(map[string]string{
		UserFilterSQL: custom,
		DeleteRoleSQL: "   ",
	})

	require.Equal(t, custom, stmts[UserFilterSQL])
	require.Equal(t, defaultStatements[DeleteRoleSQL], stmts[DeleteRoleSQL])
	require.Len(t, stmts, len(defaultStatements))
}

func TestDefaultStatementsIsACopy(t *testing.T) {
	stmts := DefaultStatements()
	stmts[AddUserSQL] = "changed"
	require.NotEqual(t, "changed", defaultStatements[AddUserSQL])
}

func TestLikePattern(t *testing.T) {
	cases := map[string]string{
		"":         "%",
		"*":        "%",
		"adm*":     "adm%",
		"a_b*":     `a\_b%`,
		"100%":     `100\%`,
		`dom\user`: `dom\\user`,
	}
	for in, want := range cases {
		require.Equal(t, want, likePattern(in), "pattern %q", in)
	}
}

func TestSchemaStatementsSplit(t *testing.T) {
	stmts := schemaStatements()
	require.NotEmpty(t, stmts)
	for _, stmt := range stmts {
		require.True(t, strings.HasPrefix(stmt, "CREATE"), "unexpected statement %q", stmt)
	}
}
