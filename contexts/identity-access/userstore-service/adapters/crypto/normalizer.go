package crypto

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// CaseFoldNormalizer trims user names, applies NFC and, unless the realm is
// case sensitive, folds case so that "Alice" and "alice" name the same user.
type CaseFoldNormalizer struct {
	CaseSensitive bool
}

func (n CaseFoldNormalizer) Normalize(username string) string {
	username = norm.NFC.String(strings.TrimSpace(username))
	if n.CaseSensitive {
		return username
	}
	return cases.Fold().String(username)
}
