package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"hash"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Supported password digests. Names follow the realm property values.
const (
	DigestSHA256    = "SHA-256"
	DigestSHA512    = "SHA-512"
	DigestBcrypt    = "BCRYPT"
	DigestPlainText = "PLAIN_TEXT"
)

const saltSize = 16

var ErrUnsupportedDigest = errors.New("unsupported password digest")

// Hasher implements ports.PasswordHasher for the configured digest.
type Hasher struct {
	digest     string
	salted     bool
	bcryptCost int
}

func NewHasher(digest string, salted bool) (Hasher, error) {
	digest = strings.ToUpper(strings.TrimSpace(digest))
	switch digest {
	case "":
		digest = DigestSHA256
	case "SHA256":
		digest = DigestSHA256
	case "SHA512":
		digest = DigestSHA512
	case DigestSHA256, DigestSHA512, DigestBcrypt, DigestPlainText:
	default:
		return Hasher{}, fmt.Errorf("%w: %s", ErrUnsupportedDigest, digest)
	}
	return Hasher{digest: digest, salted: salted, bcryptCost: bcrypt.DefaultCost}, nil
}

// WithBcryptCost returns a copy using cost for new BCRYPT hashes.
func (h Hasher) WithBcryptCost(cost int) Hasher {
	if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
		h.bcryptCost = cost
	}
	return h
}

func (h Hasher) Digest() string {
	return h.digest
}

func (h Hasher) Hash(password string) (string, string, error) {
	switch h.digest {
	case DigestBcrypt:
		// bcrypt embeds its own salt in the hash.
		out, err := bcrypt.GenerateFromPassword([]byte(password), h.bcryptCost)
		if err != nil {
			return "", "", err
		}
		return string(out), "", nil
	case DigestPlainText:
		return password, "", nil
	}

	salt := ""
	if h.salted {
		var err error
		if salt, err = newSalt(); err != nil {
			return "", "", err
		}
	}
	return h.sum(password, salt), salt, nil
}

func (h Hasher) Verify(password string, stored string, salt string) (bool, error) {
	switch h.digest {
	case DigestBcrypt:
		err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return err == nil, err
	case DigestPlainText:
		return subtle.ConstantTimeCompare([]byte(password), []byte(stored)) == 1, nil
	}
	computed := h.sum(password, salt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(stored)) == 1, nil
}

func (h Hasher) sum(password string, salt string) string {
	var d hash.Hash
	if h.digest == DigestSHA512 {
		d = sha512.New()
	} else {
		d = sha256.New()
	}
	d.Write([]byte(password + salt))
	return base64.StdEncoding.EncodeToString(d.Sum(nil))
}

func newSalt() (string, error) {
	buf := make([]byte, saltSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}
