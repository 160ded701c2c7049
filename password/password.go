package password

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrUnsupportedHash is returned when a stored hash is in no recognised format.
var ErrUnsupportedHash = errors.New("unsupported password hash format")

// Scheme names the algorithm a stored hash was produced with.
type Scheme string

const (
	SchemeUnknown  Scheme = ""
	SchemeBcrypt   Scheme = "bcrypt"
	SchemeArgon2id Scheme = "argon2id"
)

// Detect inspects the prefix of encoded.
func Detect(encoded string) Scheme {
	switch {
	case strings.HasPrefix(encoded, argon2Prefix):
		return SchemeArgon2id
	case strings.HasPrefix(encoded, "$2a$"), strings.HasPrefix(encoded, "$2b$"), strings.HasPrefix(encoded, "$2y$"):
		return SchemeBcrypt
	default:
		return SchemeUnknown
	}
}

// Verify reports whether plain matches encoded. Both schemes compare in
// constant time. A mismatch is (false, nil); an unreadable hash is an error.
func Verify(plain, encoded string) (bool, error) {
	switch Detect(encoded) {
	case SchemeBcrypt:
		err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(plain))
		if err == nil {
			return true, nil
		}
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, err
	case SchemeArgon2id:
		return verifyArgon2(plain, encoded)
	default:
		return false, ErrUnsupportedHash
	}
}

// HashBcrypt hashes plain with bcrypt at cost (bcrypt.DefaultCost when 0).
func HashBcrypt(plain string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	out, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
