// Package password verifies and produces bcrypt password hashes.
package password

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the work factor used for new hashes.
const DefaultCost = 13

// Verifier checks a plaintext password against a stored hash.
type Verifier interface {
	Verify(password, hash string) (bool, error)
}

// Bcrypt implements Verifier with golang.org/x/crypto/bcrypt.
type Bcrypt struct {
	Cost int
}

func NewBcrypt(cost int) *Bcrypt {
	if cost == 0 {
		cost = DefaultCost
	}
	return &Bcrypt{Cost: cost}
}

// normalize rewrites the "$2y$" prefix written by PHP's password_hash to the
// equivalent "$2b$" understood by x/crypto/bcrypt.
func normalize(hash string) string {
	if strings.HasPrefix(hash, "$2y$") {
		return "$2b$" + hash[len("$2y$"):]
	}
	return hash
}

// Verify returns (false, nil) on a mismatch and an error for a hash that
// cannot be parsed.
func (b *Bcrypt) Verify(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(normalize(hash)), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("bcrypt: %w", err)
	}
}

// Hash returns a new bcrypt hash of password.
func (b *Bcrypt) Hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), b.Cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(h), nil
}
