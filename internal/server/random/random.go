// Package random provides the cryptographically secure byte source used for
// CSRF tokens and refresh-token secrets.
package random

import (
	"crypto/rand"
	"fmt"
)

// Source returns n random bytes.
type Source interface {
	Bytes(n int) ([]byte, error)
}

// CryptoSource reads from crypto/rand.
type CryptoSource struct{}

func (CryptoSource) Bytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("random: %w", err)
	}
	return b, nil
}
