// Package models defines the server-side data models for accounts, refresh
// tokens and the signed access-token payload.
package models

import "time"

// Privileges are the per-account permission flags copied into every access
// token at mint time.
type Privileges struct {
	DeleteEnrollment bool `json:"deleteEnrollment"`
	Void             bool `json:"void"`
}

// Account is an administrator able to log in.
type Account struct {
	ID       int64
	Username string
	// PasswordHash is nil for disabled or legacy accounts; such accounts
	// can never log in.
	PasswordHash *string
	Expiry       *time.Time
	Privileges   Privileges
	Created      time.Time
	Modified     time.Time
}

// Expired reports whether the account has an expiry that is not in the future.
func (a *Account) Expired(now time.Time) bool {
	return a.Expiry != nil && !a.Expiry.After(now)
}
