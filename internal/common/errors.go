// Package common defines shared constants and sentinel errors used across
// the pushauth server layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Login failures. ErrAccountNotFound and ErrWrongPassword must never be
	// told apart by anything a client can observe.
	ErrAccountNotFound = errors.New("account not found")
	ErrNoPasswordHash  = errors.New("account has no password hash")
	ErrWrongPassword   = errors.New("wrong password")
	ErrAccountExpired  = errors.New("account expired")

	// Account provisioning errors.
	ErrAccountExists = errors.New("account already exists")
	ErrEmptyUsername = errors.New("username is empty")
	ErrEmptyPassword = errors.New("password is empty")

	// Refresh token lifecycle errors.
	ErrTokenNotFound = errors.New("refresh token not found")
	ErrTokenInvalid  = errors.New("refresh token invalid")
	ErrTokenExpired  = errors.New("refresh token expired")

	// Access token verification errors.
	ErrVerify         = errors.New("could not verify access token")
	ErrInvalidPayload = errors.New("invalid access token payload")
	ErrMissingXSRF    = errors.New("missing XSRF token")
	ErrInvalidXSRF    = errors.New("invalid XSRF token")
)
