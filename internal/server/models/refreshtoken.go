package models

import (
	"net/netip"
	"time"

	"github.com/google/uuid"
)

// ClientContext is the audit information captured when a refresh token is
// created. Every field is optional.
type ClientContext struct {
	IPAddress      *netip.Addr
	UserAgent      *string
	Browser        *string
	BrowserVersion *string
	Mobile         *bool
	OS             *string
	City           *string
	Country        *string
	Latitude       *float64
	Longitude      *float64
}

// RefreshToken is a long-lived credential: an identifier used for lookup
// and a 64 byte secret compared on use.
type RefreshToken struct {
	ID        uuid.UUID
	Token     []byte
	AccountID int64
	Expiry    time.Time
	Client    ClientContext
	Created   time.Time
	Modified  time.Time
}

// Expired reports whether now is at or past the token's expiry.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.Expiry)
}
