// Package auth signs and verifies RS256 access tokens carrying an
// AccessTokenPayload.
package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dmitrijs2005/pushauth/internal/common"
	"github.com/dmitrijs2005/pushauth/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// accessClaims is the signed claim set. RegisteredClaims contributes "exp".
type accessClaims struct {
	ID         int64             `json:"id"`
	XSRF       string            `json:"xsrf"`
	Privileges models.Privileges `json:"privileges"`
	jwt.RegisteredClaims
}

// Signer mints access tokens with the private half of the key pair.
type Signer struct {
	key *rsa.PrivateKey
}

func NewSigner(key *rsa.PrivateKey) *Signer {
	return &Signer{key: key}
}

// Sign returns the compact JWS for payload. The caller sets payload.Exp.
func (s *Signer) Sign(payload models.AccessTokenPayload) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, accessClaims{
		ID:         payload.ID,
		XSRF:       payload.XSRF,
		Privileges: payload.Privileges,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Unix(payload.Exp, 0)),
		},
	})

	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// Verifier checks access tokens with the public half of the key pair.
type Verifier struct {
	key *rsa.PublicKey
	now func() time.Time
}

// NewVerifier returns a Verifier evaluating "exp" against now. A nil now
// uses time.Now.
func NewVerifier(key *rsa.PublicKey, now func() time.Time) *Verifier {
	if now == nil {
		now = time.Now
	}
	return &Verifier{key: key, now: now}
}

// Verify checks signature and expiry, then the payload shape.
//
// Signature, format and expiry failures wrap common.ErrVerify; a token that
// verifies but does not carry the expected claims wraps
// common.ErrInvalidPayload.
func (v *Verifier) Verify(tokenString string) (models.AccessTokenPayload, error) {
	claims := jwt.MapClaims{}

	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return v.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return models.AccessTokenPayload{}, fmt.Errorf("%w: %w", common.ErrVerify, err)
	}

	payload, err := payloadFromClaims(claims)
	if err != nil {
		return models.AccessTokenPayload{}, fmt.Errorf("%w: %w", common.ErrInvalidPayload, err)
	}
	return payload, nil
}

func integral(v any) (int64, bool) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int64(f), true
}

// payloadFromClaims validates the decoded claim shape.
func payloadFromClaims(claims jwt.MapClaims) (models.AccessTokenPayload, error) {
	var p models.AccessTokenPayload
	var ok bool

	if p.ID, ok = integral(claims["id"]); !ok {
		return p, errors.New("id must be an integer")
	}
	exp, isNumber := claims["exp"].(float64)
	if !isNumber {
		return p, errors.New("exp must be a number")
	}
	p.Exp = int64(exp)
	if p.XSRF, ok = claims["xsrf"].(string); !ok {
		return p, errors.New("xsrf must be a string")
	}

	privileges, ok := claims["privileges"].(map[string]any)
	if !ok {
		return p, errors.New("privileges must be an object")
	}
	if p.Privileges.DeleteEnrollment, ok = privileges["deleteEnrollment"].(bool); !ok {
		return p, errors.New("privileges.deleteEnrollment must be a boolean")
	}
	if p.Privileges.Void, ok = privileges["void"].(bool); !ok {
		return p, errors.New("privileges.void must be a boolean")
	}

	return p, nil
}
