package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/pushauth/internal/common"
	"github.com/dmitrijs2005/pushauth/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	keyOnce  sync.Once
	testKey  *rsa.PrivateKey
	otherKey *rsa.PrivateKey
)

func keys(t *testing.T) (*rsa.PrivateKey, *rsa.PrivateKey) {
	t.Helper()
	keyOnce.Do(func() {
		var err error
		if testKey, err = rsa.GenerateKey(rand.Reader, 2048); err != nil {
			panic(err)
		}
		if otherKey, err = rsa.GenerateKey(rand.Reader, 2048); err != nil {
			panic(err)
		}
	})
	return testKey, otherKey
}

var fixedNow = time.Unix(1_700_000_000, 0)

func clock() time.Time { return fixedNow }

func samplePayload(exp int64) models.AccessTokenPayload {
	return models.AccessTokenPayload{
		ID:         42,
		Exp:        exp,
		XSRF:       "c2l4dGVlbiBieXRlcyEh",
		Privileges: models.Privileges{DeleteEnrollment: true, Void: false},
	}
}

func TestSignVerify_RoundTrip(t *testing.T) {
	priv, _ := keys(t)
	want := samplePayload(fixedNow.Unix() + 1800)

	tok, err := NewSigner(priv).Sign(want)
	require.NoError(t, err)
	assert.Len(t, strings.Split(tok, "."), 3)

	got, err := NewVerifier(&priv.PublicKey, clock).Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	priv, _ := keys(t)
	signer := NewSigner(priv)
	verifier := NewVerifier(&priv.PublicKey, clock)

	tests := []struct {
		name    string
		exp     int64
		wantErr bool
	}{
		{name: "one second ago", exp: fixedNow.Unix() - 1, wantErr: true},
		{name: "exactly now", exp: fixedNow.Unix(), wantErr: true},
		{name: "one second ahead", exp: fixedNow.Unix() + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := signer.Sign(samplePayload(tt.exp))
			require.NoError(t, err)

			_, err = verifier.Verify(tok)
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrVerify)
				assert.ErrorIs(t, err, jwt.ErrTokenExpired)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestVerify_WrongKey(t *testing.T) {
	priv, other := keys(t)

	tok, err := NewSigner(other).Sign(samplePayload(fixedNow.Unix() + 60))
	require.NoError(t, err)

	_, err = NewVerifier(&priv.PublicKey, clock).Verify(tok)
	assert.ErrorIs(t, err, common.ErrVerify)
}

func TestVerify_Malformed(t *testing.T) {
	priv, _ := keys(t)
	v := NewVerifier(&priv.PublicKey, clock)

	for _, tok := range []string{"", "abc", "a.b.c"} {
		_, err := v.Verify(tok)
		assert.ErrorIs(t, err, common.ErrVerify, "token %q", tok)
	}
}

func TestVerify_TamperedPayload(t *testing.T) {
	priv, _ := keys(t)
	tok, err := NewSigner(priv).Sign(samplePayload(fixedNow.Unix() + 60))
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	forged, err := NewSigner(priv).Sign(models.AccessTokenPayload{ID: 1, Exp: fixedNow.Unix() + 60,
		Privileges: models.Privileges{DeleteEnrollment: true, Void: true}})
	require.NoError(t, err)
	parts[1] = strings.Split(forged, ".")[1]

	_, err = NewVerifier(&priv.PublicKey, clock).Verify(strings.Join(parts, "."))
	assert.ErrorIs(t, err, common.ErrVerify)
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	priv, _ := keys(t)
	v := NewVerifier(&priv.PublicKey, clock)
	claims := jwt.MapClaims{
		"id": 1, "exp": fixedNow.Unix() + 60, "xsrf": "x",
		"privileges": map[string]any{"deleteEnrollment": true, "void": true},
	}

	hs, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = v.Verify(hs)
	assert.ErrorIs(t, err, common.ErrVerify)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = v.Verify(none)
	assert.ErrorIs(t, err, common.ErrVerify)
}

func TestVerify_MissingExpIsRejected(t *testing.T) {
	priv, _ := keys(t)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"id": 1, "xsrf": "x", "privileges": map[string]any{"deleteEnrollment": false, "void": false},
	}).SignedString(priv)
	require.NoError(t, err)

	_, err = NewVerifier(&priv.PublicKey, clock).Verify(tok)
	assert.ErrorIs(t, err, common.ErrVerify)
}

func TestVerify_InvalidPayloadShape(t *testing.T) {
	priv, _ := keys(t)
	v := NewVerifier(&priv.PublicKey, clock)
	exp := fixedNow.Unix() + 60

	valid := func() jwt.MapClaims {
		return jwt.MapClaims{
			"id": 7, "exp": exp, "xsrf": "token",
			"privileges": map[string]any{"deleteEnrollment": false, "void": true},
		}
	}

	tests := []struct {
		name   string
		mutate func(jwt.MapClaims)
	}{
		{"id missing", func(c jwt.MapClaims) { delete(c, "id") }},
		{"id string", func(c jwt.MapClaims) { c["id"] = "7" }},
		{"id fractional", func(c jwt.MapClaims) { c["id"] = 7.5 }},
		{"xsrf missing", func(c jwt.MapClaims) { delete(c, "xsrf") }},
		{"xsrf number", func(c jwt.MapClaims) { c["xsrf"] = 5 }},
		{"privileges missing", func(c jwt.MapClaims) { delete(c, "privileges") }},
		{"privileges array", func(c jwt.MapClaims) { c["privileges"] = []bool{true} }},
		{"flag missing", func(c jwt.MapClaims) { c["privileges"] = map[string]any{"void": true} }},
		{"flag not bool", func(c jwt.MapClaims) {
			c["privileges"] = map[string]any{"deleteEnrollment": "yes", "void": true}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := valid()
			tt.mutate(claims)
			tok, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(priv)
			require.NoError(t, err)

			_, err = v.Verify(tok)
			assert.ErrorIs(t, err, common.ErrInvalidPayload)
			assert.NotErrorIs(t, err, common.ErrVerify)
		})
	}

	t.Run("valid shape passes", func(t *testing.T) {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodRS256, valid()).SignedString(priv)
		require.NoError(t, err)
		got, err := v.Verify(tok)
		require.NoError(t, err)
		assert.Equal(t, int64(7), got.ID)
		assert.True(t, got.Privileges.Void)
	})
}

func TestNewVerifier_DefaultClock(t *testing.T) {
	priv, _ := keys(t)
	tok, err := NewSigner(priv).Sign(samplePayload(time.Now().Add(time.Minute).Unix()))
	require.NoError(t, err)

	_, err = NewVerifier(&priv.PublicKey, nil).Verify(tok)
	assert.NoError(t, err)
}
