package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/pushauth/internal/common"
	"github.com/dmitrijs2005/pushauth/internal/server/metrics"
	"github.com/dmitrijs2005/pushauth/internal/server/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// verifyLikeService mimics the XSRF rules of the session manager for a
// single known token.
func verifyLikeService(token string, xsrf *string, stateChanging bool) (models.AccessTokenPayload, error) {
	switch token {
	case "good":
	case "bad-shape":
		return models.AccessTokenPayload{}, common.ErrInvalidPayload
	default:
		return models.AccessTokenPayload{}, common.ErrVerify
	}
	if stateChanging {
		if xsrf == nil {
			return models.AccessTokenPayload{}, common.ErrMissingXSRF
		}
		if *xsrf != testPayload.XSRF {
			return models.AccessTokenPayload{}, common.ErrInvalidXSRF
		}
	}
	return testPayload, nil
}

func gated(t *testing.T, opts ...Option) (http.Handler, *bool) {
	t.Helper()
	called := false
	a := New(&fakeSessions{verifyFn: verifyLikeService}, &fakeResolver{}, opts...)
	return a.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		p, ok := PayloadFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, testPayload, p)
		w.WriteHeader(http.StatusOK)
	})), &called
}

func gateRequest(method, token string, xsrf *string) *http.Request {
	req := httptest.NewRequest(method, "/protected", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: common.AccessTokenCookieName, Value: token})
	}
	if xsrf != nil {
		req.Header.Set(common.XSRFHeaderName, *xsrf)
	}
	return req
}

func strPtr(s string) *string { return &s }

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name   string
		method string
		token  string
		xsrf   *string
		status int
		msg    string
	}{
		{"get without xsrf", http.MethodGet, "good", nil, http.StatusOK, ""},
		{"head without xsrf", http.MethodHead, "good", nil, http.StatusOK, ""},
		{"post with matching xsrf", http.MethodPost, "good", strPtr("x"), http.StatusOK, ""},
		{"post missing xsrf", http.MethodPost, "good", nil, http.StatusUnauthorized, msgMissingXSRF},
		{"post empty xsrf", http.MethodPost, "good", strPtr(""), http.StatusUnauthorized, msgInvalidXSRF},
		{"delete mismatched xsrf", http.MethodDelete, "good", strPtr("y"), http.StatusUnauthorized, msgInvalidXSRF},
		{"no cookie", http.MethodGet, "", nil, http.StatusUnauthorized, msgMissingAccessToken},
		{"bad signature", http.MethodGet, "forged", nil, http.StatusUnauthorized, msgCouldNotDecode},
		{"bad shape", http.MethodGet, "bad-shape", nil, http.StatusUnauthorized, msgInvalidPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, called := gated(t)
			rec := do(t, h, gateRequest(tt.method, tt.token, tt.xsrf))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.status == http.StatusOK, *called)
			if tt.msg != "" {
				assert.Contains(t, rec.Body.String(), tt.msg)
			}
		})
	}
}

func TestAuthenticate_CountsRejections(t *testing.T) {
	m := metrics.New()
	h, _ := gated(t, WithMetrics(m))
	do(t, h, gateRequest(http.MethodPost, "good", nil))
	do(t, h, gateRequest(http.MethodGet, "", nil))
	do(t, h, gateRequest(http.MethodGet, "good", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.GateRejections.WithLabelValues("missing_xsrf")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GateRejections.WithLabelValues("missing_token")))
}

func TestSessionRoute(t *testing.T) {
	h := New(&fakeSessions{verifyFn: verifyLikeService}, &fakeResolver{}).Router()

	rec := do(t, h, gateRequest(http.MethodGet, "good", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.AddCookie(&http.Cookie{Name: common.AccessTokenCookieName, Value: "good"})
	rec = do(t, h, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"deleteEnrollment":true`)
}
