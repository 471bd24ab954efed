package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/pushauth/internal/common"
	"github.com/dmitrijs2005/pushauth/internal/server/metrics"
	"github.com/dmitrijs2005/pushauth/internal/server/models"
)

type contextKey int

const payloadKey contextKey = iota

// isStateChanging reports whether method requires the XSRF header.
func isStateChanging(method string) bool {
	return method != http.MethodGet && method != http.MethodHead
}

// Authenticate is the gate in front of protected routes. It verifies the
// accessToken cookie and, for state-changing methods, the X-XSRF-TOKEN
// header. On success the verified payload is available through
// PayloadFromContext.
func (a *API) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(common.AccessTokenCookieName)
		if err != nil || cookie.Value == "" {
			a.metrics.RejectRequest("missing_token")
			writeError(w, http.StatusUnauthorized, msgMissingAccessToken)
			return
		}

		var xsrf *string
		if values := r.Header.Values(common.XSRFHeaderName); len(values) > 0 {
			xsrf = &values[0]
		}

		payload, err := a.sessions.Verify(cookie.Value, xsrf, isStateChanging(r.Method))
		if err != nil {
			a.metrics.RejectRequest(metrics.Outcome(err))
			a.logger.Debug(r.Context(), "request rejected", "path", r.URL.Path, "error", err)
			writeError(w, http.StatusUnauthorized, gateMessage(err))
			return
		}

		ctx := context.WithValue(r.Context(), payloadKey, payload)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PayloadFromContext returns the payload stored by Authenticate.
func PayloadFromContext(ctx context.Context) (models.AccessTokenPayload, bool) {
	p, ok := ctx.Value(payloadKey).(models.AccessTokenPayload)
	return p, ok
}
