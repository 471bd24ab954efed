// Package httpapi exposes the session manager over HTTP: login, refresh and
// logout endpoints, the authentication gate for protected routes and a
// health check.
package httpapi

import (
	"context"
	"net/http"
	"net/netip"

	"github.com/dmitrijs2005/pushauth/internal/logging"
	"github.com/dmitrijs2005/pushauth/internal/server/metrics"
	"github.com/dmitrijs2005/pushauth/internal/server/models"
	"github.com/dmitrijs2005/pushauth/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Sessions is the session manager as seen by the HTTP layer.
type Sessions interface {
	Login(ctx context.Context, req services.LoginRequest) (*services.SessionResult, error)
	Refresh(ctx context.Context, id uuid.UUID, secret []byte) (*services.SessionResult, error)
	Logout(ctx context.Context, id *uuid.UUID, secret []byte) error
	Verify(accessToken string, xsrfHeader *string, stateChanging bool) (models.AccessTokenPayload, error)
	ClearCookies() []*http.Cookie
}

// ClientResolver extracts the audit context of a login request.
type ClientResolver interface {
	FromRequest(r *http.Request) models.ClientContext
}

// API holds the dependencies of the HTTP handlers.
type API struct {
	sessions Sessions
	clients  ClientResolver
	logger   logging.Logger
	limiter  *loginLimiter
	health   func(context.Context) error
	metrics  *metrics.Metrics
	trusted  []netip.Prefix
}

// Option configures the API instance.
type Option func(*API)

func WithLogger(l logging.Logger) Option {
	return func(a *API) { a.logger = l }
}

// WithHealthCheck sets the probe used by GET /health, typically a DB ping.
func WithHealthCheck(check func(context.Context) error) Option {
	return func(a *API) { a.health = check }
}

// WithMetrics sets the counters for gate and limiter decisions.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *API) { a.metrics = m }
}

// WithTrustedProxies lists the reverse proxies whose forwarding headers
// identify the client for login throttling.
func WithTrustedProxies(prefixes []netip.Prefix) Option {
	return func(a *API) { a.trusted = prefixes }
}

// WithLoginRateLimit throttles POST /auth/login per client IP. A
// non-positive perMinute disables throttling.
func WithLoginRateLimit(perMinute, burst int) Option {
	return func(a *API) {
		if perMinute <= 0 {
			a.limiter = nil
			return
		}
		a.limiter = newLoginLimiter(perMinute, burst)
	}
}

func New(sessions Sessions, clients ClientResolver, opts ...Option) *API {
	a := &API{sessions: sessions, clients: clients}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logging.Nop{}
	}
	a.logger = a.logger.With("module", "httpapi")
	if a.metrics == nil {
		a.metrics = metrics.New()
	}
	if a.limiter != nil {
		a.limiter.trusted = a.trusted
		a.limiter.metrics = a.metrics
	}
	return a
}

// Router returns a chi.Router with all routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(SecurityHeaders)

	r.Get("/health", a.Health)

	r.Route("/auth", func(r chi.Router) {
		if a.limiter != nil {
			r.With(a.limiter.Middleware).Post("/login", a.Login)
		} else {
			r.Post("/login", a.Login)
		}
		r.Post("/refresh", a.Refresh)
		r.Post("/logout", a.Logout)
		r.With(a.Authenticate).Get("/session", a.Session)
	})

	return r
}

// Health reports whether the service can reach its database.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	if a.health != nil {
		if err := a.health(r.Context()); err != nil {
			a.logger.Warn(r.Context(), "health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
