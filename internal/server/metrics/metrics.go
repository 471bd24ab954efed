// Package metrics holds the Prometheus collectors of the auth service.
package metrics

import (
	"errors"

	"github.com/dmitrijs2005/pushauth/internal/common"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pushauth"

// Metrics is the set of counters shared by the session manager and the
// HTTP layer. Build one with New and register it once per registry.
type Metrics struct {
	// SessionOperations counts login, refresh and logout calls by outcome.
	SessionOperations *prometheus.CounterVec
	// GateRejections counts requests refused by the authentication gate.
	GateRejections    *prometheus.CounterVec
	RateLimitAllowed  *prometheus.CounterVec
	RateLimitRejected *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		SessionOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "session_operations_total", Help: "Session operations by operation and outcome."},
			[]string{"operation", "outcome"},
		),
		GateRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "gate_rejections_total", Help: "Requests rejected by the authentication gate by reason."},
			[]string{"reason"},
		),
		RateLimitAllowed: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter."},
			[]string{"limiter"},
		),
		RateLimitRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter."},
			[]string{"limiter"},
		),
	}
}

func (m *Metrics) RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(m.SessionOperations)
	reg.MustRegister(m.GateRejections)
	reg.MustRegister(m.RateLimitAllowed)
	reg.MustRegister(m.RateLimitRejected)
}

var outcomes = []struct {
	err   error
	label string
}{
	{common.ErrAccountNotFound, "account_not_found"},
	{common.ErrNoPasswordHash, "no_password_hash"},
	{common.ErrWrongPassword, "wrong_password"},
	{common.ErrAccountExpired, "account_expired"},
	{common.ErrTokenNotFound, "token_not_found"},
	{common.ErrTokenInvalid, "token_invalid"},
	{common.ErrTokenExpired, "token_expired"},
	{common.ErrInvalidPayload, "invalid_payload"},
	{common.ErrVerify, "verify"},
	{common.ErrMissingXSRF, "missing_xsrf"},
	{common.ErrInvalidXSRF, "invalid_xsrf"},
}

// Outcome maps an operation result to a low-cardinality label.
func Outcome(err error) string {
	if err == nil {
		return "success"
	}
	for _, o := range outcomes {
		if errors.Is(err, o.err) {
			return o.label
		}
	}
	return "internal"
}

// ObserveSession records the result of a session operation.
func (m *Metrics) ObserveSession(operation string, err error) {
	m.SessionOperations.WithLabelValues(operation, Outcome(err)).Inc()
}

// RejectRequest records a gate rejection with the given reason.
func (m *Metrics) RejectRequest(reason string) {
	m.GateRejections.WithLabelValues(reason).Inc()
}

// ObserveRateLimit records one limiter decision.
func (m *Metrics) ObserveRateLimit(limiter string, allowed bool) {
	if allowed {
		m.RateLimitAllowed.WithLabelValues(limiter).Inc()
		return
	}
	m.RateLimitRejected.WithLabelValues(limiter).Inc()
}
