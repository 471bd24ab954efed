package httpapi

import (
	"math"
	"net/http"
	"net/netip"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/pushauth/internal/server/clientinfo"
	"github.com/dmitrijs2005/pushauth/internal/server/metrics"
	"golang.org/x/time/rate"
)

const (
	// limiterIdle is how long an unused per-IP bucket is kept.
	limiterIdle = 10 * time.Minute
	// limiterPruneEvery bounds how often idle buckets are swept.
	limiterPruneEvery = time.Minute
)

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// loginLimiter is a per-client-IP token bucket for POST /auth/login. The
// client IP is the peer address, or the forwarded one when the peer is a
// trusted proxy.
type loginLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	entries   map[string]*limiterEntry
	lastPrune time.Time
	now       func() time.Time
	trusted   []netip.Prefix
	metrics   *metrics.Metrics
}

func newLoginLimiter(perMinute, burst int) *loginLimiter {
	if burst < 1 {
		burst = 1
	}
	return &loginLimiter{
		limit:   rate.Limit(float64(perMinute) / 60),
		burst:   burst,
		entries: make(map[string]*limiterEntry),
		now:     time.Now,
		metrics: metrics.New(),
	}
}

// allow takes one token for key. When none is available it returns the
// time until the next one.
func (l *loginLimiter) allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastPrune) >= limiterPruneEvery {
		for k, e := range l.entries {
			if now.Sub(e.lastSeen) > limiterIdle {
				delete(l.entries, k)
			}
		}
		l.lastPrune = now
	}

	e, ok := l.entries[key]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = e
	}
	e.lastSeen = now

	res := e.lim.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Middleware rejects requests over the limit with 429 and Retry-After.
func (l *loginLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "unknown"
		if addr, ok := clientinfo.PeerIP(r, l.trusted); ok {
			key = addr.String()
		}

		ok, wait := l.allow(key)
		if !ok {
			l.metrics.ObserveRateLimit("login", false)
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			writeError(w, http.StatusTooManyRequests, "Too many login attempts")
			return
		}
		l.metrics.ObserveRateLimit("login", true)
		next.ServeHTTP(w, r)
	})
}
