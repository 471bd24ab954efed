package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/pushauth/internal/logging"
	"github.com/go-chi/chi/v5/middleware"
)

// RequestLogger is chi's request logging middleware writing one structured
// record per request to l. Panics caught by middleware.Recoverer are logged
// through the same entry.
func RequestLogger(l logging.Logger) func(http.Handler) http.Handler {
	return middleware.RequestLogger(&accessLogFormatter{logger: l.With("module", "access")})
}

type accessLogFormatter struct {
	logger logging.Logger
}

func (f *accessLogFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &accessLogEntry{
		logger: f.logger,
		ctx:    r.Context(),
		args: []any{
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"request_id", middleware.GetReqID(r.Context()),
		},
	}
}

type accessLogEntry struct {
	logger logging.Logger
	ctx    context.Context
	args   []any
}

func (e *accessLogEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	args := append(e.args, "status", status, "bytes", bytes, "duration_ms", elapsed.Milliseconds())
	if status >= http.StatusInternalServerError {
		e.logger.Warn(e.ctx, "request", args...)
		return
	}
	e.logger.Info(e.ctx, "request", args...)
}

func (e *accessLogEntry) Panic(v interface{}, stack []byte) {
	e.logger.Error(e.ctx, "panic", append(e.args, "panic", v, "stack", string(stack))...)
}
