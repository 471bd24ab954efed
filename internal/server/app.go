// Package server wires the auth service together: configuration, database,
// signing keys, the session manager and the HTTP API, and runs it until a
// termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/pushauth/internal/logging"
	"github.com/dmitrijs2005/pushauth/internal/server/auth"
	"github.com/dmitrijs2005/pushauth/internal/server/clientinfo"
	"github.com/dmitrijs2005/pushauth/internal/server/config"
	"github.com/dmitrijs2005/pushauth/internal/server/httpapi"
	"github.com/dmitrijs2005/pushauth/internal/server/keys"
	"github.com/dmitrijs2005/pushauth/internal/server/metrics"
	"github.com/dmitrijs2005/pushauth/internal/server/password"
	"github.com/dmitrijs2005/pushauth/internal/server/random"
	"github.com/dmitrijs2005/pushauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/pushauth/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	handler http.Handler
	closers []func() error
}

// OpenDatabase opens the pgx pool and applies migrations when configured.
func OpenDatabase(ctx context.Context, c *config.Config) (*sql.DB, repomanager.RepositoryManager, error) {
	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if c.RunMigrations {
		if err := rm.RunMigrations(ctx, db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrations: %w", err)
		}
	}
	return db, rm, nil
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout, c.Debug)

	db, rm, err := OpenDatabase(ctx, c)
	if err != nil {
		return nil, err
	}
	app := &App{config: c, logger: logger, db: db, closers: []func() error{db.Close}}

	pair, err := keys.Load(ctx, c)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("signing keys: %w", err)
	}

	var geo clientinfo.CityLookup
	if c.GeoIPDatabasePath != "" {
		reader, err := clientinfo.OpenGeoIP(c.GeoIPDatabasePath)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("geoip: %w", err)
		}
		geo = reader
		app.closers = append(app.closers, reader.Close)
	}

	trusted, err := c.TrustedProxyPrefixes()
	if err != nil {
		app.close()
		return nil, err
	}

	m := metrics.New()
	sessions := services.NewSessionService(db, rm, services.Dependencies{
		Signer:    auth.NewSigner(pair.Private),
		Verifier:  auth.NewVerifier(pair.Public, nil),
		Passwords: password.NewBcrypt(0),
		Random:    random.CryptoSource{},
		Logger:    logger,
		Metrics:   m,
	}, c)

	api := httpapi.New(sessions, clientinfo.NewResolver(geo, logger),
		httpapi.WithLogger(logger),
		httpapi.WithHealthCheck(db.PingContext),
		httpapi.WithMetrics(m),
		httpapi.WithTrustedProxies(trusted),
		httpapi.WithLoginRateLimit(c.LoginRatePerMinute, c.LoginRateBurst),
	)

	app.handler = newRouter(api, newRegistry(m), logger)
	return app, nil
}

func newRegistry(m *metrics.Metrics) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m.RegisterCollectors(reg)
	return reg
}

func newRouter(api *httpapi.API, reg *prometheus.Registry, logger logging.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(httpapi.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Mount("/", api.Router())
	return r
}

func (app *App) close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			app.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewServer(app.config.EndpointAddrHTTP, app.handler, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "environment", app.config.Environment)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.close()
	app.logger.Info(context.Background(), "App stopped")
}
