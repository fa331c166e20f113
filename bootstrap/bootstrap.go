// Package bootstrap wires all dependencies and starts the application.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	apihttp "github.com/artpar/simpleschema/adapters/http"
	"github.com/artpar/simpleschema/adapters/metrics"
	"github.com/artpar/simpleschema/app"
	"github.com/artpar/simpleschema/config"
	"github.com/artpar/simpleschema/core/adapter"
	"github.com/artpar/simpleschema/core/storage"
)

// App represents the running application.
type App struct {
	Config     *config.Config
	Logger     zerolog.Logger
	Catalog    *app.Catalog
	Metrics    *metrics.Collector
	Registry   *prometheus.Registry
	Migrator   *storage.SQLiteMigrator
	HTTPServer *http.Server
}

// Options provides optional settings for application initialization.
type Options struct {
	// Version is reported by GET /version.
	Version string

	// LogOutput receives log lines (default: os.Stdout).
	LogOutput io.Writer

	// SkipMigrate disables table creation for sqlite databases.
	SkipMigrate bool
}

// NewLogger builds the root logger from the logging configuration.
func NewLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// New creates and initializes the application and compiles the schema once.
func New(cfg *config.Config, opts Options) (*App, error) {
	logger := NewLogger(cfg.Logging, opts.LogOutput)

	logger.Info().
		Str("schema", cfg.Schema.Path).
		Str("database", cfg.Database.Type).
		Msg("initializing simpleschema")

	a := &App{
		Config: cfg,
		Logger: logger,
	}

	if cfg.Metrics.Enabled {
		a.Registry = prometheus.NewRegistry()
		a.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.Metrics = metrics.NewWithRegistry(a.Registry)
		logger.Info().Str("path", cfg.Metrics.Path).Msg("prometheus metrics enabled")
	}

	if cfg.Database.Type == adapter.TypeSQLite && !opts.SkipMigrate {
		m, err := storage.OpenSQLite(cfg.Database.URI)
		if err != nil {
			return nil, fmt.Errorf("init database: %w", err)
		}
		a.Migrator = m
	}

	catalogCfg := app.CatalogConfig{
		Database: cfg.Database,
		Extra:    cfg.Extra,
		Logger:   logger.With().Str("component", "catalog").Logger(),
		Metrics:  a.Metrics,
	}
	if a.Migrator != nil {
		catalogCfg.Migrator = a.Migrator
	}

	catalog, err := app.NewCatalog(catalogCfg)
	if err != nil {
		a.closeMigrator()
		return nil, fmt.Errorf("init catalog: %w", err)
	}
	a.Catalog = catalog

	if a.Migrator != nil {
		catalog.OnChange(func(*app.Snapshot) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if _, err := catalog.Migrate(ctx); err != nil {
				logger.Error().Err(err).Msg("migration failed")
			}
		})
	}

	if _, err := catalog.Load(cfg.Schema.Path); err != nil {
		a.closeMigrator()
		return nil, fmt.Errorf("load schema: %w", err)
	}

	a.initHTTPServer(opts.Version)

	return a, nil
}

func (a *App) initHTTPServer(version string) {
	handler := apihttp.NewHandler(a.Catalog, a.Logger, version)

	routerCfg := apihttp.RouterConfig{
		Timeout: a.Config.Server.WriteTimeout,
	}
	if a.Metrics != nil {
		routerCfg.Metrics = a.Metrics
		routerCfg.MetricsPath = a.Config.Metrics.Path
		routerCfg.Gatherer = a.Registry
	}

	a.HTTPServer = &http.Server{
		Addr:         a.Config.Server.Addr(),
		Handler:      apihttp.NewRouter(handler, a.Logger, routerCfg),
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}
}

// Run starts the HTTP server and blocks until ctx is done, a termination
// signal arrives or the server fails.
func (a *App) Run(ctx context.Context) error {
	if a.Config.Schema.Watch {
		if err := a.Catalog.Watch(); err != nil {
			a.Logger.Warn().Err(err).Msg("schema file watch disabled")
		}
	}
	a.Catalog.WatchSignals()

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		a.Shutdown()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case <-ctx.Done():
		a.Logger.Info().Msg("context done, shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.Catalog != nil {
		a.Catalog.Stop()
	}

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	a.closeMigrator()

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

func (a *App) closeMigrator() {
	if a.Migrator == nil {
		return
	}
	if err := a.Migrator.Close(); err != nil {
		a.Logger.Error().Err(err).Msg("database close error")
	}
	a.Migrator = nil
}
