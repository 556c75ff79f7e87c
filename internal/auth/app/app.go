package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/sessionauth/internal/auth/http"
	"github.com/aussiebroadwan/sessionauth/internal/auth/service"
	"github.com/aussiebroadwan/sessionauth/internal/auth/store"
	redisstore "github.com/aussiebroadwan/sessionauth/internal/auth/store/drivers/redis"
	"github.com/aussiebroadwan/sessionauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/sessionauth/pkg/cryptox"
	"github.com/aussiebroadwan/sessionauth/pkg/slogx"
	goredis "github.com/redis/go-redis/v9"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"

	redisDialTimeout = 5 * time.Second
)

// Application encapsulates the service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db     *sqlite.Store
	tokens store.RefreshTokens
	redis  *redisstore.Store // nil unless the redis backend is selected
	checks map[string]store.Pinger

	sessionService      *service.SessionService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "sessionauth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		checks: map[string]store.Pinger{},
	}

	if err := app.initDatabase(); err != nil {
		app.closeStores()
		return nil, err
	}
	if err := app.initTokenStore(); err != nil {
		app.closeStores()
		return nil, err
	}
	if err := app.initServices(); err != nil {
		app.closeStores()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("sessionauth starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"token_backend", app.cfg.TokenBackend,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			app.closeStores()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down sessionauth...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.closeStores(); err != nil {
		return err
	}

	app.logger.Info("sessionauth stopped")
	return nil
}

// Handler exposes the router, mainly for tests.
func (app *Application) Handler() http.Handler { return app.router }

// Close releases the stores of an application that was never Run.
func (app *Application) Close() error { return app.closeStores() }

func (app *Application) closeStores() error {
	var errs []error
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis", "error", err)
			errs = append(errs, err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// initDatabase opens the sqlite database and applies migrations.
func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore("file:" + app.cfg.DatabaseFile + "?_pragma=journal_mode(WAL)")
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}
	app.logger.Info("database migrations applied successfully")

	app.checks["database"] = db
	return nil
}

// initTokenStore selects where refresh token records live.
func (app *Application) initTokenStore() error {
	if app.cfg.TokenBackend != BackendRedis {
		app.tokens = app.db.RefreshTokens()
		return nil
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:        app.cfg.RedisAddr,
		Password:    app.cfg.RedisPassword,
		DB:          app.cfg.RedisDB,
		DialTimeout: redisDialTimeout,
	})
	rs := redisstore.NewStore(client, redisstore.WithRetention(app.cfg.RefreshRetention))

	ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()
	if err := rs.Ping(ctx); err != nil {
		_ = rs.Close()
		return fmt.Errorf("failed to connect to redis at %s: %w", app.cfg.RedisAddr, err)
	}

	app.redis = rs
	app.tokens = rs
	app.checks["tokens"] = rs
	app.logger.Info("using redis refresh token store", "addr", app.cfg.RedisAddr)
	return nil
}

// initServices builds the session core and housekeeping.
func (app *Application) initServices() error {
	pepper, err := cryptox.LoadOrCreatePepper(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}

	svc, err := service.NewSessionService(app.cfg.sessionConfig(pepper), app.db.Users(), app.tokens)
	if err != nil {
		return err
	}
	app.sessionService = svc

	app.housekeepingService = service.NewHousekeepingService(
		app.tokens,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.RefreshRetention,
	)
	return nil
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.sessionService,
		app.cfg.RateLimits,
		BuildVersion,
		app.logger,
		app.checks,
	)
	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
