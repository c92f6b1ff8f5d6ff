// Package server wires configuration, storage, services and transports into
// a runnable application and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/taskkeeper/internal/logging"
	"github.com/dmitrijs2005/taskkeeper/internal/server/avatars"
	"github.com/dmitrijs2005/taskkeeper/internal/server/config"
	httpx "github.com/dmitrijs2005/taskkeeper/internal/server/http"
	"github.com/dmitrijs2005/taskkeeper/internal/server/notify"
	"github.com/dmitrijs2005/taskkeeper/internal/server/ratelimit"
	"github.com/dmitrijs2005/taskkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/taskkeeper/internal/server/services"
	_ "github.com/jackc/pgx/v5/stdlib"

	gs "github.com/dmitrijs2005/taskkeeper/internal/server/grpc"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	router *httpx.Router
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout, c.LogLevel)
	warnInsecureDefaults(ctx, logger, c)

	trusted, err := httpx.ParseTrustedProxies(c.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	store, err := newAvatarStore(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("avatar store init error: %w", err)
	}

	var limiter ratelimit.Limiter
	if c.RedisAddr != "" {
		limiter, err = ratelimit.NewRedis(ctx, c.RedisAddr, c.RedisPassword, c.RedisDB, logger)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("rate limiter init error: %w", err)
		}
	}

	us := services.NewUserService(db, rm, store, notify.NewLogNotifier(logger), logger, c)
	ts := services.NewTaskService(db, rm, c)

	router := httpx.NewRouter(logger, us, ts, limiter, httpx.Options{
		SignupRateLimit: c.SignupRateLimit,
		LoginRateLimit:  c.LoginRateLimit,
		MaxAvatarBytes:  c.MaxAvatarBytes,
		DBHealth:        db.PingContext,
		TrustedProxies:  trusted,
	})

	return &App{config: c, logger: logger, db: db, router: router}, nil
}

func warnInsecureDefaults(ctx context.Context, logger logging.Logger, c *config.Config) {
	if c.UsesDefaultSecret() {
		logger.Warn(ctx, "token signing key is the built-in default, set TASKKEEPER_SECRET_KEY")
	}
}

func newAvatarStore(ctx context.Context, c *config.Config) (avatars.Store, error) {
	switch c.AvatarBackend {
	case config.AvatarBackendS3:
		return avatars.NewS3Store(ctx, c)
	case config.AvatarBackendDB, "":
		return avatars.NewDBStore(), nil
	default:
		return nil, fmt.Errorf("unknown avatar backend %q", c.AvatarBackend)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{Addr: app.config.HTTPAddr, Handler: app.router}

	go func() {
		<-ctx.Done()
		app.logger.Info(context.Background(), "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(context.Background(), "http shutdown error", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewHealthServer(app.config.GRPCHealthAddr, app.logger, app.db.PingContext, 0)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until a termination signal arrives or a server fails, then
// releases the rate limiter and the database pool.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.router.Close(); err != nil {
		app.logger.Error(context.Background(), "rate limiter close error", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "db close error", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")
}
