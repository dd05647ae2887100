package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/keygate/backend/internal/cache"
	"github.com/keygate/backend/internal/client"
	"github.com/keygate/backend/internal/config"
	"github.com/keygate/backend/internal/db"
	"github.com/keygate/backend/internal/handler"
	"github.com/keygate/backend/internal/logging"
	"github.com/keygate/backend/internal/service"
)

// @title Keygate API
// @version 1.0
// @description Account registration, login sessions and two-factor sign-in.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := logging.NewJSON(os.Stdout)
	if err := run(logger); err != nil {
		logger.Error(context.Background(), "server exited", "err", err)
		os.Exit(1)
	}
}

func run(logger logging.Logger) error {
	cfg := config.Load()
	gin.SetMode(cfg.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := buildDeps(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	auth, err := service.NewAuthenticator(deps, cfg.Auth, cfg.TwoFactor)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler.NewRouter(auth, cfg.Server, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "listening", "addr", cfg.Server.Addr, "version", cfg.Server.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildDeps opens the configured stores and mailer. The returned cleanup
// closes whatever was opened.
func buildDeps(ctx context.Context, cfg config.Config, logger logging.Logger) (service.Deps, func(), error) {
	deps := service.Deps{Logger: logger}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var pg *db.Postgres
	switch backend := strings.ToLower(cfg.Store.Backend); backend {
	case "postgres":
		pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			return deps, cleanup, fmt.Errorf("connect postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		pg = db.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			cleanup()
			return deps, func() {}, fmt.Errorf("migrate: %w", err)
		}
		deps.Accounts, deps.Sessions = pg, pg
	case "memory":
		logger.Warn(ctx, "using in-memory account store; data is lost on restart")
		mem := db.NewMemory()
		deps.Accounts, deps.Sessions = mem, mem
	default:
		return deps, cleanup, fmt.Errorf("%w: unknown STORE_BACKEND %q", service.ErrMisconfigured, backend)
	}

	switch backend := strings.ToLower(cfg.TwoFactor.Backend); backend {
	case "memory":
		deps.Challenges = cache.NewMemoryChallengeStore()
	case "redis":
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			cleanup()
			return deps, func() {}, fmt.Errorf("connect redis: %w", err)
		}
		closers = append(closers, func() { _ = rdb.Close() })
		deps.Challenges = cache.NewRedisChallengeStore(rdb)
	case "postgres":
		// two_factor_codes references accounts, so it needs the postgres account store.
		if pg == nil {
			cleanup()
			return deps, func() {}, fmt.Errorf("%w: TWO_FACTOR_STORE=postgres requires STORE_BACKEND=postgres", service.ErrMisconfigured)
		}
		deps.Challenges = pg
	default:
		cleanup()
		return deps, func() {}, fmt.Errorf("%w: unknown TWO_FACTOR_STORE %q", service.ErrMisconfigured, backend)
	}

	mailer, err := client.NewCodeMailer(cfg.Mail, logger)
	if err != nil {
		cleanup()
		return deps, func() {}, err
	}
	deps.Mailer = mailer

	return deps, cleanup, nil
}
