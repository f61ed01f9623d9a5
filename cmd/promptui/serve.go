package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"promptui/internal/cache"
	"promptui/internal/database"
	"promptui/internal/handlers"
	"promptui/internal/middleware"
	"promptui/internal/models"
	"promptui/internal/router"
	"promptui/internal/session"
	"promptui/internal/store"
	"promptui/internal/workflow"
)

const (
	shutdownTimeout = 30 * time.Second
	startupAttempts = 5
	startupDelay    = time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the promptui HTTP API.

Pending migrations are applied on start. In development the default
categories and the admin account are seeded as well. The server drains
active requests on SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	slog.Info("configuration loaded", "env", cfg.Env, "addr", cfg.Addr())

	db, err := dial(ctx, "postgres", func(ctx context.Context) (*sql.DB, error) {
		return database.Connect(ctx, cfg.DSN())
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}
	if cfg.IsDev() {
		if err := database.Seed(ctx, db, seedAdmin()); err != nil {
			return err
		}
	}

	valkeyClient, err := dial(ctx, "valkey", func(ctx context.Context) (*redis.Client, error) {
		return cache.ConnectValkey(ctx, cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword, cfg.ValkeyDB)
	})
	if err != nil {
		return fmt.Errorf("connect valkey: %w", err)
	}
	defer valkeyClient.Close()

	listCache := cache.NewListCache(valkeyClient, cfg.ListCacheTTL)
	sessionStore := session.NewStore(valkeyClient, cfg.SecureCookies).WithTTL(cfg.SessionTTL)

	st := store.New(db)
	userStore := store.NewUserStore(db)
	svc := workflow.New(workflow.NewPostgresStore(st), listCache, workflow.Options{
		SlugMaxProbes: cfg.SlugMaxProbes,
	})

	var anonymous *models.Actor
	if cfg.AnonymousPublish {
		u, err := userStore.EnsureAnonymous(ctx)
		if err != nil {
			return err
		}
		anonymous = models.ActorFromUser(u)
		anonymous.Anonymous = true
		slog.Info("anonymous publishing enabled", "user_id", u.ID)
	}

	loginLimiter, stopLimiter := newLoginLimiter(valkeyClient)
	defer stopLimiter()

	r := router.New(router.Deps{
		Sessions:     sessionStore,
		Users:        userStore,
		LoginLimiter: loginLimiter,
		CORSOrigins:  cfg.CORSOrigins,
		Prompts:      handlers.NewPrompts(svc, anonymous),
		Categories:   handlers.NewCategories(svc),
		Admin:        handlers.NewAdmin(svc),
		Auth:         handlers.NewAuth(sessionStore, userStore),
		Health:       handlers.NewHealth(st, listCache),
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// newLoginLimiter builds the limiter named by LOGIN_LIMITER. stop releases
// the in-process limiter's cleanup goroutine.
func newLoginLimiter(client *redis.Client) (limiter middleware.Limiter, stop func()) {
	if cfg.LoginLimiter == "memory" {
		wl := middleware.NewWindowLimiter(cfg.LoginMaxAttempts, cfg.LoginWindow)
		slog.Info("login limiter is per process", "limit", cfg.LoginMaxAttempts, "window", cfg.LoginWindow)
		return wl, wl.Stop
	}
	return cache.NewRateLimiter(client, "login", cfg.LoginMaxAttempts, cfg.LoginWindow), func() {}
}

// dial retries connect with backoff while a backend is still starting.
func dial[T any](ctx context.Context, backend string, connect func(context.Context) (T, error)) (T, error) {
	return retry.DoWithData(
		func() (T, error) { return connect(ctx) },
		retry.Context(ctx),
		retry.Attempts(startupAttempts),
		retry.Delay(startupDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("backend not ready, retrying", "backend", backend, "attempt", n+1, "error", err)
		}),
	)
}
