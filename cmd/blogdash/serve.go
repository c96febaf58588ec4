package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"blogdash/internal/api"
	"blogdash/internal/cache"
	"blogdash/internal/database"
	"blogdash/internal/handlers"
	"blogdash/internal/middleware"
	"blogdash/internal/render"
	"blogdash/internal/router"
	"blogdash/internal/session"
	"blogdash/internal/storage"
	"blogdash/internal/store"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, closer, err := setup()
	if err != nil {
		return err
	}
	defer closer.Close()

	// Valkey holds sessions (with the API tokens) and the query cache.
	valkeyClient, err := cache.ConnectValkey(cmd.Context(), cache.ValkeyOptions{
		Host:     cfg.ValkeyHost,
		Port:     cfg.ValkeyPort,
		Password: cfg.ValkeyPassword,
		DB:       cfg.ValkeyDB,
	})
	if err != nil {
		return fmt.Errorf("connect valkey: %w", err)
	}
	defer valkeyClient.Close()

	// In non-development environments, mark cookies as Secure (HTTPS-only).
	secure := !cfg.IsDev()
	sessionStore := session.NewStore(valkeyClient, secure)

	client := api.New(api.Options{
		BaseURL:     cfg.APIBaseURL,
		Timeout:     cfg.APITimeout,
		RefreshPath: cfg.APIRefreshPath,
		Store:       sessionStore,
	})
	queryCache := cache.NewQueryCache(valkeyClient, cfg.QueryCacheTTL)
	remote := store.NewRemote(client, queryCache)

	// The activity log is best-effort: without PostgreSQL the dashboard
	// simply shows no recent activity.
	var activity handlers.ActivityLog
	db, err := database.Connect(cmd.Context(), cfg.DSN())
	if err != nil {
		slog.Warn("activity log disabled", "error", err)
	} else {
		defer db.Close()
		if err := database.Migrate(cmd.Context(), db); err != nil {
			return err
		}
		activity = store.NewActivityStore(db)
	}

	var thumbnails handlers.Thumbnails
	storageClient, err := storage.New(storage.Options{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3BucketPublic,
		PublicURL: cfg.S3PublicURL,
	})
	switch {
	case err != nil:
		return fmt.Errorf("init storage: %w", err)
	case storageClient != nil:
		thumbnails = storageClient
		slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3BucketPublic)
	default:
		slog.Warn("s3 storage not configured, thumbnail uploads disabled")
	}

	renderer, err := render.New(cfg.IsDev())
	if err != nil {
		return fmt.Errorf("init renderer: %w", err)
	}

	limiter := middleware.NewRateLimiter(cfg.LoginRateLimit, time.Minute)
	defer limiter.Stop()

	adminHandlers := handlers.NewAdmin(renderer, sessionStore, remote, activity, thumbnails)
	authHandlers := handlers.NewAuth(renderer, sessionStore, remote.Auth)
	r := router.New(sessionStore, adminHandlers, authHandlers, router.Options{
		Secure:       secure,
		LoginLimiter: limiter,
	})

	// WriteTimeout covers a thumbnail upload plus the API round trip.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	// Give active requests up to 30 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
