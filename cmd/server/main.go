package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"designpro/internal/accounts"
	"designpro/internal/catalog"
	"designpro/internal/config"
	"designpro/internal/database"
	"designpro/internal/handlers"
	"designpro/internal/lifecycle"
	"designpro/internal/logging"
	"designpro/internal/metrics"
	"designpro/internal/middleware"
	"designpro/internal/seed"
	"designpro/internal/server"
	"designpro/internal/storage"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, "designpro")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	db, err := database.Open(cfg.DBDSN, logger)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := database.EnsureAdmin(db, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword, logger); err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}

	m := metrics.New()
	images := storage.NewLocalStore(cfg.MediaRoot, cfg.MediaURL)
	plans := lifecycle.NewService(db, images, logging.Component(logger, "lifecycle"), lifecycle.WithMetrics(m))
	cats := catalog.NewService(db, logging.Component(logger, "catalog"), m).WithImages(images)
	users := accounts.NewService(db, logging.Component(logger, "accounts"))

	seedFile := seed.Default
	if cfg.SeedFile != "" {
		if seedFile, err = seed.Load(cfg.SeedFile); err != nil {
			return err
		}
	}
	if _, err := seed.Apply(context.Background(), seedFile, cats, users, logger); err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	loginLimiter, err := middleware.NewLimiter(cfg.LoginRateLimit, cfg.RedisURL)
	if err != nil {
		return err
	}

	router, err := server.NewRouter(cfg, server.Deps{
		Handlers: handlers.New(handlers.Deps{
			Plans:     plans,
			Catalog:   cats,
			Accounts:  users,
			DB:        db,
			Log:       logging.Component(logger, "http"),
			SiteTitle: cfg.SiteTitle,
		}),
		Users:        users,
		Metrics:      m,
		Log:          logging.Component(logger, "http"),
		LoginLimiter: loginLimiter,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return nil
}
