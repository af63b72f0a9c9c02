// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

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

	"github.com/Shivanand-hulikatti/activity-signup/internal/config"
	"github.com/Shivanand-hulikatti/activity-signup/internal/database"
	"github.com/Shivanand-hulikatti/activity-signup/internal/handler"
	"github.com/Shivanand-hulikatti/activity-signup/internal/identity"
	"github.com/Shivanand-hulikatti/activity-signup/internal/logger"
	"github.com/Shivanand-hulikatti/activity-signup/internal/repository"
	"github.com/Shivanand-hulikatti/activity-signup/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg)
	if cfg.Auth.Secret == "change-me" {
		log.Warn("AUTH_SECRET is the default value; set it before exposing the server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 1. Open storage ───────────────────────────────────────────────────
	kv, closeStorage, err := openStorage(ctx, cfg, logger.Module(log, "database"))
	if err != nil {
		log.Error("storage", "driver", cfg.Storage.Driver, "error", err)
		os.Exit(1)
	}
	defer closeStorage()
	log.Info("storage ready", "driver", cfg.Storage.Driver)

	// ── 2. Wire up layers ────────────────────────────────────────────────
	repo := repository.NewSnapshotRepository(kv, cfg.Storage.Key)
	activitySvc := service.NewActivityService(ctx, repo, logger.Module(log, "service"))
	if actor, ok := activitySvc.Session(); ok {
		log.Info("remembered session", "role", actor.Role, "identifier", actor.Identifier)
	}
	tokens := identity.NewTokens(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	resolver := identity.NewResolver(cfg.Identity.EmailDomain)
	activityHandler := handler.NewActivityHandler(activitySvc, resolver, tokens, logger.Module(log, "handler"))

	// ── 3. Build the router ───────────────────────────────────────────────
	router := handler.NewRouter(activityHandler, tokens, logger.Module(log, "http"))

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run in background goroutine so we can listen for shutdown signal.
	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", "http://"+cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		log.Error("server error", "error", err)
		return
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		return
	}
	log.Info("server stopped")
}

// openStorage connects the configured driver and returns its key-value
// adapter together with a cleanup func.
func openStorage(ctx context.Context, cfg config.Config, log *slog.Logger) (repository.KV, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		pool, err := database.NewPool(ctx, cfg.Postgres, log)
		if err != nil {
			return nil, nil, err
		}
		kv := repository.NewPostgresKV(pool)
		if err := kv.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return kv, pool.Close, nil

	case config.DriverRedis:
		client, err := database.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewRedisKV(client), func() { _ = client.Close() }, nil

	case config.DriverMemory:
		log.Warn("memory storage does not survive restarts")
		return repository.NewMemoryKV(), func() {}, nil

	default:
		db, err := database.OpenSQLite(cfg.Storage.SQLitePath, cfg.Mode)
		if err != nil {
			return nil, nil, err
		}
		closeDB := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		kv, err := repository.NewSQLiteKV(db)
		if err != nil {
			closeDB()
			return nil, nil, err
		}
		return kv, closeDB, nil
	}
}
