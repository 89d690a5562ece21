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

	"github.com/joho/godotenv"
	"github.com/prudhvinik1/schoolsync/internal/config"
	"github.com/prudhvinik1/schoolsync/internal/database"
	"github.com/prudhvinik1/schoolsync/internal/handlers"
	"github.com/prudhvinik1/schoolsync/internal/repositories"
	"github.com/prudhvinik1/schoolsync/internal/services"
	"github.com/prudhvinik1/schoolsync/internal/syncclient"
	"github.com/prudhvinik1/schoolsync/internal/workers"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	slog.SetDefault(cfg.NewLogger())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database connections
	postgresPool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to create postgres pool: %w", err)
	}
	defer postgresPool.Close()

	var history repositories.HistoryRepository
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to create redis client: %w", err)
		}
		defer func() { _ = redisClient.Close() }()
		history = repositories.NewRedisHistoryRepository(redisClient, repositories.DefaultHistoryLimit)
	}

	records := repositories.NewPostgresRecordRepository(postgresPool)
	remote := syncclient.New(cfg.CloudAPIURL, cfg.SyncToken)
	syncService := services.NewSyncService(
		services.NewProber(cfg.CloudPingURL, cfg.EnableSync),
		services.NewPushService(records, remote),
		history,
	)

	var scheduler *workers.SyncScheduler
	if cfg.EnableSync {
		scheduler = workers.NewSyncScheduler(syncService, cfg.SyncInterval)
	}

	var enqueuer handlers.Enqueuer
	if scheduler != nil {
		enqueuer = scheduler
	}
	syncHandler := handlers.NewSyncHandler(
		services.NewMergeService(records),
		syncService,
		enqueuer,
		services.NewTokenService(cfg.JWTSecret, cfg.JWTExpiry),
		handlers.Options{
			ServiceName:     cfg.AppName,
			SyncToken:       cfg.SyncToken,
			SyncEnabled:     cfg.EnableSync,
			IntervalMinutes: cfg.SyncIntervalMinutes(),
		},
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           handlers.NewRouter(syncHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting server", "port", cfg.ServerPort, "sync_enabled", cfg.EnableSync)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if scheduler != nil {
		g.Go(func() error {
			return scheduler.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped gracefully")
	return nil
}
