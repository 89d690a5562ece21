package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prudhvinik1/schoolsync/internal/config"
	"github.com/prudhvinik1/schoolsync/internal/database"
	"github.com/prudhvinik1/schoolsync/internal/models"
	"github.com/prudhvinik1/schoolsync/internal/repositories"
	"github.com/prudhvinik1/schoolsync/internal/services"
	"github.com/prudhvinik1/schoolsync/internal/syncclient"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one sync cycle now",
	Long: `Run a single full sync cycle and print the resulting summary as JSON.

By default the cycle is requested from the running server through its admin
trigger endpoint, so it shares the server's one-cycle-at-a-time guard.
--standalone runs the cycle in this process against the database directly;
use it only while the server is stopped.

Example:
  syncctl run
  syncctl run --server http://10.0.0.5:8080
  syncctl run --standalone --force`,
	RunE: runSync,
}

var (
	runForce      bool
	runStandalone bool
	runServer     string
)

func init() {
	runCmd.Flags().StringVar(&runServer, "server", "", "Server base URL (default http://localhost:SERVER_PORT)")
	runCmd.Flags().BoolVar(&runStandalone, "standalone", false, "Run the cycle in-process; the server must be stopped")
	runCmd.Flags().BoolVar(&runForce, "force", false, "With --standalone, run even when ENABLE_SYNC is false")
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var summary *models.SyncSummary
	if runStandalone {
		summary, err = runStandaloneCycle(ctx, cfg)
	} else {
		summary, err = runServerCycle(ctx, cfg)
	}
	if err != nil {
		return err
	}

	if err := printJSON(summary); err != nil {
		return err
	}
	if summary.Status == models.SyncStatusError {
		return fmt.Errorf("sync failed: %s", summary.Error)
	}
	return nil
}

func runServerCycle(ctx context.Context, cfg *config.Config) (*models.SyncSummary, error) {
	server := runServer
	if server == "" {
		server = "http://localhost:" + cfg.ServerPort
	}

	token, _, err := services.NewTokenService(cfg.JWTSecret, time.Minute).IssueToken("syncctl", services.RoleAdmin)
	if err != nil {
		return nil, err
	}

	// A cycle can outlast the push timeout; ctx bounds the wait instead.
	client := syncclient.New(server, "").WithHTTPClient(&http.Client{})
	summary, err := client.TriggerCycle(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("trigger via %s: %w", server, err)
	}
	return summary, nil
}

func runStandaloneCycle(ctx context.Context, cfg *config.Config) (*models.SyncSummary, error) {
	if !cfg.EnableSync && !runForce {
		return nil, fmt.Errorf("cloud sync is disabled (set ENABLE_SYNC=true or pass --force)")
	}
	if cfg.CloudAPIURL == "" {
		return nil, fmt.Errorf("CLOUD_API_URL is not set")
	}

	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	var history repositories.HistoryRepository
	if cfg.RedisURL != "" {
		client, err := database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		defer func() { _ = client.Close() }()
		history = repositories.NewRedisHistoryRepository(client, repositories.DefaultHistoryLimit)
	}

	pingURL := cfg.CloudPingURL
	if pingURL == "" {
		pingURL = cfg.CloudAPIURL + "/api/v1/sync/health"
	}

	svc := services.NewSyncService(
		services.NewProber(pingURL, true),
		services.NewPushService(
			repositories.NewPostgresRecordRepository(pool),
			syncclient.New(cfg.CloudAPIURL, cfg.SyncToken),
		),
		history,
	)

	return svc.RunFullSync(ctx), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
