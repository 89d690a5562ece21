package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prudhvinik1/schoolsync/internal/database"
	"github.com/prudhvinik1/schoolsync/internal/repositories"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent sync cycles",
	Long: `List the most recent sync cycle summaries recorded by the server.
Requires REDIS_URL.

Example:
  syncctl status
  syncctl status --limit 20 --json`,
	RunE: runStatus,
}

var (
	statusLimit int
	statusJSON  bool
)

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "Number of cycles to show")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print raw JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is not set; no sync history is recorded")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := database.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() { _ = client.Close() }()

	summaries, err := repositories.NewRedisHistoryRepository(client, repositories.DefaultHistoryLimit).Recent(ctx, statusLimit)
	if err != nil {
		return err
	}

	if statusJSON {
		return printJSON(summaries)
	}

	if len(summaries) == 0 {
		fmt.Println("No sync cycles recorded.")
		return nil
	}

	fmt.Printf("%-25s  %-8s  %7s  %8s  %s\n", "STARTED", "STATUS", "RECORDS", "DURATION", "DETAIL")
	for _, s := range summaries {
		detail := s.Reason
		if s.Error != "" {
			detail = s.Error
		}
		fmt.Printf("%-25s  %-8s  %7d  %8s  %s\n",
			s.StartedAt.Format(time.RFC3339),
			s.Status,
			s.Total,
			(time.Duration(s.DurationMs) * time.Millisecond).String(),
			detail)
	}
	return nil
}
