package main

import (
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/prudhvinik1/schoolsync/internal/config"
	"github.com/spf13/cobra"
)

var cfgEnvFile string

var rootCmd = &cobra.Command{
	Use:   "syncctl",
	Short: "Operator tool for the school server's cloud sync",
	Long: `syncctl runs and inspects cloud sync cycles against the local database
and issues operator tokens for the sync admin endpoints.

Configuration is read from the environment (and an optional .env file),
using the same keys as the server.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgEnvFile, "env-file", ".env", "Path to a .env file (ignored if missing)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(tokenCmd)
}

func loadConfig() (*config.Config, error) {
	_ = godotenv.Load(cfgEnvFile)

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	slog.SetDefault(cfg.NewLogger())
	return cfg, nil
}
