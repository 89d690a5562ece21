package main

import (
	"fmt"
	"time"

	"github.com/prudhvinik1/schoolsync/internal/services"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an operator bearer token",
	Long: `Issue a signed bearer token for the sync status and trigger endpoints.

Example:
  syncctl token --subject ops
  syncctl token --subject headmaster --role headmaster --ttl 1h`,
	RunE: runToken,
}

var (
	tokenSubject string
	tokenRole    string
	tokenTTL     time.Duration
)

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "Token subject (required)")
	tokenCmd.Flags().StringVar(&tokenRole, "role", services.RoleAdmin, "Role claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Token lifetime (default JWT_EXPIRY)")
	_ = tokenCmd.MarkFlagRequired("subject")
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ttl := cfg.JWTExpiry
	if tokenTTL > 0 {
		ttl = tokenTTL
	}

	token, expiresAt, err := services.NewTokenService(cfg.JWTSecret, ttl).IssueToken(tokenSubject, tokenRole)
	if err != nil {
		return err
	}

	fmt.Println(token)
	fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.UTC().Format(time.RFC3339))
	return nil
}
