package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cleargate/pamapi/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "pamapi",
	Short: "Privileged access management API server",
	Long: `pamapi authenticates principals, issues short-lived session credentials,
enforces role-based authorization and leases vault secrets, recording every
decision in a tamper-evident audit trail.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().String("db-url", "", "Audit database URL (env: DATABASE_URL)")
	rootCmd.PersistentFlags().String("server-addr", "", "Server bind address (env: SERVER_ADDR)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging (env: DEBUG)")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
