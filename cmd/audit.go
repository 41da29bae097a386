package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleargate/pamapi/internal/audit"
	"github.com/cleargate/pamapi/internal/db/bunx"
	"github.com/cleargate/pamapi/internal/db/models"
	"github.com/cleargate/pamapi/internal/repository"
)

var (
	auditTailLimit     int
	auditTailAnomalies bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit trail commands",
}

var auditTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print recent audit events",
	Long:  `Prints the most recent audit events from the audit database, oldest first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := bunx.NewDB(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer bunx.Close(db)

		repo := repository.NewBunAuditEventRepository(db)
		ctx := context.Background()

		var events []models.AuditEvent
		if auditTailAnomalies {
			events, err = repo.ListAnomalies(ctx, auditTailLimit)
		} else {
			events, err = repo.ListRecent(ctx, auditTailLimit)
		}
		if err != nil {
			return fmt.Errorf("failed to list audit events: %w", err)
		}

		// Repository returns newest first; print in chronological order.
		for i := len(events) - 1; i >= 0; i-- {
			fmt.Println(audit.FormatLine(&events[i]))
		}
		return nil
	},
}

func init() {
	auditTailCmd.Flags().IntVar(&auditTailLimit, "limit", 50, "Maximum number of events to print")
	auditTailCmd.Flags().BoolVar(&auditTailAnomalies, "anomalies", false, "Only print events flagged as anomalies")

	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditTailCmd)
}
