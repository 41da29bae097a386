package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/cleargate/pamapi/internal/db/models"
)

func init() {
	Migrations.MustRegister(up_20260101000001, down_20260101000001)
}

// up_20260101000001 creates the audit_events table
func up_20260101000001(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating audit_events table...")

	_, err := db.NewCreateTable().
		Model((*models.AuditEvent)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create audit_events table: %w", err)
	}

	_, err = db.NewCreateIndex().
		Model((*models.AuditEvent)(nil)).
		Index("idx_audit_events_anomaly").
		Column("anomaly", "created_at").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create anomaly index: %w", err)
	}

	fmt.Println(" OK")
	return nil
}

// down_20260101000001 drops the audit_events table
func down_20260101000001(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping audit_events table...")

	_, err := db.NewDropTable().
		Model((*models.AuditEvent)(nil)).
		IfExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to drop audit_events table: %w", err)
	}

	fmt.Println(" OK")
	return nil
}
