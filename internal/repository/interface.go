// Package repository defines persistence interfaces and their Bun
// implementations. Only the audit trail is persisted; principal, policy and
// lease state is in-memory by design.
package repository

import (
	"context"

	"github.com/cleargate/pamapi/internal/db/models"
)

// AuditEventRepository stores the durable copy of the audit trail.
type AuditEventRepository interface {
	// Append inserts a new audit event. Events are append-only; there are no
	// update or delete operations.
	Append(ctx context.Context, event *models.AuditEvent) error

	// ListRecent returns up to limit events, newest first.
	ListRecent(ctx context.Context, limit int) ([]models.AuditEvent, error)

	// ListAnomalies returns up to limit anomaly-flagged events, newest first.
	ListAnomalies(ctx context.Context, limit int) ([]models.AuditEvent, error)
}
