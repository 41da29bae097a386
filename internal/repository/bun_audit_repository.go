package repository

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/cleargate/pamapi/internal/db/models"
)

// BunAuditEventRepository implements AuditEventRepository using Bun ORM
type BunAuditEventRepository struct {
	db *bun.DB
}

// NewBunAuditEventRepository creates a new Bun-based audit event repository
func NewBunAuditEventRepository(db *bun.DB) *BunAuditEventRepository {
	return &BunAuditEventRepository{db: db}
}

// Append inserts a new audit event
func (r *BunAuditEventRepository) Append(ctx context.Context, event *models.AuditEvent) error {
	_, err := r.db.NewInsert().
		Model(event).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// ListRecent returns up to limit events, newest first
func (r *BunAuditEventRepository) ListRecent(ctx context.Context, limit int) ([]models.AuditEvent, error) {
	var events []models.AuditEvent
	err := r.db.NewSelect().
		Model(&events).
		Order("created_at DESC", "id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return events, nil
}

// ListAnomalies returns up to limit anomaly-flagged events, newest first
func (r *BunAuditEventRepository) ListAnomalies(ctx context.Context, limit int) ([]models.AuditEvent, error) {
	var events []models.AuditEvent
	err := r.db.NewSelect().
		Model(&events).
		Where("anomaly = ?", true).
		Order("created_at DESC", "id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list anomaly events: %w", err)
	}
	return events, nil
}
