package models

import (
	"time"

	"github.com/uptrace/bun"
)

// AuditEvent is one append-only record of an authentication or authorization
// decision. Rows are never updated or deleted within the process lifetime.
type AuditEvent struct {
	bun.BaseModel `bun:"table:audit_events,alias:ae"`

	ID string `bun:"id,pk,type:uuid"`

	// Actor is the identity the decision was made about, or "unknown" when
	// the request carried no authenticated identity.
	Actor string `bun:"actor,notnull"`

	// Endpoint is the logical endpoint the decision belongs to (e.g. "/login").
	Endpoint string `bun:"endpoint,notnull"`

	// Action is the event category (e.g. "login_attempt", "vault_access").
	Action string `bun:"action,notnull"`

	// Status is the outcome label (e.g. "success", "denied").
	Status string `bun:"status,notnull"`

	// Anomaly marks events that tripped the anomaly detector.
	Anomaly bool `bun:"anomaly,notnull,default:false"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
