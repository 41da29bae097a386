package bunx

import "github.com/google/uuid"

// NewUUIDv7 generates a time-ordered UUIDv7 string for database primary
// keys. Audit event IDs use v7 so the primary-key index stays append-ordered
// on both PostgreSQL and SQLite.
func NewUUIDv7() string {
	return uuid.Must(uuid.NewV7()).String()
}
