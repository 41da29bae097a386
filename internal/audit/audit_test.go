package audit

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleargate/pamapi/internal/db/models"
)

// syncBuffer guards a bytes.Buffer against the background writer.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// memoryEventStore collects events in order.
type memoryEventStore struct {
	mu     sync.Mutex
	events []models.AuditEvent
}

func (s *memoryEventStore) Append(_ context.Context, event *models.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *event)
	return nil
}

func (s *memoryEventStore) ListRecent(_ context.Context, limit int) ([]models.AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.events)
	if limit < n {
		n = limit
	}
	out := make([]models.AuditEvent, n)
	for i := 0; i < n; i++ {
		out[i] = s.events[len(s.events)-1-i]
	}
	return out, nil
}

func (s *memoryEventStore) ListAnomalies(_ context.Context, limit int) ([]models.AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AuditEvent
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		if s.events[i].Anomaly {
			out = append(out, s.events[i])
		}
	}
	return out, nil
}

func TestRecord_AppendsFormattedLine(t *testing.T) {
	sink := &syncBuffer{}
	l := New(Options{Sink: sink})

	l.Record("alice", "/login", "login_attempt", "success")
	l.Close()

	line := strings.TrimSpace(sink.String())
	assert.Contains(t, line, " - INFO - ")
	assert.Contains(t, line, "User: alice, Endpoint: /login, Action: login_attempt, Status: success")
}

func TestRecord_UnknownActor(t *testing.T) {
	sink := &syncBuffer{}
	l := New(Options{Sink: sink})

	l.Record("", "/login", "login_attempt", "failed_user_not_found")
	l.Close()

	assert.Contains(t, sink.String(), "User: unknown,")
}

func TestRecord_AnomalyOnDenied(t *testing.T) {
	var alerts []string
	l := New(Options{
		Sink:  &syncBuffer{},
		Alert: func(msg string) { alerts = append(alerts, msg) },
	})

	l.Record("bob", "/action/delete_all", "action_performed", "denied")
	l.Close()

	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0], "Status: denied")
}

func TestRecord_AnomalyIsCaseInsensitive(t *testing.T) {
	var alerts []string
	l := New(Options{
		Sink:  &syncBuffer{},
		Alert: func(msg string) { alerts = append(alerts, msg) },
	})

	l.Record("bob", "/vault/db_password", "vault_access", "DENIED")
	l.Close()

	assert.Len(t, alerts, 1)
}

func TestRecord_NoAnomalyOnSuccess(t *testing.T) {
	var alerts []string
	l := New(Options{
		Sink:  &syncBuffer{},
		Alert: func(msg string) { alerts = append(alerts, msg) },
	})

	l.Record("alice", "/login", "login_attempt", "success")
	l.Record("alice", "/login", "login_attempt", "mfa_required")
	l.Close()

	assert.Empty(t, alerts)
}

func TestRecord_DurableCopyAndOrdering(t *testing.T) {
	store := &memoryEventStore{}
	l := New(Options{Sink: &syncBuffer{}, Events: store})

	l.Record("alice", "/login", "login_attempt", "success")
	l.Record("alice", "/action/read_all", "action_performed", "success")
	l.Record("alice", "/vault/db_password", "vault_access", "success")
	l.Close()

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.events, 3)
	// Appends for a single actor arrive in Record order.
	assert.Equal(t, "/login", store.events[0].Endpoint)
	assert.Equal(t, "/action/read_all", store.events[1].Endpoint)
	assert.Equal(t, "/vault/db_password", store.events[2].Endpoint)
	for _, e := range store.events {
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.Anomaly)
	}
}

func TestRecord_AfterCloseStillWrites(t *testing.T) {
	sink := &syncBuffer{}
	l := New(Options{Sink: sink})
	l.Close()

	l.Record("alice", "/login", "login_attempt", "success")
	assert.Contains(t, sink.String(), "Status: success")
}

func TestFormatLine(t *testing.T) {
	event := &models.AuditEvent{
		Actor:     "bob",
		Endpoint:  "/action/delete_all",
		Action:    "action_performed",
		Status:    "denied",
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 60_000_000, time.UTC),
	}
	assert.Equal(t,
		"2026-01-02 03:04:05.060 - INFO - User: bob, Endpoint: /action/delete_all, Action: action_performed, Status: denied",
		FormatLine(event))
}
