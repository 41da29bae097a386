// Package audit records every authentication and authorization decision.
// Each event becomes one line in an append-only text sink plus a row in the
// durable event store, and denial outcomes raise an operator-visible anomaly
// signal. Audit completeness is a correctness guarantee of the service, not
// a logging nicety: every terminal outcome of every public operation must
// pass through Record.
package audit

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cleargate/pamapi/internal/db/bunx"
	"github.com/cleargate/pamapi/internal/db/models"
	"github.com/cleargate/pamapi/internal/repository"
)

// UnknownActor is recorded when a request carried no authenticated identity.
const UnknownActor = "unknown"

// anomalyMarker triggers the anomaly signal when present in the rendered
// event message. A plain substring check, intentionally cheap and
// side-channel-free; model-based detection lives outside this service.
const anomalyMarker = "denied"

// recordTimeout bounds each durable insert so a stalled database cannot
// back the writer up behind one event forever.
const recordTimeout = 5 * time.Second

// Recorder is the audit dependency of the request pipeline. Record never
// fails the caller's flow.
type Recorder interface {
	Record(actor, endpoint, action, status string)
}

// AlertFunc receives the rendered message of each anomalous event.
type AlertFunc func(message string)

// Logger is the production Recorder. The text append and the event-store
// insert run on a single background goroutine so appends stay ordered while
// callers never wait on sink durability; the anomaly signal is raised
// synchronously inside Record.
type Logger struct {
	sink   io.Writer
	events repository.AuditEventRepository
	alert  AlertFunc

	ch chan *models.AuditEvent
	wg sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// Options configures a Logger. Sink is required; Events and Alert are
// optional.
type Options struct {
	// Sink receives the append-only text records.
	Sink io.Writer

	// Events, when set, receives the durable copy of every event.
	Events repository.AuditEventRepository

	// Alert overrides the default operator alert (a stderr log line).
	Alert AlertFunc
}

// New starts a Logger. Callers must Close it to flush pending appends.
func New(opts Options) *Logger {
	l := &Logger{
		sink:   opts.Sink,
		events: opts.Events,
		alert:  opts.Alert,
		ch:     make(chan *models.AuditEvent, 256),
	}
	if l.alert == nil {
		l.alert = func(message string) {
			log.Printf("[ALERT] Suspicious activity detected: %s", message)
		}
	}

	l.wg.Add(1)
	go l.writeLoop()
	return l
}

// Record appends one audit event. It composes the event message, raises the
// anomaly signal synchronously when the message contains the anomaly marker,
// and hands the event to the background writer. It never returns an error
// and never fails the caller's flow.
func (l *Logger) Record(actor, endpoint, action, status string) {
	if actor == "" {
		actor = UnknownActor
	}

	event := &models.AuditEvent{
		ID:        bunx.NewUUIDv7(),
		Actor:     actor,
		Endpoint:  endpoint,
		Action:    action,
		Status:    status,
		CreatedAt: time.Now(),
	}
	event.Anomaly = strings.Contains(strings.ToLower(Message(event)), anomalyMarker)

	if event.Anomaly {
		l.alert(Message(event))
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		// Shutdown race: keep the trail complete by writing inline.
		l.write(event)
		return
	}
	l.ch <- event
	l.mu.Unlock()
}

// Close flushes pending appends and stops the background writer.
func (l *Logger) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	close(l.ch)
	l.mu.Unlock()

	l.wg.Wait()
}

func (l *Logger) writeLoop() {
	defer l.wg.Done()
	for event := range l.ch {
		l.write(event)
	}
}

func (l *Logger) write(event *models.AuditEvent) {
	if l.sink != nil {
		line := FormatLine(event)
		if _, err := io.WriteString(l.sink, line+"\n"); err != nil {
			log.Printf("audit: append to sink failed: %v", err)
		}
	}

	if l.events != nil {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		if err := l.events.Append(ctx, event); err != nil {
			log.Printf("audit: durable append failed: %v", err)
		}
		cancel()
	}
}

// Message renders the event body consumed by external log tooling.
func Message(event *models.AuditEvent) string {
	return fmt.Sprintf("User: %s, Endpoint: %s, Action: %s, Status: %s",
		event.Actor, event.Endpoint, event.Action, event.Status)
}

// FormatLine renders the full sink line: timestamp - level - message.
func FormatLine(event *models.AuditEvent) string {
	ts := event.CreatedAt.Format("2006-01-02 15:04:05.000")
	return fmt.Sprintf("%s - INFO - %s", ts, Message(event))
}

// OpenSink opens (creating directories as needed) the append-only audit log
// file.
func OpenSink(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create audit log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return f, nil
}
