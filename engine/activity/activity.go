// Package activity emits usage events for the engine's read operations.
// Recording is best-effort: a down broker never fails a request.
package activity

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/storygraph/storygraph/pkg/natsutil"
)

// Event is one engine operation observed from the outside: which operation
// ran, against what, and how it went.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"activity_type"`
	Target    string         `json:"target,omitempty"`
	Outcome   string         `json:"outcome"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Recorder publishes events somewhere. Implementations must not block the
// caller beyond a local publish.
type Recorder interface {
	Record(ctx context.Context, ev Event)
}

// EventOutcome values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// New builds an Event with id and timestamp filled in.
func New(eventType, target string, err error) Event {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Target:    target,
		Outcome:   outcome,
		Timestamp: time.Now().UTC(),
	}
}

// NATSRecorder publishes events as JSON on a NATS subject.
type NATSRecorder struct {
	nc      *nats.Conn
	subject string
	log     *slog.Logger
}

// NewNATSRecorder creates a recorder publishing on subject.
func NewNATSRecorder(nc *nats.Conn, subject string, log *slog.Logger) *NATSRecorder {
	if log == nil {
		log = slog.Default()
	}
	return &NATSRecorder{nc: nc, subject: subject, log: log}
}

// Record publishes the event. Failures are logged and swallowed.
func (r *NATSRecorder) Record(ctx context.Context, ev Event) {
	if err := natsutil.Publish(ctx, r.nc, r.subject, ev); err != nil {
		r.log.Warn("activity publish failed", "type", ev.Type, "error", err)
	}
}

// Noop discards all events, for deployments without a broker.
type Noop struct{}

func (Noop) Record(context.Context, Event) {}
