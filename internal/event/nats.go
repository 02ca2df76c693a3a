// internal/event/nats.go
// Package event provides the change feed of the gallery engine.
// Every mutation the engine applies to the content store is published so
// other consumers (an admin dashboard, an audit log) can follow along.
// NATS JetStream backs the feed; without it changes are dropped.
package event

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/P3dro7wz/Luxy/internal/model"
)

// Type identifies a change.
type Type string

const (
	ContentLoaded      Type = "content.loaded"
	ContentLiked       Type = "content.liked"
	ContentRated       Type = "content.rated"
	ContentCreated     Type = "content.created"
	ContentUpdated     Type = "content.updated"
	ContentDeleted     Type = "content.deleted"
	ContentCompensated Type = "content.compensated"
)

// Change is one applied mutation.
type Change struct {
	Type      Type               `json:"type"`
	ContentID string             `json:"contentId,omitempty"`
	Item      *model.ContentItem `json:"item,omitempty"`  // State after the change
	Score     int                `json:"score,omitempty"` // Rating changes only
	Count     int                `json:"count,omitempty"` // Loads only: number of items
}

// Publisher interface defines the change feed operations.
type Publisher interface {
	Publish(ctx context.Context, ch Change) error
	Close() error
}

// Stream and subject names of the feed.
const (
	StreamName    = "LUXY_CONTENT"
	SubjectPrefix = "luxy."
)

// Envelope represents the standard event envelope structure.
// All events published to NATS are wrapped in this envelope for consistency.
type Envelope struct {
	ID            string    `json:"id"`            // Unique event id, also the JetStream message id
	Type          Type      `json:"type"`          // Event type identifier
	Version       string    `json:"version"`       // Event schema version
	OccurredAt    time.Time `json:"occurredAt"`    // When the event occurred
	CorrelationID string    `json:"correlationId"` // Correlation ID for tracing
	Payload       Change    `json:"payload"`       // Event-specific data
}

// correlationKey carries a correlation id through a context.
type correlationKey struct{}

// WithCorrelationID returns a context carrying id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the correlation id carried by ctx, or "".
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// NewEnvelope wraps ch for publishing.
func NewEnvelope(ctx context.Context, ch Change) Envelope {
	corr := CorrelationID(ctx)
	if corr == "" {
		corr = uuid.New().String()
	}
	return Envelope{
		ID:            uuid.New().String(),
		Type:          ch.Type,
		Version:       "1.0.0",
		OccurredAt:    time.Now().UTC(),
		CorrelationID: corr,
		Payload:       ch,
	}
}

// Subject returns the subject a change type is published on.
func Subject(t Type) string {
	return SubjectPrefix + string(t)
}

// noop is a no-op implementation of Publisher for when NATS is not configured.
type noop struct{}

// NewNoop returns a Publisher that drops every change.
func NewNoop() Publisher { return noop{} }

func (noop) Publish(ctx context.Context, ch Change) error { return nil }
func (noop) Close() error                                 { return nil }

// natsPub is the NATS JetStream implementation of Publisher.
type natsPub struct {
	nc *nats.Conn            // NATS connection
	js nats.JetStreamContext // JetStream context for stream operations
}

// NewPublisher connects to url and returns a JetStream publisher. An empty
// url, or any connection or stream failure, yields the no-op publisher.
func NewPublisher(url string, logger *slog.Logger) Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if url == "" {
		return NewNoop()
	}
	p, err := NewNATS(url)
	if err != nil {
		logger.Warn("NATS unavailable, using noop publisher", "error", err)
		return NewNoop()
	}
	return p
}

// NewNATS connects to url and makes sure the content stream exists.
func NewNATS(url string) (Publisher, error) {
	nc, err := nats.Connect(url, nats.Name("luxyd"), nats.Timeout(2*time.Second))
	if err != nil {
		return nil, fmt.Errorf("NATS connect failed: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("NATS JetStream context creation failed: %w", err)
	}
	if err := initStream(js); err != nil {
		nc.Close()
		return nil, err
	}
	return &natsPub{nc: nc, js: js}, nil
}

// initStream creates the LUXY_CONTENT stream if it does not exist yet.
func initStream(js nats.JetStreamContext) error {
	if _, err := js.StreamInfo(StreamName); err == nil {
		return nil
	}
	_, err := js.AddStream(&nats.StreamConfig{
		Name:       StreamName,
		Subjects:   []string{SubjectPrefix + "content.>"},
		Retention:  nats.LimitsPolicy,
		MaxAge:     24 * time.Hour,
		Discard:    nats.DiscardOld,
		Storage:    nats.FileStorage,
		Duplicates: 2 * time.Minute, // JetStream dedup window for Nats-Msg-Id
	})
	if err != nil {
		return fmt.Errorf("failed to create %s stream: %w", StreamName, err)
	}
	return nil
}

// Publish implements Publisher. The envelope id doubles as the JetStream
// message id so a re-sent change is stored once.
func (p *natsPub) Publish(ctx context.Context, ch Change) error {
	env := NewEnvelope(ctx, ch)
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(Subject(ch.Type), b, nats.MsgId(env.ID), nats.Context(ctx))
	return err
}

// Close drains and closes the NATS connection.
func (p *natsPub) Close() error {
	if p.nc != nil {
		return p.nc.Drain()
	}
	return nil
}

// Recorder keeps published changes in memory. It backs tests and the
// recent-changes view of the presentation API.
type Recorder struct {
	mu      sync.Mutex
	limit   int
	changes []Change
	next    Publisher
}

// NewRecorder returns a Recorder keeping the last limit changes (all when
// limit <= 0) and forwarding each change to next when next is not nil.
func NewRecorder(limit int, next Publisher) *Recorder {
	return &Recorder{limit: limit, next: next}
}

// Publish implements Publisher.
func (r *Recorder) Publish(ctx context.Context, ch Change) error {
	r.mu.Lock()
	r.changes = append(r.changes, ch)
	if r.limit > 0 && len(r.changes) > r.limit {
		r.changes = append([]Change(nil), r.changes[len(r.changes)-r.limit:]...)
	}
	r.mu.Unlock()
	if r.next != nil {
		return r.next.Publish(ctx, ch)
	}
	return nil
}

// Changes returns the recorded changes, oldest first.
func (r *Recorder) Changes() []Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Change(nil), r.changes...)
}

// Close implements Publisher.
func (r *Recorder) Close() error {
	if r.next != nil {
		return r.next.Close()
	}
	return nil
}
