package event

import (
	"context"
	"testing"
)

func TestRecorderKeepsLastChanges(t *testing.T) {
	inner := NewRecorder(0, nil)
	r := NewRecorder(2, inner)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		if err := r.Publish(ctx, Change{Type: ContentLiked, ContentID: id}); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}
	got := r.Changes()
	if len(got) != 2 || got[0].ContentID != "2" || got[1].ContentID != "3" {
		t.Errorf("Changes() = %+v, want the last two", got)
	}
	if n := len(inner.Changes()); n != 3 {
		t.Errorf("forwarded %d changes, want 3", n)
	}
}

func TestEnvelope(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "corr-1")
	env := NewEnvelope(ctx, Change{Type: ContentRated, ContentID: "9", Score: 4})
	if env.CorrelationID != "corr-1" || env.ID == "" || env.Type != ContentRated || env.Payload.Score != 4 {
		t.Errorf("NewEnvelope() = %+v", env)
	}
	if other := NewEnvelope(context.Background(), Change{Type: ContentRated}); other.CorrelationID == "" || other.ID == env.ID {
		t.Errorf("NewEnvelope() without correlation = %+v", other)
	}
	if s := Subject(ContentDeleted); s != "luxy.content.deleted" {
		t.Errorf("Subject() = %q", s)
	}
}

func TestNewPublisherFallsBackToNoop(t *testing.T) {
	for _, url := range []string{"", "nats://127.0.0.1:1"} {
		p := NewPublisher(url, nil)
		if _, ok := p.(noop); !ok {
			t.Errorf("NewPublisher(%q) = %T, want noop", url, p)
		}
		if err := p.Publish(context.Background(), Change{Type: ContentLoaded}); err != nil {
			t.Errorf("noop Publish() error = %v", err)
		}
		_ = p.Close()
	}
}
