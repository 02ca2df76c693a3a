package engine

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/P3dro7wz/Luxy/internal/model"
)

// OpKind is the kind of an optimistic operation.
type OpKind string

const (
	OpLike   OpKind = "like"
	OpRate   OpKind = "rate"
	OpCreate OpKind = "create"
)

// OpState is the lifecycle state of an Op.
type OpState string

const (
	StatePending     OpState = "pending"     // Remote call in flight
	StateConfirmed   OpState = "confirmed"   // Gateway accepted, result applied
	StateFailed      OpState = "failed"      // Gateway refused or unreachable, local change kept
	StateCompensated OpState = "compensated" // Local change reverted
	StateDiscarded   OpState = "discarded"   // Result dropped: canceled or store reloaded
)

// Op is a local mutation awaiting confirmation by the gateway.
type Op struct {
	ID        string    `json:"id"`
	Kind      OpKind    `json:"kind"`
	ContentID string    `json:"contentId"`       // Placeholder id for creates
	Score     int       `json:"score,omitempty"` // Rate only
	StartedAt time.Time `json:"startedAt"`

	gen    uint64
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	upload *upload // Create only

	mu     sync.Mutex
	state  OpState
	err    error
	result model.ContentItem
}

type upload struct {
	meta model.UploadMeta
	file model.UploadFile
}

func newOp(parent context.Context, kind OpKind, contentID string, gen uint64) *Op {
	ctx, cancel := context.WithCancel(parent)
	return &Op{
		ID:        ulid.Make().String(),
		Kind:      kind,
		ContentID: contentID,
		StartedAt: time.Now().UTC(),
		gen:       gen,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		state:     StatePending,
	}
}

// completedOp returns an Op that is already confirmed.
func completedOp(kind OpKind, contentID string) *Op {
	op := newOp(context.Background(), kind, contentID, 0)
	op.finish(StateConfirmed, nil, model.ContentItem{})
	return op
}

// Done is closed once the op has settled.
func (o *Op) Done() <-chan struct{} { return o.done }

// Err returns the error the op settled with. It is nil while pending.
func (o *Op) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

// State returns the current state.
func (o *Op) State() OpState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Result returns the confirmed item of a create op.
func (o *Op) Result() model.ContentItem {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.result
}

// Wait blocks until the op settles or ctx is done.
func (o *Op) Wait(ctx context.Context) error {
	select {
	case <-o.done:
		return o.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// finish settles a pending op. It reports false when the op had already
// settled.
func (o *Op) finish(state OpState, err error, result model.ContentItem) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StatePending {
		return false
	}
	o.state, o.err, o.result = state, err, result
	o.cancel()
	close(o.done)
	return true
}

// transition moves a settled op between terminal states.
func (o *Op) transition(from, to OpState) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != from {
		return false
	}
	o.state = to
	return true
}
