// internal/engine/engine.go
// Package engine applies user and admin actions to the content store
// optimistically and reconciles them with the content gateway.
//
// Every mutation is visible in the store before the gateway answers. The
// returned Op tracks the remote call; its result is applied only while the
// store generation it started from is still current, so a reload always wins
// over a late answer.
package engine

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	errordefs "github.com/P3dro7wz/Luxy/internal/errors"
	"github.com/P3dro7wz/Luxy/internal/event"
	"github.com/P3dro7wz/Luxy/internal/gateway"
	"github.com/P3dro7wz/Luxy/internal/media"
	"github.com/P3dro7wz/Luxy/internal/metrics"
	"github.com/P3dro7wz/Luxy/internal/model"
	"github.com/P3dro7wz/Luxy/internal/projection"
	"github.com/P3dro7wz/Luxy/internal/session"
	"github.com/P3dro7wz/Luxy/internal/store"
	"github.com/P3dro7wz/Luxy/internal/validation"
)

// PlaceholderPrefix marks items inserted by an upload that the gateway has
// not confirmed yet.
const PlaceholderPrefix = "local-"

// ErrDiscarded is the error of an op whose result was dropped.
var ErrDiscarded = stderrors.New("operation result discarded")

// Deps are the collaborators of an Engine. Store, Gateway and Session are
// required.
type Deps struct {
	Store     *store.Aggregate
	Gateway   gateway.Gateway
	Session   *session.Session
	Publisher event.Publisher  // Defaults to the no-op publisher
	Stager    media.Stager     // Defaults to media.Inline
	Logger    *slog.Logger     // Defaults to slog.Default()
	Metrics   *metrics.Metrics // Defaults to metrics.NewMetrics()
}

// Engine coordinates the store, the session and the gateway.
type Engine struct {
	store   *store.Aggregate
	gw      gateway.Gateway
	sess    *session.Session
	pub     event.Publisher
	stager  media.Stager
	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	// loadMu orders store reloads against the application of remote
	// results: a result checks the generation and applies under RLock.
	loadMu sync.RWMutex

	mu      sync.Mutex
	pending map[string][]*Op  // In-flight ops by content id
	likes   map[string]*Op    // Latest like op by content id
	labels  map[string]string // Category labels reported by the gateway
	wg      sync.WaitGroup
}

// New creates an Engine.
func New(d Deps) *Engine {
	if d.Publisher == nil {
		d.Publisher = event.NewNoop()
	}
	if d.Stager == nil {
		d.Stager = media.Inline{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.NewMetrics()
	}
	return &Engine{
		store:   d.Store,
		gw:      d.Gateway,
		sess:    d.Session,
		pub:     d.Publisher,
		stager:  d.Stager,
		log:     d.Logger,
		metrics: d.Metrics,
		now:     time.Now,
		pending: make(map[string][]*Op),
		likes:   make(map[string]*Op),
		labels:  make(map[string]string),
	}
}

// Store returns the content store the engine mutates.
func (e *Engine) Store() *store.Aggregate { return e.store }

// Load fetches the public catalog and replaces the store contents. Results of
// ops started before the reload are discarded when they arrive.
func (e *Engine) Load(ctx context.Context, filter model.ContentFilter) error {
	items, err := e.gw.ListContent(ctx, filter)
	if err != nil {
		return err
	}
	if cats, err := e.gw.ListCategories(ctx); err != nil {
		e.log.Warn("category listing failed, keeping known labels", "error", err)
	} else {
		e.mu.Lock()
		for _, c := range cats {
			if c.ID != "" && c.Label != "" {
				e.labels[c.ID] = c.Label
			}
		}
		e.mu.Unlock()
	}
	e.replace(ctx, items)
	return nil
}

// LoadAdmin replaces the store contents with the admin listing, which
// includes unpublished items.
func (e *Engine) LoadAdmin(ctx context.Context) error {
	items, err := e.gw.AdminContent(ctx)
	if err != nil {
		return err
	}
	e.replace(ctx, items)
	return nil
}

func (e *Engine) replace(ctx context.Context, items []model.ContentItem) {
	e.loadMu.Lock()
	e.store.Load(items)
	e.loadMu.Unlock()

	n := e.store.Len()
	e.metrics.StoreItems.Set(float64(n))
	e.metrics.StoreMutationTotal.WithLabelValues("load", "success").Inc()
	e.publish(ctx, event.Change{Type: event.ContentLoaded, Count: n})
	e.log.Info("content loaded", "items", n, "generation", e.store.Generation())
}

// Gallery projects the current store contents.
func (e *Engine) Gallery(q projection.Query) []model.ContentItem {
	return projection.Project(e.store.Snapshot(), q)
}

// Categories counts the current store contents per category. Labels the
// gateway reported are used for category ids without a built-in label.
func (e *Engine) Categories() []model.Category {
	cats := projection.Categories(e.store.Snapshot())
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, c := range cats {
		if _, builtin := model.CategoryLabels[c.ID]; builtin {
			continue
		}
		if label, ok := e.labels[c.ID]; ok {
			cats[i].Label = label
		}
	}
	return cats
}

// Like increments the like count of id and sends the like to the gateway.
// A second like of the same item in one session returns the first op and
// changes nothing.
func (e *Engine) Like(ctx context.Context, id string) (*Op, error) {
	if err := e.confirmed(id); err != nil {
		return nil, err
	}

	e.mu.Lock()
	if !e.sess.MarkLiked(id) {
		op := e.likes[id]
		e.mu.Unlock()
		if op == nil {
			op = completedOp(OpLike, id)
		}
		return op, nil
	}
	e.loadMu.RLock()
	gen := e.store.Generation()
	item, err := e.store.ApplyLike(id)
	e.loadMu.RUnlock()
	if err != nil {
		e.mu.Unlock()
		e.sess.UnmarkLiked(id)
		e.mutated("like", err)
		return nil, err
	}
	op := newOp(ctx, OpLike, id, gen)
	e.likes[id] = op
	e.trackLocked(op)
	e.mu.Unlock()

	e.mutated("like", nil)
	e.publish(ctx, event.Change{Type: event.ContentLiked, ContentID: id, Item: &item})
	e.spawn(op, e.runLike)
	return op, nil
}

func (e *Engine) runLike(op *Op) {
	err := e.gw.Like(op.ctx, op.ContentID)
	e.settle(op, func() outcome {
		switch {
		case err == nil:
			item, _ := e.store.Get(op.ContentID)
			return outcome{state: StateConfirmed, item: item}
		case errordefs.Is(err, errordefs.LUXY_CONFLICT):
			// The gateway already counted this like; the session stays
			// marked so it is not sent again.
			item, rerr := e.store.RevertLike(op.ContentID)
			e.mutated("like_revert", rerr)
			return outcome{
				state:  StateCompensated,
				err:    err,
				item:   item,
				change: &event.Change{Type: event.ContentCompensated, ContentID: op.ContentID, Item: &item},
			}
		default:
			return outcome{state: StateFailed, err: err}
		}
	})
}

// Rate records score for id and sends it to the gateway. An item can be
// rated once per session.
func (e *Engine) Rate(ctx context.Context, id string, score int) (*Op, error) {
	if err := store.ValidateScore(score); err != nil {
		return nil, err
	}
	if err := e.confirmed(id); err != nil {
		return nil, err
	}
	if !e.sess.MarkRated(id) {
		return nil, errordefs.Newf(errordefs.LUXY_CONFLICT, "content %q already rated in this session", id)
	}

	e.mu.Lock()
	e.loadMu.RLock()
	gen := e.store.Generation()
	item, err := e.store.ApplyRating(id, score)
	e.loadMu.RUnlock()
	if err != nil {
		e.mu.Unlock()
		e.sess.UnmarkRated(id)
		e.mutated("rate", err)
		return nil, err
	}
	op := newOp(ctx, OpRate, id, gen)
	op.Score = score
	e.trackLocked(op)
	e.mu.Unlock()

	e.mutated("rate", nil)
	e.publish(ctx, event.Change{Type: event.ContentRated, ContentID: id, Item: &item, Score: score})
	e.spawn(op, e.runRate)
	return op, nil
}

func (e *Engine) runRate(op *Op) {
	res, err := e.gw.Rate(op.ctx, op.ContentID, op.Score)
	e.settle(op, func() outcome {
		switch {
		case err == nil:
			item, _ := e.store.Get(op.ContentID)
			if res.Count > 0 {
				// The gateway's aggregate replaces the local estimate
				updated, serr := e.store.SetRating(op.ContentID, res.AverageRating, res.Count)
				e.mutated("rate_confirm", serr)
				if serr == nil {
					item = updated
				}
			}
			return outcome{state: StateConfirmed, item: item}
		case errordefs.Is(err, errordefs.LUXY_CONFLICT):
			item, rerr := e.store.RevertRating(op.ContentID, op.Score)
			e.mutated("rate_revert", rerr)
			return outcome{
				state:  StateCompensated,
				err:    err,
				item:   item,
				change: &event.Change{Type: event.ContentCompensated, ContentID: op.ContentID, Item: &item, Score: op.Score},
			}
		default:
			return outcome{state: StateFailed, err: err}
		}
	})
}

// Retry sends a failed like or rating again. The local change is still in
// place, so only the remote call is repeated.
func (e *Engine) Retry(ctx context.Context, op *Op) (*Op, error) {
	if op == nil || (op.Kind != OpLike && op.Kind != OpRate) || op.State() != StateFailed {
		return nil, errordefs.New(errordefs.LUXY_VALIDATION, "only failed like and rate operations can be retried")
	}
	if e.store.Generation() != op.gen {
		return nil, errordefs.New(errordefs.LUXY_CONFLICT, "content was reloaded since the operation started")
	}
	if !op.transition(StateFailed, StateDiscarded) {
		return nil, errordefs.New(errordefs.LUXY_CONFLICT, "operation settled concurrently")
	}

	next := newOp(ctx, op.Kind, op.ContentID, op.gen)
	next.Score = op.Score
	e.mu.Lock()
	if op.Kind == OpLike {
		e.likes[op.ContentID] = next
	}
	e.trackLocked(next)
	e.mu.Unlock()

	if op.Kind == OpLike {
		e.spawn(next, e.runLike)
	} else {
		e.spawn(next, e.runRate)
	}
	return next, nil
}

// Compensate reverts the local change of a failed like or rating and
// forgets it in the session, so the user may try again later.
func (e *Engine) Compensate(ctx context.Context, op *Op) error {
	if op == nil || (op.Kind != OpLike && op.Kind != OpRate) {
		return errordefs.New(errordefs.LUXY_VALIDATION, "only like and rate operations can be compensated")
	}
	if !op.transition(StateFailed, StateCompensated) {
		return errordefs.Newf(errordefs.LUXY_VALIDATION, "operation is %s, not failed", op.State())
	}

	e.loadMu.RLock()
	var (
		item model.ContentItem
		err  error
	)
	current := e.store.Generation() == op.gen
	if current {
		if op.Kind == OpLike {
			item, err = e.store.RevertLike(op.ContentID)
		} else {
			item, err = e.store.RevertRating(op.ContentID, op.Score)
		}
	}
	e.loadMu.RUnlock()

	if op.Kind == OpLike {
		e.sess.UnmarkLiked(op.ContentID)
		e.mu.Lock()
		if e.likes[op.ContentID] == op {
			delete(e.likes, op.ContentID)
		}
		e.mu.Unlock()
	} else {
		e.sess.UnmarkRated(op.ContentID)
	}
	if !current {
		return nil
	}
	e.mutated(string(op.Kind)+"_revert", err)
	if err != nil {
		// The item was deleted meanwhile; there is nothing left to revert.
		return nil
	}
	e.publish(ctx, event.Change{Type: event.ContentCompensated, ContentID: op.ContentID, Item: &item, Score: op.Score})
	return nil
}

// CreateContent inserts one placeholder per file at the head of the store
// and uploads the files. Placeholders keep the file order; with more than
// one file the titles are numbered. Each op settles on its own: a confirmed
// upload replaces its placeholder in place, a failed one removes it.
func (e *Engine) CreateContent(ctx context.Context, meta model.UploadMeta, files []model.UploadFile) ([]*Op, error) {
	if verr := validation.ValidateStruct(meta); verr != nil {
		return nil, verr
	}
	if strings.TrimSpace(meta.Title) == "" {
		return nil, errordefs.New(errordefs.LUXY_VALIDATION, "title is required")
	}
	if len(files) == 0 {
		return nil, errordefs.New(errordefs.LUXY_VALIDATION, "at least one file is required")
	}
	for _, f := range files {
		if !strings.HasPrefix(f.MimeType, "image/") && !strings.HasPrefix(f.MimeType, "video/") {
			return nil, errordefs.NewWithDetails(errordefs.LUXY_VALIDATION, "unsupported file type",
				map[string]string{"file": f.Name, "mimeType": f.MimeType})
		}
	}

	items := make([]model.ContentItem, len(files))
	uploads := make([]*upload, len(files))
	now := e.now().UTC()
	for i, f := range files {
		id := PlaceholderPrefix + ulid.Make().String()
		m := meta
		if len(files) > 1 {
			m.Title = fmt.Sprintf("%s %d", meta.Title, i+1)
		}
		preview, err := e.stager.Stage(ctx, id, f)
		if err != nil {
			e.log.Warn("preview staging failed, using inline preview", "placeholder", id, "error", err)
			preview, _ = media.Inline{}.Stage(ctx, id, f)
		}
		kind := model.KindForMimeType(f.MimeType)
		items[i] = model.ContentItem{
			ID:           id,
			Kind:         kind,
			Title:        m.Title,
			Description:  m.Description,
			Category:     m.Category,
			MediaURL:     preview,
			ThumbnailURL: preview,
			UploadedAt:   now,
			FileSize:     int64(len(f.Data)),
			Published:    true,
			Pending:      true,
		}
		if kind == model.KindVideo {
			items[i].Duration = model.VideoDurationPlaceholder
		}
		uploads[i] = &upload{meta: m, file: f}
	}

	e.mu.Lock()
	e.loadMu.RLock()
	gen := e.store.Generation()
	for i := len(items) - 1; i >= 0; i-- {
		e.store.InsertHead(items[i])
	}
	e.loadMu.RUnlock()
	ops := make([]*Op, len(items))
	for i := range items {
		ops[i] = newOp(ctx, OpCreate, items[i].ID, gen)
		ops[i].upload = uploads[i]
		e.trackLocked(ops[i])
	}
	e.mu.Unlock()

	e.metrics.StoreItems.Set(float64(e.store.Len()))
	for i, op := range ops {
		e.mutated("create", nil)
		e.publish(ctx, event.Change{Type: event.ContentCreated, ContentID: op.ContentID, Item: &items[i]})
		e.spawn(op, e.runCreate)
	}
	return ops, nil
}

func (e *Engine) runCreate(op *Op) {
	created, err := e.gw.CreateContent(op.ctx, op.upload.meta, op.upload.file)
	if derr := e.stager.Discard(context.WithoutCancel(op.ctx), op.ContentID); derr != nil {
		e.log.Warn("preview discard failed", "placeholder", op.ContentID, "error", derr)
	}
	e.settle(op, func() outcome {
		if err != nil {
			e.store.Remove(op.ContentID)
			e.mutated("create_revert", nil)
			return outcome{state: StateFailed, err: err}
		}
		if rerr := e.store.Reconcile(op.ContentID, created); rerr != nil {
			// The placeholder was deleted locally while the upload ran
			e.mutated("create_confirm", rerr)
			return outcome{state: StateConfirmed, item: created}
		}
		e.mutated("create_confirm", nil)
		item, _ := e.store.Get(created.ID)
		return outcome{
			state:  StateConfirmed,
			item:   item,
			change: &event.Change{Type: event.ContentCreated, ContentID: item.ID, Item: &item},
		}
	})
	e.metrics.StoreItems.Set(float64(e.store.Len()))
}

// UpdateContent changes the editable fields of id. The gateway is asked
// first; its answer is applied only if the store was not reloaded
// meanwhile and ctx is still alive.
func (e *Engine) UpdateContent(ctx context.Context, id string, patch model.ContentPatch) (model.ContentItem, error) {
	cur, ok := e.store.Get(id)
	if !ok {
		return model.ContentItem{}, notFound(id)
	}
	if verr := validation.ValidateStruct(patch); verr != nil {
		return model.ContentItem{}, verr
	}
	if patch.Empty() {
		return cur, nil
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return model.ContentItem{}, errordefs.New(errordefs.LUXY_VALIDATION, "title must not be empty")
	}

	// The gateway replaces all editable fields at once
	full := model.ContentPatch{Title: &cur.Title, Description: &cur.Description, Category: &cur.Category}
	if patch.Title != nil {
		full.Title = patch.Title
	}
	if patch.Description != nil {
		full.Description = patch.Description
	}
	if patch.Category != nil {
		full.Category = patch.Category
	}

	gen := e.store.Generation()
	remote, err := e.gw.UpdateContent(ctx, id, full)
	if err != nil {
		e.mutated("update", err)
		return model.ContentItem{}, err
	}

	e.loadMu.RLock()
	if ctx.Err() != nil || e.store.Generation() != gen {
		e.loadMu.RUnlock()
		e.log.Debug("update result discarded", "id", id)
		return remote, nil
	}
	updated, perr := e.store.Patch(id, model.ContentPatch{
		Title:       &remote.Title,
		Description: &remote.Description,
		Category:    &remote.Category,
	})
	e.loadMu.RUnlock()
	e.mutated("update", perr)
	if perr != nil {
		return remote, nil
	}
	e.publish(ctx, event.Change{Type: event.ContentUpdated, ContentID: id, Item: &updated})
	return updated, nil
}

// DeleteContent removes id at the gateway and then locally. Pending ops on
// the item are canceled. Saved lists and collections keep the id; views
// skip it.
func (e *Engine) DeleteContent(ctx context.Context, id string) error {
	if _, ok := e.store.Get(id); !ok {
		return notFound(id)
	}
	if err := e.gw.DeleteContent(ctx, id); err != nil && !errordefs.Is(err, errordefs.LUXY_NOT_FOUND) {
		e.mutated("delete", err)
		return err
	}
	e.Cancel(id)

	e.loadMu.RLock()
	removed := e.store.Remove(id)
	e.loadMu.RUnlock()
	e.mutated("delete", nil)
	e.metrics.StoreItems.Set(float64(e.store.Len()))
	if removed {
		e.publish(ctx, event.Change{Type: event.ContentDeleted, ContentID: id})
	}
	return nil
}

// Stats returns the admin statistics reported by the gateway.
func (e *Engine) Stats(ctx context.Context) (model.AdminStats, error) {
	return e.gw.AdminStats(ctx)
}

// Cancel discards every pending op on contentID and returns how many were
// discarded. Canceled uploads remove their placeholder.
func (e *Engine) Cancel(contentID string) int {
	e.mu.Lock()
	ops := append([]*Op(nil), e.pending[contentID]...)
	e.mu.Unlock()
	return e.discard(ops)
}

// CancelAll discards every pending op.
func (e *Engine) CancelAll() int {
	e.mu.Lock()
	var ops []*Op
	for _, list := range e.pending {
		ops = append(ops, list...)
	}
	e.mu.Unlock()
	return e.discard(ops)
}

func (e *Engine) discard(ops []*Op) int {
	n := 0
	for _, op := range ops {
		e.loadMu.RLock()
		if op.finish(StateDiscarded, fmt.Errorf("%w: %v", ErrDiscarded, context.Canceled), model.ContentItem{}) {
			n++
			if op.Kind == OpCreate && e.store.Generation() == op.gen && e.store.Remove(op.ContentID) {
				e.mutated("create_revert", nil)
			}
		}
		e.loadMu.RUnlock()
	}
	return n
}

// Pending returns the in-flight ops, oldest first.
func (e *Engine) Pending() []*Op {
	e.mu.Lock()
	var out []*Op
	for _, list := range e.pending {
		for _, op := range list {
			if op.State() == StatePending {
				out = append(out, op)
			}
		}
	}
	e.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// Wait blocks until every spawned remote call has returned or ctx is done.
func (e *Engine) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown discards pending ops and waits for their calls to return.
func (e *Engine) Shutdown(ctx context.Context) error {
	if n := e.CancelAll(); n > 0 {
		e.log.Info("discarded pending operations", "count", n)
	}
	return e.Wait(ctx)
}

// outcome is how a remote answer settles an op.
type outcome struct {
	state  OpState
	err    error
	item   model.ContentItem
	change *event.Change // Published after settling, when set
}

// settle applies a remote answer unless the op was discarded, its context
// ended or the store was reloaded since it started.
func (e *Engine) settle(op *Op, apply func() outcome) {
	e.untrack(op)

	e.loadMu.RLock()
	op.mu.Lock()
	if op.state != StatePending {
		op.mu.Unlock()
		e.loadMu.RUnlock()
		return
	}
	var out outcome
	switch {
	case op.ctx.Err() != nil:
		if op.Kind == OpCreate {
			e.store.Remove(op.ContentID)
		}
		out = outcome{state: StateDiscarded, err: fmt.Errorf("%w: %v", ErrDiscarded, op.ctx.Err())}
	case e.store.Generation() != op.gen:
		out = outcome{state: StateDiscarded, err: fmt.Errorf("%w: content reloaded", ErrDiscarded)}
	default:
		out = apply()
	}
	op.state, op.err, op.result = out.state, out.err, out.item
	op.cancel()
	close(op.done)
	op.mu.Unlock()
	e.loadMu.RUnlock()

	attrs := []any{"op", op.ID, "kind", op.Kind, "content_id", op.ContentID, "state", out.state}
	switch out.state {
	case StateFailed:
		e.log.Warn("operation failed, local change kept", append(attrs, "error", out.err)...)
	case StateCompensated:
		e.log.Info("operation compensated", append(attrs, "error", out.err)...)
	default:
		e.log.Debug("operation settled", attrs...)
	}
	if out.change != nil {
		e.publish(op.ctx, *out.change)
	}
}

func (e *Engine) spawn(op *Op, run func(*Op)) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		run(op)
	}()
}

// trackLocked registers op as in flight. e.mu must be held.
func (e *Engine) trackLocked(op *Op) {
	e.pending[op.ContentID] = append(e.pending[op.ContentID], op)
	e.metrics.PendingOps.Inc()
}

func (e *Engine) untrack(op *Op) {
	e.mu.Lock()
	defer e.mu.Unlock()
	list := e.pending[op.ContentID]
	for i, p := range list {
		if p == op {
			list = append(list[:i], list[i+1:]...)
			e.metrics.PendingOps.Dec()
			break
		}
	}
	if len(list) == 0 {
		delete(e.pending, op.ContentID)
	} else {
		e.pending[op.ContentID] = list
	}
}

func (e *Engine) mutated(kind string, err error) {
	e.metrics.StoreMutationTotal.WithLabelValues(kind, metrics.Status(err)).Inc()
}

// publish sends ch to the change feed. Feed failures never fail the
// mutation that caused them.
func (e *Engine) publish(ctx context.Context, ch event.Change) {
	start := time.Now()
	err := e.pub.Publish(context.WithoutCancel(ctx), ch)
	e.metrics.EventPublishTotal.WithLabelValues(string(ch.Type), metrics.Status(err)).Inc()
	e.metrics.EventPublishDuration.WithLabelValues(string(ch.Type), metrics.Status(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		e.log.Warn("change publish failed", "type", ch.Type, "content_id", ch.ContentID, "error", err)
	}
}

func notFound(id string) error {
	return errordefs.Newf(errordefs.LUXY_NOT_FOUND, "content %q not found", id)
}

// confirmed checks that id is in the store and is not an upload still
// waiting for its gateway id.
func (e *Engine) confirmed(id string) error {
	item, ok := e.store.Get(id)
	if !ok {
		return notFound(id)
	}
	if item.Pending {
		return errordefs.Newf(errordefs.LUXY_VALIDATION, "content %q is still uploading", id)
	}
	return nil
}
