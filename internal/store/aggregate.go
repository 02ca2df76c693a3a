// internal/store/aggregate.go
// Package store provides the content aggregate store: the ordered, in-memory
// set of content items that every projection reads from.
package store

import (
	"math"
	"sync"

	errordefs "github.com/P3dro7wz/Luxy/internal/errors"
	"github.com/P3dro7wz/Luxy/internal/model"
)

// Rating bounds
const (
	MinScore = 1
	MaxScore = 5
)

// Aggregate is the single source of truth for content items. Every public
// method is one critical section, so a mutation either fully applies or not
// at all.
type Aggregate struct {
	mu    sync.RWMutex
	items []model.ContentItem // Store order
	index map[string]int      // Map of item id to position in items
	gen   uint64              // Incremented by every Load
}

// New creates an empty store.
func New() *Aggregate {
	return &Aggregate{index: make(map[string]int)}
}

// Load replaces the full set of items. Duplicate ids in the input collapse
// onto the position of their first occurrence, keeping the last payload.
func (a *Aggregate) Load(items []model.ContentItem) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.items = make([]model.ContentItem, 0, len(items))
	a.index = make(map[string]int, len(items))
	for _, item := range items {
		if pos, ok := a.index[item.ID]; ok {
			a.items[pos] = item
			continue
		}
		a.index[item.ID] = len(a.items)
		a.items = append(a.items, item)
	}
	a.gen++
}

// Generation returns the number of Load calls so far.
func (a *Aggregate) Generation() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.gen
}

// Len returns the number of items.
func (a *Aggregate) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.items)
}

// Snapshot returns a copy of all items in store order.
func (a *Aggregate) Snapshot() []model.ContentItem {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]model.ContentItem, len(a.items))
	copy(out, a.items)
	return out
}

// Get returns a copy of the item with the given id.
func (a *Aggregate) Get(id string) (model.ContentItem, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	pos, ok := a.index[id]
	if !ok {
		return model.ContentItem{}, false
	}
	return a.items[pos], true
}

// Upsert appends item if its id is unknown, else replaces the existing
// entry in place. The upload time of an existing entry is kept.
func (a *Aggregate) Upsert(item model.ContentItem) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if pos, ok := a.index[item.ID]; ok {
		if !a.items[pos].UploadedAt.IsZero() {
			item.UploadedAt = a.items[pos].UploadedAt
		}
		a.items[pos] = item
		return
	}
	a.index[item.ID] = len(a.items)
	a.items = append(a.items, item)
}

// InsertHead prepends item, or replaces it in place if the id is known.
func (a *Aggregate) InsertHead(item model.ContentItem) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if pos, ok := a.index[item.ID]; ok {
		a.items[pos] = item
		return
	}
	a.items = append([]model.ContentItem{item}, a.items...)
	a.reindex()
}

// Remove deletes the item with the given id. Unknown ids are ignored.
// It reports whether something was removed.
func (a *Aggregate) Remove(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	pos, ok := a.index[id]
	if !ok {
		return false
	}
	a.items = append(a.items[:pos], a.items[pos+1:]...)
	a.reindex()
	return true
}

// ApplyLike increments the like count of id by one.
func (a *Aggregate) ApplyLike(id string) (model.ContentItem, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	pos, ok := a.index[id]
	if !ok {
		return model.ContentItem{}, notFound(id)
	}
	a.items[pos].LikeCount++
	return a.items[pos], nil
}

// RevertLike undoes one ApplyLike. The count never drops below zero.
func (a *Aggregate) RevertLike(id string) (model.ContentItem, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	pos, ok := a.index[id]
	if !ok {
		return model.ContentItem{}, notFound(id)
	}
	if a.items[pos].LikeCount > 0 {
		a.items[pos].LikeCount--
	}
	return a.items[pos], nil
}

// ApplyRating folds score into the running average of id.
func (a *Aggregate) ApplyRating(id string, score int) (model.ContentItem, error) {
	if err := ValidateScore(score); err != nil {
		return model.ContentItem{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	pos, ok := a.index[id]
	if !ok {
		return model.ContentItem{}, notFound(id)
	}
	item := &a.items[pos]
	total := item.AverageRating*float64(item.RatingCount) + float64(score)
	item.RatingCount++
	item.AverageRating = clampRating(total / float64(item.RatingCount))
	return *item, nil
}

// RevertRating removes score from the running average of id.
func (a *Aggregate) RevertRating(id string, score int) (model.ContentItem, error) {
	if err := ValidateScore(score); err != nil {
		return model.ContentItem{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	pos, ok := a.index[id]
	if !ok {
		return model.ContentItem{}, notFound(id)
	}
	item := &a.items[pos]
	if item.RatingCount <= 1 {
		item.RatingCount = 0
		item.AverageRating = 0
		return *item, nil
	}
	total := item.AverageRating*float64(item.RatingCount) - float64(score)
	item.RatingCount--
	item.AverageRating = clampRating(total / float64(item.RatingCount))
	return *item, nil
}

// SetRating overwrites the aggregate rating of id with a value reported by
// the gateway.
func (a *Aggregate) SetRating(id string, average float64, count int) (model.ContentItem, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	pos, ok := a.index[id]
	if !ok {
		return model.ContentItem{}, notFound(id)
	}
	if count < 0 {
		count = 0
	}
	a.items[pos].RatingCount = count
	a.items[pos].AverageRating = clampRating(average)
	return a.items[pos], nil
}

// Patch applies an admin edit (title, description, category) to id.
func (a *Aggregate) Patch(id string, patch model.ContentPatch) (model.ContentItem, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	pos, ok := a.index[id]
	if !ok {
		return model.ContentItem{}, notFound(id)
	}
	item := &a.items[pos]
	if patch.Title != nil {
		item.Title = *patch.Title
	}
	if patch.Description != nil {
		item.Description = *patch.Description
	}
	if patch.Category != nil {
		item.Category = *patch.Category
	}
	return *item, nil
}

// Reconcile replaces the placeholder entry with the confirmed record,
// keeping the placeholder's position. If the confirmed id is already present
// (a reload raced the upload) the placeholder is simply dropped.
func (a *Aggregate) Reconcile(placeholderID string, item model.ContentItem) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	pos, ok := a.index[placeholderID]
	if !ok {
		return notFound(placeholderID)
	}
	if existing, dup := a.index[item.ID]; dup && existing != pos {
		a.items = append(a.items[:pos], a.items[pos+1:]...)
		a.reindex()
		return nil
	}
	item.Pending = false
	a.items[pos] = item
	delete(a.index, placeholderID)
	a.index[item.ID] = pos
	return nil
}

// ValidateScore rejects ratings outside [MinScore, MaxScore].
func ValidateScore(score int) error {
	if score < MinScore || score > MaxScore {
		return errordefs.Newf(errordefs.LUXY_VALIDATION, "rating must be between %d and %d, got %d", MinScore, MaxScore, score)
	}
	return nil
}

func (a *Aggregate) reindex() {
	a.index = make(map[string]int, len(a.items))
	for i, item := range a.items {
		a.index[item.ID] = i
	}
}

func clampRating(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(float64(MaxScore), v))
}

func notFound(id string) error {
	return errordefs.Newf(errordefs.LUXY_NOT_FOUND, "content %q not found", id)
}
