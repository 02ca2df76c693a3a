// internal/projection/projection.go
// Package projection derives filtered, sorted views over a store snapshot.
// Every function here is pure: it never mutates its input and always
// returns a freshly allocated slice.
package projection

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	errordefs "github.com/P3dro7wz/Luxy/internal/errors"
	"github.com/P3dro7wz/Luxy/internal/model"
)

// SortKey selects the ordering of a projection.
type SortKey string

const (
	SortNewest  SortKey = "newest"  // Upload time, descending
	SortOldest  SortKey = "oldest"  // Upload time, ascending
	SortPopular SortKey = "popular" // Like count, descending
	SortRating  SortKey = "rating"  // Average rating, descending
)

// ParseSort parses a sort key. The empty string selects SortNewest.
func ParseSort(s string) (SortKey, error) {
	switch SortKey(s) {
	case "":
		return SortNewest, nil
	case SortNewest, SortOldest, SortPopular, SortRating:
		return SortKey(s), nil
	default:
		return "", errordefs.Newf(errordefs.LUXY_VALIDATION, "unknown sort key %q", s)
	}
}

// Query is the full input of a projection besides the snapshot.
type Query struct {
	Category string  `json:"category"` // Category id, "all" or empty for every category
	Search   string  `json:"search"`   // Case-insensitive substring of the title or the description
	Sort     SortKey `json:"sort"`     // Empty means SortNewest
}

// Project filters items by category and search term and sorts the result.
// Sorting is stable, so items with equal keys keep their store order.
func Project(items []model.ContentItem, q Query) []model.ContentItem {
	folder := cases.Fold()
	needle := folder.String(q.Search)

	out := make([]model.ContentItem, 0, len(items))
	for _, item := range items {
		if !matchesCategory(item, q.Category) {
			continue
		}
		if needle != "" && !strings.Contains(folder.String(item.Title), needle) &&
			!strings.Contains(folder.String(item.Description), needle) {
			continue
		}
		out = append(out, item)
	}

	sort.SliceStable(out, less(out, q.Sort))
	return out
}

func matchesCategory(item model.ContentItem, category string) bool {
	return category == "" || category == model.CategoryAll || item.Category == category
}

func less(items []model.ContentItem, key SortKey) func(i, j int) bool {
	switch key {
	case SortOldest:
		return func(i, j int) bool { return items[i].UploadedAt.Before(items[j].UploadedAt) }
	case SortPopular:
		return func(i, j int) bool { return items[i].LikeCount > items[j].LikeCount }
	case SortRating:
		return func(i, j int) bool { return items[i].AverageRating > items[j].AverageRating }
	default:
		return func(i, j int) bool { return items[i].UploadedAt.After(items[j].UploadedAt) }
	}
}

// Categories counts items per category. The synthetic "all" category comes
// first, then the fixed categories in display order (including empty ones),
// then any unknown category ids in lexical order.
func Categories(items []model.ContentItem) []model.Category {
	counts := make(map[string]int)
	for _, item := range items {
		counts[item.Category]++
	}

	out := make([]model.Category, 0, len(model.Categories)+1)
	out = append(out, model.Category{ID: model.CategoryAll, Label: Label(model.CategoryAll), Count: len(items)})
	for _, id := range model.Categories {
		out = append(out, model.Category{ID: id, Label: Label(id), Count: counts[id]})
	}

	var extra []string
	for id := range counts {
		if !model.ValidCategory(id) {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	for _, id := range extra {
		out = append(out, model.Category{ID: id, Label: Label(id), Count: counts[id]})
	}
	return out
}

// Label returns the display label of a category id; unknown ids are
// title-cased.
func Label(id string) string {
	if label, ok := model.CategoryLabels[id]; ok {
		return label
	}
	return cases.Title(language.Und).String(id)
}

// Resolve returns the items whose ids appear in ids, in the order of ids.
// Ids with no matching item (deleted content) are skipped.
func Resolve(items []model.ContentItem, ids []string) []model.ContentItem {
	byID := make(map[string]model.ContentItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	out := make([]model.ContentItem, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if item, ok := byID[id]; ok {
			out = append(out, item)
		}
	}
	return out
}
