package projection

import (
	"reflect"
	"testing"
	"time"

	errordefs "github.com/P3dro7wz/Luxy/internal/errors"
	"github.com/P3dro7wz/Luxy/internal/model"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func at(id, category string, hours int) model.ContentItem {
	return model.ContentItem{
		ID:         id,
		Kind:       model.KindPhoto,
		Title:      "Title " + id,
		Category:   category,
		UploadedAt: base.Add(time.Duration(hours) * time.Hour),
	}
}

func ids(items []model.ContentItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestSortNewestAndPopular(t *testing.T) {
	t1, t2, t3 := at("t1", "portrait", 1), at("t2", "portrait", 2), at("t3", "portrait", 3)
	t1.LikeCount, t2.LikeCount, t3.LikeCount = 5, 9, 2
	items := []model.ContentItem{t1, t2, t3}

	if got := ids(Project(items, Query{Sort: SortNewest})); !reflect.DeepEqual(got, []string{"t3", "t2", "t1"}) {
		t.Errorf("newest = %v, want [t3 t2 t1]", got)
	}
	if got := ids(Project(items, Query{Sort: SortOldest})); !reflect.DeepEqual(got, []string{"t1", "t2", "t3"}) {
		t.Errorf("oldest = %v, want [t1 t2 t3]", got)
	}
	if got := ids(Project(items, Query{Sort: SortPopular})); !reflect.DeepEqual(got, []string{"t2", "t1", "t3"}) {
		t.Errorf("popular = %v, want [t2 t1 t3]", got)
	}
}

func TestSortRatingIsStable(t *testing.T) {
	a, b, c := at("a", "urban", 0), at("b", "urban", 0), at("c", "urban", 0)
	a.AverageRating, b.AverageRating, c.AverageRating = 3, 4.5, 3
	got := ids(Project([]model.ContentItem{a, b, c}, Query{Sort: SortRating}))
	if !reflect.DeepEqual(got, []string{"b", "a", "c"}) {
		t.Errorf("rating = %v, want [b a c]", got)
	}
}

func TestCategoryFilterKeepsStoreOrderOnTies(t *testing.T) {
	items := []model.ContentItem{
		at("p1", "portrait", 1),
		at("w1", "wedding", 5),
		at("n1", "nature", 2),
		at("w2", "wedding", 5),
		at("e1", "event", 3),
		at("u1", "urban", 4),
	}
	got := Project(items, Query{Category: "wedding", Sort: SortNewest})
	if !reflect.DeepEqual(ids(got), []string{"w1", "w2"}) {
		t.Errorf("wedding filter = %v, want [w1 w2]", ids(got))
	}

	if all := Project(items, Query{Category: model.CategoryAll}); len(all) != 6 {
		t.Errorf("all filter returned %d items, want 6", len(all))
	}
}

func TestSearchIsCaseInsensitiveOverTitleAndDescription(t *testing.T) {
	a := at("a", "nature", 1)
	a.Title = "Pôr do Sol"
	b := at("b", "nature", 2)
	b.Description = "Casamento na PRAIA"
	c := at("c", "nature", 3)

	if got := ids(Project([]model.ContentItem{a, b, c}, Query{Search: "praia"})); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("search praia = %v, want [b]", got)
	}
	if got := ids(Project([]model.ContentItem{a, b, c}, Query{Search: "PÔR"})); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("search PÔR = %v, want [a]", got)
	}
	if got := Project([]model.ContentItem{a, b, c}, Query{Search: ""}); len(got) != 3 {
		t.Errorf("empty search returned %d items, want 3", len(got))
	}
}

func TestSearchDoesNotSpanTitleAndDescription(t *testing.T) {
	a := at("a", "nature", 1)
	a.Title, a.Description = "Sunset", "Beach"
	b := at("b", "nature", 2)
	b.Title = "Sunset beach"

	if got := ids(Project([]model.ContentItem{a, b}, Query{Search: "set bea"})); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("search across fields = %v, want [b]", got)
	}
	if got := ids(Project([]model.ContentItem{a, b}, Query{Search: " "})); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("whitespace search = %v, want [b]", got)
	}
}

func TestProjectIsDeterministicAndDetached(t *testing.T) {
	items := []model.ContentItem{at("a", "event", 1), at("b", "event", 1), at("c", "family", 2)}
	q := Query{Category: "event", Search: "title", Sort: SortPopular}

	first := Project(items, q)
	second := Project(items, q)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Project() not deterministic: %v vs %v", ids(first), ids(second))
	}

	first[0].Title = "mutated"
	if items[0].Title == "mutated" || second[0].Title == "mutated" {
		t.Errorf("Project() shares memory with its input or previous output")
	}
}

func TestParseSort(t *testing.T) {
	if got, err := ParseSort(""); err != nil || got != SortNewest {
		t.Errorf("ParseSort(\"\") = %v, %v", got, err)
	}
	if _, err := ParseSort("random"); !errordefs.Is(err, errordefs.LUXY_VALIDATION) {
		t.Errorf("ParseSort(random) error = %v, want VALIDATION", err)
	}
}

func TestCategories(t *testing.T) {
	items := []model.ContentItem{at("a", "wedding", 0), at("b", "wedding", 0), at("c", "food", 0)}
	got := Categories(items)

	if got[0].ID != model.CategoryAll || got[0].Count != 3 || got[0].Label != "Todas" {
		t.Errorf("first category = %+v", got[0])
	}
	counts := map[string]int{}
	for _, c := range got {
		counts[c.ID] = c.Count
	}
	if counts["wedding"] != 2 || counts["portrait"] != 0 || counts["food"] != 1 {
		t.Errorf("counts = %v", counts)
	}
	if last := got[len(got)-1]; last.ID != "food" || last.Label != "Food" {
		t.Errorf("unknown category = %+v", last)
	}
}

func TestResolveSkipsDanglingIDs(t *testing.T) {
	items := []model.ContentItem{at("a", "event", 0), at("b", "event", 0)}
	got := Resolve(items, []string{"b", "deleted", "a", "b"})
	if !reflect.DeepEqual(ids(got), []string{"b", "a"}) {
		t.Errorf("Resolve() = %v, want [b a]", ids(got))
	}
}
