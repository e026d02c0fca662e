package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/dukerupert/devdiary/internal/database"
	"github.com/dukerupert/devdiary/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// fixedClock returns a clock that starts at start and advances by step on
// every call.
func fixedClock(start time.Time, step time.Duration) func() time.Time {
	next := start
	return func() time.Time {
		t := next
		next = next.Add(step)
		return t
	}
}

func ptr[T any](v T) *T { return &v }

func mustCreateEntry(t *testing.T, es *EntryStore, in model.NewEntry) int64 {
	t.Helper()
	id, err := es.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("create entry %q: %v", in.Title, err)
	}
	return id
}

func entryTitles(entries []model.Entry) []string {
	titles := make([]string, 0, len(entries))
	for _, e := range entries {
		titles = append(titles, e.Title)
	}
	return titles
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestEntryCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	es := NewEntryStore(db)
	cs := NewCategoryStore(db)
	ts := NewTagStore(db)

	catID, _ := cs.Create(ctx, "Dev", "#3b82f6")
	goID, _ := ts.Create(ctx, "go", "#00add8")
	sqlID, _ := ts.Create(ctx, "sql", "#f59e0b")

	id := mustCreateEntry(t, es, model.NewEntry{
		Title:      "First day",
		Content:    "# hello",
		CategoryID: &catID,
		IsPinned:   true,
		TagIDs:     []int64{sqlID, goID, goID},
	})

	got, err := es.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if got == nil {
		t.Fatal("expected entry, got nil")
	}
	if got.Title != "First day" {
		t.Errorf("title = %q, want %q", got.Title, "First day")
	}
	if got.Content != "# hello" {
		t.Errorf("content = %q, want %q", got.Content, "# hello")
	}
	if got.CategoryID == nil || *got.CategoryID != catID {
		t.Errorf("category_id = %v, want %d", got.CategoryID, catID)
	}
	if got.CategoryName == nil || *got.CategoryName != "Dev" {
		t.Errorf("category_name = %v, want Dev", got.CategoryName)
	}
	if !got.IsPinned || got.IsFavorite {
		t.Errorf("pinned/favorite = %v/%v, want true/false", got.IsPinned, got.IsFavorite)
	}
	if names := got.TagNames(); !equalStrings(names, []string{"go", "sql"}) {
		t.Errorf("tags = %v, want [go sql]", names)
	}
	if got.UpdatedAt.Before(got.CreatedAt) {
		t.Errorf("updated_at %v before created_at %v", got.UpdatedAt, got.CreatedAt)
	}

	ok, err := es.Delete(ctx, id)
	if err != nil {
		t.Fatalf("delete entry: %v", err)
	}
	if !ok {
		t.Error("delete reported missing entry")
	}
	got, err = es.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get deleted entry: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}

	var assoc int
	db.QueryRow(`SELECT COUNT(*) FROM entry_tags WHERE entry_id = ?`, id).Scan(&assoc)
	if assoc != 0 {
		t.Errorf("entry_tags rows = %d after delete, want 0", assoc)
	}
}

func TestEntryDefaults(t *testing.T) {
	db := setupTestDB(t)
	es := NewEntryStore(db)

	id := mustCreateEntry(t, es, model.NewEntry{Title: "Bare"})
	got, err := es.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if got.Content != "" {
		t.Errorf("content = %q, want empty", got.Content)
	}
	if got.CategoryID != nil || got.CategoryName != nil {
		t.Errorf("category = %v/%v, want nil", got.CategoryID, got.CategoryName)
	}
	if got.IsPinned || got.IsFavorite {
		t.Error("expected flags to default to false")
	}
	if got.Tags == nil || len(got.Tags) != 0 {
		t.Errorf("tags = %v, want empty slice", got.Tags)
	}
}

func TestEntryNotFound(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	es := NewEntryStore(db)

	got, err := es.GetByID(ctx, 999)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if got != nil {
		t.Error("expected nil for non-existent entry")
	}

	ok, err := es.Update(ctx, 999, model.EntryPatch{Title: ptr("x")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if ok {
		t.Error("update of missing entry reported success")
	}

	ok, err = es.Delete(ctx, 999)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok {
		t.Error("delete of missing entry reported success")
	}
}

func TestEntryCreateInvalidReference(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	es := NewEntryStore(db)

	_, err := es.Create(ctx, model.NewEntry{Title: "x", CategoryID: ptr(int64(42))})
	if !errors.Is(err, ErrInvalidReference) {
		t.Errorf("unknown category: err = %v, want ErrInvalidReference", err)
	}

	_, err = es.Create(ctx, model.NewEntry{Title: "x", TagIDs: []int64{42}})
	if !errors.Is(err, ErrInvalidReference) {
		t.Errorf("unknown tag: err = %v, want ErrInvalidReference", err)
	}

	entries, err := es.List(ctx, model.EntryFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries after failed creates, want 0", len(entries))
	}
}

func TestEntryUpdateMergesFields(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	es := NewEntryStore(db)
	es.now = fixedClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC), time.Hour)
	cs := NewCategoryStore(db)
	catID, _ := cs.Create(ctx, "Dev", "#3b82f6")

	id := mustCreateEntry(t, es, model.NewEntry{Title: "Original", Content: "body", CategoryID: &catID})

	ok, err := es.Update(ctx, id, model.EntryPatch{IsFavorite: ptr(true)})
	if err != nil || !ok {
		t.Fatalf("update: ok=%v err=%v", ok, err)
	}
	got, _ := es.GetByID(ctx, id)
	if got.Title != "Original" || got.Content != "body" {
		t.Errorf("unpatched fields changed: %q / %q", got.Title, got.Content)
	}
	if got.CategoryID == nil || *got.CategoryID != catID {
		t.Errorf("category changed to %v", got.CategoryID)
	}
	if !got.IsFavorite {
		t.Error("expected favorite after update")
	}
	if !got.UpdatedAt.After(got.CreatedAt) {
		t.Errorf("updated_at %v not after created_at %v", got.UpdatedAt, got.CreatedAt)
	}

	ok, err = es.Update(ctx, id, model.EntryPatch{SetCategory: true, CategoryID: nil, Title: ptr("Renamed")})
	if err != nil || !ok {
		t.Fatalf("clear category: ok=%v err=%v", ok, err)
	}
	got, _ = es.GetByID(ctx, id)
	if got.CategoryID != nil {
		t.Errorf("category_id = %v, want nil", *got.CategoryID)
	}
	if got.Title != "Renamed" {
		t.Errorf("title = %q, want %q", got.Title, "Renamed")
	}

	_, err = es.Update(ctx, id, model.EntryPatch{SetCategory: true, CategoryID: ptr(int64(777))})
	if !errors.Is(err, ErrInvalidReference) {
		t.Errorf("err = %v, want ErrInvalidReference", err)
	}
}

func TestEntryUpdateNeverMovesUpdatedAtBeforeCreatedAt(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	es := NewEntryStore(db)

	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	es.now = func() time.Time { return created }
	id := mustCreateEntry(t, es, model.NewEntry{Title: "clock skew"})

	es.now = func() time.Time { return created.Add(-time.Hour) }
	if _, err := es.Update(ctx, id, model.EntryPatch{Content: ptr("later")}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := es.GetByID(ctx, id)
	if got.UpdatedAt.Before(got.CreatedAt) {
		t.Errorf("updated_at %v before created_at %v", got.UpdatedAt, got.CreatedAt)
	}
}

func TestEntryTagReplace(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	es := NewEntryStore(db)
	ts := NewTagStore(db)

	a, _ := ts.Create(ctx, "a", "#111111")
	b, _ := ts.Create(ctx, "b", "#222222")
	c, _ := ts.Create(ctx, "c", "#333333")

	id := mustCreateEntry(t, es, model.NewEntry{Title: "tagged", TagIDs: []int64{a, b}})

	// No tag list leaves tags untouched.
	es.Update(ctx, id, model.EntryPatch{Title: ptr("still tagged")})
	got, _ := es.GetByID(ctx, id)
	if names := got.TagNames(); !equalStrings(names, []string{"a", "b"}) {
		t.Errorf("tags after untagged update = %v, want [a b]", names)
	}

	// A tag list replaces the whole set, and repeating it changes nothing.
	for i := 0; i < 2; i++ {
		if _, err := es.Update(ctx, id, model.EntryPatch{TagIDs: &[]int64{c, b}}); err != nil {
			t.Fatalf("replace tags (pass %d): %v", i+1, err)
		}
		got, _ = es.GetByID(ctx, id)
		if names := got.TagNames(); !equalStrings(names, []string{"b", "c"}) {
			t.Errorf("pass %d: tags = %v, want [b c]", i+1, names)
		}
	}

	// An empty list clears every association.
	es.Update(ctx, id, model.EntryPatch{TagIDs: &[]int64{}})
	got, _ = es.GetByID(ctx, id)
	if len(got.Tags) != 0 {
		t.Errorf("tags = %v, want none", got.TagNames())
	}

	// A bad tag id rolls the whole update back.
	es.Update(ctx, id, model.EntryPatch{TagIDs: &[]int64{a}})
	_, err := es.Update(ctx, id, model.EntryPatch{Title: ptr("bad"), TagIDs: &[]int64{b, 999}})
	if !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("err = %v, want ErrInvalidReference", err)
	}
	got, _ = es.GetByID(ctx, id)
	if got.Title != "still tagged" {
		t.Errorf("title = %q after rolled back update", got.Title)
	}
	if names := got.TagNames(); !equalStrings(names, []string{"a"}) {
		t.Errorf("tags = %v after rolled back update, want [a]", names)
	}
}

func TestEntryListOrdering(t *testing.T) {
	db := setupTestDB(t)
	es := NewEntryStore(db)
	es.now = fixedClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Minute)

	mustCreateEntry(t, es, model.NewEntry{Title: "old pinned", IsPinned: true})
	mustCreateEntry(t, es, model.NewEntry{Title: "old"})
	mustCreateEntry(t, es, model.NewEntry{Title: "middle", IsFavorite: true})
	mustCreateEntry(t, es, model.NewEntry{Title: "new pinned", IsPinned: true})
	mustCreateEntry(t, es, model.NewEntry{Title: "newest"})

	entries, err := es.List(context.Background(), model.EntryFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"new pinned", "old pinned", "newest", "middle", "old"}
	if got := entryTitles(entries); !equalStrings(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestEntryListFilters(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	es := NewEntryStore(db)
	cs := NewCategoryStore(db)
	ts := NewTagStore(db)

	dev, _ := cs.Create(ctx, "Dev", "#3b82f6")
	bug, _ := cs.Create(ctx, "Bug", "#ef4444")
	urgent, _ := ts.Create(ctx, "urgent", "#ef4444")
	done, _ := ts.Create(ctx, "done", "#10b981")

	es.now = func() time.Time { return time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC) }
	mustCreateEntry(t, es, model.NewEntry{Title: "Parser rewrite", Content: "Goroutines everywhere", CategoryID: &dev, TagIDs: []int64{urgent}, IsPinned: true, IsFavorite: true})
	es.now = func() time.Time { return time.Date(2025, 1, 20, 12, 0, 0, 0, time.UTC) }
	mustCreateEntry(t, es, model.NewEntry{Title: "Crash on start", Content: "nil map", CategoryID: &bug, TagIDs: []int64{urgent, done}, IsPinned: true})
	es.now = func() time.Time { return time.Date(2025, 2, 5, 12, 0, 0, 0, time.UTC) }
	mustCreateEntry(t, es, model.NewEntry{Title: "Reading notes", Content: "PARSER theory", IsFavorite: true})
	es.now = func() time.Time { return time.Date(2025, 2, 6, 12, 0, 0, 0, time.UTC) }
	mustCreateEntry(t, es, model.NewEntry{Title: "Über refactor", Content: "ÉCOLE notes"})

	tests := []struct {
		name   string
		filter model.EntryFilter
		want   []string
	}{
		{"no filter", model.EntryFilter{}, []string{"Crash on start", "Parser rewrite", "Über refactor", "Reading notes"}},
		{"search title or content case-insensitive", model.EntryFilter{Search: "parser"}, []string{"Parser rewrite", "Reading notes"}},
		{"search content only", model.EntryFilter{Search: "NIL MAP"}, []string{"Crash on start"}},
		{"search folds non-ASCII title", model.EntryFilter{Search: "über"}, []string{"Über refactor"}},
		{"search folds non-ASCII upper", model.EntryFilter{Search: "ÜBER"}, []string{"Über refactor"}},
		{"search folds non-ASCII content", model.EntryFilter{Search: "école"}, []string{"Über refactor"}},
		{"category", model.EntryFilter{CategoryID: dev}, []string{"Parser rewrite"}},
		{"tag", model.EntryFilter{TagID: urgent}, []string{"Crash on start", "Parser rewrite"}},
		{"tag and category", model.EntryFilter{TagID: done, CategoryID: dev}, nil},
		{"start date inclusive", model.EntryFilter{StartDate: ptr(time.Date(2025, 1, 20, 12, 0, 0, 0, time.UTC))}, []string{"Crash on start", "Über refactor", "Reading notes"}},
		{"end date inclusive", model.EntryFilter{EndDate: ptr(time.Date(2025, 1, 20, 12, 0, 0, 0, time.UTC))}, []string{"Crash on start", "Parser rewrite"}},
		{"date range", model.EntryFilter{StartDate: ptr(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)), EndDate: ptr(time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC))}, []string{"Crash on start"}},
		{"pinned only", model.EntryFilter{PinnedOnly: true}, []string{"Crash on start", "Parser rewrite"}},
		{"favorite only", model.EntryFilter{FavoriteOnly: true}, []string{"Parser rewrite", "Reading notes"}},
		{"pinned and favorite", model.EntryFilter{PinnedOnly: true, FavoriteOnly: true}, []string{"Parser rewrite"}},
		{"search and favorite", model.EntryFilter{Search: "parser", FavoriteOnly: true, PinnedOnly: true}, []string{"Parser rewrite"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := es.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if got := entryTitles(entries); !equalStrings(got, tt.want) {
				t.Errorf("titles = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEntryListEnrichesTags(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	es := NewEntryStore(db)
	ts := NewTagStore(db)

	x, _ := ts.Create(ctx, "x", "#000000")
	y, _ := ts.Create(ctx, "y", "#ffffff")
	mustCreateEntry(t, es, model.NewEntry{Title: "one", TagIDs: []int64{y}})
	mustCreateEntry(t, es, model.NewEntry{Title: "two", TagIDs: []int64{x, y}})
	mustCreateEntry(t, es, model.NewEntry{Title: "three"})

	entries, err := es.List(ctx, model.EntryFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	byTitle := map[string]model.Entry{}
	for _, e := range entries {
		byTitle[e.Title] = e
	}
	if got := byTitle["one"].TagNames(); !equalStrings(got, []string{"y"}) {
		t.Errorf("one tags = %v", got)
	}
	if got := byTitle["two"].TagNames(); !equalStrings(got, []string{"x", "y"}) {
		t.Errorf("two tags = %v", got)
	}
	if got := byTitle["three"].Tags; got == nil || len(got) != 0 {
		t.Errorf("three tags = %v, want empty", got)
	}
	if byTitle["two"].Tags[1].Color != "#ffffff" {
		t.Errorf("tag color = %q", byTitle["two"].Tags[1].Color)
	}
}

func TestCountByDay(t *testing.T) {
	db := setupTestDB(t)
	es := NewEntryStore(db)

	for _, ts := range []time.Time{
		time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC),
		time.Date(2025, 4, 1, 20, 0, 0, 0, time.UTC),
		time.Date(2025, 4, 3, 10, 0, 0, 0, time.UTC),
		time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
	} {
		es.now = func() time.Time { return ts }
		mustCreateEntry(t, es, model.NewEntry{Title: ts.String()})
	}

	from := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	counts, err := es.CountByDay(context.Background(), from, from.AddDate(0, 1, 0), time.UTC)
	if err != nil {
		t.Fatalf("count by day: %v", err)
	}
	want := []model.DayCount{{Day: "2025-04-01", Count: 2}, {Day: "2025-04-03", Count: 1}}
	if len(counts) != len(want) {
		t.Fatalf("counts = %v, want %v", counts, want)
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Errorf("counts[%d] = %v, want %v", i, counts[i], want[i])
		}
	}
}
