package sqlite

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/jaakkos/statusboard/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "journal.sqlite"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func mustAppend(t *testing.T, s *Store, element, text string) int64 {
	t.Helper()
	id, err := s.Append(domain.Update{CycleID: "c1", Element: element, Endpoint: "stats", Text: text})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	return id
}

func TestStoreAppendAndSince(t *testing.T) {
	s := newTestStore(t)
	at := time.Date(2025, 3, 1, 14, 5, 9, 123, time.UTC)

	id1, err := s.Append(domain.Update{CycleID: "c1", Element: "stats", Endpoint: "stats", Text: "{\n  \"count\": 5\n}", RecordedAt: at})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	id2 := mustAppend(t, s, "last-updated", "2:05:09 PM")
	if id2 <= id1 {
		t.Fatalf("IDs must increase: %d then %d", id1, id2)
	}

	got, err := s.Since(0, 0)
	if err != nil {
		t.Fatalf("Since: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(Since) = %d, want 2", len(got))
	}
	want := domain.Update{ID: id1, CycleID: "c1", Element: "stats", Endpoint: "stats", Text: "{\n  \"count\": 5\n}", RecordedAt: at}
	if diff := cmp.Diff(want, got[0]); diff != "" {
		t.Errorf("first row mismatch (-want +got):\n%s", diff)
	}
	if got[1].Element != "last-updated" {
		t.Errorf("second row element = %q", got[1].Element)
	}

	after, _ := s.Since(id1, 10)
	if len(after) != 1 || after[0].ID != id2 {
		t.Errorf("Since(%d) = %+v", id1, after)
	}
}

func TestStoreSinceLimit(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 5; i++ {
		mustAppend(t, s, "analyzer", "{}")
	}
	got, err := s.Since(0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID > got[1].ID {
		t.Errorf("Since(0, 2) = %+v", got)
	}
}

func TestStoreRecent(t *testing.T) {
	s := newTestStore(t)
	mustAppend(t, s, "stats", "a")
	mustAppend(t, s, "analyzer", "b")
	mustAppend(t, s, "stats", "c")

	got, err := s.Recent("stats", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Text != "c" || got[1].Text != "a" {
		t.Errorf("Recent(stats) = %+v", got)
	}

	all, _ := s.Recent("", 2)
	if len(all) != 2 || all[0].Text != "c" || all[1].Text != "b" {
		t.Errorf("Recent(all, 2) = %+v", all)
	}

	none, _ := s.Recent("random-event", 10)
	if len(none) != 0 {
		t.Errorf("Recent(random-event) = %+v", none)
	}
}

func TestStorePrune(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 5; i++ {
		mustAppend(t, s, "stats", "s")
	}
	for i := 0; i < 2; i++ {
		mustAppend(t, s, "analyzer", "a")
	}

	n, err := s.Prune(3)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 2 {
		t.Errorf("Prune deleted %d, want 2", n)
	}
	stats, _ := s.Recent("stats", 0)
	if len(stats) != 3 || stats[2].ID != 3 {
		t.Errorf("kept stats rows = %+v, want the newest 3", stats)
	}
	analyzer, _ := s.Recent("analyzer", 0)
	if len(analyzer) != 2 {
		t.Errorf("analyzer rows = %d, want 2", len(analyzer))
	}

	if n, _ := s.Prune(0); n != 0 {
		t.Errorf("Prune(0) deleted %d, want 0", n)
	}
}

func TestStoreLatestID(t *testing.T) {
	s := newTestStore(t)
	if id, err := s.LatestID(); err != nil || id != 0 {
		t.Errorf("empty LatestID = %d, %v", id, err)
	}
	mustAppend(t, s, "stats", "x")
	last := mustAppend(t, s, "stats", "y")
	if id, _ := s.LatestID(); id != last {
		t.Errorf("LatestID = %d, want %d", id, last)
	}
}

func TestStoreConcurrentAppend(t *testing.T) {
	s := newTestStore(t)
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(el string) {
			defer wg.Done()
			if _, err := s.Append(domain.Update{Element: el, Text: "{}"}); err != nil {
				t.Errorf("Append: %v", err)
			}
		}(domain.Elements()[i%3])
	}
	wg.Wait()
	all, _ := s.Since(0, 0)
	if len(all) != 30 {
		t.Errorf("rows = %d, want 30", len(all))
	}
}

func TestStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "journal.sqlite")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	mustAppend(t, s, "stats", "persisted")
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("database file missing: %v", err)
	}

	s2, err := New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	got, _ := s2.Recent("stats", 1)
	if len(got) != 1 || got[0].Text != "persisted" {
		t.Errorf("after reopen = %+v", got)
	}
}

func TestStoreClose(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "journal.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
