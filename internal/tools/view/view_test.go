package view

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jaakkos/statusboard/internal/board"
	"github.com/jaakkos/statusboard/internal/domain"
)

type stubJournal struct {
	rows    []domain.Update
	err     error
	element string
	limit   int
}

func (j *stubJournal) Since(int64, int) ([]domain.Update, error) { return nil, nil }

func (j *stubJournal) Recent(element string, limit int) ([]domain.Update, error) {
	j.element, j.limit = element, limit
	return j.rows, j.err
}

func TestReadBoard(t *testing.T) {
	b := board.New()
	b.SetText("stats", "{\n  \"count\": 5\n}")
	srv := testServer(b)

	result, err := callTool(t, srv, "read_board", map[string]any{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := resultText(t, result)
	if !strings.Contains(text, "## stats (updated") || !strings.Contains(text, "\"count\": 5") {
		t.Errorf("unexpected result text: %s", text)
	}
	if !strings.Contains(text, "## analyzer (never updated)") {
		t.Errorf("analyzer should be reported as never updated: %s", text)
	}
	if strings.Index(text, "## stats") > strings.Index(text, "## last-updated") {
		t.Errorf("panels out of display order: %s", text)
	}
}

func TestReadPanel(t *testing.T) {
	b := board.New()
	b.SetText("random-event", "{}")
	srv := testServer(b)

	result, err := callTool(t, srv, "read_panel", map[string]any{"element": "random-event"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text := resultText(t, result); text != "{}" {
		t.Errorf("read_panel = %q, want {}", text)
	}

	result, err = callTool(t, srv, "read_panel", map[string]any{"element": "analyzer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text := resultText(t, result); !strings.Contains(text, "not been written") {
		t.Errorf("read_panel(analyzer) = %q", text)
	}
}

func TestReadPanel_Errors(t *testing.T) {
	srv := testServer(board.New())
	if _, err := callTool(t, srv, "read_panel", map[string]any{}); err == nil {
		t.Error("expected error for missing element")
	}
	if _, err := callTool(t, srv, "read_panel", map[string]any{"element": "anomalies"}); err == nil {
		t.Error("expected error for unknown element")
	}
}

func TestListEndpoints(t *testing.T) {
	srv := testServer(board.New())
	result, err := callTool(t, srv, "list_endpoints", map[string]any{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := resultText(t, result)
	if !strings.Contains(text, "stats -> stats  (http://processing:8110/stats)  also stamps last-updated") {
		t.Errorf("unexpected result text: %s", text)
	}
	if strings.Count(text, "\n") != 3 {
		t.Errorf("expected 3 lines, got: %s", text)
	}
}

func TestReadHistory_NotRegisteredWithoutJournal(t *testing.T) {
	srv := testServer(board.New())
	if _, err := callTool(t, srv, "read_history", map[string]any{}); err == nil {
		t.Error("read_history should not exist without a journal")
	}
}

func TestReadHistory(t *testing.T) {
	j := &stubJournal{rows: []domain.Update{
		{ID: 12, CycleID: "c-12", Element: "stats", Endpoint: "stats", Text: "{}", RecordedAt: time.Now().Add(-time.Minute)},
	}}
	srv := testServer(board.New(), WithJournal(j))

	result, err := callTool(t, srv, "read_history", map[string]any{"element": "stats", "limit": 500})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if j.element != "stats" || j.limit != maxHistoryLimit {
		t.Errorf("Recent called with (%q, %d)", j.element, j.limit)
	}
	text := resultText(t, result)
	if !strings.HasPrefix(text, "#12 stats from stats, 1 minute ago (cycle c-12)\n{}") {
		t.Errorf("unexpected result text: %q", text)
	}
}

func TestReadHistory_EmptyAndErrors(t *testing.T) {
	srv := testServer(board.New(), WithJournal(&stubJournal{}))
	result, err := callTool(t, srv, "read_history", map[string]any{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text := resultText(t, result); text != "No journal entries." {
		t.Errorf("unexpected result text: %q", text)
	}

	failing := testServer(board.New(), WithJournal(&stubJournal{err: errors.New("database is locked")}))
	if _, err := callTool(t, failing, "read_history", map[string]any{}); err == nil {
		t.Error("expected error when the journal fails")
	}
}
