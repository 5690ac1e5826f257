// Package dashboard serves the four display panels over HTTP: a browser page
// and a JSON API mirroring the board.
package dashboard

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	jsoniter "github.com/json-iterator/go"

	"github.com/jaakkos/statusboard/internal/app"
	"github.com/jaakkos/statusboard/internal/domain"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

// StateSnapshot is the JSON response from /api/state.
type StateSnapshot struct {
	Timestamp string             `json:"timestamp"`
	Revision  uint64             `json:"revision"`
	Endpoints []EndpointSnapshot `json:"endpoints"`
	Panels    []PanelSnapshot    `json:"panels"`
}

// EndpointSnapshot describes one polled endpoint.
type EndpointSnapshot struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Element string `json:"element"`
}

// PanelSnapshot is one display element.
type PanelSnapshot struct {
	Element   string `json:"element"`
	Text      string `json:"text"`
	UpdatedAt string `json:"updated_at,omitempty"`
	Age       string `json:"age"`
	Revision  uint64 `json:"revision"`
}

// HistorySnapshot is the JSON response from /api/history.
type HistorySnapshot struct {
	Element string           `json:"element,omitempty"`
	Updates []UpdateSnapshot `json:"updates"`
}

// UpdateSnapshot is one journal row.
type UpdateSnapshot struct {
	ID         int64  `json:"id"`
	CycleID    string `json:"cycle_id"`
	Element    string `json:"element"`
	Endpoint   string `json:"endpoint"`
	Text       string `json:"text"`
	RecordedAt string `json:"recorded_at"`
	Age        string `json:"age"`
}

// BoardReader is the read side of board.Board.
type BoardReader interface {
	Snapshot() []domain.Panel
	Revision() uint64
}

// Handler holds dependencies for dashboard HTTP handlers.
type Handler struct {
	board     BoardReader
	endpoints []domain.Endpoint
	journal   app.JournalReader // optional; nil when the journal is disabled
	now       func() time.Time
}

// HandlerOption configures optional dependencies for the dashboard handler.
type HandlerOption func(*Handler)

// WithJournal enables /api/history.
func WithJournal(j app.JournalReader) HandlerOption {
	return func(h *Handler) { h.journal = j }
}

// WithClock sets the clock used for timestamps and ages.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) { h.now = now }
}

// NewHandler creates a dashboard handler.
func NewHandler(board BoardReader, endpoints []domain.Endpoint, opts ...HandlerOption) *Handler {
	h := &Handler{board: board, endpoints: endpoints, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes adds dashboard routes to the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/state", h.handleAPIState)
	mux.HandleFunc("/api/history", h.handleAPIHistory)
	mux.HandleFunc("/dashboard", h.handleDashboard)
	mux.HandleFunc("/dashboard/", h.handleDashboard)
}

// Snapshot builds the /api/state payload.
func (h *Handler) Snapshot() StateSnapshot {
	now := h.now()
	snap := StateSnapshot{
		Timestamp: now.Format(time.RFC3339),
		Revision:  h.board.Revision(),
		Endpoints: make([]EndpointSnapshot, 0, len(h.endpoints)),
	}
	for _, ep := range h.endpoints {
		snap.Endpoints = append(snap.Endpoints, EndpointSnapshot{Name: ep.Name, URL: ep.URL, Element: ep.Element})
	}
	for _, p := range h.board.Snapshot() {
		ps := PanelSnapshot{
			Element:  p.Element,
			Text:     p.Text,
			Age:      relTime(p.UpdatedAt, now),
			Revision: p.Revision,
		}
		if !p.UpdatedAt.IsZero() {
			ps.UpdatedAt = p.UpdatedAt.Format(time.RFC3339)
		}
		snap.Panels = append(snap.Panels, ps)
	}
	return snap
}

func (h *Handler) handleAPIState(w http.ResponseWriter, r *http.Request) {
	setJSONHeaders(w)
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	writeJSON(w, http.StatusOK, h.Snapshot())
}

func (h *Handler) handleAPIHistory(w http.ResponseWriter, r *http.Request) {
	setJSONHeaders(w)
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	if h.journal == nil {
		writeError(w, http.StatusNotFound, "journal is disabled")
		return
	}

	element := r.URL.Query().Get("element")
	if element != "" && !domain.IsElement(element) {
		writeError(w, http.StatusBadRequest, "unknown element "+strconv.Quote(element))
		return
	}
	limit := defaultHistoryLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	rows, err := h.journal.Recent(element, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	now := h.now()
	hist := HistorySnapshot{Element: element, Updates: make([]UpdateSnapshot, 0, len(rows))}
	for _, u := range rows {
		hist.Updates = append(hist.Updates, UpdateSnapshot{
			ID:         u.ID,
			CycleID:    u.CycleID,
			Element:    u.Element,
			Endpoint:   u.Endpoint,
			Text:       u.Text,
			RecordedAt: u.RecordedAt.Format(time.RFC3339),
			Age:        relTime(u.RecordedAt, now),
		})
	}
	writeJSON(w, http.StatusOK, hist)
}

func setJSONHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Cache-Control", "no-cache")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	enc := jsonAPI.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func relTime(t time.Time, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	if now.Sub(t) < time.Second {
		return "just now"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
