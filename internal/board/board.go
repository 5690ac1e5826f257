// Package board holds the in-memory display state: one text panel per element.
package board

import (
	"sync"
	"time"

	"github.com/jaakkos/statusboard/internal/app"
	"github.com/jaakkos/statusboard/internal/domain"
)

// Board is the authoritative display surface. Every write replaces the whole
// text of one element; nothing is merged or appended.
type Board struct {
	mu       sync.RWMutex
	panels   map[string]domain.Panel
	revision uint64
	now      func() time.Time
}

// Option configures a Board.
type Option func(*Board)

// WithClock sets the clock used for UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(b *Board) { b.now = now }
}

// New creates a board with all four elements present and empty.
func New(opts ...Option) *Board {
	b := &Board{
		panels: make(map[string]domain.Panel, 4),
		now:    time.Now,
	}
	for _, o := range opts {
		o(b)
	}
	for _, id := range domain.Elements() {
		b.panels[id] = domain.Panel{Element: id}
	}
	return b
}

// SetText replaces the text of element. Unknown elements are ignored.
func (b *Board) SetText(element, text string) {
	if !domain.IsElement(element) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revision++
	b.panels[element] = domain.Panel{
		Element:   element,
		Text:      text,
		UpdatedAt: b.now(),
		Revision:  b.revision,
	}
}

// Panel returns the current panel for element.
func (b *Board) Panel(element string) (domain.Panel, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.panels[element]
	return p, ok
}

// Snapshot returns all panels in display order.
func (b *Board) Snapshot() []domain.Panel {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.Panel, 0, len(b.panels))
	for _, id := range domain.Elements() {
		out = append(out, b.panels[id])
	}
	return out
}

// Revision returns the number of writes applied so far.
func (b *Board) Revision() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.revision
}

// Fanout forwards each write to every surface in order.
type Fanout []app.Surface

// SetText implements app.Surface.
func (f Fanout) SetText(element, text string) {
	for _, s := range f {
		if s != nil {
			s.SetText(element, text)
		}
	}
}

var (
	_ app.Surface = (*Board)(nil)
	_ app.Surface = Fanout(nil)
)
