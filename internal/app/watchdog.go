package app

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jaakkos/statusboard/internal/domain"
)

const (
	// defaultWatchdogInterval is how often the watchdog runs its checks.
	defaultWatchdogInterval = 10 * time.Second

	// defaultStaleThreshold is how long a panel can go without a write
	// before it is reported stale.
	defaultStaleThreshold = 30 * time.Second
)

// PanelSource is the read side of the display board.
type PanelSource interface {
	Snapshot() []domain.Panel
}

// Watchdog reports panels that have stopped receiving writes. It only logs:
// a stale panel keeps its last text, so nothing on screen says the source is down.
// Each element is reported once when it goes stale and once when it recovers.
type Watchdog struct {
	source    PanelSource
	elements  []string
	logger    *log.Logger
	interval  time.Duration
	threshold time.Duration
	now       func() time.Time
	started   time.Time

	mu    sync.Mutex
	stale map[string]bool

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// WatchdogOption configures the watchdog.
type WatchdogOption func(*Watchdog)

// WithWatchdogInterval sets the check interval.
func WithWatchdogInterval(d time.Duration) WatchdogOption {
	return func(w *Watchdog) { w.interval = d }
}

// WithStaleThreshold sets how long without a write counts as stale.
func WithStaleThreshold(d time.Duration) WatchdogOption {
	return func(w *Watchdog) { w.threshold = d }
}

// WithWatchdogClock sets the clock (for tests).
func WithWatchdogClock(now func() time.Time) WatchdogOption {
	return func(w *Watchdog) { w.now = now }
}

// NewWatchdog creates a watchdog over the elements written by endpoints.
func NewWatchdog(source PanelSource, endpoints []domain.Endpoint, logger *log.Logger, opts ...WatchdogOption) *Watchdog {
	w := &Watchdog{
		source:    source,
		logger:    logger,
		interval:  defaultWatchdogInterval,
		threshold: defaultStaleThreshold,
		now:       time.Now,
		stale:     make(map[string]bool),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	for _, ep := range endpoints {
		w.elements = append(w.elements, ep.Element)
	}
	for _, o := range opts {
		o(w)
	}
	w.started = w.now()
	return w
}

// Start begins the watchdog loop. Returns when ctx is cancelled or Stop is called.
func (w *Watchdog) Start(ctx context.Context) {
	defer close(w.doneCh)
	w.logf("Watchdog: started (interval=%s, stale_after=%s)", w.interval, w.threshold)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logf("Watchdog: stopped (context cancelled)")
			return
		case <-w.stopCh:
			w.logf("Watchdog: stopped")
			return
		case <-ticker.C:
			w.check()
		}
	}
}

// Stop signals the watchdog to stop. Safe to call more than once.
func (w *Watchdog) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.doneCh
}

// CheckOnce runs one watchdog cycle and returns the currently stale elements.
func (w *Watchdog) CheckOnce() []string {
	return w.check()
}

func (w *Watchdog) check() []string {
	now := w.now()
	panels := make(map[string]domain.Panel)
	for _, p := range w.source.Snapshot() {
		panels[p.Element] = p
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	var stale []string
	for _, el := range w.elements {
		last := panels[el].UpdatedAt
		since := last
		if since.IsZero() {
			since = w.started
		}
		isStale := now.Sub(since) > w.threshold

		switch {
		case isStale && !w.stale[el]:
			if last.IsZero() {
				w.logf("Watchdog: %s stale (never updated since start %s)", el, humanize.RelTime(w.started, now, "ago", "from now"))
			} else {
				w.logf("Watchdog: %s stale (last update %s)", el, humanize.RelTime(last, now, "ago", "from now"))
			}
		case !isStale && w.stale[el]:
			w.logf("Watchdog: %s recovered", el)
		}
		w.stale[el] = isStale
		if isStale {
			stale = append(stale, el)
		}
	}
	return stale
}

func (w *Watchdog) logf(format string, args ...any) {
	if w.logger == nil {
		return
	}
	w.logger.Printf(format, args...)
}
