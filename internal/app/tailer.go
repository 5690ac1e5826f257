package app

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jaakkos/statusboard/internal/domain"
)

const (
	defaultDebounceMs   = 200
	defaultPollInterval = 10 * time.Second
	tailBatch           = 100
)

// Tailer follows a journal written by another process. It watches the signal
// file the poller touches after each append and delivers new rows in ID order.
type Tailer struct {
	signalPath   string
	reader       JournalReader
	onUpdate     func(domain.Update)
	logger       *log.Logger
	debounceMs   int
	pollInterval time.Duration

	mu            sync.Mutex
	lastID        int64
	debounceTimer *time.Timer
	watcher       *fsnotify.Watcher
	useFsnotify   bool
	stopOnce      sync.Once
	stopCh        chan struct{}
	doneCh        chan struct{}
	checkMu       sync.Mutex // serializes checkOnce between the debounce timer and the poll loop
}

// TailerOption configures the tailer.
type TailerOption func(*Tailer)

// WithTailPollInterval sets the fallback poll interval (default 10s).
func WithTailPollInterval(d time.Duration) TailerOption {
	return func(t *Tailer) {
		t.pollInterval = d
	}
}

// NewTailer creates a tailer that delivers rows with ID > fromID to onUpdate.
func NewTailer(signalPath string, reader JournalReader, fromID int64, onUpdate func(domain.Update), logger *log.Logger, opts ...TailerOption) *Tailer {
	t := &Tailer{
		signalPath:   signalPath,
		reader:       reader,
		onUpdate:     onUpdate,
		logger:       logger,
		debounceMs:   defaultDebounceMs,
		pollInterval: defaultPollInterval,
		lastID:       fromID,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Start starts the file watcher and fallback poll. Returns when ctx is cancelled
// or Stop is called. If fsnotify fails to initialize, falls back to poll-only mode.
func (t *Tailer) Start(ctx context.Context) {
	defer close(t.doneCh)

	watchDir := filepath.Dir(t.signalPath)
	signalName := filepath.Base(t.signalPath)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		t.logf("Tailer: fsnotify init failed (%v), using poll-only", err)
	} else {
		t.watcher = watcher
		t.useFsnotify = true
		if err := watcher.Add(watchDir); err != nil {
			t.logf("Tailer: fsnotify add %s failed (%v), using poll-only", watchDir, err)
			_ = watcher.Close()
			t.watcher = nil
			t.useFsnotify = false
		}
	}

	if t.useFsnotify {
		defer t.watcher.Close()
		go t.watchLoop(ctx, signalName)
	}

	// Catch up before the first event.
	t.CheckOnce()
	t.pollLoop(ctx)
}

// Stop signals the tailer to stop and waits for Start to return.
func (t *Tailer) Stop() {
	t.stopOnce.Do(func() { close(t.stopCh) })
	<-t.doneCh
}

// LastID returns the ID of the last delivered row.
func (t *Tailer) LastID() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastID
}

// CheckOnce delivers any rows newer than the last delivered one.
func (t *Tailer) CheckOnce() {
	t.checkMu.Lock()
	defer t.checkMu.Unlock()

	// The signal file only wakes us up. Concurrent appends may leave it
	// holding an older ID than the newest row, so the journal decides.
	t.mu.Lock()
	last := t.lastID
	t.mu.Unlock()

	for {
		rows, err := t.reader.Since(last, tailBatch)
		if err != nil {
			t.logf("Tailer: read journal failed: %v", err)
			return
		}
		for _, u := range rows {
			t.onUpdate(u)
			last = u.ID
		}
		t.mu.Lock()
		t.lastID = last
		t.mu.Unlock()
		if len(rows) < tailBatch {
			return
		}
	}
}

func (t *Tailer) watchLoop(ctx context.Context, signalName string) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stopCh:
			return
		case event, ok := <-t.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != signalName {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			t.triggerDebounced()
		case _, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (t *Tailer) triggerDebounced() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.debounceTimer != nil {
		t.debounceTimer.Stop()
	}
	t.debounceTimer = time.AfterFunc(time.Duration(t.debounceMs)*time.Millisecond, t.CheckOnce)
}

func (t *Tailer) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stopCh:
			return
		case <-ticker.C:
			t.CheckOnce()
		}
	}
}

func (t *Tailer) logf(format string, args ...any) {
	if t.logger == nil {
		return
	}
	t.logger.Printf(format, args...)
}
