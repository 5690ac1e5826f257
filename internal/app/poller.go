package app

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jaakkos/statusboard/internal/domain"
)

const (
	defaultMinInterval = 2 * time.Second
	defaultMaxInterval = 4 * time.Second
	defaultTimeLayout  = "3:04:05 PM"

	// pruneEveryCycles is how many cycles pass between journal retention sweeps.
	pruneEveryCycles = 30
)

// Poller fires one cycle per randomized interval. A cycle launches one
// independent fetch-and-render operation per endpoint. Operations are never
// ordered against each other, never retried, and never de-duplicated: a slow
// request from an earlier cycle may still be in flight when the next one starts.
type Poller struct {
	endpoints      []domain.Endpoint
	surface        Surface
	fetcher        *Fetcher
	logger         *log.Logger
	minInterval    time.Duration
	maxInterval    time.Duration
	requestTimeout time.Duration
	timeLayout     string
	now            func() time.Time
	newCycleID     func() string

	journal      Journal // optional; nil disables recording
	signalPath   string
	retentionMax int
	signalMu     sync.Mutex
	signalID     int64 // highest ID written to signalPath

	rngMu sync.Mutex
	rng   *rand.Rand

	cycles   atomic.Uint64
	inflight sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// PollerOption configures the poller.
type PollerOption func(*Poller)

// WithInterval sets the half-open range [lo, hi) each interval is drawn from.
func WithInterval(lo, hi time.Duration) PollerOption {
	return func(p *Poller) {
		p.minInterval = lo
		p.maxInterval = hi
	}
}

// WithRequestTimeout bounds each request. Zero (the default) means no timeout.
func WithRequestTimeout(d time.Duration) PollerOption {
	return func(p *Poller) { p.requestTimeout = d }
}

// WithTimeLayout sets the layout of the last-updated stamp.
func WithTimeLayout(layout string) PollerOption {
	return func(p *Poller) { p.timeLayout = layout }
}

// WithHTTPClient sets the client used for all fetches.
func WithHTTPClient(c *http.Client) PollerOption {
	return func(p *Poller) { p.fetcher = NewFetcher(c) }
}

// WithClock sets the wall-clock source for the last-updated stamp.
func WithClock(now func() time.Time) PollerOption {
	return func(p *Poller) { p.now = now }
}

// WithSeed makes interval selection deterministic.
func WithSeed(seed uint64) PollerOption {
	return func(p *Poller) { p.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// WithJournal records every rendered write to j and touches signalPath after
// each append. retentionMax > 0 keeps only that many rows per element.
func WithJournal(j Journal, signalPath string, retentionMax int) PollerOption {
	return func(p *Poller) {
		p.journal = j
		p.signalPath = signalPath
		p.retentionMax = retentionMax
	}
}

// NewPoller creates a poller that renders endpoints into surface.
func NewPoller(endpoints []domain.Endpoint, surface Surface, logger *log.Logger, opts ...PollerOption) *Poller {
	p := &Poller{
		endpoints:   endpoints,
		surface:     surface,
		fetcher:     NewFetcher(nil),
		logger:      logger,
		minInterval: defaultMinInterval,
		maxInterval: defaultMaxInterval,
		timeLayout:  defaultTimeLayout,
		now:         time.Now,
		newCycleID:  uuid.NewString,
		rng:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// NextInterval draws the next delay uniformly from [min, max).
func (p *Poller) NextInterval() time.Duration {
	span := p.maxInterval - p.minInterval
	if span <= 0 {
		return p.minInterval
	}
	p.rngMu.Lock()
	n := p.rng.Int64N(int64(span))
	p.rngMu.Unlock()
	return p.minInterval + time.Duration(n)
}

// Start runs the timer loop. Returns when ctx is cancelled or Stop is called.
// The first cycle fires after the first randomized interval, and each firing
// re-arms the timer with a freshly drawn interval measured from that firing.
func (p *Poller) Start(ctx context.Context) {
	defer close(p.doneCh)
	p.logf("Poller: started (%d endpoint(s), interval=[%s, %s))", len(p.endpoints), p.minInterval, p.maxInterval)

	timer := time.NewTimer(p.NextInterval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logf("Poller: stopped (context cancelled)")
			return
		case <-p.stopCh:
			p.logf("Poller: stopped")
			return
		case fired := <-timer.C:
			p.launch(ctx)
			next := p.NextInterval() - time.Since(fired)
			if next < 0 {
				next = 0
			}
			timer.Reset(next)
		}
	}
}

// Stop ends the timer loop. In-flight operations keep running; use Wait to
// drain them. Safe to call more than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	<-p.doneCh
}

// Wait blocks until every launched operation has finished.
func (p *Poller) Wait() {
	p.inflight.Wait()
}

// Cycles returns how many cycles have been launched.
func (p *Poller) Cycles() uint64 {
	return p.cycles.Load()
}

// RunCycle launches one cycle and waits for all of its operations. Returns the
// cycle ID. Failures are reported through the logger only, as in Start.
func (p *Poller) RunCycle(ctx context.Context) string {
	var wg sync.WaitGroup
	id := p.launchTracked(ctx, &wg)
	wg.Wait()
	return id
}

func (p *Poller) launch(ctx context.Context) string {
	return p.launchTracked(ctx, nil)
}

func (p *Poller) launchTracked(ctx context.Context, wg *sync.WaitGroup) string {
	cycleID := p.newCycleID()
	n := p.cycles.Add(1)

	for _, ep := range p.endpoints {
		p.inflight.Add(1)
		if wg != nil {
			wg.Add(1)
		}
		go func(ep domain.Endpoint) {
			defer p.inflight.Done()
			if wg != nil {
				defer wg.Done()
			}
			if err := p.refresh(ctx, cycleID, ep); err != nil {
				p.logf("Poller: cycle %s: %v", shortID(cycleID), err)
			}
		}(ep)
	}

	if p.journal != nil && p.retentionMax > 0 && n%pruneEveryCycles == 0 {
		p.inflight.Add(1)
		go func() {
			defer p.inflight.Done()
			p.prune()
		}()
	}
	return cycleID
}

// refresh fetches one endpoint and, only on success, overwrites its element.
// The stamping endpoint also writes last-updated after its own element.
func (p *Poller) refresh(ctx context.Context, cycleID string, ep domain.Endpoint) error {
	reqCtx := ctx
	if p.requestTimeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, p.requestTimeout)
		defer cancel()
	}

	body, err := p.fetcher.Fetch(reqCtx, ep.URL)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", ep.Name, err)
	}
	text, err := PrettyJSON(body)
	if err != nil {
		return fmt.Errorf("render %s: %w", ep.Name, err)
	}

	p.surface.SetText(ep.Element, text)
	p.record(cycleID, ep, ep.Element, text)

	if ep.Stamp {
		stamp := p.now().Format(p.timeLayout)
		p.surface.SetText(domain.ElementLastUpdated, stamp)
		p.record(cycleID, ep, domain.ElementLastUpdated, stamp)
	}
	return nil
}

func (p *Poller) record(cycleID string, ep domain.Endpoint, element, text string) {
	if p.journal == nil {
		return
	}
	id, err := p.journal.Append(domain.Update{
		CycleID:    cycleID,
		Element:    element,
		Endpoint:   ep.Name,
		Text:       text,
		RecordedAt: time.Now().UTC(),
	})
	if err != nil {
		p.logf("Journal: append %s failed: %v", element, err)
		return
	}
	p.signalMu.Lock()
	defer p.signalMu.Unlock()
	if id <= p.signalID {
		return
	}
	if err := TouchNotifySignal(p.signalPath, id); err != nil {
		p.logf("Journal: touch signal failed: %v", err)
		return
	}
	p.signalID = id
}

func (p *Poller) prune() {
	n, err := p.journal.Prune(p.retentionMax)
	if err != nil {
		p.logf("Journal: prune failed: %v", err)
		return
	}
	if n > 0 {
		p.logf("Journal: pruned %d row(s) (retention=%d per element)", n, p.retentionMax)
	}
}

func (p *Poller) logf(format string, args ...any) {
	if p.logger == nil {
		return
	}
	p.logger.Printf(format, args...)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
