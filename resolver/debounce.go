package resolver

import (
	"context"
	"sync"
	"time"

	"github.com/HelioDex/exchange-engine/common/types"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce is the delay between the last input change and the quote
// fetch it triggers.
const DefaultDebounce = 500 * time.Millisecond

// QuoteFetch performs one quote resolution.
type QuoteFetch func(ctx context.Context) (*types.Quote, error)

// QuoteCommit receives the result of a fetch that is still current.
type QuoteCommit func(quote *types.Quote, err error)

// Debouncer coalesces rapid input changes into a single quote fetch and
// discards results that complete after a newer input has superseded them.
// Staleness is decided by a monotonically increasing generation counter, not
// by overwrite order. The debouncer owns its goroutines and timers; Stop
// invalidates all outstanding work.
type Debouncer struct {
	delay  time.Duration
	logger *logrus.Logger

	mu         sync.Mutex
	generation uint64
	settled    bool
	pending    *time.Timer
	stopped    bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewDebouncer creates a debouncer with the given delay.
//
// Parameters:
// - delay: the debounce window from the last input change.
// - logger: the logger for logging events.
//
// Returns:
// - *Debouncer: the debouncer instance.
func NewDebouncer(delay time.Duration, logger *logrus.Logger) *Debouncer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Debouncer{
		delay:   delay,
		logger:  logger,
		settled: true,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Request schedules a fetch for the latest input. Any previously scheduled
// fetch is superseded: its result will be discarded if it completes later.
//
// Parameters:
// - fetch: the quote resolution to run after the debounce window.
// - commit: invoked with the result only while this request is still current.
func (d *Debouncer) Request(fetch QuoteFetch, commit QuoteCommit) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}

	d.generation++
	d.settled = false
	gen := d.generation

	if d.pending != nil {
		d.pending.Stop()
	}

	d.pending = time.AfterFunc(d.delay, func() {
		d.run(gen, fetch, commit)
	})
	d.mu.Unlock()
}

// Invalidate supersedes any outstanding fetch without scheduling a new one,
// used when the input becomes empty or unparsable.
func (d *Debouncer) Invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.generation++
	d.settled = true
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
}

// InFlight reports whether the latest request has not yet committed.
func (d *Debouncer) InFlight() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.settled
}

// Stop invalidates all outstanding work and cancels running fetches. The
// debouncer must not be used afterwards.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.generation++
	d.settled = true
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
	d.mu.Unlock()

	d.cancel()
}

// run executes the fetch and commits the result only if its generation is
// still the latest.
func (d *Debouncer) run(gen uint64, fetch QuoteFetch, commit QuoteCommit) {
	quote, err := fetch(d.ctx)

	d.mu.Lock()
	current := gen == d.generation && !d.stopped
	if current {
		d.settled = true
	}
	d.mu.Unlock()

	if !current {
		d.logger.WithField("generation", gen).Debug("Discarding stale quote result")
		return
	}

	commit(quote, err)
}
