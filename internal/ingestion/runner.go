package ingestion

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"kaspa-market-watch/internal/cache"
	"kaspa-market-watch/internal/observability"
	"kaspa-market-watch/internal/state"
)

// Default dedupe retention.
const (
	DefaultDedupeTTL     = 48 * time.Hour
	DefaultDedupeMaxKeys = 5000
)

// RunnerOptions configures a Runner. Zero values fall back to defaults.
type RunnerOptions struct {
	Store   *state.FileStore
	Pollers []Poller

	// Levels, when set, is refreshed (TTL-gated) before pollers run so
	// listing and sale events see current level data.
	Levels *cache.LevelsCache

	DedupeTTL     time.Duration
	DedupeMaxKeys int
	Logger        *log.Logger
}

// Runner executes the scan cycle: load the snapshot, purge expired dedupe
// keys, run every poller isolating individual failures, persist. Ticks are
// serialized; a manual trigger overlapping the schedule waits its turn.
type Runner struct {
	store   *state.FileStore
	pollers []Poller
	levels  *cache.LevelsCache
	ttl     time.Duration
	maxKeys int
	logger  *log.Logger

	mu sync.Mutex
}

// NewRunner builds a Runner from options.
func NewRunner(opts RunnerOptions) *Runner {
	r := &Runner{
		store:   opts.Store,
		pollers: opts.Pollers,
		levels:  opts.Levels,
		ttl:     opts.DedupeTTL,
		maxKeys: opts.DedupeMaxKeys,
		logger:  opts.Logger,
	}
	if r.ttl <= 0 {
		r.ttl = DefaultDedupeTTL
	}
	if r.maxKeys <= 0 {
		r.maxKeys = DefaultDedupeMaxKeys
	}
	if r.logger == nil {
		r.logger = log.Default()
	}
	return r
}

// Tick runs one full scan cycle. A poller failure is logged and counted but
// never blocks the other sources or the final persist; only a failure to
// persist the snapshot is returned.
func (r *Runner) Tick(ctx context.Context, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	snap := r.store.Load()

	nowMillis := start.UnixMilli()
	snap.Sales.Purge(nowMillis, r.ttl, r.maxKeys)
	snap.TokenTrades.Purge(nowMillis, r.ttl, r.maxKeys)
	snap.DexTrades.Purge(nowMillis, r.ttl, r.maxKeys)
	observability.RecordDedupeSizes(len(snap.Sales), len(snap.TokenTrades), len(snap.DexTrades))

	if r.levels != nil {
		if err := r.levels.EnsureFresh(ctx); err != nil {
			r.logger.Printf("tick %s: levels refresh failed: %v", reason, err)
		}
	}

	for _, p := range r.pollers {
		err := p.Poll(ctx, snap, start)
		observability.RecordPollerRun(p.Name(), err)
		if err != nil {
			r.logger.Printf("tick %s: poller %s: %v", reason, p.Name(), err)
		}
	}

	if err := r.store.Save(snap); err != nil {
		return fmt.Errorf("tick %s: persist state: %w", reason, err)
	}

	observability.RecordTick(reason, time.Since(start).Seconds())
	observability.RecordTickCompleted(time.Now().Unix())
	return nil
}

// Mutate applies fn to the persisted snapshot under the tick lock, so
// operator edits never race a running cycle.
func (r *Runner) Mutate(fn func(*state.Snapshot)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := r.store.Load()
	fn(snap)
	return r.store.Save(snap)
}

// Inspect runs fn over the current snapshot under the tick lock.
func (r *Runner) Inspect(fn func(*state.Snapshot)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.store.Load())
}

// Reset discards the persisted snapshot.
func (r *Runner) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Reset()
}
