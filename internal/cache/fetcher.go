package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/arbscan/internal/clock"
)

// stopWait bounds how long Stop blocks on the refresh goroutine.
const stopWait = 2 * time.Second

// Fetcher produces a fresh value.
type Fetcher[V any] func(ctx context.Context) (V, error)

// CachedFetcher serves a single value through a TTL cache, with an optional
// background refresh loop that re-fetches before consumers see an expired
// entry.
type CachedFetcher[V any] struct {
	name    string
	fetch   Fetcher[V]
	cache   *TTLCache[V]
	refresh time.Duration
	log     zerolog.Logger

	mu      sync.Mutex
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewCachedFetcher wraps fetch with a TTL cache. refresh <= 0 disables the
// background loop; Get then loads on demand only.
func NewCachedFetcher[V any](name string, fetch Fetcher[V], clk clock.Clock, ttl, refresh time.Duration, log zerolog.Logger) *CachedFetcher[V] {
	return &CachedFetcher[V]{
		name:    name,
		fetch:   fetch,
		cache:   New[V](clk, ttl, 1),
		refresh: refresh,
		log:     log.With().Str("component", "cached_fetcher").Str("fetcher", name).Logger(),
	}
}

// Get returns the cached value, fetching on miss.
func (f *CachedFetcher[V]) Get(ctx context.Context) (V, error) {
	return f.cache.GetOrLoad(ctx, f.name, f.fetch)
}

// Invalidate drops the cached value so the next Get re-fetches.
func (f *CachedFetcher[V]) Invalidate() {
	f.cache.Delete(f.name)
}

// Stats exposes the underlying cache counters.
func (f *CachedFetcher[V]) Stats() Stats {
	return f.cache.Stats()
}

// Start launches the background refresh loop. No-op when refresh is disabled
// or the loop is already running.
func (f *CachedFetcher[V]) Start(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running || f.refresh <= 0 {
		return
	}
	f.stopCh = make(chan struct{})
	f.doneCh = make(chan struct{})
	f.running = true
	go f.loop(ctx, f.stopCh, f.doneCh)
	f.log.Debug().Dur("interval", f.refresh).Msg("Background refresh started")
}

// Stop signals the refresh loop and waits for it to exit, bounded so a
// fetch stuck in flight cannot hang shutdown.
func (f *CachedFetcher[V]) Stop() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	close(f.stopCh)
	done := f.doneCh
	f.running = false
	f.mu.Unlock()

	select {
	case <-done:
	case <-time.After(stopWait):
		f.log.Warn().Msg("Refresh loop did not stop in time")
	}
}

func (f *CachedFetcher[V]) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(f.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			v, err := f.fetch(ctx)
			if err != nil {
				f.log.Warn().Err(err).Msg("Background refresh failed, keeping cached value")
				continue
			}
			f.cache.Set(f.name, v)
		}
	}
}
