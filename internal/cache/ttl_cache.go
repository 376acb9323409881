// Package cache provides a TTL-bounded in-memory cache and a cached fetcher
// with optional background refresh. Both take an injected clock so expiry is
// fully deterministic under test.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/aristath/arbscan/internal/clock"
)

// Stats holds cumulative cache counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Sets      int64
	Evictions int64
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is a bounded map with per-entry expiry. When full, the entry
// inserted earliest is evicted first. Expired entries are dropped lazily on
// read, counting as both a miss and an eviction.
type TTLCache[V any] struct {
	mu      sync.Mutex
	clk     clock.Clock
	ttl     time.Duration
	maxSize int
	entries map[string]entry[V]
	order   []string
	stats   Stats
}

// New creates a cache with the given default TTL and capacity. A nil clk
// falls back to the process-wide clock. maxSize <= 0 means unbounded.
func New[V any](clk clock.Clock, ttl time.Duration, maxSize int) *TTLCache[V] {
	if clk == nil {
		clk = clock.Get()
	}
	return &TTLCache[V]{
		clk:     clk,
		ttl:     ttl,
		maxSize: maxSize,
		entries: make(map[string]entry[V]),
	}
}

// Get returns the cached value for key if present and not expired.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}
	if !c.clk.Now(nil).Before(e.expiresAt) {
		c.removeLocked(key)
		c.stats.Misses++
		c.stats.Evictions++
		var zero V
		return zero, false
	}
	c.stats.Hits++
	return e.value, true
}

// Set stores value under key with the cache's default TTL.
func (c *TTLCache[V]) Set(key string, value V) {
	c.SetTTL(key, value, c.ttl)
}

// SetTTL stores value under key with an entry-specific TTL, evicting the
// oldest entry first when the cache is at capacity.
func (c *TTLCache[V]) SetTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		if c.maxSize > 0 && len(c.entries) >= c.maxSize {
			c.evictOldestLocked()
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = entry[V]{
		value:     value,
		expiresAt: c.clk.Now(nil).Add(ttl),
	}
	c.stats.Sets++
}

// GetOrLoad returns the cached value or calls loader and caches the result.
// The loader runs outside the cache lock, so concurrent callers for the same
// missing key may each invoke it; the last result wins.
func (c *TTLCache[V]) GetOrLoad(ctx context.Context, key string, loader func(ctx context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := loader(ctx)
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(key, v)
	return v, nil
}

// Delete removes key if present.
func (c *TTLCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(key)
}

// Clear drops all entries. Counters are preserved.
func (c *TTLCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
	c.order = nil
}

// Len returns the number of stored entries, including expired ones not yet
// dropped.
func (c *TTLCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// CleanupExpired sweeps expired entries and returns how many were removed.
// Removals count as evictions.
func (c *TTLCache[V]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clk.Now(nil)
	removed := 0
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			c.removeLocked(key)
			c.stats.Evictions++
			removed++
		}
	}
	return removed
}

// Stats returns a snapshot of the counters.
func (c *TTLCache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *TTLCache[V]) evictOldestLocked() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
	c.stats.Evictions++
}

func (c *TTLCache[V]) removeLocked(key string) {
	if _, ok := c.entries[key]; !ok {
		return
	}
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
