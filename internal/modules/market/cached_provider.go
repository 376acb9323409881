package market

import (
	"context"
	"time"

	"github.com/aristath/arbscan/internal/cache"
	"github.com/aristath/arbscan/internal/clock"
)

// CachedQuoteProvider wraps another provider with a short TTL cache, so one
// scan tick does not refetch the same ETF quote for every security that
// resolves to it.
type CachedQuoteProvider struct {
	inner QuoteProvider
	cache *cache.TTLCache[Quote]
}

// NewCachedQuoteProvider wraps inner. Non-positive ttl falls back to 5s,
// roughly the vendor's update cadence; maxSize <= 0 means unbounded.
func NewCachedQuoteProvider(inner QuoteProvider, clk clock.Clock, ttl time.Duration, maxSize int) *CachedQuoteProvider {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &CachedQuoteProvider{
		inner: inner,
		cache: cache.New[Quote](clk, ttl, maxSize),
	}
}

// GetQuote serves from cache, loading through the inner provider on miss.
// Provider errors are not cached; the next call retries.
func (p *CachedQuoteProvider) GetQuote(ctx context.Context, code string) (*Quote, error) {
	q, err := p.cache.GetOrLoad(ctx, code, func(ctx context.Context) (Quote, error) {
		fresh, err := p.inner.GetQuote(ctx, code)
		if err != nil {
			return Quote{}, err
		}
		return *fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// Stats exposes the underlying cache counters.
func (p *CachedQuoteProvider) Stats() cache.Stats {
	return p.cache.Stats()
}
