package market

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/arbscan/internal/clock"
)

// countingProvider counts calls through to an inner memory provider.
type countingProvider struct {
	inner *MemoryQuoteProvider
	calls int
}

func (p *countingProvider) GetQuote(ctx context.Context, code string) (*Quote, error) {
	p.calls++
	return p.inner.GetQuote(ctx, code)
}

func TestCachedQuoteProvider(t *testing.T) {
	base := time.Date(2024, 1, 15, 14, 30, 0, 0, clock.ChinaTZ)
	clk := clock.NewShift(clock.NewFrozen(base), 0)

	inner := &countingProvider{inner: NewMemoryQuoteProvider()}
	inner.inner.SetQuote(Quote{Code: "510300", Price: 3.52, Timestamp: base})

	cached := NewCachedQuoteProvider(inner, clk, 5*time.Second, 0)
	ctx := context.Background()

	q, err := cached.GetQuote(ctx, "510300")
	require.NoError(t, err)
	assert.Equal(t, 3.52, q.Price)
	assert.Equal(t, 1, inner.calls)

	// Within the TTL the inner provider is not touched again.
	_, err = cached.GetQuote(ctx, "510300")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)

	// Past the TTL the quote is refetched.
	clk.SetOffset(6 * time.Second)
	_, err = cached.GetQuote(ctx, "510300")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)

	stats := cached.Stats()
	assert.Equal(t, int64(1), stats.Hits)
}

func TestCachedQuoteProvider_ErrorsNotCached(t *testing.T) {
	inner := &countingProvider{inner: NewMemoryQuoteProvider()}
	cached := NewCachedQuoteProvider(inner, clock.NewFrozen(time.Now()), 5*time.Second, 0)
	ctx := context.Background()

	_, err := cached.GetQuote(ctx, "600519")
	require.ErrorIs(t, err, ErrNoData)

	inner.inner.SetQuote(Quote{Code: "600519", Price: 1815})
	q, err := cached.GetQuote(ctx, "600519")
	require.NoError(t, err, fmt.Sprintf("calls=%d", inner.calls))
	assert.Equal(t, 1815.0, q.Price)
	assert.Equal(t, 2, inner.calls)
}
