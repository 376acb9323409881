package replay

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/arbscan/internal/clock"
	"github.com/aristath/arbscan/internal/modules/market"
)

func dayQuote(code string, day string, changePct float64) market.Quote {
	ts, _ := time.ParseInLocation(dailyKeyLayout, day, clock.ChinaTZ)
	return market.Quote{
		Code:      code,
		Name:      code + " Inc",
		Price:     10 * (1 + changePct),
		ChangePct: changePct,
		Volume:    1_000_000,
		Amount:    80_000_000,
		Timestamp: ts,
	}
}

func TestCacheFileName(t *testing.T) {
	assert.Equal(t, "stock_600519_20240115_20240116_daily.json",
		CacheFileName(KindStock, "600519", "20240115", "20240116", GranularityDaily))
	assert.Equal(t, "etf_510300_20240115_20240116_5m.json",
		CacheFileName(KindETF, "510300", "20240115", "20240116", Granularity5m))
}

func TestLoader_SaveAndLoad(t *testing.T) {
	loader := NewLoader(t.TempDir(), zerolog.Nop())

	quotes := map[string]market.Quote{
		"2024-01-15": dayQuote("600519", "2024-01-15", 0.1001),
		"2024-01-16": dayQuote("600519", "2024-01-16", 0.02),
	}
	require.NoError(t, loader.SaveQuotes(KindStock, "600519", "20240115", "20240116", GranularityDaily, quotes))

	series, err := loader.Load(KindStock, "600519", "20240115", "20240116", GranularityDaily)
	require.NoError(t, err)

	assert.Equal(t, 2, series.Len())
	assert.Equal(t, []string{"2024-01-15", "2024-01-16"}, series.Keys())

	first, last := series.Range()
	assert.Equal(t, "2024-01-15", first)
	assert.Equal(t, "2024-01-16", last)

	q, ok := series.At("2024-01-15")
	require.True(t, ok)
	assert.Equal(t, 0.1001, q.ChangePct)
}

func TestLoader_RecomputesLimitUpFlag(t *testing.T) {
	loader := NewLoader(t.TempDir(), zerolog.Nop())

	// The on-disk flag is ignored; the board-specific threshold decides.
	mainBoard := dayQuote("600519", "2024-01-15", 0.1001)
	mainBoard.IsLimitUp = false
	chiNext := dayQuote("300750", "2024-01-15", 0.11)
	chiNext.IsLimitUp = true

	require.NoError(t, loader.SaveQuotes(KindStock, "600519", "20240115", "20240115", GranularityDaily,
		map[string]market.Quote{"2024-01-15": mainBoard}))
	require.NoError(t, loader.SaveQuotes(KindStock, "300750", "20240115", "20240115", GranularityDaily,
		map[string]market.Quote{"2024-01-15": chiNext}))

	series, err := loader.Load(KindStock, "600519", "20240115", "20240115", GranularityDaily)
	require.NoError(t, err)
	q, _ := series.At("2024-01-15")
	assert.True(t, q.IsLimitUp, "10.01%% clears the 10%% main-board threshold")

	series, err = loader.Load(KindStock, "300750", "20240115", "20240115", GranularityDaily)
	require.NoError(t, err)
	q, _ = series.At("2024-01-15")
	assert.False(t, q.IsLimitUp, "11%% does not clear the 20%% ChiNext threshold")
}

func TestLoader_MissingFileIsNoData(t *testing.T) {
	loader := NewLoader(t.TempDir(), zerolog.Nop())
	_, err := loader.Load(KindStock, "600519", "20240115", "20240116", GranularityDaily)
	require.Error(t, err)
	assert.ErrorIs(t, err, market.ErrNoData)
}

func TestLoader_IntradayKeys(t *testing.T) {
	loader := NewLoader(t.TempDir(), zerolog.Nop())

	ts := time.Date(2024, 1, 15, 10, 30, 0, 0, clock.ChinaTZ)
	q := dayQuote("600519", "2024-01-15", 0.05)
	q.Timestamp = ts
	require.NoError(t, loader.SaveQuotes(KindStock, "600519", "20240115", "20240115", Granularity5m,
		map[string]market.Quote{"2024-01-15 10:30:00": q}))

	series, err := loader.Load(KindStock, "600519", "20240115", "20240115", Granularity5m)
	require.NoError(t, err)

	got, ok := series.At("2024-01-15 10:30:00")
	require.True(t, ok)
	assert.True(t, got.Timestamp.Equal(ts))
}

func TestHistoricalQuoteProvider(t *testing.T) {
	loader := NewLoader(t.TempDir(), zerolog.Nop())
	require.NoError(t, loader.SaveQuotes(KindStock, "600519", "20240115", "20240116", GranularityDaily,
		map[string]market.Quote{
			"2024-01-15": dayQuote("600519", "2024-01-15", 0.1001),
			"2024-01-16": dayQuote("600519", "2024-01-16", 0.02),
		}))
	series, err := loader.Load(KindStock, "600519", "20240115", "20240116", GranularityDaily)
	require.NoError(t, err)

	provider := NewHistoricalQuoteProvider(GranularityDaily)
	provider.AddSeries(series)

	ctx := context.Background()

	// No instant set yet.
	_, err = provider.GetQuote(ctx, "600519")
	assert.ErrorIs(t, err, market.ErrNoData)

	provider.SetInstant(time.Date(2024, 1, 15, 14, 0, 0, 0, clock.ChinaTZ))
	q, err := provider.GetQuote(ctx, "600519")
	require.NoError(t, err)
	assert.Equal(t, 0.1001, q.ChangePct)
	assert.True(t, q.IsLimitUp)

	provider.SetInstant(time.Date(2024, 1, 17, 14, 0, 0, 0, clock.ChinaTZ))
	_, err = provider.GetQuote(ctx, "600519")
	assert.ErrorIs(t, err, market.ErrNoData)

	_, err = provider.GetQuote(ctx, "000001")
	assert.ErrorIs(t, err, market.ErrNoData)

	coverage := provider.Coverage()
	require.Len(t, coverage, 1)
	assert.Equal(t, Coverage{Code: "600519", Kind: "stock", Records: 2,
		First: "2024-01-15", Last: "2024-01-16"}, coverage[0])
}

func TestHistoricalHoldingProvider_StepAndLinear(t *testing.T) {
	early := HoldingsSnapshot{
		Date: "20240110",
		Holdings: map[string][]market.HoldingEntry{
			"600519": {{ETFCode: "510300", ETFName: "CSI 300 ETF", Weight: 0.08, Rank: 1, Top10Ratio: 0.25}},
		},
	}
	late := HoldingsSnapshot{
		Date: "20240120",
		Holdings: map[string][]market.HoldingEntry{
			"600519": {{ETFCode: "510300", ETFName: "CSI 300 ETF", Weight: 0.12, Rank: 1, Top10Ratio: 0.25}},
		},
	}

	ctx := context.Background()

	step := NewHistoricalHoldingProvider("step")
	step.AddSnapshot(late)
	step.AddSnapshot(early)
	step.SetInstant(time.Date(2024, 1, 15, 14, 0, 0, 0, clock.ChinaTZ))

	entries, err := step.FindETFsHolding(ctx, "600519")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 0.08, entries[0].Weight, "step carries the earlier snapshot forward")

	linear := NewHistoricalHoldingProvider("linear")
	linear.AddSnapshot(early)
	linear.AddSnapshot(late)
	linear.SetInstant(time.Date(2024, 1, 15, 14, 0, 0, 0, clock.ChinaTZ))

	entries, err = linear.FindETFsHolding(ctx, "600519")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.InDelta(t, 0.10, entries[0].Weight, 1e-9, "midpoint of 0.08 and 0.12")

	// Before any snapshot: nothing.
	linear.SetInstant(time.Date(2024, 1, 5, 14, 0, 0, 0, clock.ChinaTZ))
	entries, err = linear.FindETFsHolding(ctx, "600519")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
