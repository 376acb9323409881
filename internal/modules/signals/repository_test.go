package signals

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/arbscan/internal/clock"
	testhelpers "github.com/aristath/arbscan/internal/testing"
)

func signalAt(t *testing.T, ts time.Time, stockCode string) *TradingSignal {
	t.Helper()
	return &TradingSignal{
		SignalID:   NewSignalID(ts, stockCode),
		Timestamp:  ts.Format(TimestampLayout),
		StockCode:  stockCode,
		StockName:  "stock " + stockCode,
		ETFCode:    "510300",
		ETFName:    "CSI 300 ETF",
		ETFWeight:  0.08,
		WeightRank: 1,
		Top10Ratio: 0.25,
		Confidence: ConfidenceHigh,
		RiskLevel:  RiskMedium,
	}
}

// repoUnderTest runs the same contract suite against both implementations.
func repoUnderTest(t *testing.T, name string, build func(t *testing.T, clk clock.Clock) Repository) {
	t.Helper()
	frozen := clock.NewFrozen(time.Date(2024, 1, 15, 14, 30, 0, 0, clock.ChinaTZ))

	t.Run(name+"/save_and_get", func(t *testing.T) {
		repo := build(t, frozen)
		ctx := context.Background()

		s := signalAt(t, frozen.Now(nil), "600519")
		require.NoError(t, repo.Save(ctx, s))

		got, err := repo.Get(ctx, s.SignalID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, s.SignalID, got.SignalID)
		assert.Equal(t, ConfidenceHigh, got.Confidence)

		missing, err := repo.Get(ctx, "SIG_unknown")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run(name+"/save_rejects_invalid", func(t *testing.T) {
		repo := build(t, frozen)
		s := signalAt(t, frozen.Now(nil), "600519")
		s.ETFCode = ""
		assert.Error(t, repo.Save(context.Background(), s))
	})

	t.Run(name+"/save_all_and_count", func(t *testing.T) {
		repo := build(t, frozen)
		ctx := context.Background()

		var batch []*TradingSignal
		for i := 0; i < 3; i++ {
			ts := frozen.Now(nil).Add(time.Duration(i) * time.Minute)
			batch = append(batch, signalAt(t, ts, fmt.Sprintf("60051%d", i)))
		}
		require.NoError(t, repo.SaveAll(ctx, batch))

		count, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, count)

		all, err := repo.GetAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run(name+"/get_today_filters_by_date", func(t *testing.T) {
		repo := build(t, frozen)
		ctx := context.Background()

		today := signalAt(t, frozen.Now(nil), "600519")
		yesterday := signalAt(t, frozen.Now(nil).AddDate(0, 0, -1), "000001")
		require.NoError(t, repo.SaveAll(ctx, []*TradingSignal{today, yesterday}))

		got, err := repo.GetToday(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "600519", got[0].StockCode)
	})

	t.Run(name+"/get_recent_newest_first", func(t *testing.T) {
		repo := build(t, frozen)
		ctx := context.Background()

		for i := 0; i < 5; i++ {
			ts := frozen.Now(nil).Add(time.Duration(i) * time.Minute)
			require.NoError(t, repo.Save(ctx, signalAt(t, ts, fmt.Sprintf("60000%d", i))))
		}

		recent, err := repo.GetRecent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, "600004", recent[0].StockCode)
		assert.Equal(t, "600003", recent[1].StockCode)
	})

	t.Run(name+"/clear", func(t *testing.T) {
		repo := build(t, frozen)
		ctx := context.Background()

		require.NoError(t, repo.Save(ctx, signalAt(t, frozen.Now(nil), "600519")))
		require.NoError(t, repo.Clear(ctx))

		count, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}

func TestMemoryRepository(t *testing.T) {
	repoUnderTest(t, "memory", func(t *testing.T, clk clock.Clock) Repository {
		return NewMemoryRepository(clk)
	})
}

func TestSQLiteRepository(t *testing.T) {
	repoUnderTest(t, "sqlite", func(t *testing.T, clk clock.Clock) Repository {
		db, cleanup := testhelpers.NewTestDB(t, "signals")
		t.Cleanup(cleanup)
		return NewSQLiteRepository(db, clk, zerolog.Nop())
	})
}

func TestMemoryRepository_SaveCopies(t *testing.T) {
	frozen := clock.NewFrozen(time.Date(2024, 1, 15, 14, 30, 0, 0, clock.ChinaTZ))
	repo := NewMemoryRepository(frozen)
	ctx := context.Background()

	s := signalAt(t, frozen.Now(nil), "600519")
	require.NoError(t, repo.Save(ctx, s))

	s.Reason = "mutated after save"
	got, err := repo.Get(ctx, s.SignalID)
	require.NoError(t, err)
	assert.Empty(t, got.Reason)
}

func TestSinks(t *testing.T) {
	s := sampleSignal()

	assert.NoError(t, NewLogSink(zerolog.Nop()).Send(s))
	assert.NoError(t, NullSink{}.Send(s))
}

func TestSinkFromConfig(t *testing.T) {
	sink := SinkFromConfig(false, "log", zerolog.Nop())
	assert.IsType(t, NullSink{}, sink)

	sink = SinkFromConfig(true, "", zerolog.Nop())
	assert.IsType(t, &LogSink{}, sink)

	sink = SinkFromConfig(true, "null", zerolog.Nop())
	assert.IsType(t, NullSink{}, sink)

	sink = SinkFromConfig(true, "nonexistent", zerolog.Nop())
	assert.IsType(t, &LogSink{}, sink)
}

func TestSenderRegistry_HasDefaults(t *testing.T) {
	assert.True(t, Senders.Has("log"))
	assert.True(t, Senders.Has("null"))
}
