package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/arbscan/internal/clock"
	"github.com/aristath/arbscan/internal/modules/signals"
	testhelpers "github.com/aristath/arbscan/internal/testing"
)

func TestSignalRetentionJob(t *testing.T) {
	db, cleanup := testhelpers.NewTestDB(t, "signals")
	defer cleanup()

	now := time.Date(2024, 6, 3, 10, 0, 0, 0, clock.ChinaTZ)
	clk := clock.NewFrozen(now)
	repo := signals.NewSQLiteRepository(db, clk, zerolog.Nop())

	stale := &signals.TradingSignal{
		SignalID:  "SIG_20240101100000_600519",
		Timestamp: "2024-01-01 10:00:00",
		StockCode: "600519",
		ETFCode:   "510300",
	}
	fresh := &signals.TradingSignal{
		SignalID:  "SIG_20240601100000_300750",
		Timestamp: "2024-06-01 10:00:00",
		StockCode: "300750",
		ETFCode:   "159915",
	}
	require.NoError(t, repo.SaveAll(context.Background(), []*signals.TradingSignal{stale, fresh}))

	job := NewSignalRetentionJob(db, 90, clk, zerolog.Nop())
	assert.Equal(t, "signal_retention", job.Name())
	require.NoError(t, job.Run())

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	kept, err := repo.Get(context.Background(), fresh.SignalID)
	require.NoError(t, err)
	require.NotNil(t, kept)

	gone, err := repo.Get(context.Background(), stale.SignalID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestSignalRetentionJob_DefaultWindow(t *testing.T) {
	db, cleanup := testhelpers.NewTestDB(t, "signals")
	defer cleanup()

	job := NewSignalRetentionJob(db, 0, nil, zerolog.Nop())
	assert.Equal(t, 90, job.retentionDays)
	require.NoError(t, job.Run())
}
