package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/arbscan/internal/clock"
	"github.com/aristath/arbscan/internal/modules/signals"
)

func TestTimeFilterCN_TradingWindow(t *testing.T) {
	f := NewTimeFilterCN(0, clock.NewFrozen(chinaTime(9, 29)))
	res := f.Filter(nil, holding("510300", 0.08, 2, 0.4), nil)
	assert.True(t, res.Reject)
	assert.Equal(t, "not in trading hours", res.Reason)

	f = NewTimeFilterCN(0, clock.NewFrozen(chinaTime(9, 30)))
	assert.False(t, f.Filter(nil, holding("510300", 0.08, 2, 0.4), nil).Reject)

	f = NewTimeFilterCN(0, clock.NewFrozen(chinaTime(15, 0)))
	res = f.Filter(nil, holding("510300", 0.08, 2, 0.4), nil)
	assert.True(t, res.Reject)
	assert.Equal(t, "not in trading hours", res.Reason)
}

func TestTimeFilterCN_MinTimeToClose(t *testing.T) {
	fund := holding("510300", 0.08, 2, 0.4)

	f := NewTimeFilterCN(1800, clock.NewFrozen(chinaTime(14, 45)))
	res := f.Filter(nil, fund, nil)
	assert.True(t, res.Reject)
	assert.Equal(t, "only 15 minutes to close", res.Reason)

	f = NewTimeFilterCN(1800, clock.NewFrozen(chinaTime(14, 0)))
	assert.False(t, f.Filter(nil, fund, nil).Reject)

	assert.True(t, f.Required())
}

func TestLiquidityFilter(t *testing.T) {
	f := NewLiquidityFilter(50_000_000)

	sig := &signals.TradingSignal{ETFAmount: 30_000_000}
	res := f.Filter(nil, holding("510300", 0.08, 2, 0.4), sig)
	assert.True(t, res.Reject)
	assert.Contains(t, res.Reason, "turnover")

	sig.ETFAmount = 80_000_000
	assert.False(t, f.Filter(nil, holding("510300", 0.08, 2, 0.4), sig).Reject)
	assert.True(t, f.Required())
}

func TestRiskFilter(t *testing.T) {
	f := NewRiskFilter(0.70, 10)

	res := f.Filter(nil, holding("510300", 0.08, 2, 0.85), nil)
	assert.True(t, res.Reject)
	assert.Equal(t, "holdings too concentrated (top10 85.0%)", res.Reason)

	res = f.Filter(nil, holding("510300", 0.08, 15, 0.4), nil)
	assert.True(t, res.Reject)
	assert.Equal(t, "rank too low (#15)", res.Reason)

	assert.False(t, f.Filter(nil, holding("510300", 0.08, 2, 0.4), nil).Reject)
	assert.False(t, f.Required())

	// A zero minRank disables the rank check.
	open := NewRiskFilter(0.70, 0)
	assert.False(t, open.Filter(nil, holding("510300", 0.08, 50, 0.4), nil).Reject)
}

func TestConfidenceFilter(t *testing.T) {
	f := NewConfidenceFilter(signals.ConfidenceMedium)

	low := &signals.TradingSignal{Confidence: signals.ConfidenceLow}
	assert.True(t, f.Filter(nil, holding("510300", 0.08, 2, 0.4), low).Reject)

	// No evaluation yet counts as medium and passes a medium floor.
	unrated := &signals.TradingSignal{}
	assert.False(t, f.Filter(nil, holding("510300", 0.08, 2, 0.4), unrated).Reject)

	high := &signals.TradingSignal{Confidence: signals.ConfidenceHigh}
	assert.False(t, f.Filter(nil, holding("510300", 0.08, 2, 0.4), high).Reject)
	assert.False(t, f.Required())
}

func TestFilterRegistryClockInjection(t *testing.T) {
	f, err := Filters.Create("time_filter_cn", map[string]any{
		"min_time_to_close": 1800,
		"clock":             clock.NewFrozen(chinaTime(14, 45)),
	})
	require.NoError(t, err)
	res := f.Filter(nil, holding("510300", 0.08, 2, 0.4), nil)
	assert.True(t, res.Reject)
	assert.Equal(t, "only 15 minutes to close", res.Reason)
}
