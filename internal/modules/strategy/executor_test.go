package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/arbscan/internal/clock"
	"github.com/aristath/arbscan/internal/modules/market"
	"github.com/aristath/arbscan/internal/modules/signals"
)

// chainFixture is a full market snapshot: one limit-up stock held by two
// ETFs, with a liquid quote for the stronger one.
type chainFixture struct {
	quotes   *market.MemoryQuoteProvider
	holdings *market.MemoryHoldingProvider
	clk      *clock.FrozenClock
}

func newChainFixture(t *testing.T, at time.Time) *chainFixture {
	t.Helper()

	fx := &chainFixture{
		quotes:   market.NewMemoryQuoteProvider(),
		holdings: market.NewMemoryHoldingProvider(),
		clk:      clock.NewFrozen(at),
	}

	fx.quotes.SetQuote(market.Quote{
		Code:      "600519",
		Name:      "Kweichow Moutai",
		Price:     1815.0,
		ChangePct: 0.1001,
		Volume:    2_000_000,
		Amount:    120_000_000,
		IsLimitUp: true,
		Timestamp: at,
	})
	fx.quotes.SetQuote(market.Quote{
		Code:      "512880",
		Name:      "Securities ETF",
		Price:     1.05,
		ChangePct: 0.021,
		Amount:    90_000_000,
		Premium:   0.004,
		Timestamp: at,
	})
	fx.quotes.SetQuote(market.Quote{
		Code:      "510300",
		Name:      "CSI 300 ETF",
		Price:     3.52,
		ChangePct: 0.012,
		Amount:    40_000_000,
		Premium:   0.001,
		Timestamp: at,
	})

	fx.holdings.SetHoldings("600519", []market.HoldingEntry{
		holding("512880", 0.08, 1, 0.45),
		holding("510300", 0.06, 4, 0.40),
	})

	return fx
}

func (fx *chainFixture) executor(t *testing.T) *ChainExecutor {
	t.Helper()
	exec, err := BuildChain(DefaultChainConfig(), fx.quotes, fx.holdings, 0.03, fx.clk, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, exec.Validate())
	return exec
}

func TestChainExecutor_GeneratesSignal(t *testing.T) {
	fx := newChainFixture(t, chinaTime(14, 30))
	exec := fx.executor(t)

	out, err := exec.Execute(context.Background(), "600519")
	require.NoError(t, err)
	require.NotNil(t, out.Signal, "logs: %v", out.Logs)

	sig := out.Signal
	assert.Equal(t, "SIG_20240115143000_600519", sig.SignalID)
	assert.Equal(t, "2024-01-15 14:30:00", sig.Timestamp)
	assert.Equal(t, "600519", sig.StockCode)
	assert.Equal(t, "512880", sig.ETFCode)
	assert.Equal(t, 0.08, sig.ETFWeight)
	assert.Equal(t, 1.05, sig.ETFPrice)
	assert.Equal(t, 0.004, sig.ETFPremium)
	assert.Equal(t, 90_000_000.0, sig.ETFAmount)
	assert.Equal(t, 1, sig.WeightRank)
	assert.Equal(t, 120_000_000.0, sig.SealAmount)

	// Weight 8% alone grades medium; rank 1 promotes to high. 1800s to the
	// close leaves risk medium.
	assert.Equal(t, signals.ConfidenceHigh, sig.Confidence)
	assert.Equal(t, signals.RiskMedium, sig.RiskLevel)
	require.NoError(t, sig.Validate())
}

func TestChainExecutor_NoQuote(t *testing.T) {
	fx := newChainFixture(t, chinaTime(14, 30))
	exec := fx.executor(t)

	out, err := exec.Execute(context.Background(), "000001")
	require.NoError(t, err)
	assert.Nil(t, out.Signal)
	assert.Equal(t, "no quote", out.Reason)
}

func TestChainExecutor_NoEvent(t *testing.T) {
	fx := newChainFixture(t, chinaTime(14, 30))
	fx.quotes.SetQuote(market.Quote{Code: "600519", Name: "Kweichow Moutai", Price: 1700, ChangePct: 0.03})
	exec := fx.executor(t)

	out, err := exec.Execute(context.Background(), "600519")
	require.NoError(t, err)
	assert.Nil(t, out.Signal)
	assert.Equal(t, "no event detected", out.Reason)
}

func TestChainExecutor_InvalidEvent(t *testing.T) {
	fx := newChainFixture(t, chinaTime(14, 30))
	// Flagged limit-up but the change is below the validity floor.
	fx.quotes.SetQuote(market.Quote{Code: "600519", Price: 1700, ChangePct: 0.08, IsLimitUp: true})
	exec := fx.executor(t)

	out, err := exec.Execute(context.Background(), "600519")
	require.NoError(t, err)
	assert.Nil(t, out.Signal)
	assert.Equal(t, "event invalid", out.Reason)
}

func TestChainExecutor_NoEligibleFunds(t *testing.T) {
	fx := newChainFixture(t, chinaTime(14, 30))
	fx.holdings.SetHoldings("600519", []market.HoldingEntry{
		holding("510300", 0.01, 40, 0.40),
	})
	exec := fx.executor(t)

	out, err := exec.Execute(context.Background(), "600519")
	require.NoError(t, err)
	assert.Nil(t, out.Signal)
	assert.Equal(t, "no eligible funds", out.Reason)
}

func TestChainExecutor_NoETFQuote(t *testing.T) {
	fx := newChainFixture(t, chinaTime(14, 30))
	fx.quotes.RemoveQuote("512880")
	fx.quotes.RemoveQuote("510300")
	fx.holdings.SetHoldings("600519", []market.HoldingEntry{
		holding("512880", 0.08, 1, 0.45),
	})
	exec := fx.executor(t)

	out, err := exec.Execute(context.Background(), "600519")
	require.NoError(t, err)
	assert.Nil(t, out.Signal)
	assert.Equal(t, "no etf quote", out.Reason)
}

func TestChainExecutor_RequiredFilterRejects(t *testing.T) {
	// 14:45 leaves only 900s, under the 1800s floor.
	fx := newChainFixture(t, chinaTime(14, 45))
	exec := fx.executor(t)

	out, err := exec.Execute(context.Background(), "600519")
	require.NoError(t, err)
	assert.Nil(t, out.Signal)
	assert.Equal(t, "rejected by time_filter_cn: only 15 minutes to close", out.Reason)
}

func TestChainExecutor_AdvisoryFilterWarns(t *testing.T) {
	fx := newChainFixture(t, chinaTime(14, 30))
	cfg := DefaultChainConfig()
	cfg.SignalFilters = append(cfg.SignalFilters, "risk_filter")
	cfg.FilterConfigs = map[string]map[string]any{
		"risk_filter": {"max_top10_ratio": 0.40, "min_rank": 0},
	}

	exec, err := BuildChain(cfg, fx.quotes, fx.holdings, 0.03, fx.clk, zerolog.Nop())
	require.NoError(t, err)

	out, err := exec.Execute(context.Background(), "600519")
	require.NoError(t, err)
	require.NotNil(t, out.Signal, "advisory rejection must not drop the signal")

	assert.Contains(t, out.Logs, "600519: warning from risk_filter: holdings too concentrated (top10 45.0%)")
}

func TestChainExecutor_ProviderTimeout(t *testing.T) {
	fx := newChainFixture(t, chinaTime(14, 30))
	exec := fx.executor(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := exec.Execute(ctx, "600519")
	require.NoError(t, err)
	assert.Nil(t, out.Signal)
	assert.Equal(t, "no quote", out.Reason)
}

func TestBuildChain_UnknownComponent(t *testing.T) {
	cfg := DefaultChainConfig()
	cfg.EventDetector = "nope"

	_, err := BuildChain(cfg, market.NewMemoryQuoteProvider(), market.NewMemoryHoldingProvider(), 0.03, nil, zerolog.Nop())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfig)

	cfg = DefaultChainConfig()
	cfg.SignalFilters = []string{"missing_filter"}
	_, err = BuildChain(cfg, market.NewMemoryQuoteProvider(), market.NewMemoryHoldingProvider(), 0.03, nil, zerolog.Nop())
	assert.ErrorIs(t, err, ErrConfig)
}
