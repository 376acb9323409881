package strategy

import (
	"fmt"
	"time"

	"github.com/aristath/arbscan/internal/clock"
	"github.com/aristath/arbscan/internal/modules/market"
	"github.com/aristath/arbscan/internal/modules/signals"
	"github.com/aristath/arbscan/internal/registry"
)

func init() {
	Filters.Register("time_filter_cn", func(cfg map[string]any) (SignalFilter, error) {
		return NewTimeFilterCN(cfgInt(cfg, "min_time_to_close", 1800), cfgClock(cfg)), nil
	}, registry.Meta{Priority: 100, Version: "1.0.0", Description: "A-share time-to-close check"})

	Filters.Register("liquidity_filter", func(cfg map[string]any) (SignalFilter, error) {
		return NewLiquidityFilter(cfgFloat(cfg, "min_daily_amount", 50_000_000)), nil
	}, registry.Meta{Priority: 100, Version: "1.0.0", Description: "ETF daily turnover floor"})

	Filters.Register("risk_filter", func(cfg map[string]any) (SignalFilter, error) {
		return NewRiskFilter(
			cfgFloat(cfg, "max_top10_ratio", 0.70),
			cfgInt(cfg, "min_rank", 1),
		), nil
	}, registry.Meta{Priority: 50, Version: "1.0.0", Description: "concentration and rank warnings"})

	Filters.Register("confidence_filter", func(cfg map[string]any) (SignalFilter, error) {
		return NewConfidenceFilter(signals.Confidence(cfgString(cfg, "min_confidence", string(signals.ConfidenceMedium)))), nil
	}, registry.Meta{Priority: 40, Version: "1.0.0", Description: "minimum confidence warning"})
}

// TimeFilterCN rejects signals issued outside A-share trading hours or too
// close to the 15:00 close to act on. Required.
type TimeFilterCN struct {
	minTimeToClose int
	clk            clock.Clock
}

// NewTimeFilterCN creates the filter; a nil clk falls back to the
// process-wide clock.
func NewTimeFilterCN(minTimeToClose int, clk clock.Clock) *TimeFilterCN {
	return &TimeFilterCN{minTimeToClose: minTimeToClose, clk: resolveClock(clk)}
}

func (f *TimeFilterCN) Name() string   { return "time_filter_cn" }
func (f *TimeFilterCN) Required() bool { return true }

func (f *TimeFilterCN) Filter(_ *market.Event, _ market.HoldingEntry, _ *signals.TradingSignal) FilterResult {
	now := f.clk.Now(clock.ChinaTZ)

	open := time.Date(now.Year(), now.Month(), now.Day(), 9, 30, 0, 0, now.Location())
	close := time.Date(now.Year(), now.Month(), now.Day(), 15, 0, 0, 0, now.Location())
	if now.Before(open) || !now.Before(close) {
		return RejectWith("not in trading hours")
	}

	ttc := int(close.Sub(now).Seconds())
	if ttc < f.minTimeToClose {
		return RejectWith(fmt.Sprintf("only %d minutes to close", ttc/60))
	}

	return Accept()
}

// LiquidityFilter rejects when the chosen ETF's daily turnover is below the
// floor; a thin ETF cannot absorb the trade. Required.
type LiquidityFilter struct {
	minDailyAmount float64
}

// NewLiquidityFilter creates the filter with the turnover floor in
// currency units.
func NewLiquidityFilter(minDailyAmount float64) *LiquidityFilter {
	return &LiquidityFilter{minDailyAmount: minDailyAmount}
}

func (f *LiquidityFilter) Name() string   { return "liquidity_filter" }
func (f *LiquidityFilter) Required() bool { return true }

func (f *LiquidityFilter) Filter(_ *market.Event, _ market.HoldingEntry, sig *signals.TradingSignal) FilterResult {
	if sig.ETFAmount < f.minDailyAmount {
		return RejectWith(fmt.Sprintf("ETF daily turnover %.0f below %.0f", sig.ETFAmount, f.minDailyAmount))
	}
	return Accept()
}

// RiskFilter warns on concentrated ETFs and low-ranked holdings. Advisory.
type RiskFilter struct {
	maxTop10Ratio float64
	minRank       int
}

// NewRiskFilter creates the filter. minRank 0 disables the rank check.
func NewRiskFilter(maxTop10Ratio float64, minRank int) *RiskFilter {
	return &RiskFilter{maxTop10Ratio: maxTop10Ratio, minRank: minRank}
}

func (f *RiskFilter) Name() string   { return "risk_filter" }
func (f *RiskFilter) Required() bool { return false }

func (f *RiskFilter) Filter(_ *market.Event, fund market.HoldingEntry, _ *signals.TradingSignal) FilterResult {
	if fund.Top10Ratio > f.maxTop10Ratio {
		return RejectWith(fmt.Sprintf("holdings too concentrated (top10 %.1f%%)", fund.Top10Ratio*100))
	}
	if f.minRank > 0 && fund.Rank > f.minRank {
		return RejectWith(fmt.Sprintf("rank too low (#%d)", fund.Rank))
	}
	return Accept()
}

// ConfidenceFilter warns when evaluated confidence falls below a floor.
// Advisory; a signal without an evaluation yet counts as medium.
type ConfidenceFilter struct {
	minLevel int
}

// NewConfidenceFilter creates the filter.
func NewConfidenceFilter(min signals.Confidence) *ConfidenceFilter {
	return &ConfidenceFilter{minLevel: confidenceLevel(min)}
}

func confidenceLevel(c signals.Confidence) int {
	switch c {
	case signals.ConfidenceLow:
		return 1
	case signals.ConfidenceHigh:
		return 3
	default:
		return 2
	}
}

func (f *ConfidenceFilter) Name() string   { return "confidence_filter" }
func (f *ConfidenceFilter) Required() bool { return false }

func (f *ConfidenceFilter) Filter(_ *market.Event, _ market.HoldingEntry, sig *signals.TradingSignal) FilterResult {
	if confidenceLevel(sig.Confidence) < f.minLevel {
		return RejectWith(fmt.Sprintf("confidence too low (%s)", sig.Confidence))
	}
	return Accept()
}
