package strategy

import (
	"time"

	"github.com/aristath/arbscan/internal/clock"
	"github.com/aristath/arbscan/internal/modules/market"
	"github.com/aristath/arbscan/internal/modules/signals"
	"github.com/aristath/arbscan/internal/registry"
)

func init() {
	Evaluators.Register("default", func(cfg map[string]any) (SignalEvaluator, error) {
		return NewDefaultEvaluator(thresholdsFromConfig(cfg, DefaultThresholds()), cfgClock(cfg)), nil
	}, registry.Meta{Priority: 100, Version: "1.0.0", Description: "weight, rank, time and concentration based evaluation"})

	Evaluators.Register("conservative", func(cfg map[string]any) (SignalEvaluator, error) {
		return NewConservativeEvaluator(thresholdsFromConfig(cfg, ConservativeThresholds()), cfgClock(cfg)), nil
	}, registry.Meta{Priority: 90, Version: "1.0.0", Description: "stricter thresholds"})

	Evaluators.Register("aggressive", func(cfg map[string]any) (SignalEvaluator, error) {
		return NewAggressiveEvaluator(thresholdsFromConfig(cfg, AggressiveThresholds()), cfgClock(cfg)), nil
	}, registry.Meta{Priority: 80, Version: "1.0.0", Description: "looser thresholds"})
}

// EvaluationThresholds parameterizes the evaluator rules; the three preset
// evaluators share the same skeleton with different values.
type EvaluationThresholds struct {
	HighWeight   float64 // weight >= -> high confidence
	MediumWeight float64 // tiered variants: weight >= -> medium
	LowWeight    float64 // weight < -> low confidence

	HighRank   int // rank <= -> promote to high
	LowRank    int // rank > -> demote to low
	StrictRank int // conservative: rank > -> low

	RiskHighTimeSeconds int     // time to close < -> risk high
	RiskLowTimeSeconds  int     // time to close > -> risk low
	Top10RatioHigh      float64 // concentration above -> raise risk
	MorningHour         int     // before this hour, risk high -> medium
}

// DefaultThresholds is the balanced rule set.
func DefaultThresholds() EvaluationThresholds {
	return EvaluationThresholds{
		HighWeight:          0.10,
		LowWeight:           0.05,
		HighRank:            3,
		LowRank:             10,
		RiskHighTimeSeconds: 600,
		RiskLowTimeSeconds:  3600,
		Top10RatioHigh:      0.70,
		MorningHour:         10,
	}
}

// ConservativeThresholds tightens every rule.
func ConservativeThresholds() EvaluationThresholds {
	return EvaluationThresholds{
		HighWeight:          0.15,
		MediumWeight:        0.08,
		LowWeight:           0.05,
		HighRank:            3,
		StrictRank:          5,
		RiskHighTimeSeconds: 1800,
		RiskLowTimeSeconds:  7200,
		Top10RatioHigh:      0.60,
		MorningHour:         10,
	}
}

// AggressiveThresholds loosens every rule.
func AggressiveThresholds() EvaluationThresholds {
	return EvaluationThresholds{
		HighWeight:          0.08,
		MediumWeight:        0.03,
		LowWeight:           0.01,
		HighRank:            5,
		LowRank:             15,
		RiskHighTimeSeconds: 300,
		RiskLowTimeSeconds:  1800,
		Top10RatioHigh:      0.80,
		MorningHour:         10,
	}
}

func thresholdsFromConfig(cfg map[string]any, base EvaluationThresholds) EvaluationThresholds {
	base.HighWeight = cfgFloat(cfg, "confidence_high_weight", base.HighWeight)
	base.MediumWeight = cfgFloat(cfg, "confidence_medium_weight", base.MediumWeight)
	base.LowWeight = cfgFloat(cfg, "confidence_low_weight", base.LowWeight)
	base.HighRank = cfgInt(cfg, "confidence_high_rank", base.HighRank)
	base.LowRank = cfgInt(cfg, "confidence_low_rank", base.LowRank)
	base.StrictRank = cfgInt(cfg, "confidence_strict_rank", base.StrictRank)
	base.RiskHighTimeSeconds = cfgInt(cfg, "risk_high_time_seconds", base.RiskHighTimeSeconds)
	base.RiskLowTimeSeconds = cfgInt(cfg, "risk_low_time_seconds", base.RiskLowTimeSeconds)
	base.Top10RatioHigh = cfgFloat(cfg, "risk_top10_ratio_high", base.Top10RatioHigh)
	base.MorningHour = cfgInt(cfg, "risk_morning_hour", base.MorningHour)
	return base
}

// timeToClose returns seconds until the 15:00 close, or -1 outside the
// 09:00-15:00 window.
func timeToClose(clk clock.Clock) int {
	now := clk.Now(clock.ChinaTZ)
	if now.Hour() < 9 || now.Hour() >= 15 {
		return -1
	}
	close := time.Date(now.Year(), now.Month(), now.Day(), 15, 0, 0, 0, now.Location())
	return int(close.Sub(now).Seconds())
}

func resolveClock(clk clock.Clock) clock.Clock {
	if clk == nil {
		return clock.Get()
	}
	return clk
}

// DefaultEvaluator applies the balanced rule set: weight sets the baseline
// confidence, a good rank can promote it, time to close and concentration
// drive risk, and an early-morning event softens high risk.
type DefaultEvaluator struct {
	th  EvaluationThresholds
	clk clock.Clock
}

// NewDefaultEvaluator creates the evaluator; a nil clk falls back to the
// process-wide clock.
func NewDefaultEvaluator(th EvaluationThresholds, clk clock.Clock) *DefaultEvaluator {
	return &DefaultEvaluator{th: th, clk: resolveClock(clk)}
}

func (e *DefaultEvaluator) Name() string { return "default" }

func (e *DefaultEvaluator) Evaluate(_ *market.Event, fund market.HoldingEntry) (signals.Confidence, signals.RiskLevel) {
	confidence := signals.ConfidenceMedium
	risk := signals.RiskMedium

	if fund.Weight >= e.th.HighWeight {
		confidence = signals.ConfidenceHigh
	} else if fund.Weight < e.th.LowWeight {
		confidence = signals.ConfidenceLow
	}

	if fund.Rank >= 0 && fund.Rank <= e.th.HighRank {
		confidence = signals.ConfidenceHigh
	} else if fund.Rank > e.th.LowRank {
		confidence = signals.ConfidenceLow
	}

	ttc := timeToClose(e.clk)
	if ttc < e.th.RiskHighTimeSeconds {
		risk = signals.RiskHigh
	} else if ttc > e.th.RiskLowTimeSeconds {
		risk = signals.RiskLow
	}

	if fund.Top10Ratio > e.th.Top10RatioHigh {
		switch risk {
		case signals.RiskLow:
			risk = signals.RiskMedium
		case signals.RiskMedium:
			risk = signals.RiskHigh
		}
	}

	if e.clk.Now(clock.ChinaTZ).Hour() < e.th.MorningHour && risk == signals.RiskHigh {
		risk = signals.RiskMedium
	}

	return confidence, risk
}

// ConservativeEvaluator grades on a strict three-tier weight scale and a
// hard rank cutoff; concentration above threshold is always high risk.
type ConservativeEvaluator struct {
	th  EvaluationThresholds
	clk clock.Clock
}

// NewConservativeEvaluator creates the evaluator; a nil clk falls back to
// the process-wide clock.
func NewConservativeEvaluator(th EvaluationThresholds, clk clock.Clock) *ConservativeEvaluator {
	return &ConservativeEvaluator{th: th, clk: resolveClock(clk)}
}

func (e *ConservativeEvaluator) Name() string { return "conservative" }

func (e *ConservativeEvaluator) Evaluate(_ *market.Event, fund market.HoldingEntry) (signals.Confidence, signals.RiskLevel) {
	var confidence signals.Confidence
	switch {
	case fund.Weight >= e.th.HighWeight:
		confidence = signals.ConfidenceHigh
	case fund.Weight >= e.th.MediumWeight:
		confidence = signals.ConfidenceMedium
	default:
		confidence = signals.ConfidenceLow
	}

	if fund.Rank > e.th.StrictRank {
		confidence = signals.ConfidenceLow
	}

	risk := signals.RiskMedium
	ttc := timeToClose(e.clk)
	if ttc < e.th.RiskHighTimeSeconds {
		risk = signals.RiskHigh
	} else if ttc > e.th.RiskLowTimeSeconds {
		risk = signals.RiskLow
	}

	if fund.Top10Ratio > e.th.Top10RatioHigh {
		risk = signals.RiskHigh
	}

	return confidence, risk
}

// AggressiveEvaluator grades on the loose three-tier scale; rank can only
// nudge confidence one step, and concentration only lifts low risk to
// medium.
type AggressiveEvaluator struct {
	th  EvaluationThresholds
	clk clock.Clock
}

// NewAggressiveEvaluator creates the evaluator; a nil clk falls back to the
// process-wide clock.
func NewAggressiveEvaluator(th EvaluationThresholds, clk clock.Clock) *AggressiveEvaluator {
	return &AggressiveEvaluator{th: th, clk: resolveClock(clk)}
}

func (e *AggressiveEvaluator) Name() string { return "aggressive" }

func (e *AggressiveEvaluator) Evaluate(_ *market.Event, fund market.HoldingEntry) (signals.Confidence, signals.RiskLevel) {
	var confidence signals.Confidence
	switch {
	case fund.Weight >= e.th.HighWeight:
		confidence = signals.ConfidenceHigh
	case fund.Weight >= e.th.MediumWeight:
		confidence = signals.ConfidenceMedium
	default:
		confidence = signals.ConfidenceLow
	}

	if fund.Rank >= 0 && fund.Rank <= e.th.HighRank && confidence == signals.ConfidenceLow {
		confidence = signals.ConfidenceMedium
	}
	if fund.Rank > e.th.LowRank && confidence == signals.ConfidenceHigh {
		confidence = signals.ConfidenceMedium
	}

	risk := signals.RiskMedium
	ttc := timeToClose(e.clk)
	if ttc < e.th.RiskHighTimeSeconds {
		risk = signals.RiskHigh
	} else if ttc > e.th.RiskLowTimeSeconds {
		risk = signals.RiskLow
	}

	if fund.Top10Ratio > e.th.Top10RatioHigh && risk == signals.RiskLow {
		risk = signals.RiskMedium
	}

	return confidence, risk
}
