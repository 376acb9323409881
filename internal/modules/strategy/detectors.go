package strategy

import (
	"github.com/aristath/arbscan/internal/modules/market"
	"github.com/aristath/arbscan/internal/registry"
)

func init() {
	Detectors.Register("limit_up_cn", func(cfg map[string]any) (EventDetector, error) {
		return NewLimitUpDetector(cfgFloat(cfg, "min_change_pct", 0.095)), nil
	}, registry.Meta{Priority: 100, Version: "1.0.0", Description: "A-share limit-up detector"})

	Detectors.Register("breakout", func(cfg map[string]any) (EventDetector, error) {
		return NewBreakoutDetector(
			cfgFloat(cfg, "breakout_pct", 0.05),
			cfgFloat(cfg, "min_volume", 0),
		), nil
	}, registry.Meta{Priority: 50, Version: "1.0.0", Description: "breakout detector for markets without a hard limit"})
}

// LimitUpDetector fires when a quote is flagged at limit up. Validity
// additionally requires the day's change to clear minChangePct, so stale
// flags on small moves never produce signals.
type LimitUpDetector struct {
	minChangePct float64
}

// NewLimitUpDetector creates a detector with the given validity floor.
func NewLimitUpDetector(minChangePct float64) *LimitUpDetector {
	return &LimitUpDetector{minChangePct: minChangePct}
}

func (d *LimitUpDetector) Name() string { return "limit_up_cn" }

// Detect fires iff the quote carries the limit-up flag.
func (d *LimitUpDetector) Detect(quote *market.Quote) *market.Event {
	if quote == nil || !quote.IsLimitUp {
		return nil
	}

	metadata := map[string]any{}
	if quote.Amount > 0 {
		metadata["seal_amount"] = quote.Amount
	}

	return &market.Event{
		Type:         market.EventLimitUp,
		SecurityCode: quote.Code,
		SecurityName: quote.Name,
		Price:        quote.Price,
		ChangePct:    quote.ChangePct,
		TriggerPrice: quote.Price,
		TriggerTime:  quote.Timestamp,
		Volume:       quote.Volume,
		Amount:       quote.Amount,
		Metadata:     metadata,
	}
}

// IsValid requires the change to clear the validity floor.
func (d *LimitUpDetector) IsValid(event *market.Event) bool {
	return event != nil && event.ChangePct >= d.minChangePct
}

// BreakoutDetector fires on a raw percentage move, for markets without a
// hard daily limit.
type BreakoutDetector struct {
	breakoutPct float64
	minVolume   float64
}

// NewBreakoutDetector creates a detector firing at breakoutPct; validity
// requires at least minVolume traded.
func NewBreakoutDetector(breakoutPct, minVolume float64) *BreakoutDetector {
	return &BreakoutDetector{breakoutPct: breakoutPct, minVolume: minVolume}
}

func (d *BreakoutDetector) Name() string { return "breakout" }

// Detect fires iff the change percentage reaches the breakout threshold.
func (d *BreakoutDetector) Detect(quote *market.Quote) *market.Event {
	if quote == nil || quote.ChangePct < d.breakoutPct {
		return nil
	}
	return &market.Event{
		Type:         market.EventBreakout,
		SecurityCode: quote.Code,
		SecurityName: quote.Name,
		Price:        quote.Price,
		ChangePct:    quote.ChangePct,
		TriggerPrice: quote.Price,
		TriggerTime:  quote.Timestamp,
		Volume:       quote.Volume,
		Amount:       quote.Amount,
	}
}

// IsValid requires the traded volume floor.
func (d *BreakoutDetector) IsValid(event *market.Event) bool {
	return event != nil && event.Volume >= d.minVolume
}
