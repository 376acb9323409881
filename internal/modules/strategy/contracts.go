// Package strategy implements the pluggable scan chain: event detectors,
// fund selectors, signal filters and signal evaluators, plus the executor
// that orders them per security.
package strategy

import (
	"errors"

	zlog "github.com/rs/zerolog/log"

	"github.com/aristath/arbscan/internal/clock"
	"github.com/aristath/arbscan/internal/modules/market"
	"github.com/aristath/arbscan/internal/modules/signals"
	"github.com/aristath/arbscan/internal/registry"
)

// Chain wiring errors. ErrConfig is the only one that escapes to the caller
// at assembly time; the rest surface as structured no-signal outcomes.
var (
	ErrConfig       = errors.New("chain config")
	ErrInvalidEvent = errors.New("invalid event")
	ErrNoCandidate  = errors.New("no candidate")
	ErrFilterReject = errors.New("filter reject")
)

// EventDetector turns a quote into an event when its rule fires.
type EventDetector interface {
	Name() string
	// Detect returns nil when the rule does not fire.
	Detect(quote *market.Quote) *market.Event
	// IsValid is the post-detection sanity predicate.
	IsValid(event *market.Event) bool
}

// FundSelector picks one ETF from the eligible set for an event.
type FundSelector interface {
	Name() string
	// Select returns nil when no fund qualifies.
	Select(eligible []market.HoldingEntry, event *market.Event) *market.HoldingEntry
	SelectionReason(fund market.HoldingEntry) string
}

// FilterResult is a filter's verdict on a draft signal.
type FilterResult struct {
	Reject bool
	Reason string
}

// Accept passes the signal through.
func Accept() FilterResult {
	return FilterResult{}
}

// RejectWith rejects the signal with a user-visible reason.
func RejectWith(reason string) FilterResult {
	return FilterResult{Reject: true, Reason: reason}
}

// SignalFilter accepts or rejects a constructed signal. Required filters
// abort the chain on rejection; advisory filters only record a warning.
type SignalFilter interface {
	Name() string
	Filter(event *market.Event, fund market.HoldingEntry, sig *signals.TradingSignal) FilterResult
	Required() bool
}

// SignalEvaluator assigns categorical confidence and risk to a signal.
type SignalEvaluator interface {
	Name() string
	Evaluate(event *market.Event, fund market.HoldingEntry) (signals.Confidence, signals.RiskLevel)
}

// One registry per strategy role. Plugins register in init so chain
// configuration can reference them purely by name.
var (
	Detectors  = registry.New[EventDetector]("event_detector", zlog.Logger)
	Selectors  = registry.New[FundSelector]("fund_selector", zlog.Logger)
	Filters    = registry.New[SignalFilter]("signal_filter", zlog.Logger)
	Evaluators = registry.New[SignalEvaluator]("evaluator", zlog.Logger)
)

// Config map helpers shared by the plugin factories.

func cfgFloat(cfg map[string]any, key string, def float64) float64 {
	if cfg == nil {
		return def
	}
	switch v := cfg[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return def
}

func cfgInt(cfg map[string]any, key string, def int) int {
	if cfg == nil {
		return def
	}
	switch v := cfg[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// cfgClock extracts an injected clock from a config map. The chain builder
// plants it under "clock" so registry-built filters and evaluators stay
// deterministic in replay; absent, factories fall back to the process-wide
// slot.
func cfgClock(cfg map[string]any) clock.Clock {
	if cfg == nil {
		return nil
	}
	if clk, ok := cfg["clock"].(clock.Clock); ok {
		return clk
	}
	return nil
}

func cfgString(cfg map[string]any, key, def string) string {
	if cfg == nil {
		return def
	}
	if v, ok := cfg[key].(string); ok && v != "" {
		return v
	}
	return def
}
