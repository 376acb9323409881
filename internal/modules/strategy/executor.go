package strategy

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/rs/zerolog"

	"github.com/aristath/arbscan/internal/clock"
	"github.com/aristath/arbscan/internal/modules/market"
	"github.com/aristath/arbscan/internal/modules/signals"
)

// Outcome is the result of one chain run for one security. Signal is nil
// when the chain stopped early; Reason says where and why. Logs records the
// step-by-step trace either way.
type Outcome struct {
	Signal *signals.TradingSignal
	Reason string
	Logs   []string
}

// ChainExecutor runs one configured chain against live or replayed market
// data: detect an event, pick the best ETF holding it, build a signal, pass
// it through the filters and grade it.
type ChainExecutor struct {
	detector  EventDetector
	selector  FundSelector
	filters   []SignalFilter
	evaluator SignalEvaluator

	quotes   market.QuoteProvider
	holdings market.HoldingProvider

	minWeight float64
	clk       clock.Clock
	log       zerolog.Logger
}

// NewChainExecutor wires an executor from already-constructed components.
// evaluator may be nil; the signal then keeps the draft medium/medium grade.
// A nil clk falls back to the process-wide clock.
func NewChainExecutor(
	detector EventDetector,
	selector FundSelector,
	filters []SignalFilter,
	evaluator SignalEvaluator,
	quotes market.QuoteProvider,
	holdings market.HoldingProvider,
	minWeight float64,
	clk clock.Clock,
	log zerolog.Logger,
) *ChainExecutor {
	return &ChainExecutor{
		detector:  detector,
		selector:  selector,
		filters:   filters,
		evaluator: evaluator,
		quotes:    quotes,
		holdings:  holdings,
		minWeight: minWeight,
		clk:       resolveClock(clk),
		log:       log.With().Str("component", "chain_executor").Logger(),
	}
}

// Validate checks the executor is runnable.
func (e *ChainExecutor) Validate() error {
	if e.detector == nil {
		return fmt.Errorf("%w: nil event detector", ErrConfig)
	}
	if e.selector == nil {
		return fmt.Errorf("%w: nil fund selector", ErrConfig)
	}
	if e.quotes == nil {
		return fmt.Errorf("%w: nil quote provider", ErrConfig)
	}
	if e.holdings == nil {
		return fmt.Errorf("%w: nil holding provider", ErrConfig)
	}
	return nil
}

// Execute runs the chain for one security. Errors are reserved for provider
// failures; a chain that stops on its own rules returns a nil-signal Outcome.
func (e *ChainExecutor) Execute(ctx context.Context, securityCode string) (Outcome, error) {
	out := Outcome{}
	step := func(format string, args ...any) {
		out.Logs = append(out.Logs, fmt.Sprintf(format, args...))
	}

	quote, err := e.quotes.GetQuote(ctx, securityCode)
	if err != nil && !isQuoteMiss(err) {
		return out, fmt.Errorf("quote %s: %w", securityCode, err)
	}
	if quote == nil {
		out.Reason = "no quote"
		step("%s: no quote", securityCode)
		return out, nil
	}
	step("%s: quote %.2f (%.2f%%)", securityCode, quote.Price, quote.ChangePct*100)

	event := e.detector.Detect(quote)
	if event == nil {
		out.Reason = "no event detected"
		step("%s: no %s event", securityCode, e.detector.Name())
		return out, nil
	}
	step("%s: %s event detected", securityCode, event.Type)

	if !e.detector.IsValid(event) {
		out.Reason = "event invalid"
		step("%s: event failed validation", securityCode)
		return out, nil
	}

	entries, err := e.holdings.FindETFsHolding(ctx, securityCode)
	if err != nil {
		return out, fmt.Errorf("holdings %s: %w", securityCode, err)
	}
	eligible := entries[:0:0]
	for _, h := range entries {
		if h.Weight >= e.minWeight {
			eligible = append(eligible, h)
		}
	}
	if len(eligible) == 0 {
		out.Reason = "no eligible funds"
		step("%s: no ETF holds it at weight >= %.3f", securityCode, e.minWeight)
		return out, nil
	}
	step("%s: %d eligible ETFs", securityCode, len(eligible))

	fund := e.selector.Select(eligible, event)
	if fund == nil {
		out.Reason = "no fund selected"
		step("%s: %s selected nothing", securityCode, e.selector.Name())
		return out, nil
	}
	step("%s: selected %s (%s)", securityCode, fund.ETFCode, e.selector.SelectionReason(*fund))

	etfQuote, err := e.quotes.GetQuote(ctx, fund.ETFCode)
	if err != nil && !isQuoteMiss(err) {
		return out, fmt.Errorf("etf quote %s: %w", fund.ETFCode, err)
	}
	if etfQuote == nil {
		out.Reason = "no etf quote"
		step("%s: no quote for ETF %s", securityCode, fund.ETFCode)
		return out, nil
	}

	sig := e.buildSignal(event, *fund, etfQuote)

	for _, f := range e.filters {
		res := f.Filter(event, *fund, sig)
		if !res.Reject {
			continue
		}
		if f.Required() {
			out.Reason = fmt.Sprintf("rejected by %s: %s", f.Name(), res.Reason)
			step("%s: %s", securityCode, out.Reason)
			return out, nil
		}
		step("%s: warning from %s: %s", securityCode, f.Name(), res.Reason)
	}

	if e.evaluator != nil {
		sig.Confidence, sig.RiskLevel = e.evaluator.Evaluate(event, *fund)
		step("%s: graded %s confidence, %s risk", securityCode, sig.Confidence, sig.RiskLevel)
	}

	e.log.Info().
		Str("signal_id", sig.SignalID).
		Str("stock", sig.StockCode).
		Str("etf", sig.ETFCode).
		Str("confidence", string(sig.Confidence)).
		Str("risk", string(sig.RiskLevel)).
		Msg("Signal generated")

	out.Signal = sig
	return out, nil
}

// isQuoteMiss reports provider errors the chain absorbs as "no quote"
// rather than surfacing as faults.
func isQuoteMiss(err error) bool {
	return errors.Is(err, market.ErrNoData) || errors.Is(err, market.ErrProviderTimeout)
}

func (e *ChainExecutor) buildSignal(event *market.Event, fund market.HoldingEntry, etfQuote *market.Quote) *signals.TradingSignal {
	now := e.clk.Now(clock.ChinaTZ)
	sig := &signals.TradingSignal{
		SignalID:  signals.NewSignalID(now, event.SecurityCode),
		Timestamp: now.Format(signals.TimestampLayout),

		StockCode:  event.SecurityCode,
		StockName:  event.SecurityName,
		StockPrice: event.Price,
		ChangePct:  event.ChangePct,

		ETFCode:    fund.ETFCode,
		ETFName:    fund.ETFName,
		ETFWeight:  fund.Weight,
		ETFPrice:   etfQuote.Price,
		ETFPremium: etfQuote.Premium,
		ETFAmount:  etfQuote.Amount,

		Reason:     e.selector.SelectionReason(fund),
		Confidence: signals.ConfidenceMedium,
		RiskLevel:  signals.RiskMedium,

		ActualWeight: fund.Weight,
		WeightRank:   fund.Rank,
		Top10Ratio:   fund.Top10Ratio,
	}
	if t, ok := event.Meta("limit_time").(string); ok {
		sig.LimitTime = t
	}
	if amount, ok := event.MetaFloat("seal_amount"); ok {
		sig.SealAmount = amount
	}
	return sig
}

// BuildChain assembles an executor from a ChainConfig using the strategy
// registries. clk is injected into every factory config so registry-built
// components stay deterministic under a simulated clock; nil means the
// process-wide clock.
func BuildChain(
	cfg ChainConfig,
	quotes market.QuoteProvider,
	holdings market.HoldingProvider,
	minWeight float64,
	clk clock.Clock,
	log zerolog.Logger,
) (*ChainExecutor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	clk = resolveClock(clk)

	withClock := func(m map[string]any) map[string]any {
		out := make(map[string]any, len(m)+1)
		maps.Copy(out, m)
		out["clock"] = clk
		return out
	}

	detector, err := Detectors.Create(cfg.EventDetector, withClock(cfg.EventConfig))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	selector, err := Selectors.Create(cfg.FundSelector, withClock(cfg.FundConfig))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	filters := make([]SignalFilter, 0, len(cfg.SignalFilters))
	for _, name := range cfg.SignalFilters {
		f, err := Filters.Create(name, withClock(cfg.FilterConfigs[name]))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfig, err)
		}
		filters = append(filters, f)
	}

	var evaluator SignalEvaluator
	if cfg.Evaluator != "" {
		evaluator, err = Evaluators.Create(cfg.Evaluator, withClock(nil))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfig, err)
		}
	}

	return NewChainExecutor(detector, selector, filters, evaluator,
		quotes, holdings, minWeight, clk, log), nil
}
