package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/arbscan/internal/clock"
	"github.com/aristath/arbscan/internal/modules/scan"
	"github.com/aristath/arbscan/internal/modules/signals"
	"github.com/aristath/arbscan/internal/modules/strategy"
)

// Hour of day at which daily-granularity ticks are scanned. The simulated
// cursor sits at midnight between daily steps; session-based rules need an
// in-session instant.
const dailyScanHour = 14

// scanClock adapts the simulation clock for the chain. Daily ticks are
// stamped mid-afternoon so time-of-day rules see a tradable instant.
type scanClock struct {
	sim *SimulationClock
}

func (c scanClock) Now(_ *time.Location) time.Time {
	t := c.sim.Current()
	if c.sim.granularity.IsDaily() {
		return time.Date(t.Year(), t.Month(), t.Day(), dailyScanHour, 0, 0, 0, clock.ChinaTZ)
	}
	return t
}

// Result is one replay run's output.
type Result struct {
	Signals    []*signals.TradingSignal `json:"signals"`
	Statistics *SignalStatistics        `json:"statistics"`
	Rejections []scan.Rejection         `json:"rejections"`
	Coverage   []Coverage               `json:"coverage"`
	Ticks      int                      `json:"ticks"`
	Duration   time.Duration            `json:"duration"`
}

// ProgressFunc receives (completed ticks, estimated total) during a run.
type ProgressFunc func(completed, estimatedTotal int)

// Engine replays the scan chain across a historical range: each tick sets
// the providers' instant, scans the whole universe, then advances the
// simulated clock. All securities complete before the clock moves.
type Engine struct {
	cfg      BacktestConfig
	sim      *SimulationClock
	quotes   *HistoricalQuoteProvider
	holdings *HistoricalHoldingProvider
	loader   *Loader
	universe []string
	coord    *scan.Coordinator
	progress ProgressFunc
	log      zerolog.Logger
}

// NewEngine wires a replay engine. loader may be nil when the caller adds
// series to quotes directly; progress may be nil.
func NewEngine(
	cfg BacktestConfig,
	universe []string,
	loader *Loader,
	progress ProgressFunc,
	log zerolog.Logger,
) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(universe) == 0 {
		return nil, fmt.Errorf("%w: empty replay universe", strategy.ErrConfig)
	}

	log = log.With().Str("component", "replay_engine").Logger()

	sim, err := NewSimulationClock(cfg.StartDate, cfg.EndDate, cfg.Granularity, true, log)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		sim:      sim,
		quotes:   NewHistoricalQuoteProvider(cfg.Granularity),
		holdings: NewHistoricalHoldingProvider(cfg.Interpolation),
		loader:   loader,
		universe: universe,
		progress: progress,
		log:      log,
	}

	chainCfg := strategy.ChainConfig{
		EventDetector: "limit_up_cn",
		FundSelector:  "highest_weight",
		SignalFilters: []string{"time_filter_cn", "liquidity_filter"},
		Evaluator:     cfg.EvaluatorType,
		FundConfig:    map[string]any{"min_weight": cfg.MinWeight},
		FilterConfigs: map[string]map[string]any{
			"time_filter_cn":   {"min_time_to_close": cfg.MinTimeToClose},
			"liquidity_filter": {"min_daily_amount": cfg.MinETFVolume},
		},
	}
	executor, err := strategy.BuildChain(chainCfg, e.quotes, e.holdings,
		cfg.MinWeight, scanClock{sim: sim}, log)
	if err != nil {
		return nil, err
	}

	e.coord = scan.NewCoordinator(executor, nil, nil, nil, scanClock{sim: sim},
		scan.Options{}, log)
	return e, nil
}

// Quotes returns the engine's quote provider, for direct series injection.
func (e *Engine) Quotes() *HistoricalQuoteProvider { return e.quotes }

// Holdings returns the engine's holding provider, for snapshot injection.
func (e *Engine) Holdings() *HistoricalHoldingProvider { return e.holdings }

// Clock returns the simulated clock.
func (e *Engine) Clock() *SimulationClock { return e.sim }

// LoadData loads stock series for the universe and ETF series for every ETF
// referenced by the holdings snapshots, in parallel. Missing stock series
// are fatal; a missing ETF series only degrades that ETF to "no etf quote".
func (e *Engine) LoadData(ctx context.Context) error {
	if e.loader == nil {
		return nil
	}

	etfCodes := make(map[string]struct{})
	for _, snap := range e.holdings.snapshots {
		for _, entries := range snap.Holdings {
			for _, entry := range entries {
				etfCodes[entry.ETFCode] = struct{}{}
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for _, code := range e.universe {
		code := code
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s, err := e.loader.Load(KindStock, code, e.cfg.StartDate, e.cfg.EndDate, e.cfg.Granularity)
			if err != nil {
				return fmt.Errorf("load stock %s: %w", code, err)
			}
			e.quotes.AddSeries(s)
			return nil
		})
	}
	for code := range etfCodes {
		code := code
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s, err := e.loader.Load(KindETF, code, e.cfg.StartDate, e.cfg.EndDate, e.cfg.Granularity)
			if err != nil {
				e.log.Warn().Str("etf", code).Err(err).Msg("No historical series for ETF")
				return nil
			}
			e.quotes.AddSeries(s)
			return nil
		})
	}
	return g.Wait()
}

// Run replays the whole range. The scan for a tick always happens before
// the clock advances, so the first and last calendar entries are both
// scanned.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	e.sim.Reset()

	estimated := e.estimateTicks()
	result := &Result{}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		instant := scanClock{sim: e.sim}.Now(clock.ChinaTZ)
		e.quotes.SetInstant(instant)
		e.holdings.SetInstant(instant)

		tick, err := e.coord.ScanCodes(ctx, e.universe)
		if err != nil {
			return nil, fmt.Errorf("scan at %s: %w", e.sim.CurrentDateTime(), err)
		}
		result.Signals = append(result.Signals, tick.Signals...)
		result.Rejections = append(result.Rejections, tick.Rejections...)
		result.Ticks++

		if e.progress != nil {
			e.progress(result.Ticks, estimated)
		}

		if !e.sim.HasNext() {
			break
		}
		e.sim.Advance(1)
	}

	result.Statistics = ComputeStatistics(result.Signals)
	result.Coverage = e.quotes.Coverage()
	result.Duration = time.Since(start)

	e.log.Info().
		Int("ticks", result.Ticks).
		Int("signals", result.Statistics.TotalSignals).
		Dur("duration", result.Duration).
		Msg("Replay complete")
	return result, nil
}

// estimateTicks sizes the progress denominator; best-effort for intraday.
func (e *Engine) estimateTicks() int {
	days := e.sim.Calendar().Len()
	if e.cfg.Granularity.IsDaily() {
		return days
	}
	perDay := 240/e.cfg.Granularity.Minutes() + 1
	return days * perDay
}
