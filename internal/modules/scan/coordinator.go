// Package scan runs the live scan loop: one chain execution per watched
// security per tick, results fanned out to the repository and sink.
package scan

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/arbscan/internal/clock"
	"github.com/aristath/arbscan/internal/modules/signals"
	"github.com/aristath/arbscan/internal/modules/strategy"
	"github.com/aristath/arbscan/internal/modules/watchlist"
)

// Rejection records a security that produced no signal and why.
type Rejection struct {
	StockCode string `json:"stock_code"`
	Reason    string `json:"reason"`
}

// Result aggregates one tick across the whole watchlist.
type Result struct {
	Scanned    int                      `json:"scanned"`
	Signals    []*signals.TradingSignal `json:"signals"`
	Rejections []Rejection              `json:"rejections"`
	Failures   int                      `json:"failures"`
	Duration   time.Duration            `json:"duration"`
}

// Options tune a Coordinator.
type Options struct {
	TickBudget  time.Duration // deadline for one full tick; 0 means no deadline
	Concurrency int           // parallel chain executions; <= 0 means 4
}

// Coordinator applies the chain across the watchlist. Per-security failures
// are logged and counted; they never abort the tick.
type Coordinator struct {
	executor *strategy.ChainExecutor
	watch    watchlist.Repository
	repo     signals.Repository
	sink     signals.Sink
	clk      clock.Clock
	opts     Options
	log      zerolog.Logger
}

// NewCoordinator wires a live coordinator. repo and sink may be nil when the
// caller only wants the Result. A nil clk falls back to the process-wide
// clock.
func NewCoordinator(
	executor *strategy.ChainExecutor,
	watch watchlist.Repository,
	repo signals.Repository,
	sink signals.Sink,
	clk clock.Clock,
	opts Options,
	log zerolog.Logger,
) *Coordinator {
	if clk == nil {
		clk = clock.Get()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &Coordinator{
		executor: executor,
		watch:    watch,
		repo:     repo,
		sink:     sink,
		clk:      clk,
		opts:     opts,
		log:      log.With().Str("component", "scan_coordinator").Logger(),
	}
}

// ScanOnce runs one tick over the enabled watchlist.
func (c *Coordinator) ScanOnce(ctx context.Context) (*Result, error) {
	codes, err := c.watch.EnabledCodes(ctx)
	if err != nil {
		return nil, err
	}
	return c.ScanCodes(ctx, codes)
}

// ScanCodes runs one tick over an explicit security list.
func (c *Coordinator) ScanCodes(ctx context.Context, codes []string) (*Result, error) {
	start := time.Now()

	if c.opts.TickBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.TickBudget)
		defer cancel()
	}

	result := &Result{Scanned: len(codes)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)

	for _, code := range codes {
		code := code
		g.Go(func() error {
			out, err := c.executor.Execute(gctx, code)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failures++
				c.log.Warn().Err(err).Str("stock", code).Msg("Scan failed for security")
				return nil
			}
			if out.Signal == nil {
				result.Rejections = append(result.Rejections, Rejection{StockCode: code, Reason: out.Reason})
				return nil
			}
			result.Signals = append(result.Signals, out.Signal)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(result.Signals, func(i, j int) bool {
		return result.Signals[i].StockCode < result.Signals[j].StockCode
	})
	sort.Slice(result.Rejections, func(i, j int) bool {
		return result.Rejections[i].StockCode < result.Rejections[j].StockCode
	})

	c.deliver(ctx, result.Signals)

	result.Duration = time.Since(start)
	c.log.Info().
		Int("scanned", result.Scanned).
		Int("signals", len(result.Signals)).
		Int("rejections", len(result.Rejections)).
		Int("failures", result.Failures).
		Dur("duration", result.Duration).
		Msg("Scan tick complete")
	return result, nil
}

// deliver persists and sends signals; delivery failures are logged, never
// returned, so one bad sink does not lose the tick's result.
func (c *Coordinator) deliver(ctx context.Context, sigs []*signals.TradingSignal) {
	if len(sigs) == 0 {
		return
	}
	if c.repo != nil {
		if err := c.repo.SaveAll(ctx, sigs); err != nil {
			c.log.Error().Err(err).Int("count", len(sigs)).Msg("Failed to persist signals")
		}
	}
	if c.sink != nil {
		for _, s := range sigs {
			if err := c.sink.Send(s); err != nil {
				c.log.Error().Err(err).Str("signal_id", s.SignalID).Msg("Failed to send signal")
			}
		}
	}
}
