package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/arbscan/internal/clock"
	"github.com/aristath/arbscan/internal/modules/scan"
)

// defaultTickTimeout bounds one scan tick so a stuck provider cannot pile
// up overlapping runs.
const defaultTickTimeout = 2 * time.Minute

// ScanJob runs one watchlist scan tick. The cron expression gates it to
// market days, and the job itself skips the lunch break and off-session
// minutes the expression cannot express.
type ScanJob struct {
	coord   *scan.Coordinator
	clk     clock.Clock
	timeout time.Duration
	log     zerolog.Logger
}

// NewScanJob creates a new ScanJob. A nil clk falls back to the
// process-wide clock.
func NewScanJob(coord *scan.Coordinator, clk clock.Clock, log zerolog.Logger) *ScanJob {
	if clk == nil {
		clk = clock.Get()
	}
	return &ScanJob{
		coord:   coord,
		clk:     clk,
		timeout: defaultTickTimeout,
		log:     log.With().Str("component", "scan_job").Logger(),
	}
}

// Name returns the job name
func (j *ScanJob) Name() string {
	return "live_scan"
}

// Run executes one scan tick when the market is open.
func (j *ScanJob) Run() error {
	now := j.clk.Now(clock.ChinaTZ)
	if !inTradingSession(now) {
		j.log.Debug().Time("now", now).Msg("Market closed, skipping scan tick")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	result, err := j.coord.ScanOnce(ctx)
	if err != nil {
		return err
	}
	if len(result.Signals) > 0 {
		j.log.Info().
			Int("signals", len(result.Signals)).
			Int("scanned", result.Scanned).
			Msg("Scan tick produced signals")
	}
	return nil
}

// inTradingSession reports whether t falls inside an A-share session:
// weekdays 09:30-11:30 or 13:00-15:00, session close exclusive.
func inTradingSession(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	minutes := t.Hour()*60 + t.Minute()
	morning := minutes >= 9*60+30 && minutes < 11*60+30
	afternoon := minutes >= 13*60 && minutes < 15*60
	return morning || afternoon
}
