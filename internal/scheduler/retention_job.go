package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/aristath/arbscan/internal/clock"
	"github.com/aristath/arbscan/internal/database"
	"github.com/aristath/arbscan/internal/modules/signals"
)

// SignalRetentionJob deletes signals older than the retention window. It
// should be scheduled to run daily.
type SignalRetentionJob struct {
	db            *database.DB
	retentionDays int
	clk           clock.Clock
	log           zerolog.Logger
}

// NewSignalRetentionJob creates a retention job over the signals database.
// Non-positive retentionDays falls back to 90; a nil clk to the
// process-wide clock.
func NewSignalRetentionJob(db *database.DB, retentionDays int, clk clock.Clock, log zerolog.Logger) *SignalRetentionJob {
	if retentionDays <= 0 {
		retentionDays = 90
	}
	if clk == nil {
		clk = clock.Get()
	}
	return &SignalRetentionJob{
		db:            db,
		retentionDays: retentionDays,
		clk:           clk,
		log:           log.With().Str("job", "signal_retention").Logger(),
	}
}

// Name returns the job name
func (j *SignalRetentionJob) Name() string {
	return "signal_retention"
}

// Run deletes signals past the retention window.
func (j *SignalRetentionJob) Run() error {
	cutoff := j.clk.Now(clock.ChinaTZ).
		AddDate(0, 0, -j.retentionDays).
		Format(signals.TimestampLayout)

	// Timestamps are stored in TimestampLayout, which compares
	// lexicographically in time order.
	result, err := j.db.Conn().Exec("DELETE FROM signals WHERE timestamp < ?", cutoff)
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to delete expired signals")
		return err
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if deleted > 0 {
		j.log.Info().
			Int64("deleted", deleted).
			Str("cutoff", cutoff).
			Msg("Signal retention cleanup completed")
	}
	return nil
}
