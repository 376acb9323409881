package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/arbscan/internal/database"
)

// walFrameThreshold is the WAL size, in frames, above which a passive
// checkpoint is escalated to TRUNCATE.
const walFrameThreshold = 1000

// WALCheckpointJob keeps the SQLite WAL files from growing unbounded under
// the steady write load of the scan loop.
type WALCheckpointJob struct {
	databases map[string]*database.DB
	log       zerolog.Logger
}

// NewWALCheckpointJob creates a new WALCheckpointJob over the named
// databases. Nil entries are skipped.
func NewWALCheckpointJob(databases map[string]*database.DB, log zerolog.Logger) *WALCheckpointJob {
	return &WALCheckpointJob{
		databases: databases,
		log:       log.With().Str("component", "wal_checkpoint_job").Logger(),
	}
}

// Name returns the job name
func (j *WALCheckpointJob) Name() string {
	return "wal_checkpoint"
}

// Run executes the WAL checkpoint job
func (j *WALCheckpointJob) Run() error {
	checkedCount := 0
	for name, db := range j.databases {
		if db == nil {
			continue
		}

		// PRAGMA wal_checkpoint returns: busy, log, checkpointed
		var busy, frames, checkpointed int
		err := db.Conn().QueryRow("PRAGMA wal_checkpoint(PASSIVE)").Scan(&busy, &frames, &checkpointed)
		if err != nil {
			j.log.Warn().
				Err(err).
				Str("database", name).
				Msg("Failed to check WAL checkpoint")
			continue
		}

		if frames > walFrameThreshold {
			j.log.Warn().
				Str("database", name).
				Int("wal_frames", frames).
				Int("checkpointed", checkpointed).
				Msg("WAL file is large, forcing truncate checkpoint")
			if err := db.WALCheckpoint("TRUNCATE"); err != nil {
				j.log.Error().Err(err).Str("database", name).Msg("Truncate checkpoint failed")
				continue
			}
		} else {
			j.log.Debug().
				Str("database", name).
				Int("wal_frames", frames).
				Msg("WAL checkpoint status OK")
		}

		checkedCount++
	}

	j.log.Info().
		Int("checked", checkedCount).
		Msg("WAL checkpoint check completed")

	return nil
}

// DatabaseHealthJob pings every database so a corrupted or locked file
// surfaces in the logs before a scan tick trips over it.
type DatabaseHealthJob struct {
	databases map[string]*database.DB
	timeout   time.Duration
	log       zerolog.Logger
}

// NewDatabaseHealthJob creates a new DatabaseHealthJob
func NewDatabaseHealthJob(databases map[string]*database.DB, log zerolog.Logger) *DatabaseHealthJob {
	return &DatabaseHealthJob{
		databases: databases,
		timeout:   30 * time.Second,
		log:       log.With().Str("component", "db_health_job").Logger(),
	}
}

// Name returns the job name
func (j *DatabaseHealthJob) Name() string {
	return "database_health"
}

// Run executes the database health job
func (j *DatabaseHealthJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	healthy := 0
	for name, db := range j.databases {
		if db == nil {
			continue
		}
		if err := db.HealthCheck(ctx); err != nil {
			j.log.Error().
				Err(err).
				Str("database", name).
				Msg("Database health check failed")
			continue
		}
		healthy++
	}

	j.log.Info().
		Int("healthy", healthy).
		Int("total", len(j.databases)).
		Msg("Database health check completed")

	return nil
}
