package scheduler

import (
	"github.com/aristath/trendtrack/internal/database"
	"github.com/rs/zerolog"
)

// walFrameThreshold is the WAL size, in frames, above which the log is truncated.
const walFrameThreshold = 1000

// WALCheckpointJob keeps WAL files from growing without bound
type WALCheckpointJob struct {
	log       zerolog.Logger
	databases []*database.DB
}

// NewWALCheckpointJob creates a new WALCheckpointJob. Nil databases are skipped.
func NewWALCheckpointJob(log zerolog.Logger, databases ...*database.DB) *WALCheckpointJob {
	kept := make([]*database.DB, 0, len(databases))
	for _, db := range databases {
		if db != nil {
			kept = append(kept, db)
		}
	}
	return &WALCheckpointJob{
		log:       log.With().Str("job", "wal_checkpoint").Logger(),
		databases: kept,
	}
}

// Name returns the job name
func (j *WALCheckpointJob) Name() string {
	return "wal_checkpoint"
}

// Run checks each WAL and truncates the ones above the threshold.
// A failure on one database does not stop the others.
func (j *WALCheckpointJob) Run() error {
	checked, truncated := 0, 0

	for _, db := range j.databases {
		// PRAGMA wal_checkpoint returns: busy, log, checkpointed
		var busy, frames, checkpointed int
		err := db.Conn().QueryRow("PRAGMA wal_checkpoint(PASSIVE)").Scan(&busy, &frames, &checkpointed)
		if err != nil {
			j.log.Warn().
				Err(err).
				Str("database", db.Name()).
				Msg("Failed to check WAL checkpoint")
			continue
		}
		checked++

		if frames <= walFrameThreshold {
			j.log.Debug().
				Str("database", db.Name()).
				Int("wal_frames", frames).
				Msg("WAL checkpoint status OK")
			continue
		}

		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Warn().Err(err).Str("database", db.Name()).Msg("WAL truncate failed")
			continue
		}
		truncated++
		j.log.Info().
			Str("database", db.Name()).
			Int("wal_frames", frames).
			Int("checkpointed", checkpointed).
			Msg("WAL truncated")
	}

	j.log.Debug().
		Int("checked", checked).
		Int("truncated", truncated).
		Msg("WAL checkpoint check completed")

	return nil
}
