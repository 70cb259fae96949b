package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aristath/trendtrack/internal/database"
	"github.com/rs/zerolog"
)

// CheckDatabasesJob verifies the integrity of every open database
type CheckDatabasesJob struct {
	log       zerolog.Logger
	databases map[string]*database.DB
	timeout   time.Duration
}

// NewCheckDatabasesJob creates a new CheckDatabasesJob. Nil databases are skipped.
func NewCheckDatabasesJob(log zerolog.Logger, databases ...*database.DB) *CheckDatabasesJob {
	byName := make(map[string]*database.DB, len(databases))
	for _, db := range databases {
		if db != nil {
			byName[db.Name()] = db
		}
	}
	return &CheckDatabasesJob{
		log:       log.With().Str("job", "check_databases").Logger(),
		databases: byName,
		timeout:   30 * time.Second,
	}
}

// Name returns the job name
func (j *CheckDatabasesJob) Name() string {
	return "check_databases"
}

// Run executes the integrity check on each database in name order
func (j *CheckDatabasesJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	names := make([]string, 0, len(j.databases))
	for name := range j.databases {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := j.databases[name].HealthCheck(ctx); err != nil {
			j.log.Error().
				Err(err).
				Str("database", name).
				Msg("Database integrity check failed")
			return fmt.Errorf("database %s failed integrity check: %w", name, err)
		}
		j.log.Debug().Str("database", name).Msg("Database integrity OK")
	}

	j.log.Info().Int("checked", len(names)).Msg("Database integrity check passed")
	return nil
}
