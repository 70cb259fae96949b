// Package di provides dependency injection for scheduler jobs.
package di

import (
	"fmt"

	"github.com/aristath/trendtrack/internal/clientdata"
	"github.com/aristath/trendtrack/internal/config"
	"github.com/aristath/trendtrack/internal/modules/watchlist"
	"github.com/aristath/trendtrack/internal/scheduler"
	"github.com/rs/zerolog"
)

// RegisterJobs creates the scheduler and registers all background jobs.
// The scheduler is not started here.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	instances := &JobInstances{
		QuoteRefresh:   watchlist.NewQuoteRefreshJob(container.Store, log),
		CacheCleanup:   clientdata.NewCleanupJob(container.ClientDataRepo, log),
		WALCheckpoint:  scheduler.NewWALCheckpointJob(log, container.ConfigDB, container.CacheDB),
		CheckDatabases: scheduler.NewCheckDatabasesJob(log, container.ConfigDB, container.CacheDB),
	}

	sched := scheduler.New(log)
	registrations := []struct {
		schedule string
		job      scheduler.Job
	}{
		{cfg.QuoteRefreshSchedule, instances.QuoteRefresh},
		{cfg.CacheCleanupSchedule, instances.CacheCleanup},
		{cfg.WALCheckpointSchedule, instances.WALCheckpoint},
		{cfg.WALCheckpointSchedule, instances.CheckDatabases},
	}
	for _, r := range registrations {
		if err := sched.AddJob(r.schedule, r.job); err != nil {
			return nil, fmt.Errorf("failed to register job %s: %w", r.job.Name(), err)
		}
	}
	container.Scheduler = sched

	log.Info().Int("jobs", len(registrations)).Msg("Jobs registered")
	return instances, nil
}
