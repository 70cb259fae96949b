package watchlist

import (
	"context"
	"time"

	"github.com/aristath/trendtrack/internal/domain"
	"github.com/rs/zerolog"
)

// QuoteRefreshJob polls quotes for the whole watchlist on a schedule.
type QuoteRefreshJob struct {
	store   *Store
	timeout time.Duration
	log     zerolog.Logger
}

// NewQuoteRefreshJob creates a new quote polling job
func NewQuoteRefreshJob(store *Store, log zerolog.Logger) *QuoteRefreshJob {
	return &QuoteRefreshJob{
		store:   store,
		timeout: 30 * time.Second,
		log:     log.With().Str("job", "quote_refresh").Logger(),
	}
}

// Run refreshes all quotes. A missing credential is not a failure.
func (j *QuoteRefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	updated, err := j.store.RefreshQuotes(ctx)
	if domain.IsKind(err, domain.KindConfiguration) {
		j.log.Debug().Msg("Skipping quote refresh, no credential configured")
		return nil
	}
	if err != nil {
		return err
	}

	j.log.Debug().Int("updated", updated).Msg("Quotes refreshed")
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *QuoteRefreshJob) Name() string {
	return "quote_refresh"
}
