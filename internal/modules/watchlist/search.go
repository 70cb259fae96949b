package watchlist

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/aristath/trendtrack/internal/domain"
	"github.com/rs/zerolog"
)

const (
	minQueryLength   = 2
	maxSearchResults = 5
	equityType       = "Common Stock"

	// DefaultDebounceDelay is the inactivity window before a search is sent.
	DefaultDebounceDelay = 500 * time.Millisecond
)

// SymbolSearcher is the provider-side symbol search.
type SymbolSearcher interface {
	Search(ctx context.Context, query, apiKey string) ([]domain.SearchResult, error)
}

// Searcher filters provider search results down to addable equities.
type Searcher struct {
	provider SymbolSearcher
	config   ConfigStore
	log      zerolog.Logger
}

// NewSearcher creates a new symbol searcher
func NewSearcher(provider SymbolSearcher, config ConfigStore, log zerolog.Logger) *Searcher {
	return &Searcher{
		provider: provider,
		config:   config,
		log:      log.With().Str("component", "search").Logger(),
	}
}

// Search returns at most five common-stock matches for query.
// Queries shorter than two characters return nothing without a request.
func (s *Searcher) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < minQueryLength {
		return []domain.SearchResult{}, nil
	}

	apiKey := s.config.Config().FinnhubAPIKey
	if apiKey == "" {
		return nil, domain.NewConfigurationError("watchlist.search", "market data API key is not set")
	}

	results, err := s.provider.Search(ctx, query, apiKey)
	if err != nil {
		return nil, err
	}

	filtered := make([]domain.SearchResult, 0, maxSearchResults)
	for _, r := range results {
		if r.Type != equityType {
			continue
		}
		filtered = append(filtered, r)
		if len(filtered) == maxSearchResults {
			break
		}
	}

	s.log.Debug().Str("query", query).Int("results", len(filtered)).Msg("Symbol search")
	return filtered, nil
}

// SearchOutcome is delivered exactly once per Debouncer.Submit.
// Stale outcomes were overtaken by a newer submission and carry no results.
type SearchOutcome struct {
	Query   string                `json:"query"`
	Results []domain.SearchResult `json:"results"`
	Stale   bool                  `json:"stale"`
	Err     error                 `json:"-"`
}

// SearchFunc runs one search.
type SearchFunc func(ctx context.Context, query string) ([]domain.SearchResult, error)

// Debouncer delays searches until input has been idle for the configured
// delay. Each submission cancels the pending timer and any in-flight search
// of the previous one, so only the latest query yields a fresh outcome.
type Debouncer struct {
	delay  time.Duration
	search SearchFunc

	mu           sync.Mutex
	seq          uint64
	timer        *time.Timer
	cancel       context.CancelFunc
	pending      chan SearchOutcome
	pendingQuery string
}

// NewDebouncer creates a debouncer around search.
func NewDebouncer(delay time.Duration, search SearchFunc) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounceDelay
	}
	return &Debouncer{delay: delay, search: search}
}

// Submit schedules a search for query and returns the channel its outcome
// will be delivered on.
func (d *Debouncer) Submit(query string) <-chan SearchOutcome {
	out := make(chan SearchOutcome, 1)

	d.mu.Lock()
	defer d.mu.Unlock()

	d.supersedeLocked()

	d.seq++
	seq := d.seq
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.pending = out
	d.pendingQuery = query
	d.timer = time.AfterFunc(d.delay, func() { d.run(ctx, seq, query, out) })

	return out
}

// Stop cancels any pending or in-flight search.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	d.supersedeLocked()
}

// supersedeLocked stops the pending timer, cancels an in-flight search and
// resolves the previous submission as stale when its timer never fired.
func (d *Debouncer) supersedeLocked() {
	if d.timer != nil && d.timer.Stop() {
		d.pending <- SearchOutcome{Query: d.pendingQuery, Results: []domain.SearchResult{}, Stale: true}
	}
	if d.cancel != nil {
		d.cancel()
	}
	d.timer = nil
	d.cancel = nil
	d.pending = nil
}

func (d *Debouncer) run(ctx context.Context, seq uint64, query string, out chan<- SearchOutcome) {
	results, err := d.search(ctx, query)

	d.mu.Lock()
	stale := seq != d.seq
	if !stale {
		d.cancel()
		d.timer = nil
		d.cancel = nil
		d.pending = nil
	}
	d.mu.Unlock()

	if stale {
		out <- SearchOutcome{Query: query, Results: []domain.SearchResult{}, Stale: true}
		return
	}
	if results == nil {
		results = []domain.SearchResult{}
	}
	out <- SearchOutcome{Query: query, Results: results, Err: err}
}
