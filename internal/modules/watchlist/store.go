// Package watchlist owns the ordered watchlist, the active symbol and every
// mutation on them. Durable state is mirrored through the settings service.
package watchlist

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aristath/trendtrack/internal/clients/gemini"
	"github.com/aristath/trendtrack/internal/domain"
	"github.com/aristath/trendtrack/internal/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// analysisWindow is how many trailing history points the analyzer sees.
const analysisWindow = 10

// ErrSuperseded is returned by LoadHistory when a newer selection or load
// started before the response arrived. The response is discarded.
var ErrSuperseded = errors.New("history request superseded")

// QuoteProvider fetches quotes and display names.
type QuoteProvider interface {
	FetchQuote(ctx context.Context, symbol, apiKey string) (*domain.Quote, error)
	CompanyName(ctx context.Context, symbol, apiKey string) (string, error)
}

// SeriesLoader produces a normalized price series for a symbol.
type SeriesLoader interface {
	GetSeries(ctx context.Context, symbol string, days int) ([]domain.StockDataPoint, error)
}

// ConfigStore is the durable mirror of the watchlist.
type ConfigStore interface {
	Config() domain.PersistedConfig
	SetSymbols(symbols []string) error
}

// Analyzer turns a symbol's recent history into commentary.
type Analyzer interface {
	Analyze(ctx context.Context, req gemini.AnalysisRequest) (string, error)
}

// Snapshot is a point-in-time copy of the store for rendering.
type Snapshot struct {
	SessionID    string                `json:"session_id"`
	Stocks       []domain.StockSummary `json:"stocks"`
	ActiveSymbol string                `json:"active_symbol"`
	Initialized  bool                  `json:"initialized"`
	Initializing bool                  `json:"initializing"`
	Analysis     string                `json:"analysis,omitempty"`
}

// Store is the single owner of watchlist state. All mutations are serialised
// by mu; network calls run without holding it.
type Store struct {
	quotes   QuoteProvider
	series   SeriesLoader
	config   ConfigStore
	analyzer Analyzer
	log      zerolog.Logger

	sessionID string

	mu           sync.Mutex
	watchlist    []domain.StockSummary
	activeSymbol string
	initializing bool
	initialized  bool

	analysis       string
	analysisSymbol string

	historyGen    uint64
	cancelHistory context.CancelFunc

	initGen    uint64
	cancelInit context.CancelFunc
}

// NewStore creates a new watchlist store. analyzer may be nil.
func NewStore(quotes QuoteProvider, series SeriesLoader, config ConfigStore, analyzer Analyzer, log zerolog.Logger) *Store {
	sessionID := uuid.NewString()
	return &Store{
		quotes:    quotes,
		series:    series,
		config:    config,
		analyzer:  analyzer,
		sessionID: sessionID,
		watchlist: []domain.StockSummary{},
		log: log.With().
			Str("component", "watchlist").
			Str("session_id", sessionID).
			Logger(),
	}
}

// Initialize loads the persisted watchlist with one concurrent quote fetch
// per symbol. Symbols whose fetch fails are logged and dropped.
// Without a market data credential the watchlist is left empty.
// A newer Initialize cancels a running one and only the newest result is
// applied. Watchlist mutations are rejected while a load is running.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.cancelInit != nil {
		s.cancelInit()
	}
	s.initGen++
	gen := s.initGen
	ctx, cancel := context.WithCancel(ctx)
	s.cancelInit = cancel
	s.initializing = true
	s.mu.Unlock()
	defer cancel()

	cfg := s.config.Config()
	if cfg.FinnhubAPIKey == "" {
		s.log.Info().Msg("No market data credential configured, watchlist left empty")
		s.finishInit(gen, []domain.StockSummary{})
		return nil
	}

	symbols := uniqueSymbols(cfg.Symbols)
	loaded := make([]*domain.StockSummary, len(symbols))
	defer utils.OperationTimer("watchlist_initialize", s.log)()

	var wg sync.WaitGroup
	for i, symbol := range symbols {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			summary, err := s.buildSummary(ctx, symbol, "", cfg.FinnhubAPIKey)
			if err != nil {
				s.log.Warn().Err(err).Str("symbol", symbol).Msg("Dropping symbol from initial load")
				return
			}
			loaded[i] = summary
		}(i, symbol)
	}
	wg.Wait()

	list := make([]domain.StockSummary, 0, len(symbols))
	for _, summary := range loaded {
		if summary != nil {
			list = append(list, *summary)
		}
	}

	if !s.finishInit(gen, list) {
		s.log.Debug().Msg("Discarding superseded watchlist load")
		return nil
	}

	s.log.Info().
		Int("requested", len(symbols)).
		Int("loaded", len(list)).
		Msg("Watchlist initialized")

	return nil
}

// finishInit applies list when gen is still the newest load.
func (s *Store) finishInit(gen uint64, list []domain.StockSummary) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.initGen {
		return false
	}
	s.watchlist = list
	active := ""
	if len(list) > 0 {
		active = list[0].Symbol
	}
	s.setActiveLocked(active)
	s.cancelInit = nil
	s.initializing = false
	s.initialized = true
	return true
}

// AddStock fetches a quote for symbol and appends it as the active entry.
// Adding a symbol that is already tracked is a no-op without a network call.
// On failure the watchlist is left untouched.
func (s *Store) AddStock(ctx context.Context, symbol, name string) error {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return domain.NewValidationError("watchlist.add", "symbol is required")
	}

	apiKey := s.config.Config().FinnhubAPIKey
	if apiKey == "" {
		return domain.NewConfigurationError("watchlist.add", "market data API key is not set")
	}

	s.mu.Lock()
	if s.initializing {
		s.mu.Unlock()
		return errInitializing("watchlist.add")
	}
	exists := s.indexLocked(symbol) >= 0
	s.mu.Unlock()
	if exists {
		return nil
	}

	summary, err := s.buildSummary(ctx, symbol, strings.TrimSpace(name), apiKey)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", symbol, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// a reload may have started while the quote was in flight
	if s.initializing {
		return errInitializing("watchlist.add")
	}
	// a concurrent add may have won the race while the quote was in flight
	if s.indexLocked(symbol) >= 0 {
		return nil
	}

	next := make([]domain.StockSummary, len(s.watchlist), len(s.watchlist)+1)
	copy(next, s.watchlist)
	next = append(next, *summary)

	if err := s.commitLocked(next); err != nil {
		return err
	}
	s.setActiveLocked(symbol)

	s.log.Info().Str("symbol", symbol).Msg("Stock added")
	return nil
}

// RemoveStock drops symbol from the watchlist. Removing the active symbol
// moves selection to the first remaining entry and clears the analysis.
func (s *Store) RemoveStock(symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initializing {
		return errInitializing("watchlist.remove")
	}

	idx := s.indexLocked(symbol)
	if idx < 0 {
		return nil
	}

	next := make([]domain.StockSummary, 0, len(s.watchlist)-1)
	next = append(next, s.watchlist[:idx]...)
	next = append(next, s.watchlist[idx+1:]...)

	if err := s.commitLocked(next); err != nil {
		return err
	}

	if s.activeSymbol == symbol {
		active := ""
		if len(next) > 0 {
			active = next[0].Symbol
		}
		s.setActiveLocked(active)
	}

	s.log.Info().Str("symbol", symbol).Msg("Stock removed")
	return nil
}

// Reorder moves the entry at oldIndex to newIndex. Out-of-range indices
// leave the watchlist untouched.
func (s *Store) Reorder(oldIndex, newIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initializing {
		return errInitializing("watchlist.reorder")
	}

	n := len(s.watchlist)
	if oldIndex < 0 || oldIndex >= n || newIndex < 0 || newIndex >= n {
		return nil
	}
	if oldIndex == newIndex {
		return nil
	}

	next := make([]domain.StockSummary, 0, n)
	moved := s.watchlist[oldIndex]
	for i, entry := range s.watchlist {
		if i != oldIndex {
			next = append(next, entry)
		}
	}
	next = append(next[:newIndex], append([]domain.StockSummary{moved}, next[newIndex:]...)...)

	return s.commitLocked(next)
}

// SortByName orders the watchlist by ascending symbol.
func (s *Store) SortByName() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initializing {
		return errInitializing("watchlist.sort")
	}

	next := make([]domain.StockSummary, len(s.watchlist))
	copy(next, s.watchlist)
	sort.SliceStable(next, func(i, j int) bool { return next[i].Symbol < next[j].Symbol })

	return s.commitLocked(next)
}

// SelectSymbol makes symbol the active entry. Any in-flight history load
// for the previous selection is cancelled.
func (s *Store) SelectSymbol(symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexLocked(symbol) < 0 {
		return domain.NewNotFoundError("watchlist.select", fmt.Sprintf("%s is not in the watchlist", symbol))
	}
	if s.activeSymbol == symbol {
		return nil
	}
	s.setActiveLocked(symbol)
	return nil
}

// LoadHistory fetches the last `days` days for the active symbol and replaces
// only that entry's history. A later LoadHistory or selection change
// supersedes this call and its result is discarded with ErrSuperseded.
// Returns nil points without error when there is nothing to load.
func (s *Store) LoadHistory(ctx context.Context, days int) ([]domain.StockDataPoint, error) {
	s.mu.Lock()
	if s.activeSymbol == "" || s.initializing {
		s.mu.Unlock()
		return nil, nil
	}
	symbol := s.activeSymbol
	if s.cancelHistory != nil {
		s.cancelHistory()
	}
	s.historyGen++
	gen := s.historyGen
	ctx, cancel := context.WithCancel(ctx)
	s.cancelHistory = cancel
	s.mu.Unlock()
	defer cancel()

	points, err := s.series.GetSeries(ctx, symbol, days)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.historyGen {
		s.log.Debug().Str("symbol", symbol).Int("days", days).Msg("Discarding superseded history response")
		return nil, ErrSuperseded
	}
	s.cancelHistory = nil

	if err != nil {
		return nil, err
	}

	idx := s.indexLocked(symbol)
	if idx < 0 {
		return nil, ErrSuperseded
	}
	s.watchlist[idx].History = points

	out := make([]domain.StockDataPoint, len(points))
	copy(out, points)
	return out, nil
}

// RefreshQuotes re-fetches quotes for every entry. Failures are isolated per
// symbol; history is never touched. Returns how many entries were updated.
func (s *Store) RefreshQuotes(ctx context.Context) (int, error) {
	apiKey := s.config.Config().FinnhubAPIKey
	if apiKey == "" {
		return 0, domain.NewConfigurationError("watchlist.refresh", "market data API key is not set")
	}

	s.mu.Lock()
	symbols := make([]string, len(s.watchlist))
	for i, entry := range s.watchlist {
		symbols[i] = entry.Symbol
	}
	s.mu.Unlock()

	quotes := make([]*domain.Quote, len(symbols))
	stop := utils.OperationTimer("quote_refresh", s.log)
	var wg sync.WaitGroup
	for i, symbol := range symbols {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			q, err := s.quotes.FetchQuote(ctx, symbol, apiKey)
			if err != nil {
				s.log.Warn().Err(err).Str("symbol", symbol).Msg("Quote refresh failed")
				return
			}
			quotes[i] = q
		}(i, symbol)
	}
	wg.Wait()
	stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	updated := 0
	for i, symbol := range symbols {
		if quotes[i] == nil {
			continue
		}
		// entries may have moved or gone while quotes were in flight
		idx := s.indexLocked(symbol)
		if idx < 0 {
			continue
		}
		applyQuote(&s.watchlist[idx], *quotes[i])
		updated++
	}

	return updated, nil
}

// Analyze returns commentary for the active symbol, cached until the
// active symbol changes or is removed.
func (s *Store) Analyze(ctx context.Context) (string, error) {
	if s.analyzer == nil {
		return "", domain.NewConfigurationError("watchlist.analyze", "analysis is not available")
	}

	s.mu.Lock()
	symbol := s.activeSymbol
	if symbol == "" {
		s.mu.Unlock()
		return "", domain.NewValidationError("watchlist.analyze", "no active symbol")
	}
	if s.analysis != "" && s.analysisSymbol == symbol {
		text := s.analysis
		s.mu.Unlock()
		return text, nil
	}
	entry := s.watchlist[s.indexLocked(symbol)]
	history := entry.History
	if len(history) > analysisWindow {
		history = history[len(history)-analysisWindow:]
	}
	req := gemini.AnalysisRequest{
		Symbol:  symbol,
		Quote:   entry.Quote,
		History: append([]domain.StockDataPoint(nil), history...),
	}
	s.mu.Unlock()

	cfg := s.config.Config()
	req.APIKey = cfg.GeminiAPIKey
	req.Model = cfg.GeminiModel

	text, err := s.analyzer.Analyze(ctx, req)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	if s.activeSymbol == symbol {
		s.analysis = text
		s.analysisSymbol = symbol
	}
	s.mu.Unlock()

	return text, nil
}

// Stats derives aggregate figures from the current watchlist.
func (s *Store) Stats() domain.WatchlistStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ComputeStats(s.watchlist)
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	stocks := make([]domain.StockSummary, len(s.watchlist))
	for i, entry := range s.watchlist {
		stocks[i] = entry.Clone()
	}

	analysis := ""
	if s.analysisSymbol == s.activeSymbol {
		analysis = s.analysis
	}

	return Snapshot{
		SessionID:    s.sessionID,
		Stocks:       stocks,
		ActiveSymbol: s.activeSymbol,
		Initialized:  s.initialized,
		Initializing: s.initializing,
		Analysis:     analysis,
	}
}

// ActiveSymbol returns the selected symbol, "" when none.
func (s *Store) ActiveSymbol() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeSymbol
}

func (s *Store) buildSummary(ctx context.Context, symbol, name, apiKey string) (*domain.StockSummary, error) {
	quote, err := s.quotes.FetchQuote(ctx, symbol, apiKey)
	if err != nil {
		return nil, err
	}

	if name == "" {
		resolved, err := s.quotes.CompanyName(ctx, symbol, apiKey)
		if err != nil {
			s.log.Debug().Err(err).Str("symbol", symbol).Msg("Company name lookup failed")
		}
		name = resolved
	}
	if name == "" {
		name = symbol
	}

	summary := &domain.StockSummary{
		Symbol:  symbol,
		Name:    name,
		History: []domain.StockDataPoint{},
	}
	applyQuote(summary, *quote)
	return summary, nil
}

// commitLocked persists the order of next and then makes it current.
// A failed write leaves the in-memory watchlist unchanged.
func (s *Store) commitLocked(next []domain.StockSummary) error {
	symbols := make([]string, len(next))
	for i, entry := range next {
		symbols[i] = entry.Symbol
	}
	if err := s.config.SetSymbols(symbols); err != nil {
		return fmt.Errorf("failed to persist watchlist: %w", err)
	}
	s.watchlist = next
	return nil
}

// setActiveLocked changes selection, drops cached analysis and supersedes
// any in-flight history load.
func (s *Store) setActiveLocked(symbol string) {
	s.activeSymbol = symbol
	s.analysis = ""
	s.analysisSymbol = ""
	s.historyGen++
	if s.cancelHistory != nil {
		s.cancelHistory()
		s.cancelHistory = nil
	}
}

func (s *Store) indexLocked(symbol string) int {
	for i, entry := range s.watchlist {
		if entry.Symbol == symbol {
			return i
		}
	}
	return -1
}

func errInitializing(op string) error {
	return domain.NewConflictError(op, "watchlist is still loading")
}

func applyQuote(summary *domain.StockSummary, q domain.Quote) {
	summary.CurrentPrice = q.CurrentPrice
	summary.ChangeValue = q.Change
	summary.ChangePercent = q.ChangePercent
	summary.Quote = q
}

func uniqueSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		if symbol == "" || seen[symbol] {
			continue
		}
		seen[symbol] = true
		out = append(out, symbol)
	}
	return out
}
