package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/aristath/trendtrack/internal/clients/gemini"
	"github.com/aristath/trendtrack/internal/clients/mockdata"
	"github.com/aristath/trendtrack/internal/domain"
	"github.com/aristath/trendtrack/internal/modules/charts"
	"github.com/aristath/trendtrack/internal/modules/watchlist"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryConfig struct {
	mu  sync.Mutex
	cfg domain.PersistedConfig
}

func (m *memoryConfig) Config() domain.PersistedConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg := m.cfg
	cfg.Symbols = append([]string(nil), m.cfg.Symbols...)
	return cfg
}

func (m *memoryConfig) SetSymbols(symbols []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.Symbols = append([]string(nil), symbols...)
	return nil
}

func setupRouter(t *testing.T, apiKey string) (chi.Router, *watchlist.Store) {
	t.Helper()
	return setupRouterWithAnalyzer(t, apiKey, nil)
}

func setupRouterWithAnalyzer(t *testing.T, apiKey string, analyzer watchlist.Analyzer) (chi.Router, *watchlist.Store) {
	t.Helper()
	logger := zerolog.New(nil).Level(zerolog.Disabled)

	provider := mockdata.NewProvider(logger)
	config := &memoryConfig{cfg: domain.PersistedConfig{
		FinnhubAPIKey: apiKey,
		GeminiAPIKey:  "gemini-key",
		Symbols:       []string{"AAPL", "GOOGL", "MSFT"},
	}}

	store := watchlist.NewStore(provider, charts.NewService(provider, logger), config, analyzer, logger)
	require.NoError(t, store.Initialize(context.Background()))

	searcher := watchlist.NewSearcher(provider, config, logger)
	debouncer := watchlist.NewDebouncer(time.Millisecond, searcher.Search)
	t.Cleanup(debouncer.Stop)

	handler := NewHandler(store, debouncer, logger)
	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	return router, store
}

func do(t *testing.T, router http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeSnapshot(t *testing.T, w *httptest.ResponseRecorder) watchlist.Snapshot {
	t.Helper()
	var snap watchlist.Snapshot
	require.NoError(t, json.NewDecoder(w.Body).Decode(&snap))
	return snap
}

func symbols(snap watchlist.Snapshot) []string {
	out := make([]string, len(snap.Stocks))
	for i, s := range snap.Stocks {
		out[i] = s.Symbol
	}
	return out
}

func TestHandleGetWatchlist(t *testing.T) {
	router, _ := setupRouter(t, "demo")

	w := do(t, router, http.MethodGet, "/watchlist/", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	snap := decodeSnapshot(t, w)
	assert.Equal(t, []string{"AAPL", "GOOGL", "MSFT"}, symbols(snap))
	assert.Equal(t, "AAPL", snap.ActiveSymbol)
	assert.True(t, snap.Initialized)
}

func TestHandleAddStock(t *testing.T) {
	router, _ := setupRouter(t, "demo")

	w := do(t, router, http.MethodPost, "/watchlist/", map[string]string{"symbol": "AMZN"})

	require.Equal(t, http.StatusOK, w.Code)
	snap := decodeSnapshot(t, w)
	assert.Equal(t, []string{"AAPL", "GOOGL", "MSFT", "AMZN"}, symbols(snap))
	assert.Equal(t, "AMZN", snap.ActiveSymbol)
	assert.Equal(t, "Amazon.com Inc.", snap.Stocks[3].Name)
}

func TestHandleAddStock_Errors(t *testing.T) {
	tests := []struct {
		name     string
		apiKey   string
		body     interface{}
		expected int
	}{
		{"unknown symbol", "demo", map[string]string{"symbol": "ZZZZ"}, http.StatusNotFound},
		{"blank symbol", "demo", map[string]string{"symbol": " "}, http.StatusBadRequest},
		{"no credential", "", map[string]string{"symbol": "AMZN"}, http.StatusPreconditionFailed},
		{"malformed body", "demo", "not-an-object", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, store := setupRouter(t, tt.apiKey)
			before := store.Snapshot()

			w := do(t, router, http.MethodPost, "/watchlist/", tt.body)

			assert.Equal(t, tt.expected, w.Code)
			var body map[string]string
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.NotEmpty(t, body["error"])
			assert.Equal(t, symbols(before), symbols(store.Snapshot()))
		})
	}
}

func TestHandleRemoveStock(t *testing.T) {
	router, _ := setupRouter(t, "demo")

	w := do(t, router, http.MethodDelete, "/watchlist/AAPL", nil)

	require.Equal(t, http.StatusOK, w.Code)
	snap := decodeSnapshot(t, w)
	assert.Equal(t, []string{"GOOGL", "MSFT"}, symbols(snap))
	assert.Equal(t, "GOOGL", snap.ActiveSymbol)
}

func TestHandleReorder(t *testing.T) {
	router, _ := setupRouter(t, "demo")

	w := do(t, router, http.MethodPost, "/watchlist/reorder", map[string]int{"old_index": 0, "new_index": 2})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"GOOGL", "MSFT", "AAPL"}, symbols(decodeSnapshot(t, w)))

	w = do(t, router, http.MethodPost, "/watchlist/reorder", map[string]int{"old_index": 7, "new_index": 0})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"GOOGL", "MSFT", "AAPL"}, symbols(decodeSnapshot(t, w)))
}

func TestHandleSort(t *testing.T) {
	router, _ := setupRouter(t, "demo")
	do(t, router, http.MethodPost, "/watchlist/reorder", map[string]int{"old_index": 0, "new_index": 2})

	w := do(t, router, http.MethodPost, "/watchlist/sort", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"AAPL", "GOOGL", "MSFT"}, symbols(decodeSnapshot(t, w)))
}

func TestHandleSelect(t *testing.T) {
	router, _ := setupRouter(t, "demo")

	w := do(t, router, http.MethodPut, "/watchlist/active", map[string]string{"symbol": "MSFT"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MSFT", decodeSnapshot(t, w).ActiveSymbol)

	w = do(t, router, http.MethodPut, "/watchlist/active", map[string]string{"symbol": "ZZZZ"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleGetStats(t *testing.T) {
	router, _ := setupRouter(t, "demo")

	w := do(t, router, http.MethodGet, "/watchlist/stats", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var stats domain.WatchlistStats
	require.NoError(t, json.NewDecoder(w.Body).Decode(&stats))
	assert.Equal(t, 3, stats.TrackedCount)
	assert.InDelta(t, 653.58, stats.TotalValue, 1e-9)
	require.NotNil(t, stats.TopGainer)
	assert.Equal(t, "MSFT", stats.TopGainer.Symbol)
	assert.Equal(t, "AAPL", stats.TopLoser.Symbol)
}

func TestHandleLoadHistory(t *testing.T) {
	router, store := setupRouter(t, "demo")

	w := do(t, router, http.MethodPost, "/watchlist/history?range=1M", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Symbol  string                  `json:"symbol"`
		Days    int                     `json:"days"`
		History []domain.StockDataPoint `json:"history"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "AAPL", body.Symbol)
	assert.Equal(t, 30, body.Days)
	require.NotEmpty(t, body.History)
	assert.Equal(t, 188.91, body.History[len(body.History)-1].Price)
	assert.Len(t, store.Snapshot().Stocks[0].History, len(body.History))

	w = do(t, router, http.MethodPost, "/watchlist/history?days=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleLoadHistory_EmptyWatchlist(t *testing.T) {
	router, _ := setupRouter(t, "")

	w := do(t, router, http.MethodPost, "/watchlist/history?days=7", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, []interface{}{}, body["history"])
}

func TestHandleRefresh(t *testing.T) {
	router, _ := setupRouter(t, "demo")

	w := do(t, router, http.MethodPost, "/watchlist/refresh", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, float64(3), body["updated"])
}

func TestHandleSearch(t *testing.T) {
	router, _ := setupRouter(t, "demo")

	w := do(t, router, http.MethodGet, "/watchlist/search?q=micro", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var outcome struct {
		Query   string                `json:"query"`
		Results []domain.SearchResult `json:"results"`
		Stale   bool                  `json:"stale"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&outcome))
	assert.False(t, outcome.Stale)
	require.Len(t, outcome.Results, 1)
	assert.Equal(t, "MSFT", outcome.Results[0].Symbol)
}

func TestHandleSearch_NoCredential(t *testing.T) {
	router, _ := setupRouter(t, "")

	w := do(t, router, http.MethodGet, "/watchlist/search?q=micro", nil)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func TestHandleAnalyze_Unavailable(t *testing.T) {
	router, _ := setupRouter(t, "demo")

	w := do(t, router, http.MethodPost, "/watchlist/analysis", nil)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
}

type failingAnalyzer struct{}

func (failingAnalyzer) Analyze(ctx context.Context, req gemini.AnalysisRequest) (string, error) {
	return "", &domain.Error{Kind: domain.KindUpstream, Op: "gemini.analyze", Err: errors.New(gemini.AnalysisFailedMsg)}
}

func TestHandleAnalyze_FailureShowsGenericMessage(t *testing.T) {
	router, _ := setupRouterWithAnalyzer(t, "demo", failingAnalyzer{})

	w := do(t, router, http.MethodPost, "/watchlist/analysis", nil)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, gemini.AnalysisFailedMsg, body["error"])
}

func TestUserMessage_UpstreamStatusKeepsDetail(t *testing.T) {
	err := domain.NewUpstreamError("finnhub.quote", http.StatusTooManyRequests)
	assert.Equal(t, err.Error(), userMessage(err))
}
