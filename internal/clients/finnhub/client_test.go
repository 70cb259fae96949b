package finnhub

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/trendtrack/internal/clientdata"
	"github.com/aristath/trendtrack/internal/domain"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T) *clientdata.Repository {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE finnhub_search (query TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL);
		CREATE TABLE finnhub_profile (symbol TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL);
	`)
	require.NoError(t, err)
	return clientdata.NewRepository(db)
}

func newTestClient(t *testing.T, handler http.HandlerFunc, cache *clientdata.Repository) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(cache, zerolog.Nop())
	client.baseURL = server.URL
	return client
}

func TestFetchQuote_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote", r.URL.Path)
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		assert.Equal(t, "key", r.URL.Query().Get("token"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"c":188.91,"d":-0.45,"dp":-0.24,"h":190,"l":187,"o":189,"pc":189.36}`))
	}, nil)

	quote, err := client.FetchQuote(context.Background(), "AAPL", "key")
	require.NoError(t, err)
	assert.Equal(t, 188.91, quote.CurrentPrice)
	assert.Equal(t, -0.45, quote.Change)
	assert.Equal(t, -0.24, quote.ChangePercent)
	assert.Equal(t, 189.36, quote.PrevClose)
}

func TestFetchQuote_MissingKeyMakesNoRequest(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}, nil)

	_, err := client.FetchQuote(context.Background(), "AAPL", "")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindConfiguration))
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestFetchQuote_UpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}, nil)

	_, err := client.FetchQuote(context.Background(), "AAPL", "key")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindUpstream))
}

func TestFetchQuote_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(nil, zerolog.Nop())
	client.baseURL = url

	_, err := client.FetchQuote(context.Background(), "AAPL", "key")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindNetwork))
}

func TestFetchQuote_Timeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.FetchQuote(ctx, "AAPL", "key")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindTimeout))
}

func TestSearch_CachesResults(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "apple", r.URL.Query().Get("q"))
		w.Write([]byte(`{"count":2,"result":[
			{"description":"APPLE INC","displaySymbol":"AAPL","symbol":"AAPL","type":"Common Stock"},
			{"description":"APPLE INC","displaySymbol":"AAPL.SW","symbol":"AAPL.SW","type":"Common Stock"}
		]}`))
	}, setupCache(t))

	first, err := client.Search(context.Background(), "apple", "key")
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "AAPL", first[0].Symbol)
	assert.Equal(t, "APPLE INC", first[0].Description)

	second, err := client.Search(context.Background(), "Apple ", "key")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSearch_StaleCacheOnFailure(t *testing.T) {
	cache := setupCache(t)
	require.NoError(t, cache.Store("finnhub_search", "msft", []domain.SearchResult{{Symbol: "MSFT", Type: "Common Stock"}}, -time.Hour))

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, cache)

	results, err := client.Search(context.Background(), "msft", "key")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "MSFT", results[0].Symbol)
}

func TestSearch_EmptyResult(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"count":0}`))
	}, nil)

	results, err := client.Search(context.Background(), "zzzz", "key")
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestCompanyName(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/stock/profile2", r.URL.Path)
		w.Write([]byte(`{"name":"Apple Inc","ticker":"AAPL"}`))
	}, setupCache(t))

	name, err := client.CompanyName(context.Background(), "AAPL", "key")
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc", name)

	name, err = client.CompanyName(context.Background(), "AAPL", "key")
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc", name)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSearch_EvictsUnreadableCacheEntry(t *testing.T) {
	cache := setupCache(t)
	require.NoError(t, cache.Store("finnhub_search", "goo", "not-a-result-list", clientdata.TTLSymbolSearch))

	var requests int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}, cache)

	_, err := client.Search(context.Background(), "GOO", "key")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindUpstream))
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))

	var leftover string
	ok, err := cache.Get("finnhub_search", "goo", &leftover)
	require.NoError(t, err)
	assert.False(t, ok)
}
