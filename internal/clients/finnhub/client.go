// Package finnhub provides a client for the Finnhub market data API.
package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aristath/trendtrack/internal/clientdata"
	"github.com/aristath/trendtrack/internal/domain"
	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://finnhub.io/api/v1"

// searchResponse is the /search payload.
type searchResponse struct {
	Count  int                   `json:"count"`
	Result []domain.SearchResult `json:"result"`
}

// profileResponse is the subset of /stock/profile2 we use.
type profileResponse struct {
	Name   string `json:"name"`
	Ticker string `json:"ticker"`
}

// Client for the Finnhub REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
	cacheRepo  *clientdata.Repository
}

// NewClient creates a new Finnhub client.
// cacheRepo is optional - if nil, caching is disabled.
func NewClient(cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log.With().Str("client", "finnhub").Logger(),
		cacheRepo:  cacheRepo,
	}
}

// FetchQuote returns the latest quote for symbol.
// An empty apiKey fails with a configuration error before any request is made.
func (c *Client) FetchQuote(ctx context.Context, symbol, apiKey string) (*domain.Quote, error) {
	const op = "finnhub.quote"
	if apiKey == "" {
		return nil, domain.NewConfigurationError(op, "API key missing")
	}

	var quote domain.Quote
	params := url.Values{"symbol": {symbol}, "token": {apiKey}}
	if err := c.get(ctx, op, "/quote", params, &quote); err != nil {
		return nil, err
	}

	c.log.Debug().
		Str("symbol", symbol).
		Float64("price", quote.CurrentPrice).
		Msg("Fetched quote")

	return &quote, nil
}

// Search runs a provider symbol search. Fresh cached results are served
// without a request; stale ones are used only when the provider fails.
func (c *Client) Search(ctx context.Context, query, apiKey string) ([]domain.SearchResult, error) {
	const op = "finnhub.search"
	if apiKey == "" {
		return nil, domain.NewConfigurationError(op, "API key missing")
	}

	cacheKey := strings.ToLower(strings.TrimSpace(query))
	if results, ok := c.fromCache("finnhub_search", cacheKey, true); ok {
		c.log.Debug().Str("query", query).Msg("Search cache hit")
		return results, nil
	}

	var resp searchResponse
	params := url.Values{"q": {query}, "token": {apiKey}}
	if err := c.get(ctx, op, "/search", params, &resp); err != nil {
		if stale, ok := c.fromCache("finnhub_search", cacheKey, false); ok {
			c.log.Warn().Err(err).Str("query", query).Msg("Search failed, using stale cached results")
			return stale, nil
		}
		return nil, err
	}

	if resp.Result == nil {
		resp.Result = []domain.SearchResult{}
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store("finnhub_search", cacheKey, resp.Result, clientdata.TTLSymbolSearch); err != nil {
			c.log.Warn().Err(err).Str("query", query).Msg("Failed to cache search results")
		}
	}

	return resp.Result, nil
}

// CompanyName resolves a display name for symbol via the company profile.
// Returns "" when the provider knows no profile for the symbol.
func (c *Client) CompanyName(ctx context.Context, symbol, apiKey string) (string, error) {
	const op = "finnhub.profile"
	if apiKey == "" {
		return "", domain.NewConfigurationError(op, "API key missing")
	}

	if c.cacheRepo != nil {
		var name string
		ok, err := c.cacheRepo.GetIfFresh("finnhub_profile", symbol, &name)
		if err != nil {
			c.evict("finnhub_profile", symbol, err)
		} else if ok {
			return name, nil
		}
	}

	var profile profileResponse
	params := url.Values{"symbol": {symbol}, "token": {apiKey}}
	if err := c.get(ctx, op, "/stock/profile2", params, &profile); err != nil {
		return "", err
	}

	if c.cacheRepo != nil && profile.Name != "" {
		if err := c.cacheRepo.Store("finnhub_profile", symbol, profile.Name, clientdata.TTLCompanyProfile); err != nil {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache company profile")
		}
	}

	return profile.Name, nil
}

func (c *Client) fromCache(table, key string, freshOnly bool) ([]domain.SearchResult, bool) {
	if c.cacheRepo == nil {
		return nil, false
	}

	var results []domain.SearchResult
	var ok bool
	var err error
	if freshOnly {
		ok, err = c.cacheRepo.GetIfFresh(table, key, &results)
	} else {
		ok, err = c.cacheRepo.Get(table, key, &results)
	}
	if err != nil {
		c.evict(table, key, err)
		return nil, false
	}
	if ok && results == nil {
		results = []domain.SearchResult{}
	}
	return results, ok
}

// evict drops a cache entry that could not be read so it is refetched.
func (c *Client) evict(table, key string, readErr error) {
	c.log.Debug().Err(readErr).Str("table", table).Str("key", key).Msg("Evicting unreadable cache entry")
	if err := c.cacheRepo.Delete(table, key); err != nil {
		c.log.Warn().Err(err).Str("table", table).Str("key", key).Msg("Failed to evict cache entry")
	}
}

// get performs a GET against path and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, op, path string, params url.Values, out interface{}) error {
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.FromTransportError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn().
			Str("path", path).
			Int("status", resp.StatusCode).
			Msg("Finnhub returned an error status")
		return domain.NewUpstreamError(op, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", op, err)
	}

	return nil
}
