// Package yahoo fetches historical candles through the local chart proxy.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/aristath/trendtrack/internal/domain"
	"github.com/rs/zerolog"
)

const (
	// DefaultProxyURL is where cmd/proxy listens by default.
	DefaultProxyURL = "http://localhost:3001"
	defaultTimeout  = 5 * time.Second
)

// chartResponse is the Yahoo v8 chart payload relayed by the proxy.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close  []*float64 `json:"close"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Open   []*float64 `json:"open"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
	} `json:"chart"`
}

// Client loads candles from the proxy. No retries are attempted.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a new chart client for the proxy at proxyURL.
func NewClient(proxyURL string, log zerolog.Logger) *Client {
	if proxyURL == "" {
		proxyURL = DefaultProxyURL
	}
	return &Client{
		baseURL:    proxyURL,
		timeout:    defaultTimeout,
		httpClient: &http.Client{},
		log:        log.With().Str("client", "yahoo-chart").Logger(),
	}
}

// Interval maps a resolution to the chart interval token.
func Interval(resolution domain.Resolution) string {
	switch resolution {
	case domain.ResolutionIntraday:
		return "1h"
	case domain.ResolutionWeekly:
		return "1wk"
	default:
		return "1d"
	}
}

// FetchHistoricalCandles loads OHLCV candles for symbol between from and to.
// A payload without a result or timestamps yields status "no_data".
func (c *Client) FetchHistoricalCandles(ctx context.Context, symbol string, resolution domain.Resolution, from, to time.Time) (*domain.CandleResponse, error) {
	const op = "yahoo.candles"

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := url.Values{
		"period1":  {strconv.FormatInt(from.Unix(), 10)},
		"period2":  {strconv.FormatInt(to.Unix(), 10)},
		"interval": {Interval(resolution)},
	}
	reqURL := fmt.Sprintf("%s/api/yahoo-finance/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.log.Debug().Str("symbol", symbol).Str("interval", Interval(resolution)).Msg("Fetching candles")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.FromTransportError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.NewUpstreamError(op, resp.StatusCode)
	}

	var chart chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		if ctx.Err() != nil {
			return nil, domain.NewTimeoutError(op, ctx.Err())
		}
		return nil, fmt.Errorf("failed to parse chart response: %w", err)
	}

	return toCandles(chart), nil
}

func toCandles(chart chartResponse) *domain.CandleResponse {
	empty := &domain.CandleResponse{
		Close:      []*float64{},
		High:       []*float64{},
		Low:        []*float64{},
		Open:       []*float64{},
		Volume:     []*float64{},
		Status:     domain.CandleStatusNoData,
		Timestamps: []int64{},
	}

	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return empty
	}

	result := chart.Chart.Result[0]
	out := &domain.CandleResponse{
		Status:     domain.CandleStatusOK,
		Timestamps: result.Timestamp,
		Close:      []*float64{},
		High:       []*float64{},
		Low:        []*float64{},
		Open:       []*float64{},
		Volume:     []*float64{},
	}

	if len(result.Indicators.Quote) > 0 {
		q := result.Indicators.Quote[0]
		out.Close = orEmpty(q.Close)
		out.High = orEmpty(q.High)
		out.Low = orEmpty(q.Low)
		out.Open = orEmpty(q.Open)
		out.Volume = orEmpty(q.Volume)
	}

	return out
}

func orEmpty(v []*float64) []*float64 {
	if v == nil {
		return []*float64{}
	}
	return v
}
