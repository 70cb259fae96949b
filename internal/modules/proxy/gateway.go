package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/aristath/trendtrack/internal/domain"
	"github.com/rs/zerolog"
)

const (
	// DefaultUpstreamURL is the chart endpoint requests are relayed to.
	DefaultUpstreamURL = "https://query1.finance.yahoo.com/v8/finance/chart"

	upstreamTimeout = 5 * time.Second
	maxBodyBytes    = 16 << 20
)

// ErrUnreadableBody is returned when the upstream answered but its body
// could not be read.
var ErrUnreadableBody = errors.New("upstream body unreadable")

// ChartResponse is an upstream success response, relayed verbatim.
type ChartResponse struct {
	Status      int
	ContentType string
	Body        []byte
}

// Gateway forwards validated chart requests upstream.
type Gateway struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	log        zerolog.Logger
}

// NewGateway creates a new upstream gateway. An empty baseURL uses DefaultUpstreamURL.
func NewGateway(baseURL string, log zerolog.Logger) *Gateway {
	if baseURL == "" {
		baseURL = DefaultUpstreamURL
	}
	return &Gateway{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		timeout:    upstreamTimeout,
		log:        log.With().Str("client", "chart_upstream").Logger(),
	}
}

// FetchChart relays one request. Non-2xx answers become an upstream error
// carrying the status; the upstream body is discarded.
func (g *Gateway) FetchChart(ctx context.Context, params ChartParams) (*ChartResponse, error) {
	const op = "proxy.chart"

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	target := fmt.Sprintf("%s/%s?%s", g.baseURL, url.PathEscape(params.Symbol), params.Query().Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, domain.FromTransportError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		g.log.Warn().
			Str("symbol", params.Symbol).
			Int("status", resp.StatusCode).
			Msg("Upstream returned error status")
		return nil, domain.NewUpstreamError(op, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, domain.NewTimeoutError(op, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnreadableBody, err)
	}

	g.log.Debug().
		Str("symbol", params.Symbol).
		Str("interval", params.Interval).
		Dur("duration_ms", time.Since(start)).
		Msg("Chart relayed")

	return &ChartResponse{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
