// Package mockdata serves fixed quotes and generated candles for offline demo mode.
package mockdata

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/aristath/trendtrack/internal/domain"
	"github.com/rs/zerolog"
)

type fixture struct {
	Name          string
	CurrentPrice  float64
	ChangeValue   float64
	ChangePercent float64
}

var fixtures = map[string]fixture{
	"AAPL":  {Name: "Apple Inc.", CurrentPrice: 188.91, ChangeValue: -0.45, ChangePercent: -0.24},
	"GOOGL": {Name: "Alphabet Inc.", CurrentPrice: 163.63, ChangeValue: 0.47, ChangePercent: 0.29},
	"MSFT":  {Name: "Microsoft Corp.", CurrentPrice: 301.04, ChangeValue: 1.99, ChangePercent: 0.67},
	"AMZN":  {Name: "Amazon.com Inc.", CurrentPrice: 124.53, ChangeValue: -2.21, ChangePercent: -1.74},
}

// Provider answers quote, search and candle requests from fixtures.
// Credentials are ignored so the dashboard works without an account.
type Provider struct {
	log zerolog.Logger
}

// NewProvider creates a new demo data provider
func NewProvider(log zerolog.Logger) *Provider {
	return &Provider{log: log.With().Str("client", "mockdata").Logger()}
}

// FetchQuote returns the fixture quote for symbol.
func (p *Provider) FetchQuote(_ context.Context, symbol, _ string) (*domain.Quote, error) {
	f, ok := fixtures[symbol]
	if !ok {
		return nil, domain.NewNotFoundError("mockdata.quote", "Stock not found")
	}

	prev := f.CurrentPrice - f.ChangeValue
	return &domain.Quote{
		CurrentPrice:  f.CurrentPrice,
		Change:        f.ChangeValue,
		ChangePercent: f.ChangePercent,
		DayHigh:       math.Max(f.CurrentPrice, prev),
		DayLow:        math.Min(f.CurrentPrice, prev),
		DayOpen:       prev,
		PrevClose:     prev,
	}, nil
}

// Search matches the query against fixture symbols and names.
func (p *Provider) Search(_ context.Context, query, _ string) ([]domain.SearchResult, error) {
	q := strings.ToUpper(strings.TrimSpace(query))
	results := []domain.SearchResult{}

	for symbol, f := range fixtures {
		if strings.Contains(symbol, q) || strings.Contains(strings.ToUpper(f.Name), q) {
			results = append(results, domain.SearchResult{
				Symbol:        symbol,
				DisplaySymbol: symbol,
				Description:   strings.ToUpper(f.Name),
				Type:          "Common Stock",
			})
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Symbol < results[j].Symbol })
	return results, nil
}

// CompanyName returns the fixture name, or "" for unknown symbols.
func (p *Provider) CompanyName(_ context.Context, symbol, _ string) (string, error) {
	return fixtures[symbol].Name, nil
}

// FetchHistoricalCandles generates a random walk ending at the fixture price.
// The walk is seeded by symbol so repeated loads agree.
func (p *Provider) FetchHistoricalCandles(_ context.Context, symbol string, resolution domain.Resolution, from, to time.Time) (*domain.CandleResponse, error) {
	f, ok := fixtures[symbol]
	if !ok {
		return nil, domain.NewNotFoundError("mockdata.candles", "Stock not found")
	}

	step := 24 * time.Hour
	switch resolution {
	case domain.ResolutionIntraday:
		step = time.Hour
	case domain.ResolutionWeekly:
		step = 7 * 24 * time.Hour
	}

	h := fnv.New64a()
	h.Write([]byte(symbol))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	resp := &domain.CandleResponse{Status: domain.CandleStatusOK}
	start := f.CurrentPrice * 0.8
	price := start
	for ts := from; !ts.After(to); ts = ts.Add(step) {
		change := (rng.Float64() - 0.48) * (start * 0.02)
		price = math.Max(price+change, 1)

		c := price
		resp.Timestamps = append(resp.Timestamps, ts.Unix())
		resp.Close = append(resp.Close, &c)
	}

	if n := len(resp.Close); n > 0 {
		last := f.CurrentPrice
		resp.Close[n-1] = &last
	}

	p.log.Debug().Str("symbol", symbol).Int("points", len(resp.Close)).Msg("Generated demo candles")
	return resp, nil
}
