package watchlist

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aristath/trendtrack/internal/clients/gemini"
	"github.com/aristath/trendtrack/internal/domain"
	"github.com/stretchr/testify/mock"
)

type fakeQuotes struct {
	mu     sync.Mutex
	quotes map[string]domain.Quote
	names  map[string]string
	errs   map[string]error
	delays map[string]time.Duration
	calls  int32
}

func newFakeQuotes() *fakeQuotes {
	return &fakeQuotes{
		quotes: map[string]domain.Quote{
			"AAPL":  {CurrentPrice: 188.91, Change: -0.45, ChangePercent: -0.24},
			"GOOGL": {CurrentPrice: 163.63, Change: 0.47, ChangePercent: 0.29},
			"MSFT":  {CurrentPrice: 301.04, Change: 1.99, ChangePercent: 0.67},
			"AMZN":  {CurrentPrice: 124.53, Change: -2.21, ChangePercent: -1.74},
			"TSLA":  {CurrentPrice: 250, Change: 5, ChangePercent: 2.04},
		},
		names:  map[string]string{"AAPL": "Apple Inc"},
		errs:   map[string]error{},
		delays: map[string]time.Duration{},
	}
}

func (f *fakeQuotes) setQuote(symbol string, q domain.Quote) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quotes[symbol] = q
}

func (f *fakeQuotes) FetchQuote(ctx context.Context, symbol, apiKey string) (*domain.Quote, error) {
	atomic.AddInt32(&f.calls, 1)

	f.mu.Lock()
	delay := f.delays[symbol]
	err := f.errs[symbol]
	q, ok := f.quotes[symbol]
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NewUpstreamError("fake.quote", 404)
	}
	return &q, nil
}

func (f *fakeQuotes) CompanyName(ctx context.Context, symbol, apiKey string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.names[symbol], nil
}

func (f *fakeQuotes) callCount() int {
	return int(atomic.LoadInt32(&f.calls))
}

type fakeConfig struct {
	mu       sync.Mutex
	cfg      domain.PersistedConfig
	setCalls int
	failSet  error
}

func newFakeConfig(key string, symbols ...string) *fakeConfig {
	return &fakeConfig{cfg: domain.PersistedConfig{
		FinnhubAPIKey: key,
		GeminiAPIKey:  "gemini-key",
		GeminiModel:   domain.DefaultGeminiModel,
		Symbols:       symbols,
	}}
}

func (f *fakeConfig) Config() domain.PersistedConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg := f.cfg
	cfg.Symbols = append([]string(nil), f.cfg.Symbols...)
	return cfg
}

func (f *fakeConfig) SetSymbols(symbols []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls++
	if f.failSet != nil {
		return f.failSet
	}
	f.cfg.Symbols = append([]string(nil), symbols...)
	return nil
}

func (f *fakeConfig) symbols() []string {
	return f.Config().Symbols
}

func (f *fakeConfig) writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.setCalls
}

// fakeCandles serves a fixed daily series and records the requested resolution.
type fakeCandles struct {
	mu          sync.Mutex
	resolutions []domain.Resolution
	block       map[string]chan struct{}
	err         error
	closes      []float64
}

func (f *fakeCandles) FetchHistoricalCandles(ctx context.Context, symbol string, resolution domain.Resolution, from, to time.Time) (*domain.CandleResponse, error) {
	f.mu.Lock()
	f.resolutions = append(f.resolutions, resolution)
	block := f.block[symbol]
	err := f.err
	closes := f.closes
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	resp := &domain.CandleResponse{Status: domain.CandleStatusOK}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		v := c
		resp.Timestamps = append(resp.Timestamps, start.AddDate(0, 0, i).Unix())
		resp.Close = append(resp.Close, &v)
	}
	return resp, nil
}

func (f *fakeCandles) lastResolution() domain.Resolution {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.resolutions) == 0 {
		return ""
	}
	return f.resolutions[len(f.resolutions)-1]
}

func (f *fakeCandles) requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.resolutions)
}

type mockAnalyzer struct {
	mock.Mock
}

func (m *mockAnalyzer) Analyze(ctx context.Context, req gemini.AnalysisRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}
