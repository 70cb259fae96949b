// Package charts derives displayable price series from raw historical candles.
package charts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/trendtrack/internal/domain"
	"github.com/rs/zerolog"
)

// CandleFetcher loads raw candles for a symbol over a time span.
type CandleFetcher interface {
	FetchHistoricalCandles(ctx context.Context, symbol string, resolution domain.Resolution, from, to time.Time) (*domain.CandleResponse, error)
}

// Service provides chart data operations
type Service struct {
	fetcher CandleFetcher
	now     func() time.Time
	log     zerolog.Logger
}

// NewService creates a new charts service
func NewService(fetcher CandleFetcher, log zerolog.Logger) *Service {
	return &Service{
		fetcher: fetcher,
		now:     time.Now,
		log:     log.With().Str("service", "charts").Logger(),
	}
}

// SelectResolution picks the candle granularity for a span.
// Up to a week is intraday, up to a month daily, anything longer weekly.
func SelectResolution(from, to time.Time) domain.Resolution {
	span := to.Sub(from)
	switch {
	case span <= 7*24*time.Hour:
		return domain.ResolutionIntraday
	case span <= 30*24*time.Hour:
		return domain.ResolutionDaily
	default:
		return domain.ResolutionWeekly
	}
}

// GetSeries fetches the last `days` days of candles for symbol and normalizes them.
func (s *Service) GetSeries(ctx context.Context, symbol string, days int) ([]domain.StockDataPoint, error) {
	if days <= 0 {
		return nil, domain.NewValidationError("charts.series", "days must be positive")
	}

	to := s.now()
	from := to.Add(-time.Duration(days) * 24 * time.Hour)
	resolution := SelectResolution(from, to)

	resp, err := s.fetcher.FetchHistoricalCandles(ctx, symbol, resolution, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candles for %s: %w", symbol, err)
	}

	points := NormalizeCandles(*resp)
	s.log.Debug().
		Str("symbol", symbol).
		Int("days", days).
		Str("resolution", string(resolution)).
		Int("points", len(points)).
		Msg("Loaded chart series")

	return points, nil
}

// ParseRange converts a dashboard range label to a day count.
// Unknown labels fall back to one month.
func ParseRange(rangeStr string) int {
	switch strings.ToUpper(rangeStr) {
	case "1W":
		return 7
	case "1M":
		return 30
	case "6M":
		return 180
	case "1Y":
		return 365
	case "ALL":
		return 1000
	default:
		return 30
	}
}
