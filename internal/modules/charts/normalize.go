package charts

import (
	"time"

	"github.com/aristath/trendtrack/internal/domain"
	"github.com/aristath/trendtrack/pkg/formulas"
)

const dateLayout = "2006-01-02"

// NormalizeCandles turns a raw candle payload into a displayable series.
//
// Candles with a null close are dropped and the moving average is computed
// over the remaining (compacted) points, so a window may span a gap.
// A payload whose status is not "ok" or that has no timestamps yields an
// empty, non-nil series.
func NormalizeCandles(resp domain.CandleResponse) []domain.StockDataPoint {
	points := []domain.StockDataPoint{}
	if resp.Status != domain.CandleStatusOK || len(resp.Timestamps) == 0 {
		return points
	}

	for i, ts := range resp.Timestamps {
		// Close may be shorter than the timestamp array on truncated payloads
		if i >= len(resp.Close) || resp.Close[i] == nil {
			continue
		}
		points = append(points, domain.StockDataPoint{
			Date:  time.Unix(ts, 0).UTC().Format(dateLayout),
			Price: *resp.Close[i],
		})
	}

	ComputeMovingAverage(points, formulas.DefaultMAWindow)
	return points
}

// ComputeMovingAverage fills MA20 in place with the trailing mean over window points.
// Points before the first full window keep a nil average.
func ComputeMovingAverage(points []domain.StockDataPoint, window int) {
	prices := make([]float64, len(points))
	for i, p := range points {
		prices[i] = p.Price
	}

	averages := formulas.SimpleMovingAverage(prices, window)
	for i := range points {
		if averages == nil {
			points[i].MA20 = nil
			continue
		}
		points[i].MA20 = averages[i]
	}
}
