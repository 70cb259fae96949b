// Package formulas holds the pure numeric helpers used to derive chart series.
package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// DefaultMAWindow is the sample count of the chart's moving average line.
const DefaultMAWindow = 20

// SimpleMovingAverage returns the trailing simple moving average of values.
//
// The result has the same length as values. Entry i is nil while fewer than
// window samples are available (i < window-1) and otherwise holds the mean of
// values[i-window+1..i]. go-talib keeps a running sum, so the cost is O(n).
func SimpleMovingAverage(values []float64, window int) []*float64 {
	out := make([]*float64, len(values))
	if window <= 0 || len(values) < window {
		return out
	}

	sma := talib.Sma(values, window)
	for i := window - 1; i < len(values) && i < len(sma); i++ {
		if isNaN(sma[i]) {
			continue
		}
		v := sma[i]
		out[i] = &v
	}
	return out
}

// LastSMA returns the most recent moving average value, or nil when there is
// not enough data.
func LastSMA(values []float64, window int) *float64 {
	series := SimpleMovingAverage(values, window)
	if len(series) == 0 {
		return nil
	}
	return series[len(series)-1]
}

func isNaN(f float64) bool {
	return math.IsNaN(f) || math.IsInf(f, 0)
}
