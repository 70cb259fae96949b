package formulas

import (
	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// CalculateReturns converts prices to fractional period returns.
// Returns[i] = (Price[i+1] - Price[i]) / Price[i]; a zero base price yields 0.
func CalculateReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
		}
	}
	return returns
}

// Momentum summarises a closing-price window: total change in percent from
// first to last sample, and the standard deviation of period returns in percent.
type Momentum struct {
	ChangePct     float64
	VolatilityPct float64
	Samples       int
}

// CalculateMomentum builds a Momentum summary. Fewer than two samples give a zero value.
func CalculateMomentum(prices []float64) Momentum {
	m := Momentum{Samples: len(prices)}
	if len(prices) < 2 {
		return m
	}
	if first := prices[0]; first != 0 {
		m.ChangePct = (prices[len(prices)-1] - first) / first * 100
	}
	m.VolatilityPct = StdDev(CalculateReturns(prices)) * 100
	return m
}
