package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func naiveMean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func TestSimpleMovingAverage_DefinedFromWindowMinusOne(t *testing.T) {
	prices := make([]float64, 45)
	for i := range prices {
		prices[i] = 100 + float64(i%7)*1.37 - float64(i%3)*0.91
	}

	ma := SimpleMovingAverage(prices, DefaultMAWindow)
	require.Len(t, ma, len(prices))

	for i := range prices {
		if i < DefaultMAWindow-1 {
			assert.Nil(t, ma[i], "index %d should be undefined", i)
			continue
		}
		require.NotNil(t, ma[i], "index %d should be defined", i)
		assert.InDelta(t, naiveMean(prices[i-19:i+1]), *ma[i], 1e-9, "index %d", i)
	}
}

func TestSimpleMovingAverage_ShortSeries(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		window int
	}{
		{"empty", nil, 20},
		{"one short of window", make([]float64, 19), 20},
		{"zero window", []float64{1, 2, 3}, 0},
		{"negative window", []float64{1, 2, 3}, -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ma := SimpleMovingAverage(tt.values, tt.window)
			assert.Len(t, ma, len(tt.values))
			for _, v := range ma {
				assert.Nil(t, v)
			}
		})
	}
}

func TestSimpleMovingAverage_ExactWindow(t *testing.T) {
	prices := []float64{1, 2, 3, 4}
	ma := SimpleMovingAverage(prices, 4)

	assert.Nil(t, ma[0])
	assert.Nil(t, ma[2])
	require.NotNil(t, ma[3])
	assert.InDelta(t, 2.5, *ma[3], 1e-12)
}

func TestSimpleMovingAverage_WindowOfOne(t *testing.T) {
	prices := []float64{3, 5, 8}
	ma := SimpleMovingAverage(prices, 1)

	for i, p := range prices {
		require.NotNil(t, ma[i])
		assert.InDelta(t, p, *ma[i], 1e-12)
	}
}

func TestLastSMA(t *testing.T) {
	assert.Nil(t, LastSMA([]float64{1, 2}, 3))

	last := LastSMA([]float64{1, 2, 3, 4, 5}, 3)
	require.NotNil(t, last)
	assert.InDelta(t, 4.0, *last, 1e-12)
}
