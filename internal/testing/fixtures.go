package testing

import (
	"time"

	"github.com/aristath/trendtrack/internal/domain"
)

// FixtureStart is the first candle timestamp produced by NewCandleFixture.
var FixtureStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// NewCandleFixture builds an OK candle payload with one daily candle per
// close, starting at FixtureStart. A nil close is a provider null.
func NewCandleFixture(closes ...*float64) *domain.CandleResponse {
	resp := &domain.CandleResponse{
		Status:     domain.CandleStatusOK,
		Close:      make([]*float64, len(closes)),
		Timestamps: make([]int64, len(closes)),
	}
	for i, c := range closes {
		resp.Close[i] = c
		resp.Timestamps[i] = FixtureStart.AddDate(0, 0, i).Unix()
	}
	return resp
}

// NewRisingCloses returns n closes starting at start and rising by 1.
func NewRisingCloses(start float64, n int) []*float64 {
	out := make([]*float64, n)
	for i := range out {
		out[i] = FloatPtr(start + float64(i))
	}
	return out
}

// FloatPtr returns a pointer to f.
func FloatPtr(f float64) *float64 {
	return &f
}
