// Package domain provides core domain models and types.
package domain

// DefaultSymbols seeds a watchlist that has never been persisted.
var DefaultSymbols = []string{"AAPL", "GOOGL", "MSFT", "AMZN"}

// DefaultGeminiModel is used when no model override is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// Quote is a point-in-time price snapshot for one symbol.
// JSON tags follow the Finnhub quote payload.
type Quote struct {
	CurrentPrice  float64 `json:"c"`
	Change        float64 `json:"d"`
	ChangePercent float64 `json:"dp"`
	DayHigh       float64 `json:"h"`
	DayLow        float64 `json:"l"`
	DayOpen       float64 `json:"o"`
	PrevClose     float64 `json:"pc"`
}

// StockDataPoint is one sample of a displayable price series.
// MA20 is nil until at least 20 samples are available.
type StockDataPoint struct {
	Date  string   `json:"date"`
	Price float64  `json:"price"`
	MA20  *float64 `json:"ma20,omitempty"`
}

// StockSummary is one watchlist entry.
type StockSummary struct {
	Symbol        string           `json:"symbol"`
	Name          string           `json:"name"`
	CurrentPrice  float64          `json:"current_price"`
	ChangeValue   float64          `json:"change_value"`
	ChangePercent float64          `json:"change_percent"`
	History       []StockDataPoint `json:"history"`
	Quote         Quote            `json:"quote"`
}

// Clone returns a deep copy so callers cannot mutate store-owned history.
func (s StockSummary) Clone() StockSummary {
	out := s
	out.History = make([]StockDataPoint, len(s.History))
	copy(out.History, s.History)
	return out
}

// WatchlistStats is derived from the watchlist on every read and never stored.
type WatchlistStats struct {
	TotalValue         float64       `json:"total_value"`
	ValueChange        float64       `json:"value_change"`
	ValueChangePercent float64       `json:"value_change_percent"`
	TrackedCount       int           `json:"tracked_count"`
	TopGainer          *StockSummary `json:"top_gainer"`
	TopLoser           *StockSummary `json:"top_loser"`
}

// PersistedConfig is the durable part of the dashboard state.
type PersistedConfig struct {
	FinnhubAPIKey string   `json:"finnhub_api_key"`
	GeminiAPIKey  string   `json:"gemini_api_key"`
	GeminiModel   string   `json:"gemini_model"`
	Symbols       []string `json:"symbols"`
}

// CandleResponse is a raw OHLCV payload. Nil entries are provider nulls.
type CandleResponse struct {
	Close      []*float64 `json:"c"`
	High       []*float64 `json:"h"`
	Low        []*float64 `json:"l"`
	Open       []*float64 `json:"o"`
	Volume     []*float64 `json:"v"`
	Status     string     `json:"s"`
	Timestamps []int64    `json:"t"`
}

// Candle status values.
const (
	CandleStatusOK     = "ok"
	CandleStatusNoData = "no_data"
)

// SearchResult is one symbol-search hit.
type SearchResult struct {
	Symbol        string `json:"symbol"`
	DisplaySymbol string `json:"displaySymbol"`
	Description   string `json:"description"`
	Type          string `json:"type"`
}

// Resolution is the candle granularity requested from the history provider.
type Resolution string

const (
	ResolutionIntraday Resolution = "intraday"
	ResolutionDaily    Resolution = "daily"
	ResolutionWeekly   Resolution = "weekly"
)
