package settings

// Setting keys persisted in config.db.
const (
	KeyFinnhubAPIKey    = "finnhub_api_key"
	KeyGeminiAPIKey     = "gemini_api_key"
	KeyGeminiModel      = "gemini_model"
	KeyWatchlistSymbols = "watchlist_symbols"
)

// SettingDescriptions documents every known key. Unknown keys are rejected.
var SettingDescriptions = map[string]string{
	KeyFinnhubAPIKey:    "Finnhub API key used for quotes and symbol search",
	KeyGeminiAPIKey:     "Gemini API key used for chart analysis",
	KeyGeminiModel:      "Gemini model name for chart analysis",
	KeyWatchlistSymbols: "Ordered watchlist symbols (JSON array)",
}

// secretKeys are masked when settings are listed.
var secretKeys = map[string]bool{
	KeyFinnhubAPIKey: true,
	KeyGeminiAPIKey:  true,
}

// SettingUpdate is the request body for updating a setting.
type SettingUpdate struct {
	Value interface{} `json:"value"`
}
