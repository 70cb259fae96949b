// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/aristath/trendtrack/internal/domain"
	"github.com/aristath/trendtrack/internal/modules/settings"
	"github.com/aristath/trendtrack/internal/utils"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for the config and cache databases (always absolute)
	LogLevel string
	Port     int // Dashboard API port
	DevMode  bool

	// DemoMode serves fixture quotes and generated candles instead of calling providers
	DemoMode bool

	FinnhubAPIKey string
	GeminiAPIKey  string
	GeminiModel   string

	ProxyPort        int    // Port the chart relay listens on
	ProxyURL         string // Where the dashboard reaches the chart relay
	UpstreamChartURL string // Where the relay forwards to

	DefaultSymbols []string
	AllowedOrigins []string
	SearchDebounce time.Duration

	QuoteRefreshSchedule  string // cron spec with seconds field
	CacheCleanupSchedule  string
	WALCheckpointSchedule string
}

// fileOverlay is the optional YAML file named by TRENDTRACK_CONFIG.
type fileOverlay struct {
	DefaultSymbols       []string `yaml:"default_symbols"`
	AllowedOrigins       []string `yaml:"allowed_origins"`
	GeminiModel          string   `yaml:"gemini_model"`
	QuoteRefreshSchedule string   `yaml:"quote_refresh_schedule"`
	SearchDebounceMS     int      `yaml:"search_debounce_ms"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("TRENDTRACK_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:               absDataDir,
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		Port:                  getEnvAsInt("TRENDTRACK_PORT", 8001),
		DevMode:               getEnvAsBool("DEV_MODE", false),
		DemoMode:              getEnvAsBool("TRENDTRACK_DEMO_MODE", false),
		FinnhubAPIKey:         getEnv("FINNHUB_API_KEY", ""),
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiModel:           getEnv("GEMINI_MODEL", domain.DefaultGeminiModel),
		ProxyPort:             getEnvAsInt("TRENDTRACK_PROXY_PORT", 3001),
		ProxyURL:              getEnv("TRENDTRACK_PROXY_URL", "http://localhost:3001"),
		UpstreamChartURL:      getEnv("TRENDTRACK_UPSTREAM_CHART_URL", "https://query1.finance.yahoo.com/v8/finance/chart"),
		DefaultSymbols:        append([]string(nil), domain.DefaultSymbols...),
		AllowedOrigins:        getEnvAsList("TRENDTRACK_ALLOWED_ORIGINS", nil),
		SearchDebounce:        time.Duration(getEnvAsInt("TRENDTRACK_SEARCH_DEBOUNCE_MS", 500)) * time.Millisecond,
		QuoteRefreshSchedule:  getEnv("TRENDTRACK_QUOTE_REFRESH", "0 * * * * *"),
		CacheCleanupSchedule:  getEnv("TRENDTRACK_CACHE_CLEANUP", "0 0 3 * * *"),
		WALCheckpointSchedule: getEnv("TRENDTRACK_WAL_CHECKPOINT", "0 0 * * * *"),
	}

	if path := getEnv("TRENDTRACK_CONFIG", ""); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyFile overlays values from a YAML file. Only fields present in the
// file replace the environment-derived values.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var overlay fileOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if len(overlay.DefaultSymbols) > 0 {
		c.DefaultSymbols = overlay.DefaultSymbols
	}
	if len(overlay.AllowedOrigins) > 0 {
		c.AllowedOrigins = overlay.AllowedOrigins
	}
	if overlay.GeminiModel != "" {
		c.GeminiModel = overlay.GeminiModel
	}
	if overlay.QuoteRefreshSchedule != "" {
		c.QuoteRefreshSchedule = overlay.QuoteRefreshSchedule
	}
	if overlay.SearchDebounceMS > 0 {
		c.SearchDebounce = time.Duration(overlay.SearchDebounceMS) * time.Millisecond
	}

	return nil
}

// UpdateFromSettings updates configuration from settings database
// Settings DB values take precedence over environment variables
func (c *Config) UpdateFromSettings(settingsRepo *settings.Repository) error {
	overrides := []struct {
		key    string
		target *string
	}{
		{settings.KeyFinnhubAPIKey, &c.FinnhubAPIKey},
		{settings.KeyGeminiAPIKey, &c.GeminiAPIKey},
		{settings.KeyGeminiModel, &c.GeminiModel},
	}

	for _, o := range overrides {
		value, err := settingsRepo.Get(o.key)
		if err != nil {
			return fmt.Errorf("failed to get %s from settings: %w", o.key, err)
		}
		// Empty settings values keep the env var value as fallback
		if value != nil && *value != "" {
			*o.target = *value
		}
	}

	return nil
}

// PersistedDefaults are the values the settings service falls back to for
// keys that were never written.
func (c *Config) PersistedDefaults() domain.PersistedConfig {
	return domain.PersistedConfig{
		FinnhubAPIKey: c.FinnhubAPIKey,
		GeminiAPIKey:  c.GeminiAPIKey,
		GeminiModel:   c.GeminiModel,
		Symbols:       append([]string(nil), c.DefaultSymbols...),
	}
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	for name, port := range map[string]int{"TRENDTRACK_PORT": c.Port, "TRENDTRACK_PROXY_PORT": c.ProxyPort} {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("%s must be between 1 and 65535, got %d", name, port)
		}
	}
	if c.Port == c.ProxyPort {
		return fmt.Errorf("dashboard and proxy ports must differ, both are %d", c.Port)
	}
	if c.QuoteRefreshSchedule == "" {
		return fmt.Errorf("quote refresh schedule must not be empty")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return utils.ParseCSV(value)
}
