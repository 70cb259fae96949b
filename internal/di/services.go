// Package di provides dependency injection for services.
package di

import (
	"fmt"

	"github.com/aristath/trendtrack/internal/clients/finnhub"
	"github.com/aristath/trendtrack/internal/clients/gemini"
	"github.com/aristath/trendtrack/internal/clients/mockdata"
	"github.com/aristath/trendtrack/internal/clients/yahoo"
	"github.com/aristath/trendtrack/internal/config"
	"github.com/aristath/trendtrack/internal/modules/charts"
	"github.com/aristath/trendtrack/internal/modules/settings"
	"github.com/aristath/trendtrack/internal/modules/watchlist"
	"github.com/rs/zerolog"
)

// demoAPIKey stands in for the market data credential in demo mode so the
// store's missing-key checks pass against the synthetic provider.
const demoAPIKey = "demo"

// InitializeServices creates clients and services in dependency order
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	defaults := cfg.PersistedDefaults()
	if cfg.DemoMode && defaults.FinnhubAPIKey == "" {
		defaults.FinnhubAPIKey = demoAPIKey
	}

	container.SettingsService = settings.NewService(container.SettingsRepo, log)
	if err := container.SettingsService.Load(defaults); err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	var (
		quotes   watchlist.QuoteProvider
		searcher watchlist.SymbolSearcher
		candles  charts.CandleFetcher
	)
	if cfg.DemoMode {
		container.MockProvider = mockdata.NewProvider(log)
		quotes, searcher, candles = container.MockProvider, container.MockProvider, container.MockProvider
		log.Warn().Msg("Demo mode enabled, serving synthetic market data")
	} else {
		container.FinnhubClient = finnhub.NewClient(container.ClientDataRepo, log)
		container.YahooClient = yahoo.NewClient(cfg.ProxyURL, log)
		quotes, searcher, candles = container.FinnhubClient, container.FinnhubClient, container.YahooClient
	}
	container.GeminiClient = gemini.NewClient(log)

	container.ChartsService = charts.NewService(candles, log)
	container.Store = watchlist.NewStore(quotes, container.ChartsService, container.SettingsService, container.GeminiClient, log)
	container.Searcher = watchlist.NewSearcher(searcher, container.SettingsService, log)
	container.Debouncer = watchlist.NewDebouncer(cfg.SearchDebounce, container.Searcher.Search)

	log.Info().Bool("demo_mode", cfg.DemoMode).Msg("Services initialized")
	return nil
}
