// Package di provides dependency injection type definitions.
package di

import (
	"github.com/aristath/trendtrack/internal/clientdata"
	"github.com/aristath/trendtrack/internal/clients/finnhub"
	"github.com/aristath/trendtrack/internal/clients/gemini"
	"github.com/aristath/trendtrack/internal/clients/mockdata"
	"github.com/aristath/trendtrack/internal/clients/yahoo"
	"github.com/aristath/trendtrack/internal/database"
	"github.com/aristath/trendtrack/internal/modules/charts"
	"github.com/aristath/trendtrack/internal/modules/settings"
	"github.com/aristath/trendtrack/internal/modules/watchlist"
	"github.com/aristath/trendtrack/internal/scheduler"
)

// Container holds all dependencies for the dashboard process.
//
// Created by Wire() and handed to the server, which builds its handlers
// from the services held here.
type Container struct {
	// Databases
	ConfigDB *database.DB // durable settings and the persisted watchlist
	CacheDB  *database.DB // provider response cache

	// Repositories
	SettingsRepo   *settings.Repository
	ClientDataRepo *clientdata.Repository

	// Clients. In demo mode FinnhubClient and YahooClient are nil and
	// MockProvider serves quotes, search and candles.
	FinnhubClient *finnhub.Client
	YahooClient   *yahoo.Client
	GeminiClient  *gemini.Client
	MockProvider  *mockdata.Provider

	// Services
	SettingsService *settings.Service
	ChartsService   *charts.Service
	Store           *watchlist.Store
	Searcher        *watchlist.Searcher
	Debouncer       *watchlist.Debouncer

	// Background jobs
	Scheduler *scheduler.Scheduler
}

// JobInstances holds the scheduled jobs so they can be triggered manually.
type JobInstances struct {
	QuoteRefresh   *watchlist.QuoteRefreshJob
	CacheCleanup   *clientdata.CleanupJob
	WALCheckpoint  *scheduler.WALCheckpointJob
	CheckDatabases *scheduler.CheckDatabasesJob
}

// Close releases the databases held by the container.
func (c *Container) Close() {
	if c.ConfigDB != nil {
		c.ConfigDB.Close()
	}
	if c.CacheDB != nil {
		c.CacheDB.Close()
	}
}
