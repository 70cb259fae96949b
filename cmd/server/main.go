// Package main is the entry point for the trendtrack dashboard server.
//
// The server keeps a watchlist of stock symbols, polls quotes for them,
// serves normalized price history and optional AI commentary over a JSON
// API, and persists the watchlist and credentials in SQLite.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/trendtrack/internal/config"
	"github.com/aristath/trendtrack/internal/di"
	"github.com/aristath/trendtrack/internal/server"
	"github.com/aristath/trendtrack/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Pretty:  cfg.DevMode,
		Service: "trendtrack",
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("data_dir", cfg.DataDir).Bool("demo_mode", cfg.DemoMode).Msg("Starting trendtrack")

	container, jobs, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	// Settings DB values take precedence over environment variables
	if err := cfg.UpdateFromSettings(container.SettingsRepo); err != nil {
		log.Warn().Err(err).Msg("Failed to update config from settings DB, using environment variables")
	}
	if cfg.FinnhubAPIKey == "" && !cfg.DemoMode {
		log.Warn().Msg("Finnhub API key not configured - set it via PUT /api/settings/finnhub_api_key")
	}

	// Initial load; quote polling starts with the scheduler below
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := container.Store.Initialize(initCtx); err != nil {
		log.Warn().Err(err).Msg("Watchlist not loaded at startup")
	}
	initCancel()

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Container: container,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	container.Scheduler.Start()
	if err := container.Scheduler.RunNow(jobs.CheckDatabases.Name()); err != nil {
		log.Warn().Err(err).Msg("Startup database check failed")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	container.Debouncer.Stop()
	container.Scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
