// Package main runs the chart proxy that relays validated chart requests
// to the upstream finance API so the dashboard never calls it directly.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/trendtrack/internal/config"
	"github.com/aristath/trendtrack/internal/modules/proxy"
	"github.com/aristath/trendtrack/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Pretty:  cfg.DevMode,
		Service: "trendtrack-proxy",
	})

	gateway := proxy.NewGateway(cfg.UpstreamChartURL, log)
	handler := proxy.NewHandler(gateway, log)

	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.ProxyPort),
		Handler: proxy.NewRouter(proxy.RouterConfig{
			Handler:        handler,
			AllowedOrigins: cfg.AllowedOrigins,
			Log:            log,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.ProxyPort).Str("upstream", cfg.UpstreamChartURL).Msg("Starting chart proxy")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start proxy")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Proxy forced to shutdown")
	}

	log.Info().Msg("Proxy stopped")
}
