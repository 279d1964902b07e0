// Command fetch-stations downloads the station list for the configured
// dataset and location from the NOAA CDO API and writes it to a CSV file.
//
// Usage:
//
//	NOAA_TOKEN=... go run ./cmd/fetch-stations
//
// Configuration is read from the environment, with a .env file in the
// working directory loaded first when present.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/mthollis/winterwx/internal/cdo"
	"github.com/mthollis/winterwx/internal/config"
	"github.com/mthollis/winterwx/internal/fetcher"
	"github.com/mthollis/winterwx/internal/observability"
)

func main() {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			slog.Error("failed to load .env file", "error", err)
			os.Exit(1)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	client := cdo.New(cfg.Token, cfg.BaseURL, cfg.HTTPTimeout, cfg.PageLimit, cfg.RequestDelay,
		clockwork.NewRealClock(), logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := fetcher.NewStationFetcher(client, cfg, logger, metrics).Run(ctx); err != nil {
		logger.Error("station fetch failed", "error", err)
		os.Exit(1)
	}
}
