// Command fetch-observations downloads winter observation records for every
// station listed in the configured station file, writing one CSV per station.
// A failure on one station does not stop the run; rerun later for the ones
// that were logged as failed.
//
// Usage:
//
//	NOAA_TOKEN=... go run ./cmd/fetch-observations
//
// With METRICS_ADDR set, a monitoring server exposes /healthz, /readyz, and
// Prometheus /metrics for the duration of the run. Downloads of long station
// histories can take hours; the delay between requests keeps the run under
// the CDO rate limit.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	httpadapter "github.com/mthollis/winterwx/internal/adapter/http"
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

	clock := clockwork.NewRealClock()
	client := cdo.New(cfg.Token, cfg.BaseURL, cfg.HTTPTimeout, cfg.PageLimit, cfg.RequestDelay,
		clock, logger, metrics)
	f := fetcher.NewObservationFetcher(client, cfg, clock, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *httpadapter.Server
	if cfg.MetricsAddr != "" {
		srv = httpadapter.NewServer(cfg.MetricsAddr, f, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("monitoring server error", "error", err)
			}
		}()
	}

	runErr := f.Run(ctx)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("monitoring server shutdown error", "error", err)
		}
	}

	if runErr != nil {
		logger.Error("observation fetch failed", "error", runErr)
		os.Exit(1)
	}
}
