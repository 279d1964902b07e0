// Command winterstats post-processes downloaded observation CSVs. It splits
// the per-station files by datatype, computes monthly winter-temperature
// averages for early/recent comparison periods, and ranks each station's
// winter seasons from warmest to coldest.
//
// Usage:
//
//	go run ./cmd/winterstats -data-dir weather-data -out-dir split
package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/mthollis/winterwx/internal/observability"
	"github.com/mthollis/winterwx/internal/winter"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dataDir := flag.String("data-dir", "weather-data", "directory of downloaded station CSVs")
	outDir := flag.String("out-dir", "split", "directory for split and derived files")
	avgOut := flag.String("avg-out", "monthly_avgs.csv", "output path for the monthly averages summary")
	cutoffYear := flag.Int("cutoff-year", 2000, "winters before this year form the early comparison period")
	recentStart := flag.String("recent-start", "2025-10-01", "start date (YYYY-MM-DD) of the most recent winter season")
	flag.Parse()

	recent, err := time.Parse("2006-01-02", *recentStart)
	if err != nil {
		return fmt.Errorf("invalid -recent-start: %w", err)
	}

	logger := observability.NewLogger("info", "console")

	if err := winter.Split(*dataDir, *outDir, logger); err != nil {
		return fmt.Errorf("split by datatype: %w", err)
	}

	periods := winter.Periods{
		OldCutoff:   time.Date(*cutoffYear, time.October, 1, 0, 0, 0, 0, time.UTC),
		RecentStart: recent,
	}
	if err := winter.MonthlyAverages(*outDir, *avgOut, periods); err != nil {
		return fmt.Errorf("monthly averages: %w", err)
	}
	logger.Info("wrote monthly averages", "path", *avgOut)

	rankDir := filepath.Join(*outDir, "avg-temp-ranking")
	if err := winter.RankSeasons(*outDir, rankDir); err != nil {
		return fmt.Errorf("season ranking: %w", err)
	}
	logger.Info("wrote season rankings", "dir", rankDir)

	return nil
}
