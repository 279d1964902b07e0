// Package fetcher contains the two collection runs: the station-list download
// and the per-station observation download.
package fetcher

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mthollis/winterwx/internal/cdo"
	"github.com/mthollis/winterwx/internal/config"
	"github.com/mthollis/winterwx/internal/observability"
)

// StationLister pages through the remote station-listing endpoint.
type StationLister interface {
	ListStations(ctx context.Context, q cdo.StationQuery) ([]cdo.Station, error)
}

// StationFetcher downloads the station list for the configured location and
// writes it to a single CSV file.
type StationFetcher struct {
	client  StationLister
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewStationFetcher creates a station fetcher.
func NewStationFetcher(client StationLister, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *StationFetcher {
	return &StationFetcher{
		client:  client,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}
}

// Run fetches the station list and writes it to cfg.StationsOut. A fetch
// failure aborts the run; the station listing is a single logical operation
// with nothing to salvage.
func (f *StationFetcher) Run(ctx context.Context) error {
	f.logger.Info("fetching station list",
		"dataset", f.cfg.DatasetID,
		"location", f.cfg.LocationID,
	)

	stations, err := f.client.ListStations(ctx, cdo.StationQuery{
		DatasetID:  f.cfg.DatasetID,
		LocationID: f.cfg.LocationID,
	})
	if err != nil {
		return fmt.Errorf("list stations: %w", err)
	}

	f.metrics.StationsFetched.Add(float64(len(stations)))

	if err := writeStationsCSV(f.cfg.StationsOut, stations); err != nil {
		return fmt.Errorf("write station list: %w", err)
	}

	f.logger.Info("wrote station list", "count", len(stations), "path", f.cfg.StationsOut)
	return nil
}

func writeStationsCSV(path string, stations []cdo.Station) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "name", "mindate", "maxdate", "latitude", "longitude", "elevation"}); err != nil {
		f.Close()
		return err
	}
	for _, st := range stations {
		row := []string{
			st.ID,
			st.Name,
			st.MinDate,
			st.MaxDate,
			formatFloat(st.Latitude),
			formatFloat(st.Longitude),
			formatFloat(st.Elevation),
		}
		if err := w.Write(row); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
