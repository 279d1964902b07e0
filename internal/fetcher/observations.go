package fetcher

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mthollis/winterwx/internal/cdo"
	"github.com/mthollis/winterwx/internal/config"
	"github.com/mthollis/winterwx/internal/observability"
	"github.com/mthollis/winterwx/internal/stationlist"
)

// ObservationSource fetches observation records for one station and date
// window.
type ObservationSource interface {
	FetchObservations(ctx context.Context, q cdo.ObservationQuery) ([]cdo.Observation, error)
}

// ObservationFetcher downloads winter observations for every station in the
// list file, one CSV per station. A failure on one station is logged and the
// run continues with the next; only configuration and disk errors abort.
type ObservationFetcher struct {
	client  ObservationSource
	cfg     *config.Config
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics

	ready     atomic.Bool
	requested atomic.Bool
}

// NewObservationFetcher creates an observation fetcher.
func NewObservationFetcher(client ObservationSource, cfg *config.Config, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *ObservationFetcher {
	return &ObservationFetcher{
		client:  client,
		cfg:     cfg,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once at least one station file has been written.
func (f *ObservationFetcher) CheckReadiness(_ context.Context) error {
	if !f.ready.Load() {
		return errors.New("no station output written yet")
	}
	return nil
}

// Run processes the station list sequentially. Returns an error only for
// configuration problems (missing or empty list file) or local write
// failures; per-station fetch errors are isolated. Operator interrupt stops
// the run without error.
func (f *ObservationFetcher) Run(ctx context.Context) error {
	entries, err := stationlist.Load(f.cfg.StationsFile)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(f.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	f.metrics.FetchRunning.Set(1)
	defer f.metrics.FetchRunning.Set(0)

	f.logger.Info("starting observation download",
		"stations", len(entries),
		"start_year", f.cfg.StartYear,
		"end_year", f.cfg.EndYear,
		"request_delay", f.cfg.RequestDelay,
	)

	for i, st := range entries {
		if ctx.Err() != nil {
			f.logger.Info("run interrupted", "remaining", len(entries)-i)
			return nil
		}

		outPath := f.outputPath(st.ID)
		if f.cfg.SkipExisting {
			if _, err := os.Stat(outPath); err == nil {
				f.logger.Info("skipping station, output exists", "station", st.ID, "path", outPath)
				f.metrics.StationsSkipped.Inc()
				continue
			}
		}

		f.logger.Info("processing station",
			"station", st.ID,
			"name", st.Name,
			"progress", fmt.Sprintf("%d/%d", i+1, len(entries)),
		)

		records, err := f.fetchStation(ctx, st.ID)
		if err != nil {
			if ctx.Err() != nil {
				f.logger.Info("run interrupted", "remaining", len(entries)-i)
				return nil
			}
			f.logger.Error("station fetch failed, continuing with next",
				"station", st.ID,
				"error", err,
				"rate_limited", errors.Is(err, cdo.ErrRateLimited),
			)
			f.metrics.StationErrors.Inc()
			// Extra pause after a failure so a rate-limited run recovers
			// before the next station.
			if f.sleep(ctx, f.cfg.ErrorBackoff) != nil {
				return nil
			}
			continue
		}

		if len(records) == 0 {
			f.logger.Warn("no data for station", "station", st.ID)
			continue
		}

		if err := writeObservationsCSV(outPath, st, records); err != nil {
			return fmt.Errorf("write %s: %w", outPath, err)
		}

		f.metrics.StationsProcessed.Inc()
		f.metrics.RecordsFetched.Add(float64(len(records)))
		f.ready.Store(true)
		f.logger.Info("saved station data", "station", st.ID, "records", len(records), "path", outPath)
	}

	f.logger.Info("observation download complete")
	return nil
}

// fetchStation collects the winter seasons (Jan-Mar and Oct-Dec) of every
// year in the configured range for one station.
func (f *ObservationFetcher) fetchStation(ctx context.Context, stationID string) ([]cdo.Observation, error) {
	var all []cdo.Observation

	for year := f.cfg.StartYear; year <= f.cfg.EndYear; year++ {
		for _, win := range winterWindows(year) {
			if err := f.pauseBetweenRequests(ctx); err != nil {
				return nil, err
			}

			records, err := f.client.FetchObservations(ctx, cdo.ObservationQuery{
				DatasetID: f.cfg.DatasetID,
				StationID: stationID,
				Datatypes: f.cfg.Datatypes,
				StartDate: win.start,
				EndDate:   win.end,
			})
			if err != nil {
				return nil, fmt.Errorf("%s..%s: %w", win.start, win.end, err)
			}
			all = append(all, records...)
		}
	}

	return all, nil
}

type dateWindow struct {
	start, end string
}

func winterWindows(year int) []dateWindow {
	return []dateWindow{
		{start: fmt.Sprintf("%d-01-01", year), end: fmt.Sprintf("%d-03-31", year)},
		{start: fmt.Sprintf("%d-10-01", year), end: fmt.Sprintf("%d-12-31", year)},
	}
}

// pauseBetweenRequests sleeps for the configured delay before every request
// except the first of the run.
func (f *ObservationFetcher) pauseBetweenRequests(ctx context.Context) error {
	if !f.requested.Swap(true) {
		return nil
	}
	return f.sleep(ctx, f.cfg.RequestDelay)
}

func (f *ObservationFetcher) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.clock.After(d):
		return nil
	}
}

func (f *ObservationFetcher) outputPath(stationID string) string {
	return filepath.Join(f.cfg.OutputDir, strings.ReplaceAll(stationID, ":", "_")+".csv")
}

func writeObservationsCSV(path string, st stationlist.Entry, records []cdo.Observation) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"station_id", "station_name", "date", "datatype", "value", "attributes"}); err != nil {
		f.Close()
		return err
	}
	for _, rec := range records {
		row := []string{
			st.ID,
			st.Name,
			rec.Date,
			rec.Datatype,
			formatFloat(rec.Value),
			rec.Attributes,
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
