package fetcher_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mthollis/winterwx/internal/cdo"
	"github.com/mthollis/winterwx/internal/config"
	"github.com/mthollis/winterwx/internal/fetcher"
	"github.com/mthollis/winterwx/internal/observability"
)

// mockSource serves canned observations keyed by station ID. Data is returned
// on the January window only so each station yields one batch regardless of
// how many seasons are queried.
type mockSource struct {
	mu    sync.Mutex
	calls []cdo.ObservationQuery
	data  map[string][]cdo.Observation
	fail  map[string]error
}

func (m *mockSource) FetchObservations(_ context.Context, q cdo.ObservationQuery) ([]cdo.Observation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, q)
	if err := m.fail[q.StationID]; err != nil {
		return nil, err
	}
	if strings.HasSuffix(q.StartDate, "-01-01") {
		return m.data[q.StationID], nil
	}
	return nil, nil
}

func (m *mockSource) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func writeStationList(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "airport-list.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testConfig(t *testing.T, listContent string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		DatasetID:    "GHCND",
		Datatypes:    []string{"TMAX", "TMIN"},
		StartYear:    1995,
		EndYear:      1995,
		StationsFile: writeStationList(t, dir, listContent),
		OutputDir:    filepath.Join(dir, "weather-data"),
	}
}

func obs(station string, value float64) []cdo.Observation {
	return []cdo.Observation{
		{Date: "1995-01-01T00:00:00", Datatype: "TMAX", Station: station, Value: value, Attributes: ",,0,2400"},
	}
}

func newObservationFetcher(src *mockSource, cfg *config.Config, m *observability.Metrics) *fetcher.ObservationFetcher {
	return fetcher.NewObservationFetcher(src, cfg, clockwork.NewRealClock(), discardLogger(), m)
}

func TestObservationFetcher_Run_TwoStations(t *testing.T) {
	cfg := testConfig(t, "KBZN\nKMSO\n")
	src := &mockSource{data: map[string][]cdo.Observation{
		"KBZN": obs("KBZN", 28),
		"KMSO": obs("KMSO", 33),
	}}

	f := newObservationFetcher(src, cfg, observability.NewMetricsForTesting())
	require.NoError(t, f.Run(context.Background()))

	// One year, two winter windows per station.
	assert.Equal(t, 4, src.callCount())

	bzn, err := os.ReadFile(filepath.Join(cfg.OutputDir, "KBZN.csv"))
	require.NoError(t, err)
	assert.Equal(t,
		"station_id,station_name,date,datatype,value,attributes\n"+
			"KBZN,,1995-01-01T00:00:00,TMAX,28,\",,0,2400\"\n",
		string(bzn))

	mso, err := os.ReadFile(filepath.Join(cfg.OutputDir, "KMSO.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(mso), "KMSO")
	assert.Contains(t, string(mso), ",33,")
}

func TestObservationFetcher_Run_FailingStationIsolated(t *testing.T) {
	cfg := testConfig(t, "KBZN\nBADID\nKMSO\n")
	src := &mockSource{
		data: map[string][]cdo.Observation{
			"KBZN": obs("KBZN", 28),
			"KMSO": obs("KMSO", 33),
		},
		fail: map[string]error{"BADID": cdo.ErrNotFound},
	}

	metrics := observability.NewMetricsForTesting()
	f := newObservationFetcher(src, cfg, metrics)
	require.NoError(t, f.Run(context.Background()), "partial failure is not fatal")

	_, err := os.Stat(filepath.Join(cfg.OutputDir, "KBZN.csv"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(cfg.OutputDir, "KMSO.csv"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(cfg.OutputDir, "BADID.csv"))
	assert.True(t, os.IsNotExist(err), "no artifact for the failing station")

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StationErrors))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.StationsProcessed))
}

func TestObservationFetcher_Run_EmptyListFailsFast(t *testing.T) {
	cfg := testConfig(t, "# nothing here\n")
	src := &mockSource{}

	f := newObservationFetcher(src, cfg, observability.NewMetricsForTesting())
	err := f.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no entries")

	assert.Zero(t, src.callCount(), "no requests issued")
	_, statErr := os.Stat(cfg.OutputDir)
	assert.True(t, os.IsNotExist(statErr), "no output dir created")
}

func TestObservationFetcher_Run_MissingListFailsFast(t *testing.T) {
	cfg := testConfig(t, "KBZN\n")
	cfg.StationsFile = filepath.Join(t.TempDir(), "missing.txt")
	src := &mockSource{}

	f := newObservationFetcher(src, cfg, observability.NewMetricsForTesting())
	require.Error(t, f.Run(context.Background()))
	assert.Zero(t, src.callCount())
}

func TestObservationFetcher_Run_NoDataStationWritesNothing(t *testing.T) {
	cfg := testConfig(t, "KXYZ\n")
	src := &mockSource{} // no data for any station

	f := newObservationFetcher(src, cfg, observability.NewMetricsForTesting())
	require.NoError(t, f.Run(context.Background()))

	_, err := os.Stat(filepath.Join(cfg.OutputDir, "KXYZ.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestObservationFetcher_Run_OverwritesByteForByte(t *testing.T) {
	cfg := testConfig(t, "KBZN\n")
	src := &mockSource{data: map[string][]cdo.Observation{"KBZN": obs("KBZN", 28)}}

	f := newObservationFetcher(src, cfg, observability.NewMetricsForTesting())
	require.NoError(t, f.Run(context.Background()))

	path := filepath.Join(cfg.OutputDir, "KBZN.csv")
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	// Corrupt the file, rerun, and expect identical output again.
	require.NoError(t, os.WriteFile(path, []byte("garbage\n"), 0o600))

	f2 := newObservationFetcher(src, cfg, observability.NewMetricsForTesting())
	require.NoError(t, f2.Run(context.Background()))

	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestObservationFetcher_Run_SkipExisting(t *testing.T) {
	cfg := testConfig(t, "KBZN\nKMSO\n")
	cfg.SkipExisting = true
	require.NoError(t, os.MkdirAll(cfg.OutputDir, 0o755))

	existing := filepath.Join(cfg.OutputDir, "KBZN.csv")
	require.NoError(t, os.WriteFile(existing, []byte("already here\n"), 0o600))

	src := &mockSource{data: map[string][]cdo.Observation{
		"KBZN": obs("KBZN", 28),
		"KMSO": obs("KMSO", 33),
	}}
	metrics := observability.NewMetricsForTesting()
	f := newObservationFetcher(src, cfg, metrics)
	require.NoError(t, f.Run(context.Background()))

	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "already here\n", string(data), "existing file untouched")

	for _, q := range src.calls {
		assert.NotEqual(t, "KBZN", q.StationID, "skipped station is never requested")
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StationsSkipped))
}

func TestObservationFetcher_Run_CancelledContext(t *testing.T) {
	cfg := testConfig(t, "KBZN\n")
	src := &mockSource{data: map[string][]cdo.Observation{"KBZN": obs("KBZN", 28)}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newObservationFetcher(src, cfg, observability.NewMetricsForTesting())
	require.NoError(t, f.Run(ctx), "interrupt is not an error")
	assert.Zero(t, src.callCount())
}

func TestObservationFetcher_Readiness(t *testing.T) {
	cfg := testConfig(t, "KBZN\n")
	src := &mockSource{data: map[string][]cdo.Observation{"KBZN": obs("KBZN", 28)}}

	f := newObservationFetcher(src, cfg, observability.NewMetricsForTesting())
	require.Error(t, f.CheckReadiness(context.Background()))

	require.NoError(t, f.Run(context.Background()))
	assert.NoError(t, f.CheckReadiness(context.Background()))
}

func TestObservationFetcher_Run_DelaysBetweenRequests(t *testing.T) {
	cfg := testConfig(t, "KBZN\n")
	cfg.RequestDelay = 1500 * time.Millisecond

	src := &mockSource{data: map[string][]cdo.Observation{"KBZN": obs("KBZN", 28)}}
	clock := clockwork.NewFakeClock()

	f := fetcher.NewObservationFetcher(src, cfg, clock, discardLogger(), observability.NewMetricsForTesting())

	done := make(chan error, 1)
	go func() { done <- f.Run(context.Background()) }()

	// First request goes out immediately; the second waits on the clock.
	clock.BlockUntil(1)
	assert.Equal(t, 1, src.callCount())
	clock.Advance(cfg.RequestDelay)

	require.NoError(t, <-done)
	assert.Equal(t, 2, src.callCount())
}
