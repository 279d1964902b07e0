package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// collection runs.
type Metrics struct {
	APIRequests        *prometheus.CounterVec   // labels: endpoint={stations,data}, outcome={success,client_error,rate_limited,server_error,error}
	APIRequestDuration *prometheus.HistogramVec // labels: endpoint={stations,data}

	StationsFetched   prometheus.Counter
	StationsProcessed prometheus.Counter
	StationErrors     prometheus.Counter
	StationsSkipped   prometheus.Counter
	RecordsFetched    prometheus.Counter
	FetchRunning      prometheus.Gauge
}

// NewMetrics creates and registers all collector metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.APIRequests,
		m.APIRequestDuration,
		m.StationsFetched,
		m.StationsProcessed,
		m.StationErrors,
		m.StationsSkipped,
		m.RecordsFetched,
		m.FetchRunning,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "winterwx",
			Name:      "api_requests_total",
			Help:      "NOAA CDO API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		APIRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "winterwx",
			Name:      "api_request_duration_seconds",
			Help:      "NOAA CDO API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint"}),
		StationsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "winterwx",
			Name:      "stations_fetched_total",
			Help:      "Station records returned by the listing endpoint.",
		}),
		StationsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "winterwx",
			Name:      "stations_processed_total",
			Help:      "Stations whose observations were downloaded and written.",
		}),
		StationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "winterwx",
			Name:      "station_errors_total",
			Help:      "Stations skipped because of a fetch failure.",
		}),
		StationsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "winterwx",
			Name:      "stations_skipped_total",
			Help:      "Stations skipped because output already existed.",
		}),
		RecordsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "winterwx",
			Name:      "records_fetched_total",
			Help:      "Observation records written to disk.",
		}),
		FetchRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "winterwx",
			Name:      "fetch_running",
			Help:      "1 while a collection run is active, 0 otherwise.",
		}),
	}
}
