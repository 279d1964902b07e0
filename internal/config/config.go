package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default tuning values, matching what the NOAA CDO rate limit tolerates in
// practice: 1.5s between requests, a generous extra pause after an error.
const (
	defaultBaseURL      = "https://www.ncei.noaa.gov/cdo-web/api/v2"
	defaultDataset      = "GHCND"
	defaultLocation     = "FIPS:30"
	defaultDatatypes    = "TMAX,TMIN,PRCP,SNOW,SNWD"
	defaultPageLimit    = 1000
	defaultRequestDelay = 1500 * time.Millisecond
	defaultErrorBackoff = 5 * time.Second
	defaultHTTPTimeout  = 30 * time.Second
	defaultStartYear    = 1950

	defaultStationsFile = "airport-list.txt"
	defaultStationsOut  = "stations.csv"
	defaultOutputDir    = "weather-data"
)

// Config holds all collector settings, populated from environment variables.
type Config struct {
	Token   string
	BaseURL string

	DatasetID  string
	LocationID string
	Datatypes  []string
	PageLimit  int

	RequestDelay time.Duration
	ErrorBackoff time.Duration
	HTTPTimeout  time.Duration

	StartYear int
	EndYear   int

	StationsFile string
	StationsOut  string
	OutputDir    string
	SkipExisting bool

	LogLevel    string
	LogFormat   string
	MetricsAddr string
}

// Load reads configuration from environment variables, applying defaults
// where unset. The NOAA token is required; both fetchers refuse to issue any
// request without it.
func Load() (*Config, error) {
	token := strings.TrimSpace(os.Getenv("NOAA_TOKEN"))
	if token == "" {
		return nil, errors.New("NOAA_TOKEN is required (get one at https://www.ncdc.noaa.gov/cdo-web/token)")
	}

	pageLimit, err := parseInt("CDO_PAGE_LIMIT", defaultPageLimit)
	if err != nil {
		return nil, err
	}
	if pageLimit < 1 || pageLimit > 1000 {
		return nil, errors.New("CDO_PAGE_LIMIT must be between 1 and 1000")
	}

	requestDelay, err := parseDuration("REQUEST_DELAY", defaultRequestDelay)
	if err != nil {
		return nil, err
	}
	errorBackoff, err := parseDuration("ERROR_BACKOFF", defaultErrorBackoff)
	if err != nil {
		return nil, err
	}
	httpTimeout, err := parseDuration("HTTP_TIMEOUT", defaultHTTPTimeout)
	if err != nil {
		return nil, err
	}
	if httpTimeout <= 0 {
		return nil, errors.New("HTTP_TIMEOUT must be positive")
	}

	startYear, err := parseInt("START_YEAR", defaultStartYear)
	if err != nil {
		return nil, err
	}
	endYear, err := parseInt("END_YEAR", time.Now().Year())
	if err != nil {
		return nil, err
	}
	if startYear > endYear {
		return nil, fmt.Errorf("START_YEAR %d is after END_YEAR %d", startYear, endYear)
	}

	datatypes := splitList(EnvOrDefault("CDO_DATATYPES", defaultDatatypes))
	if len(datatypes) == 0 {
		return nil, errors.New("CDO_DATATYPES must name at least one datatype")
	}

	cfg := &Config{
		Token:   token,
		BaseURL: strings.TrimRight(EnvOrDefault("CDO_BASE_URL", defaultBaseURL), "/"),

		DatasetID:  EnvOrDefault("CDO_DATASET", defaultDataset),
		LocationID: EnvOrDefault("CDO_LOCATION", defaultLocation),
		Datatypes:  datatypes,
		PageLimit:  pageLimit,

		RequestDelay: requestDelay,
		ErrorBackoff: errorBackoff,
		HTTPTimeout:  httpTimeout,

		StartYear: startYear,
		EndYear:   endYear,

		StationsFile: EnvOrDefault("STATIONS_FILE", defaultStationsFile),
		StationsOut:  EnvOrDefault("STATIONS_OUT", defaultStationsOut),
		OutputDir:    EnvOrDefault("OUTPUT_DIR", defaultOutputDir),
		SkipExisting: os.Getenv("SKIP_EXISTING") == "true",

		LogLevel:    EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:   EnvOrDefault("LOG_FORMAT", "console"),
		MetricsAddr: os.Getenv("METRICS_ADDR"),
	}

	return cfg, nil
}

// EnvOrDefault returns the value of the environment variable key, or def when
// it is unset or empty.
func EnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}
