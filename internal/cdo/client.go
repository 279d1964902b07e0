// Package cdo is a thin client for NOAA's Climate Data Online v2 API.
package cdo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mthollis/winterwx/internal/observability"
)

// Sentinel errors for classifying API failures. Callers use errors.Is to
// decide whether a failure is worth reporting specially (rate limits) or is
// just a bad station ID.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrUpstream     = errors.New("upstream failure")
)

// Station is a station record as returned by the /stations endpoint.
// Pass-through data; nothing here is validated.
type Station struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	MinDate   string  `json:"mindate"`
	MaxDate   string  `json:"maxdate"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Elevation float64 `json:"elevation"`
}

// Observation is a single measurement from the /data endpoint.
type Observation struct {
	Date       string  `json:"date"`
	Datatype   string  `json:"datatype"`
	Station    string  `json:"station"`
	Value      float64 `json:"value"`
	Attributes string  `json:"attributes"`
}

// StationQuery selects which stations to list.
type StationQuery struct {
	DatasetID  string
	LocationID string
}

// ObservationQuery selects observations for one station and date window.
// Dates are YYYY-MM-DD.
type ObservationQuery struct {
	DatasetID string
	StationID string
	Datatypes []string
	StartDate string
	EndDate   string
}

// Client issues authenticated requests against the CDO API, paginating
// transparently and pausing between page requests to stay under the rate
// limit.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	pageLimit  int
	pageDelay  time.Duration
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// New creates a CDO client.
func New(token, baseURL string, timeout time.Duration, pageLimit int, pageDelay time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		token:      token,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		pageLimit:  pageLimit,
		pageDelay:  pageDelay,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
	}
}

// ListStations pages through the /stations endpoint and returns every station
// matching the query.
func (c *Client) ListStations(ctx context.Context, q StationQuery) ([]Station, error) {
	var stations []Station
	offset := 1 // CDO offsets are 1-based

	for {
		params := url.Values{}
		params.Set("datasetid", q.DatasetID)
		params.Set("locationid", q.LocationID)
		params.Set("limit", strconv.Itoa(c.pageLimit))
		params.Set("offset", strconv.Itoa(offset))

		var page stationsResponse
		if err := c.getJSON(ctx, "stations", params, &page); err != nil {
			return nil, err
		}
		if len(page.Results) == 0 {
			break
		}

		stations = append(stations, page.Results...)
		if len(page.Results) < c.pageLimit {
			break
		}
		offset += c.pageLimit

		if err := c.pause(ctx); err != nil {
			return nil, err
		}
	}

	return stations, nil
}

// FetchObservations pages through the /data endpoint for one station and date
// window. Values are requested in standard units.
func (c *Client) FetchObservations(ctx context.Context, q ObservationQuery) ([]Observation, error) {
	var records []Observation
	offset := 1

	for {
		params := url.Values{}
		params.Set("datasetid", q.DatasetID)
		params.Set("stationid", q.StationID)
		params.Set("datatypeid", strings.Join(q.Datatypes, ","))
		params.Set("startdate", q.StartDate)
		params.Set("enddate", q.EndDate)
		params.Set("units", "standard")
		params.Set("limit", strconv.Itoa(c.pageLimit))
		params.Set("offset", strconv.Itoa(offset))

		var page dataResponse
		if err := c.getJSON(ctx, "data", params, &page); err != nil {
			return nil, err
		}
		if len(page.Results) == 0 {
			break
		}

		records = append(records, page.Results...)
		if len(page.Results) < c.pageLimit {
			break
		}
		offset += c.pageLimit

		if err := c.pause(ctx); err != nil {
			return nil, err
		}
	}

	return records, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	fullURL := c.baseURL + "/" + endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("token", c.token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start).Seconds()
	if err != nil {
		c.metrics.APIRequests.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("%s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	c.metrics.APIRequests.WithLabelValues(endpoint, outcomeLabel(resp.StatusCode)).Inc()
	c.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(duration)

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1000))
		c.logger.Warn("cdo request failed",
			"endpoint", endpoint,
			"status", resp.StatusCode,
			"body", string(snippet),
		)
		return classifyStatus(endpoint, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

// pause sleeps for the inter-page delay, returning early if the context is
// cancelled.
func (c *Client) pause(ctx context.Context) error {
	if c.pageDelay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.clock.After(c.pageDelay):
		return nil
	}
}

func classifyStatus(endpoint string, status int) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s: HTTP %d: %w", endpoint, status, ErrUnauthorized)
	case http.StatusNotFound:
		return fmt.Errorf("%s: HTTP %d: %w", endpoint, status, ErrNotFound)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%s: HTTP %d: %w", endpoint, status, ErrRateLimited)
	default:
		return fmt.Errorf("%s: HTTP %d: %w", endpoint, status, ErrUpstream)
	}
}

func outcomeLabel(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "success"
	case status == http.StatusTooManyRequests:
		return "rate_limited"
	case status >= 400 && status < 500:
		return "client_error"
	case status >= 500:
		return "server_error"
	default:
		return "error"
	}
}

// CDO API response envelope.

type stationsResponse struct {
	Metadata metadata  `json:"metadata"`
	Results  []Station `json:"results"`
}

type dataResponse struct {
	Metadata metadata      `json:"metadata"`
	Results  []Observation `json:"results"`
}

type metadata struct {
	ResultSet resultSet `json:"resultset"`
}

type resultSet struct {
	Offset int `json:"offset"`
	Count  int `json:"count"`
	Limit  int `json:"limit"`
}
