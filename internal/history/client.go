// Package history queries the sensor backend's measurement endpoint to
// bootstrap tracked-frequency time series before live stream data arrives.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/radiowatch/sigstream/internal/spectrum"
)

const (
	defaultTimeout = 10 * time.Second
	defaultLimit   = 1000
)

// Query selects a frequency window and a time window of past measurements.
type Query struct {
	StartFreq float64   // Window start in Hz
	EndFreq   float64   // Window end in Hz
	Since     time.Time // Oldest timestamp to include
	Until     time.Time // Newest timestamp to include
	Limit     int       // Maximum records, 0 for the server default
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) func(*Client) {
	return func(c *Client) { c.hc = hc }
}

// Client talks to the backend measurement query endpoint. The backend is a
// black-box request/response collaborator; only the record shape matters
// here.
type Client struct {
	baseURL string
	hc      *http.Client
}

// NewClient creates a history client for the backend base URL.
func NewClient(baseURL string, options ...func(*Client)) *Client {
	c := Client{
		baseURL: baseURL,
		hc:      &http.Client{Timeout: defaultTimeout},
	}
	for _, option := range options {
		option(&c)
	}
	return &c
}

type measurementRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Power     float64   `json:"power_dbm"`
}

type measurementsResponse struct {
	Measurements []measurementRecord `json:"measurements"`
	Total        int                 `json:"total"`
}

// Measurements returns past power observations for the query window,
// ordered oldest first as the backend reports them.
func (c *Client) Measurements(ctx context.Context, q Query) ([]spectrum.TimeSeriesSample, error) {
	u, err := url.Parse(c.baseURL + "/api/spectrum/measurements")
	if err != nil {
		return nil, fmt.Errorf("building measurements URL: %w", err)
	}

	params := url.Values{}
	params.Set("start_freq", strconv.FormatFloat(q.StartFreq, 'f', -1, 64))
	params.Set("end_freq", strconv.FormatFloat(q.EndFreq, 'f', -1, 64))
	if !q.Since.IsZero() {
		params.Set("start_time", q.Since.UTC().Format(time.RFC3339))
	}
	if !q.Until.IsZero() {
		params.Set("end_time", q.Until.UTC().Format(time.RFC3339))
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	params.Set("limit", strconv.Itoa(limit))
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building measurements request: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying measurements: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("measurements query returned HTTP %d", resp.StatusCode)
	}

	var body measurementsResponse
	if err = json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding measurements response: %w", err)
	}

	samples := make([]spectrum.TimeSeriesSample, len(body.Measurements))
	for i, rec := range body.Measurements {
		samples[i] = spectrum.TimeSeriesSample{
			Timestamp: rec.Timestamp,
			Value:     rec.Power,
		}
	}
	return samples, nil
}

// SeedWindow is the relative frequency half-width used when seeding a
// tracked series from history: matches the 1% live matching window.
const SeedWindow = 0.01

// SeedQuery builds the measurement query for one tracked frequency over
// the given lookback period.
func SeedQuery(frequency float64, lookback time.Duration, limit int) Query {
	now := time.Now().UTC()
	return Query{
		StartFreq: frequency * (1 - SeedWindow),
		EndFreq:   frequency * (1 + SeedWindow),
		Since:     now.Add(-lookback),
		Until:     now,
		Limit:     limit,
	}
}
