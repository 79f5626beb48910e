package satnogs

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
)

// DefaultURL is the public SatNOGS network API.
const DefaultURL = "https://network.satnogs.org/api/"

// pageSize is the number of observations the API returns per page.
const pageSize = 25

// ErrNotFound is returned when the API answers 404.
var ErrNotFound = errors.New("satnogs: not found")

// HTTPError is a non-2xx answer from the API.
type HTTPError struct {
	Status int
	Path   string
	Body   string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("satnogs: HTTP %d from %s: %s", e.Status, e.Path, e.Body)
	}
	return fmt.Sprintf("satnogs: HTTP %d from %s", e.Status, e.Path)
}

func (e *HTTPError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// Client talks to one SatNOGS network API endpoint. It is safe for
// concurrent use.
type Client struct {
	base  string
	token string
	http  *http.Client
	log   *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithToken authenticates every request with an API key.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the default 30 s timeout client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New returns a client for the API rooted at baseURL
// (e.g. https://network.satnogs.org/api/).
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("satnogs: parse api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("satnogs: unsupported scheme %q", u.Scheme)
	}

	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
		log:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Jobs lists the jobs currently scheduled on a station.
func (c *Client) Jobs(ctx context.Context, stationID uint64) ([]Job, error) {
	q := url.Values{}
	q.Set("ground_station", strconv.FormatUint(stationID, 10))

	var jobs []Job
	if err := c.getJSON(ctx, "/jobs/", q, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// Observations walks every page matching f. Paging stops at a short page
// or when the API answers 404 for a page past the end.
func (c *Client) Observations(ctx context.Context, f ObservationFilter) ([]Observation, error) {
	base := f.values()
	var all []Observation

	for page := 1; ; page++ {
		q := url.Values{}
		for k, v := range base {
			q[k] = v
		}
		q.Set("page", strconv.Itoa(page))

		var obs []Observation
		err := c.getJSON(ctx, "/observations/", q, &obs)
		if errors.Is(err, ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}

		all = append(all, obs...)
		if len(obs) < pageSize {
			break
		}
	}
	return all, nil
}

// StationInfo fetches a single station record.
func (c *Client) StationInfo(ctx context.Context, id uint64) (Station, error) {
	var st Station
	err := c.getJSON(ctx, fmt.Sprintf("/stations/%d/", id), nil, &st)
	return st, err
}

// JobsWithObservations fetches the observations of a station starting at
// since, then the station's jobs, and pairs them by id. Jobs without a
// matching observation are dropped.
func (c *Client) JobsWithObservations(ctx context.Context, stationID uint64, since time.Time) ([]JobObservation, error) {
	obs, err := c.Observations(ctx, ObservationFilter{
		GroundStation: stationID,
		Start:         since,
	})
	if err != nil {
		return nil, fmt.Errorf("observations for station %d: %w", stationID, err)
	}

	jobs, err := c.Jobs(ctx, stationID)
	if err != nil {
		return nil, fmt.Errorf("jobs for station %d: %w", stationID, err)
	}

	byID := make(map[uint64]Observation, len(obs))
	for _, o := range obs {
		byID[o.ID] = o
	}

	pairs := make([]JobObservation, 0, len(jobs))
	for _, j := range jobs {
		o, ok := byID[j.ID]
		if !ok {
			c.log.Debug("no observation for job", "component", "satnogs", "job", j.ID, "station", stationID)
			continue
		}
		pairs = append(pairs, JobObservation{Job: j, Observation: o})
	}
	return pairs, nil
}

// getJSON sends a GET request and decodes the JSON response into dst.
func (c *Client) getJSON(ctx context.Context, path string, q url.Values, dst any) error {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &HTTPError{
			Status: resp.StatusCode,
			Path:   path,
			Body:   strings.TrimSpace(string(b)),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("satnogs: decode %s: %w", path, err)
	}
	return nil
}

func (f ObservationFilter) values() url.Values {
	q := url.Values{}
	if f.GroundStation != 0 {
		q.Set("ground_station", strconv.FormatUint(f.GroundStation, 10))
	}
	if !f.Start.IsZero() {
		q.Set("start", f.Start.UTC().Format(time.RFC3339))
	}
	if !f.End.IsZero() {
		q.Set("end", f.End.UTC().Format(time.RFC3339))
	}
	if f.NoradCatID != 0 {
		q.Set("satellite__norad_cat_id", strconv.FormatUint(f.NoradCatID, 10))
	}
	return q
}
