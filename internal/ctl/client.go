package ctl

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/large-farva/groundwatch/internal/telemetry"
)

var httpClient = &http.Client{Timeout: 5 * time.Second}

// stdout receives every command's output.
var stdout io.Writer = os.Stdout

// getJSON sends a GET request and decodes the JSON response into dst.
func getJSON(baseURL, path string, dst any) error {
	url := strings.TrimRight(baseURL, "/") + path
	resp, err := httpClient.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return httpError(resp, path)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

// getRaw sends a GET request and returns the raw response body.
func getRaw(baseURL, path string) (int, []byte, error) {
	url := strings.TrimRight(baseURL, "/") + path
	resp, err := httpClient.Get(url)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

// httpError reads the body of a failed response. The mirror replies with
// {"ok":false,"error":"..."}; anything else is reported verbatim.
func httpError(resp *http.Response, path string) error {
	b, _ := io.ReadAll(resp.Body)
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(b, &e) == nil && e.Error != "" {
		return fmt.Errorf("HTTP %s: %s", resp.Status, e.Error)
	}
	if msg := strings.TrimSpace(string(b)); msg != "" {
		return fmt.Errorf("HTTP %s: %s", resp.Status, msg)
	}
	return fmt.Errorf("HTTP %s from %s", resp.Status, path)
}

// fetchStatus loads the dashboard snapshot.
func fetchStatus(baseURL string) (StatusResponse, error) {
	var s StatusResponse
	err := getJSON(baseURL, "/api/status", &s)
	return s, err
}

// StatusResponse mirrors the JSON returned by GET /api/status.
type StatusResponse struct {
	telemetry.Status
	Clients int `json:"clients"`
	Disk    *struct {
		Path           string  `json:"path"`
		TotalBytes     uint64  `json:"total_bytes"`
		AvailableBytes uint64  `json:"available_bytes"`
		UsedPercent    float64 `json:"used_percent"`
	} `json:"disk,omitempty"`
}

// printJSON prints v as indented JSON.
func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, string(b))
	return nil
}
