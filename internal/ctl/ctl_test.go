package ctl

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/large-farva/groundwatch/internal/sysinfo"
	"github.com/large-farva/groundwatch/internal/telemetry"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev })
	return &buf
}

func sampleStatus() StatusResponse {
	maxEl := 42.0
	cpuTemp := 51.0
	start := time.Now().Add(time.Hour)
	var s StatusResponse
	s.Name = "groundwatch"
	s.Version = "v1"
	s.UptimeSeconds = 125
	s.ActiveStation = 7
	s.Clients = 2
	s.Stations = []telemetry.StationSummary{
		{
			ID: 7, Name: "home", Status: "Online", Local: true,
			SysInfo: &sysinfo.Snapshot{CPULoad: []float64{10, 30}, CPUTemp: &cpuTemp},
			Jobs: []telemetry.JobSummary{
				{ID: 100, Start: start, End: start.Add(10 * time.Minute), Vessel: "ISS", FrequencyHz: 145800000, MaxElev: &maxEl},
				{ID: 101, Start: start.Add(time.Hour), End: start.Add(70 * time.Minute), Vessel: "NOAA 19", FrequencyHz: 137100000},
			},
		},
		{ID: 9, Name: "remote", Status: "Offline", Stale: true},
	}
	return s
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(sampleStatus())
	})
	mux.HandleFunc("/api/logs", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "warn", r.URL.Query().Get("level"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		_ = json.NewEncoder(w).Encode(telemetry.Logs{Logs: []telemetry.LogLine{{
			Event:   telemetry.Event{Type: telemetry.EventLog, TS: telemetry.NowTS()},
			Level:   "warn",
			Message: "rotator: lost connection",
		}}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestStatusPrintsSummary(t *testing.T) {
	out := captureOutput(t)
	srv := newServer(t)

	require.NoError(t, Status(srv.URL, false))
	text := out.String()
	assert.Contains(t, text, "GROUNDWATCH STATUS")
	assert.Contains(t, text, "2m 5s")
	assert.Contains(t, text, "7 home")
}

func TestStatusJSON(t *testing.T) {
	out := captureOutput(t)
	srv := newServer(t)

	require.NoError(t, Status(srv.URL, true))
	var got StatusResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, uint64(7), got.ActiveStation)
	assert.Equal(t, 2, got.Clients)
}

func TestStationsListsTelemetryAndStaleness(t *testing.T) {
	out := captureOutput(t)
	srv := newServer(t)

	require.NoError(t, Stations(srv.URL, false))
	text := out.String()
	assert.Contains(t, text, "*7")
	assert.Contains(t, text, "cpu 20.0%")
	assert.Contains(t, text, "51°C")
	assert.Contains(t, text, "network unreachable")
}

func TestJobsDefaultsToActiveStation(t *testing.T) {
	out := captureOutput(t)
	srv := newServer(t)

	require.NoError(t, Jobs(srv.URL, JobsOptions{Limit: 1}))
	text := out.String()
	assert.Contains(t, text, "ISS")
	assert.Contains(t, text, "145.800 MHz")
	assert.Contains(t, text, "42°")
	assert.NotContains(t, text, "NOAA 19")
}

func TestJobsUnknownStation(t *testing.T) {
	captureOutput(t)
	srv := newServer(t)
	assert.ErrorContains(t, Jobs(srv.URL, JobsOptions{Station: 3}), "not monitored")
}

func TestLogsQuery(t *testing.T) {
	out := captureOutput(t)
	srv := newServer(t)

	require.NoError(t, Logs(context.Background(), srv.URL, LogsOptions{Level: "warn", Limit: 5}))
	assert.Contains(t, out.String(), "WARN   rotator: lost connection")
}

func TestHealth(t *testing.T) {
	out := captureOutput(t)
	srv := newServer(t)

	require.NoError(t, Health(srv.URL, true))
	assert.JSONEq(t, `{"healthy":true,"url":"`+srv.URL+`"}`, out.String())
}

func TestErrorBodyIsReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"ok":false,"error":"dashboard has not rendered yet"}`))
	}))
	defer srv.Close()

	err := Status(srv.URL, false)
	assert.ErrorContains(t, err, "dashboard has not rendered yet")
}

func TestWSURL(t *testing.T) {
	u, err := wsURL("https://host:8080/")
	require.NoError(t, err)
	assert.Equal(t, "wss://host:8080/ws", u)

	_, err = wsURL("ftp://host")
	assert.Error(t, err)
}

func TestRenderEvent(t *testing.T) {
	out := captureOutput(t)

	msg, _ := json.Marshal(telemetry.RotatorPosition{
		Event:   telemetry.Event{Type: telemetry.EventRotator, TS: telemetry.NowTS()},
		Azimuth: 120.5, Elevation: 30,
	})
	renderEvent(msg)
	assert.Contains(t, out.String(), "az 120.5° el 30.0°")

	out.Reset()
	renderEvent([]byte(`{"type":"mystery","x":1}`))
	assert.Contains(t, out.String(), `"x": 1`)
}

func TestWatchFiltersAndStops(t *testing.T) {
	out := captureOutput(t)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		_ = c.WriteMessage(websocket.TextMessage, []byte(`{"type":"heartbeat","ts":"x"}`))
		_ = c.WriteMessage(websocket.TextMessage, []byte(`{"type":"log","ts":"x","level":"info","message":"hello"}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, Watch(ctx, srv.URL, WatchOptions{Filter: []string{"log"}, JSON: true}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "hello")
}
