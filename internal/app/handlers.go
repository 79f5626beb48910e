package app

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/large-farva/groundwatch/internal/event"
	"github.com/large-farva/groundwatch/internal/metrics"
	"github.com/large-farva/groundwatch/internal/telemetry"
)

// logBufSize bounds the records kept for /api/logs.
const logBufSize = 500

// statusResponse is the snapshot published by the dashboard plus what only
// the process knows.
type statusResponse struct {
	telemetry.Status
	Clients int        `json:"clients"`
	Disk    *DiskUsage `json:"disk,omitempty"`
}

// Handler is the mirror's HTTP surface.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", a.handleHealthz)
	mux.HandleFunc("/api/status", a.handleStatus)
	mux.HandleFunc("/api/logs", a.handleLogs)
	mux.HandleFunc("/api/version", a.handleVersion)
	mux.Handle("/ws", a.hub.Handler())
	mux.Handle("/metrics", metrics.Handler())
	return metrics.Middleware(mux)
}

// Publish mirrors an applied event to WebSocket clients. Log records are
// also kept for /api/logs.
func (a *App) Publish(ev event.Event) {
	msg, ok := telemetry.FromEvent(ev, time.Now())
	if !ok {
		return
	}
	if line, isLog := msg.(telemetry.LogLine); isLog {
		a.logMu.Lock()
		if len(a.logBuf) == logBufSize {
			a.logBuf = append(a.logBuf[:0], a.logBuf[1:]...)
		}
		a.logBuf = append(a.logBuf, line)
		a.logMu.Unlock()
	}
	a.hub.BroadcastJSON(msg)
}

// SetStatus replaces the snapshot served at /api/status.
func (a *App) SetStatus(st telemetry.Status) {
	a.status.Store(&st)
}

func (a *App) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (a *App) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := a.status.Load()
	if st == nil {
		jsonError(w, "dashboard has not rendered yet", http.StatusServiceUnavailable)
		return
	}

	resp := statusResponse{Status: *st, Clients: a.hub.Clients()}
	resp.UptimeSeconds = a.uptime()
	if a.cfg.Waterfall.DataPath != "" {
		resp.Disk = diskUsage(r.Context(), a.cfg.Waterfall.DataPath)
	}
	writeJSON(w, resp)
}

func (a *App) handleLogs(w http.ResponseWriter, r *http.Request) {
	a.logMu.Lock()
	entries := make([]telemetry.LogLine, len(a.logBuf))
	copy(entries, a.logBuf)
	a.logMu.Unlock()

	if level := r.URL.Query().Get("level"); level != "" {
		var filtered []telemetry.LogLine
		for _, e := range entries {
			if e.Level == level {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n < len(entries) {
			entries = entries[len(entries)-n:]
		}
	}

	if entries == nil {
		entries = []telemetry.LogLine{}
	}
	writeJSON(w, telemetry.Logs{Logs: entries})
}

func (a *App) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"version":    Version,
		"go_version": runtime.Version(),
		"built_with": GoVersion,
		"built_at":   BuiltAt,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok":    false,
		"error": msg,
	})
}
