// Package metrics exposes the dashboard's Prometheus collectors. They are
// registered with the default registry and served by the mirror server.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groundwatch_events_total",
			Help: "Events applied by the dashboard loop, by type.",
		},
		[]string{"type"},
	)

	LogsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "groundwatch_log_records_dropped_total",
			Help: "Log records that could not be queued on the event bus.",
		},
	)

	APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groundwatch_api_requests_total",
			Help: "SatNOGS network commands served by the worker.",
		},
		[]string{"command", "outcome"},
	)

	QueuedJobs = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "groundwatch_queued_jobs",
			Help: "Jobs currently queued per station.",
		},
		[]string{"station"},
	)

	RotatorQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groundwatch_rotator_queries_total",
			Help: "Rotator position queries, by outcome.",
		},
		[]string{"outcome"},
	)

	WaterfallSessions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groundwatch_waterfall_sessions_total",
			Help: "Waterfall capture sessions, by outcome.",
		},
		[]string{"outcome"},
	)

	WaterfallRows = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "groundwatch_waterfall_rows_total",
			Help: "Spectrum rows read from capture files.",
		},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groundwatch_http_requests_total",
			Help: "Total number of mirror HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "groundwatch_http_duration_seconds",
			Help:    "Mirror HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
)

func init() {
	prometheus.MustRegister(
		EventsTotal,
		LogsDropped,
		APIRequests,
		QueuedJobs,
		RotatorQueries,
		WaterfallSessions,
		WaterfallRows,
		httpRequestsTotal,
		httpDurationSeconds,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Outcome maps an error to an "ok"/"error" label value.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// routes are the mirror server's fixed paths; anything else is "other".
var routes = map[string]bool{
	"/":           true,
	"/healthz":    true,
	"/metrics":    true,
	"/ws":         true,
	"/api/status": true,
	"/api/logs":   true,
}

func normalizeRoute(path string) string {
	if routes[path] {
		return path
	}
	return "other"
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Hijack passes through to the wrapped writer so /ws can upgrade.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	return h.Hijack()
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		path := normalizeRoute(r.URL.Path)
		httpRequestsTotal.WithLabelValues(path, r.Method, strconv.Itoa(rw.statusCode)).Inc()
		httpDurationSeconds.WithLabelValues(path, r.Method).Observe(time.Since(start).Seconds())
	})
}
