package telemetry

import (
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/large-farva/groundwatch/internal/event"
	"github.com/large-farva/groundwatch/internal/logging"
	"github.com/large-farva/groundwatch/internal/satnogs"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestFromEventSkipsLocalEvents(t *testing.T) {
	for _, ev := range []event.Event{
		event.Tick{},
		event.Resize{},
		event.Shutdown{},
		event.Input{Key: event.Key{Code: event.KeyTab}},
		event.WaterfallData{Timestamp: 1, Power: []float32{-50}},
	} {
		_, ok := FromEvent(ev, now)
		assert.False(t, ok, event.Name(ev))
	}
}

func TestFromEventJobs(t *testing.T) {
	ev := event.CommandResponse{Data: event.Jobs{
		StationID: 7,
		Pairs: []satnogs.JobObservation{{
			Job: satnogs.Job{ID: 3, TLE0: "ISS", Frequency: 145800000, Mode: "FM"},
		}},
	}}

	msg, ok := FromEvent(ev, now)
	require.True(t, ok)

	b, err := json.Marshal(msg)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "jobs", got["type"])
	assert.Equal(t, "2024-05-01T12:00:00Z", got["ts"])
	assert.EqualValues(t, 7, got["station_id"])

	jobs := got["jobs"].([]any)
	require.Len(t, jobs, 1)
	assert.Equal(t, "ISS", jobs[0].(map[string]any)["vessel"])
}

func TestFromEventFailure(t *testing.T) {
	msg, ok := FromEvent(event.CommandResponse{Data: event.Failure{
		StationID: 2,
		Command:   "get_jobs",
		Err:       errors.New("connection refused"),
	}}, now)
	require.True(t, ok)
	assert.Equal(t, Failure{
		Event:     Event{Type: EventFailure, TS: "2024-05-01T12:00:00Z"},
		StationID: 2,
		Command:   "get_jobs",
		Error:     "connection refused",
	}, msg)
}

func TestFromEventWaterfall(t *testing.T) {
	msg, ok := FromEvent(event.WaterfallCreated{
		ObservationID:   9,
		CenterFrequency: 437e6,
		Frequencies:     []float32{-1, 0, 1},
	}, now)
	require.True(t, ok)
	ws := msg.(WaterfallSession)
	assert.Equal(t, EventWaterfallCreated, ws.Type)
	assert.Equal(t, 3, ws.Bins)

	msg, ok = FromEvent(event.WaterfallClosed{ObservationID: 9}, now)
	require.True(t, ok)
	assert.Equal(t, EventWaterfallClosed, msg.(WaterfallSession).Type)
}

func TestNewLogLineLevels(t *testing.T) {
	cases := map[slog.Level]string{
		slog.LevelError:    "error",
		slog.LevelWarn:     "warn",
		slog.LevelInfo:     "info",
		slog.LevelDebug:    "debug",
		logging.LevelTrace: "trace",
	}
	for level, want := range cases {
		l := NewLogLine(event.Log{Time: now, Level: level, Message: "m"})
		assert.Equal(t, want, l.Level)
		assert.Equal(t, EventLog, l.Type)
	}
}
