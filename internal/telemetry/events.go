// Package telemetry defines the JSON shapes the mirror server publishes: the
// envelopes streamed over the WebSocket connection and the status snapshot
// served at /api/status. The dashboard builds them; the mirror and gwctl only
// move them around.
package telemetry

import (
	"log/slog"
	"time"

	"github.com/large-farva/groundwatch/internal/event"
	"github.com/large-farva/groundwatch/internal/logging"
	"github.com/large-farva/groundwatch/internal/satnogs"
	"github.com/large-farva/groundwatch/internal/sysinfo"
)

// EventType identifies the kind of mirrored event.
type EventType string

const (
	EventHeartbeat        EventType = "heartbeat"
	EventLog              EventType = "log"
	EventJobs             EventType = "jobs"
	EventStationInfo      EventType = "station_info"
	EventFailure          EventType = "failure"
	EventSystemInfo       EventType = "system_info"
	EventRotator          EventType = "rotator_position"
	EventWaterfallCreated EventType = "waterfall_created"
	EventWaterfallClosed  EventType = "waterfall_closed"
)

// Event is the base envelope shared by every event type.
type Event struct {
	Type EventType `json:"type"`
	TS   string    `json:"ts"`
}

// NowTS returns the current UTC time as an RFC 3339 nano string, matching the
// timestamp format used across all events.
func NowTS() string {
	return TS(time.Now())
}

// TS formats t the way every envelope does.
func TS(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Heartbeat is sent periodically so clients can detect connectivity.
type Heartbeat struct {
	Event
	UptimeSeconds int64 `json:"uptime_seconds"`
	Clients       int   `json:"clients"`
}

// LogLine carries one record from the dashboard's log pane.
type LogLine struct {
	Event
	Level   string `json:"level"`
	Message string `json:"message"`
}

// JobsUpdate is a fetched job list for one station.
type JobsUpdate struct {
	Event
	StationID uint64       `json:"station_id"`
	Jobs      []JobSummary `json:"jobs"`
}

// StationUpdate is a refreshed station record.
type StationUpdate struct {
	Event
	Station StationSummary `json:"station"`
}

// Failure reports a network command that could not be served.
type Failure struct {
	Event
	StationID uint64 `json:"station_id"`
	Command   string `json:"command"`
	Error     string `json:"error"`
}

// SystemInfo is a host telemetry sample for the local stations.
type SystemInfo struct {
	Event
	StationIDs []uint64         `json:"station_ids"`
	Info       sysinfo.Snapshot `json:"info"`
}

// RotatorPosition is a rotator reading.
type RotatorPosition struct {
	Event
	Azimuth   float64 `json:"azimuth"`
	Elevation float64 `json:"elevation"`
}

// WaterfallSession announces the start or end of a capture. Bins and
// CenterFrequency are only set on start.
type WaterfallSession struct {
	Event
	ObservationID   uint64  `json:"observation_id"`
	CenterFrequency float32 `json:"center_frequency,omitempty"`
	Bins            int     `json:"bins,omitempty"`
}

// FromEvent converts a bus event into its mirrored form. Keyboard, clock,
// resize and shutdown events stay local, as do spectrum rows, which arrive
// far too often to be worth streaming; ok is false for those.
func FromEvent(ev event.Event, now time.Time) (msg any, ok bool) {
	base := func(t EventType) Event { return Event{Type: t, TS: TS(now)} }

	switch e := ev.(type) {
	case event.Log:
		return NewLogLine(e), true
	case event.CommandResponse:
		switch d := e.Data.(type) {
		case event.Jobs:
			jobs := make([]JobSummary, len(d.Pairs))
			for i, p := range d.Pairs {
				jobs[i] = SummarizeJob(p.Job)
			}
			return JobsUpdate{Event: base(EventJobs), StationID: d.StationID, Jobs: jobs}, true
		case event.StationInfo:
			return StationUpdate{Event: base(EventStationInfo), Station: SummarizeStation(d.Info)}, true
		case event.Failure:
			msg := ""
			if d.Err != nil {
				msg = d.Err.Error()
			}
			return Failure{Event: base(EventFailure), StationID: d.StationID, Command: d.Command, Error: msg}, true
		}
	case event.SystemInfo:
		return SystemInfo{Event: base(EventSystemInfo), StationIDs: e.StationIDs, Info: e.Info}, true
	case event.RotatorPosition:
		return RotatorPosition{Event: base(EventRotator), Azimuth: e.Azimuth, Elevation: e.Elevation}, true
	case event.WaterfallCreated:
		return WaterfallSession{
			Event:           base(EventWaterfallCreated),
			ObservationID:   e.ObservationID,
			CenterFrequency: e.CenterFrequency,
			Bins:            len(e.Frequencies),
		}, true
	case event.WaterfallClosed:
		return WaterfallSession{Event: base(EventWaterfallClosed), ObservationID: e.ObservationID}, true
	}
	return nil, false
}

// NewLogLine converts a log event.
func NewLogLine(l event.Log) LogLine {
	return LogLine{
		Event:   Event{Type: EventLog, TS: TS(l.Time)},
		Level:   levelName(l.Level),
		Message: l.Message,
	}
}

func levelName(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "error"
	case l >= slog.LevelWarn:
		return "warn"
	case l >= slog.LevelInfo:
		return "info"
	case l > logging.LevelTrace:
		return "debug"
	default:
		return "trace"
	}
}

// SummarizeJob flattens a network job.
func SummarizeJob(j satnogs.Job) JobSummary {
	return JobSummary{
		ID:          j.ID,
		Start:       j.Start,
		End:         j.End,
		Vessel:      j.TLE0,
		FrequencyHz: j.Frequency,
		Mode:        j.Mode,
	}
}

// SummarizeStation flattens a network station record.
func SummarizeStation(s satnogs.Station) StationSummary {
	return StationSummary{
		ID:       s.ID,
		Name:     s.Name,
		Status:   string(s.Status),
		Lat:      s.Lat,
		Lng:      s.Lng,
		Altitude: s.Altitude,
		LastSeen: s.LastSeen,
	}
}
