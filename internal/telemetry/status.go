package telemetry

import (
	"time"

	"github.com/large-farva/groundwatch/internal/predict"
	"github.com/large-farva/groundwatch/internal/sysinfo"
)

// Status is the dashboard snapshot served at /api/status. The dashboard
// publishes a fresh one after every render.
type Status struct {
	Name          string    `json:"name"`
	Version       string    `json:"version"`
	GeneratedAt   time.Time `json:"generated_at"`
	UptimeSeconds int64     `json:"uptime_seconds"`

	ActiveStation uint64           `json:"active_station"`
	Stations      []StationSummary `json:"stations"`
	Vessel        *VesselStatus    `json:"vessel,omitempty"`
	Rotator       *RotatorStatus   `json:"rotator,omitempty"`
	Waterfall     *WaterfallStatus `json:"waterfall,omitempty"`
}

// StationSummary is one monitored station.
type StationSummary struct {
	ID       uint64    `json:"id"`
	Name     string    `json:"name"`
	Status   string    `json:"status"`
	Lat      float64   `json:"lat"`
	Lng      float64   `json:"lng"`
	Altitude float64   `json:"altitude"`
	LastSeen time.Time `json:"last_seen"`

	Local     bool              `json:"local,omitempty"`
	Stale     bool              `json:"stale,omitempty"`
	LastFetch *time.Time        `json:"last_fetch,omitempty"`
	SysInfo   *sysinfo.Snapshot `json:"sys_info,omitempty"`
	Jobs      []JobSummary      `json:"jobs,omitempty"`
}

// JobSummary is one queued observation job.
type JobSummary struct {
	ID          uint64    `json:"id"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Vessel      string    `json:"vessel"`
	NoradID     uint64    `json:"norad_id,omitempty"`
	FrequencyHz uint64    `json:"frequency_hz"`
	Mode        string    `json:"mode,omitempty"`
	MaxElev     *float64  `json:"max_elev,omitempty"`
}

// VesselStatus is the active station's lead vessel.
type VesselStatus struct {
	ID       uint64           `json:"id"`
	Name     string           `json:"name"`
	Position predict.Position `json:"position"`
}

// RotatorStatus is the last rotator reading and, when a vessel is tracked,
// how far off it points.
type RotatorStatus struct {
	Azimuth      float64   `json:"azimuth"`
	Elevation    float64   `json:"elevation"`
	At           time.Time `json:"at"`
	AzimuthErr   *float64  `json:"azimuth_error,omitempty"`
	ElevationErr *float64  `json:"elevation_error,omitempty"`
}

// WaterfallStatus describes the capture being displayed.
type WaterfallStatus struct {
	ObservationID uint64 `json:"observation_id"`
	Bins          int    `json:"bins"`
	Rows          int    `json:"rows"`
}

// Logs is the /api/logs response.
type Logs struct {
	Logs []LogLine `json:"logs"`
}
