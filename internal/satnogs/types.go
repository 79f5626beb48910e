// Package satnogs is a small client for the SatNOGS network REST API. It
// covers the read-only endpoints the dashboard needs: jobs, observations and
// station records.
package satnogs

import "time"

// Job is an observation job scheduled on a ground station, as served by
// /api/jobs/. The TLE lines are those the station will track with.
type Job struct {
	ID            uint64    `json:"id"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	GroundStation uint64    `json:"ground_station"`
	TLE0          string    `json:"tle0"`
	TLE1          string    `json:"tle1"`
	TLE2          string    `json:"tle2"`
	Frequency     uint64    `json:"frequency"`
	Mode          string    `json:"mode"` // null decodes to ""
	Transmitter   string    `json:"transmitter"`
	Baud          *float64  `json:"baud"`
}

// DemodData is one demodulated payload attached to an observation.
type DemodData struct {
	PayloadDemod string `json:"payload_demod"`
}

// Observation is the public record of a job, from /api/observations/.
type Observation struct {
	ID             uint64      `json:"id"`
	Start          time.Time   `json:"start"`
	End            time.Time   `json:"end"`
	GroundStation  uint64      `json:"ground_station"`
	Transmitter    string      `json:"transmitter"`
	NoradCatID     uint64      `json:"norad_cat_id"`
	Payload        *string     `json:"payload"`
	Waterfall      *string     `json:"waterfall"`
	DemodData      []DemodData `json:"demoddata"`
	StationName    string      `json:"station_name"`
	StationLat     float64     `json:"station_lat"`
	StationLng     float64     `json:"station_lng"`
	StationAlt     float64     `json:"station_alt"`
	VettedStatus   string      `json:"vetted_status"`
	RiseAzimuth    float64     `json:"rise_azimuth"`
	SetAzimuth     float64     `json:"set_azimuth"`
	MaxAltitude    float64     `json:"max_altitude"`
	Archived       bool        `json:"archived"`
	ArchiveURL     *string     `json:"archive_url"`
	ClientVersion  string      `json:"client_version"`
	ClientMetadata string      `json:"client_metadata"`
}

// JobObservation pairs a job with the observation sharing its id.
type JobObservation struct {
	Job         Job         `json:"job"`
	Observation Observation `json:"observation"`
}

// Antenna describes one antenna of a station.
type Antenna struct {
	Frequency    uint64 `json:"frequency"`
	FrequencyMax uint64 `json:"frequency_max"`
	Band         string `json:"band"`
	AntennaType  string `json:"antenna_type"`
}

// Status is the network's view of a station.
type Status string

const (
	StatusOnline  Status = "Online"
	StatusOffline Status = "Offline"
	StatusTesting Status = "Testing"
)

// Station is a ground station record from /api/stations/.
type Station struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	Altitude     float64   `json:"altitude"`
	MinHorizon   float64   `json:"min_horizon"`
	Lat          float64   `json:"lat"`
	Lng          float64   `json:"lng"`
	QTHLocator   string    `json:"qthlocator"`
	Location     string    `json:"location"`
	Antenna      []Antenna `json:"antenna"`
	Created      time.Time `json:"created"`
	LastSeen     time.Time `json:"last_seen"`
	Status       Status    `json:"status"`
	Observations uint64    `json:"observations"`
	Description  string    `json:"description"`
}

// ObservationFilter narrows an observation listing. Zero fields are not
// sent.
type ObservationFilter struct {
	GroundStation uint64
	Start         time.Time
	End           time.Time
	NoradCatID    uint64
}
