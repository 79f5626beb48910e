package station

import (
	"time"

	"github.com/large-farva/groundwatch/internal/predict"
	"github.com/large-farva/groundwatch/internal/satnogs"
)

// Job is an observation job scheduled on a station, paired with its public
// observation record and the vessel it tracks.
type Job struct {
	Job         satnogs.Job
	Observation satnogs.Observation
	Vessel      *predict.Vessel

	// Pass is the predicted pass over the job window, nil when it could not
	// be computed.
	Pass *predict.Pass
}

// ID is the network job id.
func (j *Job) ID() uint64 { return j.Job.ID }

// Start is the beginning of the observation window.
func (j *Job) Start() time.Time { return j.Job.Start }

// End is the end of the observation window.
func (j *Job) End() time.Time { return j.Job.End }

// Mode is the transmitter mode, possibly empty.
func (j *Job) Mode() string { return j.Job.Mode }

// FrequencyMHz is the downlink frequency in MHz.
func (j *Job) FrequencyMHz() float64 {
	return float64(j.Job.Frequency) / 1e6
}

// VesselName is the tracked satellite's name.
func (j *Job) VesselName() string {
	if j.Vessel == nil {
		return j.Job.TLE0
	}
	return j.Vessel.Name()
}

// Active reports whether now lies inside the observation window.
func (j *Job) Active(now time.Time) bool {
	return !now.Before(j.Start()) && now.Before(j.End())
}

// Finished reports whether the window has ended at now.
func (j *Job) Finished(now time.Time) bool {
	return !j.End().After(now)
}
