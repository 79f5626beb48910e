// Package station holds the dashboard's domain state: the monitored ground
// stations, their job queues and the vessels those jobs track. All of it is
// owned by the dashboard loop and is not safe for concurrent use.
package station

import (
	"fmt"
	"slices"
	"time"

	"github.com/large-farva/groundwatch/internal/predict"
	"github.com/large-farva/groundwatch/internal/satnogs"
	"github.com/large-farva/groundwatch/internal/sysinfo"
)

// Tracker builds the orbital products attached to a new job.
type Tracker interface {
	Vessel(id uint64, el predict.Elements, qth predict.Location, aos, los time.Time) (*predict.Vessel, error)
	Pass(el predict.Elements, qth predict.Location, aos, los time.Time) (predict.Pass, error)
}

// SGP4 is the production Tracker.
type SGP4 struct{}

func (SGP4) Vessel(id uint64, el predict.Elements, qth predict.Location, aos, los time.Time) (*predict.Vessel, error) {
	return predict.NewVessel(id, el, qth, aos, los)
}

func (SGP4) Pass(el predict.Elements, qth predict.Location, aos, los time.Time) (predict.Pass, error) {
	return predict.PredictPass(el, qth, aos, los)
}

// Station is one monitored ground station.
type Station struct {
	Info    satnogs.Station
	Jobs    []*Job // ascending by start, unique ids
	SysInfo *sysinfo.Snapshot

	// Stale is set when the last network fetch for this station failed and
	// cleared by the next successful one.
	Stale     bool
	LastFetch time.Time

	tracker Tracker
}

// New creates a station from its network record. A nil tracker selects
// SGP4.
func New(info satnogs.Station, tracker Tracker) *Station {
	if tracker == nil {
		tracker = SGP4{}
	}
	return &Station{Info: info, tracker: tracker}
}

// ID is the network station id.
func (s *Station) ID() uint64 { return s.Info.ID }

// Name is the station's display name.
func (s *Station) Name() string { return s.Info.Name }

func (s *Station) String() string {
	return fmt.Sprintf("%d - %s", s.ID(), s.Name())
}

// Location is the station's observer position.
func (s *Station) Location() predict.Location {
	return predict.Location{Lat: s.Info.Lat, Lon: s.Info.Lng, Alt: s.Info.Altitude}
}

// UpdateInfo replaces the network record, keeping jobs and telemetry.
func (s *Station) UpdateInfo(info satnogs.Station) {
	s.Info = info
}

// MergeJobs adds the pairs whose job id is not queued yet and re-sorts the
// queue by start time. Known ids are left untouched, so merging the same
// list twice is a no-op. It returns the number of jobs added and one error
// per pair that could not be turned into a job.
func (s *Station) MergeJobs(pairs []satnogs.JobObservation, now time.Time) (int, []error) {
	s.Stale = false
	s.LastFetch = now

	var (
		added int
		errs  []error
	)
	for _, p := range pairs {
		if s.job(p.Job.ID) != nil {
			continue
		}
		job, err := s.newJob(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		s.Jobs = append(s.Jobs, job)
		added++
	}

	slices.SortStableFunc(s.Jobs, func(a, b *Job) int {
		return a.Start().Compare(b.Start())
	})
	return added, errs
}

func (s *Station) newJob(p satnogs.JobObservation) (*Job, error) {
	el, err := predict.ParseElements(p.Job.TLE0, p.Job.TLE1, p.Job.TLE2)
	if err != nil {
		return nil, fmt.Errorf("job %d: %w", p.Job.ID, err)
	}

	qth := s.Location()
	v, err := s.tracker.Vessel(p.Observation.NoradCatID, el, qth, p.Job.Start, p.Job.End)
	if err != nil {
		return nil, fmt.Errorf("job %d: %w", p.Job.ID, err)
	}

	job := &Job{Job: p.Job, Observation: p.Observation, Vessel: v}
	if pass, err := s.tracker.Pass(el, qth, p.Job.Start, p.Job.End); err == nil {
		job.Pass = &pass
	}
	return job, nil
}

// MarkStale records a failed fetch.
func (s *Station) MarkStale() {
	s.Stale = true
}

// RemoveFinishedJobs drops every job whose window ended at or before now and
// returns how many were removed.
func (s *Station) RemoveFinishedJobs(now time.Time) int {
	before := len(s.Jobs)
	s.Jobs = slices.DeleteFunc(s.Jobs, func(j *Job) bool {
		return j.Finished(now)
	})
	return before - len(s.Jobs)
}

// LeadJob is the earliest queued job, or nil.
func (s *Station) LeadJob() *Job {
	if len(s.Jobs) == 0 {
		return nil
	}
	return s.Jobs[0]
}

// ActiveJob is the job whose window contains now, or nil.
func (s *Station) ActiveJob(now time.Time) *Job {
	for _, j := range s.Jobs {
		if j.Active(now) {
			return j
		}
	}
	return nil
}

// JobIDs lists queued job ids in queue order.
func (s *Station) JobIDs() []uint64 {
	ids := make([]uint64, len(s.Jobs))
	for i, j := range s.Jobs {
		ids[i] = j.ID()
	}
	return ids
}

func (s *Station) job(id uint64) *Job {
	for _, j := range s.Jobs {
		if j.ID() == id {
			return j
		}
	}
	return nil
}
