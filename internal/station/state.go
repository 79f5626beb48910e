package station

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/large-farva/groundwatch/internal/predict"
	"github.com/large-farva/groundwatch/internal/satnogs"
	"github.com/large-farva/groundwatch/internal/sysinfo"
)

// ErrUnknownStation is returned for an id that is not monitored.
var ErrUnknownStation = errors.New("station not monitored")

// RotatorReading is the last position reported by the rotator.
type RotatorReading struct {
	Azimuth   float64
	Elevation float64
	At        time.Time
}

// State is the aggregate root of the dashboard: stations in id order, an
// active-station cursor, vessels tracked independently of jobs, and the
// latest rotator reading.
type State struct {
	stations map[uint64]*Station
	ids      []uint64 // sorted

	// Vessels are tracked regardless of any station's jobs, keyed by NORAD
	// id.
	Vessels map[uint64]*predict.Vessel

	// Active is 0 before the first station is added, then always a key of
	// the station map.
	Active uint64

	Rotator *RotatorReading
}

// NewState returns an empty state.
func NewState() *State {
	return &State{
		stations: make(map[uint64]*Station),
		Vessels:  make(map[uint64]*predict.Vessel),
	}
}

// AddStation inserts st, replacing a station with the same id. The first
// station added becomes active.
func (s *State) AddStation(st *Station) {
	id := st.ID()
	if _, ok := s.stations[id]; !ok {
		i, _ := slices.BinarySearch(s.ids, id)
		s.ids = slices.Insert(s.ids, i, id)
	}
	s.stations[id] = st
	if s.Active == 0 {
		s.Active = id
	}
}

// Station returns the station with id, or nil.
func (s *State) Station(id uint64) *Station {
	return s.stations[id]
}

// Stations lists stations in id order.
func (s *State) Stations() []*Station {
	out := make([]*Station, len(s.ids))
	for i, id := range s.ids {
		out[i] = s.stations[id]
	}
	return out
}

// IDs lists station ids in order.
func (s *State) IDs() []uint64 {
	return slices.Clone(s.ids)
}

// Len is the number of monitored stations.
func (s *State) Len() int {
	return len(s.ids)
}

// ActiveStation returns the station under the cursor, or nil when there are
// no stations.
func (s *State) ActiveStation() *Station {
	return s.stations[s.Active]
}

// NextStation moves the cursor to the next id, wrapping to the first. It is
// a no-op with fewer than two stations.
func (s *State) NextStation() {
	if len(s.ids) < 2 {
		return
	}
	i := slices.Index(s.ids, s.Active)
	s.Active = s.ids[(i+1)%len(s.ids)]
}

// PrevStation moves the cursor to the previous id, wrapping to the last.
func (s *State) PrevStation() {
	if len(s.ids) < 2 {
		return
	}
	i := slices.Index(s.ids, s.Active)
	if i <= 0 {
		i = len(s.ids)
	}
	s.Active = s.ids[i-1]
}

// MergeJobs merges a fetched job list into the station with id.
func (s *State) MergeJobs(id uint64, pairs []satnogs.JobObservation, now time.Time) (int, []error) {
	st := s.stations[id]
	if st == nil {
		return 0, []error{fmt.Errorf("merge jobs for %d: %w", id, ErrUnknownStation)}
	}
	return st.MergeJobs(pairs, now)
}

// UpdateStationInfo replaces a station's network record. The record is
// keyed by id whatever id the payload carries.
func (s *State) UpdateStationInfo(id uint64, info satnogs.Station) error {
	st := s.stations[id]
	if st == nil {
		return fmt.Errorf("station info for %d: %w", id, ErrUnknownStation)
	}
	info.ID = id
	st.UpdateInfo(info)
	return nil
}

// MarkStale flags a failed fetch for id.
func (s *State) MarkStale(id uint64) {
	if st := s.stations[id]; st != nil {
		st.MarkStale()
	}
}

// SetSysInfo stores snap on every listed station that is monitored.
func (s *State) SetSysInfo(ids []uint64, snap sysinfo.Snapshot) {
	for _, id := range ids {
		if st := s.stations[id]; st != nil {
			v := snap
			st.SysInfo = &v
		}
	}
}

// RemoveFinishedJobs sweeps every station and returns the total removed.
func (s *State) RemoveFinishedJobs(now time.Time) int {
	n := 0
	for _, id := range s.ids {
		n += s.stations[id].RemoveFinishedJobs(now)
	}
	return n
}

// UpdateVesselPosition refreshes the active station's lead vessel and every
// independently tracked vessel.
func (s *State) UpdateVesselPosition(orbits int) error {
	var errs []error
	if v := s.LeadVessel(); v != nil {
		errs = append(errs, v.UpdatePosition(orbits))
	}
	for _, v := range s.Vessels {
		errs = append(errs, v.UpdatePosition(orbits))
	}
	return errors.Join(errs...)
}

// TrackVessel follows v independently of any job.
func (s *State) TrackVessel(v *predict.Vessel) {
	s.Vessels[v.ID] = v
}

// UntrackVessel stops following the vessel with id.
func (s *State) UntrackVessel(id uint64) {
	delete(s.Vessels, id)
}

// SetRotator stores a rotator reading.
func (s *State) SetRotator(az, el float64, at time.Time) {
	s.Rotator = &RotatorReading{Azimuth: az, Elevation: el, At: at}
}

// PointingError returns how far the rotator is from the active station's
// lead vessel, in degrees. Azimuth error is wrapped into [-180, 180].
func (s *State) PointingError() (dAz, dEl float64, ok bool) {
	v := s.LeadVessel()
	if v == nil || s.Rotator == nil {
		return 0, 0, false
	}
	dAz = math.Mod(v.Position.Azimuth-s.Rotator.Azimuth+540, 360) - 180
	dEl = v.Position.Elevation - s.Rotator.Elevation
	return dAz, dEl, true
}

// LeadVessel is the vessel of the active station's earliest job, or nil.
func (s *State) LeadVessel() *predict.Vessel {
	st := s.ActiveStation()
	if st == nil {
		return nil
	}
	if job := st.LeadJob(); job != nil {
		return job.Vessel
	}
	return nil
}
