package station

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/large-farva/groundwatch/internal/predict"
	"github.com/large-farva/groundwatch/internal/satnogs"
	"github.com/large-farva/groundwatch/internal/sysinfo"
)

const (
	tle1 = "1 25544U 98067A   08264.51782528 -.00002182  00000-0 -11606-4 0  2927"
	tle2 = "2 25544  51.6416 247.4627 0006703 130.5360 325.0288 15.72125391563537"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// fixedProp reports a fixed look direction and a 90 minute orbit counter.
type fixedProp struct {
	az, el float64
}

func (p fixedProp) Propagate(t time.Time) (predict.Position, error) {
	return predict.Position{
		Time:      t,
		Lon:       float64(t.Unix()%5400)/15 - 180,
		AltKm:     420,
		Azimuth:   p.az,
		Elevation: p.el,
		Orbit:     uint64(t.Unix() / 5400),
	}, nil
}

type fakeTracker struct {
	now     time.Time
	prop    predict.Propagator
	passErr error
}

func (f fakeTracker) Vessel(id uint64, el predict.Elements, qth predict.Location, aos, los time.Time) (*predict.Vessel, error) {
	return predict.NewVessel(id, el, qth, aos, los,
		predict.WithPropagator(f.prop),
		predict.WithClock(func() time.Time { return f.now }),
	)
}

func (f fakeTracker) Pass(_ predict.Elements, _ predict.Location, aos, los time.Time) (predict.Pass, error) {
	if f.passErr != nil {
		return predict.Pass{}, f.passErr
	}
	return predict.Pass{AOS: aos, LOS: los, MaxElev: 42, Duration: los.Sub(aos)}, nil
}

func newTestStation(id uint64) *Station {
	return New(satnogs.Station{ID: id, Name: "station", Lat: 48, Lng: 16}, fakeTracker{
		now:  t0,
		prop: fixedProp{az: 350, el: 20},
	})
}

func pair(id uint64, start time.Duration, length time.Duration) satnogs.JobObservation {
	return satnogs.JobObservation{
		Job: satnogs.Job{
			ID:    id,
			Start: t0.Add(start),
			End:   t0.Add(start + length),
			TLE0:  "ISS (ZARYA)",
			TLE1:  tle1,
			TLE2:  tle2,
		},
		Observation: satnogs.Observation{ID: id, NoradCatID: 25544},
	}
}

func TestMergeJobsSortsAndIsIdempotent(t *testing.T) {
	st := newTestStation(1)
	jobs := []satnogs.JobObservation{
		pair(5, 2*time.Hour, 10*time.Minute),
		pair(3, time.Hour, 10*time.Minute),
	}

	added, errs := st.MergeJobs(jobs, t0)
	require.Empty(t, errs)
	assert.Equal(t, 2, added)
	assert.Equal(t, []uint64{3, 5}, st.JobIDs())

	added, errs = st.MergeJobs(jobs, t0)
	require.Empty(t, errs)
	assert.Zero(t, added)
	assert.Equal(t, []uint64{3, 5}, st.JobIDs())

	lead := st.LeadJob()
	require.NotNil(t, lead)
	assert.Equal(t, "ISS (ZARYA)", lead.VesselName())
	assert.Equal(t, uint64(25544), lead.Vessel.ID)
	require.NotNil(t, lead.Pass)
	assert.Equal(t, 42.0, lead.Pass.MaxElev)
}

func TestMergeExpireScenario(t *testing.T) {
	st := newTestStation(1)

	_, errs := st.MergeJobs([]satnogs.JobObservation{
		pair(5, 20*time.Minute, 10*time.Minute),
		pair(3, 0, 10*time.Minute),
	}, t0)
	require.Empty(t, errs)
	assert.Equal(t, []uint64{3, 5}, st.JobIDs())

	assert.Zero(t, st.RemoveFinishedJobs(t0.Add(9*time.Minute)))
	assert.Equal(t, 1, st.RemoveFinishedJobs(t0.Add(10*time.Minute)))
	assert.Equal(t, []uint64{5}, st.JobIDs())

	// A refetch that no longer lists the finished job leaves the queue as is.
	_, errs = st.MergeJobs([]satnogs.JobObservation{pair(5, 20*time.Minute, 10*time.Minute)}, t0.Add(11*time.Minute))
	require.Empty(t, errs)
	assert.Equal(t, []uint64{5}, st.JobIDs())
}

func TestMergeJobsSkipsBadTLE(t *testing.T) {
	st := newTestStation(1)
	bad := pair(9, time.Hour, time.Minute)
	bad.Job.TLE1 = "1 garbage"

	added, errs := st.MergeJobs([]satnogs.JobObservation{bad, pair(4, 0, time.Minute)}, t0)
	assert.Equal(t, 1, added)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], predict.ErrInvalidTLE)
	assert.Equal(t, []uint64{4}, st.JobIDs())
}

func TestMergeJobsWithoutPass(t *testing.T) {
	st := New(satnogs.Station{ID: 1}, fakeTracker{now: t0, prop: fixedProp{}, passErr: predict.ErrNoPass})
	_, errs := st.MergeJobs([]satnogs.JobObservation{pair(1, 0, time.Minute)}, t0)
	require.Empty(t, errs)
	assert.Nil(t, st.LeadJob().Pass)
}

func TestActiveJob(t *testing.T) {
	st := newTestStation(1)
	st.MergeJobs([]satnogs.JobObservation{pair(1, time.Minute, time.Minute)}, t0)

	assert.Nil(t, st.ActiveJob(t0))
	assert.NotNil(t, st.ActiveJob(t0.Add(90*time.Second)))
	assert.Nil(t, st.ActiveJob(t0.Add(2*time.Minute)))
}

func TestStaleFlag(t *testing.T) {
	s := NewState()
	s.AddStation(newTestStation(1))

	s.MarkStale(1)
	assert.True(t, s.Station(1).Stale)

	s.MergeJobs(1, nil, t0)
	assert.False(t, s.Station(1).Stale)
	assert.Equal(t, t0, s.Station(1).LastFetch)
}

func TestStationCycling(t *testing.T) {
	s := NewState()
	assert.Nil(t, s.ActiveStation())
	s.NextStation()
	assert.Zero(t, s.Active)

	s.AddStation(newTestStation(30))
	assert.Equal(t, uint64(30), s.Active)
	s.NextStation()
	assert.Equal(t, uint64(30), s.Active)

	s.AddStation(newTestStation(10))
	s.AddStation(newTestStation(20))
	assert.Equal(t, []uint64{10, 20, 30}, s.IDs())
	assert.Equal(t, uint64(30), s.Active)

	s.NextStation()
	assert.Equal(t, uint64(10), s.Active)
	s.NextStation()
	assert.Equal(t, uint64(20), s.Active)

	s.PrevStation()
	assert.Equal(t, uint64(10), s.Active)
	s.PrevStation()
	assert.Equal(t, uint64(30), s.Active)
}

func TestUnknownStation(t *testing.T) {
	s := NewState()
	_, errs := s.MergeJobs(7, nil, t0)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrUnknownStation)
	assert.ErrorIs(t, s.UpdateStationInfo(7, satnogs.Station{}), ErrUnknownStation)
}

func TestUpdateStationInfoKeepsID(t *testing.T) {
	s := NewState()
	s.AddStation(newTestStation(10))
	s.AddStation(newTestStation(20))

	require.NoError(t, s.UpdateStationInfo(20, satnogs.Station{ID: 99, Name: "renamed"}))
	st := s.Station(20)
	assert.Equal(t, uint64(20), st.ID())
	assert.Equal(t, "renamed", st.Name())

	s.Active = 20
	s.NextStation()
	assert.Equal(t, uint64(10), s.Active)
	assert.Equal(t, uint64(10), s.ActiveStation().ID())
}

func TestSetSysInfoOnlyNamedStations(t *testing.T) {
	s := NewState()
	s.AddStation(newTestStation(1))
	s.AddStation(newTestStation(2))

	up := 3 * time.Hour
	s.SetSysInfo([]uint64{2, 99}, sysinfo.Snapshot{Uptime: &up})

	assert.Nil(t, s.Station(1).SysInfo)
	require.NotNil(t, s.Station(2).SysInfo)
	assert.Equal(t, up, *s.Station(2).SysInfo.Uptime)
}

func TestUpdateVesselPositionAndPointingError(t *testing.T) {
	s := NewState()
	st := newTestStation(1)
	s.AddStation(st)

	require.NoError(t, s.UpdateVesselPosition(1))
	_, _, ok := s.PointingError()
	assert.False(t, ok)

	st.MergeJobs([]satnogs.JobObservation{pair(1, 0, 10*time.Minute)}, t0)
	require.NoError(t, s.UpdateVesselPosition(1))

	v := s.LeadVessel()
	require.NotNil(t, v)
	assert.NotEmpty(t, v.GroundTrack)
	assert.Len(t, v.Footprint, 360)

	s.SetRotator(10, 25, t0)
	dAz, dEl, ok := s.PointingError()
	require.True(t, ok)
	assert.InDelta(t, -20, dAz, 1e-9)
	assert.InDelta(t, -5, dEl, 1e-9)
}

func TestTrackedVessels(t *testing.T) {
	s := NewState()
	el, err := predict.ParseElements("ISS", tle1, tle2)
	require.NoError(t, err)

	v, err := predict.NewVessel(25544, el, predict.Location{}, t0, t0,
		predict.WithPropagator(fixedProp{}),
		predict.WithClock(func() time.Time { return t0 }),
	)
	require.NoError(t, err)

	s.TrackVessel(v)
	require.NoError(t, s.UpdateVesselPosition(2))
	assert.NotEmpty(t, v.GroundTrack)

	s.UntrackVessel(25544)
	assert.Empty(t, s.Vessels)
}

func TestUpdateVesselPositionJoinsErrors(t *testing.T) {
	s := NewState()
	v, err := predict.NewVessel(1, predict.Elements{}, predict.Location{}, t0, t0,
		predict.WithPropagator(fixedProp{}),
	)
	require.NoError(t, err)
	s.TrackVessel(v)

	broken, err := predict.NewVessel(2, predict.Elements{}, predict.Location{}, t0, t0,
		predict.WithPropagator(&flakyProp{}),
	)
	require.NoError(t, err)
	s.TrackVessel(broken)

	err = s.UpdateVesselPosition(1)
	assert.ErrorIs(t, err, errFlaky)
}

var errFlaky = errors.New("flaky")

// flakyProp serves the polar track and initial position, then fails.
type flakyProp struct{ n int }

func (p *flakyProp) Propagate(t time.Time) (predict.Position, error) {
	p.n++
	if p.n > 2 {
		return predict.Position{}, errFlaky
	}
	return predict.Position{Time: t}, nil
}
