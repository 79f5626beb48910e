package predict

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	issName  = "ISS (ZARYA)"
	issLine1 = "1 25544U 98067A   08264.51782528 -.00002182  00000-0 -11606-4 0  2927"
	issLine2 = "2 25544  51.6416 247.4627 0006703 130.5360 325.0288 15.72125391563537"
)

// circularProp flies an equatorial orbit: longitude sweeps -180..180 once
// per period and the orbit number increments at each sweep start.
type circularProp struct {
	epoch  time.Time
	period time.Duration
	orbit  uint64
	calls  int
}

func (p *circularProp) Propagate(t time.Time) (Position, error) {
	p.calls++
	revs := float64(t.Sub(p.epoch)) / float64(p.period)
	whole := math.Floor(revs)
	frac := revs - whole
	return Position{
		Time:      t,
		Lat:       0,
		Lon:       -180 + 360*frac,
		AltKm:     400,
		Azimuth:   360 * frac,
		Elevation: 45,
		Orbit:     uint64(int64(p.orbit) + int64(whole)),
	}, nil
}

// stuckProp never leaves its orbit.
type stuckProp struct{}

func (stuckProp) Propagate(t time.Time) (Position, error) {
	return Position{Time: t, Orbit: 7, AltKm: 400}, nil
}

type failingProp struct{}

func (failingProp) Propagate(time.Time) (Position, error) {
	return Position{}, errors.New("decayed")
}

func TestParseElements(t *testing.T) {
	el, err := ParseElements("0 "+issName, issLine1+"  ", issLine2)
	require.NoError(t, err)

	assert.Equal(t, issName, el.Name)
	assert.Equal(t, 25544, el.NoradID)
	assert.Equal(t, uint64(56353), el.RevNumber)
	assert.InDelta(t, 15.72125391, el.MeanMotion, 1e-9)
	assert.InDelta(t, 325.0288, el.MeanAnomaly, 1e-9)
	assert.InDelta(t, -0.00002182, el.NDot2, 1e-12)

	assert.Equal(t, 2008, el.Epoch.Year())
	assert.Equal(t, time.September, el.Epoch.Month())
	assert.Equal(t, 20, el.Epoch.Day())
	assert.Equal(t, 12, el.Epoch.Hour())
	assert.Equal(t, 25, el.Epoch.Minute())

	assert.InDelta(t, 91.6, el.Period().Minutes(), 0.1)
}

func TestParseElementsRejectsMalformedLines(t *testing.T) {
	_, err := ParseElements(issName, issLine1[:40], issLine2)
	assert.ErrorIs(t, err, ErrInvalidTLE)

	_, err = ParseElements(issName, issLine2, issLine1)
	assert.ErrorIs(t, err, ErrInvalidTLE)
}

func TestOrbitNumber(t *testing.T) {
	el, err := ParseElements(issName, issLine1, issLine2)
	require.NoError(t, err)

	assert.Equal(t, uint64(56353), el.OrbitNumber(el.Epoch))
	assert.Equal(t, uint64(56369), el.OrbitNumber(el.Epoch.Add(24*time.Hour)))
	assert.LessOrEqual(t, el.OrbitNumber(el.Epoch.Add(time.Hour)), el.OrbitNumber(el.Epoch.Add(2*time.Hour)))
}

func TestNormalizeLon(t *testing.T) {
	assert.Equal(t, 170.0, NormalizeLon(-190))
	assert.Equal(t, -170.0, NormalizeLon(190))
	assert.Equal(t, 10.0, NormalizeLon(730))
	assert.Equal(t, 180.0, NormalizeLon(180))
}

func TestGeodeticRoundTripsObserver(t *testing.T) {
	loc := Location{Lat: 48.2, Lon: 16.37, Alt: 180}
	lat, lon, alt := geodetic(newObserver(loc).ecef)

	assert.InDelta(t, loc.Lat, lat, 1e-6)
	assert.InDelta(t, loc.Lon, lon, 1e-6)
	assert.InDelta(t, loc.Alt, alt, 1e-3)
}

func TestLookAnglesZenith(t *testing.T) {
	obs := newObserver(Location{Lat: 0, Lon: 0})
	above := vec3{X: wgs84A + 500e3}

	_, el, rng, rate := obs.lookAngles(above, vec3{X: 1000})
	assert.InDelta(t, 90, el, 1e-6)
	assert.InDelta(t, 500, rng, 1e-6)
	assert.InDelta(t, 1, rate, 1e-9)
}

func TestFootprint(t *testing.T) {
	ring := Footprint(Position{Lat: 0, Lon: 0, AltKm: 400})
	require.Len(t, ring, 360)

	beta := 0.5 * 12756.33 * math.Acos(xkmper/(xkmper+400)) / xkmper * 180 / math.Pi
	assert.InDelta(t, beta, ring[0].Lat, 1e-9)

	for i := 0; i < len(ring); i += 2 {
		primary, mirror := ring[i], ring[i+1]
		assert.Equal(t, primary.Lat, mirror.Lat)
		assert.InDelta(t, -primary.Lon, mirror.Lon, 1e-9, "bearing %d", i/2)
		assert.LessOrEqual(t, math.Abs(primary.Lat), beta+1e-9)
	}
}

func TestFootprintLongitudesStayInRange(t *testing.T) {
	ring := Footprint(Position{Lat: 60, Lon: 178, AltKm: 800})
	for _, p := range ring {
		assert.GreaterOrEqual(t, p.Lon, -180.0)
		assert.LessOrEqual(t, p.Lon, 180.0)
	}
}

func TestPolarTrack(t *testing.T) {
	aos := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	prop := &circularProp{epoch: aos, period: 90 * time.Minute}

	track := PolarTrack(prop, aos, aos.Add(10*time.Minute))
	assert.Len(t, track, 301)
	assert.Equal(t, 45.0, track[0].Elevation)

	assert.Empty(t, PolarTrack(prop, aos, aos.Add(-time.Second)))
	assert.Empty(t, PolarTrack(failingProp{}, aos, aos.Add(time.Minute)))
}

func newTestVessel(t *testing.T, prop Propagator, now *time.Time) *Vessel {
	t.Helper()
	v, err := NewVessel(1, Elements{Name: "TEST"}, Location{}, *now, now.Add(5*time.Minute),
		WithPropagator(prop),
		WithClock(func() time.Time { return *now }),
	)
	require.NoError(t, err)
	return v
}

func TestUpdateGroundTrackCoversRequestedOrbits(t *testing.T) {
	epoch := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	now := epoch.Add(30 * time.Minute)
	prop := &circularProp{epoch: epoch, period: 90 * time.Minute, orbit: 100}

	v := newTestVessel(t, prop, &now)
	require.NoError(t, v.UpdatePosition(3))

	assert.Equal(t, uint64(100), v.Position.Orbit)
	assert.InDelta(t, 3*540, len(v.GroundTrack), 2)
	assert.Len(t, v.Footprint, 360)

	first := v.GroundTrack[0]
	last := v.GroundTrack[len(v.GroundTrack)-1]
	assert.False(t, first.Time.After(epoch.Add(trackStep)))
	assert.True(t, last.Time.After(epoch.Add(3*90*time.Minute-trackStep)))
}

func TestUpdatePositionReusesTrackWithinOrbit(t *testing.T) {
	epoch := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	now := epoch.Add(10 * time.Minute)
	prop := &circularProp{epoch: epoch, period: 90 * time.Minute}

	v := newTestVessel(t, prop, &now)
	require.NoError(t, v.UpdatePosition(1))
	firstTrack := v.GroundTrack[0].Time

	now = now.Add(time.Minute)
	calls := prop.calls
	require.NoError(t, v.UpdatePosition(1))
	assert.Equal(t, firstTrack, v.GroundTrack[0].Time)
	assert.Equal(t, calls+1, prop.calls)

	now = epoch.Add(95 * time.Minute)
	require.NoError(t, v.UpdatePosition(1))
	assert.Equal(t, uint64(1), v.Position.Orbit)
	assert.True(t, v.GroundTrack[0].Time.After(firstTrack))
}

func TestUpdateGroundTrackIsBounded(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	v := newTestVessel(t, stuckProp{}, &now)

	err := v.UpdateGroundTrack(2)
	assert.Error(t, err)
	assert.Empty(t, v.GroundTrack)
}

func TestNewVesselPropagationFailure(t *testing.T) {
	now := time.Now()
	_, err := NewVessel(1, Elements{}, Location{}, now, now, WithPropagator(failingProp{}))
	assert.Error(t, err)
}

func TestTrackSplit(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	v := &Vessel{}
	for i := 0; i < 5; i++ {
		v.GroundTrack = append(v.GroundTrack, TrackPoint{Time: base.Add(time.Duration(i) * trackStep)})
	}

	assert.Equal(t, 0, v.TrackSplit(base.Add(-time.Second)))
	assert.Equal(t, 3, v.TrackSplit(base.Add(25*time.Second)))
	assert.Equal(t, 5, v.TrackSplit(base.Add(time.Hour)))
}

func TestPredictPassNeedsParsedElements(t *testing.T) {
	_, err := PredictPass(Elements{Name: "X"}, Location{}, time.Now(), time.Now())
	assert.ErrorIs(t, err, ErrInvalidTLE)
}

func TestSGP4PropagatorNearEpoch(t *testing.T) {
	el, err := ParseElements(issName, issLine1, issLine2)
	require.NoError(t, err)

	prop, err := NewPropagator(el, Location{Lat: 51.5, Lon: -0.1, Alt: 20})
	require.NoError(t, err)

	pos, err := prop.Propagate(el.Epoch.Add(10 * time.Minute))
	require.NoError(t, err)

	assert.InDelta(t, 350, pos.AltKm, 40)
	assert.InDelta(t, 7.7, pos.Velocity, 0.2)
	assert.LessOrEqual(t, math.Abs(pos.Lat), 52.0)
	assert.GreaterOrEqual(t, pos.Azimuth, 0.0)
	assert.Less(t, pos.Azimuth, 360.0)
}
