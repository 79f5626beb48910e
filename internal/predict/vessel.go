package predict

import (
	"fmt"
	"sort"
	"time"
)

const (
	// trackStep is the ground track sampling interval.
	trackStep = 10 * time.Second

	// maxTrackSteps bounds each ground track walk per requested orbit so
	// degenerate elements (orbit number never changing) cannot spin forever.
	// Two days at trackStep outlasts any orbit the dashboard will meet.
	maxTrackSteps = int(48 * time.Hour / trackStep)
)

// Vessel is a tracked satellite: its element set, the observer it is seen
// from, and cached geometry derived from them.
type Vessel struct {
	ID       uint64
	Elements Elements
	QTH      Location

	Position    Position
	GroundTrack []TrackPoint
	Footprint   []Point
	PolarTrack  []AzEl

	prop Propagator
	now  func() time.Time
}

// VesselOption customizes a Vessel.
type VesselOption func(*Vessel)

// WithPropagator replaces the SGP4 propagator.
func WithPropagator(p Propagator) VesselOption {
	return func(v *Vessel) { v.prop = p }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) VesselOption {
	return func(v *Vessel) { v.now = now }
}

// NewVessel builds a vessel for el seen from qth. The polar track covers
// [aos, los]; the current position is computed immediately, the ground
// track and footprint on the first UpdatePosition.
func NewVessel(id uint64, el Elements, qth Location, aos, los time.Time, opts ...VesselOption) (*Vessel, error) {
	v := &Vessel{
		ID:       id,
		Elements: el,
		QTH:      qth,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}

	if v.prop == nil {
		p, err := NewPropagator(el, qth)
		if err != nil {
			return nil, err
		}
		v.prop = p
	}

	v.PolarTrack = PolarTrack(v.prop, aos, los)

	pos, err := v.prop.Propagate(v.now())
	if err != nil {
		return nil, fmt.Errorf("vessel %d: %w", id, err)
	}
	v.Position = pos
	return v, nil
}

// Name is the satellite name from the element set.
func (v *Vessel) Name() string {
	return v.Elements.Name
}

// Propagate exposes the vessel's propagator.
func (v *Vessel) Propagate(t time.Time) (Position, error) {
	return v.prop.Propagate(t)
}

// UpdatePosition propagates to now. The ground track is recomputed when
// the orbit number changed or no track is cached; the footprint always is.
func (v *Vessel) UpdatePosition(orbits int) error {
	pos, err := v.prop.Propagate(v.now())
	if err != nil {
		return fmt.Errorf("vessel %d: %w", v.ID, err)
	}

	stale := pos.Orbit != v.Position.Orbit || len(v.GroundTrack) == 0
	v.Position = pos

	if stale {
		if err := v.UpdateGroundTrack(orbits); err != nil {
			return err
		}
	}
	v.Footprint = Footprint(pos)
	return nil
}

// UpdateGroundTrack rebuilds the ground track: it walks back in trackStep
// increments to the start of the current orbit, then forward recording
// samples until orbits revolutions have been covered.
func (v *Vessel) UpdateGroundTrack(orbits int) error {
	if orbits < 1 {
		orbits = 1
	}

	this := v.Position.Orbit
	t := v.now()

	current := this
	for steps := 0; current == this; steps++ {
		if steps >= maxTrackSteps {
			return fmt.Errorf("vessel %d: orbit %d never started within %s", v.ID, this, time.Duration(maxTrackSteps)*trackStep)
		}
		t = t.Add(-trackStep)
		p, err := v.prop.Propagate(t)
		if err != nil {
			return fmt.Errorf("vessel %d: %w", v.ID, err)
		}
		current = p.Orbit
	}

	limit := maxTrackSteps * orbits
	track := make([]TrackPoint, 0, 600*orbits)

	current = this
	for steps := 0; current < this+uint64(orbits); steps++ {
		if steps >= limit {
			return fmt.Errorf("vessel %d: %d orbits not covered within %s", v.ID, orbits, time.Duration(limit)*trackStep)
		}
		t = t.Add(trackStep)
		p, err := v.prop.Propagate(t)
		if err != nil {
			return fmt.Errorf("vessel %d: %w", v.ID, err)
		}
		track = append(track, TrackPoint{Point: Point{Lon: p.Lon, Lat: p.Lat}, Time: p.Time})
		current = p.Orbit
	}

	v.GroundTrack = track
	return nil
}

// TrackSplit returns the index of the first ground track sample after now.
// Samples before it have been flown, the rest are upcoming.
func (v *Vessel) TrackSplit(now time.Time) int {
	return sort.Search(len(v.GroundTrack), func(i int) bool {
		return v.GroundTrack[i].Time.After(now)
	})
}
