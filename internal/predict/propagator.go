package predict

import (
	"fmt"
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

// Position is the state of a satellite at one instant, as seen from an
// observer.
type Position struct {
	Time      time.Time `json:"time"`
	Lat       float64   `json:"lat"`    // degrees
	Lon       float64   `json:"lon"`    // degrees, [-180, 180]
	AltKm     float64   `json:"alt_km"` // above the ellipsoid
	Velocity  float64   `json:"velocity_km_s"`
	Azimuth   float64   `json:"azimuth"`   // degrees, clockwise from North
	Elevation float64   `json:"elevation"` // degrees above the horizon
	RangeKm   float64   `json:"range_km"`
	RangeRate float64   `json:"range_rate_km_s"` // positive when receding
	Orbit     uint64    `json:"orbit"`
}

// Propagator computes satellite positions for one element set and observer.
type Propagator interface {
	Propagate(t time.Time) (Position, error)
}

// sgp4Propagator runs SGP4 on TEME state vectors and projects them into
// ECEF, geodetic and topocentric frames.
type sgp4Propagator struct {
	el  Elements
	sat satellite.Satellite
	obs observer
}

// NewPropagator initialises SGP4 for el as seen from qth.
func NewPropagator(el Elements, qth Location) (Propagator, error) {
	sat := satellite.TLEToSat(el.Line1, el.Line2, satellite.GravityWGS72)
	if sat.Error != 0 {
		return nil, fmt.Errorf("sgp4 init for %s: code=%d %s", el.Name, sat.Error, sat.ErrorStr)
	}
	return &sgp4Propagator{el: el, sat: sat, obs: newObserver(qth)}, nil
}

func (p *sgp4Propagator) Propagate(t time.Time) (Position, error) {
	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	pos, vel := satellite.Propagate(p.sat, year, int(month), day, hour, min, sec)
	if !finite(pos.X, pos.Y, pos.Z, vel.X, vel.Y, vel.Z) {
		return Position{}, fmt.Errorf("sgp4 propagation for %s at %s: output is NaN/Inf", p.el.Name, t.Format(time.RFC3339))
	}

	gmst := satellite.ThetaG_JD(satellite.JDay(year, int(month), day, hour, min, sec))
	r, v := temeToECEF(vec3{pos.X, pos.Y, pos.Z}, vec3{vel.X, vel.Y, vel.Z}, gmst)

	lat, lon, alt := geodetic(r)
	az, el, rng, rate := p.obs.lookAngles(r, v)

	return Position{
		Time:      t,
		Lat:       lat,
		Lon:       lon,
		AltKm:     alt / 1000,
		Velocity:  math.Sqrt(vel.X*vel.X + vel.Y*vel.Y + vel.Z*vel.Z),
		Azimuth:   az,
		Elevation: el,
		RangeKm:   rng,
		RangeRate: rate,
		Orbit:     p.el.OrbitNumber(t),
	}, nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
