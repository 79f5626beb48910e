package predict

import (
	"math"
	"time"
)

// xkmper is the equatorial Earth radius used by the footprint formula, km.
const xkmper = 6378.135

// Point is a geographic coordinate in degrees.
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// TrackPoint is a ground track sample.
type TrackPoint struct {
	Point
	Time time.Time `json:"time"`
}

// AzEl is a topocentric direction in degrees.
type AzEl struct {
	Azimuth   float64 `json:"azimuth"`
	Elevation float64 `json:"elevation"`
}

// Footprint returns the ring of ground points from which a satellite at pos
// is above the horizon: 180 bearings, each yielding the point on the ring
// and its mirror across the sub-satellite meridian.
func Footprint(pos Position) []Point {
	footprint := 12756.33 * math.Acos(xkmper/(xkmper+pos.AltKm))
	beta := 0.5 * footprint / xkmper

	satLat := pos.Lat * math.Pi / 180
	satLon := pos.Lon * math.Pi / 180

	ring := make([]Point, 0, 360)
	for azi := 0; azi < 180; azi++ {
		azimuth := float64(azi) * math.Pi / 180

		rangeLat := math.Asin(math.Sin(satLat)*math.Cos(beta) + math.Cos(azimuth)*math.Sin(beta)*math.Cos(satLat))

		num := math.Cos(beta) - math.Sin(satLat)*math.Sin(rangeLat)
		dem := math.Cos(satLat) * math.Cos(rangeLat)

		var rangeLon float64
		switch {
		case math.Abs(num/dem) > 1:
			rangeLon = satLon
		case dem > 0:
			rangeLon = satLon - math.Acos(num/dem)
		case dem < 0:
			rangeLon = satLon + math.Acos(num/dem) + math.Pi
		}
		for rangeLon < -math.Pi {
			rangeLon += 2 * math.Pi
		}
		for rangeLon > math.Pi {
			rangeLon -= 2 * math.Pi
		}

		lonDeg := rangeLon * 180 / math.Pi
		latDeg := rangeLat * 180 / math.Pi

		diff := math.Mod(pos.Lon-lonDeg, 360)
		if diff < 0 {
			diff += 360
		}

		ring = append(ring,
			Point{Lon: lonDeg, Lat: latDeg},
			Point{Lon: NormalizeLon(pos.Lon + math.Abs(diff)), Lat: latDeg},
		)
	}
	return ring
}

// PolarTrack samples az/el every two seconds from aos through los. Samples
// the propagator rejects are skipped.
func PolarTrack(prop Propagator, aos, los time.Time) []AzEl {
	if los.Before(aos) {
		return nil
	}

	track := make([]AzEl, 0, int(los.Sub(aos)/polarStep)+1)
	for t := aos; !t.After(los); t = t.Add(polarStep) {
		p, err := prop.Propagate(t)
		if err != nil {
			continue
		}
		track = append(track, AzEl{Azimuth: p.Azimuth, Elevation: p.Elevation})
	}
	return track
}

const polarStep = 2 * time.Second
