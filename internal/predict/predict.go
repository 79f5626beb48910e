// Package predict computes satellite geometry for the dashboard: current
// position and look angles, ground tracks, visibility footprints, polar
// tracks over an observation window, and the pass a job is scheduled for.
package predict

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoPass is returned when no pass rises in the searched window.
var ErrNoPass = errors.New("no pass in window")

// passMargin widens the search window around a job so a pass starting right
// at the job's edge is still found whole.
const passMargin = 2 * time.Minute

// Pass describes a single predicted overhead pass, from acquisition of
// signal (AOS) through loss of signal (LOS).
type Pass struct {
	AOS         time.Time     `json:"aos"`
	LOS         time.Time     `json:"los"`
	MaxElev     float64       `json:"max_elev"`
	MaxElevTime time.Time     `json:"max_elev_time"`
	AOSAzimuth  float64       `json:"aos_azimuth"`
	LOSAzimuth  float64       `json:"los_azimuth"`
	Duration    time.Duration `json:"duration"`
}

// PredictPass finds the highest pass of el over qth overlapping
// [start, end].
func PredictPass(el Elements, qth Location, start, end time.Time) (Pass, error) {
	if el.tle == nil {
		return Pass{}, fmt.Errorf("%w: %s not parsed", ErrInvalidTLE, el.Name)
	}

	raw, err := el.tle.GeneratePasses(
		qth.Lat, qth.Lon, qth.Alt,
		start.Add(-passMargin).UTC(), end.Add(passMargin).UTC(),
		1, // 1-second step for precision
	)
	if err != nil {
		return Pass{}, fmt.Errorf("passes for %s: %w", el.Name, err)
	}

	var (
		best  Pass
		found bool
	)
	for _, rp := range raw {
		if rp.LOS.Before(start) || rp.AOS.After(end) {
			continue
		}
		if found && rp.MaxElevation <= best.MaxElev {
			continue
		}
		best = Pass{
			AOS:         rp.AOS,
			LOS:         rp.LOS,
			MaxElev:     rp.MaxElevation,
			MaxElevTime: rp.MaxElevationTime,
			AOSAzimuth:  rp.AOSAzimuth,
			LOSAzimuth:  rp.LOSAzimuth,
			Duration:    rp.Duration,
		}
		found = true
	}

	if !found {
		return Pass{}, fmt.Errorf("%s between %s and %s: %w", el.Name, start.Format(time.RFC3339), end.Format(time.RFC3339), ErrNoPass)
	}
	return best, nil
}
