package predict

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/akhenakh/sgp4"
)

// ErrInvalidTLE is wrapped by every element set parse failure.
var ErrInvalidTLE = errors.New("invalid TLE")

// Elements is a parsed two-line element set plus the fields needed to
// count revolutions.
type Elements struct {
	Name    string
	Line1   string
	Line2   string
	NoradID int

	Epoch       time.Time
	MeanMotion  float64 // revolutions per day
	NDot2       float64 // first derivative of mean motion / 2, rev/day²
	MeanAnomaly float64 // degrees
	RevNumber   uint64  // revolution count at epoch

	tle *sgp4.TLE
}

// ParseElements validates a name and two TLE lines. Lines are trimmed;
// a leading "0 " on the name line is dropped.
func ParseElements(name, line1, line2 string) (Elements, error) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "0 ")
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)

	// The SGP4 initialiser aborts the process on malformed lines, so
	// shape-check before handing them over.
	if len(line1) != 69 || line1[0] != '1' {
		return Elements{}, fmt.Errorf("%w: line 1 of %q", ErrInvalidTLE, name)
	}
	if len(line2) != 69 || line2[0] != '2' {
		return Elements{}, fmt.Errorf("%w: line 2 of %q", ErrInvalidTLE, name)
	}

	tle, err := sgp4.ParseTLE(name + "\n" + line1 + "\n" + line2)
	if err != nil {
		return Elements{}, fmt.Errorf("%w: %s: %v", ErrInvalidTLE, name, err)
	}

	el := Elements{
		Name:    name,
		Line1:   line1,
		Line2:   line2,
		NoradID: tle.SatelliteNumber,
		tle:     tle,
	}

	fields := []struct {
		dst  *float64
		line string
		from int
		to   int
	}{
		{&el.NDot2, line1, 33, 43},
		{&el.MeanAnomaly, line2, 43, 51},
		{&el.MeanMotion, line2, 52, 63},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f.line[f.from:f.to]), 64)
		if err != nil {
			return Elements{}, fmt.Errorf("%w: %s: column %d: %v", ErrInvalidTLE, name, f.from+1, err)
		}
		*f.dst = v
	}
	if el.MeanMotion <= 0 {
		return Elements{}, fmt.Errorf("%w: %s: mean motion %v", ErrInvalidTLE, name, el.MeanMotion)
	}

	rev, err := strconv.ParseUint(strings.TrimSpace(line2[63:68]), 10, 64)
	if err != nil {
		return Elements{}, fmt.Errorf("%w: %s: revolution number: %v", ErrInvalidTLE, name, err)
	}
	el.RevNumber = rev

	epoch, err := parseEpoch(line1[18:32])
	if err != nil {
		return Elements{}, fmt.Errorf("%w: %s: %v", ErrInvalidTLE, name, err)
	}
	el.Epoch = epoch

	return el, nil
}

// parseEpoch decodes the YYDDD.DDDDDDDD epoch field.
func parseEpoch(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("epoch %q too short", s)
	}
	yy, err := strconv.Atoi(s[:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("epoch year: %w", err)
	}
	day, err := strconv.ParseFloat(s[2:], 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("epoch day: %w", err)
	}

	year := 2000 + yy
	if yy >= 57 {
		year = 1900 + yy
	}
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start.Add(time.Duration((day - 1) * float64(24*time.Hour))), nil
}

// OrbitNumber returns the revolution the satellite is on at t, counted from
// the epoch revolution number with the mean motion and its drift.
func (el Elements) OrbitNumber(t time.Time) uint64 {
	age := t.Sub(el.Epoch).Hours() / 24
	revs := el.MeanMotion*age + el.NDot2*age*age + el.MeanAnomaly/360
	n := float64(el.RevNumber) + math.Floor(revs)
	if n < 0 {
		return 0
	}
	return uint64(n)
}

// Period is the orbital period implied by the mean motion.
func (el Elements) Period() time.Duration {
	return time.Duration(float64(24*time.Hour) / el.MeanMotion)
}
