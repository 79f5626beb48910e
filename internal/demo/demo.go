// Package demo writes synthetic waterfall captures into the data directory
// the way a SatNOGS client does during an observation, so the dashboard's
// spectrum and waterfall can be exercised without a receiver.
package demo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/large-farva/groundwatch/internal/config"
	"github.com/large-farva/groundwatch/internal/waterfall"
)

const (
	fftSize    = 256
	sampleRate = 48000
	noiseFloor = -90.0
	peakDB     = 55.0

	// pause separates consecutive captures.
	pause = 5 * time.Second
)

// Downlink is a transmitter the simulated observations cycle through.
type Downlink struct {
	Name string
	Freq float32 // Hz
}

// Downlinks is the demo catalog.
var Downlinks = []Downlink{
	{Name: "ISS", Freq: 145.800e6},
	{Name: "NOAA-19", Freq: 137.100e6},
	{Name: "FUNCUBE-1", Freq: 145.935e6},
	{Name: "LILACSAT-2", Freq: 437.200e6},
}

// Writer produces one capture after another until its context ends.
type Writer struct {
	Dir           string
	ObservationID uint64
	Rows          int
	Interval      time.Duration

	log  *slog.Logger
	rng  *rand.Rand
	now  func() time.Time
	next int // index into Downlinks
}

// New creates a writer from the demo section of the config.
func New(cfg config.DemoConfig, dir string, log *slog.Logger) *Writer {
	return &Writer{
		Dir:           dir,
		ObservationID: cfg.ObservationID,
		Rows:          cfg.Rows,
		Interval:      time.Duration(cfg.IntervalMS) * time.Millisecond,
		log:           log.With("component", "demo"),
		rng:           rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		now:           time.Now,
	}
}

// Run writes captures with increasing observation ids until ctx ends.
func (w *Writer) Run(ctx context.Context) error {
	w.log.Info("demo mode active, writing synthetic captures", "dir", w.Dir)
	obs := w.ObservationID
	for {
		if err := w.capture(ctx, obs); err != nil {
			return err
		}
		obs++
		if !sleepOrCancel(ctx, pause) {
			return nil
		}
	}
}

// capture writes one file: the header, then a row per interval, then the
// rename that ends the observation. Cancelling ctx ends it early but still
// renames the file.
func (w *Writer) capture(ctx context.Context, obs uint64) error {
	dl := Downlinks[w.next%len(Downlinks)]
	w.next++

	start := w.now().UTC()
	stamp := start.Format("2006-01-02T15-04-05")
	path := filepath.Join(w.Dir, fmt.Sprintf("receiving_waterfall_%d_%s.dat", obs, stamp))
	done := filepath.Join(w.Dir, fmt.Sprintf("waterfall_%d_%s.dat", obs, stamp))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("demo: %w", err)
	}
	w.log.Info("starting simulated observation", "observation", obs, "downlink", dl.Name, "freq_hz", dl.Freq)

	err = waterfall.EncodeHeader(f, waterfall.Header{
		Timestamp:  start,
		FFTSize:    fftSize,
		SampleRate: sampleRate,
		NFFTPerRow: 1,
		CenterFreq: dl.Freq,
	})
	if err == nil {
		err = w.writeRows(ctx, f, start)
	}
	err = errors.Join(err, f.Close())
	if err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("demo: observation %d: %w", obs, err)
	}

	if err := os.Rename(path, done); err != nil {
		return fmt.Errorf("demo: %w", err)
	}
	w.log.Info("finished simulated observation", "observation", obs, "path", done)
	return nil
}

func (w *Writer) writeRows(ctx context.Context, f *os.File, start time.Time) error {
	t := time.NewTicker(w.Interval)
	defer t.Stop()

	var buf bytes.Buffer
	for i := range w.Rows {
		buf.Reset()
		rec := waterfall.Record{
			Timestamp: w.now().Sub(start).Microseconds(),
			Power:     w.spectrum(i),
		}
		if err := waterfall.WriteRecord(&buf, rec); err != nil {
			return err
		}
		// One write per row, so a row is never split across notifications
		// more than the filesystem splits it.
		if _, err := f.Write(buf.Bytes()); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
	return nil
}

// spectrum synthesizes row i: a noisy floor with one carrier sweeping across
// the band the way Doppler shift moves a pass's signal.
func (w *Writer) spectrum(i int) []float32 {
	progress := float64(i) / float64(max(w.Rows-1, 1))
	center := fftSize/2 + 0.35*fftSize*math.Cos(math.Pi*progress)
	// The signal is strongest mid-pass.
	strength := peakDB * math.Sin(math.Pi*progress)

	power := make([]float32, fftSize)
	for b := range power {
		d := (float64(b) - center) / 2.5
		p := noiseFloor + w.rng.NormFloat64()*2 + strength*math.Exp(-d*d/2)
		power[b] = float32(p)
	}
	return power
}

func sleepOrCancel(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
