package demo

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/large-farva/groundwatch/internal/config"
	"github.com/large-farva/groundwatch/internal/event"
	"github.com/large-farva/groundwatch/internal/waterfall"
)

func newTestWriter(dir string, rows int) *Writer {
	return New(config.DemoConfig{ObservationID: 31, Rows: rows, IntervalMS: 1}, dir, slog.New(slog.DiscardHandler))
}

func TestCaptureWritesDecodableFile(t *testing.T) {
	dir := t.TempDir()
	w := newTestWriter(dir, 4)
	w.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	require.NoError(t, w.capture(context.Background(), 31))

	matches, err := filepath.Glob(filepath.Join(dir, "*.dat"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "waterfall_31_2024-05-01T12-00-00.dat", filepath.Base(matches[0]))

	f, err := os.Open(matches[0])
	require.NoError(t, err)
	defer f.Close()

	h, err := waterfall.DecodeHeader(f)
	require.NoError(t, err)
	assert.Equal(t, uint32(fftSize), h.FFTSize)
	assert.Equal(t, Downlinks[0].Freq, h.CenterFreq)

	for range 4 {
		rec, err := waterfall.ReadRecord(f, h.FFTSize)
		require.NoError(t, err)
		assert.Len(t, rec.Power, fftSize)
	}
	_, err = waterfall.ReadRecord(f, h.FFTSize)
	assert.Error(t, err)
}

func TestSpectrumCarrierAboveFloor(t *testing.T) {
	w := newTestWriter(t.TempDir(), 11)
	power := w.spectrum(5)

	peak := float32(-1000)
	for _, p := range power {
		peak = max(peak, p)
	}
	assert.Greater(t, peak, float32(noiseFloor+peakDB/2))
}

func TestWatcherFollowsDemoCapture(t *testing.T) {
	dir := t.TempDir()
	bus := event.NewBus(event.Capacity)
	wt, err := waterfall.NewWatcher(dir, bus.Sender(), waterfall.WithLogger(slog.New(slog.DiscardHandler)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = wt.Run(ctx) }()

	w := newTestWriter(dir, 3)
	w.Interval = 20 * time.Millisecond
	require.NoError(t, w.capture(ctx, 31))

	var got []event.Event
	for {
		ev, err := bus.RecvTimeout(5 * time.Second)
		require.NoError(t, err)
		got = append(got, ev)
		if _, ok := ev.(event.WaterfallClosed); ok {
			break
		}
	}

	require.Len(t, got, 5)
	created := got[0].(event.WaterfallCreated)
	assert.Equal(t, uint64(31), created.ObservationID)
	assert.Len(t, created.Frequencies, fftSize)
	assert.Equal(t, event.WaterfallClosed{ObservationID: 31}, got[4])
}
