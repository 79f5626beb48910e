package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/large-farva/groundwatch/internal/event"
)

func TestLevel(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, Level(0))
	assert.Equal(t, slog.LevelInfo, Level(1))
	assert.Equal(t, slog.LevelDebug, Level(2))
	assert.Equal(t, LevelTrace, Level(3))
	assert.Equal(t, LevelTrace, Level(7))
}

func TestParseLevel(t *testing.T) {
	v, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	v, err = ParseLevel("")
	require.NoError(t, err)
	assert.Zero(t, v)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "TRACE", LevelString(LevelTrace))
	assert.Equal(t, "DEBUG", LevelString(slog.LevelDebug))
	assert.Equal(t, "WARN", LevelString(slog.LevelWarn))
}

func TestBusHandlerFormatsRecords(t *testing.T) {
	bus := event.NewBus(4)
	log := slog.New(NewBusHandler(bus.Sender(), slog.LevelInfo, nil))

	log.With("component", "worker").Info("fetched jobs", "station", 7, "note", "two words")
	log.Debug("hidden")

	ev, err := bus.RecvTimeout(0)
	require.NoError(t, err)
	rec, ok := ev.(event.Log)
	require.True(t, ok)
	assert.Equal(t, slog.LevelInfo, rec.Level)
	assert.Equal(t, `worker: fetched jobs station=7 note="two words"`, rec.Message)
	assert.False(t, rec.Time.IsZero())

	_, err = bus.RecvTimeout(0)
	assert.ErrorIs(t, err, event.ErrTimeout)
}

func TestBusHandlerGroups(t *testing.T) {
	bus := event.NewBus(4)
	log := slog.New(NewBusHandler(bus.Sender(), slog.LevelInfo, nil))

	log.WithGroup("rotator").Warn("slow", "ms", 900)

	ev, err := bus.RecvTimeout(0)
	require.NoError(t, err)
	assert.Equal(t, "slow rotator.ms=900", ev.(event.Log).Message)
}

func TestBusHandlerDropsWhenFull(t *testing.T) {
	bus := event.NewBus(1)
	var fallback bytes.Buffer
	log := slog.New(NewBusHandler(bus.Sender(), slog.LevelInfo, NewFallback(&fallback, slog.LevelInfo)))

	log.Info("first")
	log.Info("second")

	assert.Equal(t, 1, bus.Len())
	assert.Empty(t, fallback.String())
}

func TestBusHandlerFallsBackWhenClosed(t *testing.T) {
	bus := event.NewBus(1)
	bus.Close()
	var fallback bytes.Buffer
	log := slog.New(NewBusHandler(bus.Sender(), LevelTrace, NewFallback(&fallback, LevelTrace)))

	log.Log(t.Context(), LevelTrace, "after shutdown", "component", "ui")

	assert.Contains(t, fallback.String(), "level=TRACE")
	assert.Contains(t, fallback.String(), `msg="after shutdown"`)
	assert.Contains(t, fallback.String(), "component=ui")
}
