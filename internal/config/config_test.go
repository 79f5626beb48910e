package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func ptr[T any](v T) *T { return &v }

func TestLoadLayersOnDefaults(t *testing.T) {
	path := writeConfig(t, `
[network]
api_token = "secret"

[[stations]]
id = 42
local = true

[[stations]]
id = 7

[ui]
db_min = -80.0
waterfall = true

[rotator]
address = "localhost:4533"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIURL, cfg.Network.APIURL)
	assert.Equal(t, "secret", cfg.Network.APIToken)
	assert.Equal(t, 600, cfg.Network.JobUpdateIntervalSeconds)
	assert.Equal(t, []StationConfig{{ID: 42, Local: true}, {ID: 7}}, cfg.Stations)
	assert.Equal(t, -80.0, cfg.UI.DBMin)
	assert.Equal(t, 0.0, cfg.UI.DBMax)
	assert.True(t, cfg.UI.Waterfall)
	assert.Equal(t, 3, cfg.UI.Orbits)
	assert.Equal(t, "localhost:4533", cfg.Rotator.Address)
	assert.Equal(t, 1, cfg.Rotator.IntervalSeconds)
	assert.Equal(t, []uint64{42}, cfg.LocalStations())
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"db range", "[ui]\ndb_min = 0.0\ndb_max = -10.0\n", "invalid dB range"},
		{"orbits", "[ui]\norbits = 0\n", "ui.orbits"},
		{"zoom", "[ui]\nwaterfall_zoom = 20.0\n", "ui.waterfall_zoom"},
		{"level", "[logging]\nlevel = \"loud\"\n", "logging.level"},
		{"demo path", "[demo]\nenabled = true\n", "waterfall.data_path"},
		{"station id", "[[stations]]\nid = 0\n", "stations.id"},
		{"syntax", "[ui\n", "config.toml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.ErrorContains(t, err, tt.msg)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadDefault(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)

	cfg, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	path, err := DefaultPath()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("[ui]\norbits = 5\n"), 0o644))

	cfg, err = LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.UI.Orbits)
}

func TestApplyMergesStations(t *testing.T) {
	cfg := Default()
	cfg.Stations = []StationConfig{{ID: 30}, {ID: 10}}

	require.NoError(t, cfg.Apply(Overrides{
		Local:    []uint64{10, 20},
		Stations: []uint64{30, 40, 40},
	}))

	assert.Equal(t, []StationConfig{
		{ID: 10, Local: true},
		{ID: 20, Local: true},
		{ID: 30},
		{ID: 40},
	}, cfg.Stations)
}

func TestApplyRequiresStation(t *testing.T) {
	cfg := Default()
	assert.ErrorContains(t, cfg.Apply(Overrides{}), "no station provided")
}

func TestApplyOverrides(t *testing.T) {
	cfg := Default()
	cfg.UI.Spectrum = true
	cfg.Logging.Level = "debug"

	require.NoError(t, cfg.Apply(Overrides{
		Stations:          []uint64{1},
		APIURL:            ptr("http://localhost:8000/api/"),
		Orbits:            ptr(1),
		Verbosity:         1,
		DataPath:          ptr("/tmp/.satnogs/data"),
		RotatorAddress:    ptr("127.0.0.1:4533"),
		RotatorInterval:   ptr(2),
		DBMin:             ptr(-90.0),
		DBMax:             ptr(-10.0),
		WaterfallZoom:     ptr(25.0),
		JobUpdateInterval: ptr(60),
		MirrorBind:        ptr("127.0.0.1:7373"),
	}))

	assert.Equal(t, "http://localhost:8000/api/", cfg.Network.APIURL)
	assert.Equal(t, 1, cfg.UI.Orbits)
	assert.Equal(t, 2, cfg.Verbosity)
	assert.Equal(t, "/tmp/.satnogs/data", cfg.Waterfall.DataPath)
	assert.Equal(t, "127.0.0.1:4533", cfg.Rotator.Address)
	assert.Equal(t, 2, cfg.Rotator.IntervalSeconds)
	assert.Equal(t, -90.0, cfg.UI.DBMin)
	assert.Equal(t, -10.0, cfg.UI.DBMax)
	assert.True(t, cfg.UI.Spectrum)
	assert.False(t, cfg.UI.Waterfall)
	assert.Equal(t, 10.0, cfg.UI.WaterfallZoom)
	assert.Equal(t, 60, cfg.Network.JobUpdateIntervalSeconds)
	assert.Equal(t, "127.0.0.1:7373", cfg.Mirror.Bind)

	cfg.Verbosity = 0
	require.NoError(t, cfg.Apply(Overrides{Verbosity: 3, WaterfallZoom: ptr(0.2)}))
	assert.Equal(t, 3, cfg.Verbosity)
	assert.Equal(t, 1.0, cfg.UI.WaterfallZoom)
}

func TestApplyRejectsInvertedDBRange(t *testing.T) {
	cfg := Default()
	err := cfg.Apply(Overrides{Stations: []uint64{1}, DBMin: ptr(5.0)})
	assert.ErrorContains(t, err, "invalid dB range")
}
