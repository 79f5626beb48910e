// Package config handles loading, defaulting, and validation of the
// groundwatch TOML configuration file, and layering command-line overrides on
// top of it. Every section maps to a typed struct.
package config

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/pelletier/go-toml/v2"

	"github.com/large-farva/groundwatch/internal/logging"
)

// DefaultAPIURL is the public SatNOGS network API.
const DefaultAPIURL = "https://network.satnogs.org/api/"

const (
	minZoom = 1.0
	maxZoom = 10.0
)

// Config is the top-level configuration, mirroring the TOML sections.
type Config struct {
	Network   NetworkConfig   `toml:"network"   json:"network"`
	Stations  []StationConfig `toml:"stations"  json:"stations"`
	UI        UIConfig        `toml:"ui"        json:"ui"`
	Rotator   RotatorConfig   `toml:"rotator"   json:"rotator"`
	Waterfall WaterfallConfig `toml:"waterfall" json:"waterfall"`
	Logging   LoggingConfig   `toml:"logging"   json:"logging"`
	Mirror    MirrorConfig    `toml:"mirror"    json:"mirror"`
	Demo      DemoConfig      `toml:"demo"      json:"demo"`

	// Verbosity is resolved by Apply from the -v count and logging.level.
	Verbosity int `toml:"-" json:"verbosity"`
}

type NetworkConfig struct {
	APIURL                   string `toml:"api_url"                     json:"api_url"`
	APIToken                 string `toml:"api_token"                   json:"-"`
	JobUpdateIntervalSeconds int    `toml:"job_update_interval_seconds" json:"job_update_interval_seconds"`
}

// StationConfig names one monitored station. Local stations run on this
// machine and get host telemetry.
type StationConfig struct {
	ID    uint64 `toml:"id"    json:"id"`
	Local bool   `toml:"local" json:"local"`
}

type UIConfig struct {
	Orbits        int     `toml:"orbits"         json:"orbits"`
	DBMin         float64 `toml:"db_min"         json:"db_min"`
	DBMax         float64 `toml:"db_max"         json:"db_max"`
	Spectrum      bool    `toml:"spectrum"       json:"spectrum"`
	Waterfall     bool    `toml:"waterfall"      json:"waterfall"`
	WaterfallZoom float64 `toml:"waterfall_zoom" json:"waterfall_zoom"`
	ShowLogs      bool    `toml:"show_logs"      json:"show_logs"`
}

type RotatorConfig struct {
	Address         string `toml:"address"          json:"address"`
	IntervalSeconds int    `toml:"interval_seconds" json:"interval_seconds"`
}

type WaterfallConfig struct {
	DataPath string `toml:"data_path" json:"data_path"`
}

type LoggingConfig struct {
	Level string `toml:"level" json:"level"`
}

type MirrorConfig struct {
	Bind string `toml:"bind" json:"bind"`
}

type DemoConfig struct {
	Enabled       bool   `toml:"enabled"        json:"enabled"`
	ObservationID uint64 `toml:"observation_id" json:"observation_id"`
	Rows          int    `toml:"rows"           json:"rows"`
	IntervalMS    int    `toml:"interval_ms"    json:"interval_ms"`
}

// Default returns a Config populated with defaults. Values here are used
// whenever the TOML file omits a field.
func Default() Config {
	return Config{
		Network: NetworkConfig{
			APIURL:                   DefaultAPIURL,
			JobUpdateIntervalSeconds: 600,
		},
		UI: UIConfig{
			Orbits:        3,
			DBMin:         -100,
			DBMax:         0,
			WaterfallZoom: 1,
		},
		Rotator: RotatorConfig{
			IntervalSeconds: 1,
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
		Demo: DemoConfig{
			ObservationID: 1,
			Rows:          600,
			IntervalMS:    100,
		},
	}
}

// DefaultPath is $XDG_CONFIG_HOME/groundwatch/config.toml, or the platform
// equivalent.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "groundwatch", "config.toml"), nil
}

// Load reads the TOML file at path, layers it on top of the defaults, and
// validates the result. An error is returned if the file can't be read,
// parsed, or if any constraint is violated.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := toml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}

	if err := validate(cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// LoadDefault loads DefaultPath. A missing file yields the defaults.
func LoadDefault() (Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return Default(), nil
	}
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

func validate(cfg Config) error {
	if cfg.Network.APIURL == "" {
		return errors.New("network.api_url must not be empty")
	}
	if cfg.Network.JobUpdateIntervalSeconds < 1 {
		return errors.New("network.job_update_interval_seconds must be >= 1")
	}
	for _, st := range cfg.Stations {
		if st.ID == 0 {
			return errors.New("stations.id must be > 0")
		}
	}
	if cfg.UI.Orbits < 1 {
		return errors.New("ui.orbits must be >= 1")
	}
	if cfg.UI.DBMin >= cfg.UI.DBMax {
		return fmt.Errorf("invalid dB range: %g >= %g", cfg.UI.DBMin, cfg.UI.DBMax)
	}
	if cfg.UI.WaterfallZoom < minZoom || cfg.UI.WaterfallZoom > maxZoom {
		return errors.New("ui.waterfall_zoom must be between 1 and 10")
	}
	if cfg.Rotator.IntervalSeconds < 1 {
		return errors.New("rotator.interval_seconds must be >= 1")
	}
	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if cfg.Demo.Enabled {
		if cfg.Waterfall.DataPath == "" {
			return errors.New("demo requires waterfall.data_path")
		}
		if cfg.Demo.Rows < 1 {
			return errors.New("demo.rows must be >= 1")
		}
		if cfg.Demo.IntervalMS < 1 {
			return errors.New("demo.interval_ms must be >= 1")
		}
	}
	return nil
}

// Overrides carries command-line values. Nil pointers leave the file value
// untouched.
type Overrides struct {
	APIURL            *string
	Local             []uint64
	Stations          []uint64
	Orbits            *int
	Verbosity         int
	DataPath          *string
	RotatorAddress    *string
	RotatorInterval   *int
	DBMin             *float64
	DBMax             *float64
	Spectrum          bool
	Waterfall         bool
	WaterfallZoom     *float64
	JobUpdateInterval *int
	MirrorBind        *string
}

// Apply layers o on top of c and validates the result. Local ids mark an
// existing station local or add it; plain ids are added when absent. The
// station list ends up sorted and unique, and must not be empty.
func (c *Config) Apply(o Overrides) error {
	if o.APIURL != nil {
		c.Network.APIURL = *o.APIURL
	}

	for _, id := range o.Local {
		if i := c.station(id); i >= 0 {
			c.Stations[i].Local = true
		} else {
			c.Stations = append(c.Stations, StationConfig{ID: id, Local: true})
		}
	}
	for _, id := range o.Stations {
		if c.station(id) < 0 {
			c.Stations = append(c.Stations, StationConfig{ID: id})
		}
	}
	if len(c.Stations) == 0 {
		return errors.New("no station provided")
	}
	slices.SortStableFunc(c.Stations, func(a, b StationConfig) int {
		return cmp.Compare(a.ID, b.ID)
	})
	c.Stations = slices.CompactFunc(c.Stations, func(a, b StationConfig) bool {
		return a.ID == b.ID
	})

	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	c.Verbosity = max(o.Verbosity, level)

	if o.Orbits != nil {
		c.UI.Orbits = *o.Orbits
	}
	if o.RotatorAddress != nil {
		c.Rotator.Address = *o.RotatorAddress
	}
	if o.RotatorInterval != nil {
		c.Rotator.IntervalSeconds = *o.RotatorInterval
	}
	if o.DataPath != nil {
		c.Waterfall.DataPath = *o.DataPath
	}
	if o.DBMin != nil {
		c.UI.DBMin = *o.DBMin
	}
	if o.DBMax != nil {
		c.UI.DBMax = *o.DBMax
	}
	c.UI.Spectrum = c.UI.Spectrum || o.Spectrum
	c.UI.Waterfall = c.UI.Waterfall || o.Waterfall
	if o.WaterfallZoom != nil {
		c.UI.WaterfallZoom = min(max(*o.WaterfallZoom, minZoom), maxZoom)
	}
	if o.JobUpdateInterval != nil {
		c.Network.JobUpdateIntervalSeconds = *o.JobUpdateInterval
	}
	if o.MirrorBind != nil {
		c.Mirror.Bind = *o.MirrorBind
	}

	return validate(*c)
}

// LocalStations lists the ids of stations running on this machine.
func (c Config) LocalStations() []uint64 {
	var ids []uint64
	for _, st := range c.Stations {
		if st.Local {
			ids = append(ids, st.ID)
		}
	}
	return ids
}

func (c Config) station(id uint64) int {
	return slices.IndexFunc(c.Stations, func(st StationConfig) bool { return st.ID == id })
}
