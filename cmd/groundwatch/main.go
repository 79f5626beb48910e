// Groundwatch is a terminal dashboard for SatNOGS ground stations.
//
// It shows each monitored station's queued observation jobs, the live
// geometry of the satellite being tracked, rotator alignment and, when the
// station's data directory is reachable, the spectrum and waterfall of the
// running capture. Exit with q or Ctrl-C.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/large-farva/groundwatch/internal/app"
	"github.com/large-farva/groundwatch/internal/config"
	"github.com/large-farva/groundwatch/internal/event"
	"github.com/large-farva/groundwatch/internal/logging"
	"github.com/large-farva/groundwatch/internal/satnogs"
	"github.com/large-farva/groundwatch/internal/ui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "groundwatch:", err)
		os.Exit(1)
	}
}

func run() error {
	fs := pflag.CommandLine
	var (
		configPath  = fs.StringP("config", "c", "", "Path to config TOML (default $XDG_CONFIG_HOME/groundwatch/config.toml)")
		apiURL      = fs.String("api", config.DefaultAPIURL, "SatNOGS network API base URL")
		local       = fs.UintSliceP("local", "l", nil, "Local station id, gets host telemetry (repeatable)")
		stations    = fs.UintSliceP("station", "s", nil, "Remote station id (repeatable)")
		orbits      = fs.IntP("orbits", "o", 3, "Orbits of ground track to draw")
		verbosity   = fs.CountP("verbose", "v", "Increase log verbosity (-v info, -vv debug, -vvv trace)")
		dataPath    = fs.String("data-path", "", "Directory the station writes waterfall captures to")
		rotAddr     = fs.String("rotctld-address", "", "rotctld host:port to read the rotator position from")
		rotInterval = fs.Int("rotctld-interval", 1, "Seconds between rotator queries")
		dbMin       = fs.Float64("db-min", -100, "Lower bound of the waterfall color scale, dB")
		dbMax       = fs.Float64("db-max", 0, "Upper bound of the waterfall color scale, dB")
		spectrum    = fs.Bool("spectrum", false, "Show the spectrum plot")
		waterfall   = fs.Bool("waterfall", false, "Show the waterfall plot")
		zoom        = fs.Float64("waterfall-zoom", 1, "Waterfall zoom factor, 1 to 10")
		jobInterval = fs.Int("job-update-interval", 600, "Seconds between job list refreshes")
		mirror      = fs.String("mirror", "", "Serve the event mirror on this address (e.g. 127.0.0.1:8090)")
		version     = fs.Bool("version", false, "Print the version and exit")
	)
	pflag.Parse()

	if *version {
		fmt.Printf("groundwatch %s (%s, built %s)\n", app.Version, app.GoVersion, app.BuiltAt)
		return nil
	}

	var (
		cfg config.Config
		err error
	)
	if fs.Changed("config") {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	o := config.Overrides{
		Local:     toIDs(*local),
		Stations:  toIDs(*stations),
		Verbosity: *verbosity,
		Spectrum:  *spectrum,
		Waterfall: *waterfall,
	}
	if fs.Changed("api") {
		o.APIURL = apiURL
	}
	if fs.Changed("orbits") {
		o.Orbits = orbits
	}
	if fs.Changed("data-path") {
		o.DataPath = dataPath
	}
	if fs.Changed("rotctld-address") {
		o.RotatorAddress = rotAddr
	}
	if fs.Changed("rotctld-interval") {
		o.RotatorInterval = rotInterval
	}
	if fs.Changed("db-min") {
		o.DBMin = dbMin
	}
	if fs.Changed("db-max") {
		o.DBMax = dbMax
	}
	if fs.Changed("waterfall-zoom") {
		o.WaterfallZoom = zoom
	}
	if fs.Changed("job-update-interval") {
		o.JobUpdateInterval = jobInterval
	}
	if fs.Changed("mirror") {
		o.MirrorBind = mirror
	}
	if err := cfg.Apply(o); err != nil {
		return err
	}

	level := logging.Level(cfg.Verbosity)
	fallback := logging.NewFallback(os.Stderr, level)
	slog.SetDefault(slog.New(fallback))

	opts := []satnogs.Option{satnogs.WithLogger(slog.Default())}
	if cfg.Network.APIToken != "" {
		opts = append(opts, satnogs.WithToken(cfg.Network.APIToken))
	}
	api, err := satnogs.New(cfg.Network.APIURL, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state := app.LoadStations(ctx, api, cfg, slog.Default())

	term, err := ui.OpenTerminal()
	if err != nil {
		return err
	}

	// From here until the terminal is restored, records go to the log pane.
	bus := event.NewBus(event.Capacity)
	slog.SetDefault(slog.New(logging.NewBusHandler(bus.Sender(), level, fallback)))

	a := app.New(app.Options{
		Config: cfg,
		State:  state,
		API:    api,
		Screen: term,
		Input:  term.Input(),
		Logger: slog.Default(),
	}, bus)
	runErr := a.Run(ctx)

	closeErr := term.Close()
	slog.SetDefault(slog.New(fallback))
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return closeErr
}

func toIDs(v []uint) []uint64 {
	ids := make([]uint64, len(v))
	for i, id := range v {
		ids[i] = uint64(id)
	}
	return ids
}
