// Package app wires the dashboard to its producers and, when configured, the
// mirror server. It owns the process lifecycle: every producer runs under one
// errgroup and the whole group winds down once the dashboard returns.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/large-farva/groundwatch/internal/config"
	"github.com/large-farva/groundwatch/internal/demo"
	"github.com/large-farva/groundwatch/internal/event"
	"github.com/large-farva/groundwatch/internal/rotator"
	"github.com/large-farva/groundwatch/internal/station"
	"github.com/large-farva/groundwatch/internal/sysinfo"
	"github.com/large-farva/groundwatch/internal/telemetry"
	"github.com/large-farva/groundwatch/internal/ui"
	"github.com/large-farva/groundwatch/internal/waterfall"
	"github.com/large-farva/groundwatch/internal/worker"
	"github.com/large-farva/groundwatch/internal/ws"
)

const (
	tickInterval      = time.Second
	sysInfoInterval   = 4 * time.Second
	heartbeatInterval = 10 * time.Second
	shutdownTimeout   = 3 * time.Second
)

// Options holds everything the App needs from the caller.
type Options struct {
	Config config.Config
	State  *station.State
	API    worker.API
	Screen ui.Screen
	Input  io.Reader // nil disables keyboard input
	Logger *slog.Logger
}

// App is the running process. When the mirror is enabled it also implements
// ui.Publisher, fanning applied events out to WebSocket clients.
type App struct {
	cfg    config.Config
	state  *station.State
	api    worker.API
	screen ui.Screen
	input  io.Reader
	root   *slog.Logger // untagged, handed to components that tag themselves
	log    *slog.Logger
	bus    *event.Bus

	startedAt time.Time
	hub       *ws.Hub
	status    atomic.Pointer[telemetry.Status]

	logMu  sync.Mutex
	logBuf []telemetry.LogLine
}

// New creates an App around bus. The bus is also where the caller's log
// handler sends records, so it is created by the caller.
func New(opts Options, bus *event.Bus) *App {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	a := &App{
		cfg:       opts.Config,
		state:     opts.State,
		api:       opts.API,
		screen:    opts.Screen,
		input:     opts.Input,
		root:      log,
		log:       log.With("component", "app"),
		bus:       bus,
		startedAt: time.Now(),
	}
	if a.cfg.Mirror.Bind != "" {
		a.hub = ws.NewHub(log)
	}
	return a
}

// Run starts every producer and the dashboard, and blocks until the
// dashboard exits or a fatal error stops the group. Producer failures are
// logged and end only that producer.
func (a *App) Run(ctx context.Context) error {
	// SIGWINCH must be registered before any other goroutine starts.
	resize := ui.NewResizeListener()

	var ln net.Listener
	if a.hub != nil {
		var err error
		ln, err = net.Listen("tcp", a.cfg.Mirror.Bind)
		if err != nil {
			return fmt.Errorf("mirror: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	sender := a.bus.Sender()
	w := worker.New(a.api, sender, a.root)

	if a.input != nil {
		// Not joined: the read cannot be interrupted and the process exits
		// right after Run returns.
		go func() {
			if err := ui.ReadInput(a.input, sender); err != nil {
				a.log.Warn("input reader stopped", "err", err)
			}
		}()
	}

	g.Go(a.producer("resize", func() error { return resize.Run(gctx, sender) }))
	g.Go(a.producer("ticks", func() error { return ui.Ticks(gctx, sender, tickInterval) }))
	g.Go(a.producer("worker", func() error { return w.Run(gctx) }))

	if ids := a.cfg.LocalStations(); len(ids) > 0 {
		g.Go(a.producer("sysinfo", func() error { return a.sampleSysInfo(gctx, ids, sender) }))
	}
	if a.cfg.Rotator.Address != "" {
		g.Go(a.producer("rotator", func() error { return a.pollRotator(gctx, sender) }))
	}
	if a.cfg.Waterfall.DataPath != "" {
		watcher, err := waterfall.NewWatcher(a.cfg.Waterfall.DataPath, sender, waterfall.WithLogger(a.root))
		if err != nil {
			a.log.Error("waterfall disabled", "err", err)
		} else {
			g.Go(a.producer("waterfall", func() error { return watcher.Run(gctx) }))
		}
		if a.cfg.Demo.Enabled {
			dw := demo.New(a.cfg.Demo, a.cfg.Waterfall.DataPath, a.root)
			g.Go(a.producer("demo", func() error { return dw.Run(gctx) }))
		}
	}

	var pub ui.Publisher
	if a.hub != nil {
		pub = a
		a.serveMirror(gctx, g, ln)
	}

	// The bus has no context; Shutdown is how the dashboard hears about
	// cancellation.
	g.Go(func() error {
		<-gctx.Done()
		_ = sender.Send(event.Shutdown{})
		return nil
	})

	d := ui.New(ui.Options{
		Config:    a.cfg,
		State:     a.state,
		Bus:       a.bus,
		Screen:    a.screen,
		Worker:    w,
		Publisher: pub,
		Logger:    a.root,
		Version:   Version,
	})
	g.Go(func() error {
		defer cancel()
		defer w.Close()
		return d.Run(gctx)
	})

	return g.Wait()
}

// producer wraps fn so its failure is logged instead of stopping the group.
func (a *App) producer(name string, fn func() error) func() error {
	return func() error {
		if err := fn(); err != nil {
			a.log.Error("producer stopped", "producer", name, "err", err)
		}
		return nil
	}
}

// sampleSysInfo posts a host snapshot for the local stations every
// sysInfoInterval. Sampling itself takes about a second.
func (a *App) sampleSysInfo(ctx context.Context, ids []uint64, sender event.Sender) error {
	t := time.NewTicker(sysInfoInterval)
	defer t.Stop()

	for {
		snap := sysinfo.Sample(ctx)
		if err := sender.Send(event.SystemInfo{StationIDs: ids, Info: snap}); err != nil {
			a.log.Info("system info sampler exiting", "err", err)
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

func (a *App) pollRotator(ctx context.Context, sender event.Sender) error {
	c, err := rotator.Dial(ctx, a.cfg.Rotator.Address)
	if err != nil {
		return err
	}
	defer c.Close()
	a.log.Info("connected to rotctld", "addr", c.Addr())

	interval := time.Duration(a.cfg.Rotator.IntervalSeconds) * time.Second
	return rotator.Poll(ctx, c, interval, sender, a.root)
}

func (a *App) serveMirror(ctx context.Context, g *errgroup.Group, ln net.Listener) {
	srv := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		a.hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		a.heartbeatLoop(ctx)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	g.Go(func() error {
		a.log.Info("mirror listening", "addr", "http://"+ln.Addr().String())
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("mirror: %w", err)
		}
		return nil
	})
}

// heartbeatLoop sends a periodic heartbeat so clients can detect
// connectivity and track uptime without polling.
func (a *App) heartbeatLoop(ctx context.Context) {
	t := time.NewTicker(heartbeatInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.hub.BroadcastJSON(a.heartbeat())
		}
	}
}

func (a *App) heartbeat() telemetry.Heartbeat {
	return telemetry.Heartbeat{
		Event:         telemetry.Event{Type: telemetry.EventHeartbeat, TS: telemetry.NowTS()},
		UptimeSeconds: a.uptime(),
		Clients:       a.hub.Clients(),
	}
}

func (a *App) uptime() int64 {
	return int64(time.Since(a.startedAt).Seconds())
}
