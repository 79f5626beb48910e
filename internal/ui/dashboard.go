package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/large-farva/groundwatch/internal/config"
	"github.com/large-farva/groundwatch/internal/event"
	"github.com/large-farva/groundwatch/internal/logging"
	"github.com/large-farva/groundwatch/internal/metrics"
	"github.com/large-farva/groundwatch/internal/station"
	"github.com/large-farva/groundwatch/internal/telemetry"
	"github.com/large-farva/groundwatch/internal/waterfall"
	"github.com/large-farva/groundwatch/internal/worker"
)

const (
	// drainWindow bounds how long further events are batched into one
	// frame after the first.
	drainWindow = 16 * time.Millisecond

	logCapacity = 100

	positionEvery = 5
	sweepEvery    = 60

	zoomStep = 1.0
)

// Submitter queues network commands.
type Submitter interface {
	Submit(cmd worker.Command) error
}

// Publisher receives every applied event and the snapshot taken after each
// render. The mirror server implements it.
type Publisher interface {
	Publish(ev event.Event)
	SetStatus(st telemetry.Status)
}

// Options holds everything a Dashboard needs from the caller.
type Options struct {
	Config    config.Config
	State     *station.State
	Bus       *event.Bus
	Screen    Screen
	Worker    Submitter
	Publisher Publisher // optional
	Logger    *slog.Logger
	Version   string

	// Now replaces time.Now.
	Now func() time.Time
}

// Dashboard is the only consumer of the bus and the only owner of the
// station state.
type Dashboard struct {
	ui      config.UIConfig
	network config.NetworkConfig
	local   map[uint64]bool
	version string

	state  *station.State
	bus    *event.Bus
	screen Screen
	worker Submitter
	pub    Publisher
	log    *slog.Logger
	now    func() time.Time

	ticks         uint64
	lastJobUpdate time.Time
	logs          []event.Log

	waterfall  *waterfall.Buffer
	centerFreq float32

	width, height int
	sizeDirty     bool
	quit          bool
}

// New builds a dashboard over opts.State.
func New(opts Options) *Dashboard {
	d := &Dashboard{
		ui:        opts.Config.UI,
		network:   opts.Config.Network,
		local:     make(map[uint64]bool),
		version:   opts.Version,
		state:     opts.State,
		bus:       opts.Bus,
		screen:    opts.Screen,
		worker:    opts.Worker,
		pub:       opts.Publisher,
		log:       opts.Logger,
		now:       opts.Now,
		waterfall: waterfall.NewBuffer(waterfall.DefaultRows),
		sizeDirty: true,
	}
	if d.log == nil {
		d.log = slog.Default()
	}
	d.log = d.log.With("component", "ui")
	if d.now == nil {
		d.now = time.Now
	}
	for _, id := range opts.Config.LocalStations() {
		d.local[id] = true
	}
	return d
}

// Run requests jobs for every station, renders, and then processes events
// until shutdown. Each wakeup applies the event that arrived plus whatever
// follows within drainWindow, then renders once. The bus is closed on
// return so every producer notices.
func (d *Dashboard) Run(ctx context.Context) error {
	defer d.bus.Close()

	d.requestStationInfo()
	d.requestJobs()
	if err := d.render(); err != nil {
		return err
	}

	for !d.quit {
		ev, ok := d.bus.Recv()
		if !ok {
			return nil
		}
		d.apply(ev)

		deadline := time.Now().Add(drainWindow)
		for !d.quit {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				break
			}
			ev, err := d.bus.RecvTimeout(remaining)
			if errors.Is(err, event.ErrClosed) {
				d.quit = true
				break
			}
			if err != nil {
				break
			}
			d.apply(ev)
		}

		if err := d.render(); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
	d.log.Info("dashboard shutting down")
	return nil
}

func (d *Dashboard) apply(ev event.Event) {
	metrics.EventsTotal.WithLabelValues(event.Name(ev)).Inc()
	if d.pub != nil {
		d.pub.Publish(ev)
	}

	switch e := ev.(type) {
	case event.Input:
		d.handleKey(e.Key)
	case event.Resize:
		d.sizeDirty = true
	case event.Tick:
		d.handleTick()
	case event.Log:
		d.appendLog(e)
	case event.Shutdown:
		d.quit = true
	case event.CommandResponse:
		d.handleResponse(e.Data)
	case event.SystemInfo:
		d.log.Log(context.Background(), logging.LevelTrace, "system info", "stations", e.StationIDs)
		d.state.SetSysInfo(e.StationIDs, e.Info)
	case event.RotatorPosition:
		d.state.SetRotator(e.Azimuth, e.Elevation, d.now())
	case event.WaterfallCreated:
		d.waterfall.Reset(e.ObservationID, e.Frequencies)
		d.centerFreq = e.CenterFrequency
	case event.WaterfallData:
		if d.waterfall.Active() {
			d.waterfall.Push(waterfall.Record{Timestamp: e.Timestamp, Power: e.Power})
		}
	case event.WaterfallClosed:
		if d.waterfall.ObservationID == e.ObservationID {
			d.waterfall.Clear()
		}
	default:
		d.log.Warn("unexpected event", "type", fmt.Sprintf("%T", ev))
	}
}

func (d *Dashboard) handleResponse(data event.Data) {
	switch r := data.(type) {
	case event.Jobs:
		added, errs := d.state.MergeJobs(r.StationID, r.Pairs, d.now())
		for _, err := range errs {
			d.log.Warn("skipping job", "station", r.StationID, "err", err)
		}
		if st := d.state.Station(r.StationID); st != nil {
			metrics.QueuedJobs.WithLabelValues(strconv.FormatUint(r.StationID, 10)).Set(float64(len(st.Jobs)))
		}
		d.log.Info("jobs updated", "station", r.StationID, "added", added)
		if r.StationID == d.state.Active {
			d.updateVesselPosition()
		}
	case event.StationInfo:
		if err := d.state.UpdateStationInfo(r.StationID, r.Info); err != nil {
			d.log.Warn("ignoring station info", "err", err)
			return
		}
		d.log.Info("station info updated", "station", r.StationID)
	case event.Failure:
		d.log.Warn("no connection to SatNOGS network", "station", r.StationID, "command", r.Command, "err", r.Err)
		d.state.MarkStale(r.StationID)
	default:
		d.log.Warn("unexpected command response", "type", fmt.Sprintf("%T", data))
	}
}

func (d *Dashboard) handleTick() {
	now := d.now()
	interval := time.Duration(d.network.JobUpdateIntervalSeconds) * time.Second
	if now.Sub(d.lastJobUpdate) >= interval {
		d.requestJobs()
	}

	d.ticks++
	if d.ticks%positionEvery == 0 {
		d.updateVesselPosition()
	}
	if d.ticks%sweepEvery == 0 {
		if n := d.state.RemoveFinishedJobs(now); n > 0 {
			d.log.Debug("removed finished jobs", "count", n)
			for _, st := range d.state.Stations() {
				metrics.QueuedJobs.WithLabelValues(strconv.FormatUint(st.ID(), 10)).Set(float64(len(st.Jobs)))
			}
			d.updateVesselPosition()
		}
	}
}

func (d *Dashboard) handleKey(k event.Key) {
	switch {
	case k.Code == event.KeyCtrlC, k.Code == event.KeyRune && k.Rune == 'q':
		d.quit = true
	case k.Code == event.KeyTab:
		d.state.NextStation()
		d.updateVesselPosition()
	case k.Code == event.KeyBackTab:
		d.state.PrevStation()
		d.updateVesselPosition()
	case k.Code != event.KeyRune:
		d.log.Debug("key event", "key", k.String())
	default:
		switch k.Rune {
		case 'l':
			d.ui.ShowLogs = !d.ui.ShowLogs
		case 's':
			d.ui.Spectrum = !d.ui.Spectrum
		case 'w':
			d.ui.Waterfall = !d.ui.Waterfall
		case '+':
			d.ui.WaterfallZoom = min(d.ui.WaterfallZoom+zoomStep, 10)
		case '-':
			d.ui.WaterfallZoom = max(d.ui.WaterfallZoom-zoomStep, 1)
		default:
			d.log.Debug("key event", "key", k.String())
		}
	}
}

func (d *Dashboard) requestJobs() {
	d.log.Log(context.Background(), logging.LevelTrace, "requesting jobs update")
	for _, id := range d.state.IDs() {
		if err := d.worker.Submit(worker.GetJobs{StationID: id}); err != nil {
			d.log.Warn("failed to request jobs", "station", id, "err", err)
		}
	}
	d.lastJobUpdate = d.now()
}

// requestStationInfo asks for the record of every station that was added
// without one.
func (d *Dashboard) requestStationInfo() {
	for _, st := range d.state.Stations() {
		if st.Name() != "" {
			continue
		}
		if err := d.worker.Submit(worker.GetStationInfo{StationID: st.ID()}); err != nil {
			d.log.Warn("failed to request station info", "station", st.ID(), "err", err)
		}
	}
}

func (d *Dashboard) updateVesselPosition() {
	if err := d.state.UpdateVesselPosition(d.ui.Orbits); err != nil {
		d.log.Warn("failed to update vessel position", "err", err)
	}
}

func (d *Dashboard) appendLog(l event.Log) {
	if len(d.logs) == logCapacity {
		copy(d.logs, d.logs[1:])
		d.logs = d.logs[:logCapacity-1]
	}
	d.logs = append(d.logs, l)
}

// render draws one frame and publishes the matching snapshot.
func (d *Dashboard) render() error {
	repaint := false
	if d.sizeDirty {
		w, h, err := d.screen.Size()
		if err != nil {
			return fmt.Errorf("ui: terminal size: %w", err)
		}
		d.width, d.height = w, h
		d.sizeDirty = false
		repaint = true
	}

	c := newCanvas(d.width, d.height)
	d.draw(c, d.now())

	if repaint {
		if _, err := d.screen.Write([]byte(clearScreen)); err != nil {
			return fmt.Errorf("ui: draw: %w", err)
		}
	}
	if _, err := c.WriteTo(d.screen); err != nil {
		return fmt.Errorf("ui: draw: %w", err)
	}

	if d.pub != nil {
		d.pub.SetStatus(d.Status())
	}
	return nil
}

// Status snapshots the dashboard for the mirror.
func (d *Dashboard) Status() telemetry.Status {
	s := telemetry.Status{
		Name:          "groundwatch",
		Version:       d.version,
		GeneratedAt:   d.now().UTC(),
		ActiveStation: d.state.Active,
	}

	for _, st := range d.state.Stations() {
		sum := telemetry.SummarizeStation(st.Info)
		sum.ID = st.ID()
		sum.Local = d.local[st.ID()]
		sum.Stale = st.Stale
		sum.SysInfo = st.SysInfo
		if !st.LastFetch.IsZero() {
			lf := st.LastFetch
			sum.LastFetch = &lf
		}
		for _, j := range st.Jobs {
			js := telemetry.SummarizeJob(j.Job)
			js.Vessel = j.VesselName()
			js.NoradID = j.Observation.NoradCatID
			if j.Pass != nil {
				me := j.Pass.MaxElev
				js.MaxElev = &me
			}
			sum.Jobs = append(sum.Jobs, js)
		}
		s.Stations = append(s.Stations, sum)
	}

	if v := d.state.LeadVessel(); v != nil {
		s.Vessel = &telemetry.VesselStatus{ID: v.ID, Name: v.Name(), Position: v.Position}
	}

	if r := d.state.Rotator; r != nil {
		rs := &telemetry.RotatorStatus{Azimuth: r.Azimuth, Elevation: r.Elevation, At: r.At}
		if dAz, dEl, ok := d.state.PointingError(); ok {
			rs.AzimuthErr, rs.ElevationErr = &dAz, &dEl
		}
		s.Rotator = rs
	}

	if d.waterfall.Active() {
		s.Waterfall = &telemetry.WaterfallStatus{
			ObservationID: d.waterfall.ObservationID,
			Bins:          len(d.waterfall.Frequencies),
			Rows:          d.waterfall.Len(),
		}
	}
	return s
}
