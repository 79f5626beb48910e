// Package worker serializes requests to the SatNOGS network API. Commands
// are queued on a bounded channel and served one at a time; every result is
// posted back onto the event bus.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/large-farva/groundwatch/internal/event"
	"github.com/large-farva/groundwatch/internal/metrics"
	"github.com/large-farva/groundwatch/internal/satnogs"
)

// QueueSize bounds the command channel. Submit blocks once it is full.
const QueueSize = 100

// ErrStopped is returned by Submit after Close.
var ErrStopped = errors.New("worker: stopped")

// Command is a request to the network worker.
type Command interface {
	command()
	name() string
}

// GetJobs fetches the upcoming jobs of a station with their observations.
type GetJobs struct {
	StationID uint64
}

// GetStationInfo fetches a station's network record.
type GetStationInfo struct {
	StationID uint64
}

func (GetJobs) command()        {}
func (GetStationInfo) command() {}

func (GetJobs) name() string        { return "get_jobs" }
func (GetStationInfo) name() string { return "get_station_info" }

// API is the subset of the network client the worker uses.
type API interface {
	JobsWithObservations(ctx context.Context, stationID uint64, since time.Time) ([]satnogs.JobObservation, error)
	StationInfo(ctx context.Context, id uint64) (satnogs.Station, error)
}

// Worker owns the command queue.
type Worker struct {
	api    API
	sender event.Sender
	log    *slog.Logger
	now    func() time.Time

	commands  chan Command
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a worker posting results through sender.
func New(api API, sender event.Sender, log *slog.Logger) *Worker {
	return &Worker{
		api:      api,
		sender:   sender,
		log:      log.With("component", "worker"),
		now:      time.Now,
		commands: make(chan Command, QueueSize),
		done:     make(chan struct{}),
	}
}

// Submit queues cmd, blocking while the queue is full.
func (w *Worker) Submit(cmd Command) error {
	select {
	case <-w.done:
		return ErrStopped
	default:
	}
	select {
	case w.commands <- cmd:
		return nil
	case <-w.done:
		return ErrStopped
	}
}

// Close stops accepting commands. Run returns once it has noticed.
func (w *Worker) Close() {
	w.closeOnce.Do(func() { close(w.done) })
}

// Run serves commands until Close, ctx ends, or a result can no longer be
// delivered. Commands still queued at that point are dropped.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.done:
			w.log.Warn("command channel closed")
			return nil
		case cmd := <-w.commands:
			if err := w.sender.Send(event.CommandResponse{Data: w.serve(ctx, cmd)}); err != nil {
				return nil
			}
		}
	}
}

func (w *Worker) serve(ctx context.Context, cmd Command) event.Data {
	var (
		data event.Data
		err  error
		id   uint64
	)
	switch c := cmd.(type) {
	case GetJobs:
		id = c.StationID
		var pairs []satnogs.JobObservation
		pairs, err = w.api.JobsWithObservations(ctx, id, w.now())
		if err == nil {
			w.log.Debug("fetched jobs", "station", id, "count", len(pairs))
			data = event.Jobs{StationID: id, Pairs: pairs}
		}
	case GetStationInfo:
		id = c.StationID
		var info satnogs.Station
		info, err = w.api.StationInfo(ctx, id)
		if err == nil {
			data = event.StationInfo{StationID: id, Info: info}
		}
	}
	metrics.APIRequests.WithLabelValues(cmd.name(), metrics.Outcome(err)).Inc()

	if err != nil {
		w.log.Error("network request failed", "command", cmd.name(), "station", id, "err", err)
		return event.Failure{StationID: id, Command: cmd.name(), Err: err}
	}
	return data
}
