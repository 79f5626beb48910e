package waterfall

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/large-farva/groundwatch/internal/event"
	"github.com/large-farva/groundwatch/internal/logging"
	"github.com/large-farva/groundwatch/internal/metrics"
)

const (
	defaultHeaderTimeout = 5 * time.Second
	defaultPollInterval  = 10 * time.Millisecond
)

var captureRE = regexp.MustCompile(`.*/.*receiving_waterfall_(\d+)_.*\.dat.*`)

// ObservationID extracts the observation id from a capture file path. ok is
// false for paths that are not live captures.
func ObservationID(path string) (id uint64, ok bool) {
	m := captureRE.FindStringSubmatch(path)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// session is the capture currently being streamed.
type session struct {
	observation uint64
	path        string
	file        *os.File
	header      Header
	offset      int64
}

// Watcher follows the capture files in one directory. At most one capture
// is streamed at a time.
type Watcher struct {
	dir    string
	fs     *fsnotify.Watcher
	sender event.Sender
	log    *slog.Logger

	headerTimeout time.Duration
	pollInterval  time.Duration

	sess *session
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.log = l }
}

// WithHeaderTimeout bounds the wait for a new capture's header.
func WithHeaderTimeout(d time.Duration) Option {
	return func(w *Watcher) { w.headerTimeout = d }
}

// NewWatcher starts a non-recursive watch of dir. Events are delivered once
// Run is called.
func NewWatcher(dir string, sender event.Sender, opts ...Option) (*Watcher, error) {
	w := &Watcher{
		dir:           dir,
		sender:        sender,
		log:           slog.Default(),
		headerTimeout: defaultHeaderTimeout,
		pollInterval:  defaultPollInterval,
	}
	for _, o := range opts {
		o(w)
	}
	w.log = w.log.With("component", "waterfall")

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("waterfall: create watcher: %w", err)
	}
	if err := fs.Add(dir); err != nil {
		fs.Close()
		return nil, fmt.Errorf("waterfall: watch %s: %w", dir, err)
	}
	w.fs = fs
	return w, nil
}

// Run delivers capture events until ctx ends, the bus closes, the
// notification stream fails, or a capture cannot be read mid-stream.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()
	defer w.drop()

	w.log.Info("watching for waterfall captures", "dir", w.dir)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if err := w.handle(ctx, ev); err != nil {
				return err
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Error("notification error, stopping watcher", "err", err)
			return fmt.Errorf("waterfall: watch %s: %w", w.dir, err)
		}
	}
}

// handle applies one notification. Only bus and mid-stream read failures
// are returned; everything else is logged.
func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) error {
	obs, ok := ObservationID(ev.Name)
	if !ok {
		return nil
	}
	w.log.Log(ctx, logging.LevelTrace, "notification", "op", ev.Op.String(), "path", ev.Name)

	switch {
	case ev.Has(fsnotify.Create):
		return w.created(ctx, obs, ev.Name)
	case ev.Has(fsnotify.Write):
		if w.sess == nil || w.sess.path != ev.Name {
			return nil
		}
		return w.drain()
	case ev.Has(fsnotify.Rename), ev.Has(fsnotify.Remove):
		if w.sess == nil || w.sess.path != ev.Name {
			return nil
		}
		return w.closed()
	}
	return nil
}

func (w *Watcher) created(ctx context.Context, obs uint64, path string) error {
	if w.sess != nil {
		w.log.Warn("new capture replaces running one", "observation", obs, "previous", w.sess.observation)
		if err := w.closed(); err != nil {
			return err
		}
	}

	sess, err := w.open(ctx, obs, path)
	if err != nil {
		metrics.WaterfallSessions.WithLabelValues("abandoned").Inc()
		w.log.Error("failed to open waterfall file", "path", path, "err", err)
		return nil
	}
	w.sess = sess
	metrics.WaterfallSessions.WithLabelValues("opened").Inc()
	w.log.Info("opened waterfall file", "observation", obs, "fft_size", sess.header.FFTSize)

	err = w.sender.Send(event.WaterfallCreated{
		ObservationID:   obs,
		CenterFrequency: sess.header.CenterFreq,
		Frequencies:     sess.header.Frequencies(),
	})
	if err != nil {
		return err
	}
	// Rows written while we waited for the header produce no further
	// notification.
	return w.drain()
}

// open waits for the header to reach the disk and parses it.
func (w *Watcher) open(ctx context.Context, obs uint64, path string) (*session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if err := w.waitForHeader(ctx, f); err != nil {
		f.Close()
		return nil, err
	}
	h, err := DecodeHeader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &session{observation: obs, path: path, file: f, header: h, offset: HeaderSize}, nil
}

func (w *Watcher) waitForHeader(ctx context.Context, f *os.File) error {
	deadline := time.Now().Add(w.headerTimeout)
	for {
		fi, err := f.Stat()
		if err != nil {
			return err
		}
		if fi.Size() >= HeaderSize {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrMissingHeader
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.pollInterval):
		}
	}
}

// drain emits every complete row past the cursor. A partial row stays
// unread until the next notification.
func (w *Watcher) drain() error {
	s := w.sess
	size := s.header.RecordSize()
	buf := make([]byte, size)
	for {
		fi, err := s.file.Stat()
		if err != nil {
			return w.fail(err)
		}
		if fi.Size()-s.offset < size {
			return nil
		}
		if _, err := io.ReadFull(s.file, buf); err != nil {
			return w.fail(err)
		}
		s.offset += size

		rec, err := ReadRecord(bytes.NewReader(buf), s.header.FFTSize)
		if err != nil {
			return w.fail(err)
		}
		metrics.WaterfallRows.Inc()
		if err := w.sender.Send(event.WaterfallData{Timestamp: rec.Timestamp, Power: rec.Power}); err != nil {
			return err
		}
	}
}

func (w *Watcher) fail(err error) error {
	w.log.Error("failed to read waterfall data, stopping watcher", "path", w.sess.path, "err", err)
	w.drop()
	return fmt.Errorf("waterfall: read capture: %w", err)
}

// closed finishes the running capture. Rows still on disk are emitted
// first; the handle stays valid after the file is renamed.
func (w *Watcher) closed() error {
	if err := w.drain(); err != nil {
		return err
	}
	obs := w.sess.observation
	w.drop()
	metrics.WaterfallSessions.WithLabelValues("closed").Inc()
	w.log.Info("closed waterfall file", "observation", obs)
	return w.sender.Send(event.WaterfallClosed{ObservationID: obs})
}

func (w *Watcher) drop() {
	if w.sess == nil {
		return
	}
	if err := w.sess.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		w.log.Debug("close waterfall file", "err", err)
	}
	w.sess = nil
}
