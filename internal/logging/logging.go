// Package logging routes slog records onto the event bus so the dashboard can
// show them in its log pane.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/large-farva/groundwatch/internal/event"
	"github.com/large-farva/groundwatch/internal/metrics"
)

// LevelTrace is below debug and enabled by -vvv.
const LevelTrace = slog.LevelDebug - 4

// Level maps a verbosity count to a level: 0 warn, 1 info, 2 debug, 3 and
// up trace.
func Level(verbosity int) slog.Level {
	switch {
	case verbosity <= 0:
		return slog.LevelWarn
	case verbosity == 1:
		return slog.LevelInfo
	case verbosity == 2:
		return slog.LevelDebug
	default:
		return LevelTrace
	}
}

// ParseLevel maps a config level name to a verbosity count.
func ParseLevel(name string) (int, error) {
	switch strings.ToLower(name) {
	case "", "warn", "warning":
		return 0, nil
	case "info":
		return 1, nil
	case "debug":
		return 2, nil
	case "trace":
		return 3, nil
	}
	return 0, fmt.Errorf("unknown log level %q", name)
}

// LevelString names l, using TRACE for LevelTrace and below.
func LevelString(l slog.Level) string {
	if l <= LevelTrace {
		return "TRACE"
	}
	return l.String()
}

// BusHandler formats each record into an event.Log and queues it without
// blocking. The dashboard loop logs too, so a blocking send could stall it
// on its own bus. Records are dropped while the bus is full and written to
// the fallback handler once it is closed.
type BusHandler struct {
	sender   event.Sender
	level    slog.Leveler
	fallback slog.Handler

	component string
	prefix    string // preformatted attributes from WithAttrs
	group     string
}

// NewBusHandler returns a handler sending to sender. Records at or above
// level are handled.
func NewBusHandler(sender event.Sender, level slog.Leveler, fallback slog.Handler) *BusHandler {
	return &BusHandler{sender: sender, level: level, fallback: fallback}
}

// NewFallback is the stderr text handler used before the dashboard starts
// and after it exits.
func NewFallback(w io.Writer, level slog.Leveler) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if l, ok := a.Value.Any().(slog.Level); ok {
					return slog.String(slog.LevelKey, LevelString(l))
				}
			}
			return a
		},
	})
}

func (h *BusHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *BusHandler) Handle(ctx context.Context, r slog.Record) error {
	var b strings.Builder
	component := h.component
	b.WriteString(h.prefix)
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "component" && h.group == "" {
			component = a.Value.String()
			return true
		}
		writeAttr(&b, h.group, a)
		return true
	})

	msg := r.Message
	if component != "" {
		msg = component + ": " + msg
	}
	if b.Len() > 0 {
		msg += b.String()
	}

	err := h.sender.TrySend(event.Log{Time: r.Time, Level: r.Level, Message: msg})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, event.ErrFull):
		metrics.LogsDropped.Inc()
		return nil
	}
	if h.fallback == nil {
		return nil
	}
	return h.fallback.Handle(ctx, r)
}

func (h *BusHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	var b strings.Builder
	b.WriteString(h.prefix)
	for _, a := range attrs {
		if a.Key == "component" && h.group == "" {
			h2.component = a.Value.String()
			continue
		}
		writeAttr(&b, h.group, a)
	}
	h2.prefix = b.String()
	if h.fallback != nil {
		h2.fallback = h.fallback.WithAttrs(attrs)
	}
	return &h2
}

func (h *BusHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	if h.group != "" {
		h2.group = h.group + "." + name
	} else {
		h2.group = name
	}
	if h.fallback != nil {
		h2.fallback = h.fallback.WithGroup(name)
	}
	return &h2
}

func writeAttr(b *strings.Builder, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if group != "" {
		key = group + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			writeAttr(b, key, ga)
		}
		return
	}
	b.WriteByte(' ')
	b.WriteString(key)
	b.WriteByte('=')
	s := a.Value.String()
	if strings.ContainsAny(s, " =\"") {
		s = fmt.Sprintf("%q", s)
	}
	b.WriteString(s)
}
