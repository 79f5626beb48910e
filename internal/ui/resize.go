package ui

import (
	"context"
	"os"
	"os/signal"

	"github.com/large-farva/groundwatch/internal/event"
)

// ResizeListener turns window-change signals into Resize events.
type ResizeListener struct {
	ch chan os.Signal
}

// NewResizeListener registers for the signal. Call it before starting any
// other goroutine so no resize is missed.
func NewResizeListener() *ResizeListener {
	l := &ResizeListener{ch: make(chan os.Signal, 1)}
	notifyResize(l.ch)
	return l
}

// Run forwards signals until ctx ends or the bus closes.
func (l *ResizeListener) Run(ctx context.Context, sender event.Sender) error {
	defer signal.Stop(l.ch)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-l.ch:
			if err := sender.Send(event.Resize{}); err != nil {
				return nil
			}
		}
	}
}
