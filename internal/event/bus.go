package event

import (
	"errors"
	"sync"
	"time"
)

// Capacity is the default bus size. Producers block once it is full.
const Capacity = 100

var (
	// ErrClosed is returned by Send once the consumer has closed the bus.
	ErrClosed = errors.New("event: bus closed")

	// ErrTimeout is returned by RecvTimeout when no event arrived in time.
	ErrTimeout = errors.New("event: receive timeout")

	// ErrFull is returned by TrySend when the bus has no free slot.
	ErrFull = errors.New("event: bus full")
)

// Bus is a bounded multiple-producer, single-consumer queue of events.
// Producers hold a Sender; the dashboard loop is the only receiver. The
// channel itself is never closed: closing the done channel is what makes
// every pending and future Send fail.
type Bus struct {
	ch        chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// NewBus allocates a bus holding up to capacity queued events.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = Capacity
	}
	return &Bus{
		ch:   make(chan Event, capacity),
		done: make(chan struct{}),
	}
}

// Sender returns a handle producers use to publish events.
func (b *Bus) Sender() Sender {
	return Sender{bus: b}
}

// Recv blocks until an event is available. The boolean is false once the
// bus has been closed.
func (b *Bus) Recv() (Event, bool) {
	select {
	case ev := <-b.ch:
		return ev, true
	case <-b.done:
		return nil, false
	}
}

// RecvTimeout waits at most d for the next event.
func (b *Bus) RecvTimeout(d time.Duration) (Event, error) {
	if d <= 0 {
		select {
		case ev := <-b.ch:
			return ev, nil
		default:
			return nil, ErrTimeout
		}
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case ev := <-b.ch:
		return ev, nil
	case <-b.done:
		return nil, ErrClosed
	case <-t.C:
		return nil, ErrTimeout
	}
}

// Len reports the number of queued events.
func (b *Bus) Len() int {
	return len(b.ch)
}

// Close marks the receiving side as gone. Blocked and future sends return
// ErrClosed. Close is idempotent.
func (b *Bus) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}

// Done is closed when the bus is closed.
func (b *Bus) Done() <-chan struct{} {
	return b.done
}

// Sender is the producing half of a Bus. The zero value is not usable.
type Sender struct {
	bus *Bus
}

// Send queues ev, blocking while the bus is full.
func (s Sender) Send(ev Event) error {
	select {
	case <-s.bus.done:
		return ErrClosed
	default:
	}

	select {
	case s.bus.ch <- ev:
		return nil
	case <-s.bus.done:
		return ErrClosed
	}
}

// TrySend queues ev only if there is room right now.
func (s Sender) TrySend(ev Event) error {
	select {
	case <-s.bus.done:
		return ErrClosed
	default:
	}

	select {
	case s.bus.ch <- ev:
		return nil
	default:
		return ErrFull
	}
}

// Done is closed once the consumer has gone away.
func (s Sender) Done() <-chan struct{} {
	return s.bus.done
}
