package rotator

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/large-farva/groundwatch/internal/event"
)

// fakeRotctld answers each "p" query with the next reply, then hangs up.
func fakeRotctld(t *testing.T, replies ...string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		sc := bufio.NewScanner(conn)
		for _, reply := range replies {
			if !sc.Scan() || sc.Text() != "p" {
				return
			}
			if _, err := conn.Write([]byte(reply)); err != nil {
				return
			}
		}
	}()
	return ln.Addr().String()
}

func dial(t *testing.T, addr string) *Client {
	t.Helper()
	c, err := Dial(context.Background(), addr)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestPosition(t *testing.T) {
	c := dial(t, fakeRotctld(t, "180.500000\n45.250000\n", "RPRT -1\n", "north\n"))

	az, el, err := c.Position()
	require.NoError(t, err)
	assert.Equal(t, 180.5, az)
	assert.Equal(t, 45.25, el)

	_, _, err = c.Position()
	assert.ErrorIs(t, err, ErrProtocol)
	assert.ErrorContains(t, err, "RPRT -1")

	_, _, err = c.Position()
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestPositionIncompleteReply(t *testing.T) {
	c := dial(t, fakeRotctld(t, "12.0\n"))

	start := time.Now()
	_, _, err := c.Position()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrProtocol)
	assert.Less(t, time.Since(start), 3*ReadTimeout)
}

func TestPollStopsAfterRepeatedFailures(t *testing.T) {
	c := dial(t, fakeRotctld(t, "10\n20\n", "11\n21\n"))
	bus := event.NewBus(event.Capacity)

	err := Poll(context.Background(), c, 5*time.Millisecond, bus.Sender(), slog.New(slog.DiscardHandler))
	require.Error(t, err)

	var got []event.Event
	for {
		ev, err := bus.RecvTimeout(0)
		if err != nil {
			break
		}
		got = append(got, ev)
	}
	assert.Equal(t, []event.Event{
		event.RotatorPosition{Azimuth: 10, Elevation: 20},
		event.RotatorPosition{Azimuth: 11, Elevation: 21},
	}, got)
}

func TestPollStopsWhenBusCloses(t *testing.T) {
	c := dial(t, fakeRotctld(t, "10\n20\n", "11\n21\n"))
	bus := event.NewBus(1)
	bus.Close()

	err := Poll(context.Background(), c, time.Millisecond, bus.Sender(), slog.New(slog.DiscardHandler))
	assert.NoError(t, err)
}
