// Package rotator reads the antenna position from a Hamlib rotctld daemon.
// It never commands the rotator.
package rotator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/large-farva/groundwatch/internal/event"
	"github.com/large-farva/groundwatch/internal/metrics"
)

const (
	// ReadTimeout bounds each position query.
	ReadTimeout = time.Second

	dialTimeout = 5 * time.Second

	// maxFailures is the number of consecutive failed queries after which
	// Poll gives up.
	maxFailures = 3
)

// ErrProtocol is returned when rotctld answers with an RPRT error code.
var ErrProtocol = errors.New("rotator: protocol error")

// Client is a connection to rotctld. It is not safe for concurrent use.
type Client struct {
	addr string
	conn net.Conn
	r    *bufio.Reader
}

// Dial connects to rotctld at addr (host:port).
func Dial(ctx context.Context, addr string) (*Client, error) {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("rotctld connect: %w", err)
	}
	return &Client{addr: addr, conn: conn, r: bufio.NewReader(conn)}, nil
}

// Addr is the daemon address.
func (c *Client) Addr() string { return c.addr }

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Position queries the current azimuth and elevation in degrees.
func (c *Client) Position() (az, el float64, err error) {
	if err := c.conn.SetDeadline(time.Now().Add(ReadTimeout)); err != nil {
		return 0, 0, fmt.Errorf("rotctld set deadline: %w", err)
	}
	if _, err := fmt.Fprint(c.conn, "p\n"); err != nil {
		return 0, 0, fmt.Errorf("rotctld query: %w", err)
	}

	line, err := c.readLine()
	if err != nil {
		return 0, 0, err
	}
	if code, ok := strings.CutPrefix(line, "RPRT"); ok {
		return 0, 0, fmt.Errorf("%w: RPRT %s", ErrProtocol, strings.TrimSpace(code))
	}
	az, err = strconv.ParseFloat(line, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: azimuth %q", ErrProtocol, line)
	}

	line, err = c.readLine()
	if err != nil {
		return 0, 0, err
	}
	el, err = strconv.ParseFloat(line, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: elevation %q", ErrProtocol, line)
	}
	return az, el, nil
}

func (c *Client) readLine() (string, error) {
	line, err := c.r.ReadString('\n')
	if err != nil {
		// A late reply would be read as the answer to the next query.
		c.r.Reset(c.conn)
		return "", fmt.Errorf("rotctld read: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Poll queries c every interval and sends each reading as a
// RotatorPosition. It returns nil once ctx ends or the bus closes, and the
// last error after maxFailures consecutive failed queries. There is no
// reconnect.
func Poll(ctx context.Context, c *Client, interval time.Duration, sender event.Sender, log *slog.Logger) error {
	log = log.With("component", "rotator")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	failures := 0
	for {
		az, el, err := c.Position()
		metrics.RotatorQueries.WithLabelValues(metrics.Outcome(err)).Inc()
		if err != nil {
			failures++
			log.Warn("position query failed", "addr", c.addr, "attempt", failures, "err", err)
			if failures >= maxFailures {
				log.Error("lost connection", "addr", c.addr, "err", err)
				return err
			}
		} else {
			failures = 0
			if err := sender.Send(event.RotatorPosition{Azimuth: az, Elevation: el}); err != nil {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-sender.Done():
			return nil
		case <-ticker.C:
		}
	}
}
