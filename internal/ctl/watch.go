package ctl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/large-farva/groundwatch/internal/telemetry"
)

// WatchOptions controls the watch command behavior.
type WatchOptions struct {
	Filter []string // event types to show (empty = all)
	JSON   bool     // output raw JSON per event
}

// wsURL turns the mirror base URL into its WebSocket endpoint.
func wsURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	u.Path = "/ws"
	u.RawQuery = ""
	return u.String(), nil
}

// Watch streams mirrored events to the terminal until ctx ends or the
// dashboard goes away.
func Watch(ctx context.Context, baseURL string, opts WatchOptions) error {
	endpoint, err := wsURL(baseURL)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if !opts.JSON {
		fmt.Fprintln(stdout)
		fmt.Fprintf(stdout, "  %s %s\n", colorize(green, "connected"), colorize(dim, endpoint))
		if len(opts.Filter) > 0 {
			fmt.Fprintf(stdout, "  %s %s\n", colorize(dim, "filter:"), colorize(dim, strings.Join(opts.Filter, ", ")))
		}
		fmt.Fprintln(stdout, rule(50))
		fmt.Fprintln(stdout)
	}

	filterSet := make(map[string]bool, len(opts.Filter))
	for _, f := range opts.Filter {
		filterSet[f] = true
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}

			if len(filterSet) > 0 {
				var ev telemetry.Event
				if err := json.Unmarshal(msg, &ev); err == nil && !filterSet[string(ev.Type)] {
					continue
				}
			}

			if opts.JSON {
				fmt.Fprintln(stdout, string(msg))
			} else {
				renderEvent(msg)
			}
		}
	}()

	select {
	case <-ctx.Done():
		if !opts.JSON {
			fmt.Fprintln(stdout)
			fmt.Fprintln(stdout, colorize(dim, "  disconnecting..."))
		}
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(time.Second),
		)
		return nil
	case <-done:
		return nil
	}
}

// renderEvent prints one mirrored event in a human-friendly format. Unknown
// types are dumped as indented JSON.
func renderEvent(raw []byte) {
	var base telemetry.Event
	if err := json.Unmarshal(raw, &base); err != nil {
		fmt.Fprintf(stdout, "  %s\n", string(raw))
		return
	}
	ts := colorize(dim, clock(base.TS))
	out := stdout

	switch base.Type {
	case telemetry.EventHeartbeat:
		var ev telemetry.Heartbeat
		if json.Unmarshal(raw, &ev) == nil {
			fmt.Fprintf(out, "  %s %s  up %s  %s\n", ts, colorize(dim, "heartbeat"),
				colorize(dim, formatDuration(time.Duration(ev.UptimeSeconds)*time.Second)),
				colorize(dim, fmt.Sprintf("%d watching", ev.Clients)))
			return
		}

	case telemetry.EventLog:
		var ev telemetry.LogLine
		if json.Unmarshal(raw, &ev) == nil {
			fmt.Fprintf(out, "  %s %s  %s\n", ts, formatLogLevel(ev.Level), ev.Message)
			return
		}

	case telemetry.EventJobs:
		var ev telemetry.JobsUpdate
		if json.Unmarshal(raw, &ev) == nil {
			fmt.Fprintf(out, "  %s %s  station %d: %d jobs\n", ts, colorize(bold, "JOBS "), ev.StationID, len(ev.Jobs))
			for _, j := range ev.Jobs {
				fmt.Fprintf(out, "             %-9d %s %s\n", j.ID, padRight(j.Vessel, 18), colorize(dim, j.Start.Local().Format("15:04")))
			}
			return
		}

	case telemetry.EventStationInfo:
		var ev telemetry.StationUpdate
		if json.Unmarshal(raw, &ev) == nil {
			st := ev.Station
			fmt.Fprintf(out, "  %s %s  %d %s %s\n", ts, colorize(bold, "INFO "), st.ID, st.Name,
				colorize(statusColor(st.Status), st.Status))
			return
		}

	case telemetry.EventFailure:
		var ev telemetry.Failure
		if json.Unmarshal(raw, &ev) == nil {
			fmt.Fprintf(out, "  %s %s  %s for station %d: %s\n", ts, colorize(red, "FAIL "), ev.Command, ev.StationID, ev.Error)
			return
		}

	case telemetry.EventSystemInfo:
		var ev telemetry.SystemInfo
		if json.Unmarshal(raw, &ev) == nil {
			load, _ := ev.Info.LoadAverage()
			mem, _ := ev.Info.MemUsedPercent()
			fmt.Fprintf(out, "  %s %s  cpu %.1f%%  mem %.0f%%\n", ts, colorize(cyan, "HOST "), load, mem)
			return
		}

	case telemetry.EventRotator:
		var ev telemetry.RotatorPosition
		if json.Unmarshal(raw, &ev) == nil {
			fmt.Fprintf(out, "  %s %s  az %.1f° el %.1f°\n", ts, colorize(cyan, "ROT  "), ev.Azimuth, ev.Elevation)
			return
		}

	case telemetry.EventWaterfallCreated, telemetry.EventWaterfallClosed:
		var ev telemetry.WaterfallSession
		if json.Unmarshal(raw, &ev) == nil {
			if base.Type == telemetry.EventWaterfallClosed {
				fmt.Fprintf(out, "  %s %s  observation %d closed\n", ts, colorize(yellow, "WF   "), ev.ObservationID)
			} else {
				fmt.Fprintf(out, "  %s %s  observation %d at %.3f MHz, %d bins\n", ts, colorize(yellow, "WF   "),
					ev.ObservationID, float64(ev.CenterFrequency)/1e6, ev.Bins)
			}
			return
		}
	}

	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		fmt.Fprintf(out, "  %s\n", string(raw))
		return
	}
	pretty, _ := json.MarshalIndent(generic, "  ", "  ")
	fmt.Fprintf(out, "  %s\n", string(pretty))
}
