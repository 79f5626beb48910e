package ctl

import (
	"fmt"
	"strings"
	"time"
)

// Status fetches the dashboard snapshot and prints a formatted summary.
func Status(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	s, err := fetchStatus(baseURL)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(s)
	}

	out := stdout
	fmt.Fprintln(out)
	fmt.Fprintln(out, header("  GROUNDWATCH STATUS"))
	fmt.Fprintln(out, rule(38))
	fmt.Fprintf(out, "  %-12s %s %s\n", colorize(dim, "Dashboard:"), s.Name, colorize(dim, s.Version))
	fmt.Fprintf(out, "  %-12s %s\n", colorize(dim, "Uptime:"), formatDuration(time.Duration(s.UptimeSeconds)*time.Second))
	fmt.Fprintf(out, "  %-12s %d\n", colorize(dim, "Stations:"), len(s.Stations))
	for _, st := range s.Stations {
		if st.ID == s.ActiveStation {
			fmt.Fprintf(out, "  %-12s %d %s\n", colorize(dim, "Active:"), st.ID, colorize(statusColor(st.Status), st.Name))
		}
	}

	if v := s.Vessel; v != nil {
		p := v.Position
		fmt.Fprintf(out, "  %-12s %s  %.2f, %.2f  az %.1f° el %.1f°\n",
			colorize(dim, "Tracking:"), colorize(bold, v.Name), p.Lat, p.Lon, p.Azimuth, p.Elevation)
	}
	if r := s.Rotator; r != nil {
		line := fmt.Sprintf("az %.1f° el %.1f°", r.Azimuth, r.Elevation)
		if r.AzimuthErr != nil && r.ElevationErr != nil {
			line += colorize(dim, fmt.Sprintf("  (error %+.1f° / %+.1f°)", *r.AzimuthErr, *r.ElevationErr))
		}
		fmt.Fprintf(out, "  %-12s %s\n", colorize(dim, "Rotator:"), line)
	}
	if w := s.Waterfall; w != nil {
		fmt.Fprintf(out, "  %-12s #%d  %d bins, %d rows\n", colorize(dim, "Waterfall:"), w.ObservationID, w.Bins, w.Rows)
	}
	if d := s.Disk; d != nil {
		fmt.Fprintf(out, "  %-12s %s free of %s (%.0f%% used)\n",
			colorize(dim, "Disk:"), formatBytes(d.AvailableBytes), formatBytes(d.TotalBytes), d.UsedPercent)
	}
	fmt.Fprintf(out, "  %-12s %d\n", colorize(dim, "Watchers:"), s.Clients)
	fmt.Fprintf(out, "  %-12s %s\n", colorize(dim, "Host:"), baseURL)
	fmt.Fprintln(out)

	return nil
}
