package ctl

import (
	"fmt"
	"strings"
	"time"

	"github.com/large-farva/groundwatch/internal/telemetry"
)

// Stations lists the monitored stations, with host telemetry for the local
// ones.
func Stations(baseURL string, jsonOutput bool) error {
	s, err := fetchStatus(baseURL)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(s.Stations)
	}

	out := stdout
	fmt.Fprintln(out)
	fmt.Fprintln(out, header("  STATIONS"))
	fmt.Fprintln(out, rule(60))
	if len(s.Stations) == 0 {
		fmt.Fprintln(out, "  No stations.")
	}
	for _, st := range s.Stations {
		marker := " "
		if st.ID == s.ActiveStation {
			marker = "*"
		}
		name := st.Name
		if name == "" {
			name = "(unknown)"
		}
		fmt.Fprintf(out, " %s%-6d %s %s  %s\n",
			marker, st.ID,
			padRight(name, 24),
			colorize(statusColor(st.Status), padRight(st.Status, 8)),
			colorize(dim, fmt.Sprintf("%d jobs", len(st.Jobs))),
		)
		fmt.Fprintf(out, "         %s\n", colorize(dim, fmt.Sprintf("%.4f, %.4f, %.0fm", st.Lat, st.Lng, st.Altitude)))
		if st.Stale {
			fmt.Fprintf(out, "         %s\n", colorize(red, "network unreachable"))
		}
		if st.SysInfo != nil {
			writeSysInfo(st)
		}
	}
	fmt.Fprintln(out)
	return nil
}

func writeSysInfo(st telemetry.StationSummary) {
	info := st.SysInfo
	var parts []string
	if load, ok := info.LoadAverage(); ok {
		parts = append(parts, fmt.Sprintf("cpu %.1f%%", load))
	}
	if info.CPUTemp != nil {
		parts = append(parts, fmt.Sprintf("%.0f°C", *info.CPUTemp))
	}
	if used, ok := info.MemUsedPercent(); ok {
		parts = append(parts, fmt.Sprintf("mem %.0f%% of %s", used, formatBytes(info.Mem.Total)))
	}
	if info.Uptime != nil {
		parts = append(parts, "up "+formatDuration(info.Uptime.Truncate(time.Second)))
	}
	if len(parts) > 0 {
		fmt.Fprintf(stdout, "         %s\n", colorize(cyan, strings.Join(parts, "  ")))
	}
}
