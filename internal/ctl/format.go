// Package ctl implements the client-side commands for gwctl. It talks to a
// running groundwatch mirror over HTTP and WebSocket and renders the results
// to the terminal.
package ctl

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// ANSI escape codes for terminal formatting.
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
	white  = "\033[37m"
)

// colorEnabled reports whether output goes to a terminal. When it is piped
// or redirected, ANSI escape codes are suppressed.
func colorEnabled() bool {
	f, ok := stdout.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// statusColor returns the color the dashboard uses for a station status.
func statusColor(status string) string {
	switch status {
	case "Online":
		return green
	case "Testing":
		return yellow
	case "Offline":
		return red
	default:
		return white
	}
}

// colorize wraps text with an ANSI color sequence.
// Returns the text unchanged when color output is disabled.
func colorize(color, text string) string {
	if !colorEnabled() {
		return text
	}
	return color + text + reset
}

// header returns a bold section header, or plain text when color is off.
func header(title string) string {
	return colorize(bold, title)
}

func rule(width int) string {
	return colorize(dim, "  "+strings.Repeat("─", width))
}

// padRight pads s with spaces to reach the given width.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// formatDuration renders d as a compact string like "2h 14m 8s" or "45s".
func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// formatBytes renders a byte count as a human-readable string.
func formatBytes(b uint64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

func formatMHz(hz uint64) string {
	return fmt.Sprintf("%.3f MHz", float64(hz)/1e6)
}

// formatLogLevel returns a colored, fixed-width log level label.
func formatLogLevel(level string) string {
	label := padRight(strings.ToUpper(level), 5)
	switch level {
	case "info":
		return colorize(green, label)
	case "warn":
		return colorize(yellow, label)
	case "error":
		return colorize(red, label)
	default:
		return colorize(dim, label)
	}
}

// clock shortens an RFC 3339 timestamp to local wall time.
func clock(ts string) string {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return padRight(ts, 8)
	}
	return t.Local().Format("15:04:05")
}
