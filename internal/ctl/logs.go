package ctl

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/large-farva/groundwatch/internal/telemetry"
)

// LogsOptions configures the logs command.
type LogsOptions struct {
	Level string
	Limit int
	Tail  bool
	JSON  bool
}

// Logs shows recent dashboard log records, or streams them live with --tail.
func Logs(ctx context.Context, baseURL string, opts LogsOptions) error {
	baseURL = strings.TrimRight(baseURL, "/")

	if opts.Tail {
		return Watch(ctx, baseURL, WatchOptions{
			Filter: []string{string(telemetry.EventLog)},
			JSON:   opts.JSON,
		})
	}

	params := url.Values{}
	if opts.Level != "" {
		params.Set("level", opts.Level)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	path := "/api/logs"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var resp telemetry.Logs
	if err := getJSON(baseURL, path, &resp); err != nil {
		return err
	}
	if opts.JSON {
		return printJSON(resp)
	}

	out := stdout
	fmt.Fprintln(out)
	fmt.Fprintln(out, header("  DASHBOARD LOGS"))
	fmt.Fprintln(out, rule(70))
	if len(resp.Logs) == 0 {
		fmt.Fprintln(out, "  No log entries found.")
	}
	for _, entry := range resp.Logs {
		fmt.Fprintf(out, "  %s %s  %s\n", colorize(dim, clock(entry.TS)), formatLogLevel(entry.Level), entry.Message)
	}
	fmt.Fprintln(out)
	return nil
}
