// Gwctl is the command-line client for a running groundwatch dashboard that
// has its event mirror enabled. It queries the mirror over HTTP and streams
// live events over WebSocket.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/large-farva/groundwatch/internal/ctl"
)

func main() {
	var (
		host    = pflag.StringP("host", "H", "http://127.0.0.1:8090", "groundwatch mirror URL")
		jsonOut = pflag.Bool("json", false, "Output raw JSON instead of formatted text")
		filter  = pflag.StringSlice("filter", nil, "Event types to show in watch (e.g. --filter log,jobs)")
	)

	// Stop parsing global flags at the first non-flag argument (the command
	// name), so subcommand flags are not rejected.
	pflag.CommandLine.SetInterspersed(false)
	pflag.Parse()

	if pflag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := pflag.Arg(0)
	subArgs := pflag.Args()[1:]

	var err error
	switch cmd {
	case "status":
		err = ctl.Status(*host, *jsonOut)

	case "health":
		err = ctl.Health(*host, *jsonOut)

	case "version":
		err = ctl.VersionInfo(*host, *jsonOut)

	case "stations":
		err = ctl.Stations(*host, *jsonOut)

	case "jobs":
		opts := ctl.JobsOptions{JSON: *jsonOut}
		jobFlags := pflag.NewFlagSet("jobs", pflag.ContinueOnError)
		jobFlags.Uint64Var(&opts.Station, "station", 0, "Station id (default: the active station)")
		jobFlags.IntVar(&opts.Limit, "limit", 0, "Limit number of jobs shown")
		_ = jobFlags.Parse(subArgs)
		err = ctl.Jobs(*host, opts)

	case "logs":
		opts := ctl.LogsOptions{JSON: *jsonOut}
		logFlags := pflag.NewFlagSet("logs", pflag.ContinueOnError)
		logFlags.StringVar(&opts.Level, "level", "", "Filter by log level (error, warn, info, debug, trace)")
		logFlags.IntVar(&opts.Limit, "limit", 0, "Limit number of log entries shown")
		logFlags.BoolVar(&opts.Tail, "tail", false, "Stream live log events (like watch --filter log)")
		_ = logFlags.Parse(subArgs)
		err = ctl.Logs(ctx, *host, opts)

	case "watch":
		err = ctl.Watch(ctx, *host, ctl.WatchOptions{
			Filter: *filter,
			JSON:   *jsonOut,
		})

	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Print(`
  gwctl - groundwatch mirror client

  USAGE
    gwctl [flags] <command> [command-flags]

  COMMANDS
    status          Show the dashboard snapshot: active station, vessel, rotator
    health          Check the mirror is reachable
    version         Show CLI and dashboard version information
    stations        List monitored stations with host telemetry
    jobs            List queued observation jobs
    logs            Show recent dashboard log records
    watch           Stream live events (Ctrl-C to stop)

  GLOBAL FLAGS
    -H, --host URL      Mirror base URL (default: http://127.0.0.1:8090)
        --json          Output raw JSON instead of formatted text
        --filter TYPE   Event types to show in watch (comma-separated)

  COMMAND FLAGS
    jobs:
        --station ID        Station id (default: the active station)
        --limit N           Limit number of jobs shown

    logs:
        --level LEVEL       Filter by log level
        --limit N           Limit number of log entries shown
        --tail              Stream live log events

  EXAMPLES
    gwctl status
    gwctl --json stations
    gwctl jobs --station 1234 --limit 5
    gwctl logs --level warn --limit 20
    gwctl --host http://10.0.0.5:8090 --filter jobs,failure watch

`)
}
