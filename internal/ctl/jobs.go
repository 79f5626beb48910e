package ctl

import (
	"fmt"
	"time"

	"github.com/large-farva/groundwatch/internal/telemetry"
)

// JobsOptions controls the jobs command output.
type JobsOptions struct {
	Station uint64 // 0 selects the active station
	Limit   int
	JSON    bool
}

// Jobs lists the queued observation jobs of one station.
func Jobs(baseURL string, opts JobsOptions) error {
	s, err := fetchStatus(baseURL)
	if err != nil {
		return err
	}

	id := opts.Station
	if id == 0 {
		id = s.ActiveStation
	}
	var st *telemetry.StationSummary
	for i := range s.Stations {
		if s.Stations[i].ID == id {
			st = &s.Stations[i]
		}
	}
	if st == nil {
		return fmt.Errorf("station %d is not monitored", id)
	}

	jobs := st.Jobs
	if opts.Limit > 0 && opts.Limit < len(jobs) {
		jobs = jobs[:opts.Limit]
	}
	if opts.JSON {
		if jobs == nil {
			jobs = []telemetry.JobSummary{}
		}
		return printJSON(jobs)
	}

	out := stdout
	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s %s\n", header("  JOBS"), colorize(dim, fmt.Sprintf("%d %s", st.ID, st.Name)))
	fmt.Fprintln(out, rule(70))
	if len(jobs) == 0 {
		fmt.Fprintln(out, "  No jobs queued.")
		fmt.Fprintln(out)
		return nil
	}

	now := time.Now()
	for _, j := range jobs {
		when := colorize(dim, "in "+formatDuration(j.Start.Sub(now).Truncate(time.Second)))
		if !now.Before(j.Start) {
			when = colorize(green, "ACTIVE")
		}
		maxEl := ""
		if j.MaxElev != nil {
			maxEl = fmt.Sprintf("%.0f°", *j.MaxElev)
		}
		fmt.Fprintf(out, "  %-9d %s  %s  %s  %-5s %s\n",
			j.ID,
			padRight(j.Vessel, 18),
			j.Start.Local().Format("Jan 02 15:04"),
			formatMHz(j.FrequencyHz),
			maxEl,
			when,
		)
	}
	fmt.Fprintln(out)
	return nil
}
