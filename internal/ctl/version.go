package ctl

import (
	"fmt"
	"strings"
)

// Build-time variables set via -ldflags.
var (
	Version   = "dev"
	GoVersion = "unknown"
)

// VersionInfo fetches the dashboard version via GET /api/version and shows
// it next to the CLI's own.
func VersionInfo(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var remote struct {
		Version   string `json:"version"`
		GoVersion string `json:"go_version"`
		BuiltAt   string `json:"built_at"`
	}
	remoteErr := getJSON(baseURL, "/api/version", &remote)

	if jsonOutput {
		resp := map[string]any{
			"cli": map[string]any{
				"version":    Version,
				"go_version": GoVersion,
			},
		}
		if remoteErr == nil {
			resp["dashboard"] = remote
		} else {
			resp["dashboard_error"] = remoteErr.Error()
		}
		return printJSON(resp)
	}

	out := stdout
	fmt.Fprintln(out)
	fmt.Fprintln(out, header("  GROUNDWATCH VERSION"))
	fmt.Fprintln(out, rule(38))
	fmt.Fprintf(out, "  %-12s %s\n", colorize(dim, "CLI:"), Version+" ("+GoVersion+")")
	if remoteErr != nil {
		fmt.Fprintf(out, "  %-12s %s\n", colorize(dim, "Dashboard:"), colorize(red, "unreachable: "+remoteErr.Error()))
	} else {
		fmt.Fprintf(out, "  %-12s %s\n", colorize(dim, "Dashboard:"), remote.Version+" ("+remote.GoVersion+")")
		fmt.Fprintf(out, "  %-12s %s\n", colorize(dim, "Built:"), remote.BuiltAt)
	}
	fmt.Fprintln(out)
	return nil
}
