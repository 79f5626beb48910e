package ctl

import (
	"fmt"
	"net/http"
	"strings"
)

// Health checks mirror liveness via GET /healthz.
func Health(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	status, _, err := getRaw(baseURL, "/healthz")
	if err != nil {
		if jsonOutput {
			return printJSON(map[string]any{"healthy": false, "url": baseURL, "error": err.Error()})
		}
		return err
	}

	healthy := status == http.StatusOK
	if jsonOutput {
		return printJSON(map[string]any{"healthy": healthy, "url": baseURL})
	}

	fmt.Fprintln(stdout)
	if healthy {
		fmt.Fprintf(stdout, "  %s  groundwatch is reachable at %s\n", colorize(green, "HEALTHY"), colorize(dim, baseURL))
	} else {
		fmt.Fprintf(stdout, "  %s  groundwatch returned HTTP %d at %s\n", colorize(red, "UNHEALTHY"), status, colorize(dim, baseURL))
	}
	fmt.Fprintln(stdout)
	return nil
}
