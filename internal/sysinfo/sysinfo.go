// Package sysinfo samples host telemetry (CPU load and temperature, memory,
// uptime) for stations that run on the same machine as the dashboard.
package sysinfo

import (
	"context"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/sensors"
)

// LoadWindow is how long Sample measures CPU utilisation.
const LoadWindow = time.Second

// Memory is a point-in-time memory reading in bytes.
type Memory struct {
	Total     uint64 `json:"total"`
	Available uint64 `json:"available"`
}

// Snapshot is one host telemetry sample. A nil field means the probe for it
// failed or is unsupported on this platform.
type Snapshot struct {
	CPULoad []float64      `json:"cpu_load,omitempty"` // per core, percent
	CPUTemp *float64       `json:"cpu_temp,omitempty"` // celsius
	LoadAvg *[3]float64    `json:"load_avg,omitempty"`
	Mem     *Memory        `json:"mem,omitempty"`
	Uptime  *time.Duration `json:"uptime,omitempty"`
}

// LoadAverage returns the mean utilisation over all cores, or false when no
// load was sampled.
func (s Snapshot) LoadAverage() (float64, bool) {
	if len(s.CPULoad) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range s.CPULoad {
		sum += v
	}
	return sum / float64(len(s.CPULoad)), true
}

// MemUsedPercent returns the share of memory in use.
func (s Snapshot) MemUsedPercent() (float64, bool) {
	if s.Mem == nil || s.Mem.Total == 0 {
		return 0, false
	}
	used := s.Mem.Total - min(s.Mem.Available, s.Mem.Total)
	return float64(used) / float64(s.Mem.Total) * 100, true
}

// Sample probes the host. It blocks for LoadWindow while CPU utilisation is
// measured, or until ctx ends.
func Sample(ctx context.Context) Snapshot {
	var s Snapshot

	if pct, err := cpu.PercentWithContext(ctx, LoadWindow, true); err == nil && len(pct) > 0 {
		s.CPULoad = pct
	}

	if temps, err := sensors.TemperaturesWithContext(ctx); err == nil {
		s.CPUTemp = cpuTemperature(temps)
	}

	if avg, err := load.AvgWithContext(ctx); err == nil {
		s.LoadAvg = &[3]float64{avg.Load1, avg.Load5, avg.Load15}
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		s.Mem = &Memory{Total: vm.Total, Available: vm.Available}
	}

	if secs, err := host.UptimeWithContext(ctx); err == nil {
		up := time.Duration(secs) * time.Second
		s.Uptime = &up
	}

	return s
}

// cpuSensorHints are substrings of sensor keys that identify the CPU die on
// common Linux boards, in order of preference.
var cpuSensorHints = []string{"package", "tctl", "k10temp", "coretemp", "cpu", "soc"}

// cpuTemperature picks the sensor most likely to be the CPU.
func cpuTemperature(temps []sensors.TemperatureStat) *float64 {
	for _, hint := range cpuSensorHints {
		for _, t := range temps {
			if strings.Contains(strings.ToLower(t.SensorKey), hint) && t.Temperature > 0 {
				v := t.Temperature
				return &v
			}
		}
	}
	for _, t := range temps {
		if t.Temperature > 0 {
			v := t.Temperature
			return &v
		}
	}
	return nil
}
