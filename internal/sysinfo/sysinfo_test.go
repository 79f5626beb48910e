package sysinfo

import (
	"testing"

	"github.com/shirou/gopsutil/v4/sensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAverage(t *testing.T) {
	_, ok := Snapshot{}.LoadAverage()
	assert.False(t, ok)

	avg, ok := Snapshot{CPULoad: []float64{10, 30, 50, 70}}.LoadAverage()
	require.True(t, ok)
	assert.InDelta(t, 40.0, avg, 1e-9)
}

func TestMemUsedPercent(t *testing.T) {
	_, ok := Snapshot{}.MemUsedPercent()
	assert.False(t, ok)

	pct, ok := Snapshot{Mem: &Memory{Total: 4096, Available: 1024}}.MemUsedPercent()
	require.True(t, ok)
	assert.InDelta(t, 75.0, pct, 1e-9)
}

func TestCPUTemperaturePrefersPackageSensor(t *testing.T) {
	temps := []sensors.TemperatureStat{
		{SensorKey: "nvme_composite", Temperature: 38},
		{SensorKey: "coretemp_core_0", Temperature: 51},
		{SensorKey: "coretemp_package_id_0", Temperature: 55},
	}
	got := cpuTemperature(temps)
	require.NotNil(t, got)
	assert.Equal(t, 55.0, *got)
}

func TestCPUTemperatureFallsBackToFirstReading(t *testing.T) {
	got := cpuTemperature([]sensors.TemperatureStat{
		{SensorKey: "acpitz", Temperature: 0},
		{SensorKey: "nvme_composite", Temperature: 38},
	})
	require.NotNil(t, got)
	assert.Equal(t, 38.0, *got)

	assert.Nil(t, cpuTemperature(nil))
}
