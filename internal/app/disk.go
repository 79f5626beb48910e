package app

import (
	"context"

	"github.com/shirou/gopsutil/v4/disk"
)

// DiskUsage is the free space on the filesystem holding the capture files.
type DiskUsage struct {
	Path           string  `json:"path"`
	TotalBytes     uint64  `json:"total_bytes"`
	UsedBytes      uint64  `json:"used_bytes"`
	AvailableBytes uint64  `json:"available_bytes"`
	UsedPercent    float64 `json:"used_percent"`
}

// diskUsage returns usage for the filesystem containing path, or nil on
// error.
func diskUsage(ctx context.Context, path string) *DiskUsage {
	u, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return nil
	}
	return &DiskUsage{
		Path:           path,
		TotalBytes:     u.Total,
		UsedBytes:      u.Used,
		AvailableBytes: u.Free,
		UsedPercent:    u.UsedPercent,
	}
}
