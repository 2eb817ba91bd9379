package monitoring

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostStats is a snapshot of the machine running the site.
type HostStats struct {
	MemoryUsedPercent float64 `json:"memoryUsedPercent"`
	MemoryTotal       uint64  `json:"memoryTotal"`
	Uptime            uint64  `json:"uptimeSeconds"`
	Goroutines        int     `json:"goroutines"`
}

// Snapshot reads the current host statistics.
func Snapshot(ctx context.Context) (HostStats, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return HostStats{}, err
	}
	uptime, err := host.UptimeWithContext(ctx)
	if err != nil {
		return HostStats{}, err
	}
	return HostStats{
		MemoryUsedPercent: vm.UsedPercent,
		MemoryTotal:       vm.Total,
		Uptime:            uptime,
		Goroutines:        runtime.NumGoroutine(),
	}, nil
}
