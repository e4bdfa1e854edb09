// Package sysinfo reports host and process facts for the admin views.
package sysinfo

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/tphakala/console-panel/internal/errors"
)

// appStart is when the process loaded this package
var appStart = time.Now()

// Info is a point-in-time view of the machine running the panel.
type Info struct {
	Hostname        string    `json:"hostname"`
	OS              string    `json:"os"`
	Architecture    string    `json:"architecture"`
	Platform        string    `json:"platform"`
	PlatformVersion string    `json:"platform_version"`
	KernelVersion   string    `json:"kernel_version"`
	UptimeSeconds   uint64    `json:"uptime_seconds"`
	AppStart        time.Time `json:"app_start_time"`
	AppUptime       int64     `json:"app_uptime_seconds"`
	NumCPU          int       `json:"num_cpu"`
	GoVersion       string    `json:"go_version"`

	MemoryTotal   uint64  `json:"memory_total"`
	MemoryUsed    uint64  `json:"memory_used"`
	MemoryPercent float64 `json:"memory_usage_percent"`
	ProcessRSS    uint64  `json:"process_rss"`
}

// Collect gathers host, memory and process information. A part that cannot
// be read is left at its zero value; only a failing host query is an error.
func Collect(ctx context.Context) (*Info, error) {
	info := &Info{
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		AppStart:     appStart,
		AppUptime:    int64(time.Since(appStart).Seconds()),
		NumCPU:       runtime.NumCPU(),
		GoVersion:    runtime.Version(),
	}

	hostInfo, err := host.InfoWithContext(ctx)
	if err != nil {
		return nil, errors.New(err).
			Component("sysinfo").
			Category(errors.CategorySystem).
			Context("operation", "host_info").
			Build()
	}
	info.Hostname = hostInfo.Hostname
	info.Platform = hostInfo.Platform
	info.PlatformVersion = hostInfo.PlatformVersion
	info.KernelVersion = hostInfo.KernelVersion
	info.UptimeSeconds = hostInfo.Uptime

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.MemoryTotal = vm.Total
		info.MemoryUsed = vm.Used
		info.MemoryPercent = vm.UsedPercent
	}

	if proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil { //nolint:gosec // pid fits in int32
		if mi, err := proc.MemoryInfoWithContext(ctx); err == nil {
			info.ProcessRSS = mi.RSS
		}
	}

	return info, nil
}

// FormatBytes renders n with a binary unit, e.g. "1.5 GiB".
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatUint(n, 10) + " B"
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(n)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}

// FormatUptime renders seconds as "3d 4h 5m".
func FormatUptime(seconds uint64) string {
	d := time.Duration(seconds) * time.Second
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
