package sysinfo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// Info is a snapshot of the host a benchmark run executed on. Throughput
// numbers are only comparable across runs when the hardware is known.
type Info struct {
	Hostname        string  `json:"hostname"`
	OS              string  `json:"os"`
	Platform        string  `json:"platform"`
	PlatformVersion string  `json:"platform_version"`
	KernelVersion   string  `json:"kernel_version"`
	Arch            string  `json:"arch"`
	CPUVendor       string  `json:"cpu_vendor"`
	CPUModel        string  `json:"cpu_model"`
	CPUCores        int     `json:"cpu_cores"`
	CPUMhz          float64 `json:"cpu_mhz"`
	MemoryTotalGB   float64 `json:"memory_total_gb"`
}

// Collect gathers host, CPU, and memory information. Partial failures leave
// the affected fields zeroed rather than failing the collection.
func Collect(ctx context.Context) *Info {
	info := &Info{}

	if h, err := host.InfoWithContext(ctx); err == nil {
		info.Hostname = h.Hostname
		info.OS = h.OS
		info.Platform = h.Platform
		info.PlatformVersion = h.PlatformVersion
		info.KernelVersion = h.KernelVersion
		info.Arch = h.KernelArch
	}

	if cpus, err := cpu.InfoWithContext(ctx); err == nil && len(cpus) > 0 {
		info.CPUVendor = cpus[0].VendorID
		info.CPUModel = cpus[0].ModelName
		info.CPUMhz = cpus[0].Mhz
	}

	if cores, err := cpu.CountsWithContext(ctx, true); err == nil {
		info.CPUCores = cores
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.MemoryTotalGB = float64(vm.Total) / (1 << 30)
	}

	return info
}

// JSON serializes the snapshot for persistence alongside a run.
func (i *Info) JSON() (string, error) {
	data, err := json.Marshal(i)
	if err != nil {
		return "", fmt.Errorf("marshaling system info: %w", err)
	}

	return string(data), nil
}
