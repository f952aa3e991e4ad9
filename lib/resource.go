package lib

import (
	"os"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessResourceUsage is the resource footprint of the node process
type ProcessResourceUsage struct {
	Name          string  `json:"name"`
	ThreadCount   int32   `json:"threadCount"`
	RSS           uint64  `json:"rss"`
	MemoryPercent float32 `json:"usedMemoryPercent"`
	CPUPercent    float64 `json:"usedCPUPercent"`
}

// SystemResourceUsage is the resource state of the host
type SystemResourceUsage struct {
	// ram
	TotalRAM       uint64  `json:"totalRAM"`
	AvailableRAM   uint64  `json:"availableRAM"`
	UsedRAM        uint64  `json:"usedRAM"`
	UsedRAMPercent float64 `json:"usedRAMPercent"`
	// cpu
	UsedCPUPercent float64 `json:"usedCPUPercent"`
	// disk of the data directory
	TotalDisk       uint64  `json:"totalDisk"`
	UsedDisk        uint64  `json:"usedDisk"`
	UsedDiskPercent float64 `json:"usedDiskPercent"`
}

// ResourceUsage is a point in time sample of the node process and its host
type ResourceUsage struct {
	Process ProcessResourceUsage `json:"process"`
	System  SystemResourceUsage  `json:"system"`
}

// NewResourceUsage() samples the node process and the host, measuring disk usage at path
func NewResourceUsage(path string) (*ResourceUsage, ErrorI) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return nil, ErrResourceUsage(err)
	}
	cp, err := cpu.Percent(0, false)
	if err != nil {
		return nil, ErrResourceUsage(err)
	}
	if path == "" {
		path = "/"
	}
	d, err := disk.Usage(path)
	if err != nil {
		return nil, ErrResourceUsage(err)
	}
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, ErrResourceUsage(err)
	}
	name, _ := p.Name()
	threads, _ := p.NumThreads()
	memPercent, _ := p.MemoryPercent()
	cpuPercent, _ := p.CPUPercent()
	var rss uint64
	if info, e := p.MemoryInfo(); e == nil {
		rss = info.RSS
	}
	usage := &ResourceUsage{
		Process: ProcessResourceUsage{
			Name:          name,
			ThreadCount:   threads,
			RSS:           rss,
			MemoryPercent: memPercent,
			CPUPercent:    cpuPercent,
		},
		System: SystemResourceUsage{
			TotalRAM:        vm.Total,
			AvailableRAM:    vm.Available,
			UsedRAM:         vm.Used,
			UsedRAMPercent:  vm.UsedPercent,
			TotalDisk:       d.Total,
			UsedDisk:        d.Used,
			UsedDiskPercent: d.UsedPercent,
		},
	}
	if len(cp) > 0 {
		usage.System.UsedCPUPercent = cp[0]
	}
	return usage, nil
}
