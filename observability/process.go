package observability

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/process"
)

// ProcessStats describes the chat process itself, shown next to the counters.
type ProcessStats struct {
	PID        int32
	Status     string
	CPUPercent float64
	RSSBytes   uint64
}

// SelfStats reads the current process from the OS.
func SelfStats() (ProcessStats, error) {
	pid := int32(os.Getpid())
	p, err := process.NewProcess(pid)
	if err != nil {
		return ProcessStats{}, fmt.Errorf("looking up process %d failed: %w", pid, err)
	}
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return ProcessStats{}, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return ProcessStats{}, err
	}
	status, err := p.Status()
	if err != nil {
		return ProcessStats{}, err
	}
	return ProcessStats{PID: pid, Status: status, CPUPercent: cpuPercent, RSSBytes: memInfo.RSS}, nil
}
