package process

import (
	gopsproc "github.com/shirou/gopsutil/v4/process"
)

// Usage is one resource sample for a live process.
type Usage struct {
	CPUPercent  float64 `json:"cpu_percent"`
	MemoryBytes uint64  `json:"memory_bytes"`
}

// SampleUsage reads CPU and RSS for the process. ErrGone means the process
// vanished between the liveness check and the sample; callers treat that as a
// liveness transition on the next tick, not as a failure.
func (h *Handle) SampleUsage() (Usage, error) {
	if !h.Alive() {
		return Usage{}, ErrGone
	}
	p, err := gopsproc.NewProcess(int32(h.pid))
	if err != nil {
		return Usage{}, ErrGone
	}
	var u Usage
	// CPUPercent measures against the previous call for the same Process
	// value; a fresh Process per sample yields utilization since start,
	// which is what we report.
	if pct, err := p.CPUPercent(); err == nil {
		u.CPUPercent = pct
	}
	mem, err := p.MemoryInfo()
	if err != nil {
		if !h.Alive() {
			return Usage{}, ErrGone
		}
		return u, err
	}
	u.MemoryBytes = mem.RSS
	return u, nil
}
