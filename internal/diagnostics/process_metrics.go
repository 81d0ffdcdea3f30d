package diagnostics

import (
	"sync"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcessUsage is a point-in-time resource sample of one worker.
type ProcessUsage struct {
	PID        int     `json:"pid"`
	CPUPercent float64 `json:"cpu_percent"`
	RSSBytes   uint64  `json:"rss_bytes"`
}

// WorkerSampler samples worker processes by pid. Process handles are cached
// so CPU percent is measured between consecutive samples.
type WorkerSampler struct {
	mu    sync.Mutex
	procs map[int]*process.Process
}

// NewWorkerSampler creates an empty sampler.
func NewWorkerSampler() *WorkerSampler {
	return &WorkerSampler{procs: make(map[int]*process.Process)}
}

// Sample returns usage for pid. It reports false when the process cannot
// be inspected, for example because it already exited.
func (s *WorkerSampler) Sample(pid int) (ProcessUsage, bool) {
	if pid <= 0 {
		return ProcessUsage{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.procs[pid]
	if !ok {
		// #nosec G115 -- pids fit in int32 on every supported platform
		np, err := process.NewProcess(int32(pid))
		if err != nil {
			return ProcessUsage{}, false
		}
		p = np
		s.procs[pid] = p
	}

	usage := ProcessUsage{PID: pid}
	mi, err := p.MemoryInfo()
	if err != nil {
		delete(s.procs, pid)
		return ProcessUsage{}, false
	}
	usage.RSSBytes = mi.RSS
	if pct, err := p.Percent(0); err == nil {
		usage.CPUPercent = pct
	}
	return usage, true
}

// Prune drops cached handles whose pid is not in live.
func (s *WorkerSampler) Prune(live map[int]struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for pid := range s.procs {
		if _, ok := live[pid]; !ok {
			delete(s.procs, pid)
		}
	}
}

// Cached returns the number of cached process handles.
func (s *WorkerSampler) Cached() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.procs)
}
