package diagnostics

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/hugo-lorenzo-mato/autorun/internal/logging"
)

// ResourceSnapshot captures the scheduler's own resource state.
type ResourceSnapshot struct {
	Timestamp     time.Time     `json:"timestamp"`
	OpenFDs       int           `json:"open_fds"`
	Goroutines    int           `json:"goroutines"`
	HeapAllocMB   float64       `json:"heap_alloc_mb"`
	HeapInUseMB   float64       `json:"heap_in_use_mb"`
	NumGC         uint32        `json:"num_gc"`
	ProcessUptime time.Duration `json:"process_uptime"`
	LiveWorkers   int           `json:"live_workers"`
}

// ResourceTrend captures resource usage trends over time.
type ResourceTrend struct {
	FDGrowthRate        float64  `json:"fd_growth_per_hour"`
	GoroutineGrowthRate float64  `json:"goroutine_growth_per_hour"`
	MemoryGrowthRate    float64  `json:"memory_growth_mb_per_hour"`
	IsHealthy           bool     `json:"healthy"`
	Warnings            []string `json:"warnings,omitempty"`
}

// HealthWarning represents a single health concern.
type HealthWarning struct {
	Level   string  `json:"level"` // "warning" or "critical"
	Type    string  `json:"type"`  // "fd", "goroutine", "memory"
	Message string  `json:"message"`
	Value   float64 `json:"value"`
	Limit   float64 `json:"limit"`
}

// MonitorConfig holds thresholds. A zero threshold disables its check.
type MonitorConfig struct {
	Interval           time.Duration
	FDThreshold        int
	GoroutineThreshold int
	MemoryThresholdMB  int
	HistorySize        int
}

// DefaultMonitorConfig returns thresholds suited to a fleet of a few dozen
// workers.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval:           time.Minute,
		FDThreshold:        512,
		GoroutineThreshold: 1000,
		MemoryThresholdMB:  512,
		HistorySize:        120,
	}
}

// ResourceMonitor tracks the scheduler process over time.
type ResourceMonitor struct {
	cfg         MonitorConfig
	logger      *logging.Logger
	liveWorkers func() int
	self        *process.Process

	history []ResourceSnapshot
	mu      sync.RWMutex

	stopCh  chan struct{}
	stopped atomic.Bool
	started time.Time
}

// NewResourceMonitor creates a monitor. liveWorkers may be nil.
func NewResourceMonitor(cfg MonitorConfig, liveWorkers func() int, logger *logging.Logger) *ResourceMonitor {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 120
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	// #nosec G115 -- own pid fits in int32
	self, _ := process.NewProcess(int32(os.Getpid()))
	return &ResourceMonitor{
		cfg:         cfg,
		logger:      logger.WithComponent("monitor"),
		liveWorkers: liveWorkers,
		self:        self,
		history:     make([]ResourceSnapshot, 0, cfg.HistorySize),
		stopCh:      make(chan struct{}),
		started:     time.Now(),
	}
}

// Run samples until ctx is cancelled or Stop is called.
func (m *ResourceMonitor) Run(ctx context.Context) {
	m.recordSnapshot(m.TakeSnapshot())

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.recordSnapshot(m.TakeSnapshot())
			for _, w := range m.CheckHealth() {
				m.logger.Warn("monitor: resource warning",
					"type", w.Type,
					"level", w.Level,
					"value", w.Value,
					"limit", w.Limit,
					"message", w.Message,
				)
			}
			if trend := m.GetTrend(); !trend.IsHealthy {
				m.logger.Warn("monitor: resource trend", "warnings", trend.Warnings)
			}
		}
	}
}

// Stop halts the monitoring loop.
func (m *ResourceMonitor) Stop() {
	if m.stopped.CompareAndSwap(false, true) {
		close(m.stopCh)
	}
}

// TakeSnapshot captures current resource state.
func (m *ResourceMonitor) TakeSnapshot() ResourceSnapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	s := ResourceSnapshot{
		Timestamp:     time.Now(),
		Goroutines:    runtime.NumGoroutine(),
		HeapAllocMB:   float64(memStats.HeapAlloc) / 1024 / 1024,
		HeapInUseMB:   float64(memStats.HeapInuse) / 1024 / 1024,
		NumGC:         memStats.NumGC,
		ProcessUptime: time.Since(m.started),
	}
	if m.self != nil {
		if n, err := m.self.NumFDs(); err == nil {
			s.OpenFDs = int(n)
		}
	}
	if m.liveWorkers != nil {
		s.LiveWorkers = m.liveWorkers()
	}
	return s
}

func (m *ResourceMonitor) recordSnapshot(s ResourceSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = append(m.history, s)
	if len(m.history) > m.cfg.HistorySize {
		m.history = m.history[len(m.history)-m.cfg.HistorySize:]
	}
}

// GetHistory returns historical snapshots.
func (m *ResourceMonitor) GetHistory() []ResourceSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]ResourceSnapshot, len(m.history))
	copy(result, m.history)
	return result
}

// GetLatest returns the most recent snapshot.
func (m *ResourceMonitor) GetLatest() (ResourceSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.history) == 0 {
		return ResourceSnapshot{}, false
	}
	return m.history[len(m.history)-1], true
}

// GetTrend analyzes recent snapshots for concerning trends.
func (m *ResourceMonitor) GetTrend() ResourceTrend {
	return trendOf(m.GetHistory())
}

func trendOf(history []ResourceSnapshot) ResourceTrend {
	if len(history) < 2 {
		return ResourceTrend{IsHealthy: true}
	}

	first := history[0]
	last := history[len(history)-1]
	hours := last.Timestamp.Sub(first.Timestamp).Hours()
	if hours < 0.01 {
		return ResourceTrend{IsHealthy: true}
	}

	trend := ResourceTrend{
		FDGrowthRate:        float64(last.OpenFDs-first.OpenFDs) / hours,
		GoroutineGrowthRate: float64(last.Goroutines-first.Goroutines) / hours,
		MemoryGrowthRate:    (last.HeapAllocMB - first.HeapAllocMB) / hours,
		IsHealthy:           true,
	}

	// Open files track live workers (one log sink each), so only growth
	// beyond the worker delta counts.
	workerDelta := float64(last.LiveWorkers-first.LiveWorkers) / hours
	if trend.FDGrowthRate-workerDelta > 10 {
		trend.IsHealthy = false
		trend.Warnings = append(trend.Warnings,
			fmt.Sprintf("open files growing at %.1f/hour (potential leak)", trend.FDGrowthRate))
	}
	if trend.GoroutineGrowthRate > 100 {
		trend.IsHealthy = false
		trend.Warnings = append(trend.Warnings,
			fmt.Sprintf("goroutine count growing at %.1f/hour (potential leak)", trend.GoroutineGrowthRate))
	}
	if trend.MemoryGrowthRate > 100 {
		trend.IsHealthy = false
		trend.Warnings = append(trend.Warnings,
			fmt.Sprintf("heap growing at %.1f MB/hour", trend.MemoryGrowthRate))
	}
	return trend
}

// CheckHealth returns warnings if thresholds are exceeded.
func (m *ResourceMonitor) CheckHealth() []HealthWarning {
	snapshot, ok := m.GetLatest()
	if !ok {
		snapshot = m.TakeSnapshot()
	}
	return checkThresholds(m.cfg, snapshot)
}

func checkThresholds(cfg MonitorConfig, s ResourceSnapshot) []HealthWarning {
	var warnings []HealthWarning

	if cfg.FDThreshold > 0 && s.OpenFDs > cfg.FDThreshold {
		warnings = append(warnings, HealthWarning{
			Level:   levelFor(float64(s.OpenFDs), float64(cfg.FDThreshold), 2),
			Type:    "fd",
			Message: fmt.Sprintf("open files at %d (threshold: %d)", s.OpenFDs, cfg.FDThreshold),
			Value:   float64(s.OpenFDs),
			Limit:   float64(cfg.FDThreshold),
		})
	}
	if cfg.GoroutineThreshold > 0 && s.Goroutines > cfg.GoroutineThreshold {
		warnings = append(warnings, HealthWarning{
			Level:   levelFor(float64(s.Goroutines), float64(cfg.GoroutineThreshold), 2),
			Type:    "goroutine",
			Message: fmt.Sprintf("goroutine count at %d (threshold: %d)", s.Goroutines, cfg.GoroutineThreshold),
			Value:   float64(s.Goroutines),
			Limit:   float64(cfg.GoroutineThreshold),
		})
	}
	if cfg.MemoryThresholdMB > 0 && s.HeapAllocMB > float64(cfg.MemoryThresholdMB) {
		warnings = append(warnings, HealthWarning{
			Level:   levelFor(s.HeapAllocMB, float64(cfg.MemoryThresholdMB), 1.5),
			Type:    "memory",
			Message: fmt.Sprintf("heap usage at %.1f MB (threshold: %d MB)", s.HeapAllocMB, cfg.MemoryThresholdMB),
			Value:   s.HeapAllocMB,
			Limit:   float64(cfg.MemoryThresholdMB),
		})
	}
	return warnings
}

func levelFor(value, limit, criticalFactor float64) string {
	if value > limit*criticalFactor {
		return "critical"
	}
	return "warning"
}

// Uptime returns the process uptime.
func (m *ResourceMonitor) Uptime() time.Duration {
	return time.Since(m.started)
}
