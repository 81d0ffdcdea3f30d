package diagnostics

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemMetricsCollector_Collect(t *testing.T) {
	c := NewSystemMetricsCollector(t.TempDir())
	first := c.Collect()
	second := c.Collect()

	assert.NotEmpty(t, first.DiskPath)
	assert.GreaterOrEqual(t, second.CPUPercent, 0.0)
	assert.LessOrEqual(t, second.CPUPercent, 100.0)
	assert.Equal(t, first.CPUThreads, second.CPUThreads)
}

func TestNewSystemMetricsCollector_DefaultsToRoot(t *testing.T) {
	c := NewSystemMetricsCollector("")
	assert.Equal(t, rootDiskPath(), c.diskPath)
}

func TestWorkerSampler_SelfAndMissing(t *testing.T) {
	s := NewWorkerSampler()

	usage, ok := s.Sample(os.Getpid())
	require.True(t, ok)
	assert.Equal(t, os.Getpid(), usage.PID)
	assert.Positive(t, usage.RSSBytes)
	assert.Equal(t, 1, s.Cached())

	_, ok = s.Sample(0)
	assert.False(t, ok)

	s.Prune(map[int]struct{}{})
	assert.Equal(t, 0, s.Cached())
}

func TestResourceMonitor_SnapshotAndStop(t *testing.T) {
	m := NewResourceMonitor(MonitorConfig{Interval: 10 * time.Millisecond, HistorySize: 3},
		func() int { return 4 }, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(m.GetHistory()) == 3 }, 2*time.Second, 5*time.Millisecond)
	m.Stop()
	m.Stop()
	<-done

	latest, ok := m.GetLatest()
	require.True(t, ok)
	assert.Equal(t, 4, latest.LiveWorkers)
	assert.Positive(t, latest.Goroutines)
	assert.LessOrEqual(t, len(m.GetHistory()), 3)
}

func TestCheckThresholds(t *testing.T) {
	cfg := MonitorConfig{FDThreshold: 10, GoroutineThreshold: 100, MemoryThresholdMB: 50}

	assert.Empty(t, checkThresholds(cfg, ResourceSnapshot{OpenFDs: 5, Goroutines: 10, HeapAllocMB: 10}))

	warnings := checkThresholds(cfg, ResourceSnapshot{OpenFDs: 25, Goroutines: 150, HeapAllocMB: 60})
	require.Len(t, warnings, 3)
	assert.Equal(t, "fd", warnings[0].Type)
	assert.Equal(t, "critical", warnings[0].Level)
	assert.Equal(t, "goroutine", warnings[1].Type)
	assert.Equal(t, "warning", warnings[1].Level)
	assert.Equal(t, "memory", warnings[2].Type)
	assert.Equal(t, "warning", warnings[2].Level)
}

func TestTrendOf(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, trendOf(nil).IsHealthy)

	workersOnly := []ResourceSnapshot{
		{Timestamp: start, OpenFDs: 10, LiveWorkers: 0},
		{Timestamp: start.Add(time.Hour), OpenFDs: 30, LiveWorkers: 20},
	}
	assert.True(t, trendOf(workersOnly).IsHealthy, "fd growth explained by workers")

	leaking := []ResourceSnapshot{
		{Timestamp: start, OpenFDs: 10, Goroutines: 10, HeapAllocMB: 5},
		{Timestamp: start.Add(time.Hour), OpenFDs: 60, Goroutines: 500, HeapAllocMB: 400},
	}
	trend := trendOf(leaking)
	assert.False(t, trend.IsHealthy)
	assert.Len(t, trend.Warnings, 3)
}
