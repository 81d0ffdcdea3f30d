// Package diagnostics reports host and process resource usage.
//
//   - SystemMetricsCollector: host CPU, memory, disk and load, shown by
//     `autorun doctor` and GET /api/v1/system.
//
//   - WorkerSampler: per-worker CPU and RSS, shown in the list output.
//
//   - ResourceMonitor: periodically samples the scheduler process itself
//     (goroutines, heap, open files, live workers) and logs threshold
//     warnings. A long-running scheduler that leaks log sinks shows up here
//     first.
package diagnostics
