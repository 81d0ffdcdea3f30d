package autorun

import (
	"time"

	"github.com/hugo-lorenzo-mato/autorun/internal/core"
	"github.com/hugo-lorenzo-mato/autorun/internal/service/scheduler"
)

// FleetMetrics holds process-lifetime counters of the control loop.
type FleetMetrics struct {
	StartTime       time.Time `json:"start_time"`
	Ticks           uint64    `json:"ticks"`
	Refreshes       int       `json:"refreshes"`
	RefreshFailures int       `json:"refresh_failures"`
	TopicsEnqueued  int       `json:"topics_enqueued"`
	Dispatched      int       `json:"dispatched"`
	Exited          int       `json:"exited"`
	Errored         int       `json:"errored"`
	Stopped         int       `json:"stopped"`
	LaunchFailures  int       `json:"launch_failures"`
	CommandsHandled int       `json:"commands_handled"`
}

// recordTick folds one tick report into the counters. Workers reaped after
// a stop are already counted as stopped.
func (m *FleetMetrics) recordTick(r scheduler.TickReport) {
	m.Ticks++
	m.Dispatched += len(r.Dispatched)
	m.LaunchFailures += len(r.Failed)
	for _, f := range r.Finished {
		switch f.Status {
		case core.TopicStatusExited:
			m.Exited++
		case core.TopicStatusError:
			m.Errored++
		}
	}
}
