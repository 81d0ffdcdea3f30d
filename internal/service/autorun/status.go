package autorun

import (
	"time"

	"github.com/hugo-lorenzo-mato/autorun/internal/core"
)

// Status is the read-only view the control loop publishes after every tick.
// Published values are never mutated.
type Status struct {
	UpdatedAt        time.Time        `json:"updated_at"`
	Tick             uint64           `json:"tick"`
	Running          int              `json:"running"`
	Pending          int              `json:"pending"`
	Cap              int              `json:"max_concurrent"`
	Handled          int              `json:"handled_total"`
	LastRefresh      time.Time        `json:"last_refresh,omitempty"`
	LastRefreshError string           `json:"last_refresh_error,omitempty"`
	LatestCandidates int              `json:"latest_candidates"`
	Metrics          FleetMetrics     `json:"metrics"`
	Topics           []core.TopicView `json:"topics"`
}

// StatusSource exposes the latest published status.
type StatusSource interface {
	Status() *Status
}

// Topic returns the view of one topic.
func (s *Status) Topic(topicID string) (core.TopicView, bool) {
	if s == nil {
		return core.TopicView{}, false
	}
	for _, v := range s.Topics {
		if v.TopicID == topicID {
			return v, true
		}
	}
	return core.TopicView{}, false
}
