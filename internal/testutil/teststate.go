package testutil

import (
	"time"

	"github.com/hugo-lorenzo-mato/autorun/internal/core"
)

// NewTestTask creates a pending TopicTask with sensible defaults for tests.
// Use functional options to override specific fields.
func NewTestTask(topicID string, opts ...func(*core.TopicTask)) *core.TopicTask {
	t := core.NewTopicTask(topicID, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	for _, opt := range opts {
		opt(t)
	}
	return t
}
