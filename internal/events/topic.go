package events

import (
	"time"

	"github.com/hugo-lorenzo-mato/autorun/internal/core"
)

// Event type constants for topic lifecycle events.
const (
	TypeTopicEnqueued     = "topic_enqueued"
	TypeTopicDispatched   = "topic_dispatched"
	TypeTopicFinished     = "topic_finished"
	TypeTopicStopped      = "topic_stopped"
	TypeTopicLaunchFailed = "topic_launch_failed"
	TypeTopicsRefreshed   = "topics_refreshed"
)

// LifecycleTypes lists the events that change a topic's state.
var LifecycleTypes = []string{
	TypeTopicDispatched,
	TypeTopicFinished,
	TypeTopicStopped,
	TypeTopicLaunchFailed,
}

// TopicEnqueuedEvent is emitted when a new topic enters the pending queue.
type TopicEnqueuedEvent struct {
	BaseEvent
	Position int `json:"position"`
}

// NewTopicEnqueuedEvent creates a new topic enqueued event.
func NewTopicEnqueuedEvent(topicID string, position int) TopicEnqueuedEvent {
	return TopicEnqueuedEvent{
		BaseEvent: NewBaseEvent(TypeTopicEnqueued, topicID),
		Position:  position,
	}
}

// TopicDispatchedEvent is emitted when a worker is started.
type TopicDispatchedEvent struct {
	BaseEvent
	RunID      string `json:"run_id"`
	PID        int    `json:"pid"`
	ConfigPath string `json:"config_path"`
	LogPath    string `json:"log_path"`
}

// NewTopicDispatchedEvent creates a new topic dispatched event.
func NewTopicDispatchedEvent(topicID, runID string, pid int, configPath, logPath string) TopicDispatchedEvent {
	return TopicDispatchedEvent{
		BaseEvent:  NewBaseEvent(TypeTopicDispatched, topicID),
		RunID:      runID,
		PID:        pid,
		ConfigPath: configPath,
		LogPath:    logPath,
	}
}

// TopicFinishedEvent is emitted when a worker is reaped.
type TopicFinishedEvent struct {
	BaseEvent
	RunID    string           `json:"run_id"`
	ExitCode int              `json:"exit_code"`
	Status   core.TopicStatus `json:"status"`
	Duration time.Duration    `json:"duration_ns"`
}

// NewTopicFinishedEvent creates a new topic finished event.
func NewTopicFinishedEvent(topicID, runID string, exitCode int, status core.TopicStatus, duration time.Duration) TopicFinishedEvent {
	return TopicFinishedEvent{
		BaseEvent: NewBaseEvent(TypeTopicFinished, topicID),
		RunID:     runID,
		ExitCode:  exitCode,
		Status:    status,
		Duration:  duration,
	}
}

// TopicStoppedEvent is emitted when an operator stops a topic.
type TopicStoppedEvent struct {
	BaseEvent
	RunID       string           `json:"run_id,omitempty"`
	PriorStatus core.TopicStatus `json:"prior_status"`
	Terminated  bool             `json:"terminated"`
	Error       string           `json:"error,omitempty"`
}

// NewTopicStoppedEvent creates a new topic stopped event.
func NewTopicStoppedEvent(topicID, runID string, prior core.TopicStatus, terminated bool, err error) TopicStoppedEvent {
	e := TopicStoppedEvent{
		BaseEvent:   NewBaseEvent(TypeTopicStopped, topicID),
		RunID:       runID,
		PriorStatus: prior,
		Terminated:  terminated,
	}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// TopicLaunchFailedEvent is emitted when a dispatch could not spawn a worker.
type TopicLaunchFailedEvent struct {
	BaseEvent
	RunID string `json:"run_id"`
	Error string `json:"error"`
}

// NewTopicLaunchFailedEvent creates a new launch failure event.
func NewTopicLaunchFailedEvent(topicID, runID string, err error) TopicLaunchFailedEvent {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return TopicLaunchFailedEvent{
		BaseEvent: NewBaseEvent(TypeTopicLaunchFailed, topicID),
		RunID:     runID,
		Error:     msg,
	}
}

// TopicsRefreshedEvent is emitted after every filter pass, failed or not.
type TopicsRefreshedEvent struct {
	BaseEvent
	Candidates int    `json:"candidates"`
	NewTopics  int    `json:"new_topics"`
	Handled    int    `json:"handled_total"`
	Error      string `json:"error,omitempty"`
}

// NewTopicsRefreshedEvent creates a new refresh summary event.
func NewTopicsRefreshedEvent(candidates, newTopics, handled int, err error) TopicsRefreshedEvent {
	e := TopicsRefreshedEvent{
		BaseEvent:  NewBaseEvent(TypeTopicsRefreshed, ""),
		Candidates: candidates,
		NewTopics:  newTopics,
		Handled:    handled,
	}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}
