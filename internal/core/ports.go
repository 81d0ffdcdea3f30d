package core

import (
	"context"
	"time"
)

// =============================================================================
// Topic Filter Port
// =============================================================================

// TopicFilter produces the ordered candidate list for one refresh.
type TopicFilter interface {
	// Run invokes the filter with an explicit parameter set.
	Run(ctx context.Context, params FilterParams) (*FilterResult, error)
}

// =============================================================================
// Process Port
// =============================================================================

// LaunchSpec describes one worker dispatch.
type LaunchSpec struct {
	TopicID    string
	RunID      string
	ConfigPath string
	LogPath    string
}

// ProcessLauncher owns worker process handles keyed by topic id.
type ProcessLauncher interface {
	// Start spawns a worker and returns its pid.
	Start(spec LaunchSpec) (int, error)

	// Poll reports the exit code once the worker has terminated. It never blocks.
	// A reaped handle is released.
	Poll(topicID string) (exitCode int, exited bool)

	// Terminate requests graceful termination. It does not wait.
	Terminate(topicID string) error

	// Has reports whether a handle is registered for the topic.
	Has(topicID string) bool
}

// =============================================================================
// Run Config Port
// =============================================================================

// RunConfigWriter materializes the per-topic worker configuration and
// returns the path handed to the worker.
type RunConfigWriter interface {
	Write(topicID string) (string, error)
}

// =============================================================================
// Run Ledger Port
// =============================================================================

// RunEventKind identifies a ledger row type.
type RunEventKind string

const (
	RunEventDispatched   RunEventKind = "dispatched"
	RunEventFinished     RunEventKind = "finished"
	RunEventStopped      RunEventKind = "stopped"
	RunEventLaunchFailed RunEventKind = "launch_failed"
)

// RunEvent is one history entry for a dispatch.
type RunEvent struct {
	RunID     string       `json:"run_id"`
	TopicID   string       `json:"topic_id"`
	Kind      RunEventKind `json:"kind"`
	Status    TopicStatus  `json:"status"`
	PID       int          `json:"pid,omitempty"`
	ExitCode  *int         `json:"exit_code,omitempty"`
	Detail    string       `json:"detail,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// RunQuery filters ledger history.
type RunQuery struct {
	TopicID string
	Limit   int
}

// RunLedger persists dispatch history.
type RunLedger interface {
	Record(ctx context.Context, ev RunEvent) error
	History(ctx context.Context, q RunQuery) ([]RunEvent, error)
	Close() error
}
