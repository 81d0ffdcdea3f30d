package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TopicStatus represents the lifecycle state of one topic's worker.
type TopicStatus string

const (
	TopicStatusPending TopicStatus = "pending"
	TopicStatusRunning TopicStatus = "running"
	TopicStatusExited  TopicStatus = "exited"
	TopicStatusError   TopicStatus = "error"
	TopicStatusStopped TopicStatus = "stopped"
)

// IsTerminal returns true for states that never transition again.
func (s TopicStatus) IsTerminal() bool {
	return s == TopicStatusExited || s == TopicStatusError || s == TopicStatusStopped
}

// Note strings recorded on a task.
const (
	NoteStarted        = "started"
	NoteStoppedByUser  = "stopped by user"
	noteFinishedFormat = "process finished rc=%d"
)

// FinishedNote formats the audit note recorded when a worker exits.
func FinishedNote(exitCode int) string {
	return fmt.Sprintf(noteFinishedFormat, exitCode)
}

// TopicTask tracks one topic in the running set.
// The live process handle is owned by the process supervisor; the task only
// mirrors its pid.
type TopicTask struct {
	TopicID       string
	RunID         string
	Status        TopicStatus
	EnqueuedAt    time.Time
	StartTime     time.Time
	LastHeartbeat time.Time
	Notes         []string
	PID           int
	LogPath       string
	ConfigPath    string
	ExitCode      *int
}

// NewTopicTask creates a pending task.
func NewTopicTask(topicID string, now time.Time) *TopicTask {
	return &TopicTask{
		TopicID:    topicID,
		Status:     TopicStatusPending,
		EnqueuedAt: now,
	}
}

// AddNote appends an entry to the audit log.
func (t *TopicTask) AddNote(note string) {
	t.Notes = append(t.Notes, note)
}

// LastNote returns the most recent note or "".
func (t *TopicTask) LastNote() string {
	if len(t.Notes) == 0 {
		return ""
	}
	return t.Notes[len(t.Notes)-1]
}

// MarkRunning records a successful dispatch.
func (t *TopicTask) MarkRunning(runID string, pid int, configPath, logPath string, now time.Time) error {
	if t.Status != TopicStatusPending {
		return fmt.Errorf("cannot start topic %s in %s state", t.TopicID, t.Status)
	}
	t.Status = TopicStatusRunning
	t.RunID = runID
	t.PID = pid
	t.ConfigPath = configPath
	t.LogPath = logPath
	t.StartTime = now
	t.LastHeartbeat = now
	t.AddNote(NoteStarted)
	return nil
}

// Heartbeat stamps liveness without changing status.
func (t *TopicTask) Heartbeat(now time.Time) {
	t.LastHeartbeat = now
}

// MarkFinished records a reaped worker. Only a running task changes status;
// a stopped task keeps Stopped but still gets the exit note.
func (t *TopicTask) MarkFinished(exitCode int, now time.Time) {
	if t.Status == TopicStatusRunning {
		if exitCode == 0 {
			t.Status = TopicStatusExited
		} else {
			t.Status = TopicStatusError
		}
	}
	code := exitCode
	t.ExitCode = &code
	t.PID = 0
	t.LastHeartbeat = now
	t.AddNote(FinishedNote(exitCode))
}

// MarkStopped forces the Stopped state from any prior state.
func (t *TopicTask) MarkStopped(now time.Time) {
	t.Status = TopicStatusStopped
	t.LastHeartbeat = now
	t.AddNote(NoteStoppedByUser)
}

// IsTerminal returns true if the task reached a final state.
func (t *TopicTask) IsTerminal() bool {
	return t.Status.IsTerminal()
}

// View returns a read-only copy for display and publication.
func (t *TopicTask) View() TopicView {
	return TopicView{
		TopicID:       t.TopicID,
		RunID:         t.RunID,
		Status:        t.Status,
		StartTime:     t.StartTime,
		LastHeartbeat: t.LastHeartbeat,
		PID:           t.PID,
		LogPath:       t.LogPath,
		ConfigPath:    t.ConfigPath,
		NoteCount:     len(t.Notes),
		LastNote:      t.LastNote(),
	}
}

// TopicView is the snapshot row of one task.
type TopicView struct {
	TopicID       string      `json:"topic_id"`
	RunID         string      `json:"run_id,omitempty"`
	Status        TopicStatus `json:"status"`
	StartTime     time.Time   `json:"start_time,omitempty"`
	LastHeartbeat time.Time   `json:"last_heartbeat,omitempty"`
	PID           int         `json:"pid,omitempty"`
	LogPath       string      `json:"log_path,omitempty"`
	ConfigPath    string      `json:"config_path,omitempty"`
	NoteCount     int         `json:"note_count"`
	LastNote      string      `json:"last_note,omitempty"`
	CPUPercent    float64     `json:"cpu_percent,omitempty"`
	RSSBytes      uint64      `json:"rss_bytes,omitempty"`
}

// TopicCandidate is one chosen record produced by the topic filter.
type TopicCandidate struct {
	Slug        string   `json:"slug"`
	TopicID     string   `json:"topic_id,omitempty"`
	Title       string   `json:"title"`
	YesToken    string   `json:"yes_token"`
	NoToken     string   `json:"no_token"`
	EndTime     *string  `json:"end_time"`
	Liquidity   *float64 `json:"liquidity"`
	TotalVolume *float64 `json:"total_volume"`
}

// ID returns the topic identifier: slug first, then topic_id, trimmed.
func (c TopicCandidate) ID() string {
	if id := strings.TrimSpace(c.Slug); id != "" {
		return id
	}
	return strings.TrimSpace(c.TopicID)
}

// EndTimeString returns the end time or "".
func (c TopicCandidate) EndTimeString() string {
	if c.EndTime == nil {
		return ""
	}
	return *c.EndTime
}

// FilterResult is the outcome of one filter invocation.
// Only Chosen is consumed by the scheduler; the other lists are counted for
// the snapshot file.
type FilterResult struct {
	TotalMarkets int               `json:"total_markets"`
	Candidates   []json.RawMessage `json:"candidates"`
	Chosen       []TopicCandidate  `json:"chosen"`
	Rejected     []json.RawMessage `json:"rejected"`
	Highlights   []json.RawMessage `json:"highlights"`
}

// SanitizeTopicFilename makes a topic id safe to embed in a file name.
func SanitizeTopicFilename(topicID string) string {
	return strings.NewReplacer("/", "_", `\`, "_").Replace(topicID)
}
