// Package scheduler holds the per-topic state machine, the FIFO pending
// queue and the concurrency cap. A Scheduler is owned by the control loop
// goroutine and is not safe for concurrent use.
package scheduler

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sahilm/fuzzy"

	"github.com/hugo-lorenzo-mato/autorun/internal/core"
	"github.com/hugo-lorenzo-mato/autorun/internal/fsutil"
	"github.com/hugo-lorenzo-mato/autorun/internal/logging"
)

// LogFilePrefix is the file name prefix of worker logs under the log dir.
const LogFilePrefix = "autorun_"

// Options configures a Scheduler.
type Options struct {
	MaxConcurrent int
	LogDir        string
	Now           func() time.Time
	NewRunID      func() string
}

// Dispatched describes a worker started during a tick.
type Dispatched struct {
	TopicID    string
	RunID      string
	PID        int
	ConfigPath string
	LogPath    string
}

// Finished describes a worker reaped during a tick.
type Finished struct {
	TopicID  string
	RunID    string
	ExitCode int
	Status   core.TopicStatus
	Duration time.Duration
}

// LaunchFailure describes a dispatch that could not start. The topic is
// dropped and not retried.
type LaunchFailure struct {
	TopicID string
	RunID   string
	Err     error
}

// TickReport is everything that changed during one tick.
type TickReport struct {
	Finished   []Finished
	Dispatched []Dispatched
	Failed     []LaunchFailure
}

// Empty reports whether the tick changed nothing.
func (r TickReport) Empty() bool {
	return len(r.Finished) == 0 && len(r.Dispatched) == 0 && len(r.Failed) == 0
}

// StopResult describes a processed stop request.
type StopResult struct {
	TopicID    string
	RunID      string
	Prior      core.TopicStatus
	Terminated bool
	// TerminateErr is set when a termination request failed. The task is
	// Stopped regardless.
	TerminateErr error
}

// Scheduler tracks topic tasks and dispatches pending topics in FIFO order
// while fewer than the cap are running.
type Scheduler struct {
	launcher core.ProcessLauncher
	configs  core.RunConfigWriter
	logger   *logging.Logger

	maxConcurrent int
	logDir        string
	now           func() time.Time
	newRunID      func() string

	tasks map[string]*core.TopicTask
	order []string
	queue []string
}

// New creates a scheduler.
func New(launcher core.ProcessLauncher, configs core.RunConfigWriter, logger *logging.Logger, opts Options) *Scheduler {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewRunID == nil {
		opts.NewRunID = func() string { return uuid.New().String() }
	}
	return &Scheduler{
		launcher:      launcher,
		configs:       configs,
		logger:        logger.WithComponent("scheduler"),
		maxConcurrent: max(1, opts.MaxConcurrent),
		logDir:        opts.LogDir,
		now:           opts.Now,
		newRunID:      opts.NewRunID,
		tasks:         make(map[string]*core.TopicTask),
	}
}

// Cap returns the enforced concurrency ceiling.
func (s *Scheduler) Cap() int {
	return s.maxConcurrent
}

// Enqueue adds topicID to the tail of the pending queue and creates its
// pending task. It returns false when the topic is already queued, live, or
// terminal.
func (s *Scheduler) Enqueue(topicID string) bool {
	if topicID == "" {
		return false
	}
	if _, ok := s.tasks[topicID]; ok {
		return false
	}
	if s.launcher.Has(topicID) {
		return false
	}
	s.tasks[topicID] = core.NewTopicTask(topicID, s.now())
	s.order = append(s.order, topicID)
	s.queue = append(s.queue, topicID)
	return true
}

// Tick reaps finished workers, then dispatches pending topics up to the cap.
func (s *Scheduler) Tick() TickReport {
	var report TickReport
	now := s.now()

	for _, id := range s.order {
		task := s.tasks[id]
		if !s.launcher.Has(id) {
			continue
		}
		code, exited := s.launcher.Poll(id)
		if !exited {
			task.Heartbeat(now)
			continue
		}
		task.MarkFinished(code, now)
		report.Finished = append(report.Finished, Finished{
			TopicID:  id,
			RunID:    task.RunID,
			ExitCode: code,
			Status:   task.Status,
			Duration: now.Sub(task.StartTime),
		})
	}

	running := s.Running()
	for running < s.maxConcurrent && len(s.queue) > 0 {
		id := s.queue[0]
		s.queue = s.queue[1:]

		task, ok := s.tasks[id]
		if !ok || task.Status != core.TopicStatusPending || s.launcher.Has(id) {
			s.logger.Debug("scheduler: skipping queued topic", "topic_id", id)
			continue
		}

		d, err := s.dispatch(task, now)
		if err != nil {
			s.removeTask(id)
			report.Failed = append(report.Failed, LaunchFailure{TopicID: id, RunID: d.RunID, Err: err})
			continue
		}
		report.Dispatched = append(report.Dispatched, d)
		running++
	}

	return report
}

func (s *Scheduler) dispatch(task *core.TopicTask, now time.Time) (Dispatched, error) {
	d := Dispatched{
		TopicID: task.TopicID,
		RunID:   s.newRunID(),
		LogPath: fsutil.TopicFile(s.logDir, LogFilePrefix, task.TopicID, ".log"),
	}

	cfgPath, err := s.configs.Write(task.TopicID)
	if err != nil {
		return d, core.ErrLaunch(task.TopicID, "cannot write run config", err)
	}
	d.ConfigPath = cfgPath

	pid, err := s.launcher.Start(core.LaunchSpec{
		TopicID:    task.TopicID,
		RunID:      d.RunID,
		ConfigPath: cfgPath,
		LogPath:    d.LogPath,
	})
	if err != nil {
		return d, err
	}
	d.PID = pid

	if err := task.MarkRunning(d.RunID, pid, cfgPath, d.LogPath, now); err != nil {
		return d, fmt.Errorf("marking %s running: %w", task.TopicID, err)
	}
	return d, nil
}

// Stop forces topicID to Stopped. A live worker gets a termination request
// first; a failed request is reported in the result but does not prevent
// the transition. Unknown ids return a TopicNotFound error.
func (s *Scheduler) Stop(topicID string) (StopResult, error) {
	task, ok := s.tasks[topicID]
	if !ok {
		return StopResult{TopicID: topicID}, core.ErrTopicNotFound(topicID)
	}

	res := StopResult{TopicID: topicID, RunID: task.RunID, Prior: task.Status}
	if s.launcher.Has(topicID) {
		if err := s.launcher.Terminate(topicID); err != nil {
			res.TerminateErr = err
		} else {
			res.Terminated = true
		}
	}

	task.MarkStopped(s.now())
	s.dequeue(topicID)
	return res, nil
}

// Suggest returns up to three known topic ids resembling topicID.
func (s *Scheduler) Suggest(topicID string) []string {
	matches := fuzzy.Find(topicID, s.order)
	out := make([]string, 0, 3)
	for _, m := range matches {
		if len(out) == 3 {
			break
		}
		out = append(out, m.Str)
	}
	return out
}

// Running counts tasks in the Running state.
func (s *Scheduler) Running() int {
	n := 0
	for _, t := range s.tasks {
		if t.Status == core.TopicStatusRunning {
			n++
		}
	}
	return n
}

// QueueLen returns the number of queued topic ids.
func (s *Scheduler) QueueLen() int {
	return len(s.queue)
}

// Queue returns a copy of the pending queue in dispatch order.
func (s *Scheduler) Queue() []string {
	return append([]string(nil), s.queue...)
}

// Task returns the view of one task.
func (s *Scheduler) Task(topicID string) (core.TopicView, bool) {
	t, ok := s.tasks[topicID]
	if !ok {
		return core.TopicView{}, false
	}
	return t.View(), true
}

// Snapshot returns a read-only view of every task in creation order.
func (s *Scheduler) Snapshot() []core.TopicView {
	views := make([]core.TopicView, 0, len(s.order))
	for _, id := range s.order {
		views = append(views, s.tasks[id].View())
	}
	return views
}

func (s *Scheduler) dequeue(topicID string) {
	kept := s.queue[:0]
	for _, id := range s.queue {
		if id != topicID {
			kept = append(kept, id)
		}
	}
	s.queue = kept
}

func (s *Scheduler) removeTask(topicID string) {
	delete(s.tasks, topicID)
	for i, id := range s.order {
		if id == topicID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
