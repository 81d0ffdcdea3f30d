// Package autorun drives the fleet: it drains operator commands, ticks the
// scheduler, refreshes the topic list and publishes a read-only status.
package autorun

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/hugo-lorenzo-mato/autorun/internal/adapters/filter"
	"github.com/hugo-lorenzo-mato/autorun/internal/adapters/state"
	"github.com/hugo-lorenzo-mato/autorun/internal/config"
	"github.com/hugo-lorenzo-mato/autorun/internal/control"
	"github.com/hugo-lorenzo-mato/autorun/internal/core"
	"github.com/hugo-lorenzo-mato/autorun/internal/diagnostics"
	"github.com/hugo-lorenzo-mato/autorun/internal/events"
	"github.com/hugo-lorenzo-mato/autorun/internal/logging"
	"github.com/hugo-lorenzo-mato/autorun/internal/service/runconfig"
	"github.com/hugo-lorenzo-mato/autorun/internal/service/scheduler"
)

// Deps are the collaborators owned by the loop goroutine, plus optional
// observers. Events, Sampler and LoadStrategy may be nil.
type Deps struct {
	Scheduler    *scheduler.Scheduler
	Handled      *state.HandledTopicsStore
	Filter       core.TopicFilter
	FilterParams core.FilterParams
	Builder      *runconfig.Builder
	Commands     *control.CommandBus
	Events       *events.EventBus
	Sampler      *diagnostics.WorkerSampler
	LoadStrategy func() (*config.StrategyDefaults, error)
	Console      io.Writer
	Logger       *logging.Logger
	Now          func() time.Time
}

// Options are the loop timings.
type Options struct {
	TickInterval    time.Duration
	RefreshInterval time.Duration
	// SnapshotPath receives the filter snapshot after each successful
	// refresh. Empty disables it.
	SnapshotPath string
}

// Loop is the single writer of scheduler, handled-set and supervisor state.
type Loop struct {
	deps   Deps
	opts   Options
	logger *logging.Logger

	status atomic.Pointer[Status]

	tick             uint64
	lastRefresh      time.Time
	lastRefreshErr   string
	latestCandidates int
	printed          map[string]string
	metrics          FleetMetrics
}

// New creates a control loop.
func New(deps Deps, opts Options) *Loop {
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Console == nil {
		deps.Console = io.Discard
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 10 * time.Second
	}
	l := &Loop{
		deps:    deps,
		opts:    opts,
		logger:  deps.Logger.WithComponent("autorun"),
		printed: make(map[string]string),
	}
	l.metrics.StartTime = deps.Now()
	return l
}

// Status returns the latest published status, or nil before the first
// publication. Safe for concurrent use.
func (l *Loop) Status() *Status {
	return l.status.Load()
}

// Run refreshes once, then ticks until a quit command arrives or ctx is
// cancelled. The current tick always completes. Live workers are left
// running.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("autorun: starting",
		"tick_interval", l.opts.TickInterval,
		"refresh_interval", l.opts.RefreshInterval,
		"max_concurrent", l.deps.Scheduler.Cap(),
		"handled", l.deps.Handled.Len(),
	)

	l.Refresh(ctx)
	l.publish()

	ticker := time.NewTicker(l.opts.TickInterval)
	defer ticker.Stop()

	for ctx.Err() == nil {
		if l.Step(ctx) {
			break
		}
		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
	}

	l.logger.Info("autorun: stopped",
		"ticks", l.tick,
		"running", l.deps.Scheduler.Running(),
	)
	return nil
}

// Step runs one tick: drain commands, reap and dispatch, log status lines,
// refresh when due, publish. It reports whether quit was requested.
func (l *Loop) Step(ctx context.Context) bool {
	quit := l.drainCommands(ctx)

	report := l.deps.Scheduler.Tick()
	l.metrics.recordTick(report)
	l.announce(report)
	l.logStatusLines()

	if !quit && l.deps.Now().Sub(l.lastRefresh) >= l.opts.RefreshInterval {
		l.Refresh(ctx)
	}

	l.tick++
	l.publish()
	return quit
}

func (l *Loop) drainCommands(ctx context.Context) bool {
	quit := false
	for _, env := range l.deps.Commands.Drain() {
		cmd, ok := control.Parse(env.Line)
		if !ok {
			continue
		}
		l.metrics.CommandsHandled++
		if l.handle(ctx, cmd, env.Source) {
			quit = true
		}
	}
	return quit
}

func (l *Loop) handle(ctx context.Context, cmd control.Command, source string) bool {
	switch cmd.Kind {
	case control.CmdQuit:
		l.logger.Info("autorun: exit requested", "source", source)
		return true
	case control.CmdList:
		l.publish()
		RenderList(l.deps.Console, l.Status())
	case control.CmdStop:
		l.stop(cmd.TopicID, source)
	case control.CmdRefresh:
		l.logger.Info("autorun: refresh requested", "source", source)
		l.Refresh(ctx)
	case control.CmdReload:
		l.reload(source)
	case control.CmdHelp:
		fmt.Fprintln(l.deps.Console, control.HelpText)
	default:
		l.logger.Warn("autorun: ignoring command",
			"source", source,
			"error", core.ErrUnknownCommand(cmd.Raw))
	}
	return false
}

func (l *Loop) stop(topicID, source string) {
	res, err := l.deps.Scheduler.Stop(topicID)
	if err != nil {
		l.logger.Warn("autorun: topic not in task list",
			"topic_id", topicID,
			"source", source,
			"did_you_mean", l.deps.Scheduler.Suggest(topicID),
		)
		return
	}
	if res.TerminateErr != nil {
		l.logger.Warn("autorun: cannot terminate worker",
			"topic_id", topicID, "error", res.TerminateErr)
	}
	l.metrics.Stopped++
	l.logger.Info("autorun: stop topic",
		"topic_id", topicID,
		"prior_status", res.Prior,
		"terminated", res.Terminated,
		"source", source,
	)
	l.emit(events.NewTopicStoppedEvent(topicID, res.RunID, res.Prior, res.Terminated, res.TerminateErr))
}

func (l *Loop) reload(source string) {
	if l.deps.LoadStrategy == nil || l.deps.Builder == nil {
		l.logger.Warn("autorun: reload unavailable", "source", source)
		return
	}
	strategy, err := l.deps.LoadStrategy()
	if err != nil {
		l.logger.Warn("autorun: strategy reload failed, keeping previous defaults",
			"source", source, "error", err)
		return
	}
	l.deps.Builder.Reload(strategy)
	l.logger.Info("autorun: strategy defaults reloaded",
		"source", source, "topic_overrides", len(strategy.Topics))
}

// Refresh runs one filter pass, persists newly seen topics and enqueues
// them. A failed filter call counts as an empty pass.
func (l *Loop) Refresh(ctx context.Context) {
	now := l.deps.Now()
	l.lastRefresh = now
	l.metrics.Refreshes++

	result, err := l.deps.Filter.Run(ctx, l.deps.FilterParams)
	if err != nil {
		l.metrics.RefreshFailures++
		l.lastRefreshErr = err.Error()
		l.latestCandidates = 0
		l.logger.Error("autorun: topic filter failed", "error", err)
		l.emit(events.NewTopicsRefreshedEvent(0, 0, l.deps.Handled.Len(), err))
		return
	}
	l.lastRefreshErr = ""
	l.latestCandidates = len(result.Chosen)

	if l.opts.SnapshotPath != "" {
		snap := filter.NewSnapshot(l.deps.FilterParams, result, now)
		if err := filter.WriteSnapshot(l.opts.SnapshotPath, snap); err != nil {
			l.logger.Warn("autorun: cannot write filter snapshot",
				"path", l.opts.SnapshotPath, "error", err)
		}
	}
	if l.deps.Builder != nil {
		l.deps.Builder.SetMetadata(result.Chosen)
	}

	newTopics := core.ComputeNewTopics(result.Chosen, l.deps.Handled.Set())
	if len(newTopics) == 0 {
		l.logger.Info("autorun: no new topics",
			"candidates", len(result.Chosen), "handled", l.deps.Handled.Len())
		l.emit(events.NewTopicsRefreshedEvent(len(result.Chosen), 0, l.deps.Handled.Len(), nil))
		return
	}

	l.logger.Info("autorun: new topics",
		"count", len(newTopics),
		"preview", preview(newTopics, 5),
		"candidates", len(result.Chosen),
	)
	if err := l.deps.Handled.AddAndSave(newTopics); err != nil {
		// The in-memory set already holds the ids, so they are still
		// dispatched at most once by this process.
		l.logger.Error("autorun: cannot persist handled topics",
			"path", l.deps.Handled.Path(), "error", err)
	}
	for _, id := range newTopics {
		if l.deps.Scheduler.Enqueue(id) {
			l.metrics.TopicsEnqueued++
			l.emit(events.NewTopicEnqueuedEvent(id, l.deps.Scheduler.QueueLen()))
		}
	}
	l.emit(events.NewTopicsRefreshedEvent(len(result.Chosen), len(newTopics), l.deps.Handled.Len(), nil))
}

func (l *Loop) announce(r scheduler.TickReport) {
	for _, f := range r.Finished {
		level := l.logger.Info
		if f.Status == core.TopicStatusError {
			level = l.logger.Warn
		}
		level("autorun: worker finished",
			"topic_id", f.TopicID,
			"run_id", f.RunID,
			"exit_code", f.ExitCode,
			"status", f.Status,
			"duration", f.Duration.Round(time.Second),
		)
		l.emit(events.NewTopicFinishedEvent(f.TopicID, f.RunID, f.ExitCode, f.Status, f.Duration))
	}
	for _, d := range r.Dispatched {
		l.logger.Info("autorun: worker started",
			"topic_id", d.TopicID,
			"run_id", d.RunID,
			"pid", d.PID,
			"log", d.LogPath,
		)
		l.emit(events.NewTopicDispatchedEvent(d.TopicID, d.RunID, d.PID, d.ConfigPath, d.LogPath))
	}
	for _, f := range r.Failed {
		l.logger.Error("autorun: launch failed, topic dropped",
			"topic_id", f.TopicID,
			"run_id", f.RunID,
			"error", f.Err,
		)
		l.emit(events.NewTopicLaunchFailedEvent(f.TopicID, f.RunID, f.Err))
	}
}

// logStatusLines logs one line per task: Info when the status or last note
// changed since the previous line for that topic, Debug otherwise.
func (l *Loop) logStatusLines() {
	for _, v := range l.deps.Scheduler.Snapshot() {
		note := v.LastNote
		if note == "" {
			note = "idle"
		}
		key := string(v.Status) + "|" + note
		log := l.logger.Debug
		if l.printed[v.TopicID] != key {
			log = l.logger.Info
			l.printed[v.TopicID] = key
		}
		log("autorun: topic status", "topic_id", v.TopicID, "status", v.Status, "last_note", note)
	}
}

func (l *Loop) publish() {
	views := l.deps.Scheduler.Snapshot()
	if l.deps.Sampler != nil {
		live := make(map[int]struct{})
		for i := range views {
			if views[i].PID <= 0 {
				continue
			}
			live[views[i].PID] = struct{}{}
			if usage, ok := l.deps.Sampler.Sample(views[i].PID); ok {
				views[i].CPUPercent = usage.CPUPercent
				views[i].RSSBytes = usage.RSSBytes
			}
		}
		l.deps.Sampler.Prune(live)
	}

	l.status.Store(&Status{
		UpdatedAt:        l.deps.Now(),
		Tick:             l.tick,
		Running:          l.deps.Scheduler.Running(),
		Pending:          l.deps.Scheduler.QueueLen(),
		Cap:              l.deps.Scheduler.Cap(),
		Handled:          l.deps.Handled.Len(),
		LastRefresh:      l.lastRefresh,
		LastRefreshError: l.lastRefreshErr,
		LatestCandidates: l.latestCandidates,
		Metrics:          l.metrics,
		Topics:           views,
	})
}

func (l *Loop) emit(ev events.Event) {
	if l.deps.Events != nil {
		l.deps.Events.Publish(ev)
	}
}

func preview(ids []string, n int) []string {
	if len(ids) <= n {
		return ids
	}
	return ids[:n]
}
