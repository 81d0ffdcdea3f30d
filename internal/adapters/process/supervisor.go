// Package process starts and tracks worker processes, one per topic.
package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/hugo-lorenzo-mato/autorun/internal/core"
	"github.com/hugo-lorenzo-mato/autorun/internal/logging"
)

// Environment variables handed to every worker.
const (
	EnvManaged = "AUTORUN_MANAGED"
	EnvTopicID = "AUTORUN_TOPIC_ID"
	EnvRunID   = "AUTORUN_RUN_ID"
)

// handle is the supervisor's private token for one live worker.
type handle struct {
	cmd      *exec.Cmd
	runID    string
	sink     *os.File
	done     chan struct{}
	exitCode int
}

// Supervisor implements core.ProcessLauncher. Handles are kept in an arena
// keyed by topic id and released when a poll observes the exit.
type Supervisor struct {
	argv    []string
	workDir string
	logger  *logging.Logger

	mu    sync.Mutex
	arena map[string]*handle
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithWorkDir sets the working directory of spawned workers.
func WithWorkDir(dir string) Option {
	return func(s *Supervisor) {
		s.workDir = dir
	}
}

// NewSupervisor creates a supervisor that runs argv followed by the
// run-config path.
func NewSupervisor(argv []string, logger *logging.Logger, opts ...Option) *Supervisor {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Supervisor{
		argv:   append([]string(nil), argv...),
		logger: logger.WithComponent("supervisor"),
		arena:  make(map[string]*handle),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start spawns a worker for spec.TopicID and returns its pid.
func (s *Supervisor) Start(spec core.LaunchSpec) (int, error) {
	if len(s.argv) == 0 {
		return 0, core.ErrLaunch(spec.TopicID, "worker command not configured", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.arena[spec.TopicID]; ok {
		return 0, core.ErrLaunch(spec.TopicID, "worker already live", nil)
	}

	sink, err := openSink(spec.LogPath)
	if err != nil {
		return 0, core.ErrLaunch(spec.TopicID, "cannot open log sink", err)
	}

	args := append(append([]string(nil), s.argv[1:]...), spec.ConfigPath)
	// #nosec G204 -- argv comes from the operator's global config
	cmd := exec.Command(s.argv[0], args...)
	configureProcAttr(cmd)
	cmd.Dir = s.workDir
	cmd.Stdout = sink
	cmd.Stderr = sink
	cmd.Env = append(os.Environ(),
		EnvManaged+"=true",
		EnvTopicID+"="+spec.TopicID,
		EnvRunID+"="+spec.RunID,
	)

	if err := cmd.Start(); err != nil {
		_ = sink.Close()
		return 0, core.ErrLaunch(spec.TopicID, "cannot spawn worker", err)
	}

	h := &handle{
		cmd:   cmd,
		runID: spec.RunID,
		sink:  sink,
		done:  make(chan struct{}),
	}
	s.arena[spec.TopicID] = h
	go h.wait()

	s.logger.Debug("supervisor: process started",
		"topic_id", spec.TopicID,
		"run_id", spec.RunID,
		"pid", cmd.Process.Pid,
		"log", spec.LogPath,
	)
	return cmd.Process.Pid, nil
}

func (h *handle) wait() {
	err := h.cmd.Wait()
	h.exitCode = exitCodeOf(h.cmd, err)
	_ = h.sink.Close()
	close(h.done)
}

// Poll reports the exit code once the worker has terminated. The handle is
// released on the first poll that observes the exit.
func (s *Supervisor) Poll(topicID string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.arena[topicID]
	if !ok {
		return 0, false
	}
	select {
	case <-h.done:
		delete(s.arena, topicID)
		return h.exitCode, true
	default:
		return 0, false
	}
}

// Terminate requests a graceful stop and returns without waiting.
func (s *Supervisor) Terminate(topicID string) error {
	s.mu.Lock()
	h, ok := s.arena[topicID]
	s.mu.Unlock()
	if !ok {
		return nil
	}

	select {
	case <-h.done:
		return nil
	default:
	}

	if err := terminate(h.cmd); err != nil {
		return core.ErrProcessTermination(topicID, err)
	}
	s.logger.Debug("supervisor: termination requested",
		"topic_id", topicID, "pid", h.cmd.Process.Pid)
	return nil
}

// Has reports whether a handle for topicID is held.
func (s *Supervisor) Has(topicID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.arena[topicID]
	return ok
}

// Live returns the number of held handles.
func (s *Supervisor) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.arena)
}

func openSink(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating log dir: %w", err)
		}
	}
	// #nosec G304 -- path is built from the configured log dir
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func exitCodeOf(cmd *exec.Cmd, err error) int {
	if cmd.ProcessState != nil {
		return processStateCode(cmd.ProcessState)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

var _ core.ProcessLauncher = (*Supervisor)(nil)
