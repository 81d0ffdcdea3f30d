// Package filter runs the external topic filter program and records its
// output.
package filter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/hugo-lorenzo-mato/autorun/internal/core"
	"github.com/hugo-lorenzo-mato/autorun/internal/logging"
)

// DefaultTimeout bounds one filter invocation when none is configured.
const DefaultTimeout = 5 * time.Minute

// CommandFilter implements core.TopicFilter by running a program that reads
// FilterParams as JSON on stdin and prints a FilterResult as JSON on stdout.
type CommandFilter struct {
	argv    []string
	timeout time.Duration
	workDir string
	logger  *logging.Logger
}

// Option configures a CommandFilter.
type Option func(*CommandFilter)

// WithTimeout sets the per-invocation deadline.
func WithTimeout(d time.Duration) Option {
	return func(f *CommandFilter) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithWorkDir sets the working directory of the filter program.
func WithWorkDir(dir string) Option {
	return func(f *CommandFilter) {
		f.workDir = dir
	}
}

// NewCommandFilter creates a filter client for argv.
func NewCommandFilter(argv []string, logger *logging.Logger, opts ...Option) *CommandFilter {
	if logger == nil {
		logger = logging.NewNop()
	}
	f := &CommandFilter{
		argv:    append([]string(nil), argv...),
		timeout: DefaultTimeout,
		logger:  logger.WithComponent("filter"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run invokes the filter once. Every failure is returned as a
// FilterInvocationError.
func (f *CommandFilter) Run(ctx context.Context, params core.FilterParams) (*core.FilterResult, error) {
	if len(f.argv) == 0 {
		return nil, core.ErrFilterInvocation(errors.New("filter command not configured"))
	}

	input, err := json.Marshal(params)
	if err != nil {
		return nil, core.ErrFilterInvocation(fmt.Errorf("encoding params: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	// #nosec G204 -- argv comes from the operator's global config
	cmd := exec.CommandContext(ctx, f.argv[0], f.argv[1:]...)
	configureProcAttr(cmd)
	cmd.Dir = f.workDir
	cmd.Stdin = bytes.NewReader(input)
	cmd.Env = append(os.Environ(), "AUTORUN_MANAGED=true")
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	f.logger.Debug("filter: executing command", "argv", f.argv, "timeout", f.timeout)
	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, core.ErrFilterInvocation(
			core.ErrTimeout(fmt.Sprintf("filter timed out after %v", f.timeout)))
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return nil, core.ErrFilterInvocation(
				fmt.Errorf("exit code %d: %s", exitErr.ExitCode(), truncate(stderr.String(), 2000))).
				WithDetail("exit_code", exitErr.ExitCode())
		}
		return nil, core.ErrFilterInvocation(runErr)
	}

	var result core.FilterResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return nil, core.ErrFilterInvocation(fmt.Errorf("decoding filter output: %w", err))
	}

	f.logger.Info("filter: completed",
		"duration", duration.Round(time.Millisecond),
		"total_markets", result.TotalMarkets,
		"chosen", len(result.Chosen),
	)
	return &result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "... [truncated]"
}

var _ core.TopicFilter = (*CommandFilter)(nil)
