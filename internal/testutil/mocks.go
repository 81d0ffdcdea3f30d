package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/autorun/internal/core"
)

// MockCall records a call to a mock.
type MockCall struct {
	Method    string
	Args      interface{}
	Timestamp time.Time
}

type callLog struct {
	mu    sync.Mutex
	calls []MockCall
}

func (c *callLog) record(method string, args interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, MockCall{Method: method, Args: args, Timestamp: time.Now()})
}

// Calls returns recorded calls.
func (c *callLog) Calls() []MockCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]MockCall(nil), c.calls...)
}

// CallCount returns the number of calls to method.
func (c *callLog) CallCount(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.calls {
		if call.Method == method {
			n++
		}
	}
	return n
}

// =============================================================================
// MockLauncher
// =============================================================================

type mockProc struct {
	pid      int
	exited   bool
	exitCode int
}

// MockLauncher implements core.ProcessLauncher with processes whose exit is
// driven by the test through Exit.
type MockLauncher struct {
	callLog

	mu            sync.Mutex
	procs         map[string]*mockProc
	nextPID       int
	startErrs     map[string]error
	terminateErr  error
	exitOnSignal  bool
	started       []core.LaunchSpec
	terminateReqs []string
}

// NewMockLauncher creates a launcher handing out pids from 1000.
func NewMockLauncher() *MockLauncher {
	return &MockLauncher{
		procs:     make(map[string]*mockProc),
		nextPID:   1000,
		startErrs: make(map[string]error),
	}
}

// FailStart makes Start fail for topicID.
func (m *MockLauncher) FailStart(topicID string, err error) *MockLauncher {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startErrs[topicID] = err
	return m
}

// FailTerminate makes every Terminate call fail with err.
func (m *MockLauncher) FailTerminate(err error) *MockLauncher {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.terminateErr = err
	return m
}

// ExitOnTerminate makes a successful Terminate exit the worker with -15.
func (m *MockLauncher) ExitOnTerminate() *MockLauncher {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exitOnSignal = true
	return m
}

// Start registers a live process.
func (m *MockLauncher) Start(spec core.LaunchSpec) (int, error) {
	m.record("Start", spec)
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.startErrs[spec.TopicID]; ok {
		return 0, core.ErrLaunch(spec.TopicID, "mock start failure", err)
	}
	if _, ok := m.procs[spec.TopicID]; ok {
		return 0, core.ErrLaunch(spec.TopicID, "worker already live", nil)
	}
	m.nextPID++
	m.procs[spec.TopicID] = &mockProc{pid: m.nextPID}
	m.started = append(m.started, spec)
	return m.nextPID, nil
}

// Poll returns the exit code once Exit was called, releasing the handle.
func (m *MockLauncher) Poll(topicID string) (int, bool) {
	m.record("Poll", topicID)
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.procs[topicID]
	if !ok || !p.exited {
		return 0, false
	}
	delete(m.procs, topicID)
	return p.exitCode, true
}

// Terminate records the request.
func (m *MockLauncher) Terminate(topicID string) error {
	m.record("Terminate", topicID)
	m.mu.Lock()
	defer m.mu.Unlock()

	m.terminateReqs = append(m.terminateReqs, topicID)
	if m.terminateErr != nil {
		return core.ErrProcessTermination(topicID, m.terminateErr)
	}
	if p, ok := m.procs[topicID]; ok && m.exitOnSignal {
		p.exited = true
		p.exitCode = -15
	}
	return nil
}

// Has reports whether a handle is held.
func (m *MockLauncher) Has(topicID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.procs[topicID]
	return ok
}

// Exit marks the worker for topicID as terminated with code.
func (m *MockLauncher) Exit(topicID string, code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.procs[topicID]; ok {
		p.exited = true
		p.exitCode = code
	}
}

// Live returns the number of held handles.
func (m *MockLauncher) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.procs)
}

// Started returns every successful launch in order.
func (m *MockLauncher) Started() []core.LaunchSpec {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.LaunchSpec(nil), m.started...)
}

// StartedIDs returns the topic ids of every successful launch in order.
func (m *MockLauncher) StartedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.started))
	for _, s := range m.started {
		ids = append(ids, s.TopicID)
	}
	return ids
}

// TerminateRequests returns the topic ids passed to Terminate.
func (m *MockLauncher) TerminateRequests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.terminateReqs...)
}

var _ core.ProcessLauncher = (*MockLauncher)(nil)

// =============================================================================
// MockFilter
// =============================================================================

// MockFilter implements core.TopicFilter with scripted responses. Once the
// script is exhausted the last response repeats.
type MockFilter struct {
	callLog

	mu        sync.Mutex
	responses []filterResponse
	params    []core.FilterParams
}

type filterResponse struct {
	result *core.FilterResult
	err    error
}

// NewMockFilter creates a filter returning an empty result.
func NewMockFilter() *MockFilter {
	return &MockFilter{}
}

// ThenChosen appends a response choosing the given slugs.
func (m *MockFilter) ThenChosen(slugs ...string) *MockFilter {
	chosen := make([]core.TopicCandidate, 0, len(slugs))
	for _, s := range slugs {
		chosen = append(chosen, core.TopicCandidate{Slug: s, Title: "Title of " + s})
	}
	return m.ThenResult(&core.FilterResult{TotalMarkets: len(slugs) * 10, Chosen: chosen})
}

// ThenResult appends a response.
func (m *MockFilter) ThenResult(r *core.FilterResult) *MockFilter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, filterResponse{result: r})
	return m
}

// ThenError appends a failing response.
func (m *MockFilter) ThenError(err error) *MockFilter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, filterResponse{err: err})
	return m
}

// Run returns the next scripted response.
func (m *MockFilter) Run(ctx context.Context, params core.FilterParams) (*core.FilterResult, error) {
	m.record("Run", params)
	if err := ctx.Err(); err != nil {
		return nil, core.ErrFilterInvocation(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.params = append(m.params, params)

	if len(m.responses) == 0 {
		return &core.FilterResult{}, nil
	}
	resp := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	if resp.err != nil {
		return nil, core.ErrFilterInvocation(resp.err)
	}
	return resp.result, nil
}

// Params returns the parameter sets received, in call order.
func (m *MockFilter) Params() []core.FilterParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.FilterParams(nil), m.params...)
}

var _ core.TopicFilter = (*MockFilter)(nil)

// =============================================================================
// MockConfigWriter
// =============================================================================

// MockConfigWriter implements core.RunConfigWriter without touching disk.
type MockConfigWriter struct {
	callLog

	mu   sync.Mutex
	dir  string
	errs map[string]error
}

// NewMockConfigWriter creates a writer reporting paths under dir.
func NewMockConfigWriter(dir string) *MockConfigWriter {
	return &MockConfigWriter{dir: dir, errs: make(map[string]error)}
}

// FailWrite makes Write fail for topicID.
func (m *MockConfigWriter) FailWrite(topicID string, err error) *MockConfigWriter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[topicID] = err
	return m
}

// Write returns the would-be config path.
func (m *MockConfigWriter) Write(topicID string) (string, error) {
	m.record("Write", topicID)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.errs[topicID]; ok {
		return "", fmt.Errorf("writing run config for %s: %w", topicID, err)
	}
	return filepath.Join(m.dir, "run_params_"+core.SanitizeTopicFilename(topicID)+".json"), nil
}

var _ core.RunConfigWriter = (*MockConfigWriter)(nil)
