package scheduler

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/autorun/internal/core"
	"github.com/hugo-lorenzo-mato/autorun/internal/testutil"
)

type fixture struct {
	sched    *Scheduler
	launcher *testutil.MockLauncher
	configs  *testutil.MockConfigWriter
	clock    *testutil.Clock
}

func newFixture(t *testing.T, maxConcurrent int) *fixture {
	t.Helper()
	launcher := testutil.NewMockLauncher()
	configs := testutil.NewMockConfigWriter(filepath.Join("data"))
	clock := testutil.NewClock()
	seq := 0
	s := New(launcher, configs, nil, Options{
		MaxConcurrent: maxConcurrent,
		LogDir:        filepath.Join("logs", "autorun"),
		Now:           clock.Now,
		NewRunID: func() string {
			seq++
			return fmt.Sprintf("run-%d", seq)
		},
	})
	return &fixture{sched: s, launcher: launcher, configs: configs, clock: clock}
}

func (f *fixture) status(t *testing.T, id string) core.TopicStatus {
	t.Helper()
	v, ok := f.sched.Task(id)
	require.True(t, ok, "task %s missing", id)
	return v.Status
}

func TestScheduler_CapOneDispatchesInOrder(t *testing.T) {
	f := newFixture(t, 1)
	require.True(t, f.sched.Enqueue("m1"))
	require.True(t, f.sched.Enqueue("m2"))

	r := f.sched.Tick()
	require.Len(t, r.Dispatched, 1)
	assert.Equal(t, "m1", r.Dispatched[0].TopicID)
	assert.Equal(t, core.TopicStatusRunning, f.status(t, "m1"))
	assert.Equal(t, core.TopicStatusPending, f.status(t, "m2"))

	f.launcher.Exit("m1", 0)
	f.clock.Advance(time.Second)
	r = f.sched.Tick()
	require.Len(t, r.Finished, 1)
	assert.Equal(t, core.TopicStatusExited, r.Finished[0].Status)
	assert.Equal(t, time.Second, r.Finished[0].Duration)
	require.Len(t, r.Dispatched, 1)
	assert.Equal(t, "m2", r.Dispatched[0].TopicID)
	assert.Equal(t, core.TopicStatusExited, f.status(t, "m1"))
	assert.Equal(t, core.TopicStatusRunning, f.status(t, "m2"))
	assert.Equal(t, []string{"m1", "m2"}, f.launcher.StartedIDs())
}

func TestScheduler_ZeroCapClampsToOne(t *testing.T) {
	f := newFixture(t, 0)
	assert.Equal(t, 1, f.sched.Cap())
	f.sched.Enqueue("m1")
	f.sched.Enqueue("m2")
	r := f.sched.Tick()
	assert.Len(t, r.Dispatched, 1)
}

func TestScheduler_CapInvariantAcrossTicks(t *testing.T) {
	f := newFixture(t, 3)
	for i := 0; i < 10; i++ {
		f.sched.Enqueue(fmt.Sprintf("m%02d", i))
	}
	for tick := 0; tick < 20; tick++ {
		f.sched.Tick()
		assert.LessOrEqual(t, f.sched.Running(), 3)
		// Finish the oldest running worker every other tick.
		if tick%2 == 1 {
			for _, v := range f.sched.Snapshot() {
				if v.Status == core.TopicStatusRunning {
					f.launcher.Exit(v.TopicID, tick%3)
					break
				}
			}
		}
	}
}

func TestScheduler_MultipleCompletionsFillSameTick(t *testing.T) {
	f := newFixture(t, 2)
	for _, id := range []string{"a", "b", "c", "d"} {
		f.sched.Enqueue(id)
	}
	f.sched.Tick()
	f.launcher.Exit("a", 0)
	f.launcher.Exit("b", 0)

	r := f.sched.Tick()
	assert.Len(t, r.Finished, 2)
	require.Len(t, r.Dispatched, 2)
	assert.Equal(t, "c", r.Dispatched[0].TopicID)
	assert.Equal(t, "d", r.Dispatched[1].TopicID)
}

func TestScheduler_ExitCodeMapping(t *testing.T) {
	f := newFixture(t, 2)
	f.sched.Enqueue("ok")
	f.sched.Enqueue("bad")
	f.sched.Tick()

	f.launcher.Exit("ok", 0)
	f.launcher.Exit("bad", 2)
	f.sched.Tick()

	ok, _ := f.sched.Task("ok")
	bad, _ := f.sched.Task("bad")
	assert.Equal(t, core.TopicStatusExited, ok.Status)
	assert.Equal(t, "process finished rc=0", ok.LastNote)
	assert.Zero(t, ok.PID)
	assert.Equal(t, core.TopicStatusError, bad.Status)
	assert.Equal(t, "process finished rc=2", bad.LastNote)
}

func TestScheduler_AliveWorkerRefreshesHeartbeat(t *testing.T) {
	f := newFixture(t, 1)
	f.sched.Enqueue("m1")
	f.sched.Tick()
	before, _ := f.sched.Task("m1")

	f.clock.Advance(5 * time.Second)
	r := f.sched.Tick()
	assert.True(t, r.Empty())

	after, _ := f.sched.Task("m1")
	assert.Equal(t, core.TopicStatusRunning, after.Status)
	assert.Equal(t, before.LastHeartbeat.Add(5*time.Second), after.LastHeartbeat)
	assert.Equal(t, before.StartTime, after.StartTime)
}

func TestScheduler_DispatchRecordsPaths(t *testing.T) {
	f := newFixture(t, 1)
	f.sched.Enqueue("group/m1")
	r := f.sched.Tick()
	require.Len(t, r.Dispatched, 1)

	d := r.Dispatched[0]
	assert.Equal(t, "run-1", d.RunID)
	assert.Equal(t, 1001, d.PID)
	assert.Equal(t, filepath.Join("data", "run_params_group_m1.json"), d.ConfigPath)
	assert.Equal(t, filepath.Join("logs", "autorun", "autorun_group_m1.log"), d.LogPath)

	spec := f.launcher.Started()[0]
	assert.Equal(t, d.ConfigPath, spec.ConfigPath)
	assert.Equal(t, d.LogPath, spec.LogPath)
	assert.Equal(t, "run-1", spec.RunID)

	v, _ := f.sched.Task("group/m1")
	assert.Equal(t, "started", v.LastNote)
	assert.Equal(t, 1001, v.PID)
}

func TestScheduler_EnqueueDuplicates(t *testing.T) {
	f := newFixture(t, 1)
	assert.True(t, f.sched.Enqueue("m1"))
	assert.False(t, f.sched.Enqueue("m1"), "already queued")
	assert.False(t, f.sched.Enqueue(""))
	assert.Equal(t, 1, f.sched.QueueLen())

	f.sched.Tick()
	assert.False(t, f.sched.Enqueue("m1"), "already running")

	f.launcher.Exit("m1", 0)
	f.sched.Tick()
	assert.False(t, f.sched.Enqueue("m1"), "terminal")
	assert.Len(t, f.launcher.Started(), 1)
}

func TestScheduler_StopPending(t *testing.T) {
	f := newFixture(t, 1)
	f.sched.Enqueue("m1")

	res, err := f.sched.Stop("m1")
	require.NoError(t, err)
	assert.Equal(t, core.TopicStatusPending, res.Prior)
	assert.False(t, res.Terminated)
	assert.Equal(t, 0, f.sched.QueueLen())

	r := f.sched.Tick()
	assert.Empty(t, r.Dispatched)
	assert.Empty(t, f.launcher.Started(), "no process for a stopped pending topic")

	v, _ := f.sched.Task("m1")
	assert.Equal(t, core.TopicStatusStopped, v.Status)
	assert.Equal(t, "stopped by user", v.LastNote)
	assert.Equal(t, 1, v.NoteCount)
}

func TestScheduler_StopRunning(t *testing.T) {
	f := newFixture(t, 1)
	f.sched.Enqueue("m1")
	f.sched.Enqueue("m2")
	f.sched.Tick()

	res, err := f.sched.Stop("m1")
	require.NoError(t, err)
	assert.True(t, res.Terminated)
	assert.Equal(t, core.TopicStatusRunning, res.Prior)
	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, []string{"m1"}, f.launcher.TerminateRequests())
	assert.Equal(t, core.TopicStatusStopped, f.status(t, "m1"))

	// The stopped task no longer counts against the cap.
	r := f.sched.Tick()
	require.Len(t, r.Dispatched, 1)
	assert.Equal(t, "m2", r.Dispatched[0].TopicID)

	// The worker exits later; Stopped is sticky but the exit is noted.
	f.launcher.Exit("m1", -15)
	r = f.sched.Tick()
	require.Len(t, r.Finished, 1)
	assert.Equal(t, core.TopicStatusStopped, r.Finished[0].Status)
	v, _ := f.sched.Task("m1")
	assert.Equal(t, core.TopicStatusStopped, v.Status)
	assert.Equal(t, "process finished rc=-15", v.LastNote)
}

func TestScheduler_StopTerminateFailureStillStops(t *testing.T) {
	f := newFixture(t, 1)
	f.launcher.FailTerminate(testutil.ErrTest)
	f.sched.Enqueue("m1")
	f.sched.Tick()

	res, err := f.sched.Stop("m1")
	require.NoError(t, err)
	assert.False(t, res.Terminated)
	require.Error(t, res.TerminateErr)
	assert.True(t, core.HasCode(res.TerminateErr, core.CodeTerminateFailed))
	assert.Equal(t, core.TopicStatusStopped, f.status(t, "m1"))
}

func TestScheduler_StopUnknown(t *testing.T) {
	f := newFixture(t, 1)
	f.sched.Enqueue("will-trump-win")
	_, err := f.sched.Stop("trump")
	require.Error(t, err)
	assert.True(t, core.HasCode(err, core.CodeTopicNotFound))
	assert.Equal(t, []string{"will-trump-win"}, f.sched.Suggest("trump"))
	assert.Empty(t, f.sched.Suggest("zzz"))
}

func TestScheduler_StoppedNeverRestarts(t *testing.T) {
	f := newFixture(t, 1)
	f.launcher.ExitOnTerminate()
	f.sched.Enqueue("m1")
	f.sched.Tick()
	_, err := f.sched.Stop("m1")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		assert.False(t, f.sched.Enqueue("m1"))
		f.sched.Tick()
		assert.Equal(t, core.TopicStatusStopped, f.status(t, "m1"))
	}
	assert.Len(t, f.launcher.Started(), 1)
}

func TestScheduler_LaunchFailureDropsTopic(t *testing.T) {
	f := newFixture(t, 2)
	f.launcher.FailStart("bad", testutil.ErrTest)
	f.sched.Enqueue("bad")
	f.sched.Enqueue("good")

	r := f.sched.Tick()
	require.Len(t, r.Failed, 1)
	assert.Equal(t, "bad", r.Failed[0].TopicID)
	assert.True(t, core.HasCode(r.Failed[0].Err, core.CodeLaunchFailed))
	require.Len(t, r.Dispatched, 1)
	assert.Equal(t, "good", r.Dispatched[0].TopicID)

	_, ok := f.sched.Task("bad")
	assert.False(t, ok, "failed launch leaves no task behind")
	assert.Equal(t, 0, f.sched.QueueLen())
	assert.Len(t, f.sched.Snapshot(), 1)
}

func TestScheduler_ConfigWriteFailureIsLaunchError(t *testing.T) {
	f := newFixture(t, 1)
	f.configs.FailWrite("m1", testutil.ErrTest)
	f.sched.Enqueue("m1")

	r := f.sched.Tick()
	require.Len(t, r.Failed, 1)
	assert.True(t, core.HasCode(r.Failed[0].Err, core.CodeLaunchFailed))
	assert.Empty(t, f.launcher.Started())
}

func TestScheduler_SnapshotOrder(t *testing.T) {
	f := newFixture(t, 1)
	for _, id := range []string{"c", "a", "b"} {
		f.sched.Enqueue(id)
	}
	f.sched.Tick()

	snap := f.sched.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "c", snap[0].TopicID)
	assert.Equal(t, core.TopicStatusRunning, snap[0].Status)
	assert.Equal(t, "a", snap[1].TopicID)
	assert.Equal(t, core.TopicStatusPending, snap[1].Status)
	assert.Equal(t, []string{"a", "b"}, f.sched.Queue())
}
