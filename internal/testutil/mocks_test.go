package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/autorun/internal/core"
)

func TestMockLauncher_Lifecycle(t *testing.T) {
	l := NewMockLauncher()
	pid, err := l.Start(core.LaunchSpec{TopicID: "m1"})
	require.NoError(t, err)
	assert.Equal(t, 1001, pid)
	assert.True(t, l.Has("m1"))

	_, exited := l.Poll("m1")
	assert.False(t, exited)

	l.Exit("m1", 3)
	code, exited := l.Poll("m1")
	assert.True(t, exited)
	assert.Equal(t, 3, code)
	assert.False(t, l.Has("m1"))
	assert.Equal(t, 2, l.CallCount("Poll"))
}

func TestMockLauncher_FailStart(t *testing.T) {
	l := NewMockLauncher().FailStart("m1", ErrTest)
	_, err := l.Start(core.LaunchSpec{TopicID: "m1"})
	require.Error(t, err)
	assert.True(t, core.HasCode(err, core.CodeLaunchFailed))
	assert.Empty(t, l.Started())
}

func TestMockLauncher_ExitOnTerminate(t *testing.T) {
	l := NewMockLauncher().ExitOnTerminate()
	_, err := l.Start(core.LaunchSpec{TopicID: "m1"})
	require.NoError(t, err)
	require.NoError(t, l.Terminate("m1"))

	code, exited := l.Poll("m1")
	assert.True(t, exited)
	assert.Equal(t, -15, code)
	assert.Equal(t, []string{"m1"}, l.TerminateRequests())
}

func TestMockFilter_Script(t *testing.T) {
	f := NewMockFilter().ThenChosen("a", "b").ThenError(ErrTest).ThenChosen("c")
	ctx := context.Background()

	r, err := f.Run(ctx, core.DefaultFilterParams())
	require.NoError(t, err)
	assert.Len(t, r.Chosen, 2)

	_, err = f.Run(ctx, core.DefaultFilterParams())
	assert.True(t, core.HasCode(err, core.CodeFilterFailed))

	for i := 0; i < 2; i++ {
		r, err = f.Run(ctx, core.DefaultFilterParams())
		require.NoError(t, err)
		assert.Equal(t, "c", r.Chosen[0].Slug)
	}
	assert.Len(t, f.Params(), 4)
}

func TestScrubAll(t *testing.T) {
	in := "\x1b[1mtopic=m1\x1b[0m start=2026-01-02T03:04:05Z run=123e4567-e89b-12d3-a456-426614174000 log=/tmp/x/autorun_m1.log  \n"
	got := ScrubAll(in, "/tmp/x")
	assert.Equal(t, "topic=m1 start=[TIMESTAMP] run=[UUID] log=[WORKDIR]/autorun_m1.log", got)
}
