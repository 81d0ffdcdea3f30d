package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/autorun/internal/core"
)

func newTestLedger(t *testing.T) *SQLiteLedger {
	t.Helper()
	l, err := NewSQLiteLedger(filepath.Join(t.TempDir(), "ledger", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestSQLiteLedger_RecordAndHistory(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, l.Record(ctx, core.RunEvent{
		RunID: "r1", TopicID: "m1", Kind: core.RunEventDispatched,
		Status: core.TopicStatusRunning, PID: 100, CreatedAt: base,
	}))
	code := 2
	require.NoError(t, l.Record(ctx, core.RunEvent{
		RunID: "r1", TopicID: "m1", Kind: core.RunEventFinished,
		Status: core.TopicStatusError, ExitCode: &code, Detail: "process finished rc=2",
		CreatedAt: base.Add(time.Minute),
	}))
	require.NoError(t, l.Record(ctx, core.RunEvent{
		RunID: "r2", TopicID: "m2", Kind: core.RunEventLaunchFailed,
		Status: core.TopicStatusPending, Detail: "exec: not found",
	}))

	all, err := l.History(ctx, core.RunQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "m2", all[0].TopicID, "newest first")

	m1, err := l.History(ctx, core.RunQuery{TopicID: "m1"})
	require.NoError(t, err)
	require.Len(t, m1, 2)
	assert.Equal(t, core.RunEventFinished, m1[0].Kind)
	require.NotNil(t, m1[0].ExitCode)
	assert.Equal(t, 2, *m1[0].ExitCode)
	assert.True(t, base.Add(time.Minute).Equal(m1[0].CreatedAt))
	assert.Nil(t, m1[1].ExitCode)
	assert.Equal(t, 100, m1[1].PID)

	limited, err := l.History(ctx, core.RunQuery{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLiteLedger_ReopenKeepsRows(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	l, err := NewSQLiteLedger(path)
	require.NoError(t, err)
	require.NoError(t, l.Record(ctx, core.RunEvent{RunID: "r", TopicID: "m", Kind: core.RunEventStopped, Status: core.TopicStatusStopped}))
	require.NoError(t, l.Close())

	l, err = NewSQLiteLedger(path)
	require.NoError(t, err)
	defer l.Close()
	rows, err := l.History(ctx, core.RunQuery{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestOpenLedger_EmptyPathIsNop(t *testing.T) {
	l, err := OpenLedger("")
	require.NoError(t, err)
	assert.IsType(t, NopLedger{}, l)
	require.NoError(t, l.Record(context.Background(), core.RunEvent{}))
	rows, err := l.History(context.Background(), core.RunQuery{})
	require.NoError(t, err)
	assert.Empty(t, rows)
	require.NoError(t, l.Close())
}
