package filter

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/autorun/internal/core"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "filter.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestCommandFilter_Run_DecodesResult(t *testing.T) {
	script := writeScript(t, `cat >/dev/null
cat <<'JSON'
{"total_markets": 12, "candidates": [{}, {}], "rejected": [{}], "highlights": [],
 "chosen": [{"slug": "will-it-rain", "title": "Will it rain?", "yes_token": "1", "no_token": "2"},
            {"topic_id": "  0xabc  "}]}
JSON`)

	f := NewCommandFilter([]string{"/bin/sh", script}, nil)
	result, err := f.Run(context.Background(), core.DefaultFilterParams())
	require.NoError(t, err)

	assert.Equal(t, 12, result.TotalMarkets)
	assert.Len(t, result.Candidates, 2)
	assert.Len(t, result.Rejected, 1)
	require.Len(t, result.Chosen, 2)
	assert.Equal(t, "will-it-rain", result.Chosen[0].ID())
	assert.Equal(t, "Will it rain?", result.Chosen[0].Title)
	assert.Equal(t, "0xabc", result.Chosen[1].ID())
}

func TestCommandFilter_Run_ReceivesParamsOnStdin(t *testing.T) {
	out := filepath.Join(t.TempDir(), "stdin.json")
	script := writeScript(t, `cat > "`+out+`"
echo '{"total_markets": 0, "chosen": []}'`)

	params := core.DefaultFilterParams()
	params.Only = "election"
	f := NewCommandFilter([]string{"/bin/sh", script}, nil)
	_, err := f.Run(context.Background(), params)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"only":"election"`)
	assert.Contains(t, string(data), `"books_batch_size":200`)
}

func TestCommandFilter_Run_NonZeroExit(t *testing.T) {
	script := writeScript(t, `echo "gamma api unreachable" >&2
exit 3`)

	f := NewCommandFilter([]string{"/bin/sh", script}, nil)
	_, err := f.Run(context.Background(), core.DefaultFilterParams())
	require.Error(t, err)
	assert.True(t, core.HasCode(err, core.CodeFilterFailed))
	assert.Contains(t, err.Error(), "gamma api unreachable")
}

func TestCommandFilter_Run_MalformedOutput(t *testing.T) {
	script := writeScript(t, `echo "not json"`)

	f := NewCommandFilter([]string{"/bin/sh", script}, nil)
	_, err := f.Run(context.Background(), core.DefaultFilterParams())
	require.Error(t, err)
	assert.True(t, core.HasCode(err, core.CodeFilterFailed))
}

func TestCommandFilter_Run_Timeout(t *testing.T) {
	script := writeScript(t, `sleep 5`)

	f := NewCommandFilter([]string{"/bin/sh", script}, nil, WithTimeout(100*time.Millisecond))
	start := time.Now()
	_, err := f.Run(context.Background(), core.DefaultFilterParams())
	require.Error(t, err)
	assert.True(t, core.HasCode(err, core.CodeFilterFailed))
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestCommandFilter_Run_NotConfigured(t *testing.T) {
	f := NewCommandFilter(nil, nil)
	_, err := f.Run(context.Background(), core.DefaultFilterParams())
	require.Error(t, err)
	assert.True(t, core.HasCode(err, core.CodeFilterFailed))
}

func TestCommandFilter_Run_MissingBinary(t *testing.T) {
	f := NewCommandFilter([]string{filepath.Join(t.TempDir(), "missing")}, nil)
	_, err := f.Run(context.Background(), core.DefaultFilterParams())
	require.Error(t, err)
	assert.True(t, core.HasCode(err, core.CodeFilterFailed))
}
