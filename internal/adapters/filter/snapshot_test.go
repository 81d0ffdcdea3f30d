package filter

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/autorun/internal/core"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	result := &core.FilterResult{
		TotalMarkets: 40,
		Candidates:   []json.RawMessage{json.RawMessage(`{}`), json.RawMessage(`{}`)},
		Highlights:   []json.RawMessage{json.RawMessage(`{}`)},
		Chosen:       []core.TopicCandidate{{Slug: "a"}, {Slug: "b"}},
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	path := filepath.Join(t.TempDir(), "data", "topics_filtered.json")
	require.NoError(t, WriteSnapshot(path, NewSnapshot(core.DefaultFilterParams(), result, now)))

	snap, err := ReadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01T12:00:00Z", snap.GeneratedAt)
	assert.Equal(t, 40, snap.TotalMarkets)
	assert.Equal(t, 2, snap.Candidates)
	assert.Equal(t, 2, snap.Chosen)
	assert.Equal(t, 0, snap.Rejected)
	assert.Equal(t, 1, snap.Highlights)
	require.Len(t, snap.Topics, 2)
	assert.Equal(t, "b", snap.Topics[1].Slug)
}

func TestNewSnapshot_EmptyChosen(t *testing.T) {
	snap := NewSnapshot(core.DefaultFilterParams(), &core.FilterResult{}, time.Now())
	assert.NotNil(t, snap.Topics)
	assert.Empty(t, snap.Topics)
}
