package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/autorun/internal/core"
)

func fixedClock() time.Time {
	return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
}

func TestHandledTopicsStore_MissingFileIsEmpty(t *testing.T) {
	s := NewHandledTopicsStore(filepath.Join(t.TempDir(), "handled_topics.json"), nil)
	require.NoError(t, s.Load())
	assert.Equal(t, 0, s.Len())
}

func TestHandledTopicsStore_FirstRefreshWritesTotalOne(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "handled_topics.json")
	s := NewHandledTopicsStore(path, nil, WithHandledClock(fixedClock))
	require.NoError(t, s.Load())

	require.NoError(t, s.AddAndSave([]string{"m1"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var file handledFile
	require.NoError(t, json.Unmarshal(data, &file))
	assert.Equal(t, 1, file.Total)
	assert.Equal(t, []string{"m1"}, file.Topics)
	assert.Equal(t, "2026-03-04T05:06:07Z", file.UpdatedAt)
}

func TestHandledTopicsStore_UnionIsSortedAndCounted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "handled_topics.json")
	s := NewHandledTopicsStore(path, nil)
	require.NoError(t, s.AddAndSave([]string{"c", "a"}))
	require.NoError(t, s.AddAndSave([]string{"b", "a"}))

	reloaded := NewHandledTopicsStore(path, nil)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, []string{"a", "b", "c"}, reloaded.Topics())
	assert.True(t, reloaded.Contains("b"))
	assert.False(t, reloaded.Contains("d"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var file handledFile
	require.NoError(t, json.Unmarshal(data, &file))
	assert.Equal(t, 3, file.Total)
}

func TestHandledTopicsStore_EmptyAddDoesNotWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "handled_topics.json")
	s := NewHandledTopicsStore(path, nil)
	require.NoError(t, s.AddAndSave(nil))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestHandledTopicsStore_LoadVariants(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"current layout", `{"updated_at":"x","total":2,"topics":["b","a"]}`, []string{"a", "b"}},
		{"legacy key", `{"handled_topics":["x","y"]}`, []string{"x", "y"}},
		{"no key", `{"updated_at":"x"}`, []string{}},
		{"non list", `{"topics":"m1"}`, []string{}},
		{"object entries", `{"topics":[{"slug":"s1"},{"topic_id":"t1"},""]}`, []string{"s1", "t1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "handled_topics.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			got, err := ReadHandledTopics(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandledTopicsStore_MalformedIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "handled_topics.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"topics": [`), 0o644))

	err := NewHandledTopicsStore(path, nil).Load()
	require.Error(t, err)
	assert.True(t, core.HasCode(err, core.CodeConfigParse))
}
