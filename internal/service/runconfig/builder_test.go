package runconfig

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/autorun/internal/config"
	"github.com/hugo-lorenzo-mato/autorun/internal/core"
)

func strPtr(s string) *string { return &s }

func testStrategy() *config.StrategyDefaults {
	return &config.StrategyDefaults{
		Default: map[string]interface{}{
			"order_size": 5.0,
			"drop_pct":   0.05,
		},
		Topics: map[string]map[string]interface{}{
			"m1": {
				"order_size": 10.0,
				"topic_name": "Custom name",
			},
		},
	}
}

func TestBuilder_Build_OverrideWins(t *testing.T) {
	b := NewBuilder(t.TempDir(), "", testStrategy())

	got := b.Build("m1")
	assert.Equal(t, 10.0, got["order_size"])
	assert.Equal(t, 0.05, got["drop_pct"])
	assert.Equal(t, "https://polymarket.com/market/m1", got["market_url"])
	assert.Equal(t, "m1", got["topic_id"])
}

func TestBuilder_Build_MetadataNeverOverwrites(t *testing.T) {
	b := NewBuilder(t.TempDir(), "", testStrategy())
	b.SetMetadata([]core.TopicCandidate{{
		Slug:     "m1",
		Title:    "Filter title",
		YesToken: "111",
		NoToken:  "",
		EndTime:  strPtr("2026-11-03T00:00:00Z"),
	}})

	got := b.Build("m1")
	assert.Equal(t, "Custom name", got["topic_name"])
	assert.Equal(t, "111", got["yes_token"])
	assert.Equal(t, "2026-11-03T00:00:00Z", got["end_time"])
	_, hasNo := got["no_token"]
	assert.False(t, hasNo, "empty metadata values are skipped")
}

func TestBuilder_Build_DerivedKeysRespectDefaults(t *testing.T) {
	strategy := &config.StrategyDefaults{
		Default: map[string]interface{}{
			"market_url": "https://example.test/custom",
			"topic_id":   "pinned",
		},
	}
	b := NewBuilder(t.TempDir(), "https://example.test/m/", strategy)

	got := b.Build("m2")
	assert.Equal(t, "https://example.test/custom", got["market_url"])
	assert.Equal(t, "pinned", got["topic_id"])
}

func TestBuilder_Build_CustomPrefix(t *testing.T) {
	b := NewBuilder(t.TempDir(), "https://example.test/m/", nil)
	assert.Equal(t, "https://example.test/m/m9", b.Build("m9")["market_url"])
}

func TestBuilder_Build_DoesNotMutateStrategy(t *testing.T) {
	strategy := testStrategy()
	b := NewBuilder(t.TempDir(), "", strategy)
	_ = b.Build("m1")
	_ = b.Build("m2")

	_, ok := strategy.Default["market_url"]
	assert.False(t, ok)
	assert.Len(t, strategy.Topics["m1"], 2)
}

func TestBuilder_SetMetadata_Replaces(t *testing.T) {
	b := NewBuilder(t.TempDir(), "", nil)
	b.SetMetadata([]core.TopicCandidate{{Slug: "m1", Title: "first"}})
	b.SetMetadata([]core.TopicCandidate{{Slug: "m2", Title: "second"}, {Title: "no id"}})

	_, has := b.Build("m1")["topic_name"]
	assert.False(t, has)
	assert.Equal(t, "second", b.Build("m2")["topic_name"])
}

func TestBuilder_Reload(t *testing.T) {
	b := NewBuilder(t.TempDir(), "", testStrategy())
	b.Reload(&config.StrategyDefaults{Default: map[string]interface{}{"order_size": 1.0}})
	assert.Equal(t, 1.0, b.Build("m1")["order_size"])

	b.Reload(nil)
	_, has := b.Build("m1")["order_size"]
	assert.False(t, has)
}

func TestBuilder_Write(t *testing.T) {
	dir := t.TempDir()
	b := NewBuilder(dir, "", testStrategy())

	path, err := b.Write("group/m1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "run_params_group_m1.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "group/m1", got["topic_id"])
	assert.Equal(t, 5.0, got["order_size"])
}
