package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/autorun/internal/core"
)

func TestLoader_Defaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigFile(filepath.Join(t.TempDir(), "absent.json")).Load()
	require.NoError(t, err)

	assert.Equal(t, 10.0, cfg.TopicsPollSec)
	assert.Equal(t, 1.0, cfg.CommandPollSec)
	assert.Equal(t, 2, cfg.MaxConcurrentTasks)
	assert.Equal(t, filepath.Join("data", "handled_topics.json"), cfg.HandledTopicsPath)
	assert.Equal(t, filepath.Join("data", "topics_filtered.json"), cfg.FilterOutputPath)
	assert.Equal(t, DefaultMarketURLPrefix, cfg.Worker.MarketURLPrefix)
	assert.NotEmpty(t, cfg.Worker.Command)
	assert.NotEmpty(t, cfg.Filter.Command)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "auto", cfg.Log.Format)
	assert.Empty(t, cfg.Ledger.Path)
	assert.Empty(t, cfg.HTTP.Addr)

	assert.Equal(t, time.Second, cfg.TickInterval())
	assert.Equal(t, 10*time.Second, cfg.RefreshInterval())
	assert.NoError(t, ValidateConfig(cfg))
}

func TestLoader_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "global_config.json")
	content := `{
  "topics_poll_sec": 30,
  "command_poll_sec": 0.5,
  "max_concurrent_tasks": 5,
  "log_dir": "/var/log/autorun",
  "worker": {"command": ["python3", "run.py"], "market_url_prefix": "https://example.test/m/"},
  "ledger": {"path": "/var/lib/autorun/runs.db"}
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := NewLoader().WithConfigFile(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 30.0, cfg.TopicsPollSec)
	assert.Equal(t, 500*time.Millisecond, cfg.TickInterval())
	assert.Equal(t, 5, cfg.MaxConcurrentTasks)
	assert.Equal(t, "/var/log/autorun", cfg.LogDir)
	assert.Equal(t, []string{"python3", "run.py"}, cfg.Worker.Command)
	assert.Equal(t, "https://example.test/m/", cfg.Worker.MarketURLPrefix)
	assert.Equal(t, "/var/lib/autorun/runs.db", cfg.Ledger.Path)
	// untouched keys keep defaults
	assert.Equal(t, "data", cfg.DataDir)
}

func TestLoader_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "global.yaml")
	content := `
max_concurrent_tasks: 3
http:
  addr: "127.0.0.1:8090"
  cors_origins: ["http://localhost:5173"]
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := NewLoader().WithConfigFile(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MaxConcurrentTasks)
	assert.Equal(t, "127.0.0.1:8090", cfg.HTTP.Addr)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoader_MalformedFileIsConfigParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "global_config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"topics_poll_sec": `), 0o644))

	_, err := NewLoader().WithConfigFile(path).Load()
	require.Error(t, err)
	assert.True(t, core.HasCode(err, core.CodeConfigParse), "got %v", err)
}

func TestLoader_EnvOverride(t *testing.T) {
	t.Setenv("AUTORUN_MAX_CONCURRENT_TASKS", "7")
	t.Setenv("AUTORUN_LOG_LEVEL", "warn")

	cfg, err := NewLoader().WithConfigFile(filepath.Join(t.TempDir(), "none.json")).Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MaxConcurrentTasks)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("FLEET_TOPICS_POLL_SEC", "30")

	loader := NewLoader().WithEnvPrefix("FLEET").WithConfigFile(filepath.Join(t.TempDir(), "none.json"))
	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.RefreshInterval())
	assert.Empty(t, loader.ConfigFile(), "missing file is not recorded")
}

func TestConfig_EffectiveConcurrency(t *testing.T) {
	for _, tc := range []struct{ in, want int }{{-3, 1}, {0, 1}, {1, 1}, {4, 4}} {
		cfg := &Config{MaxConcurrentTasks: tc.in}
		assert.Equal(t, tc.want, cfg.EffectiveConcurrency(), "input %d", tc.in)
	}
}
