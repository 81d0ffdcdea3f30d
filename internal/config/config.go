package config

import (
	"time"
)

// Config holds the autorun global configuration. It is read once at startup
// and never mutated afterwards.
type Config struct {
	TopicsPollSec      float64 `mapstructure:"topics_poll_sec"`
	CommandPollSec     float64 `mapstructure:"command_poll_sec"`
	MaxConcurrentTasks int     `mapstructure:"max_concurrent_tasks"`

	LogDir            string `mapstructure:"log_dir"`
	DataDir           string `mapstructure:"data_dir"`
	HandledTopicsPath string `mapstructure:"handled_topics_path"`
	FilterOutputPath  string `mapstructure:"filter_output_path"`
	FilterParamsPath  string `mapstructure:"filter_params_path"`

	Worker WorkerConfig `mapstructure:"worker"`
	Filter FilterConfig `mapstructure:"filter"`
	Log    LogConfig    `mapstructure:"log"`
	Ledger LedgerConfig `mapstructure:"ledger"`
	HTTP   HTTPConfig   `mapstructure:"http"`
}

// WorkerConfig configures the spawned strategy process.
type WorkerConfig struct {
	// Command is the fixed argv prefix; the run-config path is appended.
	Command         []string `mapstructure:"command"`
	MarketURLPrefix string   `mapstructure:"market_url_prefix"`
}

// FilterConfig configures the external topic filter program.
type FilterConfig struct {
	Command    []string `mapstructure:"command"`
	TimeoutSec float64  `mapstructure:"timeout_sec"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LedgerConfig configures the SQLite run history. An empty path disables it.
type LedgerConfig struct {
	Path string `mapstructure:"path"`
}

// HTTPConfig configures the optional control API. An empty addr disables it.
type HTTPConfig struct {
	Addr         string   `mapstructure:"addr"`
	CORSOrigins  []string `mapstructure:"cors_origins"`
	CommandBurst float64  `mapstructure:"command_burst"`
	CommandRate  float64  `mapstructure:"command_rate"`
}

// TickInterval returns the control loop period.
func (c *Config) TickInterval() time.Duration {
	return secondsToDuration(c.CommandPollSec)
}

// RefreshInterval returns the filter refresh period.
func (c *Config) RefreshInterval() time.Duration {
	return secondsToDuration(c.TopicsPollSec)
}

// FilterTimeout returns the per-invocation filter deadline.
func (c *Config) FilterTimeout() time.Duration {
	return secondsToDuration(c.Filter.TimeoutSec)
}

// EffectiveConcurrency is the running cap actually enforced.
func (c *Config) EffectiveConcurrency() int {
	return max(1, c.MaxConcurrentTasks)
}

func secondsToDuration(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}
