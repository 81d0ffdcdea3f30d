package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/hugo-lorenzo-mato/autorun/internal/core"
)

// Default file locations, relative to the working directory.
const (
	DefaultGlobalConfigPath   = "config/global_config.json"
	DefaultStrategyConfigPath = "config/strategy_defaults.json"
	DefaultFilterConfigPath   = "config/filter_params.json"
	DefaultMarketURLPrefix    = "https://polymarket.com/market/"
)

// Loader handles configuration loading from file, environment and flags.
type Loader struct {
	v          *viper.Viper
	configFile string
	envPrefix  string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v:         viper.New(),
		envPrefix: "AUTORUN",
	}
}

// NewLoaderWithViper creates a loader using an existing viper instance.
// This allows integration with CLI flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{
		v:         v,
		envPrefix: "AUTORUN",
	}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (set via viper.BindPFlag)
// 2. Environment variables (AUTORUN_*)
// 3. Global config file (JSON or YAML by extension)
// 4. Defaults
//
// A missing config file is not an error. A malformed one is fatal.
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	path := l.configFile
	if path == "" {
		path = DefaultGlobalConfigPath
	}
	if _, err := os.Stat(path); err == nil {
		l.v.SetConfigFile(path)
		if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext == "" {
			l.v.SetConfigType("json")
		}
		if err := l.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, core.ErrConfigParse(path, err)
			}
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat config %s: %w", path, err)
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, core.ErrConfigParse(path, err)
	}

	return &cfg, nil
}

// setDefaults configures default values.
func (l *Loader) setDefaults() {
	l.v.SetDefault("topics_poll_sec", 10.0)
	l.v.SetDefault("command_poll_sec", 1.0)
	l.v.SetDefault("max_concurrent_tasks", 2)

	l.v.SetDefault("log_dir", filepath.Join("logs", "autorun"))
	l.v.SetDefault("data_dir", "data")
	l.v.SetDefault("handled_topics_path", filepath.Join("data", "handled_topics.json"))
	l.v.SetDefault("filter_output_path", filepath.Join("data", "topics_filtered.json"))
	l.v.SetDefault("filter_params_path", DefaultFilterConfigPath)

	l.v.SetDefault("worker.command", []string{"python3", "Volatility_arbitrage_run.py"})
	l.v.SetDefault("worker.market_url_prefix", DefaultMarketURLPrefix)

	l.v.SetDefault("filter.command", []string{"python3", "Customize_fliter_blacklist.py", "--json"})
	l.v.SetDefault("filter.timeout_sec", 300.0)

	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")

	l.v.SetDefault("ledger.path", "")
	l.v.SetDefault("http.addr", "")
	l.v.SetDefault("http.cors_origins", []string{})
	l.v.SetDefault("http.command_burst", 10.0)
	l.v.SetDefault("http.command_rate", 2.0)
}

// ConfigFile returns the config file path if one was used.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}
