package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hugo-lorenzo-mato/autorun/internal/config"
	"github.com/hugo-lorenzo-mato/autorun/internal/logging"
)

// loadConfig reads and validates the global configuration.
func loadConfig() (*config.Config, error) {
	loader := config.NewLoaderWithViper(viper.GetViper()).WithConfigFile(globalConfigPath)
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveFilterConfigPath prefers an explicit --filter-config over the
// filter_params_path key.
func resolveFilterConfigPath(cmd *cobra.Command, cfg *config.Config) string {
	if f := cmd.Flags().Lookup("filter-config"); f != nil && f.Changed {
		return filterConfigPath
	}
	if cfg.FilterParamsPath != "" {
		return cfg.FilterParamsPath
	}
	return filterConfigPath
}

func newLogger(cfg *config.Config) *logging.Logger {
	return logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}
