package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hugo-lorenzo-mato/autorun/internal/config"
)

var (
	globalConfigPath   string
	strategyConfigPath string
	filterConfigPath   string
	logLevel           string
	logFormat          string

	// Version info - set via SetVersion()
	appVersion string
	appCommit  string
	appDate    string
)

var rootCmd = &cobra.Command{
	Use:   "autorun",
	Short: "Keep a fleet of market strategy workers running",
	Long: `autorun periodically runs the topic filter, launches one strategy worker
per newly discovered topic under a concurrency cap, and accepts operator
commands (list, stop, refresh, reload, quit) from the console or HTTP API.

Running 'autorun' without a subcommand is the same as 'autorun run'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRun,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion injects build information.
func SetVersion(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
	rootCmd.Version = version
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalConfigPath, "global-config", config.DefaultGlobalConfigPath,
		"global config file (JSON or YAML)")
	rootCmd.PersistentFlags().StringVar(&strategyConfigPath, "strategy-config", config.DefaultStrategyConfigPath,
		"strategy defaults file handed to workers")
	rootCmd.PersistentFlags().StringVar(&filterConfigPath, "filter-config", config.DefaultFilterConfigPath,
		"topic filter parameter file (overrides filter_params_path)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "auto",
		"log format (auto, text, json)")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	addRunFlags(rootCmd)
}
