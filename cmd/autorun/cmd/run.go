package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hugo-lorenzo-mato/autorun/internal/adapters/filter"
	"github.com/hugo-lorenzo-mato/autorun/internal/adapters/process"
	"github.com/hugo-lorenzo-mato/autorun/internal/adapters/state"
	"github.com/hugo-lorenzo-mato/autorun/internal/config"
	"github.com/hugo-lorenzo-mato/autorun/internal/control"
	"github.com/hugo-lorenzo-mato/autorun/internal/diagnostics"
	"github.com/hugo-lorenzo-mato/autorun/internal/events"
	"github.com/hugo-lorenzo-mato/autorun/internal/service/autorun"
	"github.com/hugo-lorenzo-mato/autorun/internal/service/runconfig"
	"github.com/hugo-lorenzo-mato/autorun/internal/service/scheduler"
	"github.com/hugo-lorenzo-mato/autorun/internal/web"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the scheduler",
	Long: `Start the control loop: refresh topics, dispatch workers and serve
operator commands until quit, end of input, or SIGINT/SIGTERM.

Workers still running at exit are left alive.`,
	RunE: runRun,
}

var (
	noREPL   bool
	httpAddr string
)

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd)
}

func addRunFlags(c *cobra.Command) {
	c.Flags().BoolVar(&noREPL, "no-repl", false,
		"do not read commands from stdin; run until a signal arrives")
	c.Flags().StringVar(&httpAddr, "http-addr", "",
		"serve the control API on this address (overrides http.addr)")
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("http-addr") {
		cfg.HTTP.Addr = httpAddr
	}
	logger := newLogger(cfg)

	lock := state.NewInstanceLock(state.LockPathFor(cfg.HandledTopicsPath))
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("autorun: cannot release lock", "path", lock.Path(), "error", err)
		}
	}()

	params, err := config.LoadFilterParams(resolveFilterConfigPath(cmd, cfg))
	if err != nil {
		return err
	}
	strategy, err := config.LoadStrategyDefaults(strategyConfigPath)
	if err != nil {
		return err
	}

	handled := state.NewHandledTopicsStore(cfg.HandledTopicsPath, logger)
	if err := handled.Load(); err != nil {
		return err
	}

	ledger, err := state.OpenLedger(cfg.Ledger.Path)
	if err != nil {
		return err
	}
	defer ledger.Close()

	bus := events.New(256)
	commands := control.NewCommandBus()
	builder := runconfig.NewBuilder(cfg.DataDir, cfg.Worker.MarketURLPrefix, strategy)
	supervisor := process.NewSupervisor(cfg.Worker.Command, logger)
	sched := scheduler.New(supervisor, builder, logger, scheduler.Options{
		MaxConcurrent: cfg.MaxConcurrentTasks,
		LogDir:        cfg.LogDir,
	})

	loop := autorun.New(autorun.Deps{
		Scheduler:    sched,
		Handled:      handled,
		Filter:       filter.NewCommandFilter(cfg.Filter.Command, logger, filter.WithTimeout(cfg.FilterTimeout())),
		FilterParams: params,
		Builder:      builder,
		Commands:     commands,
		Events:       bus,
		Sampler:      diagnostics.NewWorkerSampler(),
		LoadStrategy: func() (*config.StrategyDefaults, error) {
			return config.LoadStrategyDefaults(strategyConfigPath)
		},
		Console: cmd.OutOrStdout(),
		Logger:  logger,
	}, autorun.Options{
		TickInterval:    cfg.TickInterval(),
		RefreshInterval: cfg.RefreshInterval(),
		SnapshotPath:    cfg.FilterOutputPath,
	})

	recorder := autorun.NewRecorder(bus, ledger, logger)
	recorded := make(chan struct{})
	go func() {
		recorder.Run()
		close(recorded)
	}()

	monitor := diagnostics.NewResourceMonitor(diagnostics.DefaultMonitorConfig(), supervisor.Live, logger)
	watcher := runconfig.NewWatcher(strategyConfigPath, commands, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	// auxiliaries stop as soon as the loop returns
	auxCtx, cancelAux := context.WithCancel(gctx)
	defer cancelAux()

	g.Go(func() error {
		defer cancelAux()
		return loop.Run(gctx)
	})
	if !noREPL {
		reader := control.NewReader(cmd.InOrStdin(), cmd.OutOrStdout(), commands)
		g.Go(func() error {
			return reader.Run(auxCtx)
		})
	}
	g.Go(func() error {
		if err := watcher.Run(auxCtx); err != nil {
			logger.Warn("autorun: strategy hot reload disabled", "path", strategyConfigPath, "error", err)
		}
		return nil
	})
	g.Go(func() error {
		monitor.Run(auxCtx)
		return nil
	})
	if cfg.HTTP.Addr != "" {
		webCfg := web.DefaultConfig()
		webCfg.Addr = cfg.HTTP.Addr
		webCfg.CORSOrigins = cfg.HTTP.CORSOrigins
		webCfg.CommandBurst = cfg.HTTP.CommandBurst
		webCfg.CommandRate = cfg.HTTP.CommandRate
		server := web.New(webCfg, logger,
			web.WithStatus(loop),
			web.WithCommands(commands),
			web.WithEventBus(bus),
			web.WithSystemMetrics(diagnostics.NewSystemMetricsCollector(cfg.DataDir)),
			web.WithMonitor(monitor),
		)
		g.Go(func() error {
			return server.Run(auxCtx)
		})
	}

	err = g.Wait()
	bus.Close()
	<-recorded

	logger.Info("autorun: exiting", "live_workers", supervisor.Live())
	return err
}
