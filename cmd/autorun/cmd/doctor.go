package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/autorun/internal/adapters/state"
	"github.com/hugo-lorenzo-mato/autorun/internal/config"
	"github.com/hugo-lorenzo-mato/autorun/internal/diagnostics"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and environment",
	Long:  "Verify configuration files, worker and filter executables, writable directories and host resources.",
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type checkResult struct {
	name     string
	ok       bool
	required bool
	detail   string
}

func (c checkResult) print(out io.Writer) {
	icon := "✓"
	suffix := ""
	if !c.ok {
		if c.required {
			icon = "✗"
		} else {
			icon = "○"
			suffix = " (optional)"
		}
	}
	if c.detail != "" {
		suffix += ": " + c.detail
	}
	fmt.Fprintf(out, "  %s %s%s\n", icon, c.name, suffix)
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Checking configuration...")
	fmt.Fprintln(out)

	cfg, err := loadConfig()
	if err != nil {
		var verrs config.ValidationErrors
		if errors.As(err, &verrs) {
			for _, verr := range verrs {
				fmt.Fprintf(out, "  ✗ %s\n", verr.Error())
			}
		} else {
			fmt.Fprintf(out, "  ✗ %v\n", err)
		}
		fmt.Fprintln(out)
		return fmt.Errorf("configuration check failed")
	}

	checks := []checkResult{{name: "global config", ok: true, required: true, detail: globalConfigPath}}
	checks = append(checks, checkFile("filter params", resolveFilterConfigPath(cmd, cfg), func(p string) error {
		_, err := config.LoadFilterParams(p)
		return err
	}))
	checks = append(checks, checkFile("strategy defaults", strategyConfigPath, func(p string) error {
		_, err := config.LoadStrategyDefaults(p)
		return err
	}))
	for _, c := range checks {
		c.print(out)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Checking executables...")
	fmt.Fprintln(out)
	execChecks := []checkResult{
		checkExecutable("worker", cfg.Worker.Command),
		checkExecutable("filter", cfg.Filter.Command),
	}
	for _, c := range execChecks {
		c.print(out)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Checking directories...")
	fmt.Fprintln(out)
	dirChecks := []checkResult{
		checkWritable("log_dir", cfg.LogDir),
		checkWritable("data_dir", cfg.DataDir),
		checkWritable("handled_topics_path", filepath.Dir(cfg.HandledTopicsPath)),
	}
	if cfg.Ledger.Path != "" {
		dirChecks = append(dirChecks, checkWritable("ledger.path", filepath.Dir(cfg.Ledger.Path)))
	}
	for _, c := range dirChecks {
		c.print(out)
	}
	if pid := state.LockHolder(state.LockPathFor(cfg.HandledTopicsPath)); pid > 0 {
		fmt.Fprintf(out, "  ○ a scheduler is already running as PID %d\n", pid)
	}
	fmt.Fprintln(out)

	printHostMetrics(out, diagnostics.NewSystemMetricsCollector(cfg.DataDir).Collect())

	requiredOk := true
	for _, group := range [][]checkResult{checks, execChecks, dirChecks} {
		for _, c := range group {
			if c.required && !c.ok {
				requiredOk = false
			}
		}
	}
	if !requiredOk {
		fmt.Fprintln(out, "Some required checks failed")
		return fmt.Errorf("doctor found problems")
	}
	fmt.Fprintln(out, "All checks passed")
	return nil
}

func checkFile(name, path string, load func(string) error) checkResult {
	r := checkResult{name: name, required: true, detail: path}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		r.required = false
		r.detail = path + " not found, defaults apply"
		return r
	}
	if err := load(path); err != nil {
		r.detail = err.Error()
		return r
	}
	r.ok = true
	return r
}

func checkExecutable(name string, argv []string) checkResult {
	r := checkResult{name: name, required: true}
	if len(argv) == 0 {
		r.detail = "no command configured"
		return r
	}
	path, err := exec.LookPath(argv[0])
	if err != nil {
		r.detail = fmt.Sprintf("%s not found in PATH", argv[0])
		return r
	}
	r.ok = true
	r.detail = path
	return r
}

func checkWritable(name, dir string) checkResult {
	r := checkResult{name: name, required: true, detail: dir}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		r.detail = err.Error()
		return r
	}
	f, err := os.CreateTemp(dir, ".autorun-doctor-*")
	if err != nil {
		r.detail = err.Error()
		return r
	}
	tmp := f.Name()
	_ = f.Close()
	_ = os.Remove(tmp)
	r.ok = true
	return r
}

func printHostMetrics(out io.Writer, m diagnostics.SystemMetrics) {
	fmt.Fprintln(out, "Host resources...")
	fmt.Fprintln(out)
	if m.CPUModel != "" {
		fmt.Fprintf(out, "  cpu:    %s (%d cores, %d threads) %.1f%%\n", m.CPUModel, m.CPUCores, m.CPUThreads, m.CPUPercent)
	} else {
		fmt.Fprintf(out, "  cpu:    %d threads %.1f%%\n", m.CPUThreads, m.CPUPercent)
	}
	fmt.Fprintf(out, "  memory: %.0f / %.0f MB (%.1f%%)\n", m.MemUsedMB, m.MemTotalMB, m.MemPercent)
	fmt.Fprintf(out, "  disk:   %.1f / %.1f GB (%.1f%%) on %s\n", m.DiskUsedGB, m.DiskTotalGB, m.DiskPercent, m.DiskPath)
	fmt.Fprintf(out, "  load:   %.2f %.2f %.2f\n", m.LoadAvg1, m.LoadAvg5, m.LoadAvg15)
	fmt.Fprintln(out)
}
