package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/autorun/internal/adapters/state"
	"github.com/hugo-lorenzo-mato/autorun/internal/core"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show worker dispatch history",
	Long:  "List run ledger entries (dispatch, exit, stop, launch failure), newest first.",
	RunE:  runHistory,
}

var (
	historyTopic string
	historyLimit int
	historyJSON  bool
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVar(&historyTopic, "topic", "", "only show entries for this topic")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "maximum number of entries")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Output as JSON")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if cfg.Ledger.Path == "" {
		fmt.Fprintln(out, "Run ledger disabled (set ledger.path to enable)")
		return nil
	}

	ledger, err := state.NewSQLiteLedger(cfg.Ledger.Path)
	if err != nil {
		return err
	}
	defer ledger.Close()

	entries, err := ledger.History(cmd.Context(), core.RunQuery{TopicID: historyTopic, Limit: historyLimit})
	if err != nil {
		return err
	}
	if historyJSON {
		return outputJSON(out, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No history")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tTOPIC\tEVENT\tSTATUS\tPID\tEXIT\tRUN\tDETAIL")
	for _, ev := range entries {
		pid, exit := "-", "-"
		if ev.PID > 0 {
			pid = strconv.Itoa(ev.PID)
		}
		if ev.ExitCode != nil {
			exit = strconv.Itoa(*ev.ExitCode)
		}
		run := ev.RunID
		if len(run) > 8 {
			run = run[:8]
		}
		if run == "" {
			run = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			ev.CreatedAt.Local().Format(time.DateTime), ev.TopicID, ev.Kind, ev.Status,
			pid, exit, run, ev.Detail)
	}
	return w.Flush()
}
