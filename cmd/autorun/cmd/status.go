package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/autorun/internal/adapters/filter"
	"github.com/hugo-lorenzo-mato/autorun/internal/adapters/state"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show handled topics and the last filter snapshot",
	Long: `Display the persisted handled-topic set, the last filter snapshot and
whether a scheduler currently holds the instance lock. Reads files only;
use the HTTP API for live worker state.`,
	RunE: runStatus,
}

var statusJSON bool

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
}

type offlineStatus struct {
	HandledPath  string           `json:"handled_topics_path"`
	Handled      []string         `json:"handled_topics"`
	SnapshotPath string           `json:"snapshot_path"`
	Snapshot     *filter.Snapshot `json:"snapshot,omitempty"`
	LockPID      int              `json:"lock_pid,omitempty"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	handled, err := state.ReadHandledTopics(cfg.HandledTopicsPath)
	if err != nil {
		return err
	}
	st := offlineStatus{
		HandledPath:  cfg.HandledTopicsPath,
		Handled:      handled,
		SnapshotPath: cfg.FilterOutputPath,
		LockPID:      state.LockHolder(state.LockPathFor(cfg.HandledTopicsPath)),
	}
	snap, err := filter.ReadSnapshot(cfg.FilterOutputPath)
	switch {
	case err == nil:
		st.Snapshot = snap
	case !errors.Is(err, os.ErrNotExist):
		return err
	}

	if statusJSON {
		return outputJSON(cmd.OutOrStdout(), st)
	}
	return printStatus(cmd.OutOrStdout(), st)
}

func printStatus(out io.Writer, st offlineStatus) error {
	if st.LockPID > 0 {
		fmt.Fprintf(out, "Scheduler: running (PID %d)\n", st.LockPID)
	} else {
		fmt.Fprintln(out, "Scheduler: not running")
	}
	fmt.Fprintf(out, "Handled topics: %d (%s)\n", len(st.Handled), st.HandledPath)

	if st.Snapshot == nil {
		fmt.Fprintln(out, "Last filter pass: none")
		return nil
	}
	s := st.Snapshot
	fmt.Fprintf(out, "Last filter pass: %s  markets=%d candidates=%d chosen=%d rejected=%d\n",
		s.GeneratedAt, s.TotalMarkets, s.Candidates, s.Chosen, s.Rejected)
	if len(s.Topics) == 0 {
		return nil
	}

	handled := make(map[string]bool, len(st.Handled))
	for _, id := range st.Handled {
		handled[id] = true
	}

	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TOPIC\tEND\tHANDLED\tTITLE")
	fmt.Fprintln(w, "-----\t---\t-------\t-----")
	for _, c := range s.Topics {
		end := c.EndTimeString()
		if end == "" {
			end = "-"
		}
		mark := "no"
		if handled[c.ID()] {
			mark = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID(), end, mark, c.Title)
	}
	return w.Flush()
}

func outputJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
