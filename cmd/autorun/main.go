package main

import (
	"fmt"
	"os"

	"github.com/hugo-lorenzo-mato/autorun/cmd/autorun/cmd"
)

// Version information, set at build time via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.SetVersion(version, commit, date)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
