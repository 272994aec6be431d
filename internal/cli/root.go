package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "agentmetrics",
	Short: "Extract and analyze metrics from agent trajectory logs",
	Long: `agentmetrics ingests agent-run trajectory documents into a local
SQLite database and reports on sessions, tool usage, and costs.

Point it at a logs directory of dated subdirectories (YYYYMMDD) and it
imports every trajectory exactly once; re-running is always safe.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
