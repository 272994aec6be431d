package cli

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List past import runs",
	RunE:  runRuns,
}

var runsLast int

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().IntVarP(&runsLast, "last", "n", 10, "Number of runs to show")
}

func runRuns(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	s, _, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	runs, err := s.ListImportRuns(ctx, runsLast)
	if err != nil {
		return fmt.Errorf("failed to list import runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No import runs recorded")
		return nil
	}

	tw := newTable()
	tw.AppendHeader(table.Row{"Started", "Root", "Source", "Dirs", "Imported", "Skipped", "Errored"})
	for _, r := range runs {
		tw.AppendRow(table.Row{
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			truncate(r.Root, 40),
			r.Source,
			r.Directories,
			r.Imported,
			r.Skipped,
			r.Errored,
		})
	}
	tw.Render()
	return nil
}
