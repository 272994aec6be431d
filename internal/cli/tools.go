package cli

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Analyze tool usage across sessions",
}

var toolsErrorsCmd = &cobra.Command{
	Use:   "errors",
	Short: "Show tools ranked by failure count",
	RunE:  runToolsErrors,
}

var toolsSlowCmd = &cobra.Command{
	Use:   "slow",
	Short: "Show tools ranked by average duration",
	RunE:  runToolsSlow,
}

var toolsLimit int

func init() {
	rootCmd.AddCommand(toolsCmd)
	toolsCmd.AddCommand(toolsErrorsCmd)
	toolsCmd.AddCommand(toolsSlowCmd)

	toolsCmd.PersistentFlags().IntVarP(&toolsLimit, "limit", "n", 10, "Number of tools to show")
}

func runToolsErrors(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	s, _, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	rows, err := s.TopErrorTools(ctx, toolsLimit)
	if err != nil {
		return fmt.Errorf("failed to query error tools: %w", err)
	}
	if len(rows) == 0 {
		fmt.Println("No tool errors recorded")
		return nil
	}

	tw := newTable()
	tw.AppendHeader(table.Row{"Tool", "Errors"})
	for _, r := range rows {
		tw.AppendRow(table.Row{r.ToolName, r.Errors})
	}
	tw.Render()
	return nil
}

func runToolsSlow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	s, _, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	rows, err := s.SlowestTools(ctx, toolsLimit)
	if err != nil {
		return fmt.Errorf("failed to query slow tools: %w", err)
	}
	if len(rows) == 0 {
		fmt.Println("No tool calls recorded")
		return nil
	}

	tw := newTable()
	tw.AppendHeader(table.Row{"Tool", "Avg Duration", "Calls"})
	for _, r := range rows {
		tw.AppendRow(table.Row{r.ToolName, fmt.Sprintf("%.0fms", r.AvgDurationMS), r.Calls})
	}
	tw.Render()
	return nil
}
