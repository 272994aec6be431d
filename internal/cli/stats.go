package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate statistics",
	Long:  `Show totals across every ingested session.`,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	s, _, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	sum, err := s.SummaryStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to compute stats: %w", err)
	}
	if sum.Sessions == 0 {
		fmt.Println("No sessions found")
		return nil
	}

	completionRate := float64(sum.Completed) / float64(sum.Sessions) * 100
	errorRate := 0.0
	if sum.ToolCalls > 0 {
		errorRate = float64(sum.ToolErrors) / float64(sum.ToolCalls) * 100
	}

	fmt.Printf("Sessions:     %d (%d completed, %.1f%%)\n", sum.Sessions, sum.Completed, completionRate)
	fmt.Printf("Total time:   %s\n", formatDuration(sum.TotalDurationS))
	fmt.Printf("Tokens:       %s in / %s out / %s cached\n",
		formatNumber(sum.TokensIn), formatNumber(sum.TokensOut), formatNumber(sum.TokensCached))
	fmt.Printf("Cost:         $%.2f\n", sum.TotalCostUSD)
	fmt.Printf("Tool calls:   %s (%d errors, %.1f%%)\n", formatNumber(sum.ToolCalls), sum.ToolErrors, errorRate)
	return nil
}
