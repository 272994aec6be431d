package cli

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage ingested sessions",
	Long:  `List, inspect, and delete ingested sessions.`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent sessions",
	Long: `List the most recently started sessions.

Examples:
  agentmetrics sessions list            # Last 20 sessions
  agentmetrics sessions list --last 50  # Last 50 sessions`,
	RunE: runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show one session and its tool calls",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session and its tool calls",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

var sessionsLast int

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)

	sessionsListCmd.Flags().IntVarP(&sessionsLast, "last", "n", 20, "Number of sessions to show")
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	s, _, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	sessions, err := s.ListRecentSessions(ctx, sessionsLast)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions found")
		return nil
	}

	tw := newTable()
	tw.AppendHeader(table.Row{"ID", "Started", "Model", "Duration", "Tokens", "Cost", "Tools", "Errors", "Status"})
	for _, m := range sessions {
		tw.AppendRow(table.Row{
			truncate(m.ID, 12),
			formatDateTime(m.StartedAt),
			m.Model,
			formatDuration(m.DurationSeconds),
			formatNumber(m.TokensIn + m.TokensOut),
			fmt.Sprintf("$%.4f", m.CostUSD),
			m.ToolCalls,
			m.ToolErrors,
			m.FinalStatus,
		})
	}
	tw.Render()

	fmt.Printf("\nShowing %d session(s)\n", len(sessions))
	return nil
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	s, _, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	m, err := s.GetSession(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if m == nil {
		return fmt.Errorf("session %q not found", args[0])
	}

	fmt.Printf("Session:   %s\n", m.ID)
	fmt.Printf("Started:   %s\n", formatDateTime(m.StartedAt))
	fmt.Printf("Model:     %s\n", m.Model)
	fmt.Printf("Source:    %s\n", m.Source)
	fmt.Printf("Status:    %s\n", m.FinalStatus)
	fmt.Printf("Duration:  %s\n", formatDuration(m.DurationSeconds))
	fmt.Printf("Messages:  %d\n", m.Messages)
	fmt.Printf("Tokens:    %s in / %s out / %s cached\n",
		formatNumber(m.TokensIn), formatNumber(m.TokensOut), formatNumber(m.TokensCached))
	fmt.Printf("Cost:      $%.4f\n", m.CostUSD)
	fmt.Printf("Issues:    %d/%d completed\n", m.IssuesCompleted, m.IssuesClaimed)
	if m.APM != nil {
		fmt.Printf("APM:       %.1f\n", *m.APM)
	}
	if m.Prompt != "" {
		fmt.Printf("Prompt:    %s\n", truncate(m.Prompt, 120))
	}

	calls, err := s.GetToolCalls(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("failed to load tool calls: %w", err)
	}
	if len(calls) == 0 {
		fmt.Println("\nNo completed tool calls recorded")
		return nil
	}

	fmt.Println()
	tw := newTable()
	tw.AppendHeader(table.Row{"Timestamp", "Tool", "Duration", "Tokens In", "Tokens Out", "Result"})
	for _, c := range calls {
		result := "ok"
		if !c.Success {
			result = "error"
			if c.ErrorType != nil {
				result = *c.ErrorType
			}
		}
		tw.AppendRow(table.Row{
			formatDateTime(c.Timestamp),
			c.ToolName,
			fmt.Sprintf("%dms", c.DurationMS),
			c.TokensIn,
			c.TokensOut,
			result,
		})
	}
	tw.Render()
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	s, _, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	deleted, err := s.DeleteSession(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if !deleted {
		return fmt.Errorf("session %q not found", args[0])
	}

	fmt.Printf("Deleted session %s\n", args[0])
	return nil
}
