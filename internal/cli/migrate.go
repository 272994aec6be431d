package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"agentmetrics/internal/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [version]",
	Short: "Run database migrations",
	Long: `Run database migrations.

Without arguments, runs all pending migrations (up).
With a version number, migrates down to that version.

Examples:
  agentmetrics migrate      # Run all pending migrations
  agentmetrics migrate 1    # Roll back to version 1
  agentmetrics migrate 0    # Roll back everything`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	s, _, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	db := s.DB()

	current, dirty, err := migrate.CurrentVersion(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is in dirty state at version %d, manual intervention required", current)
	}

	if len(args) == 0 {
		// Open already ran pending migrations; report where we are.
		fmt.Printf("Database is at version %d\n", current)
		return nil
	}

	target, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid version number: %s", args[0])
	}
	if target >= current {
		fmt.Printf("Already at version %d\n", current)
		return nil
	}

	if err := migrate.DownTo(ctx, db, target); err != nil {
		return err
	}
	fmt.Printf("Migrated down to version %d\n", target)
	return nil
}
