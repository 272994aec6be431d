package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"agentmetrics/internal/importer"
	"agentmetrics/internal/metrics"
	"agentmetrics/internal/store"
	"agentmetrics/internal/telemetry"
)

var importCmd = &cobra.Command{
	Use:   "import <logs-root>",
	Short: "Import trajectory logs into the database",
	Long: `Import every trajectory document under a logs root.

The root must contain dated subdirectories named YYYYMMDD; each .json
file inside them is parsed and ingested. Sessions already in the
database are skipped, so repeated imports never duplicate data.

Examples:
  agentmetrics import ~/projects/docs/logs
  agentmetrics import /var/agent/logs --source autopilot`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var importSource string

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVar(&importSource, "source", "", "Source label recorded on ingested sessions (default from config)")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	s, cfg, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	source := cfg.Source
	if importSource != "" {
		source = importSource
	}

	var exporter *telemetry.Exporter
	if cfg.OTELEnabled {
		exporter, err = telemetry.NewExporter(ctx, telemetry.Config{
			Enabled:  cfg.OTELEnabled,
			Endpoint: cfg.OTELEndpoint,
			Insecure: cfg.OTELInsecure,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: metrics export disabled: %v\n", err)
		} else {
			defer exporter.Close(ctx)
		}
	}

	opts := importer.Options{
		Source:   source,
		Progress: os.Stdout,
	}
	if exporter != nil {
		opts.Observe = func(m *metrics.SessionMetrics) {
			exporter.RecordSession(ctx, m)
		}
	}

	summary, err := importer.Run(ctx, s, args[0], opts)
	if err != nil {
		return err
	}

	run := &store.ImportRun{
		ID:          uuid.NewString(),
		Root:        summary.Root,
		Source:      source,
		StartedAt:   summary.StartedAt,
		FinishedAt:  summary.FinishedAt,
		Directories: summary.Directories,
		Imported:    summary.Imported,
		Skipped:     summary.Skipped,
		Errored:     summary.Errored,
	}
	if err := s.RecordImportRun(ctx, run); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to record import run: %v\n", err)
	}

	if exporter != nil {
		exporter.RecordRun(ctx, source, summary)
	}

	fmt.Printf("\nImported %d, skipped %d, errored %d across %d directories\n",
		summary.Imported, summary.Skipped, summary.Errored, summary.Directories)
	return nil
}
