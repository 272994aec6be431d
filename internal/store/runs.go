package store

import (
	"context"
	"fmt"
	"time"
)

// ImportRun is the durable record of one batch import.
type ImportRun struct {
	ID          string
	Root        string
	Source      string
	StartedAt   time.Time
	FinishedAt  time.Time
	Directories int
	Imported    int
	Skipped     int
	Errored     int
}

// RecordImportRun persists the summary of a finished batch.
func (s *Store) RecordImportRun(ctx context.Context, run *ImportRun) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO import_runs
		(id, root, source, started_at, finished_at, directories, imported, skipped, errored)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Root,
		run.Source,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.FinishedAt.UTC().Format(time.RFC3339),
		run.Directories,
		run.Imported,
		run.Skipped,
		run.Errored,
	)
	if err != nil {
		return fmt.Errorf("record import run: %w", err)
	}
	return nil
}

// ListImportRuns returns the most recent batch runs, newest first.
func (s *Store) ListImportRuns(ctx context.Context, limit int) ([]ImportRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, root, source, started_at, finished_at, directories, imported, skipped, errored
		FROM import_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list import runs: %w", err)
	}
	defer rows.Close()

	var runs []ImportRun
	for rows.Next() {
		var run ImportRun
		var startedAt, finishedAt string

		err := rows.Scan(&run.ID, &run.Root, &run.Source, &startedAt, &finishedAt,
			&run.Directories, &run.Imported, &run.Skipped, &run.Errored)
		if err != nil {
			return nil, fmt.Errorf("scan import run: %w", err)
		}

		run.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		run.FinishedAt, _ = time.Parse(time.RFC3339, finishedAt)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
