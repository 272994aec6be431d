package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"agentmetrics/internal/metrics"
	"agentmetrics/internal/store"
	"agentmetrics/internal/trajectory"
)

// ErrRootNotFound is returned when the logs root does not exist or
// contains no dated directories.
var ErrRootNotFound = errors.New("logs root not found")

var datedDirPattern = regexp.MustCompile(`^\d{8}$`)

// Options controls a batch import run.
type Options struct {
	// Source is recorded on every ingested session.
	Source string
	// Progress receives per-directory and per-failure lines. Nil
	// discards them.
	Progress io.Writer
	// Observe, when set, is called once for each newly ingested session.
	Observe func(*metrics.SessionMetrics)
}

// Summary reports what a batch run did.
type Summary struct {
	Root        string
	Directories int
	Imported    int
	Skipped     int
	Errored     int
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Run walks every dated directory under root (lexicographic order),
// extracts metrics from each trajectory file, and ingests them. A
// failing file is counted and reported but never aborts the run.
func Run(ctx context.Context, s *store.Store, root string, opts Options) (*Summary, error) {
	progress := opts.Progress
	if progress == nil {
		progress = io.Discard
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRootNotFound, root, err)
	}

	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() && datedDirPattern.MatchString(entry.Name()) {
			dirs = append(dirs, entry.Name())
		}
	}
	if len(dirs) == 0 {
		return nil, fmt.Errorf("%w: no dated directories under %s", ErrRootNotFound, root)
	}
	sort.Strings(dirs)

	summary := &Summary{
		Root:        root,
		Directories: len(dirs),
		StartedAt:   time.Now().UTC(),
	}

	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		imported, skipped, errored := importDir(ctx, s, filepath.Join(root, dir), opts, progress)
		summary.Imported += imported
		summary.Skipped += skipped
		summary.Errored += errored

		fmt.Fprintf(progress, "%s: %d imported, %d skipped, %d errored\n",
			dir, imported, skipped, errored)
	}

	summary.FinishedAt = time.Now().UTC()
	return summary, nil
}

func importDir(ctx context.Context, s *store.Store, dir string, opts Options, progress io.Writer) (imported, skipped, errored int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Fprintf(progress, "  %s: %v\n", dir, err)
		errored++
		return
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		path := filepath.Join(dir, name)
		if err := importFile(ctx, s, path, opts); err != nil {
			if errors.Is(err, errDuplicate) {
				skipped++
				continue
			}
			fmt.Fprintf(progress, "  %s: %v\n", path, err)
			errored++
			continue
		}
		imported++
	}
	return
}

var errDuplicate = errors.New("session already recorded")

func importFile(ctx context.Context, s *store.Store, path string, opts Options) error {
	traj, err := trajectory.ParseFile(path)
	if err != nil {
		return err
	}

	session, calls := metrics.Extract(traj, opts.Source)
	outcome, err := s.Ingest(ctx, &session, calls)
	if err != nil {
		return err
	}
	if outcome == store.SkippedDuplicate {
		return errDuplicate
	}
	if opts.Observe != nil {
		opts.Observe(&session)
	}
	return nil
}
