// Package store is the durable, relational side of the ingestion pipeline:
// a libsql database holding one sessions row per trajectory plus its
// reconstructed tool_calls rows, written under a uniqueness and
// referential-integrity contract.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"agentmetrics/internal/migrate"
)

// busyRetries bounds the retry loop for writes that hit a held lock; with
// the busy_timeout pragma this tolerates concurrent importers without
// failing immediately.
const busyRetries = 5

// Store wraps the metrics database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the metrics database at path and brings its
// schema up to date.
func Open(path string) (*Store, error) {
	return open("file:" + path)
}

// OpenInMemory opens the process-wide shared in-memory database. The shared
// cache keeps the data alive across pool connections, which also means every
// caller in the process sees the same database; tests needing isolation open
// a file under t.TempDir instead.
func OpenInMemory() (*Store, error) {
	return open("file::memory:?cache=shared")
}

func open(dsn string) (*Store, error) {
	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Foreign keys are off by default in SQLite; the cascade contract on
	// tool_calls depends on them.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	// busy_timeout reports the new value as a result row, so it has to go
	// through Query; the driver rejects row-returning statements in Exec.
	rows, err := db.Query("PRAGMA busy_timeout = 5000")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	_ = rows.Close()

	if err := migrate.RunAll(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// DB exposes the underlying handle for migration tooling.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

// IsBusyError reports whether err is a SQLite lock contention error.
func IsBusyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// WithRetry executes fn, retrying up to maxRetries times when the database
// is locked by a concurrent writer. Other errors return immediately.
func WithRetry[T any](ctx context.Context, maxRetries int, fn func() (T, error)) (T, error) {
	var result T
	var err error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		result, err = fn()
		if err == nil {
			return result, nil
		}

		if !IsBusyError(err) || attempt == maxRetries {
			return result, err
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}

	return result, err
}
