// Package migrate applies the embedded schema migrations to a metrics
// database. Versions are tracked in a schema_migrations table with a dirty
// flag so a half-applied migration is detected instead of silently reapplied.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"agentmetrics/migrations"
)

// Migration is one versioned schema change with up and down SQL.
type Migration struct {
	Version int
	Name    string
	UpSQL   string
	DownSQL string
}

var upPattern = regexp.MustCompile(`^(\d+)_(.+)\.up\.sql$`)

// EnsureMigrationsTable creates the schema_migrations table if missing.
func EnsureMigrationsTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			dirty INTEGER NOT NULL DEFAULT 0
		)
	`)
	return err
}

// CurrentVersion returns the applied migration version and dirty state.
// A fresh database reports version 0.
func CurrentVersion(ctx context.Context, db *sql.DB) (int, bool, error) {
	var version, dirty int
	err := db.QueryRowContext(ctx,
		`SELECT version, dirty FROM schema_migrations ORDER BY version DESC LIMIT 1`,
	).Scan(&version, &dirty)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return version, dirty == 1, nil
}

func setVersion(ctx context.Context, db *sql.DB, version int, dirty bool) error {
	dirtyInt := 0
	if dirty {
		dirtyInt = 1
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM schema_migrations`); err != nil {
		return err
	}
	if version > 0 {
		_, err := db.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, dirty) VALUES (?, ?)`,
			version, dirtyInt)
		return err
	}
	return nil
}

// Load reads the embedded migration files, sorted by version.
func Load() ([]Migration, error) {
	var result []Migration

	err := fs.WalkDir(migrations.FS, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		matches := upPattern.FindStringSubmatch(filepath.Base(path))
		if matches == nil {
			return nil
		}

		version, _ := strconv.Atoi(matches[1])
		name := matches[2]

		upSQL, err := fs.ReadFile(migrations.FS, path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		// The down migration is optional.
		downSQL, err := fs.ReadFile(migrations.FS, fmt.Sprintf("%03d_%s.down.sql", version, name))
		if err != nil {
			downSQL = nil
		}

		result = append(result, Migration{
			Version: version,
			Name:    name,
			UpSQL:   string(upSQL),
			DownSQL: string(downSQL),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Version < result[j].Version
	})
	return result, nil
}

// Apply executes a single migration in the given direction, marking the
// schema dirty for the duration so an interrupted run is detectable.
func Apply(ctx context.Context, db *sql.DB, m Migration, up bool) error {
	sqlContent := m.UpSQL
	targetVersion := m.Version
	if !up {
		sqlContent = m.DownSQL
		targetVersion = m.Version - 1
	}

	if err := setVersion(ctx, db, m.Version, true); err != nil {
		return fmt.Errorf("set dirty flag: %w", err)
	}

	for _, stmt := range strings.Split(sqlContent, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d_%s: %w", m.Version, m.Name, err)
		}
	}

	if err := setVersion(ctx, db, targetVersion, false); err != nil {
		return fmt.Errorf("clear dirty flag: %w", err)
	}
	return nil
}

// RunAll applies every pending migration. Safe to call on every open; it is
// a no-op when the schema is current.
func RunAll(ctx context.Context, db *sql.DB) error {
	if err := EnsureMigrationsTable(ctx, db); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	currentVersion, dirty, err := CurrentVersion(ctx, db)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is in dirty state at version %d, manual intervention required", currentVersion)
	}

	all, err := Load()
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	for _, m := range all {
		if m.Version <= currentVersion {
			continue
		}
		if err := Apply(ctx, db, m, true); err != nil {
			return err
		}
	}
	return nil
}

// DownTo rolls the schema back to targetVersion.
func DownTo(ctx context.Context, db *sql.DB, targetVersion int) error {
	if err := EnsureMigrationsTable(ctx, db); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	currentVersion, dirty, err := CurrentVersion(ctx, db)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is in dirty state at version %d, manual intervention required", currentVersion)
	}

	all, err := Load()
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	for i := len(all) - 1; i >= 0; i-- {
		m := all[i]
		if m.Version > currentVersion {
			continue
		}
		if m.Version <= targetVersion {
			break
		}
		if m.DownSQL == "" {
			return fmt.Errorf("no down migration for version %d", m.Version)
		}
		if err := Apply(ctx, db, m, false); err != nil {
			return err
		}
	}
	return nil
}
