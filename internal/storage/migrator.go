package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const migrationTableSchema = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version TEXT PRIMARY KEY,
	applied_at DATETIME
);`

// migrate applies every *.sql file under dir in fsys that is not yet recorded in schema_migrations.
// Files are applied in lexical order, each in its own transaction.
func migrate(db *sql.DB, fsys fs.FS, dir string) (int, error) {
	if _, err := db.Exec(migrationTableSchema); err != nil {
		return 0, fmt.Errorf("create migration table: %w", err)
	}

	files, err := migrationFiles(fsys, dir)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, file := range files {
		done, err := isApplied(db, file)
		if err != nil {
			return applied, err
		}
		if done {
			continue
		}

		content, err := fs.ReadFile(fsys, path.Join(dir, file))
		if err != nil {
			return applied, fmt.Errorf("read migration %s: %w", file, err)
		}

		log.Info().Str("file", file).Msg("Applying database migration...")
		if err := applyMigration(db, file, string(content)); err != nil {
			return applied, err
		}
		applied++
	}

	return applied, nil
}

func migrationFiles(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	slices.Sort(files)

	return files, nil
}

func isApplied(db *sql.DB, version string) (bool, error) {
	var one int
	err := db.QueryRow("SELECT 1 FROM schema_migrations WHERE version = ?", version).Scan(&one)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	default:
		return false, fmt.Errorf("check migration %s: %w", version, err)
	}
}

func applyMigration(db *sql.DB, version, stmt string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(stmt); err != nil {
		return fmt.Errorf("exec migration %s: %w", version, err)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)", version, time.Now().UTC()); err != nil {
		return fmt.Errorf("record migration %s: %w", version, err)
	}

	return tx.Commit()
}
