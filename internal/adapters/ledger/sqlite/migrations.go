package sqlite

import (
	"database/sql"
	"fmt"
)

type migration struct {
	version int
	name    string
	sql     string
}

var migrations = []migration{
	{1, "create_sync_runs_table", createSyncRunsTable},
	{2, "create_sync_files_table", createSyncFilesTable},
	{3, "create_sync_indices", createSyncIndices},
}

// applyMigrations applies all database migrations in order.
func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("could not enable foreign keys: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("could not create migrations table: %w", err)
	}

	for _, m := range migrations {
		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM migrations WHERE version = ?", m.version).Scan(&count); err != nil {
			return fmt.Errorf("could not check migration %d: %w", m.version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("could not begin migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("could not apply migration %d (%s): %w", m.version, m.name, err)
		}
		if _, err := tx.Exec("INSERT INTO migrations (version, name) VALUES (?, ?)", m.version, m.name); err != nil {
			tx.Rollback()
			return fmt.Errorf("could not record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("could not commit migration %d: %w", m.version, err)
		}
	}

	return nil
}

const createSyncRunsTable = `
CREATE TABLE sync_runs (
	id TEXT PRIMARY KEY,
	team TEXT NOT NULL,
	source TEXT NOT NULL,
	destination TEXT NOT NULL,
	wip INTEGER NOT NULL DEFAULT 0,
	dry_run INTEGER NOT NULL DEFAULT 0,
	skip_existing INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	created INTEGER NOT NULL DEFAULT 0,
	updated INTEGER NOT NULL DEFAULT 0,
	skipped INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0,
	error TEXT,
	started_at TEXT NOT NULL,
	completed_at TEXT
);
`

const createSyncFilesTable = `
CREATE TABLE sync_files (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	path TEXT NOT NULL,
	category TEXT NOT NULL,
	title TEXT NOT NULL,
	state TEXT NOT NULL,
	document_number INTEGER,
	error TEXT,
	recorded_at TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES sync_runs(id) ON DELETE CASCADE
);
`

const createSyncIndices = `
CREATE INDEX idx_sync_runs_started_at ON sync_runs(started_at);
CREATE INDEX idx_sync_files_run_id ON sync_files(run_id);
`
