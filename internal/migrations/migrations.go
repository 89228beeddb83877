package migrations

import (
	"database/sql"
	"fmt"
)

// Migration represents a single database migration
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// AllMigrations contains all database migrations in order
var AllMigrations = []Migration{
	{
		Version: 1,
		Name:    "Add run name and status indices",
		Up: `
			CREATE INDEX IF NOT EXISTS idx_runs_name ON runs(name);
			CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_runs_name;
			DROP INDEX IF EXISTS idx_runs_status;
		`,
	},
	{
		Version: 2,
		Name:    "Add composite index for status breakdown queries",
		Up: `
			CREATE INDEX IF NOT EXISTS idx_metrics_run_status ON request_metrics(run_id, status_code);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_metrics_run_status;
		`,
	},
}

// InitSchema creates all tables used by the run journal
func InitSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		completed_at DATETIME,
		status TEXT NOT NULL,
		workers INTEGER NOT NULL DEFAULT 0,
		total_requests_sent INTEGER DEFAULT 0,
		total_requests_completed INTEGER DEFAULT 0,
		total_successes INTEGER DEFAULT 0,
		total_failures INTEGER DEFAULT 0,
		total_errors INTEGER DEFAULT 0,
		avg_duration_ms REAL DEFAULT 0,
		min_duration_ms REAL DEFAULT 0,
		max_duration_ms REAL DEFAULT 0,
		p50_duration_ms REAL DEFAULT 0,
		p95_duration_ms REAL DEFAULT 0,
		p99_duration_ms REAL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);

	CREATE TABLE IF NOT EXISTS request_metrics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		sequence_num INTEGER NOT NULL,
		timestamp DATETIME NOT NULL,
		elapsed_ms REAL NOT NULL,
		status_code INTEGER NOT NULL,
		duration_ms REAL NOT NULL,
		response_size INTEGER DEFAULT 0,
		payload_field TEXT,
		error_message TEXT,
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_metrics_run_id ON request_metrics(run_id);
	CREATE INDEX IF NOT EXISTS idx_metrics_elapsed ON request_metrics(run_id, elapsed_ms);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// Run executes all pending migrations on the database
func Run(db *sql.DB) error {
	if err := InitSchema(db); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, err := GetCurrentVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	for _, migration := range AllMigrations {
		if migration.Version <= currentVersion {
			continue
		}

		if _, err := db.Exec(migration.Up); err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w", migration.Version, migration.Name, err)
		}

		_, err = db.Exec(
			"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
			migration.Version,
			migration.Name,
		)
		if err != nil {
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// GetCurrentVersion returns the current database schema version
func GetCurrentVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow(`
		SELECT COALESCE(MAX(version), 0)
		FROM schema_migrations
	`).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return 0, err
	}
	return version, nil
}
