package stresstest

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/studiowebux/apiharness/internal/migrations"
)

// MemoryDSN opens a journal that lives only as long as the process
const MemoryDSN = ":memory:"

// Journal records runs and their per-request metrics in SQLite
type Journal struct {
	db *sql.DB
}

// NewJournal opens a journal at dsn and applies the schema
func NewJournal(dsn string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every pooled connection to ":memory:" is a separate empty database.
	db.SetMaxOpenConns(1)

	if err := migrations.Run(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Journal{db: db}, nil
}

// NewMemoryJournal opens an in-memory journal
func NewMemoryJournal() (*Journal, error) {
	return NewJournal(MemoryDSN)
}

// Close closes the database connection
func (j *Journal) Close() error {
	return j.db.Close()
}

// CreateRun inserts a run record and sets its ID
func (j *Journal) CreateRun(run *Run) error {
	result, err := j.db.Exec(`
		INSERT INTO runs (name, started_at, status, workers, total_requests_sent)
		VALUES (?, ?, ?, ?, ?)
	`, run.Name, run.StartedAt, run.Status, run.Workers, run.TotalRequestsSent)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	run.ID = id
	return nil
}

// UpdateRun writes the final figures of a run
func (j *Journal) UpdateRun(run *Run) error {
	_, err := j.db.Exec(`
		UPDATE runs
		SET completed_at = ?, status = ?, total_requests_sent = ?, total_requests_completed = ?,
		    total_successes = ?, total_failures = ?, total_errors = ?,
		    avg_duration_ms = ?, min_duration_ms = ?, max_duration_ms = ?,
		    p50_duration_ms = ?, p95_duration_ms = ?, p99_duration_ms = ?
		WHERE id = ?
	`, run.CompletedAt, run.Status, run.TotalRequestsSent, run.TotalRequestsCompleted,
		run.TotalSuccesses, run.TotalFailures, run.TotalErrors,
		run.AvgDurationMs, run.MinDurationMs, run.MaxDurationMs,
		run.P50DurationMs, run.P95DurationMs, run.P99DurationMs, run.ID)
	if err != nil {
		return fmt.Errorf("failed to update run %d: %w", run.ID, err)
	}
	return nil
}

const runColumns = `
	id, name, started_at, completed_at, status, workers,
	total_requests_sent, total_requests_completed, total_successes, total_failures, total_errors,
	COALESCE(avg_duration_ms, 0), COALESCE(min_duration_ms, 0), COALESCE(max_duration_ms, 0),
	COALESCE(p50_duration_ms, 0), COALESCE(p95_duration_ms, 0), COALESCE(p99_duration_ms, 0)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	run := &Run{}
	var completedAt sql.NullTime

	err := row.Scan(&run.ID, &run.Name, &run.StartedAt, &completedAt, &run.Status, &run.Workers,
		&run.TotalRequestsSent, &run.TotalRequestsCompleted, &run.TotalSuccesses, &run.TotalFailures, &run.TotalErrors,
		&run.AvgDurationMs, &run.MinDurationMs, &run.MaxDurationMs,
		&run.P50DurationMs, &run.P95DurationMs, &run.P99DurationMs)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	return run, nil
}

// GetRun retrieves a run by ID
func (j *Journal) GetRun(id int64) (*Run, error) {
	return scanRun(j.db.QueryRow("SELECT "+runColumns+" FROM runs WHERE id = ?", id))
}

// ListRuns returns runs, newest first. An empty name lists every run.
func (j *Journal) ListRuns(name string, limit int) ([]*Run, error) {
	query := "SELECT " + runColumns + " FROM runs WHERE name = ? OR ? = '' ORDER BY started_at DESC, id DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := j.db.Query(query, name, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// SaveMetricsBatch saves multiple metrics in a single transaction
func (j *Journal) SaveMetricsBatch(metrics []*Metric) error {
	if len(metrics) == 0 {
		return nil
	}

	tx, err := j.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO request_metrics
		(run_id, sequence_num, timestamp, elapsed_ms, status_code, duration_ms, response_size, payload_field, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, metric := range metrics {
		_, err := stmt.Exec(metric.RunID, metric.SequenceNum, metric.Timestamp, metric.ElapsedMs, metric.StatusCode,
			metric.DurationMs, metric.ResponseSize, metric.PayloadField, metric.ErrorMessage)
		if err != nil {
			return fmt.Errorf("failed to insert metric: %w", err)
		}
	}

	return tx.Commit()
}

// GetMetrics retrieves all metrics for a run in sequence order
func (j *Journal) GetMetrics(runID int64) ([]*Metric, error) {
	rows, err := j.db.Query(`
		SELECT id, run_id, sequence_num, timestamp, elapsed_ms, status_code, duration_ms, response_size,
		       COALESCE(payload_field, ''), COALESCE(error_message, '')
		FROM request_metrics
		WHERE run_id = ?
		ORDER BY sequence_num
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metrics []*Metric
	for rows.Next() {
		metric := &Metric{}
		err := rows.Scan(&metric.ID, &metric.RunID, &metric.SequenceNum, &metric.Timestamp, &metric.ElapsedMs,
			&metric.StatusCode, &metric.DurationMs, &metric.ResponseSize, &metric.PayloadField, &metric.ErrorMessage)
		if err != nil {
			return nil, err
		}
		metrics = append(metrics, metric)
	}
	return metrics, rows.Err()
}

// StatusBreakdown counts a run's requests per status code. Transport
// errors appear under status 0.
func (j *Journal) StatusBreakdown(runID int64) (map[int]int, error) {
	rows, err := j.db.Query(`
		SELECT status_code, COUNT(*)
		FROM request_metrics
		WHERE run_id = ?
		GROUP BY status_code
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	breakdown := make(map[int]int)
	for rows.Next() {
		var status, count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		breakdown[status] = count
	}
	return breakdown, rows.Err()
}
