package download

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/anydl/any-downloader/internal/model"
)

// Repository persists job history to SQLite so finished jobs survive a
// restart until the retention sweep discards them. Auth contexts are never
// written here.
type Repository struct {
	db *sql.DB
}

// NewRepository creates the job tables if needed and returns the store
func NewRepository(db *sql.DB) (*Repository, error) {
	r := &Repository{db: db}
	if err := r.initTables(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Repository) initTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		state TEXT NOT NULL,
		dir TEXT,
		target_count INTEGER NOT NULL,
		created_at DATETIME,
		finished_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS job_outputs (
		job_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		path TEXT NOT NULL,
		UNIQUE(job_id, position)
	);

	CREATE TABLE IF NOT EXISTS job_errors (
		job_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		source_url TEXT NOT NULL,
		kind TEXT NOT NULL,
		message TEXT,
		UNIQUE(job_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_job_outputs_job_id ON job_outputs(job_id);
	CREATE INDEX IF NOT EXISTS idx_job_errors_job_id ON job_errors(job_id);
	`
	_, err := r.db.Exec(query)
	return err
}

// SaveJob upserts the job row and replaces its outputs and errors
func (r *Repository) SaveJob(job *model.Job) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var finishedAt interface{}
	if !job.FinishedAt.IsZero() {
		finishedAt = job.FinishedAt
	}

	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO jobs (id, mode, state, dir, target_count, created_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.ID, string(job.Mode), string(job.State), job.Dir, len(job.Targets), job.CreatedAt, finishedAt,
	); err != nil {
		return fmt.Errorf("failed to save job row: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM job_outputs WHERE job_id = ?`, job.ID); err != nil {
		return err
	}
	for i, path := range job.OutputPaths {
		if _, err := tx.Exec(
			`INSERT INTO job_outputs (job_id, position, path) VALUES (?, ?, ?)`,
			job.ID, i, path,
		); err != nil {
			return fmt.Errorf("failed to save job output: %w", err)
		}
	}

	if _, err := tx.Exec(`DELETE FROM job_errors WHERE job_id = ?`, job.ID); err != nil {
		return err
	}
	for i, targetErr := range job.Errors {
		if _, err := tx.Exec(
			`INSERT INTO job_errors (job_id, position, source_url, kind, message) VALUES (?, ?, ?, ?, ?)`,
			job.ID, i, targetErr.SourceURL, string(targetErr.Kind), targetErr.Message,
		); err != nil {
			return fmt.Errorf("failed to save job error: %w", err)
		}
	}

	return tx.Commit()
}

// JobRecord is one job history row with its outputs and errors
type JobRecord struct {
	ID          string
	Mode        string
	State       string
	Dir         string
	TargetCount int
	CreatedAt   time.Time
	FinishedAt  time.Time
	OutputPaths []string
	Errors      []model.TargetError
}

// GetJob loads one job history record
func (r *Repository) GetJob(id string) (*JobRecord, error) {
	row := r.db.QueryRow(
		`SELECT id, mode, state, dir, target_count, created_at, finished_at FROM jobs WHERE id = ?`, id)

	var record JobRecord
	var finishedAt sql.NullTime
	if err := row.Scan(&record.ID, &record.Mode, &record.State, &record.Dir,
		&record.TargetCount, &record.CreatedAt, &finishedAt); err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		record.FinishedAt = finishedAt.Time
	}

	outputs, err := r.db.Query(
		`SELECT path FROM job_outputs WHERE job_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer outputs.Close()
	for outputs.Next() {
		var path string
		if err := outputs.Scan(&path); err != nil {
			return nil, err
		}
		record.OutputPaths = append(record.OutputPaths, path)
	}
	if err := outputs.Err(); err != nil {
		return nil, err
	}

	errRows, err := r.db.Query(
		`SELECT source_url, kind, message FROM job_errors WHERE job_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer errRows.Close()
	for errRows.Next() {
		var targetErr model.TargetError
		var kind string
		if err := errRows.Scan(&targetErr.SourceURL, &kind, &targetErr.Message); err != nil {
			return nil, err
		}
		targetErr.Kind = model.TargetErrorKind(kind)
		record.Errors = append(record.Errors, targetErr)
	}
	if err := errRows.Err(); err != nil {
		return nil, err
	}

	return &record, nil
}

// ListJobs returns all job history rows, newest first, without their outputs
func (r *Repository) ListJobs() ([]JobRecord, error) {
	rows, err := r.db.Query(
		`SELECT id, mode, state, dir, target_count, created_at, finished_at FROM jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []JobRecord
	for rows.Next() {
		var record JobRecord
		var finishedAt sql.NullTime
		if err := rows.Scan(&record.ID, &record.Mode, &record.State, &record.Dir,
			&record.TargetCount, &record.CreatedAt, &finishedAt); err != nil {
			return nil, err
		}
		if finishedAt.Valid {
			record.FinishedAt = finishedAt.Time
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// DeleteJob removes a job and its outputs and errors from history
func (r *Repository) DeleteJob(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM job_outputs WHERE job_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM job_errors WHERE job_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM jobs WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}
