package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const runColumns = `id, user_subject, document_ref, filename, cardinality, status, created_at, completed_at`

func scanRun(row pgx.Row) (*Run, error) {
	var run Run
	err := row.Scan(&run.ID, &run.UserSubject, &run.DocumentRef, &run.Filename,
		&run.Cardinality, &run.Status, &run.CreatedAt, &run.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// CreateRun records a new automation run in pending state.
func (db *DB) CreateRun(ctx context.Context, userSubject, documentRef, filename, cardinality string) (*Run, error) {
	row := db.pool.QueryRow(ctx,
		`INSERT INTO automation_runs (user_subject, document_ref, filename, cardinality, status)
		 VALUES ($1, $2, $3, $4, 'pending')
		 RETURNING `+runColumns,
		userSubject, documentRef, filename, cardinality,
	)
	run, err := scanRun(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// GetRun retrieves a run by id. Returns (nil, nil) when no run exists.
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+runColumns+` FROM automation_runs WHERE id = $1`, runID)
	run, err := scanRun(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves a user's runs, newest first, optionally filtered
// by status.
func (db *DB) ListRuns(ctx context.Context, userSubject, status string) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM automation_runs WHERE user_subject = $1`
	args := []interface{}{userSubject}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// MarkRunRunning transitions a run to running.
func (db *DB) MarkRunRunning(ctx context.Context, runID uuid.UUID) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE automation_runs SET status = 'running' WHERE id = $1 AND status = 'pending'`,
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark run running: %w", err)
	}
	return nil
}

// CompleteRun marks a run terminal as completed or failed.
func (db *DB) CompleteRun(ctx context.Context, runID uuid.UUID, status string) error {
	if status != RunStatusCompleted && status != RunStatusFailed {
		return fmt.Errorf("invalid terminal run status %q", status)
	}
	_, err := db.pool.Exec(ctx,
		`UPDATE automation_runs SET status = $1, completed_at = NOW() WHERE id = $2`,
		status, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}
