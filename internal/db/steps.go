package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// RecordStep appends one step entry to a run's history. History is
// never updated in place; a step that ran twice appears twice.
func (db *DB) RecordStep(ctx context.Context, runID uuid.UUID, name, status, message string) (*Step, error) {
	var step Step
	err := db.pool.QueryRow(ctx,
		`INSERT INTO pipeline_steps (run_id, name, status, message)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, run_id, name, status, message, created_at`,
		runID, name, status, message,
	).Scan(&step.ID, &step.RunID, &step.Name, &step.Status, &step.Message, &step.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record step: %w", err)
	}
	return &step, nil
}

// ListSteps retrieves a run's full step history in recorded order.
func (db *DB) ListSteps(ctx context.Context, runID uuid.UUID) ([]Step, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, run_id, name, status, message, created_at
		 FROM pipeline_steps
		 WHERE run_id = $1
		 ORDER BY created_at, id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list steps: %w", err)
	}
	defer rows.Close()

	var steps []Step
	for rows.Next() {
		var step Step
		if err := rows.Scan(&step.ID, &step.RunID, &step.Name, &step.Status, &step.Message, &step.CreatedAt); err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}
