package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// CreateRun records the start of a pipeline run and returns its database ID.
// runTag is the short correlation ID that also appears in log lines and
// image IDs.
func (db *DB) CreateRun(ctx context.Context, runTag, prompt string) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO pipeline_runs (run_tag, prompt, status)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		runTag, prompt, RunStatusRunning,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// CompleteRun marks a pipeline run finished with the given status.
func (db *DB) CompleteRun(ctx context.Context, id uuid.UUID, status string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE pipeline_runs SET status = $1, completed_at = NOW() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}
