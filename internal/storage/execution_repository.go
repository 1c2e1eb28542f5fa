package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	apperrors "github.com/flat-hunter/internal/errors"
)

// ExecutionRepository records hunt-run completion times, answering "how
// long since the last successful run".
type ExecutionRepository struct {
	h *Handle
}

// NewExecutionRepository creates a repository over the given handle.
func NewExecutionRepository(h *Handle) *ExecutionRepository {
	return &ExecutionRepository{h: h}
}

// Record appends one completed run to the execution log.
func (r *ExecutionRepository) Record(ctx context.Context, runID string, finishedAt time.Time) error {
	_, err := r.h.DB().ExecContext(ctx,
		`INSERT INTO executions (run_id, finished_at) VALUES (?, ?)`,
		runID, finishedAt.UnixNano())
	return translateErr("record execution", "executions", err)
}

// LastRun returns the completion time of the most recent run, or NotFound
// when no run has completed yet.
func (r *ExecutionRepository) LastRun(ctx context.Context) (time.Time, error) {
	var finished int64
	err := r.h.DB().QueryRowContext(ctx,
		`SELECT finished_at FROM executions ORDER BY finished_at DESC LIMIT 1`).
		Scan(&finished)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, apperrors.NewNotFoundError("execution", "latest")
	}
	if err != nil {
		return time.Time{}, translateErr("query last execution", "executions", err)
	}
	return time.Unix(0, finished).UTC(), nil
}
