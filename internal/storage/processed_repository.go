package storage

import (
	"context"
	"database/sql"
	"errors"

	apperrors "github.com/flat-hunter/internal/errors"
)

// ProcessedRepository persists the append-only set of listing identifiers
// that have already been admitted through the dedup gate.
type ProcessedRepository struct {
	h *Handle
}

// NewProcessedRepository creates a repository over the given handle.
func NewProcessedRepository(h *Handle) *ProcessedRepository {
	return &ProcessedRepository{h: h}
}

// IsProcessed reports whether the identifier has already been admitted.
func (r *ProcessedRepository) IsProcessed(ctx context.Context, id int64, source string) (bool, error) {
	var one int
	err := r.h.DB().QueryRowContext(ctx,
		`SELECT 1 FROM processed WHERE id = ? AND source = ?`, id, source).Scan(&one)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, translateErr("query processed", "processed", err)
}

// Mark inserts the identifier into the processed set. The first caller to
// reach the row wins and gets inserted=true; every later or racing caller
// gets inserted=false. Losing the race at the primary key is a normal
// outcome, never an error.
func (r *ProcessedRepository) Mark(ctx context.Context, id int64, source string) (bool, error) {
	_, err := r.h.DB().ExecContext(ctx,
		`INSERT INTO processed (id, source) VALUES (?, ?)`, id, source)
	if err == nil {
		return true, nil
	}

	terr := translateErr("mark processed", "processed", err)
	if apperrors.IsConflict(terr) {
		return false, nil
	}
	return false, terr
}
