package storage

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	apperrors "github.com/flat-hunter/internal/errors"
)

// UserRepository stores opaque per-user settings blobs. The store never
// interprets the blob; callers own its format.
type UserRepository struct {
	h *Handle
}

// NewUserRepository creates a repository over the given handle.
func NewUserRepository(h *Handle) *UserRepository {
	return &UserRepository{h: h}
}

// GetSettings loads the settings blob for a user, or NotFound.
func (r *UserRepository) GetSettings(ctx context.Context, userID int64) ([]byte, error) {
	var blob []byte
	err := r.h.DB().QueryRowContext(ctx,
		`SELECT settings FROM users WHERE id = ?`, userID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("user settings", strconv.FormatInt(userID, 10))
	}
	if err != nil {
		return nil, translateErr("query user settings", "users", err)
	}
	return blob, nil
}

// PutSettings inserts or replaces the settings blob for a user.
func (r *UserRepository) PutSettings(ctx context.Context, userID int64, blob []byte) error {
	_, err := r.h.DB().ExecContext(ctx,
		`INSERT OR REPLACE INTO users (id, settings) VALUES (?, ?)`, userID, blob)
	return translateErr("put user settings", "users", err)
}
