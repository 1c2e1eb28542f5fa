package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/flat-hunter/internal/errors"
	"github.com/flat-hunter/internal/models"
)

// ExposeRepository persists enriched listings. Rows are keyed by
// (id, source) and carry denormalized numeric columns beside the full
// serialized record, so range and filter queries never deserialize blobs
// they end up discarding.
type ExposeRepository struct {
	h *Handle
}

// NewExposeRepository creates a repository over the given handle.
func NewExposeRepository(h *Handle) *ExposeRepository {
	return &ExposeRepository{h: h}
}

// Upsert inserts or fully replaces the row for the expose's key. The caller
// does not need to know prior values; replace semantics are complete.
func (r *ExposeRepository) Upsert(ctx context.Context, e *models.Expose) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	blob, err := e.MarshalDetails()
	if err != nil {
		return apperrors.NewStoreIOError("serialize expose", err)
	}

	_, err = r.h.DB().ExecContext(ctx, `
		INSERT OR REPLACE INTO exposes (
			id, source, created, title, url, image,
			price, size, address,
			sqm_price, ref_sqm_price, ref_address, sqm_price_ratio,
			details
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Source, e.CreatedAt.UnixNano(), e.Title, e.URL, e.Image,
		e.PriceValue, e.SizeValue, e.Address,
		e.SqmPrice, e.RefSqmPrice, e.RefAddress, e.SqmPriceRatio,
		blob,
	)
	return translateErr("upsert expose", "exposes", err)
}

// ReferenceFields loads the previously stored enrichment triple for the
// key, returning NotFound when no row exists.
func (r *ExposeRepository) ReferenceFields(ctx context.Context, id int64, source string) (models.Reference, error) {
	var ref models.Reference
	err := r.h.DB().QueryRowContext(ctx, `
		SELECT ref_sqm_price, ref_address, sqm_price_ratio
		FROM exposes WHERE id = ? AND source = ?`, id, source).
		Scan(&ref.SqmPrice, &ref.Address, &ref.Ratio)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Reference{}, apperrors.NewNotFoundError("expose", fmt.Sprintf("%d/%s", id, source))
	}
	if err != nil {
		return models.Reference{}, translateErr("query reference fields", "exposes", err)
	}
	return ref, nil
}

// Get loads the full expose for the key, or NotFound.
func (r *ExposeRepository) Get(ctx context.Context, id int64, source string) (*models.Expose, error) {
	var blob []byte
	var created int64
	err := r.h.DB().QueryRowContext(ctx,
		`SELECT created, details FROM exposes WHERE id = ? AND source = ?`, id, source).
		Scan(&created, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("expose", fmt.Sprintf("%d/%s", id, source))
	}
	if err != nil {
		return nil, translateErr("query expose", "exposes", err)
	}
	return decodeExpose(created, blob)
}

// Since returns all exposes created at or after the given time, most
// recent first.
func (r *ExposeRepository) Since(ctx context.Context, since time.Time) ([]*models.Expose, error) {
	rows, err := r.h.DB().QueryContext(ctx, `
		SELECT created, details FROM exposes
		WHERE created >= ? ORDER BY created DESC`, since.UnixNano())
	if err != nil {
		return nil, translateErr("query exposes since", "exposes", err)
	}
	defer rows.Close()

	var result []*models.Expose
	for rows.Next() {
		var blob []byte
		var created int64
		if err := rows.Scan(&created, &blob); err != nil {
			return nil, translateErr("scan expose", "exposes", err)
		}
		e, err := decodeExpose(created, blob)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, translateErr("iterate exposes", "exposes", rows.Err())
}

// Filter decides whether a stored expose belongs in a query result.
type Filter func(*models.Expose) bool

// Recent returns up to count exposes satisfying the filter, scanning from
// the most recently created row and stopping as soon as count matches are
// found. A nil filter accepts everything.
func (r *ExposeRepository) Recent(ctx context.Context, count int, filter Filter) ([]*models.Expose, error) {
	if count <= 0 {
		return nil, nil
	}

	rows, err := r.h.DB().QueryContext(ctx,
		`SELECT created, details FROM exposes ORDER BY created DESC`)
	if err != nil {
		return nil, translateErr("query recent exposes", "exposes", err)
	}
	defer rows.Close()

	result := make([]*models.Expose, 0, count)
	for len(result) < count && rows.Next() {
		var blob []byte
		var created int64
		if err := rows.Scan(&created, &blob); err != nil {
			return nil, translateErr("scan expose", "exposes", err)
		}
		e, err := decodeExpose(created, blob)
		if err != nil {
			return nil, err
		}
		if filter == nil || filter(e) {
			result = append(result, e)
		}
	}
	return result, translateErr("iterate exposes", "exposes", rows.Err())
}

func decodeExpose(created int64, blob []byte) (*models.Expose, error) {
	e, err := models.UnmarshalExpose(blob)
	if err != nil {
		return nil, apperrors.NewStoreIOError("decode expose", err)
	}
	e.CreatedAt = time.Unix(0, created).UTC()
	return e, nil
}
