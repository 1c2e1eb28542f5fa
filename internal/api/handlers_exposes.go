package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	apperrors "github.com/flat-hunter/internal/errors"
	"github.com/flat-hunter/internal/models"
	"github.com/flat-hunter/internal/storage"
)

const defaultRecentCount = 20

// handleRecentExposes returns the newest stored exposes, optionally
// narrowed by source, price and ratio filters.
//
// GET /api/exposes/recent?count=20&source=immowelt&max_price=1500&max_ratio=1.2
func (s *Server) handleRecentExposes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	count := defaultRecentCount
	if raw := q.Get("count"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			respondAppError(w, apperrors.NewValidationError("count", "must be a positive integer"))
			return
		}
		count = v
	}

	filter, err := buildExposeFilter(q)
	if err != nil {
		respondAppError(w, err)
		return
	}

	exposes, err := s.exposes.Recent(r.Context(), count, filter)
	if err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(exposes),
		"exposes": exposes,
	})
}

// handleExposesSince returns all exposes created at or after a timestamp.
//
// GET /api/exposes?since=2026-08-01T00:00:00Z
func (s *Server) handleExposesSince(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("since")
	if raw == "" {
		respondAppError(w, apperrors.NewValidationError("since", "required RFC 3339 timestamp"))
		return
	}
	since, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		respondAppError(w, apperrors.NewValidationError("since", "must be an RFC 3339 timestamp"))
		return
	}

	exposes, err := s.exposes.Since(r.Context(), since)
	if err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(exposes),
		"exposes": exposes,
	})
}

// handleGetExpose returns one stored expose by source and identifier.
//
// GET /api/exposes/{source}/{id}
func (s *Server) handleGetExpose(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		respondAppError(w, apperrors.NewValidationError("id", "must be an integer"))
		return
	}

	expose, err := s.exposes.Get(r.Context(), id, vars["source"])
	if err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, expose)
}

// buildExposeFilter assembles a row predicate from query parameters. An
// empty parameter set yields a nil filter, meaning no row is skipped.
func buildExposeFilter(q map[string][]string) (storage.Filter, error) {
	get := func(key string) string {
		if vs := q[key]; len(vs) > 0 {
			return vs[0]
		}
		return ""
	}

	var preds []storage.Filter

	if source := get("source"); source != "" {
		preds = append(preds, func(e *models.Expose) bool { return e.Source == source })
	}
	if raw := get("max_price"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, apperrors.NewValidationError("max_price", "must be a number")
		}
		preds = append(preds, func(e *models.Expose) bool {
			return e.PriceValue > 0 && e.PriceValue <= v
		})
	}
	if raw := get("min_size"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, apperrors.NewValidationError("min_size", "must be a number")
		}
		preds = append(preds, func(e *models.Expose) bool {
			return e.SizeValue >= v
		})
	}
	if raw := get("max_ratio"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, apperrors.NewValidationError("max_ratio", "must be a number")
		}
		preds = append(preds, func(e *models.Expose) bool {
			return e.SqmPriceRatio > 0 && e.SqmPriceRatio <= v
		})
	}

	if len(preds) == 0 {
		return nil, nil
	}
	return func(e *models.Expose) bool {
		for _, p := range preds {
			if !p(e) {
				return false
			}
		}
		return true
	}, nil
}
