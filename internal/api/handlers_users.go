package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	apperrors "github.com/flat-hunter/internal/errors"
)

const maxSettingsBytes = 64 * 1024

// handleGetSettings returns the stored settings blob for a user.
//
// GET /api/users/{id}/settings
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r)
	if err != nil {
		respondAppError(w, err)
		return
	}

	blob, err := s.users.GetSettings(r.Context(), userID)
	if err != nil {
		respondAppError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(blob)
}

// handlePutSettings stores the settings blob for a user, replacing any
// previous value. The body must be valid JSON; the server does not
// interpret it further.
//
// PUT /api/users/{id}/settings
func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r)
	if err != nil {
		respondAppError(w, err)
		return
	}

	blob, err := io.ReadAll(io.LimitReader(r.Body, maxSettingsBytes+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "could not read request body", nil)
		return
	}
	if len(blob) > maxSettingsBytes {
		respondAppError(w, apperrors.NewValidationError("settings", "body too large"))
		return
	}
	if !json.Valid(blob) {
		respondAppError(w, apperrors.NewValidationError("settings", "body must be valid JSON"))
		return
	}

	if err := s.users.PutSettings(r.Context(), userID, blob); err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": userID,
		"updated": true,
	})
}

// handleStatus reports when the last hunt run finished.
//
// GET /api/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	lastRun, err := s.executions.LastRun(r.Context())
	if apperrors.IsNotFound(err) {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"last_run": nil,
		})
		return
	}
	if err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"last_run": lastRun.Format(time.RFC3339),
	})
}

func parseUserID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		return 0, apperrors.NewValidationError("id", "must be a positive integer")
	}
	return userID, nil
}
