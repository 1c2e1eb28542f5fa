package api

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/flat-hunter/internal/errors"
)

// ErrorBody is the payload of an error response.
type ErrorBody struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}

	json.NewEncoder(w).Encode(response)
}

// respondAppError translates a categorized error into an HTTP response.
func respondAppError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	code := "INTERNAL_ERROR"
	message := "An internal error occurred"
	var catErr *apperrors.CategorizedError
	if errors.As(err, &catErr) {
		code = catErr.Code
		if status < http.StatusInternalServerError {
			message = catErr.Message
		}
	}
	respondError(w, status, code, message, nil)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}
