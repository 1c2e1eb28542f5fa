// Package errors defines the categorized error taxonomy used across the
// hunting pipeline. Every error that crosses a component boundary carries a
// category so callers can decide between "degrade for this listing" and
// "fail the current operation".
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Category classifies an error for handling policy decisions.
type Category string

const (
	// CategoryParse marks malformed numeric listing fields. Degrade to
	// sentinel values, never abort the pipeline for one listing.
	CategoryParse Category = "parse"
	// CategoryResolution marks a failed reference-price lookup. Degrade to
	// sentinel reference fields, continue the pipeline.
	CategoryResolution Category = "resolution"
	// CategoryConflict marks a uniqueness violation lost to a racing peer.
	// Treated as "already admitted", never as a crash.
	CategoryConflict Category = "conflict"
	// CategoryDatabase marks a store connection or statement failure. Fatal
	// for the current operation, propagated to the caller.
	CategoryDatabase Category = "database"
	// CategoryRateLimit marks a rate-limit rejection from the export sink.
	CategoryRateLimit Category = "rate_limit"
	// CategoryNotFound marks a missing row for a keyed lookup.
	CategoryNotFound Category = "not_found"
	// CategoryValidation marks invalid caller input at the API boundary.
	CategoryValidation Category = "validation"
)

// CategorizedError is an error with a category, a stable code and an
// optional cause.
type CategorizedError struct {
	Category Category
	Code     string
	Message  string
	Details  map[string]interface{}
	Cause    error
}

// Error implements the error interface.
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// NewParseError reports a malformed numeric field on a listing.
func NewParseError(field, raw string) *CategorizedError {
	return &CategorizedError{
		Category: CategoryParse,
		Code:     "PARSE_ERROR",
		Message:  fmt.Sprintf("malformed %s value %q", field, raw),
		Details:  map[string]interface{}{"field": field, "value": raw},
	}
}

// NewResolutionError reports a failed reference-price resolution.
func NewResolutionError(address string, cause error) *CategorizedError {
	return &CategorizedError{
		Category: CategoryResolution,
		Code:     "RESOLUTION_FAILED",
		Message:  fmt.Sprintf("reference price resolution failed for %q", address),
		Details:  map[string]interface{}{"address": address},
		Cause:    cause,
	}
}

// NewStoreConflictError reports a uniqueness violation on insert.
func NewStoreConflictError(table string, cause error) *CategorizedError {
	return &CategorizedError{
		Category: CategoryConflict,
		Code:     "STORE_CONFLICT",
		Message:  fmt.Sprintf("duplicate key in %s", table),
		Details:  map[string]interface{}{"table": table},
		Cause:    cause,
	}
}

// NewStoreIOError reports a store connection, schema or statement failure.
func NewStoreIOError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category: CategoryDatabase,
		Code:     "STORE_IO_ERROR",
		Message:  fmt.Sprintf("store failure during %s", operation),
		Details:  map[string]interface{}{"operation": operation},
		Cause:    cause,
	}
}

// NewSinkRateLimitedError reports a rate-limit rejection from the export sink.
func NewSinkRateLimitedError(sink string, cause error) *CategorizedError {
	return &CategorizedError{
		Category: CategoryRateLimit,
		Code:     "SINK_RATE_LIMITED",
		Message:  fmt.Sprintf("export sink %s rejected the append with a rate limit", sink),
		Details:  map[string]interface{}{"sink": sink},
		Cause:    cause,
	}
}

// NewNotFoundError reports a missing row for a keyed lookup.
func NewNotFoundError(resource, key string) *CategorizedError {
	return &CategorizedError{
		Category: CategoryNotFound,
		Code:     "NOT_FOUND",
		Message:  fmt.Sprintf("%s not found: %s", resource, key),
		Details:  map[string]interface{}{"resource": resource, "key": key},
	}
}

// NewValidationError reports invalid caller input.
func NewValidationError(param, reason string) *CategorizedError {
	return &CategorizedError{
		Category: CategoryValidation,
		Code:     "INVALID_PARAMETER",
		Message:  fmt.Sprintf("invalid parameter %q: %s", param, reason),
		Details:  map[string]interface{}{"parameter": param, "reason": reason},
	}
}

// CategoryOf returns the category of err, or the empty string for
// uncategorized errors.
func CategoryOf(err error) Category {
	var ce *CategorizedError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return ""
}

// IsConflict reports whether err is a lost-the-race uniqueness violation.
func IsConflict(err error) bool { return CategoryOf(err) == CategoryConflict }

// IsNotFound reports whether err is a missing-row lookup failure.
func IsNotFound(err error) bool { return CategoryOf(err) == CategoryNotFound }

// IsRateLimited reports whether err is a sink rate-limit rejection.
func IsRateLimited(err error) bool { return CategoryOf(err) == CategoryRateLimit }

// IsResolution reports whether err is a failed reference-price resolution.
func IsResolution(err error) bool { return CategoryOf(err) == CategoryResolution }

// IsParse reports whether err is a malformed-field error.
func IsParse(err error) bool { return CategoryOf(err) == CategoryParse }

// HTTPStatus maps an error to the status code the API layer should return.
func HTTPStatus(err error) int {
	switch CategoryOf(err) {
	case CategoryValidation, CategoryParse:
		return http.StatusBadRequest
	case CategoryNotFound:
		return http.StatusNotFound
	case CategoryConflict:
		return http.StatusConflict
	case CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
