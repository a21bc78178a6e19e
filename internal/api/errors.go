// Package api provides HTTP API handlers and utilities for the Hearsay API.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hearsayhq/hearsay/internal/apperr"
	"github.com/hearsayhq/hearsay/internal/middleware"
)

// Common error codes used throughout the API.
const (
	// ErrCodeValidation indicates input validation failure.
	ErrCodeValidation = "validation_failed"

	// ErrCodeAuthRequired indicates the endpoint needs an authenticated user.
	ErrCodeAuthRequired = "auth_required"

	// ErrCodeAuthFailed indicates authentication failure.
	ErrCodeAuthFailed = "auth_failed"

	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound = "not_found"

	// ErrCodeRateLimited indicates rate limit exceeded.
	ErrCodeRateLimited = "rate_limited"

	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal = "internal_error"

	// ErrCodeForbidden indicates the request is forbidden.
	ErrCodeForbidden = "forbidden"

	// ErrCodeConflict indicates a conflict with the current state.
	ErrCodeConflict = "conflict"

	// ErrCodeBadRequest indicates a malformed request.
	ErrCodeBadRequest = "bad_request"

	// ErrCodeInvalidVideoID indicates the video reference could not be parsed.
	ErrCodeInvalidVideoID = "invalid_video_id"

	// ErrCodeInvalidTimeRange indicates clip start time is not before end time.
	ErrCodeInvalidTimeRange = "invalid_time_range"

	// ErrCodeDuplicateFigure indicates a figure with this name already exists.
	ErrCodeDuplicateFigure = "duplicate_figure"

	// ErrCodeInvalidVoteKind indicates the vote kind is not upvote/downvote.
	ErrCodeInvalidVoteKind = "invalid_vote_kind"

	// ErrCodeUnsupportedType indicates an unsupported content type for upload.
	ErrCodeUnsupportedType = "unsupported_type"
)

// ErrorResponse represents the standard error response format.
// All API errors return JSON in this structure: {"error": {"code": "...", "message": "..."}}
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error code and human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError writes a standardized JSON error response.
// It writes the appropriate HTTP status code and returns a JSON error body.
//
// Format: {"error": {"code": "error_code", "message": "Error description"}}
//
// The error_code will be automatically logged by the logging middleware
// for all 4xx and 5xx responses if you call SetErrorCode on the context
// and pass the updated context to WriteError.
//
// Example:
//
//	ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeNotFound)
//	WriteError(w, ctx, http.StatusNotFound, api.ErrCodeNotFound, "Figure not found")
func WriteError(w http.ResponseWriter, ctx context.Context, status int, code, message string) {
	// Update the context in the response writer if supported (for logging middleware)
	middleware.UpdateResponseContext(w, ctx)

	errResp := ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	}

	data, err := json.Marshal(errResp)
	if err != nil {
		// Fallback to plain text if JSON marshaling fails
		slog.ErrorContext(ctx, "failed to marshal error response", "error", err)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Internal server error"))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.ErrorContext(ctx, "failed to write error response", "error", err)
	}
}

// WriteAppError translates a repository/service error into the standard
// error response, mapping apperr kinds to codes and HTTP statuses.
// Unknown errors are logged and reported as internal without leaking the
// underlying cause.
func WriteAppError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	code, status := codeForKind(kind)
	message := apperr.UserMessage(err, "Something went wrong")
	if kind == apperr.KindUnknown {
		slog.ErrorContext(r.Context(), "request failed", "error", err)
		message = "Something went wrong"
	}

	ctx := middleware.SetErrorCode(r.Context(), code)
	WriteError(w, ctx, status, code, message)
}

func codeForKind(kind apperr.Kind) (code string, status int) {
	switch kind {
	case apperr.KindUnauthenticated:
		return ErrCodeAuthRequired, http.StatusUnauthorized
	case apperr.KindPermissionDenied:
		return ErrCodeForbidden, http.StatusForbidden
	case apperr.KindNotFound:
		return ErrCodeNotFound, http.StatusNotFound
	case apperr.KindValidationFailed:
		return ErrCodeValidation, http.StatusBadRequest
	case apperr.KindConflict:
		return ErrCodeConflict, http.StatusConflict
	default:
		return ErrCodeInternal, http.StatusInternalServerError
	}
}

// StatusCodeMapping returns the recommended HTTP status code for common error codes.
// This is a convenience function to map error codes to HTTP status codes.
func StatusCodeMapping(code string) int {
	switch code {
	case ErrCodeValidation, ErrCodeBadRequest, ErrCodeInvalidVideoID, ErrCodeInvalidTimeRange, ErrCodeInvalidVoteKind, ErrCodeUnsupportedType:
		return http.StatusBadRequest
	case ErrCodeAuthRequired, ErrCodeAuthFailed:
		return http.StatusUnauthorized
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeConflict, ErrCodeDuplicateFigure:
		return http.StatusConflict
	case ErrCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, ctx context.Context, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}
