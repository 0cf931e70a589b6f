package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON / writeError / redirect so the
// wire format stays uniform:
//
//	{"error": "not_found", "message": "post not found with id 7"}
//	{"error": "validation_error", "message": "title is required", "field": "title"}

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/clean-blog/internal/apperror"
)

// ErrorResponse is the error body returned by every endpoint.
type ErrorResponse struct {
	Error   string `json:"error"`           // machine-readable type, e.g. "not_found"
	Message string `json:"message"`         // human-readable description
	Field   string `json:"field,omitempty"` // offending form field, when known
}

// writeJSON sends a JSON response. Headers and status must be written
// before the body; after the first Write they are frozen.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its HTTP status:
//
//	ErrValidation   → 400
//	ErrUnauthorized → 401
//	ErrForbidden    → 403
//	ErrNotFound     → 404
//	ErrConflict     → 409
//	anything else   → 500 with a generic message
//
// errors.Is walks the wrap chain, so a service error like
// fmt.Errorf("service/post: ...: %w", apperror.Forbidden(...)) still maps to 403.
// Internal error text is never sent to the client.
func writeError(w http.ResponseWriter, err error) {
	status, errorType := classify(err)
	if status == http.StatusInternalServerError {
		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: "An internal error occurred",
		})
		return
	}

	resp := ErrorResponse{Error: errorType, Message: http.StatusText(status)}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		resp.Message = appErr.Message
		resp.Field = appErr.Field
	}
	writeJSON(w, status, resp)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// logIfInternal logs err only when it would become a 500; expected failures
// (not found, bad credentials) are not errors worth logging.
func logIfInternal(logger *slog.Logger, msg string, err error) {
	if status, _ := classify(err); status == http.StatusInternalServerError {
		logger.Error(msg, slog.String("error", err.Error()))
	}
}

// redirect answers a form POST with 303 See Other, so the browser follows
// up with a GET and a reload does not resubmit the form.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// pathID parses a positive integer URL segment.
func pathID(raw, field string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed(field, field+" must be a positive integer")
	}
	return id, nil
}
