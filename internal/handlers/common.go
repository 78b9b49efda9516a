package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"promptmatch-backend/internal/repository"
	"promptmatch-backend/internal/services"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	maxBodyBytes      = 64 << 10
	retryAfterSeconds = "1"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondJSON sends v as a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// decodeJSON reads a bounded JSON request body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// statusFor maps a service error to an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrEmptyContent),
		errors.Is(err, services.ErrContentTooLong),
		errors.Is(err, services.ErrInvalidInvite):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrDuplicateSwipe),
		errors.Is(err, services.ErrAccountExists),
		errors.Is(err, repository.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, services.ErrPhotosDisabled):
		return http.StatusNotImplemented
	case errors.Is(err, repository.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondServiceError logs err with the request's fields and answers with its status.
// Server side failures never expose their cause.
func respondServiceError(w http.ResponseWriter, err error, event *zerolog.Event, msg string) {
	status := statusFor(err)
	event.Err(err).Int("status", status).Msg(msg)

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", retryAfterSeconds)
	}
	respondError(w, clientMessage(err, status), status)
}

// clientMessage is the error text safe to show to the client
func clientMessage(err error, status int) string {
	switch status {
	case http.StatusServiceUnavailable:
		return "Service temporarily unavailable"
	case http.StatusInternalServerError:
		return "Internal server error"
	}
	return err.Error()
}

// logFor picks the log level for a failed request
func logFor(err error) *zerolog.Event {
	if statusFor(err) >= http.StatusInternalServerError {
		return log.Error()
	}
	return log.Warn()
}
