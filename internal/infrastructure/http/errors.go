package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	ctxutil "3tcapital/correlate/internal/infrastructure/context"
)

// ErrorResponse represents a standardized error response format.
type ErrorResponse struct {
	Message       string   `json:"message"`
	Errors        []string `json:"errors"`
	CorrelationID string   `json:"correlationId,omitempty"`
}

// WriteError writes a standardized JSON error response. The correlation id
// ambient in ctx, if any, is included so callers can quote it.
func WriteError(ctx context.Context, w http.ResponseWriter, statusCode int, message string, errors []string, log *slog.Logger) {
	response := ErrorResponse{
		Message:       message,
		Errors:        errors,
		CorrelationID: ctxutil.GetCorrelationID(ctx),
	}
	WriteJSON(ctx, w, statusCode, response, log)
}

// WriteJSON encodes v as the response body with the given status.
func WriteJSON(ctx context.Context, w http.ResponseWriter, statusCode int, v any, log *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		// The status is already written; nothing left to tell the client.
		if log != nil {
			log.ErrorContext(ctx, "failed to encode response", "error", err)
		}
	}
}
