package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"study-assistant/internal/contextutil"
	"study-assistant/internal/rag"
	"study-assistant/internal/retrieval"
	"study-assistant/internal/service"
)

// ErrorResponse represents an error response.
//
// swagger:model ErrorResponse
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(ctx context.Context, w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error: message,
	})
}

// statusFor maps service, retrieval and generation errors to an HTTP status and a client message.
func statusFor(err error) (int, string) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, validationErr.Error()
	case errors.Is(err, retrieval.ErrInvalidDocument),
		errors.Is(err, retrieval.ErrInvalidK),
		errors.Is(err, retrieval.ErrEmptyQuery),
		errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "Session not found"
	case errors.Is(err, retrieval.ErrEmptyIndex):
		return http.StatusConflict, "No documents have been uploaded to this session"
	case errors.Is(err, retrieval.ErrEmbeddingService),
		errors.Is(err, rag.ErrLLMService),
		errors.Is(err, service.ErrExternalService):
		return http.StatusBadGateway, "External service error"
	case errors.Is(err, retrieval.ErrVectorStore):
		return http.StatusServiceUnavailable, "Vector store unavailable"
	case errors.Is(err, service.ErrUnavailable):
		return http.StatusServiceUnavailable, "Question answering is disabled"
	default:
		return http.StatusInternalServerError, ""
	}
}

// handleServiceError logs err and writes the matching error response.
func handleServiceError(w http.ResponseWriter, ctx context.Context, err error, defaultMsg string) {
	logger := contextutil.LoggerFromContext(ctx)

	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "service error", "error", err, "status", status)
	} else {
		logger.WarnContext(ctx, "request rejected", "error", err, "status", status)
	}
	if msg == "" {
		msg = defaultMsg
	}
	writeError(w, status, msg)
}
