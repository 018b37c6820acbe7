package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrSnakeDoc/linkshelf/internal/apperror"
	"github.com/MrSnakeDoc/linkshelf/internal/logger"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	// State is set by /api/commands so a client can redraw after a failure.
	State any `json:"state,omitempty"`
}

func writeJSON(w http.ResponseWriter, log logger.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug("failed to write response", logger.Error(err))
	}
}

func writeError(w http.ResponseWriter, log logger.Logger, err error, state any) {
	writeJSON(w, log, StatusOf(err), errorResponse{
		Error: apperror.Message(err),
		Code:  codeOf(err),
		State: state,
	})
}

// StatusOf maps an error kind to the status served to local clients.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrAuth), errors.Is(err, apperror.ErrNoCredential):
		return http.StatusUnauthorized
	case errors.Is(err, apperror.ErrLimitReached):
		return http.StatusPaymentRequired
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperror.ErrFormat), errors.Is(err, apperror.ErrRequest):
		return http.StatusBadGateway
	case errors.Is(err, apperror.ErrNetwork):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func codeOf(err error) string {
	if name := apperror.Name(err); name != "" {
		return name
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return "internal"
}
