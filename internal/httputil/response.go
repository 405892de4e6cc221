// Package httputil provides HTTP utility functions for request and response handling.
package httputil

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/newsletter/internal/errors"
)

// ErrorResponse represents a structured error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// HandleErrorGin maps domain errors to HTTP status codes and writes a JSON error response.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	var statusCode int
	var errorResponse ErrorResponse

	switch {
	case apperrors.Is(err, apperrors.ErrNotFound):
		statusCode = http.StatusNotFound
		errorResponse = ErrorResponse{
			Error:   "not_found",
			Message: "The requested resource was not found",
		}

	case apperrors.Is(err, apperrors.ErrLocked):
		// A concurrent request owns the idempotency key; the client may retry shortly.
		statusCode = http.StatusConflict
		errorResponse = ErrorResponse{
			Error:   "request_in_flight",
			Message: "A request with the same idempotency key is still being processed",
		}
		c.Header("Retry-After", "1")

	case apperrors.Is(err, apperrors.ErrConflict):
		statusCode = http.StatusConflict
		errorResponse = ErrorResponse{
			Error:   "conflict",
			Message: "A conflict occurred with existing data",
		}

	case apperrors.Is(err, apperrors.ErrInvalidInput):
		statusCode = http.StatusUnprocessableEntity
		errorResponse = ErrorResponse{
			Error:   "invalid_input",
			Message: err.Error(),
		}

	case apperrors.Is(err, apperrors.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
		errorResponse = ErrorResponse{
			Error:   "unauthorized",
			Message: "Authentication is required",
		}

	case apperrors.Is(err, apperrors.ErrForbidden):
		statusCode = http.StatusForbidden
		errorResponse = ErrorResponse{
			Error:   "forbidden",
			Message: "You don't have permission to access this resource",
		}

	default:
		// For unknown/internal errors, don't expose details to the client
		statusCode = http.StatusInternalServerError
		errorResponse = ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		}
	}

	if logger != nil {
		attrs := []any{
			slog.Int("status_code", statusCode),
			slog.String("error_code", errorResponse.Error),
			slog.Any("error", err),
		}
		if kind := apperrors.KindOf(err); kind != apperrors.KindUnknown {
			attrs = append(attrs, slog.String("error_kind", kind.String()))
		}
		if statusCode >= http.StatusInternalServerError {
			logger.Error("request failed", attrs...)
		} else {
			logger.Warn("request failed", attrs...)
		}
	}

	c.JSON(statusCode, errorResponse)
}

// HandleBadRequestGin writes a 400 Bad Request response for malformed input.
func HandleBadRequestGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("bad request", slog.Any("error", err))
	}

	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "bad_request",
		Message: err.Error(),
	})
}

// HandleValidationErrorGin writes a 422 Unprocessable Entity response for validation errors.
func HandleValidationErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("validation failed", slog.Any("error", err))
	}

	c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
		Error:   "validation_error",
		Message: err.Error(),
	})
}
