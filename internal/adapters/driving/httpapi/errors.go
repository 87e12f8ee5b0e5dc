// Package httpapi serves the assistant over HTTP with gin: file and
// repository upload, chat and index status, one namespace per client session.
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/repochat/internal/core/domain"
	"github.com/custodia-labs/repochat/internal/logger"
)

// ErrMissingAssistant is returned when the assistant service is not provided.
var ErrMissingAssistant = errors.New("httpapi: assistant service is required")

// ErrorResponse is the body of every non-2xx reply.
// Detail repeats Error for clients that read the FastAPI-style field.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// StatusFor maps a service error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSourceUnavailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrProviderUnavailable), errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError aborts the request with the mapped status and an ErrorResponse.
func writeError(c *gin.Context, err error) {
	code := StatusFor(err)
	if code >= http.StatusInternalServerError {
		logger.Errorw("request failed", "path", c.FullPath(), "status", code, "error", err)
	} else {
		logger.Debugw("request rejected", "path", c.FullPath(), "status", code, "error", err)
	}
	c.AbortWithStatusJSON(code, ErrorResponse{Error: err.Error(), Detail: err.Error()})
}
