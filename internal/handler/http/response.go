package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domainErrors "github.com/classbridge/records-admin-service/internal/domain/errors"
)

// ResponseError is the error envelope of the API.
type ResponseError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// RespondWithError sends an error response and logs it.
func RespondWithError(c *gin.Context, statusCode int, message, errorCode string, logger *zap.Logger) {
	logger.Warn("API error response",
		zap.Int("status_code", statusCode),
		zap.String("error_code", errorCode),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
	)
	c.JSON(statusCode, ResponseError{Error: message, Code: errorCode})
}

// RespondWithData sends a success response carrying only data.
func RespondWithData(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// RespondWithMessage sends a success response carrying only a message.
func RespondWithMessage(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{"message": message})
}

// RespondWithNoContent sends an empty 204 response.
func RespondWithNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// respondDomainError maps common domain errors onto HTTP statuses. Returns
// false when the error is not a recognized domain error so callers can fall
// back to a 500.
func respondDomainError(c *gin.Context, err error, logger *zap.Logger) bool {
	switch {
	case errors.Is(err, domainErrors.ErrNotFound), errors.Is(err, domainErrors.ErrUserNotFound):
		RespondWithError(c, http.StatusNotFound, "Resource not found", "not_found", logger)
	case errors.Is(err, domainErrors.ErrAlreadyExists):
		RespondWithError(c, http.StatusConflict, "Resource already exists", "already_exists", logger)
	case errors.Is(err, domainErrors.ErrForbidden):
		RespondWithError(c, http.StatusForbidden, "Access denied", "forbidden", logger)
	case errors.Is(err, domainErrors.ErrUnauthorized), errors.Is(err, domainErrors.ErrInvalidToken),
		errors.Is(err, domainErrors.ErrExpiredToken), errors.Is(err, domainErrors.ErrRevokedToken):
		RespondWithError(c, http.StatusUnauthorized, "Unauthorized", "unauthorized", logger)
	case errors.Is(err, domainErrors.ErrInvalidRequest):
		RespondWithError(c, http.StatusBadRequest, "Invalid request", "invalid_request", logger)
	default:
		return false
	}
	return true
}
