package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"semantic-search-backend/models"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	ErrorCode string      `json:"error_code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}

// RespondWithError sends a standardized error response
func RespondWithError(c *gin.Context, statusCode int, errorCode, message string, details interface{}) {
	c.JSON(statusCode, ErrorResponse{
		ErrorCode: errorCode,
		Message:   message,
		Details:   details,
	})
}

// RespondWithBadRequest sends a 400 Bad Request error
func RespondWithBadRequest(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusBadRequest, "bad_request", message, details)
}

// RespondWithNotFound sends a 404 Not Found error
func RespondWithNotFound(c *gin.Context, message string) {
	RespondWithError(c, http.StatusNotFound, "not_found", message, nil)
}

// RespondWithInternalError sends a 500 Internal Server Error
func RespondWithInternalError(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusInternalServerError, "internal_error", message, details)
}

// RespondWithDomainError maps service-layer error types onto HTTP status
// codes: invalid input -> 400, missing collection/point -> 404, everything
// else (embedding provider, vector store) -> 500.
func RespondWithDomainError(c *gin.Context, err error) {
	var inputErr *models.InputError
	if errors.As(err, &inputErr) {
		RespondWithBadRequest(c, inputErr.Error(), nil)
		return
	}
	var notFound *models.NotFoundError
	if errors.As(err, &notFound) {
		RespondWithNotFound(c, notFound.Error())
		return
	}
	var embErr *models.EmbeddingError
	if errors.As(err, &embErr) {
		RespondWithError(c, http.StatusInternalServerError, "embedding_error", embErr.Error(), nil)
		return
	}
	var storeErr *models.StoreError
	if errors.As(err, &storeErr) {
		RespondWithError(c, http.StatusInternalServerError, "store_error", storeErr.Error(), nil)
		return
	}
	RespondWithInternalError(c, err.Error(), nil)
}
