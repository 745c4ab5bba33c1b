package handlers

import (
	"errors"
	"net/http"

	"livetrivia/services"
	"livetrivia/store"

	"github.com/gin-gonic/gin"
)

// writeError maps engine error kinds onto HTTP statuses. The body always
// carries a human-readable message; machine-readable codes mark the two
// cases clients act on programmatically (rejoin, retry).
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrRejoin):
		c.JSON(http.StatusGone, gin.H{"error": err.Error(), "code": "rejoin"})
	case errors.Is(err, services.ErrExpired):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": "expired"})
	case errors.Is(err, services.ErrNotFound), errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "retryable": true})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
