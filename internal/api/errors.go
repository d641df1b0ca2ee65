package api

import (
	"errors"
	"net/http"

	"storefront/internal/service"

	"github.com/gin-gonic/gin"
)

// respondError maps the service error taxonomy onto HTTP responses. Every
// recoverable error becomes a user-visible notice plus a fallback redirect;
// only unexpected failures surface as 500s.
func respondError(c *gin.Context, err error, fallback string) {
	if ve, ok := service.AsValidationError(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"notice": "Please correct the highlighted fields.",
			"fields": ve.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"notice":   "We could not find what you were looking for.",
			"redirect": fallback,
		})
	case errors.Is(err, service.ErrNoActiveOrder):
		c.JSON(http.StatusNotFound, gin.H{
			"notice":   "You do not have an active order.",
			"redirect": fallback,
		})
	case errors.Is(err, service.ErrNotInCart):
		c.JSON(http.StatusConflict, gin.H{
			"notice":   "This item was not in your cart.",
			"redirect": fallback,
		})
	case errors.Is(err, service.ErrCartBusy):
		c.JSON(http.StatusConflict, gin.H{
			"notice":   "Your cart is busy, please try again.",
			"redirect": fallback,
		})
	case errors.Is(err, service.ErrNotDelivered):
		c.JSON(http.StatusConflict, gin.H{
			"notice":   "This order is not being delivered yet.",
			"redirect": fallback,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Something went wrong",
			"details": err.Error(),
		})
	}
}
