package ginserver

import (
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"islandstay/internal/domain/booking"
	"islandstay/internal/domain/listings"
	"islandstay/internal/domain/shared/civil"
	"islandstay/internal/domain/users"
)

// writeError maps the engine's error taxonomy onto transport status
// codes: business rejection is a conflict, a restricted ledger read is
// forbidden, a failed append is a bad gateway.
func writeError(c *gin.Context, err error) {
	var capErr *booking.InsufficientCapacityError
	var writeErr *booking.LedgerWriteError
	switch {
	case errors.As(err, &capErr):
		c.JSON(http.StatusConflict, gin.H{"error": capErr.Error(), "remaining_capacity": capErr.Remaining})
	case errors.Is(err, booking.ErrListingNotFound), errors.Is(err, listings.ErrListingNotFound), errors.Is(err, users.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, booking.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, booking.ErrInvalidQuantity), errors.Is(err, civil.ErrInvalidDate):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &writeErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": writeErr.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
