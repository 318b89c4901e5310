package ginserver

import (
	"net/http"
	"strconv"

	gin "github.com/gin-gonic/gin"

	"islandstay/internal/app/scheduling"
	"islandstay/internal/domain/booking"
	"islandstay/internal/domain/listings"
	"islandstay/internal/domain/shared/civil"
)

type AvailabilityHandler struct {
	Scheduling *scheduling.Service
}

// Check answers how much capacity remains for ?date= and optional
// ?slot=, and whether ?quantity= (default 1) fits.
func (h AvailabilityHandler) Check(c *gin.Context) {
	date, err := civil.Parse(c.Query("date"))
	if err != nil {
		writeError(c, err)
		return
	}
	quantity := 1
	if raw := c.Query("quantity"); raw != "" {
		quantity, err = strconv.Atoi(raw)
		if err != nil || quantity <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be a positive integer"})
			return
		}
	}

	key := booking.ConflictKey{
		ListingID: listings.ListingID(c.Param("id")),
		Date:      date,
		Slot:      booking.SlotAt(c.Query("slot")),
	}
	result, err := h.Scheduling.CheckAvailability(c.Request.Context(), scheduling.CheckParams{
		Key:       key,
		Requested: quantity,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"available":          result.Available,
		"remaining_capacity": result.RemainingCapacity,
		"conflicting":        len(result.Conflicts),
	})
}

var _ AvailabilityHTTP = AvailabilityHandler{}
