package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"islandstay/internal/domain/listings"
)

// ListingHandler serves read-only listing details. The catalog's write
// side lives in a separate service.
type ListingHandler struct {
	Listings listings.Repository
}

func (h ListingHandler) Get(c *gin.Context) {
	listing, err := h.Listings.ByID(c.Request.Context(), listings.ListingID(c.Param("id")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":               string(listing.ID),
		"host_id":          string(listing.Host),
		"title":            listing.Title,
		"description":      listing.Description,
		"location":         listing.Location,
		"inventory_type":   string(listing.InventoryType),
		"capacity":         listing.Capacity,
		"local_price":      listing.LocalPrice.Amount,
		"local_currency":   listing.LocalPrice.Currency,
		"foreign_price":    listing.ForeignPrice.Amount,
		"foreign_currency": listing.ForeignPrice.Currency,
	})
}

var _ ListingHTTP = ListingHandler{}
