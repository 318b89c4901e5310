package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"islandstay/internal/app/scheduling"
	"islandstay/internal/domain/booking"
	"islandstay/internal/domain/listings"
	"islandstay/internal/domain/pricing"
	"islandstay/internal/domain/shared/civil"
	"islandstay/internal/domain/users"
)

type BookingHandler struct {
	Scheduling *scheduling.Service
	Pricing    pricing.Service
	Listings   listings.Repository
	Users      users.Repository
}

type createBookingRequest struct {
	ListingID   string `json:"listing_id" binding:"required"`
	BookingDate string `json:"booking_date" binding:"required"`
	TimeSlot    string `json:"time_slot"`
	Quantity    int    `json:"quantity" binding:"required,gt=0"`
}

type bookingResponse struct {
	BookingID   string `json:"booking_id"`
	ListingID   string `json:"listing_id"`
	BookingDate string `json:"booking_date"`
	TimeSlot    string `json:"time_slot,omitempty"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	TotalPrice  int64  `json:"total_price"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
}

// Create runs the booking request path: availability first, then the
// price quote, then admission. The engine persists the quoted total as
// handed to it.
func (h BookingHandler) Create(c *gin.Context) {
	traveler, ok := h.requireTraveler(c)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := civil.Parse(req.BookingDate)
	if err != nil {
		writeError(c, err)
		return
	}
	ctx := c.Request.Context()

	listing, err := h.Listings.ByID(ctx, listings.ListingID(req.ListingID))
	if err != nil {
		writeError(c, err)
		return
	}
	slot := booking.SlotAt(req.TimeSlot)
	if listing.InventoryType == listings.InventorySlot && !slot.IsSet() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "time_slot is required for slot-based listings"})
		return
	}
	if listing.InventoryType == listings.InventoryDate && slot.IsSet() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "time_slot is not allowed for date-based listings"})
		return
	}

	key := booking.ConflictKey{ListingID: listing.ID, Date: date, Slot: slot}
	availability, err := h.Scheduling.CheckAvailability(ctx, scheduling.CheckParams{
		Key:       key,
		Requested: req.Quantity,
		Snapshot:  listing,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	if !availability.Available {
		writeError(c, &booking.InsufficientCapacityError{Remaining: availability.RemainingCapacity})
		return
	}

	quote, err := h.Pricing.Price(listing, traveler, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}

	result, err := h.Scheduling.CreateBooking(ctx, scheduling.CreateParams{
		ListingID: listing.ID,
		TouristID: traveler.ID,
		Date:      date,
		Slot:      slot,
		Quantity:  req.Quantity,
		Total:     quote.Total,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, bookingResponse{
		BookingID:   string(result.BookingID),
		ListingID:   string(listing.ID),
		BookingDate: date.String(),
		TimeSlot:    req.TimeSlot,
		Quantity:    req.Quantity,
		UnitPrice:   quote.UnitPrice.Amount,
		TotalPrice:  quote.Total.Amount,
		Currency:    quote.Total.Currency,
		Status:      string(booking.StatusPending),
	})
}

// ListMine returns the requesting traveler's bookings, newest first.
func (h BookingHandler) ListMine(c *gin.Context) {
	traveler, ok := h.requireTraveler(c)
	if !ok {
		return
	}
	rows, err := h.Scheduling.Ledger.ByTourist(c.Request.Context(), traveler.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]bookingResponse, 0, len(rows))
	for _, b := range rows {
		slot, _ := b.Slot.Value()
		out = append(out, bookingResponse{
			BookingID:   string(b.ID),
			ListingID:   string(b.ListingID),
			BookingDate: b.Date.String(),
			TimeSlot:    slot,
			Quantity:    b.Quantity,
			TotalPrice:  b.Total.Amount,
			Currency:    b.Total.Currency,
			Status:      string(b.Status),
		})
	}
	c.JSON(http.StatusOK, gin.H{"bookings": out})
}

// requireTraveler resolves the authenticated traveler. Authentication
// itself is an upstream concern; the boundary trusts the X-Traveler-ID
// header that layer injects.
func (h BookingHandler) requireTraveler(c *gin.Context) (*users.User, bool) {
	id := c.GetHeader("X-Traveler-ID")
	if id == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "traveler identity required"})
		return nil, false
	}
	traveler, err := h.Users.ByID(c.Request.Context(), users.UserID(id))
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return traveler, true
}

var _ BookingHTTP = BookingHandler{}
