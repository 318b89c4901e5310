package booking

import (
	"time"

	"islandstay/internal/domain/listings"
	"islandstay/internal/domain/shared/money"
	"islandstay/internal/domain/users"
)

type BookingCreated struct {
	BookingID BookingID          `json:"booking_id"`
	ListingID listings.ListingID `json:"listing_id"`
	TouristID users.UserID       `json:"tourist_id"`
	Date      string             `json:"booking_date"`
	Slot      string             `json:"time_slot,omitempty"`
	Quantity  int                `json:"quantity"`
	Total     money.Money        `json:"total"`
	At        time.Time          `json:"at"`
}

func (e BookingCreated) EventName() string     { return "booking.created" }
func (e BookingCreated) AggregateID() string   { return string(e.BookingID) }
func (e BookingCreated) OccurredAt() time.Time { return e.At }

func CreatedEvent(b *Booking) BookingCreated {
	slot, _ := b.Slot.Value()
	return BookingCreated{
		BookingID: b.ID,
		ListingID: b.ListingID,
		TouristID: b.TouristID,
		Date:      b.Date.String(),
		Slot:      slot,
		Quantity:  b.Quantity,
		Total:     b.Total,
		At:        b.CreatedAt,
	}
}
