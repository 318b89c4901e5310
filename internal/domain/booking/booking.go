package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"islandstay/internal/domain/listings"
	"islandstay/internal/domain/shared/civil"
	"islandstay/internal/domain/shared/money"
	"islandstay/internal/domain/users"
)

type BookingID string

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Active reports whether the booking consumes capacity. Cancelled
// bookings never count toward a pool.
func (s Status) Active() bool {
	return s != StatusCancelled
}

// TimeSlot is either absent (date-based inventory) or a time-of-day
// label such as "09:00" (slot-based inventory). Keeping absence inside
// the type rules out a date-based key that carries a time.
type TimeSlot struct {
	value string
	set   bool
}

func NoSlot() TimeSlot {
	return TimeSlot{}
}

func SlotAt(v string) TimeSlot {
	v = strings.TrimSpace(v)
	if v == "" {
		return TimeSlot{}
	}
	return TimeSlot{value: v, set: true}
}

func (t TimeSlot) IsSet() bool {
	return t.set
}

// Value returns the slot label and whether one is present.
func (t TimeSlot) Value() (string, bool) {
	return t.value, t.set
}

// Equal is exact-equality matching: two distinct labels on the same day
// are independent capacity pools, and an absent slot only matches an
// absent slot.
func (t TimeSlot) Equal(other TimeSlot) bool {
	return t.set == other.set && t.value == other.value
}

func (t TimeSlot) String() string {
	if !t.set {
		return "-"
	}
	return t.value
}

// ConflictKey groups bookings that share one capacity pool.
type ConflictKey struct {
	ListingID listings.ListingID
	Date      civil.Date
	Slot      TimeSlot
}

func (k ConflictKey) Matches(b *Booking) bool {
	return b.ListingID == k.ListingID && b.Date.Equal(k.Date) && b.Slot.Equal(k.Slot)
}

type Booking struct {
	ID        BookingID
	ListingID listings.ListingID
	TouristID users.UserID
	Date      civil.Date
	Slot      TimeSlot
	Quantity  int
	Total     money.Money
	Status    Status
	CreatedAt time.Time
}

func (b *Booking) Key() ConflictKey {
	return ConflictKey{ListingID: b.ListingID, Date: b.Date, Slot: b.Slot}
}

// CapacityLedger is the external store of listing capacities and
// booking rows, the single source of truth for admission decisions.
// Implementations enforce the capacity invariant on Insert when they
// can do so atomically; the scheduling service's own check only narrows
// the race window.
type CapacityLedger interface {
	// ListingCapacity resolves a listing's capacity or ErrListingNotFound.
	ListingCapacity(ctx context.Context, id listings.ListingID) (int, error)

	// ActiveBookings returns the non-cancelled bookings sharing the key.
	// A read blocked by authorization must surface ErrPermissionDenied,
	// never an empty result; only ErrNoBookingsFound may be read as an
	// empty pool.
	ActiveBookings(ctx context.Context, key ConflictKey) ([]*Booking, error)

	// Insert appends a booking row and returns its identity.
	Insert(ctx context.Context, b *Booking) (BookingID, error)

	// ByTourist lists a traveler's bookings, newest first.
	ByTourist(ctx context.Context, id users.UserID) ([]*Booking, error)
}

var ErrInvalidQuantity = errors.New("booking: quantity must be positive")

// NewPending builds the row the ledger persists on admission. The total
// is whatever pricing computed upstream; it is stored, not recomputed.
func NewPending(id BookingID, listingID listings.ListingID, touristID users.UserID, date civil.Date, slot TimeSlot, quantity int, total money.Money, now time.Time) (*Booking, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if strings.TrimSpace(string(touristID)) == "" {
		return nil, errors.New("booking: tourist id required")
	}
	if !total.IsPositive() {
		return nil, errors.New("booking: total must be positive")
	}
	return &Booking{
		ID:        id,
		ListingID: listingID,
		TouristID: touristID,
		Date:      date,
		Slot:      slot,
		Quantity:  quantity,
		Total:     total,
		Status:    StatusPending,
		CreatedAt: now.UTC(),
	}, nil
}
