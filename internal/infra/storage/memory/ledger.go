package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	domainbooking "islandstay/internal/domain/booking"
	domainlistings "islandstay/internal/domain/listings"
	domainusers "islandstay/internal/domain/users"
)

// Ledger is an in-memory capacity ledger. Insert is a conditional
// append under one mutex, so the capacity invariant holds even when the
// scheduling service's own check-then-act races: the mutex is the
// storage-level primitive the engine delegates atomicity to.
type Ledger struct {
	listings *ListingRepository

	mu       sync.Mutex
	bookings []*domainbooking.Booking
}

func NewLedger(listings *ListingRepository) *Ledger {
	return &Ledger{listings: listings}
}

func (l *Ledger) ListingCapacity(ctx context.Context, id domainlistings.ListingID) (int, error) {
	listing, err := l.listings.ByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return listing.Capacity, nil
}

func (l *Ledger) ActiveBookings(ctx context.Context, key domainbooking.ConflictKey) ([]*domainbooking.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*domainbooking.Booking
	for _, b := range l.bookings {
		if b.Status.Active() && key.Matches(b) {
			out = append(out, b)
		}
	}
	if len(out) == 0 {
		return nil, domainbooking.ErrNoBookingsFound
	}
	return out, nil
}

// Insert appends the row only while the pool still fits it. A shortfall
// is reported as InsufficientCapacityError with the remaining count.
func (l *Ledger) Insert(ctx context.Context, b *domainbooking.Booking) (domainbooking.BookingID, error) {
	capacity, err := l.ListingCapacity(ctx, b.ListingID)
	if err != nil {
		return "", err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := b.Key()
	booked := 0
	for _, existing := range l.bookings {
		if existing.Status.Active() && key.Matches(existing) {
			booked += existing.Quantity
		}
	}
	if booked+b.Quantity > capacity {
		return "", &domainbooking.InsufficientCapacityError{Remaining: capacity - booked}
	}

	row := *b
	if row.ID == "" {
		row.ID = domainbooking.BookingID(uuid.NewString())
	}
	l.bookings = append(l.bookings, &row)
	return row.ID, nil
}

func (l *Ledger) ByTourist(ctx context.Context, id domainusers.UserID) ([]*domainbooking.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*domainbooking.Booking
	for _, b := range l.bookings {
		if b.TouristID == id {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// SetStatus flips a booking's status. Cancellation workflow itself is
// external; the ledger only needs cancelled rows to stop counting.
func (l *Ledger) SetStatus(ctx context.Context, id domainbooking.BookingID, status domainbooking.Status) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, b := range l.bookings {
		if b.ID == id {
			b.Status = status
			return nil
		}
	}
	return domainbooking.ErrNoBookingsFound
}

var _ domainbooking.CapacityLedger = (*Ledger)(nil)
