package scheduling

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"islandstay/internal/app/outbox"
	"islandstay/internal/domain/booking"
	"islandstay/internal/domain/listings"
	"islandstay/internal/domain/shared/civil"
	"islandstay/internal/domain/shared/money"
	"islandstay/internal/domain/users"
)

// AdmissionGuard serializes admissions per conflict key in front of the
// ledger, for deployments whose ledger cannot enforce the capacity
// invariant transactionally on its own.
type AdmissionGuard interface {
	// Reserve atomically claims quantity units within capacity for the
	// key, returning false when the pool is already full.
	Reserve(ctx context.Context, key booking.ConflictKey, quantity, capacity int) (bool, error)

	// Release returns units claimed by a reservation whose write failed.
	Release(ctx context.Context, key booking.ConflictKey, quantity int) error
}

// Service decides how much capacity remains for a conflict key and
// records admitted bookings. All capacity state lives in the ledger;
// the service holds nothing between calls.
//
// CreateBooking is check-then-act: two concurrent admissions can both
// pass the check before either appends. The ledger's conditional
// insert (or the optional Guard) is what actually upholds the capacity
// invariant; the re-check here only narrows the window.
type Service struct {
	Ledger booking.CapacityLedger
	Guard  AdmissionGuard
	Outbox outbox.Outbox
	Logger *slog.Logger
}

type AvailabilityResult struct {
	Available         bool
	RemainingCapacity int
	Conflicts         []*booking.Booking
}

type CheckParams struct {
	Key       booking.ConflictKey
	Requested int
	// Snapshot supplies capacity without a ledger lookup when the caller
	// already holds the listing.
	Snapshot *listings.Listing
}

// CheckAvailability computes the remaining capacity for a key and
// whether the requested quantity fits. Remaining can be negative when a
// pool was overbooked through an earlier race; callers must tolerate
// that.
func (s *Service) CheckAvailability(ctx context.Context, p CheckParams) (AvailabilityResult, error) {
	capacity, err := s.resolveCapacity(ctx, p)
	if err != nil {
		return AvailabilityResult{}, err
	}

	conflicts, err := s.Ledger.ActiveBookings(ctx, p.Key)
	switch {
	case err == nil:
	case errors.Is(err, booking.ErrNoBookingsFound):
		// The only read error that may mean an empty pool. Everything
		// else, permission errors above all, fails the whole check.
		conflicts = nil
	default:
		return AvailabilityResult{}, err
	}

	booked := 0
	for _, c := range conflicts {
		booked += c.Quantity
	}
	remaining := capacity - booked

	return AvailabilityResult{
		Available:         remaining >= p.Requested,
		RemainingCapacity: remaining,
		Conflicts:         conflicts,
	}, nil
}

type CreateParams struct {
	BookingID booking.BookingID // generated when empty
	ListingID listings.ListingID
	TouristID users.UserID
	Date      civil.Date
	Slot      booking.TimeSlot
	Quantity  int
	Total     money.Money
	Now       time.Time
}

type CreateResult struct {
	BookingID booking.BookingID
}

// CreateBooking re-checks availability for the key and appends a
// pending row with the total and currency pricing computed upstream.
// Shortfall is an InsufficientCapacityError; a failed append is a
// LedgerWriteError surfaced verbatim with no retry.
func (s *Service) CreateBooking(ctx context.Context, p CreateParams) (CreateResult, error) {
	key := booking.ConflictKey{ListingID: p.ListingID, Date: p.Date, Slot: p.Slot}

	res, err := s.CheckAvailability(ctx, CheckParams{Key: key, Requested: p.Quantity})
	if err != nil {
		return CreateResult{}, err
	}
	if !res.Available {
		return CreateResult{}, &booking.InsufficientCapacityError{Remaining: res.RemainingCapacity}
	}

	capacity := res.RemainingCapacity
	for _, c := range res.Conflicts {
		capacity += c.Quantity
	}

	guarded := false
	if s.Guard != nil {
		ok, err := s.Guard.Reserve(ctx, key, p.Quantity, capacity)
		if err != nil {
			return CreateResult{}, err
		}
		if !ok {
			return CreateResult{}, &booking.InsufficientCapacityError{Remaining: res.RemainingCapacity}
		}
		guarded = true
	}

	id := p.BookingID
	if id == "" {
		id = booking.BookingID(uuid.NewString())
	}
	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}

	row, err := booking.NewPending(id, p.ListingID, p.TouristID, p.Date, p.Slot, p.Quantity, p.Total, now)
	if err != nil {
		s.releaseGuard(ctx, guarded, key, p.Quantity)
		return CreateResult{}, err
	}

	bookingID, err := s.Ledger.Insert(ctx, row)
	if err != nil {
		s.releaseGuard(ctx, guarded, key, p.Quantity)
		if errors.As(err, new(*booking.InsufficientCapacityError)) {
			return CreateResult{}, err
		}
		return CreateResult{}, &booking.LedgerWriteError{Err: err}
	}
	row.ID = bookingID

	s.publishCreated(ctx, row)

	return CreateResult{BookingID: bookingID}, nil
}

func (s *Service) resolveCapacity(ctx context.Context, p CheckParams) (int, error) {
	if p.Snapshot != nil {
		return p.Snapshot.Capacity, nil
	}
	capacity, err := s.Ledger.ListingCapacity(ctx, p.Key.ListingID)
	if err != nil {
		if errors.Is(err, listings.ErrListingNotFound) {
			return 0, booking.ErrListingNotFound
		}
		return 0, err
	}
	return capacity, nil
}

func (s *Service) releaseGuard(ctx context.Context, guarded bool, key booking.ConflictKey, quantity int) {
	if !guarded {
		return
	}
	if err := s.Guard.Release(ctx, key, quantity); err != nil && s.Logger != nil {
		s.Logger.Warn("admission guard release failed", "key", key.ListingID, "error", err)
	}
}

func (s *Service) publishCreated(ctx context.Context, row *booking.Booking) {
	if s.Outbox == nil {
		return
	}
	if err := outbox.Record(ctx, s.Outbox, booking.CreatedEvent(row)); err != nil && s.Logger != nil {
		s.Logger.Warn("outbox record failed", "booking_id", row.ID, "error", err)
	}
}
