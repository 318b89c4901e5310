package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"islandstay/internal/app/outbox"
	"islandstay/internal/domain/booking"
	"islandstay/internal/domain/listings"
	"islandstay/internal/domain/shared/civil"
	"islandstay/internal/domain/shared/money"
	"islandstay/internal/domain/users"
)

// stubLedger scripts ledger responses per test.
type stubLedger struct {
	capacity  int
	capErr    error
	rows      []*booking.Booking
	readErr   error
	insertErr error
	inserts   int
	inserted  *booking.Booking
}

func (s *stubLedger) ListingCapacity(ctx context.Context, id listings.ListingID) (int, error) {
	if s.capErr != nil {
		return 0, s.capErr
	}
	return s.capacity, nil
}

func (s *stubLedger) ActiveBookings(ctx context.Context, key booking.ConflictKey) ([]*booking.Booking, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	if len(s.rows) == 0 {
		return nil, booking.ErrNoBookingsFound
	}
	return s.rows, nil
}

func (s *stubLedger) Insert(ctx context.Context, b *booking.Booking) (booking.BookingID, error) {
	s.inserts++
	if s.insertErr != nil {
		return "", s.insertErr
	}
	s.inserted = b
	return "bk-1", nil
}

func (s *stubLedger) ByTourist(ctx context.Context, id users.UserID) ([]*booking.Booking, error) {
	return nil, nil
}

func mustDate(t *testing.T, s string) civil.Date {
	t.Helper()
	d, err := civil.Parse(s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func row(t *testing.T, listingID string, date string, slot booking.TimeSlot, quantity int) *booking.Booking {
	t.Helper()
	return &booking.Booking{
		ID:        booking.BookingID("existing"),
		ListingID: listings.ListingID(listingID),
		TouristID: "u-1",
		Date:      mustDate(t, date),
		Slot:      slot,
		Quantity:  quantity,
		Total:     money.Must(5000, "USD"),
		Status:    booking.StatusPending,
	}
}

func testKey(t *testing.T, slot booking.TimeSlot) booking.ConflictKey {
	t.Helper()
	return booking.ConflictKey{ListingID: "l-1", Date: mustDate(t, "2026-09-10"), Slot: slot}
}

func TestCheckAvailability_RemainingCapacity(t *testing.T) {
	ledger := &stubLedger{capacity: 10, rows: []*booking.Booking{
		row(t, "l-1", "2026-09-10", booking.NoSlot(), 5),
		row(t, "l-1", "2026-09-10", booking.NoSlot(), 5),
	}}
	svc := &Service{Ledger: ledger}

	res, err := svc.CheckAvailability(context.Background(), CheckParams{Key: testKey(t, booking.NoSlot()), Requested: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Available {
		t.Error("expected unavailable for a full pool")
	}
	if res.RemainingCapacity != 0 {
		t.Errorf("expected remaining 0, got %d", res.RemainingCapacity)
	}
	if len(res.Conflicts) != 2 {
		t.Errorf("expected 2 conflicting bookings, got %d", len(res.Conflicts))
	}
}

func TestCheckAvailability_EmptyPool(t *testing.T) {
	ledger := &stubLedger{capacity: 4}
	svc := &Service{Ledger: ledger}

	res, err := svc.CheckAvailability(context.Background(), CheckParams{Key: testKey(t, booking.NoSlot()), Requested: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Available || res.RemainingCapacity != 4 {
		t.Errorf("expected available with remaining 4, got available=%v remaining=%d", res.Available, res.RemainingCapacity)
	}
}

func TestCheckAvailability_NegativeRemaining(t *testing.T) {
	// A pool overbooked through an earlier race still reports truthfully.
	ledger := &stubLedger{capacity: 2, rows: []*booking.Booking{
		row(t, "l-1", "2026-09-10", booking.NoSlot(), 3),
	}}
	svc := &Service{Ledger: ledger}

	res, err := svc.CheckAvailability(context.Background(), CheckParams{Key: testKey(t, booking.NoSlot()), Requested: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Available {
		t.Error("expected unavailable")
	}
	if res.RemainingCapacity != -1 {
		t.Errorf("expected remaining -1, got %d", res.RemainingCapacity)
	}
}

func TestCheckAvailability_PermissionDeniedFailsClosed(t *testing.T) {
	ledger := &stubLedger{capacity: 10, readErr: booking.ErrPermissionDenied}
	svc := &Service{Ledger: ledger}

	_, err := svc.CheckAvailability(context.Background(), CheckParams{Key: testKey(t, booking.NoSlot()), Requested: 1})
	if !errors.Is(err, booking.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestCheckAvailability_UnclassifiedReadErrorPropagates(t *testing.T) {
	readErr := errors.New("connection reset")
	ledger := &stubLedger{capacity: 10, readErr: readErr}
	svc := &Service{Ledger: ledger}

	_, err := svc.CheckAvailability(context.Background(), CheckParams{Key: testKey(t, booking.NoSlot()), Requested: 1})
	if !errors.Is(err, readErr) {
		t.Fatalf("expected the read error to propagate, got %v", err)
	}
}

func TestCheckAvailability_ListingNotFound(t *testing.T) {
	ledger := &stubLedger{capErr: listings.ErrListingNotFound}
	svc := &Service{Ledger: ledger}

	_, err := svc.CheckAvailability(context.Background(), CheckParams{Key: testKey(t, booking.NoSlot()), Requested: 1})
	if !errors.Is(err, booking.ErrListingNotFound) {
		t.Fatalf("expected ErrListingNotFound, got %v", err)
	}
}

func TestCheckAvailability_SnapshotSkipsLedgerLookup(t *testing.T) {
	ledger := &stubLedger{capErr: errors.New("capacity lookup must not run")}
	svc := &Service{Ledger: ledger}
	snapshot := &listings.Listing{ID: "l-1", Capacity: 3}

	res, err := svc.CheckAvailability(context.Background(), CheckParams{
		Key:       testKey(t, booking.NoSlot()),
		Requested: 2,
		Snapshot:  snapshot,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Available || res.RemainingCapacity != 3 {
		t.Errorf("expected snapshot capacity 3 to be used, got remaining=%d", res.RemainingCapacity)
	}
}

func createParams(t *testing.T, quantity int) CreateParams {
	t.Helper()
	return CreateParams{
		ListingID: "l-1",
		TouristID: "u-1",
		Date:      mustDate(t, "2026-09-10"),
		Slot:      booking.SlotAt("09:00"),
		Quantity:  quantity,
		Total:     money.Must(10000, "USD"),
		Now:       time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
}

func TestCreateBooking_Success(t *testing.T) {
	ledger := &stubLedger{capacity: 5}
	svc := &Service{Ledger: ledger}

	res, err := svc.CreateBooking(context.Background(), createParams(t, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.BookingID != "bk-1" {
		t.Errorf("expected booking id bk-1, got %s", res.BookingID)
	}
	if ledger.inserted == nil {
		t.Fatal("expected a row to be inserted")
	}
	if ledger.inserted.Status != booking.StatusPending {
		t.Errorf("expected pending status, got %s", ledger.inserted.Status)
	}
	if ledger.inserted.Total != money.Must(10000, "USD") {
		t.Errorf("expected the upstream total to be persisted unchanged, got %v", ledger.inserted.Total)
	}
}

func TestCreateBooking_InsufficientCapacity(t *testing.T) {
	ledger := &stubLedger{capacity: 10, rows: []*booking.Booking{
		row(t, "l-1", "2026-09-10", booking.SlotAt("09:00"), 9),
	}}
	svc := &Service{Ledger: ledger}

	_, err := svc.CreateBooking(context.Background(), createParams(t, 2))
	var capErr *booking.InsufficientCapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected InsufficientCapacityError, got %v", err)
	}
	if capErr.Remaining != 1 {
		t.Errorf("expected remaining 1 in rejection, got %d", capErr.Remaining)
	}
	if ledger.inserts != 0 {
		t.Errorf("expected no insert attempt, got %d", ledger.inserts)
	}
}

func TestCreateBooking_NonPositiveQuantityRejected(t *testing.T) {
	ledger := &stubLedger{capacity: 5}
	svc := &Service{Ledger: ledger}

	for _, quantity := range []int{0, -3} {
		_, err := svc.CreateBooking(context.Background(), createParams(t, quantity))
		var capErr *booking.InsufficientCapacityError
		if errors.As(err, &capErr) {
			t.Fatalf("quantity %d: want a validation error, got capacity rejection", quantity)
		}
		if !errors.Is(err, booking.ErrInvalidQuantity) {
			t.Errorf("quantity %d: expected ErrInvalidQuantity, got %v", quantity, err)
		}
		if ledger.inserts != 0 {
			t.Errorf("quantity %d: expected no insert attempt", quantity)
		}
	}
}

func TestCreateBooking_WriteFailureSurfacesVerbatim(t *testing.T) {
	writeErr := errors.New("socket closed mid-write")
	ledger := &stubLedger{capacity: 5, insertErr: writeErr}
	svc := &Service{Ledger: ledger}

	_, err := svc.CreateBooking(context.Background(), createParams(t, 1))
	var ledgerErr *booking.LedgerWriteError
	if !errors.As(err, &ledgerErr) {
		t.Fatalf("expected LedgerWriteError, got %v", err)
	}
	if !errors.Is(err, writeErr) {
		t.Errorf("expected the underlying write error to be wrapped, got %v", err)
	}
	if ledger.inserts != 1 {
		t.Errorf("expected exactly one insert attempt (no retry), got %d", ledger.inserts)
	}
}

func TestCreateBooking_LedgerConditionalRejectionPassesThrough(t *testing.T) {
	// A ledger that lost the race inside its own conditional insert
	// reports shortfall, not infrastructure failure.
	ledger := &stubLedger{capacity: 5, insertErr: &booking.InsufficientCapacityError{Remaining: 0}}
	svc := &Service{Ledger: ledger}

	_, err := svc.CreateBooking(context.Background(), createParams(t, 1))
	var capErr *booking.InsufficientCapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected InsufficientCapacityError, got %v", err)
	}
	var ledgerErr *booking.LedgerWriteError
	if errors.As(err, &ledgerErr) {
		t.Error("conditional rejection must not be wrapped as a write failure")
	}
}

type stubGuard struct {
	allow    bool
	reserves int
	releases int
}

func (g *stubGuard) Reserve(ctx context.Context, key booking.ConflictKey, quantity, capacity int) (bool, error) {
	g.reserves++
	return g.allow, nil
}

func (g *stubGuard) Release(ctx context.Context, key booking.ConflictKey, quantity int) error {
	g.releases++
	return nil
}

func TestCreateBooking_GuardDenialRejects(t *testing.T) {
	ledger := &stubLedger{capacity: 5}
	guard := &stubGuard{allow: false}
	svc := &Service{Ledger: ledger, Guard: guard}

	_, err := svc.CreateBooking(context.Background(), createParams(t, 1))
	var capErr *booking.InsufficientCapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected InsufficientCapacityError on guard denial, got %v", err)
	}
	if ledger.inserts != 0 {
		t.Errorf("expected no insert after guard denial, got %d", ledger.inserts)
	}
}

func TestCreateBooking_GuardReleasedOnWriteFailure(t *testing.T) {
	ledger := &stubLedger{capacity: 5, insertErr: errors.New("write failed")}
	guard := &stubGuard{allow: true}
	svc := &Service{Ledger: ledger, Guard: guard}

	_, err := svc.CreateBooking(context.Background(), createParams(t, 1))
	if err == nil {
		t.Fatal("expected an error")
	}
	if guard.reserves != 1 || guard.releases != 1 {
		t.Errorf("expected reserve and release once each, got reserves=%d releases=%d", guard.reserves, guard.releases)
	}
}

type recordingOutbox struct {
	names []string
}

func (o *recordingOutbox) Add(ctx context.Context, record outbox.EventRecord) error {
	o.names = append(o.names, record.Name)
	return nil
}

func TestCreateBooking_RecordsCreatedEvent(t *testing.T) {
	ledger := &stubLedger{capacity: 5}
	box := &recordingOutbox{}
	svc := &Service{Ledger: ledger, Outbox: box}

	if _, err := svc.CreateBooking(context.Background(), createParams(t, 1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(box.names) != 1 || box.names[0] != "booking.created" {
		t.Errorf("expected a booking.created outbox record, got %v", box.names)
	}
}
