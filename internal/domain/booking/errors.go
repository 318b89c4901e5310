package booking

import (
	"errors"
	"fmt"
)

var (
	// ErrListingNotFound means the listing referenced by the request does
	// not exist in the ledger.
	ErrListingNotFound = errors.New("booking: listing not found")

	// ErrPermissionDenied marks a ledger read the caller was not entitled
	// to. Availability checks fail closed on it: an unreadable pool is
	// never reported as free.
	ErrPermissionDenied = errors.New("booking: ledger read not permitted")

	// ErrNoBookingsFound is the one classified outcome a ledger may use
	// to mean "zero rows for this key". Any other read error propagates.
	ErrNoBookingsFound = errors.New("booking: no bookings for key")
)

// InsufficientCapacityError is the normal business rejection, not a
// fault. Remaining may be negative if the pool was previously
// overbooked through a race.
type InsufficientCapacityError struct {
	Remaining int
}

func (e *InsufficientCapacityError) Error() string {
	return fmt.Sprintf("insufficient capacity: only %d slots remaining", e.Remaining)
}

// LedgerWriteError wraps a failed booking insert. It is surfaced
// verbatim to the caller; the engine never retries.
type LedgerWriteError struct {
	Err error
}

func (e *LedgerWriteError) Error() string {
	return fmt.Sprintf("booking: ledger write failed: %v", e.Err)
}

func (e *LedgerWriteError) Unwrap() error {
	return e.Err
}
