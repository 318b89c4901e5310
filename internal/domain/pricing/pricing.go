package pricing

import (
	"islandstay/internal/domain/booking"
	"islandstay/internal/domain/listings"
	"islandstay/internal/domain/shared/money"
	"islandstay/internal/domain/users"
)

// DefaultLocalCountry selects the local price tier; everyone else,
// including travelers with no recorded origin, pays the foreign tier.
const DefaultLocalCountry = "LK"

type Quote struct {
	UnitPrice money.Money
	Total     money.Money
}

// Service implements the two-tier origin pricing policy. It is pure:
// no state beyond the configured local country, no I/O.
type Service struct {
	LocalCountry string
}

func NewService(localCountry string) Service {
	if localCountry == "" {
		localCountry = DefaultLocalCountry
	}
	return Service{LocalCountry: localCountry}
}

// Price picks the tier from the traveler's origin and multiplies by
// quantity. An unknown origin never prices local: the conservative
// default is the foreign tier.
func (s Service) Price(listing *listings.Listing, traveler *users.User, quantity int) (Quote, error) {
	if quantity <= 0 {
		return Quote{}, booking.ErrInvalidQuantity
	}
	unit := listing.ForeignPrice
	if traveler != nil && traveler.OriginCountry == s.localCountry() {
		unit = listing.LocalPrice
	}
	return Quote{UnitPrice: unit, Total: unit.Multiply(int64(quantity))}, nil
}

func (s Service) localCountry() string {
	if s.LocalCountry == "" {
		return DefaultLocalCountry
	}
	return s.LocalCountry
}
