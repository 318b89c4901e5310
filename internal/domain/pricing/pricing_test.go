package pricing

import (
	"errors"
	"testing"

	"islandstay/internal/domain/booking"
	"islandstay/internal/domain/listings"
	"islandstay/internal/domain/shared/money"
	"islandstay/internal/domain/users"
)

func tourListing() *listings.Listing {
	return &listings.Listing{
		ID:           "l-1",
		LocalPrice:   money.Must(350000, "LKR"),
		ForeignPrice: money.Must(5000, "USD"),
	}
}

func TestPrice_LocalOrigin(t *testing.T) {
	svc := NewService("LK")
	traveler := &users.User{ID: "u-1", OriginCountry: "LK"}

	quote, err := svc.Price(tourListing(), traveler, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.UnitPrice != money.Must(350000, "LKR") {
		t.Errorf("expected local unit price, got %v", quote.UnitPrice)
	}
	if quote.Total != money.Must(700000, "LKR") {
		t.Errorf("expected total 7000.00 LKR, got %v", quote.Total)
	}
}

func TestPrice_ForeignOrigin(t *testing.T) {
	svc := NewService("LK")
	traveler := &users.User{ID: "u-2", OriginCountry: "US"}

	quote, err := svc.Price(tourListing(), traveler, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.UnitPrice != money.Must(5000, "USD") {
		t.Errorf("expected foreign unit price, got %v", quote.UnitPrice)
	}
	if quote.Total != money.Must(5000, "USD") {
		t.Errorf("expected total 50.00 USD, got %v", quote.Total)
	}
}

func TestPrice_UnknownOriginDefaultsForeign(t *testing.T) {
	svc := NewService("LK")

	for name, traveler := range map[string]*users.User{
		"empty origin": {ID: "u-3"},
		"nil traveler": nil,
	} {
		quote, err := svc.Price(tourListing(), traveler, 3)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if quote.Total != money.Must(15000, "USD") {
			t.Errorf("%s: expected total 150.00 USD, got %v", name, quote.Total)
		}
	}
}

func TestPrice_NonPositiveQuantity(t *testing.T) {
	svc := NewService("LK")
	for _, quantity := range []int{0, -1} {
		if _, err := svc.Price(tourListing(), &users.User{ID: "u-1"}, quantity); !errors.Is(err, booking.ErrInvalidQuantity) {
			t.Errorf("quantity %d: expected ErrInvalidQuantity, got %v", quantity, err)
		}
	}
}

func TestPrice_ZeroValueServiceUsesDefaultCountry(t *testing.T) {
	var svc Service
	traveler := &users.User{ID: "u-1", OriginCountry: "LK"}

	quote, err := svc.Price(tourListing(), traveler, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.UnitPrice.Currency != "LKR" {
		t.Errorf("expected the default local country to apply, got %v", quote.UnitPrice)
	}
}
