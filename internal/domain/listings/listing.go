package listings

import (
	"context"
	"errors"
	"strings"
	"time"

	"islandstay/internal/domain/shared/money"
)

var (
	ErrTitleRequired    = errors.New("listings: title is required")
	ErrLocationRequired = errors.New("listings: location is required")
	ErrInvalidCapacity  = errors.New("listings: capacity must be at least 1")
	ErrInvalidRate      = errors.New("listings: both price tiers must be positive")
	ErrInventoryType    = errors.New("listings: unknown inventory type")
	ErrListingNotFound  = errors.New("listings: not found")
)

type ListingID string
type HostID string

// InventoryType discriminates how a listing's capacity is bucketed:
// slot listings sell time-of-day slots on a calendar day, date listings
// sell whole days/nights with no time component.
type InventoryType string

const (
	InventorySlot InventoryType = "slot"
	InventoryDate InventoryType = "date"
)

func ParseInventoryType(s string) (InventoryType, error) {
	switch InventoryType(strings.ToLower(strings.TrimSpace(s))) {
	case InventorySlot:
		return InventorySlot, nil
	case InventoryDate:
		return InventoryDate, nil
	default:
		return "", ErrInventoryType
	}
}

type Listing struct {
	ID            ListingID
	Host          HostID
	Title         string
	Description   string
	Location      string
	InventoryType InventoryType
	// Capacity is the maximum concurrent units per conflict key.
	Capacity     int
	LocalPrice   money.Money
	ForeignPrice money.Money
	CreatedAt    time.Time
}

type Repository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	Save(ctx context.Context, listing *Listing) error
}

type CreateParams struct {
	ID            ListingID
	Host          HostID
	Title         string
	Description   string
	Location      string
	InventoryType InventoryType
	Capacity      int
	LocalPrice    money.Money
	ForeignPrice  money.Money
	Now           time.Time
}

func NewListing(params CreateParams) (*Listing, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("listings: id is required")
	}
	if strings.TrimSpace(string(params.Host)) == "" {
		return nil, errors.New("listings: host id is required")
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrTitleRequired
	}
	if strings.TrimSpace(params.Location) == "" {
		return nil, ErrLocationRequired
	}
	if params.InventoryType != InventorySlot && params.InventoryType != InventoryDate {
		return nil, ErrInventoryType
	}
	if params.Capacity < 1 {
		return nil, ErrInvalidCapacity
	}
	if !params.LocalPrice.IsPositive() || !params.ForeignPrice.IsPositive() {
		return nil, ErrInvalidRate
	}
	return &Listing{
		ID:            params.ID,
		Host:          params.Host,
		Title:         params.Title,
		Description:   params.Description,
		Location:      params.Location,
		InventoryType: params.InventoryType,
		Capacity:      params.Capacity,
		LocalPrice:    params.LocalPrice,
		ForeignPrice:  params.ForeignPrice,
		CreatedAt:     params.Now.UTC(),
	}, nil
}
