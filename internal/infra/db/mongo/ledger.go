package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "islandstay/internal/domain/booking"
	domainlistings "islandstay/internal/domain/listings"
	"islandstay/internal/domain/shared/civil"
	"islandstay/internal/domain/shared/money"
	domainusers "islandstay/internal/domain/users"
)

// mongoUnauthorized is the server error code for a read the caller's
// credentials do not permit.
const mongoUnauthorized = 13

// Ledger is the Mongo-backed capacity ledger. Insert re-checks the pool
// and appends inside one session transaction, which is the storage
// primitive that actually enforces the capacity invariant; the
// scheduling service's own pre-check only narrows the race window.
type Ledger struct {
	client   *mongo.Client
	bookings *mongo.Collection
	listings *mongo.Collection
}

func NewLedger(db *mongo.Database) *Ledger {
	return &Ledger{
		client:   db.Client(),
		bookings: db.Collection("bookings"),
		listings: db.Collection("listings"),
	}
}

func (l *Ledger) ListingCapacity(ctx context.Context, id domainlistings.ListingID) (int, error) {
	var doc struct {
		Capacity int `bson:"capacity"`
	}
	opts := options.FindOne().SetProjection(bson.M{"capacity": 1})
	if err := l.listings.FindOne(ctx, bson.M{"_id": string(id)}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, domainlistings.ErrListingNotFound
		}
		return 0, err
	}
	return doc.Capacity, nil
}

func (l *Ledger) ActiveBookings(ctx context.Context, key domainbooking.ConflictKey) ([]*domainbooking.Booking, error) {
	rows, err := l.activeBookingsWith(ctx, l.bookings, key)
	if err != nil {
		return nil, classifyReadError(err)
	}
	if len(rows) == 0 {
		return nil, domainbooking.ErrNoBookingsFound
	}
	return rows, nil
}

// Insert runs the capacity check and the append in one transaction so
// concurrent admissions for the same key serialize at the storage
// layer.
func (l *Ledger) Insert(ctx context.Context, b *domainbooking.Booking) (domainbooking.BookingID, error) {
	capacity, err := l.ListingCapacity(ctx, b.ListingID)
	if err != nil {
		return "", err
	}

	session, err := l.client.StartSession()
	if err != nil {
		return "", err
	}
	defer session.EndSession(ctx)

	doc := newBookingDocument(b)
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		existing, err := l.activeBookingsWith(sc, l.bookings, b.Key())
		if err != nil {
			return nil, classifyReadError(err)
		}
		booked := 0
		for _, row := range existing {
			booked += row.Quantity
		}
		if booked+b.Quantity > capacity {
			return nil, &domainbooking.InsufficientCapacityError{Remaining: capacity - booked}
		}
		if _, err := l.bookings.InsertOne(sc, doc); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return "", err
	}
	return domainbooking.BookingID(doc.ID), nil
}

func (l *Ledger) ByTourist(ctx context.Context, id domainusers.UserID) ([]*domainbooking.Booking, error) {
	opts := options.Find().SetSort(bson.M{"created_at": -1})
	cursor, err := l.bookings.Find(ctx, bson.M{"tourist_id": string(id)}, opts)
	if err != nil {
		return nil, classifyReadError(err)
	}
	defer cursor.Close(ctx)
	return decodeBookings(ctx, cursor)
}

func (l *Ledger) activeBookingsWith(ctx context.Context, col *mongo.Collection, key domainbooking.ConflictKey) ([]*domainbooking.Booking, error) {
	filter := bson.M{
		"listing_id":   string(key.ListingID),
		"booking_date": key.Date.String(),
		"status":       bson.M{"$ne": string(domainbooking.StatusCancelled)},
	}
	if slot, ok := key.Slot.Value(); ok {
		filter["time_slot"] = slot
	} else {
		filter["time_slot"] = nil
	}
	cursor, err := col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	return decodeBookings(ctx, cursor)
}

func classifyReadError(err error) error {
	if err == nil {
		return nil
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && (cmdErr.Code == mongoUnauthorized || cmdErr.Name == "Unauthorized") {
		return domainbooking.ErrPermissionDenied
	}
	return err
}

func decodeBookings(ctx context.Context, cursor *mongo.Cursor) ([]*domainbooking.Booking, error) {
	var out []*domainbooking.Booking
	for cursor.Next(ctx) {
		var doc bookingDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		row, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type bookingDocument struct {
	ID          string  `bson:"_id"`
	ListingID   string  `bson:"listing_id"`
	TouristID   string  `bson:"tourist_id"`
	BookingDate string  `bson:"booking_date"`
	TimeSlot    *string `bson:"time_slot"`
	Quantity    int     `bson:"quantity"`
	TotalAmount int64   `bson:"total_amount"`
	Currency    string  `bson:"currency"`
	Status      string  `bson:"status"`
	CreatedAt   int64   `bson:"created_at"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	doc := bookingDocument{
		ID:          string(b.ID),
		ListingID:   string(b.ListingID),
		TouristID:   string(b.TouristID),
		BookingDate: b.Date.String(),
		Quantity:    b.Quantity,
		TotalAmount: b.Total.Amount,
		Currency:    b.Total.Currency,
		Status:      string(b.Status),
		CreatedAt:   b.CreatedAt.UnixMilli(),
	}
	if slot, ok := b.Slot.Value(); ok {
		doc.TimeSlot = &slot
	}
	return doc
}

func (d bookingDocument) toDomain() (*domainbooking.Booking, error) {
	date, err := civil.Parse(d.BookingDate)
	if err != nil {
		return nil, err
	}
	slot := domainbooking.NoSlot()
	if d.TimeSlot != nil {
		slot = domainbooking.SlotAt(*d.TimeSlot)
	}
	total, err := money.New(d.TotalAmount, d.Currency)
	if err != nil {
		return nil, err
	}
	return &domainbooking.Booking{
		ID:        domainbooking.BookingID(d.ID),
		ListingID: domainlistings.ListingID(d.ListingID),
		TouristID: domainusers.UserID(d.TouristID),
		Date:      date,
		Slot:      slot,
		Quantity:  d.Quantity,
		Total:     total,
		Status:    domainbooking.Status(d.Status),
		CreatedAt: time.UnixMilli(d.CreatedAt).UTC(),
	}, nil
}

var _ domainbooking.CapacityLedger = (*Ledger)(nil)
