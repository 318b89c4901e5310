package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlistings "islandstay/internal/domain/listings"
	"islandstay/internal/domain/shared/money"
	domainusers "islandstay/internal/domain/users"
)

type ListingRepository struct {
	col *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	return &ListingRepository{col: db.Collection("listings")}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var doc listingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainlistings.ErrListingNotFound
		}
		return nil, err
	}
	return doc.toDomain()
}

func (r *ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	doc := newListingDocument(listing)
	opts := options.Replace().SetUpsert(true)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	return err
}

var _ domainlistings.Repository = (*ListingRepository)(nil)

type listingDocument struct {
	ID            string `bson:"_id"`
	HostID        string `bson:"host_id"`
	Title         string `bson:"title"`
	Description   string `bson:"description"`
	Location      string `bson:"location"`
	InventoryType string `bson:"inventory_type"`
	Capacity      int    `bson:"capacity"`
	LocalAmount   int64  `bson:"local_amount"`
	LocalCurrency string `bson:"local_currency"`
	ForeignAmount int64  `bson:"foreign_amount"`
	ForeignCur    string `bson:"foreign_currency"`
	CreatedAt     int64  `bson:"created_at"`
}

func newListingDocument(l *domainlistings.Listing) listingDocument {
	return listingDocument{
		ID:            string(l.ID),
		HostID:        string(l.Host),
		Title:         l.Title,
		Description:   l.Description,
		Location:      l.Location,
		InventoryType: string(l.InventoryType),
		Capacity:      l.Capacity,
		LocalAmount:   l.LocalPrice.Amount,
		LocalCurrency: l.LocalPrice.Currency,
		ForeignAmount: l.ForeignPrice.Amount,
		ForeignCur:    l.ForeignPrice.Currency,
		CreatedAt:     l.CreatedAt.UnixMilli(),
	}
}

func (d listingDocument) toDomain() (*domainlistings.Listing, error) {
	inv, err := domainlistings.ParseInventoryType(d.InventoryType)
	if err != nil {
		return nil, err
	}
	local, err := money.New(d.LocalAmount, d.LocalCurrency)
	if err != nil {
		return nil, err
	}
	foreign, err := money.New(d.ForeignAmount, d.ForeignCur)
	if err != nil {
		return nil, err
	}
	return &domainlistings.Listing{
		ID:            domainlistings.ListingID(d.ID),
		Host:          domainlistings.HostID(d.HostID),
		Title:         d.Title,
		Description:   d.Description,
		Location:      d.Location,
		InventoryType: inv,
		Capacity:      d.Capacity,
		LocalPrice:    local,
		ForeignPrice:  foreign,
		CreatedAt:     time.UnixMilli(d.CreatedAt).UTC(),
	}, nil
}

type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection("users")}
}

func (r *UserRepository) ByID(ctx context.Context, id domainusers.UserID) (*domainusers.User, error) {
	var doc userDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainusers.ErrUserNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) Save(ctx context.Context, user *domainusers.User) error {
	doc := userDocument{
		ID:            string(user.ID),
		Email:         user.Email,
		FullName:      user.FullName,
		Role:          string(user.Role),
		OriginCountry: user.OriginCountry,
		CreatedAt:     user.CreatedAt.UnixMilli(),
	}
	opts := options.Replace().SetUpsert(true)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	return err
}

var _ domainusers.Repository = (*UserRepository)(nil)

type userDocument struct {
	ID            string `bson:"_id"`
	Email         string `bson:"email"`
	FullName      string `bson:"full_name"`
	Role          string `bson:"role"`
	OriginCountry string `bson:"origin_country"`
	CreatedAt     int64  `bson:"created_at"`
}

func (d userDocument) toDomain() *domainusers.User {
	return &domainusers.User{
		ID:            domainusers.UserID(d.ID),
		Email:         d.Email,
		FullName:      d.FullName,
		Role:          domainusers.Role(d.Role),
		OriginCountry: d.OriginCountry,
		CreatedAt:     time.UnixMilli(d.CreatedAt).UTC(),
	}
}
