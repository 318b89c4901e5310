package memory

import (
	"context"
	"sync"

	domainlistings "islandstay/internal/domain/listings"
	domainusers "islandstay/internal/domain/users"
)

// ListingRepository is an in-memory implementation for tests and
// single-process deployments.
type ListingRepository struct {
	mu    sync.RWMutex
	items map[domainlistings.ListingID]*domainlistings.Listing
}

func NewListingRepository() *ListingRepository {
	return &ListingRepository{
		items: make(map[domainlistings.ListingID]*domainlistings.Listing),
	}
}

// ByID returns a listing or listings.ErrListingNotFound.
func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	listing, ok := r.items[id]
	if !ok {
		return nil, domainlistings.ErrListingNotFound
	}
	return listing, nil
}

// Save stores/updates a listing entry.
func (r *ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[listing.ID] = listing
	return nil
}

var _ domainlistings.Repository = (*ListingRepository)(nil)

// UserRepository keeps travelers and hosts in memory.
type UserRepository struct {
	mu    sync.RWMutex
	items map[domainusers.UserID]*domainusers.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		items: make(map[domainusers.UserID]*domainusers.User),
	}
}

func (r *UserRepository) ByID(ctx context.Context, id domainusers.UserID) (*domainusers.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.items[id]
	if !ok {
		return nil, domainusers.ErrUserNotFound
	}
	return user, nil
}

func (r *UserRepository) Save(ctx context.Context, user *domainusers.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[user.ID] = user
	return nil
}

var _ domainusers.Repository = (*UserRepository)(nil)
