package users

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrUserNotFound   = errors.New("users: not found")
	ErrEmailRequired  = errors.New("users: email is required")
	ErrInvalidCountry = errors.New("users: origin country must be a 2-letter code")
	ErrInvalidRole    = errors.New("users: unknown role")
)

type UserID string

type Role string

const (
	RoleTourist Role = "tourist"
	RoleHost    Role = "host"
)

// User is read-only for the booking path: created once at signup,
// consulted for the pricing tier via OriginCountry.
type User struct {
	ID       UserID
	Email    string
	FullName string
	Role     Role
	// OriginCountry is an optional ISO 3166-1 alpha-2 code. Empty means
	// unknown origin, which prices at the foreign tier.
	OriginCountry string
	CreatedAt     time.Time
}

type Repository interface {
	ByID(ctx context.Context, id UserID) (*User, error)
	Save(ctx context.Context, user *User) error
}

type CreateParams struct {
	ID            UserID
	Email         string
	FullName      string
	Role          Role
	OriginCountry string
	Now           time.Time
}

func NewUser(params CreateParams) (*User, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("users: id is required")
	}
	if strings.TrimSpace(params.Email) == "" {
		return nil, ErrEmailRequired
	}
	if params.Role != RoleTourist && params.Role != RoleHost {
		return nil, ErrInvalidRole
	}
	country := strings.ToUpper(strings.TrimSpace(params.OriginCountry))
	if country != "" && len(country) != 2 {
		return nil, ErrInvalidCountry
	}
	return &User{
		ID:            params.ID,
		Email:         params.Email,
		FullName:      params.FullName,
		Role:          params.Role,
		OriginCountry: country,
		CreatedAt:     params.Now.UTC(),
	}, nil
}
