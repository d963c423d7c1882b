package identity

import (
	"context"
)

// Repository persists accounts. Lookups of a missing account return an
// error wrapping apperr.ErrNotFound; a duplicate email on Create wraps
// apperr.ErrConflict.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id UserID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// DoctorProfiles provisions and resolves doctor profiles for accounts. The
// doctor directory implements it.
type DoctorProfiles interface {
	CreateForUser(ctx context.Context, u *User, details DoctorDetails) (string, error)
	IDForUser(ctx context.Context, userID UserID) (string, error)
}

// Transactor runs fn atomically where the store supports it.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
