package account

import (
	"context"
	"time"

	"github.com/frat/frat/internal/platform/apperr"
)

var (
	ErrUserNotFound        = apperr.New(apperr.ErrNotFound, "User not found")
	ErrUserExists          = apperr.New(apperr.ErrConflict, "User already exists with this username or email")
	ErrInvalidCredentials  = apperr.New(apperr.ErrUnauthorized, "Invalid credentials")
	ErrCredentialsRequired = apperr.New(apperr.ErrValidation, "Username and password are required")
	ErrFieldsRequired      = apperr.New(apperr.ErrValidation, "All fields are required")
	ErrInvalidRole         = apperr.New(apperr.ErrValidation, "Invalid role")
)

// Repository stores users. Username and email are each unique.
type Repository interface {
	// FindByLogin matches identifier against username or email.
	FindByLogin(ctx context.Context, identifier string) (*User, error)
	Create(ctx context.Context, u *User) error
	List(ctx context.Context) ([]*User, error)
	Count(ctx context.Context) (int, error)
	TouchLogin(ctx context.Context, id string, at time.Time) error
}
