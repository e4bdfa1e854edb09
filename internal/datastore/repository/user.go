package repository

import (
	"context"

	"github.com/tphakala/console-panel/internal/datastore/entities"
)

// UserPatch lists the user fields an update may change.
type UserPatch struct {
	Email    *string
	Name     *string
	Role     *entities.Role
	Password *string // plain text, hashed before storing
	Version  *uint
}

// UserRepository provides access to the users table.
type UserRepository interface {
	// Create stores u with password hashed. The email is lower-cased.
	Create(ctx context.Context, u *entities.User, password string) (*entities.User, error)

	// GetByID returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uint) (*entities.User, error)

	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (*entities.User, error)

	Update(ctx context.Context, id uint, patch UserPatch) (*entities.User, error)
	List(ctx context.Context, opts ListOptions) ([]entities.User, error)
	Count(ctx context.Context) (int64, error)

	// Delete removes the user and the configurations they saved.
	Delete(ctx context.Context, id uint) error

	// Authenticate returns the user when email and password match, and
	// ErrInvalidCredentials otherwise.
	Authenticate(ctx context.Context, email, password string) (*entities.User, error)

	// SetPassword replaces the password after checking the policy.
	SetPassword(ctx context.Context, id uint, password string) error
}
