package repository

import (
	"context"
	"errors"

	"account-service/internal/domain"
)

var (
	// ErrNotFound is returned when no user matches the lookup key.
	ErrNotFound = errors.New("user not found")
	// ErrUsernameTaken is returned when a write would duplicate a username.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrEmailTaken is returned when a write would duplicate an email.
	ErrEmailTaken = errors.New("email already taken")
)

// UserChanges holds the staged fields of an update. Nil fields are left untouched.
type UserChanges struct {
	Username     *string
	Email        *string
	FullName     *string
	PasswordHash *string
	Disabled     *bool
}

// Empty reports whether no field is staged.
func (c UserChanges) Empty() bool {
	return c.Username == nil && c.Email == nil && c.FullName == nil &&
		c.PasswordHash == nil && c.Disabled == nil
}

// UserRepository defines persistence operations for User entities.
// Implementations must enforce username and email uniqueness themselves.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) (string, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Update(ctx context.Context, username string, changes UserChanges) error
}
