// Package auth registers users, checks their credentials and issues bearer
// tokens.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/xenking/storefront/internal/domain/apperr"
)

// Role is a coarse permission level.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

var (
	// ErrEmailTaken is returned when registering an email that is in use.
	ErrEmailTaken = apperr.New(apperr.Conflict, "email already registered")
	// ErrInvalidCredentials is returned for an unknown email or a wrong
	// password. The two cases are indistinguishable to the caller.
	ErrInvalidCredentials = apperr.New(apperr.Validation, "invalid credentials")
	// ErrUserNotFound is returned by repositories when no user matches.
	ErrUserNotFound = apperr.New(apperr.NotFound, "user not found")
)

// User is a registered account.
type User struct {
	ID           uuid.UUID
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// Identity is the authenticated caller carried by a request.
type Identity struct {
	UserID uuid.UUID
	Role   Role
}

// IsAdmin reports whether the caller has the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// Repository provides lookup and creation of users.
type Repository interface {
	// Create stores u, returning ErrEmailTaken on a duplicate email.
	Create(ctx context.Context, u *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
}
