// Package review stores customer ratings of products.
package review

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/apperr"
)

const (
	MinRating = 1
	MaxRating = 5
)

var (
	// ErrNotFound is returned when the review does not exist or belongs to
	// another user.
	ErrNotFound = apperr.New(apperr.NotFound, "review not found")
	// ErrAlreadyReviewed is returned for a second review of the same product.
	ErrAlreadyReviewed = apperr.New(apperr.Conflict, "product already reviewed")
	// ErrInvalidRating is returned for ratings outside MinRating..MaxRating.
	ErrInvalidRating = apperr.Errorf(apperr.Validation, "rating must be between %d and %d", MinRating, MaxRating)
)

// Review is one user's rating of one product. A review is verified when the
// author bought the product in an order that went past pending.
type Review struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	UserID    uuid.UUID
	OrderID   *uuid.UUID
	Rating    int
	Title     string
	Comment   string
	Verified  bool
	CreatedAt time.Time
	UpdatedAt time.Time

	// Author details joined on read.
	AuthorFirstName string
	AuthorLastName  string
}

// Rating summarizes the reviews of a product. Average is rounded to one
// decimal and zero when Count is zero.
type Rating struct {
	Average decimal.Decimal
	Count   int
}

// Changes lists the fields of a review to overwrite. Nil fields are kept.
type Changes struct {
	Rating  *int
	Title   *string
	Comment *string
}

// Repository persists reviews.
type Repository interface {
	// Create stores r, returning ErrAlreadyReviewed when the user already
	// reviewed the product. Author details are filled in.
	Create(ctx context.Context, r *Review) error
	// Update applies c to the review id of userID, returning ErrNotFound
	// when no such review exists.
	Update(ctx context.Context, userID, id uuid.UUID, c Changes) (*Review, error)
	// ListByProduct returns the reviews of a product, newest first.
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]Review, error)
	// Rating aggregates the reviews of a product.
	Rating(ctx context.Context, productID uuid.UUID) (Rating, error)
	// LastPurchase returns the most recent confirmed, shipped or delivered
	// order of userID containing the product, or nil.
	LastPurchase(ctx context.Context, userID, productID uuid.UUID) (*uuid.UUID, error)
}
