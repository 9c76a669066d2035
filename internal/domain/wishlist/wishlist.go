// Package wishlist keeps the products a user saved for later.
package wishlist

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/catalog"
)

var (
	// ErrNotFound is returned when the product is not on the wishlist.
	ErrNotFound = apperr.New(apperr.NotFound, "product not in wishlist")
	// ErrAlreadyListed is returned when adding a product twice.
	ErrAlreadyListed = apperr.New(apperr.Conflict, "product already in wishlist")
)

// Item is one saved product.
type Item struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	ProductID uuid.UUID
	CreatedAt time.Time

	// Product is joined on read. Variants are not loaded.
	Product catalog.Product
}

// Repository persists wishlist items.
type Repository interface {
	// Add stores it, returning ErrAlreadyListed on a duplicate.
	Add(ctx context.Context, it *Item) error
	// Remove deletes the product from the user's wishlist, returning
	// ErrNotFound when it was not there.
	Remove(ctx context.Context, userID, productID uuid.UUID) error
	// List returns the user's items with their products, newest first.
	List(ctx context.Context, userID uuid.UUID) ([]Item, error)
	Contains(ctx context.Context, userID, productID uuid.UUID) (bool, error)
}
