package wishlist

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/storefront/internal/domain/catalog"
)

// ProductFinder looks up catalog products.
type ProductFinder interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
}

// Service manages wishlists. Every operation is scoped to the user id
// passed by the caller.
type Service struct {
	items    Repository
	products ProductFinder
	now      func() time.Time
}

// NewService creates a wishlist Service.
func NewService(items Repository, products ProductFinder) *Service {
	return &Service{
		items:    items,
		products: products,
		now:      time.Now,
	}
}

// Add saves an active product to the user's wishlist.
func (s *Service) Add(ctx context.Context, userID, productID uuid.UUID) (*Item, error) {
	p, err := s.products.GetProduct(ctx, productID)
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		return nil, catalog.ErrProductUnavailable
	case err != nil:
		return nil, errors.Wrap(err, "get product")
	case !p.Active:
		return nil, catalog.ErrProductUnavailable
	}

	it := &Item{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: productID,
		CreatedAt: s.now(),
		Product:   *p,
	}
	it.Product.Variants = nil
	if err := s.items.Add(ctx, it); err != nil {
		if errors.Is(err, ErrAlreadyListed) {
			return nil, ErrAlreadyListed
		}
		return nil, errors.Wrap(err, "add wishlist item")
	}
	return it, nil
}

// Remove deletes a product from the user's wishlist.
func (s *Service) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	if err := s.items.Remove(ctx, userID, productID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return errors.Wrap(err, "remove wishlist item")
	}
	return nil
}

// List returns the user's wishlist, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]Item, error) {
	items, err := s.items.List(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list wishlist")
	}
	return items, nil
}

// Contains reports whether the product is on the user's wishlist.
func (s *Service) Contains(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	ok, err := s.items.Contains(ctx, userID, productID)
	if err != nil {
		return false, errors.Wrap(err, "check wishlist")
	}
	return ok, nil
}
