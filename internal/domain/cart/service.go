package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/storefront/internal/domain/catalog"
)

// ProductFinder looks up catalog products.
type ProductFinder interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
}

// AddItemRequest holds the input for adding a product to a cart.
type AddItemRequest struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
}

// Service encapsulates cart business logic. Every operation is scoped to
// the user id passed by the caller.
type Service struct {
	carts    Repository
	products ProductFinder
}

// NewService creates a cart Service.
func NewService(carts Repository, products ProductFinder) *Service {
	return &Service{
		carts:    carts,
		products: products,
	}
}

// Get returns the user's cart with its lines, creating an empty cart on
// first access.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}

	lines, err := s.carts.Lines(ctx, c.ID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart lines")
	}
	c.Lines = lines
	return c, nil
}

// AddItem adds a product to the user's cart at the product's current price.
// Adding a product/variant combination already present increments its
// quantity instead of creating a second line.
func (s *Service) AddItem(ctx context.Context, userID uuid.UUID, req AddItemRequest) (*Line, error) {
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	p, err := s.products.GetProduct(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return nil, catalog.ErrProductUnavailable
		}
		return nil, errors.Wrap(err, "get product")
	}
	if !p.Active {
		return nil, catalog.ErrProductUnavailable
	}
	if req.VariantID != nil {
		if _, ok := p.Variant(*req.VariantID); !ok {
			return nil, catalog.ErrVariantNotFound
		}
	}

	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}

	line, err := s.carts.AddLine(ctx, &Line{
		ID:        uuid.New(),
		CartID:    c.ID,
		ProductID: p.ID,
		VariantID: req.VariantID,
		Quantity:  req.Quantity,
		UnitPrice: p.Price,
	})
	if err != nil {
		return nil, errors.Wrap(err, "add cart line")
	}
	return line, nil
}

// UpdateQuantity sets the quantity of a line in the user's cart.
func (s *Service) UpdateQuantity(ctx context.Context, userID, lineID uuid.UUID, qty int) (*Line, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	return s.carts.SetLineQuantity(ctx, userID, lineID, qty)
}

// RemoveItem deletes a line from the user's cart.
func (s *Service) RemoveItem(ctx context.Context, userID, lineID uuid.UUID) error {
	return s.carts.DeleteLine(ctx, userID, lineID)
}

// Clear removes every line from the user's cart. Clearing a cart that does
// not exist yet is a no-op.
func (s *Service) Clear(ctx context.Context, userID uuid.UUID) error {
	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "get cart")
	}
	if _, err := s.carts.ClearLines(ctx, c.ID); err != nil {
		return errors.Wrap(err, "clear cart")
	}
	return nil
}
