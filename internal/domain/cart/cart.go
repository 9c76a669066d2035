// Package cart manages per-user shopping carts.
package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/apperr"
)

var (
	// ErrNotFound is returned when the user has no cart.
	ErrNotFound = apperr.New(apperr.NotFound, "cart not found")
	// ErrLineNotFound is returned when a line is absent from the user's cart.
	ErrLineNotFound = apperr.New(apperr.NotFound, "item not found in cart")
	// ErrInvalidQuantity is returned for non-positive quantities.
	ErrInvalidQuantity = apperr.New(apperr.Validation, "quantity must be greater than 0")
)

// Cart is a user's in-progress selection. It is created lazily and kept
// (emptied) after checkout.
type Cart struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Lines     []Line
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Subtotal returns the sum of line totals at captured prices.
func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.Lines {
		sum = sum.Add(l.Total())
	}
	return sum
}

// Line is one product (and optional variant) entry of a cart. UnitPrice is
// the product price captured when the line was first added.
type Line struct {
	ID        uuid.UUID
	CartID    uuid.UUID
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal

	// Read-only product details joined on read.
	ProductName string
	ProductSKU  string
	VariantName string
	VariantSKU  string
}

// Total returns UnitPrice × Quantity rounded to cents.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)
}

// SKU returns the variant SKU when the line has a variant, otherwise the
// product SKU.
func (l Line) SKU() string {
	if l.VariantID != nil && l.VariantSKU != "" {
		return l.VariantSKU
	}
	return l.ProductSKU
}

// Repository defines persistence operations for carts.
type Repository interface {
	// GetOrCreate returns the user's cart, creating an empty one if needed.
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*Cart, error)
	// LockByUser returns the user's cart with lines and locks it for the
	// rest of the current transaction. Returns ErrNotFound when absent.
	LockByUser(ctx context.Context, userID uuid.UUID) (*Cart, error)
	// Lines returns the lines of a cart with product details.
	Lines(ctx context.Context, cartID uuid.UUID) ([]Line, error)
	// AddLine inserts a line or increments the quantity of the existing
	// (product, variant) line.
	AddLine(ctx context.Context, l *Line) (*Line, error)
	// SetLineQuantity updates a line of the user's cart.
	SetLineQuantity(ctx context.Context, userID, lineID uuid.UUID, qty int) (*Line, error)
	// DeleteLine removes a line of the user's cart.
	DeleteLine(ctx context.Context, userID, lineID uuid.UUID) error
	// ClearLines removes every line of a cart and reports how many were removed.
	ClearLines(ctx context.Context, cartID uuid.UUID) (int64, error)
}
