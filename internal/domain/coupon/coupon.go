// Package coupon validates discount codes and applies them to pending orders.
package coupon

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/apperr"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage takes Value percent off the total.
	DiscountPercentage DiscountType = "PERCENTAGE"
	// DiscountFixed takes Value off the total, never more than the total.
	DiscountFixed DiscountType = "FIXED_AMOUNT"
)

// Valid reports whether t is a known discount type.
func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

var (
	// ErrNotFound is returned when no coupon has the code.
	ErrNotFound = apperr.New(apperr.NotFound, "coupon not found")
	// ErrInactive is returned for a deactivated coupon.
	ErrInactive = apperr.New(apperr.InvalidState, "coupon is inactive")
	// ErrOutsideWindow is returned before the start or after the end of the
	// validity window.
	ErrOutsideWindow = apperr.New(apperr.InvalidState, "coupon expired or not yet valid")
	// ErrBelowMinimum is returned when the total is under the minimum purchase.
	ErrBelowMinimum = apperr.New(apperr.InvalidState, "order total below coupon minimum purchase")
	// ErrExhausted is returned when the usage limit has been reached.
	ErrExhausted = apperr.New(apperr.InvalidState, "coupon usage limit reached")
	// ErrAlreadyApplied is returned when the order already carries a coupon.
	ErrAlreadyApplied = apperr.New(apperr.Conflict, "order already has a coupon applied")
	// ErrCodeTaken is returned when creating a coupon with an existing code.
	ErrCodeTaken = apperr.New(apperr.Conflict, "coupon code already exists")
	// ErrOrderNotPending is returned when discounting an order past checkout.
	ErrOrderNotPending = apperr.New(apperr.InvalidState, "coupon can only be applied to pending orders")
	// ErrNegativeTotal is returned when validating against a negative total.
	ErrNegativeTotal = apperr.New(apperr.Validation, "total must not be negative")
	// ErrTotalOutOfRange is returned for totals no amount column can hold.
	ErrTotalOutOfRange = apperr.New(apperr.Validation, "total is out of range")
)

// Coupon is a globally shared discount rule.
type Coupon struct {
	ID          uuid.UUID
	Code        string
	Description string
	Type        DiscountType
	Value       decimal.Decimal
	MinPurchase decimal.NullDecimal
	MaxDiscount decimal.NullDecimal
	// UsageLimit is nil for unlimited coupons.
	UsageLimit *int
	UsageCount int
	StartsAt   time.Time
	EndsAt     time.Time
	Active     bool
	// OrderCount is the number of orders referencing the coupon. Populated
	// by listings only.
	OrderCount int
	CreatedAt  time.Time
}

// Validation is the result of previewing a coupon against a total.
type Validation struct {
	Coupon     *Coupon
	Discount   decimal.Decimal
	FinalTotal decimal.Decimal
}

// Repository provides lookup and mutation of coupons.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	// LockByCode returns the coupon and locks its row for the rest of the
	// current transaction.
	LockByCode(ctx context.Context, code string) (*Coupon, error)
	// IncrementUsage adds one use unless the usage limit has been reached,
	// in which case it returns ErrExhausted.
	IncrementUsage(ctx context.Context, id uuid.UUID) error
	Create(ctx context.Context, c *Coupon) error
	// List returns every coupon with OrderCount populated, newest first.
	List(ctx context.Context) ([]Coupon, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}
