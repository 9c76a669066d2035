// Package order turns carts into immutable order snapshots and drives the
// order lifecycle.
package order

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/apperr"
)

var (
	// ErrNotFound is returned when an order does not exist or belongs to
	// another user.
	ErrNotFound = apperr.New(apperr.NotFound, "order not found")
	// ErrEmptyCart is returned when checkout is attempted with no cart lines.
	ErrEmptyCart = apperr.New(apperr.EmptyCart, "cart is empty")
	// ErrInvalidStatus is returned for an unknown status value.
	ErrInvalidStatus = apperr.New(apperr.Validation, "invalid order status")
	// ErrInvalidTransition is returned when the current status does not allow
	// moving to the requested one.
	ErrInvalidTransition = apperr.New(apperr.InvalidState, "order status transition not allowed")
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether an order in status s may move to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Address is a postal address attached to an order.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// IsZero reports whether no field of the address is set.
func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) validate(name string) error {
	for _, f := range []struct {
		field, value string
	}{
		{"street", a.Street},
		{"city", a.City},
		{"postal_code", a.PostalCode},
		{"country", a.Country},
	} {
		if strings.TrimSpace(f.value) == "" {
			return apperr.Errorf(apperr.Validation, "%s address: %s is required", name, f.field)
		}
	}
	return nil
}

// Order is the financial snapshot of a checked-out cart. Only the status and,
// once, the coupon discount change after creation.
type Order struct {
	ID              uuid.UUID
	Number          string
	UserID          uuid.UUID
	Status          Status
	Subtotal        decimal.Decimal
	Tax             decimal.Decimal
	Shipping        decimal.Decimal
	Discount        decimal.Decimal
	Total           decimal.Decimal
	ShippingAddress Address
	BillingAddress  Address
	Note            string
	CouponID        *uuid.UUID
	Lines           []Line
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Line freezes the product details of a cart line at checkout.
type Line struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   uuid.UUID
	VariantID   *uuid.UUID
	ProductName string
	SKU         string
	UnitPrice   decimal.Decimal
	Quantity    int
	Total       decimal.Decimal
}

// Pricing holds the checkout policy constants.
type Pricing struct {
	TaxRate     decimal.Decimal
	ShippingFee decimal.Decimal
}

// DefaultPricing is a 20% tax rate and a flat shipping fee of 10.
var DefaultPricing = Pricing{
	TaxRate:     decimal.RequireFromString("0.20"),
	ShippingFee: decimal.NewFromInt(10),
}

// Totals computes tax, shipping and grand total for a subtotal. Every amount
// is rounded to cents, half away from zero.
func (p Pricing) Totals(subtotal decimal.Decimal) (tax, shipping, total decimal.Decimal) {
	subtotal = subtotal.Round(2)
	tax = subtotal.Mul(p.TaxRate).Round(2)
	shipping = p.ShippingFee.Round(2)
	total = subtotal.Add(tax).Add(shipping)
	return tax, shipping, total
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create stores the order header and its lines.
	Create(ctx context.Context, o *Order) error
	// FindByID returns the order with its lines.
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	// LockByID returns the order header and locks the row for the rest of the
	// current transaction.
	LockByID(ctx context.Context, id uuid.UUID) (*Order, error)
	// ListByUser returns the user's orders, newest first, with lines.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	// ApplyDiscount records a coupon discount and the resulting total.
	ApplyDiscount(ctx context.Context, id uuid.UUID, discount, total decimal.Decimal, couponID uuid.UUID) error
}
