package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/money"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/uow"
	"github.com/xenking/storefront/internal/notify"
)

// Orders is the subset of order persistence needed to discount an order.
type Orders interface {
	FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error)
	LockByID(ctx context.Context, id uuid.UUID) (*order.Order, error)
	ApplyDiscount(ctx context.Context, id uuid.UUID, discount, total decimal.Decimal, couponID uuid.UUID) error
}

// CreateInput carries the fields of a new coupon.
type CreateInput struct {
	Code        string
	Description string
	Type        DiscountType
	Value       decimal.Decimal
	MinPurchase decimal.NullDecimal
	MaxDiscount decimal.NullDecimal
	UsageLimit  *int
	StartsAt    time.Time
	EndsAt      time.Time
}

// Validate checks that the input describes a usable coupon.
func (in CreateInput) Validate() error {
	switch {
	case strings.TrimSpace(in.Code) == "":
		return apperr.New(apperr.Validation, "code is required")
	case strings.TrimSpace(in.Description) == "":
		return apperr.New(apperr.Validation, "description is required")
	case !in.Type.Valid():
		return apperr.Errorf(apperr.Validation, "unsupported discount type %q", in.Type)
	case !money.Fits(in.Value) || !nullFits(in.MinPurchase) || !nullFits(in.MaxDiscount):
		return apperr.New(apperr.Validation, "amount is out of range")
	case !in.Value.Round(money.Scale).IsPositive():
		return apperr.New(apperr.Validation, "discount value must be positive")
	case in.Type == DiscountPercentage && in.Value.GreaterThan(hundred):
		return apperr.New(apperr.Validation, "percentage discount must not exceed 100")
	case in.MinPurchase.Valid && !in.MinPurchase.Decimal.Round(money.Scale).IsPositive():
		return apperr.New(apperr.Validation, "minimum purchase must be positive")
	case in.MaxDiscount.Valid && !in.MaxDiscount.Decimal.Round(money.Scale).IsPositive():
		return apperr.New(apperr.Validation, "maximum discount must be positive")
	case in.UsageLimit != nil && *in.UsageLimit <= 0:
		return apperr.New(apperr.Validation, "usage limit must be positive")
	case !in.EndsAt.After(in.StartsAt):
		return apperr.New(apperr.Validation, "end date must be after start date")
	}
	return nil
}

// Service validates coupons and applies them to orders.
type Service struct {
	tx       uow.UnitOfWork
	coupons  Repository
	orders   Orders
	notifier notify.Notifier
	now      func() time.Time
}

// NewService creates a coupon Service.
func NewService(tx uow.UnitOfWork, coupons Repository, orders Orders, n notify.Notifier) *Service {
	if n == nil {
		n = notify.Nop{}
	}
	return &Service{
		tx:       tx,
		coupons:  coupons,
		orders:   orders,
		notifier: n,
		now:      time.Now,
	}
}

// Validate previews the discount code would grant on total. It has no side
// effects.
func (s *Service) Validate(ctx context.Context, code string, total decimal.Decimal) (*Validation, error) {
	if !money.Fits(total) {
		return nil, ErrTotalOutOfRange
	}
	if total.IsNegative() {
		return nil, ErrNegativeTotal
	}

	c, err := s.coupons.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}
	return s.evaluate(c, total)
}

func (s *Service) evaluate(c *Coupon, total decimal.Decimal) (*Validation, error) {
	if err := Check(c, total, s.now()); err != nil {
		return nil, err
	}
	discount := Calculate(c, total)
	return &Validation{
		Coupon:     c,
		Discount:   discount,
		FinalTotal: FinalTotal(total, discount),
	}, nil
}

// ApplyToOrder discounts a pending order of userID with code. The order and
// coupon rows are locked for the whole operation and the usage counter is
// only incremented while still under the limit, so concurrent applications
// can never exceed it.
func (s *Service) ApplyToOrder(ctx context.Context, userID, orderID uuid.UUID, code string) (*order.Order, error) {
	var v *Validation
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.LockByID(ctx, orderID)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return order.ErrNotFound
		}
		if o.CouponID != nil {
			return ErrAlreadyApplied
		}
		if o.Status != order.StatusPending {
			return ErrOrderNotPending
		}

		c, err := s.coupons.LockByCode(ctx, code)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrNotFound
			}
			return errors.Wrap(err, "lock coupon")
		}
		if v, err = s.evaluate(c, o.Total); err != nil {
			return err
		}

		if err := s.coupons.IncrementUsage(ctx, c.ID); err != nil {
			if errors.Is(err, ErrExhausted) {
				return ErrExhausted
			}
			return errors.Wrap(err, "increment coupon usage")
		}
		if err := s.orders.ApplyDiscount(ctx, o.ID, v.Discount, v.FinalTotal, c.ID); err != nil {
			return errors.Wrap(err, "apply discount")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "reload order")
	}

	zctx.From(ctx).Info("Coupon applied",
		zap.String("code", v.Coupon.Code),
		zap.String("order_number", o.Number),
		zap.String("discount", v.Discount.StringFixed(2)),
	)
	s.notifier.Notify(ctx, notify.Event{
		Type:        notify.CouponApplied,
		UserID:      o.UserID,
		OrderID:     o.ID,
		OrderNumber: o.Number,
		Status:      string(o.Status),
		Total:       o.Total,
		CouponCode:  v.Coupon.Code,
		OccurredAt:  s.now(),
	})
	return o, nil
}

// New validates in and builds an active coupon created at now.
func New(in CreateInput, now time.Time) (*Coupon, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return &Coupon{
		ID:          uuid.New(),
		Code:        strings.TrimSpace(in.Code),
		Description: strings.TrimSpace(in.Description),
		Type:        in.Type,
		Value:       in.Value.Round(money.Scale),
		MinPurchase: roundNull(in.MinPurchase),
		MaxDiscount: roundNull(in.MaxDiscount),
		UsageLimit:  in.UsageLimit,
		StartsAt:    in.StartsAt,
		EndsAt:      in.EndsAt,
		Active:      true,
		CreatedAt:   now,
	}, nil
}

// Create stores a new active coupon.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Coupon, error) {
	c, err := New(in, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.coupons.Create(ctx, c); err != nil {
		if errors.Is(err, ErrCodeTaken) {
			return nil, ErrCodeTaken
		}
		return nil, errors.Wrap(err, "create coupon")
	}
	return c, nil
}

// List returns every coupon with the number of orders using it.
func (s *Service) List(ctx context.Context) ([]Coupon, error) {
	coupons, err := s.coupons.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list coupons")
	}
	return coupons, nil
}

// Deactivate makes a coupon ineligible for new applications.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.coupons.SetActive(ctx, id, false)
}

func roundNull(d decimal.NullDecimal) decimal.NullDecimal {
	if d.Valid {
		d.Decimal = d.Decimal.Round(money.Scale)
	}
	return d
}

func nullFits(d decimal.NullDecimal) bool {
	return !d.Valid || money.Fits(d.Decimal)
}
