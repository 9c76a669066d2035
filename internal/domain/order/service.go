package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/uow"
	"github.com/xenking/storefront/internal/notify"
)

// CreateRequest holds the input for checking out a cart.
type CreateRequest struct {
	UserID          uuid.UUID
	ShippingAddress Address
	// BillingAddress defaults to ShippingAddress when zero.
	BillingAddress Address
	Note           string
}

// Carts is the subset of cart persistence used at checkout.
type Carts interface {
	LockByUser(ctx context.Context, userID uuid.UUID) (*cart.Cart, error)
	ClearLines(ctx context.Context, cartID uuid.UUID) (int64, error)
}

// Option configures a Service.
type Option func(*Service)

// WithPricing sets the tax rate and shipping fee.
func WithPricing(p Pricing) Option {
	return func(s *Service) { s.pricing = p }
}

// WithNotifier sets the event notifier.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithNumberGenerator overrides order number generation.
func WithNumberGenerator(gen func() string) Option {
	return func(s *Service) { s.number = gen }
}

// Service converts carts into orders and manages order status.
type Service struct {
	tx       uow.UnitOfWork
	carts    Carts
	orders   Repository
	pricing  Pricing
	notifier notify.Notifier
	now      func() time.Time
	number   func() string
}

// NewService creates an order Service.
func NewService(tx uow.UnitOfWork, carts Carts, orders Repository, opts ...Option) *Service {
	s := &Service{
		tx:       tx,
		carts:    carts,
		orders:   orders,
		pricing:  DefaultPricing,
		notifier: notify.Nop{},
		now:      time.Now,
		number:   NewNumber,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewNumber returns a human-readable order number. ULIDs are monotonic
// within a millisecond, so concurrent checkouts never collide.
func NewNumber() string {
	return "ORD-" + ulid.Make().String()
}

// CreateFromCart snapshots the user's cart into a pending order and empties
// the cart. Locking the cart row serializes concurrent checkouts of the same
// user: the second one observes an empty cart and fails with ErrEmptyCart.
func (s *Service) CreateFromCart(ctx context.Context, req CreateRequest) (*Order, error) {
	if err := req.ShippingAddress.validate("shipping"); err != nil {
		return nil, err
	}
	billing := req.BillingAddress
	if billing.IsZero() {
		billing = req.ShippingAddress
	} else if err := billing.validate("billing"); err != nil {
		return nil, err
	}

	var o *Order
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		c, err := s.carts.LockByUser(ctx, req.UserID)
		if err != nil {
			if errors.Is(err, cart.ErrNotFound) {
				return ErrEmptyCart
			}
			return errors.Wrap(err, "lock cart")
		}
		if len(c.Lines) == 0 {
			return ErrEmptyCart
		}

		o = s.build(c, req, billing)
		if err := s.orders.Create(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}
		if _, err := s.carts.ClearLines(ctx, c.ID); err != nil {
			return errors.Wrap(err, "clear cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zctx.From(ctx).Info("Order created",
		zap.String("order_number", o.Number),
		zap.Int("lines", len(o.Lines)),
		zap.String("total", o.Total.StringFixed(2)),
	)
	s.notify(ctx, notify.OrderCreated, o)
	return o, nil
}

func (s *Service) build(c *cart.Cart, req CreateRequest, billing Address) *Order {
	now := s.now()
	o := &Order{
		ID:              uuid.New(),
		Number:          s.number(),
		UserID:          req.UserID,
		Status:          StatusPending,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  billing,
		Note:            req.Note,
		Lines:           make([]Line, len(c.Lines)),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for i, cl := range c.Lines {
		o.Lines[i] = Line{
			ID:          uuid.New(),
			OrderID:     o.ID,
			ProductID:   cl.ProductID,
			VariantID:   cl.VariantID,
			ProductName: cl.ProductName,
			SKU:         cl.SKU(),
			UnitPrice:   cl.UnitPrice,
			Quantity:    cl.Quantity,
			Total:       cl.Total(),
		}
	}

	o.Subtotal = c.Subtotal().Round(2)
	o.Tax, o.Shipping, o.Total = s.pricing.Totals(o.Subtotal)
	return o
}

// Get returns an order owned by userID.
func (s *Service) Get(ctx context.Context, userID, orderID uuid.UUID) (*Order, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotFound
	}
	return o, nil
}

// ListByUser returns the user's orders, newest first.
func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// UpdateStatus moves an order to next if its lifecycle allows it.
func (s *Service) UpdateStatus(ctx context.Context, orderID uuid.UUID, next Status) (*Order, error) {
	if !next.Valid() {
		return nil, ErrInvalidStatus
	}

	var prev Status
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.LockByID(ctx, orderID)
		if err != nil {
			return err
		}
		prev = o.Status
		if !o.Status.CanTransitionTo(next) {
			return ErrInvalidTransition
		}
		return s.orders.UpdateStatus(ctx, orderID, next)
	})
	if err != nil {
		return nil, err
	}

	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "reload order")
	}
	zctx.From(ctx).Info("Order status changed",
		zap.String("order_number", o.Number),
		zap.String("from", string(prev)),
		zap.String("to", string(next)),
	)
	s.notify(ctx, notify.OrderStatusChanged, o)
	return o, nil
}

func (s *Service) notify(ctx context.Context, t notify.Type, o *Order) {
	s.notifier.Notify(ctx, notify.Event{
		Type:        t,
		UserID:      o.UserID,
		OrderID:     o.ID,
		OrderNumber: o.Number,
		Status:      string(o.Status),
		Total:       o.Total,
		OccurredAt:  s.now(),
	})
}
