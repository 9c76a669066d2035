package coupon

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/uow"
	"github.com/xenking/storefront/internal/notify"
)

var testNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

// memStore holds coupons and orders. Its transaction serializes callers and
// rolls back on error.
type memStore struct {
	mu        sync.Mutex
	coupons   map[string]Coupon
	orders    map[uuid.UUID]order.Order
	createErr error
	applyErr  error
}

func newMemStore() *memStore {
	return &memStore{
		coupons: make(map[string]Coupon),
		orders:  make(map[uuid.UUID]order.Order),
	}
}

func (m *memStore) tx() uow.UnitOfWork {
	return uow.Func(func(ctx context.Context, fn func(ctx context.Context) error) error {
		m.mu.Lock()
		defer m.mu.Unlock()

		coupons := make(map[string]Coupon, len(m.coupons))
		for k, v := range m.coupons {
			coupons[k] = v
		}
		orders := make(map[uuid.UUID]order.Order, len(m.orders))
		for k, v := range m.orders {
			orders[k] = v
		}
		if err := fn(ctx); err != nil {
			m.coupons, m.orders = coupons, orders
			return err
		}
		return nil
	})
}

func (m *memStore) FindByCode(_ context.Context, code string) (*Coupon, error) {
	c, ok := m.coupons[code]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *memStore) LockByCode(ctx context.Context, code string) (*Coupon, error) {
	return m.FindByCode(ctx, code)
}

func (m *memStore) IncrementUsage(_ context.Context, id uuid.UUID) error {
	for code, c := range m.coupons {
		if c.ID != id {
			continue
		}
		if c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit {
			return ErrExhausted
		}
		c.UsageCount++
		m.coupons[code] = c
		return nil
	}
	return ErrNotFound
}

func (m *memStore) Create(_ context.Context, c *Coupon) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.coupons[c.Code]; ok {
		return ErrCodeTaken
	}
	m.coupons[c.Code] = *c
	return nil
}

func (m *memStore) List(_ context.Context) ([]Coupon, error) {
	out := make([]Coupon, 0, len(m.coupons))
	for _, c := range m.coupons {
		out = append(out, c)
	}
	return out, nil
}

func (m *memStore) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	for code, c := range m.coupons {
		if c.ID == id {
			c.Active = active
			m.coupons[code] = c
			return nil
		}
	}
	return ErrNotFound
}

func (m *memStore) FindByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return &o, nil
}

func (m *memStore) LockByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return m.FindByID(ctx, id)
}

func (m *memStore) ApplyDiscount(_ context.Context, id uuid.UUID, discount, total decimal.Decimal, couponID uuid.UUID) error {
	if m.applyErr != nil {
		return m.applyErr
	}
	o := m.orders[id]
	o.Discount, o.Total, o.CouponID = discount, total, &couponID
	m.orders[id] = o
	return nil
}

var (
	_ Repository = (*memStore)(nil)
	_ Orders     = (*memStore)(nil)
)

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Notify(_ context.Context, e notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (m *memStore) addCoupon(c Coupon) Coupon {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.StartsAt.IsZero() {
		c.StartsAt = testNow.Add(-24 * time.Hour)
	}
	if c.EndsAt.IsZero() {
		c.EndsAt = testNow.Add(24 * time.Hour)
	}
	c.Active = true
	m.coupons[c.Code] = c
	return c
}

func (m *memStore) addOrder(userID uuid.UUID, total string) order.Order {
	o := order.Order{
		ID:       uuid.New(),
		Number:   order.NewNumber(),
		UserID:   userID,
		Status:   order.StatusPending,
		Subtotal: dec(total),
		Total:    dec(total),
	}
	m.orders[o.ID] = o
	return o
}

func newTestService(m *memStore, n notify.Notifier) *Service {
	s := NewService(m.tx(), m, m, n)
	s.now = func() time.Time { return testNow }
	return s
}

func TestValidate(t *testing.T) {
	m := newMemStore()
	m.addCoupon(Coupon{Code: "SAVE10", Type: DiscountPercentage, Value: dec("10")})
	m.addCoupon(Coupon{Code: "BIG", Type: DiscountFixed, Value: dec("1000")})
	m.addCoupon(Coupon{Code: "OLD", Type: DiscountFixed, Value: dec("5"), EndsAt: testNow.Add(-time.Minute)})
	svc := newTestService(m, nil)
	ctx := context.Background()

	v, err := svc.Validate(ctx, "SAVE10", dec("339.97"))
	require.NoError(t, err)
	assert.Equal(t, "34.00", v.Discount.StringFixed(2))
	assert.Equal(t, "305.97", v.FinalTotal.StringFixed(2))
	assert.Equal(t, "SAVE10", v.Coupon.Code)

	v, err = svc.Validate(ctx, "BIG", dec("50"))
	require.NoError(t, err)
	assert.Equal(t, "50.00", v.Discount.StringFixed(2))
	assert.True(t, v.FinalTotal.IsZero())

	_, err = svc.Validate(ctx, "OLD", dec("50"))
	require.ErrorIs(t, err, ErrOutsideWindow)
	assert.Equal(t, apperr.InvalidState, apperr.KindOf(err))

	_, err = svc.Validate(ctx, "save10", dec("50"))
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Validate(ctx, "SAVE10", dec("-1"))
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))

	for _, total := range []string{"1e30000000", "10000000000", "0.000000001"} {
		_, err = svc.Validate(ctx, "SAVE10", dec(total))
		require.ErrorIs(t, err, ErrTotalOutOfRange, total)
	}

	// Validation is read-only.
	assert.Zero(t, m.coupons["SAVE10"].UsageCount)
}

func TestApplyToOrder(t *testing.T) {
	m := newMemStore()
	c := m.addCoupon(Coupon{Code: "SAVE10", Type: DiscountPercentage, Value: dec("10")})
	userID := uuid.New()
	o := m.addOrder(userID, "417.96")
	rec := &recorder{}
	svc := newTestService(m, rec)

	got, err := svc.ApplyToOrder(context.Background(), userID, o.ID, "SAVE10")
	require.NoError(t, err)

	assert.Equal(t, "41.80", got.Discount.StringFixed(2))
	assert.Equal(t, "376.16", got.Total.StringFixed(2))
	require.NotNil(t, got.CouponID)
	assert.Equal(t, c.ID, *got.CouponID)
	assert.Equal(t, 1, m.coupons["SAVE10"].UsageCount)

	require.Len(t, rec.events, 1)
	assert.Equal(t, notify.CouponApplied, rec.events[0].Type)
	assert.Equal(t, "SAVE10", rec.events[0].CouponCode)
}

func TestApplyToOrder_SecondCouponConflicts(t *testing.T) {
	m := newMemStore()
	m.addCoupon(Coupon{Code: "SAVE10", Type: DiscountPercentage, Value: dec("10")})
	m.addCoupon(Coupon{Code: "FIVE", Type: DiscountFixed, Value: dec("5")})
	userID := uuid.New()
	o := m.addOrder(userID, "100")
	svc := newTestService(m, nil)
	ctx := context.Background()

	first, err := svc.ApplyToOrder(ctx, userID, o.ID, "SAVE10")
	require.NoError(t, err)

	for _, code := range []string{"FIVE", "SAVE10"} {
		_, err = svc.ApplyToOrder(ctx, userID, o.ID, code)
		require.ErrorIs(t, err, ErrAlreadyApplied)
		assert.Equal(t, apperr.Conflict, apperr.KindOf(err))
	}

	after := m.orders[o.ID]
	assert.True(t, first.Discount.Equal(after.Discount))
	assert.True(t, first.Total.Equal(after.Total))
	assert.Zero(t, m.coupons["FIVE"].UsageCount)
	assert.Equal(t, 1, m.coupons["SAVE10"].UsageCount)
}

func TestApplyToOrder_Rejects(t *testing.T) {
	owner := uuid.New()

	tests := []struct {
		name    string
		setup   func(m *memStore) (userID, orderID uuid.UUID)
		code    string
		want    error
		wantKnd apperr.Kind
	}{
		{
			name: "unknown order",
			setup: func(m *memStore) (uuid.UUID, uuid.UUID) {
				return owner, uuid.New()
			},
			code: "SAVE10", want: order.ErrNotFound, wantKnd: apperr.NotFound,
		},
		{
			name: "foreign order",
			setup: func(m *memStore) (uuid.UUID, uuid.UUID) {
				return uuid.New(), m.addOrder(owner, "100").ID
			},
			code: "SAVE10", want: order.ErrNotFound, wantKnd: apperr.NotFound,
		},
		{
			name: "unknown coupon",
			setup: func(m *memStore) (uuid.UUID, uuid.UUID) {
				return owner, m.addOrder(owner, "100").ID
			},
			code: "NOPE", want: ErrNotFound, wantKnd: apperr.NotFound,
		},
		{
			name: "order not pending",
			setup: func(m *memStore) (uuid.UUID, uuid.UUID) {
				o := m.addOrder(owner, "100")
				o.Status = order.StatusShipped
				m.orders[o.ID] = o
				return owner, o.ID
			},
			code: "SAVE10", want: ErrOrderNotPending, wantKnd: apperr.InvalidState,
		},
		{
			name: "below minimum",
			setup: func(m *memStore) (uuid.UUID, uuid.UUID) {
				return owner, m.addOrder(owner, "20").ID
			},
			code: "MIN50", want: ErrBelowMinimum, wantKnd: apperr.InvalidState,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMemStore()
			m.addCoupon(Coupon{Code: "SAVE10", Type: DiscountPercentage, Value: dec("10")})
			m.addCoupon(Coupon{Code: "MIN50", Type: DiscountFixed, Value: dec("5"), MinPurchase: nullDec("50")})
			userID, orderID := tt.setup(m)
			svc := newTestService(m, nil)

			_, err := svc.ApplyToOrder(context.Background(), userID, orderID, tt.code)
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.wantKnd, apperr.KindOf(err))
			for _, c := range m.coupons {
				assert.Zero(t, c.UsageCount, c.Code)
			}
		})
	}
}

func TestApplyToOrder_RollsBackUsage(t *testing.T) {
	m := newMemStore()
	m.addCoupon(Coupon{Code: "SAVE10", Type: DiscountPercentage, Value: dec("10")})
	userID := uuid.New()
	o := m.addOrder(userID, "100")
	m.applyErr = errors.New("deadlock detected")
	svc := newTestService(m, nil)

	_, err := svc.ApplyToOrder(context.Background(), userID, o.ID, "SAVE10")
	require.Error(t, err)
	assert.Equal(t, apperr.Internal, apperr.KindOf(err))

	assert.Zero(t, m.coupons["SAVE10"].UsageCount)
	assert.Nil(t, m.orders[o.ID].CouponID)
	assert.Equal(t, "100.00", m.orders[o.ID].Total.StringFixed(2))
}

func TestApplyToOrder_ConcurrentUsageLimit(t *testing.T) {
	m := newMemStore()
	m.addCoupon(Coupon{Code: "ONCE", Type: DiscountFixed, Value: dec("10"), UsageLimit: intPtr(1)})

	const n = 16
	type target struct{ userID, orderID uuid.UUID }
	targets := make([]target, n)
	for i := range targets {
		userID := uuid.New()
		targets[i] = target{userID: userID, orderID: m.addOrder(userID, "100").ID}
	}
	svc := newTestService(m, nil)

	var (
		mu        sync.Mutex
		successes int
		exhausted int
	)
	var g errgroup.Group
	for _, tg := range targets {
		g.Go(func() error {
			_, err := svc.ApplyToOrder(context.Background(), tg.userID, tg.orderID, "ONCE")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrExhausted):
				exhausted++
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, exhausted)
	assert.Equal(t, 1, m.coupons["ONCE"].UsageCount)

	discounted := 0
	for _, o := range m.orders {
		if o.CouponID != nil {
			discounted++
		}
	}
	assert.Equal(t, 1, discounted)
}

func TestCreate(t *testing.T) {
	m := newMemStore()
	svc := newTestService(m, nil)
	ctx := context.Background()

	in := CreateInput{
		Code:        " WELCOME ",
		Description: "Welcome discount",
		Type:        DiscountPercentage,
		Value:       dec("14.995"),
		MaxDiscount: nullDec("20.005"),
		UsageLimit:  intPtr(100),
		StartsAt:    testNow,
		EndsAt:      testNow.AddDate(0, 1, 0),
	}
	c, err := svc.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "WELCOME", c.Code)
	assert.True(t, c.Active)
	assert.Equal(t, "20.01", c.MaxDiscount.Decimal.StringFixed(2))
	assert.True(t, c.Value.Equal(dec("15")), c.Value.String())

	_, err = svc.Create(ctx, in)
	require.ErrorIs(t, err, ErrCodeTaken)
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCreate_Invalid(t *testing.T) {
	base := CreateInput{
		Code:        "X",
		Description: "x",
		Type:        DiscountFixed,
		Value:       dec("5"),
		StartsAt:    testNow,
		EndsAt:      testNow.Add(time.Hour),
	}
	tests := map[string]func(in *CreateInput){
		"empty code":             func(in *CreateInput) { in.Code = " " },
		"empty description":      func(in *CreateInput) { in.Description = "" },
		"unknown type":           func(in *CreateInput) { in.Type = "BOGO" },
		"zero value":             func(in *CreateInput) { in.Value = decimal.Zero },
		"percentage over 100":    func(in *CreateInput) { in.Type, in.Value = DiscountPercentage, dec("100.01") },
		"zero minimum":           func(in *CreateInput) { in.MinPurchase = nullDec("0") },
		"negative max":           func(in *CreateInput) { in.MaxDiscount = nullDec("-1") },
		"zero usage limit":       func(in *CreateInput) { in.UsageLimit = intPtr(0) },
		"ends before start":      func(in *CreateInput) { in.EndsAt = in.StartsAt },
		"value rounds to zero":   func(in *CreateInput) { in.Value = dec("0.001") },
		"minimum rounds to zero": func(in *CreateInput) { in.MinPurchase = nullDec("0.004") },
		"value too large":        func(in *CreateInput) { in.Value = dec("12345678901") },
		"huge exponent":          func(in *CreateInput) { in.Value = dec("1e30000000") },
		"max too large":          func(in *CreateInput) { in.MaxDiscount = nullDec("1e12") },
	}
	svc := newTestService(newMemStore(), nil)
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			in := base
			mutate(&in)
			_, err := svc.Create(context.Background(), in)
			require.Error(t, err)
			assert.Equal(t, apperr.Validation, apperr.KindOf(err))
		})
	}
}

func TestDeactivate(t *testing.T) {
	m := newMemStore()
	c := m.addCoupon(Coupon{Code: "SAVE10", Type: DiscountPercentage, Value: dec("10")})
	svc := newTestService(m, nil)
	ctx := context.Background()

	require.NoError(t, svc.Deactivate(ctx, c.ID))
	_, err := svc.Validate(ctx, "SAVE10", dec("100"))
	require.ErrorIs(t, err, ErrInactive)
}
