package coupon

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func nullDec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(dec(s))
}

func intPtr(v int) *int {
	return &v
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name         string
		coupon       Coupon
		total        string
		wantDiscount string
		wantFinal    string
	}{
		{
			name:         "percentage",
			coupon:       Coupon{Type: DiscountPercentage, Value: dec("10")},
			total:        "339.97",
			wantDiscount: "34.00",
			wantFinal:    "305.97",
		},
		{
			name:         "percentage capped by max discount",
			coupon:       Coupon{Type: DiscountPercentage, Value: dec("50"), MaxDiscount: nullDec("25")},
			total:        "200",
			wantDiscount: "25.00",
			wantFinal:    "175.00",
		},
		{
			name:         "fixed clamped to total",
			coupon:       Coupon{Type: DiscountFixed, Value: dec("1000")},
			total:        "50",
			wantDiscount: "50.00",
			wantFinal:    "0.00",
		},
		{
			name:         "fixed below total",
			coupon:       Coupon{Type: DiscountFixed, Value: dec("15.50")},
			total:        "100",
			wantDiscount: "15.50",
			wantFinal:    "84.50",
		},
		{
			name:         "fixed capped by max discount",
			coupon:       Coupon{Type: DiscountFixed, Value: dec("30"), MaxDiscount: nullDec("20")},
			total:        "100",
			wantDiscount: "20.00",
			wantFinal:    "80.00",
		},
		{
			name:         "full percentage",
			coupon:       Coupon{Type: DiscountPercentage, Value: dec("100")},
			total:        "417.96",
			wantDiscount: "417.96",
			wantFinal:    "0.00",
		},
		{
			name:         "zero total",
			coupon:       Coupon{Type: DiscountFixed, Value: dec("5")},
			total:        "0",
			wantDiscount: "0.00",
			wantFinal:    "0.00",
		},
		{
			name:         "sub-cent total never over-discounted",
			coupon:       Coupon{Type: DiscountPercentage, Value: dec("100")},
			total:        "0.005",
			wantDiscount: "0.005",
			wantFinal:    "0.00",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total := dec(tt.total)
			discount := Calculate(&tt.coupon, total)

			assert.True(t, dec(tt.wantDiscount).Equal(discount), "discount = %s", discount)
			assert.Equal(t, tt.wantFinal, FinalTotal(total, discount).StringFixed(2))

			assert.False(t, discount.IsNegative())
			assert.True(t, discount.LessThanOrEqual(total))
			if tt.coupon.MaxDiscount.Valid {
				assert.True(t, discount.LessThanOrEqual(tt.coupon.MaxDiscount.Decimal))
			}
		})
	}
}

func TestCheck(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	valid := func() Coupon {
		return Coupon{
			Type:     DiscountPercentage,
			Value:    dec("10"),
			Active:   true,
			StartsAt: now.Add(-24 * time.Hour),
			EndsAt:   now.Add(24 * time.Hour),
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Coupon)
		total  string
		want   error
	}{
		{name: "valid", mutate: func(*Coupon) {}, total: "100"},
		{name: "inactive", mutate: func(c *Coupon) { c.Active = false }, total: "100", want: ErrInactive},
		{name: "expired", mutate: func(c *Coupon) { c.EndsAt = now.Add(-time.Hour) }, total: "100", want: ErrOutsideWindow},
		{name: "not started", mutate: func(c *Coupon) { c.StartsAt = now.Add(time.Hour) }, total: "100", want: ErrOutsideWindow},
		{name: "window bounds inclusive", mutate: func(c *Coupon) { c.StartsAt, c.EndsAt = now, now }, total: "100"},
		{name: "below minimum", mutate: func(c *Coupon) { c.MinPurchase = nullDec("100.01") }, total: "100", want: ErrBelowMinimum},
		{name: "at minimum", mutate: func(c *Coupon) { c.MinPurchase = nullDec("100") }, total: "100"},
		{name: "exhausted", mutate: func(c *Coupon) { c.UsageLimit, c.UsageCount = intPtr(3), 3 }, total: "100", want: ErrExhausted},
		{name: "under limit", mutate: func(c *Coupon) { c.UsageLimit, c.UsageCount = intPtr(3), 2 }, total: "100"},
		{
			name: "inactive wins over expired",
			mutate: func(c *Coupon) {
				c.Active = false
				c.EndsAt = now.Add(-time.Hour)
			},
			total: "100",
			want:  ErrInactive,
		},
		{
			name: "expired wins over minimum and limit",
			mutate: func(c *Coupon) {
				c.EndsAt = now.Add(-time.Hour)
				c.MinPurchase = nullDec("1000")
				c.UsageLimit = intPtr(0)
			},
			total: "100",
			want:  ErrOutsideWindow,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := Check(&c, dec(tt.total), now)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
