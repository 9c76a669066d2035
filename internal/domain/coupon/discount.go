package coupon

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Check runs the eligibility rules in order and returns the first failure:
// inactive, outside the validity window, below the minimum purchase, usage
// limit reached.
func Check(c *Coupon, total decimal.Decimal, now time.Time) error {
	if !c.Active {
		return ErrInactive
	}
	if now.Before(c.StartsAt) || now.After(c.EndsAt) {
		return ErrOutsideWindow
	}
	if c.MinPurchase.Valid && total.LessThan(c.MinPurchase.Decimal) {
		return ErrBelowMinimum
	}
	if c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit {
		return ErrExhausted
	}
	return nil
}

// Calculate returns the discount c grants on total, rounded to cents. The
// result is never negative and never exceeds total or MaxDiscount.
func Calculate(c *Coupon, total decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch c.Type {
	case DiscountPercentage:
		amount = total.Mul(c.Value).Div(hundred)
	case DiscountFixed:
		amount = decimal.Min(c.Value, total)
	}
	if c.MaxDiscount.Valid {
		amount = decimal.Min(amount, c.MaxDiscount.Decimal)
	}
	amount = floorAtZero(amount).Round(2)
	// Rounding up a percentage of a sub-cent total can overshoot.
	return decimal.Min(amount, floorAtZero(total))
}

// FinalTotal returns total minus discount, floored at zero.
func FinalTotal(total, discount decimal.Decimal) decimal.Decimal {
	return floorAtZero(total.Sub(discount)).Round(2)
}

func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
