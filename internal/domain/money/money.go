// Package money bounds the decimal amounts accepted from callers to what the
// NUMERIC(12,2) columns can hold.
package money

import "github.com/shopspring/decimal"

const (
	// Scale is the number of fraction digits amounts are stored with.
	Scale = 2
	// maxFraction is the most fraction digits accepted before rounding.
	maxFraction = 8
	// maxExponent keeps the coefficient within the integer digits of the
	// column.
	maxExponent = 10
)

// Limit is the smallest magnitude that no longer fits an amount column.
var Limit = decimal.New(1, maxExponent)

// Fits reports whether d, once rounded to Scale, can be stored and
// computed with. The exponent is checked first so absurd inputs such as
// 1e30000000 are rejected without expanding them.
func Fits(d decimal.Decimal) bool {
	if exp := d.Exponent(); exp > maxExponent || exp < -maxFraction {
		return false
	}
	return d.Round(Scale).Abs().LessThan(Limit)
}
