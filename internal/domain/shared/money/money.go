// Package money holds the fixed-point helpers used for nightly prices,
// totals and refunds. Amounts never go through float64.
package money

import (
	"strings"

	"github.com/shopspring/decimal"

	"staybook/internal/domain/shared/apperr"
)

// Scale is the number of fractional digits kept on every persisted amount.
const Scale = 2

var (
	ErrInvalidAmount  = apperr.Validation("money: amount must be a decimal number")
	ErrNegativeAmount = apperr.Validation("money: amount cannot be negative")
)

var hundred = decimal.NewFromInt(100)

// Parse reads a decimal string such as "149.90" and rejects negatives.
func Parse(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	return Round(d), nil
}

// Must parses raw and panics on failure; useful in tests and fixtures.
func Must(raw string) decimal.Decimal {
	d, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return d
}

// Round rounds half away from zero to Scale digits.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// Percent returns percent% of amount, rounded.
func Percent(amount decimal.Decimal, percent int) decimal.Decimal {
	if percent <= 0 {
		return decimal.Zero
	}
	return Round(amount.Mul(decimal.NewFromInt(int64(percent))).Div(hundred))
}

// NonNegative clamps negative amounts to zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Sum adds the amounts and rounds the result.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return Round(total)
}

// String formats with exactly Scale fractional digits.
func String(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}
