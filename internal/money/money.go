package money

import "github.com/shopspring/decimal"

// Money is a decimal monetary amount. All pricing arithmetic runs at full
// precision; RoundCurrency is applied exactly once, when a figure is
// materialised for storage or an API response.
type Money = decimal.Decimal

// Zero is the zero monetary amount.
var Zero = decimal.Zero

// FromFloat converts a float into a Money value.
func FromFloat(v float64) Money {
	return decimal.NewFromFloat(v)
}

// FromInt converts an integer into a Money value.
func FromInt(v int64) Money {
	return decimal.NewFromInt(v)
}

// Parse converts a decimal string into a Money value.
func Parse(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// RoundCurrency rounds to the currency's minor unit (two decimal places,
// half away from zero).
func RoundCurrency(m Money) Money {
	return m.Round(2)
}

// ClampNonNegative floors a value at zero.
func ClampNonNegative(m Money) Money {
	if m.IsNegative() {
		return decimal.Zero
	}
	return m
}

// Min returns the smaller of two amounts.
func Min(a, b Money) Money {
	if a.LessThan(b) {
		return a
	}
	return b
}
