package number

import (
	"github.com/shopspring/decimal"
)

// Decimal parse v, zero when malformed
func Decimal(v string) decimal.Decimal {
	d, _ := decimal.NewFromString(v)
	return d
}

// Ceil round up to precision digits
func Ceil(d decimal.Decimal, precision int32) decimal.Decimal {
	return d.Shift(precision).Ceil().Shift(-precision)
}

// Floor round down to precision digits
func Floor(d decimal.Decimal, precision int32) decimal.Decimal {
	return d.Shift(precision).Floor().Shift(-precision)
}

// Min smaller of a and b
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}

	return b
}

// Percent v * percent / 100
func Percent(v, percent decimal.Decimal) decimal.Decimal {
	return v.Mul(percent).Shift(-2)
}

// Positive v > 0
func Positive(v decimal.Decimal) bool {
	return v.GreaterThan(decimal.Zero)
}
