// internal/pkg/money/money.go
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of minor units per major unit. All stored amounts are
// int64 minor units; decimals only appear at the HTTP boundary.
const Scale = 100

var scaleDec = decimal.NewFromInt(Scale)

// ToMinorUnits converts a decimal amount to integer minor units,
// rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(scaleDec).Round(0).IntPart()
}

// FromMinorUnits converts integer minor units back to a decimal amount.
// It is the exact inverse of ToMinorUnits for any value ToMinorUnits produces.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(scaleDec)
}

// ParseAmount parses a decimal string from a request payload into minor units.
func ParseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return ToMinorUnits(d), nil
}

// Abs normalizes an amount to a positive value.
func Abs(minor int64) int64 {
	if minor < 0 {
		return -minor
	}
	return minor
}

// Negate normalizes an amount to a negative value.
func Negate(minor int64) int64 {
	return -Abs(minor)
}
