package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyFromDecimal converts a currency amount into minor units, rounding
// half away from zero at the cent.
func MoneyFromDecimal(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// ParseMoney parses a decimal amount such as "19.90" into minor units.
func ParseMoney(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("parse amount %q: negative", s)
	}
	return MoneyFromDecimal(d), nil
}

// MoneyToDecimal converts minor units back to a currency amount.
func MoneyToDecimal(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// FormatMoney renders minor units with two decimals, e.g. 3980 -> "39.80".
func FormatMoney(minor int64) string {
	return MoneyToDecimal(minor).StringFixed(2)
}
