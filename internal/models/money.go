package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RoundCents rounds an amount to two decimal places.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ParseAmount parses a plain decimal string ("1234.56") into a cent-rounded amount.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return RoundCents(d), nil
}

// FormatAmount renders an amount with exactly two decimals, no symbol or grouping.
// This is the persisted representation.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
