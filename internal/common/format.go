package common

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatMoney formats an amount as dollars with comma separators, e.g. "$1,234.56".
func FormatMoney(d decimal.Decimal) string {
	d = d.Round(2)
	negative := d.IsNegative()
	s := d.Abs().StringFixed(2)

	whole, cents, _ := strings.Cut(s, ".")
	if len(whole) > 3 {
		var parts []string
		for len(whole) > 3 {
			parts = append([]string{whole[len(whole)-3:]}, parts...)
			whole = whole[:len(whole)-3]
		}
		parts = append([]string{whole}, parts...)
		whole = strings.Join(parts, ",")
	}

	if negative {
		return "-$" + whole + "." + cents
	}
	return "$" + whole + "." + cents
}
