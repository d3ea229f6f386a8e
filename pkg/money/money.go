// Package money renders integer cent amounts for humans.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FromCents converts an amount in cents to a decimal dollar value.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// FormatCents renders cents as dollars with thousands separators, e.g. $1,234.50.
func FormatCents(cents int64) string {
	return formatDollars(FromCents(cents).StringFixed(2))
}

// FormatWholeCents renders cents rounded to whole dollars, e.g. $1,235.
func FormatWholeCents(cents int64) string {
	return formatDollars(FromCents(cents).Round(0).StringFixed(0))
}

func formatDollars(fixed string) string {
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}
	whole, frac, hasFrac := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := sign + "$" + b.String()
	if hasFrac {
		out += "." + frac
	}
	return out
}
