// Package dashboard renders account state for the terminal.
package dashboard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatInt formats an integer with comma separators.
func FormatInt(n int64) string {
	s := strconv.FormatInt(n, 10)
	sign := ""
	if n < 0 {
		sign, s = "-", s[1:]
	}
	if len(s) <= 3 {
		return sign + s
	}
	var b strings.Builder
	b.WriteString(sign)
	start := len(s) % 3
	if start > 0 {
		b.WriteString(s[:start])
	}
	for i := start; i < len(s); i += 3 {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatShares formats a share quantity, or "-" for zero. Fractional
// quantities keep their decimals.
func FormatShares(q decimal.Decimal) string {
	if q.IsZero() {
		return "-"
	}
	if q.IsInteger() {
		return FormatInt(q.IntPart())
	}
	return q.String()
}

// FormatPrice formats a price exactly as reported, or "-" for zero.
func FormatPrice(p decimal.Decimal) string {
	if p.IsZero() {
		return "-"
	}
	return p.String()
}

// FormatNotional formats a dollar amount with B/M/K suffixes.
func FormatNotional(d decimal.Decimal) string {
	v := d.InexactFloat64()
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%.1fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.1fK", v/1e3)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}
