package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MaxEntryHours caps a single time entry.
var MaxEntryHours = decimal.NewFromInt(24)

// ParseHours converts a decimal string to hours.
//
// Both dot (7.5) and comma (7,5) separators are accepted. The value is
// rounded half-up to two decimals. Negative values and values above
// MaxEntryHours are rejected.
func ParseHours(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidHours
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidHours
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidHours
	}
	d = d.Round(2)
	if d.GreaterThan(MaxEntryHours) {
		return decimal.Zero, ErrInvalidHours
	}
	return d, nil
}

// FormatHours renders hours with exactly two decimals.
func FormatHours(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// SumHours adds up the hours of the given entries.
func SumHours(entries []TimeEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Hours)
	}
	return total
}
