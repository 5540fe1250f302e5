package http

import (
	"strings"

	"timesheets/internal/core"
	"timesheets/internal/report"

	"github.com/shopspring/decimal"
)

// sanitizeInput removes control characters (except tab, newline and
// carriage return) and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// formatHours renders hours for templates, e.g. "7.50".
func formatHours(d decimal.Decimal) string {
	return core.FormatHours(d)
}

// refName renders a reference for templates.
func refName(ref *core.Ref, fallback string) string {
	if ref == nil || ref.Name == "" {
		return fallback
	}
	return ref.Name
}

// periodLabel renders the report period with long date labels, e.g.
// "Monday, Mar 4, 2024 to Sunday, Mar 10, 2024".
func periodLabel(r report.DateRange) string {
	if !r.Valid {
		return r.Label()
	}
	return report.DateLabel(r.Start) + " to " + report.DateLabel(r.End)
}
