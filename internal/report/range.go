package report

import (
	"time"

	"timesheets/internal/core"
)

const (
	TimeframeWeek   Timeframe = "week"
	TimeframeMonth  Timeframe = "month"
	TimeframeYear   Timeframe = "year"
	TimeframeAll    Timeframe = "all"
	TimeframeCustom Timeframe = "custom"
)

// AllTimeStart is the floor used for the "all" timeframe.
const AllTimeStart = "2000-01-01"

type Timeframe string

// ParseTimeframe maps s to a known timeframe, defaulting to month.
func ParseTimeframe(s string) Timeframe {
	switch tf := Timeframe(s); tf {
	case TimeframeWeek, TimeframeMonth, TimeframeYear, TimeframeAll, TimeframeCustom:
		return tf
	}
	return TimeframeMonth
}

// DateRange is an inclusive [Start, End] interval of YYYY-MM-DD strings.
// An invalid range means "no date filtering".
type DateRange struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
	Valid bool   `json:"valid"`
}

// ResolveRange turns a timeframe selector into a concrete interval relative
// to now. Custom bounds are used verbatim; a custom range with a missing
// bound is returned invalid rather than as an error.
func ResolveRange(tf Timeframe, customStart, customEnd string, now time.Time) DateRange {
	today := core.DateOf(now)
	y, m, _ := today.Date()

	switch ParseTimeframe(string(tf)) {
	case TimeframeWeek:
		start := today.WeekStart()
		return DateRange{Start: start.String(), End: start.AddDate(0, 0, 6).Format(time.DateOnly), Valid: true}
	case TimeframeYear:
		return DateRange{
			Start: core.NewDate(y, 1, 1).String(),
			End:   core.NewDate(y, 12, 31).String(),
			Valid: true,
		}
	case TimeframeAll:
		return DateRange{Start: AllTimeStart, End: today.String(), Valid: true}
	case TimeframeCustom:
		if customStart == "" || customEnd == "" {
			return DateRange{}
		}
		return DateRange{Start: customStart, End: customEnd, Valid: true}
	default:
		first := core.NewDate(y, int(m), 1)
		return DateRange{Start: first.String(), End: first.AddDate(0, 1, -1).Format(time.DateOnly), Valid: true}
	}
}

// Contains reports whether d falls inside the range. Invalid ranges contain
// every date.
func (r DateRange) Contains(d core.Date) bool {
	if !r.Valid {
		return true
	}
	s := d.String()
	return s >= r.Start && s <= r.End
}

// Label renders the range for headings, e.g. "2024-01-01 to 2024-01-31".
func (r DateRange) Label() string {
	if !r.Valid {
		return "All time"
	}
	return r.Start + " to " + r.End
}
