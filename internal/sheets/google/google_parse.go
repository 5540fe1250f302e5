package google

import (
	"fmt"
	"strconv"
	"strings"
)

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

// findTimesheet returns the 1-based sheet rows holding timesheetID in the
// first column, as a "first:last" pair. ok is false when absent.
func findTimesheet(values [][]interface{}, timesheetID string) (first, last int, ok bool) {
	for i, row := range values {
		cols := toStrings(row)
		if len(cols) == 0 || cols[0] != timesheetID {
			continue
		}
		if !ok {
			first, ok = i+1, true
		}
		last = i + 1
	}
	return first, last, ok
}
