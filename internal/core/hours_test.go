package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseHours(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1.00", true},
		{"7.5", "7.50", true},
		{"7,25", "7.25", true},
		{"0", "0.00", true},
		{"1.005", "1.01", true}, // half-up rounding
		{" 2.50 ", "2.50", true},
		{"24", "24.00", true},
		{"24.01", "", false},
		{"-1", "", false},
		{"abc", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseHours(tc.in)
		if tc.ok {
			if err != nil || FormatHours(got) != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, FormatHours(got), err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestSumHoursIsExact(t *testing.T) {
	entries := make([]TimeEntry, 10)
	for i := range entries {
		entries[i].Hours = decimal.RequireFromString("0.1")
	}
	if got := SumHours(entries); !got.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected exactly 1, got %s", got)
	}
}
