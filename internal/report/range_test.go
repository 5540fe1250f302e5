package report

import (
	"testing"
	"time"

	"timesheets/internal/core"
)

func TestResolveRange(t *testing.T) {
	// Wednesday
	now := time.Date(2024, 2, 14, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		tf         Timeframe
		start, end string
		want       DateRange
	}{
		{"week starts monday", TimeframeWeek, "", "", DateRange{Start: "2024-02-12", End: "2024-02-18", Valid: true}},
		{"month in leap year", TimeframeMonth, "", "", DateRange{Start: "2024-02-01", End: "2024-02-29", Valid: true}},
		{"year", TimeframeYear, "", "", DateRange{Start: "2024-01-01", End: "2024-12-31", Valid: true}},
		{"all time", TimeframeAll, "", "", DateRange{Start: AllTimeStart, End: "2024-02-14", Valid: true}},
		{"custom verbatim", TimeframeCustom, "2023-05-01", "2023-05-09", DateRange{Start: "2023-05-01", End: "2023-05-09", Valid: true}},
		{"custom missing end", TimeframeCustom, "2023-05-01", "", DateRange{}},
		{"custom missing start", TimeframeCustom, "", "2023-05-09", DateRange{}},
		{"unknown defaults to month", Timeframe("fortnight"), "", "", DateRange{Start: "2024-02-01", End: "2024-02-29", Valid: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveRange(tt.tf, tt.start, tt.end, now)
			if got != tt.want {
				t.Errorf("ResolveRange() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResolveRange_WeekOnSunday(t *testing.T) {
	now := time.Date(2024, 2, 18, 23, 0, 0, 0, time.UTC)
	got := ResolveRange(TimeframeWeek, "", "", now)
	if got.Start != "2024-02-12" || got.End != "2024-02-18" {
		t.Errorf("week of Sunday = %+v, want 2024-02-12..2024-02-18", got)
	}
}

func TestResolveRange_AllEndsToday(t *testing.T) {
	now := time.Now()
	got := ResolveRange(TimeframeAll, "", "", now)
	if got.Start != "2000-01-01" {
		t.Errorf("Start = %s, want 2000-01-01", got.Start)
	}
	if want := now.Format(time.DateOnly); got.End != want {
		t.Errorf("End = %s, want %s", got.End, want)
	}
}

func TestDateRange_Contains(t *testing.T) {
	r := DateRange{Start: "2024-01-01", End: "2024-01-31", Valid: true}
	tests := []struct {
		date core.Date
		want bool
	}{
		{core.NewDate(2024, 1, 1), true},
		{core.NewDate(2024, 1, 31), true},
		{core.NewDate(2023, 12, 31), false},
		{core.NewDate(2024, 2, 1), false},
	}
	for _, tt := range tests {
		if got := r.Contains(tt.date); got != tt.want {
			t.Errorf("Contains(%s) = %v, want %v", tt.date, got, tt.want)
		}
	}

	if !(DateRange{}).Contains(core.NewDate(1999, 1, 1)) {
		t.Error("invalid range should contain every date")
	}
}
