package memory

import (
	"context"
	"testing"

	"timesheets/internal/core"
	ports "timesheets/internal/sheets"

	"github.com/shopspring/decimal"
)

func TestWriter_AppendApprovedIsIdempotent(t *testing.T) {
	w := New()
	a := ports.ApprovedTimesheet{
		Timesheet: core.Timesheet{ID: "ts1", WeekStart: core.NewDate(2024, 3, 4)},
		User:      core.User{ID: "u1", Name: "Ada"},
		Entries: []core.TimeEntry{
			{ID: "e1", Date: core.NewDate(2024, 3, 4), Hours: decimal.RequireFromString("2.5")},
			{ID: "e2", Date: core.NewDate(2024, 3, 5), Hours: decimal.RequireFromString("1")},
		},
	}

	ref1, err := w.AppendApproved(context.Background(), a)
	if err != nil {
		t.Fatalf("AppendApproved: %v", err)
	}
	ref2, err := w.AppendApproved(context.Background(), a)
	if err != nil {
		t.Fatalf("AppendApproved again: %v", err)
	}
	if ref1 != ref2 {
		t.Errorf("refs differ: %q vs %q", ref1, ref2)
	}
	if got := len(w.Rows()); got != 2 {
		t.Errorf("expected 2 rows, got %d", got)
	}
}

func TestWriter_RejectsMissingID(t *testing.T) {
	if _, err := New().AppendApproved(context.Background(), ports.ApprovedTimesheet{}); err == nil {
		t.Fatal("expected error for timesheet without id")
	}
}
