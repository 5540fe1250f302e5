package sheets

import (
	"testing"
	"time"

	"timesheets/internal/core"

	"github.com/shopspring/decimal"
)

func TestApprovedTimesheet_Rows(t *testing.T) {
	at := time.Date(2024, 3, 9, 10, 30, 0, 0, time.UTC)
	a := ApprovedTimesheet{
		Timesheet: core.Timesheet{ID: "ts1", WeekStart: core.NewDate(2024, 3, 4), ReviewedAt: &at},
		User:      core.User{ID: "u1", Name: "Ada"},
		Entries: []core.TimeEntry{
			{
				Date:       core.NewDate(2024, 3, 5),
				Hours:      decimal.RequireFromString("1.255"),
				Client:     &core.Ref{ID: "c1", Name: "Acme"},
				Task:       &core.Ref{ID: "t1"},
				IsBillable: true,
			},
		},
	}

	rows := a.Rows()
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	if len(row) != len(Header) {
		t.Fatalf("row has %d columns, header has %d", len(row), len(Header))
	}
	want := []interface{}{"ts1", "2024-03-04", "2024-03-05", "Ada", "Acme", "", "", 1.26, "Yes", "2024-03-09 10:30:00"}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("column %s: got %v, want %v", Header[i], row[i], want[i])
		}
	}
}

func TestApprovedTimesheet_RowsNotReviewed(t *testing.T) {
	a := ApprovedTimesheet{Entries: []core.TimeEntry{{Date: core.NewDate(2024, 1, 1)}}}
	rows := a.Rows()
	if rows[0][8] != "No" || rows[0][9] != "" {
		t.Errorf("unexpected billable/approved columns: %v", rows[0])
	}
}
