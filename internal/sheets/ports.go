package sheets

import (
	"context"

	"timesheets/internal/core"
)

// Ports for outbound adapters.
type (
	// ApprovedTimeWriter records the entries of an approved timesheet in an
	// external spreadsheet.
	ApprovedTimeWriter interface {
		// AppendApproved writes one row per entry. Writing a timesheet that
		// was already written is a no-op returning the existing reference.
		AppendApproved(ctx context.Context, sheet ApprovedTimesheet) (rowRef string, err error)
	}
)

// ApprovedTimesheet is everything a sink needs to record an approval.
type ApprovedTimesheet struct {
	Timesheet core.Timesheet
	User      core.User
	Entries   []core.TimeEntry
}

// Header of the approved-time sheet.
var Header = []string{"Timesheet", "Week start", "Date", "Person", "Client", "Project", "Task", "Hours", "Billable", "Approved at"}

// Rows lays out the approved entries, one row per entry.
func (a ApprovedTimesheet) Rows() [][]interface{} {
	approvedAt := ""
	if a.Timesheet.ReviewedAt != nil {
		approvedAt = a.Timesheet.ReviewedAt.UTC().Format("2006-01-02 15:04:05")
	}
	rows := make([][]interface{}, 0, len(a.Entries))
	for _, e := range a.Entries {
		billable := "No"
		if e.IsBillable {
			billable = "Yes"
		}
		rows = append(rows, []interface{}{
			a.Timesheet.ID,
			a.Timesheet.WeekStart.String(),
			e.Date.String(),
			a.User.Name,
			name(e.Client),
			name(e.Project),
			name(e.Task),
			e.Hours.Round(2).InexactFloat64(),
			billable,
			approvedAt,
		})
	}
	return rows
}

func name(ref *core.Ref) string {
	if ref == nil {
		return ""
	}
	return ref.Name
}
