package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"timesheets/internal/core"
	"timesheets/internal/report"
)

// WriteCSV writes a header, one record per entry, a blank line and a total
// record.
func WriteCSV(w io.Writer, res report.Result) error {
	rows := Flatten(res)
	if len(rows) == 0 {
		return ErrEmpty
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(r.Record()); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	if err := cw.Write(nil); err != nil {
		return fmt.Errorf("write csv separator: %w", err)
	}
	if err := cw.Write([]string{"Total", "", "", "", "", core.FormatHours(res.Total)}); err != nil {
		return fmt.Errorf("write csv total: %w", err)
	}
	cw.Flush()
	return cw.Error()
}
