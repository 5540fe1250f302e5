package export

import (
	"fmt"
	"io"

	"timesheets/internal/report"

	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Report"

var xlsxWidths = []float64{12, 24, 24, 24, 20, 10}

// WriteXLSX writes a single-sheet workbook with the flat rows and a total
// row. Hours are stored as numbers.
func WriteXLSX(w io.Writer, res report.Result) error {
	rows := Flatten(res)
	if len(rows) == 0 {
		return ErrEmpty
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []interface{}{r.Date, r.Client, r.Project, r.Task, r.Person, r.Hours.Round(2).InexactFloat64()}
		if err := f.SetSheetRow(xlsxSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	totalRow := len(rows) + 2
	cell, _ := excelize.CoordinatesToCellName(1, totalRow)
	total := []interface{}{"Total", "", "", "", "", res.Total.Round(2).InexactFloat64()}
	if err := f.SetSheetRow(xlsxSheet, cell, &total); err != nil {
		return fmt.Errorf("write total: %w", err)
	}

	for i, width := range xlsxWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(xlsxSheet, col, col, width); err != nil {
			return fmt.Errorf("set width of %s: %w", col, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	hours, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return fmt.Errorf("create number style: %w", err)
	}
	boldHours, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, NumFmt: 2})
	if err != nil {
		return fmt.Errorf("create number style: %w", err)
	}

	lastHours, _ := excelize.CoordinatesToCellName(6, totalRow-1)
	totalLabelEnd, _ := excelize.CoordinatesToCellName(5, totalRow)
	totalHours, _ := excelize.CoordinatesToCellName(6, totalRow)
	for _, s := range []struct {
		from, to string
		style    int
	}{
		{"A1", "F1", bold},
		{"F2", lastHours, hours},
		{cell, totalLabelEnd, bold},
		{totalHours, totalHours, boldHours},
	} {
		if err := f.SetCellStyle(xlsxSheet, s.from, s.to, s.style); err != nil {
			return fmt.Errorf("style %s:%s: %w", s.from, s.to, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
