// Package export renders a report result as CSV, an XLSX workbook, a PDF
// document or a printable HTML page.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"timesheets/internal/core"
	"timesheets/internal/report"

	"github.com/shopspring/decimal"
)

const (
	FormatCSV   Format = "csv"
	FormatXLSX  Format = "xlsx"
	FormatPDF   Format = "pdf"
	FormatPrint Format = "print"
)

// ErrEmpty is returned instead of producing an export with no rows.
var ErrEmpty = errors.New("nothing to export: the report has no entries")

// Columns of the flat exports.
var Columns = []string{"Date", "Client", "Project", "Task", "Person", "Hours"}

type Format string

// ParseFormat accepts the format names used in export URLs. "html" is an
// alias of print.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX, FormatPDF, FormatPrint:
		return f, nil
	case "html":
		return FormatPrint, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/html; charset=utf-8"
	}
}

// Ext is the file extension of the format.
func (f Format) Ext() string {
	if f == FormatPrint {
		return "html"
	}
	return string(f)
}

// Attachment reports whether the format is downloaded rather than shown.
func (f Format) Attachment() bool {
	return f != FormatPrint
}

// Filename names an export of the given range.
func Filename(r report.DateRange, f Format) string {
	if !r.Valid {
		return "time-report-all-time." + f.Ext()
	}
	return fmt.Sprintf("time-report-%s-to-%s.%s", r.Start, r.End, f.Ext())
}

// Row is one entry of a flattened report.
type Row struct {
	Date    string
	Client  string
	Project string
	Task    string
	Person  string
	Hours   decimal.Decimal
	Notes   string
}

// Record renders the row as CSV/spreadsheet fields.
func (r Row) Record() []string {
	return []string{r.Date, r.Client, r.Project, r.Task, r.Person, core.FormatHours(r.Hours)}
}

// Flatten lists every entry of res in group order.
func Flatten(res report.Result) []Row {
	var rows []Row
	for _, g := range res.Groups {
		for _, e := range g.Entries {
			rows = append(rows, rowOf(e))
		}
	}
	return rows
}

func rowOf(e core.TimeEntry) Row {
	return Row{
		Date:    e.Date.String(),
		Client:  refName(e.Client, report.NoClientLabel),
		Project: refName(e.Project, report.NoProjectLabel),
		Task:    refName(e.Task, report.NoTaskLabel),
		Person:  refName(e.User, report.UnknownUserLabel),
		Hours:   e.Hours,
		Notes:   e.Notes,
	}
}

func refName(ref *core.Ref, fallback string) string {
	if ref == nil || ref.Name == "" {
		return fallback
	}
	return ref.Name
}

// FilterSummary describes the selected filters in one line.
func FilterSummary(res report.Result) string {
	var parts []string
	add := func(label string, tags []core.FilterTag) {
		if len(tags) == 0 {
			return
		}
		names := make([]string, len(tags))
		for i, t := range tags {
			names[i] = t.Name
		}
		parts = append(parts, label+": "+strings.Join(names, ", "))
	}
	add("Clients", res.Filters.Clients)
	add("Projects", res.Filters.Projects)
	add("Tasks", res.Filters.Tasks)
	if res.Params.ActiveProjects {
		parts = append(parts, "Active projects only")
	}
	if len(parts) == 0 {
		return "Filters: none"
	}
	return "Filters: " + strings.Join(parts, "; ")
}

// Options tunes the document exports.
type Options struct {
	Title       string
	GeneratedAt time.Time
}

func (o Options) withDefaults() Options {
	if o.Title == "" {
		o.Title = "Detailed Time Report"
	}
	if o.GeneratedAt.IsZero() {
		o.GeneratedAt = time.Now()
	}
	return o
}

// Write renders res in format f.
func Write(w io.Writer, f Format, res report.Result, opts Options) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, res)
	case FormatXLSX:
		return WriteXLSX(w, res)
	case FormatPDF:
		return WritePDF(w, res, opts)
	case FormatPrint:
		return WritePrint(w, res, opts)
	}
	return fmt.Errorf("unsupported export format %q", f)
}
