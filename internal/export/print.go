package export

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"html/template"
	"io"
	"strings"

	"timesheets/internal/core"
	"timesheets/internal/report"
)

// printStyle and printScript are the only inline content of the print
// view. PrintCSP allows exactly these two blocks by hash.
const printStyle = `body { font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; font-size: 12px; color: #1f2937; margin: 24px; }
h1 { font-size: 20px; margin: 0 0 8px; }
p.meta { margin: 2px 0; color: #4b5563; }
table { width: 100%; border-collapse: collapse; margin-top: 16px; }
th { background: #2d3748; color: #fff; text-align: left; padding: 6px 8px; }
td { padding: 4px 8px; border-bottom: 1px solid #e5e7eb; }
tr.group td { background: #f3f4f6; font-weight: 600; }
td.hours, th.hours { text-align: right; }
tr.total td { font-weight: 700; border-top: 2px solid #1f2937; }
@media print { body { margin: 0; } }
`

const printScript = `window.addEventListener("load", function () { window.print(); });`

// PrintCSP is the Content-Security-Policy the print view must be served
// with. The page loads nothing else, so everything else stays blocked.
var PrintCSP = strings.Join([]string{
	"default-src 'none'",
	"script-src " + cspHash(printScript),
	"style-src " + cspHash(printStyle),
	"img-src 'self' data:",
	"base-uri 'none'",
	"form-action 'none'",
	"frame-ancestors 'none'",
}, "; ")

func cspHash(inline string) string {
	sum := sha256.Sum256([]byte(inline))
	return "'sha256-" + base64.StdEncoding.EncodeToString(sum[:]) + "'"
}

var printTemplate = template.Must(template.New("print").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>` + printStyle + `</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="meta">Period: {{.Period}}</p>
<p class="meta">Total hours: {{.Total}}</p>
<p class="meta">{{.Filters}}</p>
<table>
<thead>
<tr>{{range .Columns}}<th>{{.}}</th>{{end}}<th>Notes</th><th class="hours">Hours</th></tr>
</thead>
<tbody>
{{- range .Groups}}
<tr class="group"><td colspan="{{$.Span}}">{{.Label}}</td><td class="hours">{{.Total}}</td></tr>
{{- range .Rows}}
<tr>{{range .Cells}}<td>{{.}}</td>{{end}}<td>{{.Notes}}</td><td class="hours">{{.Hours}}</td></tr>
{{- end}}
{{- end}}
<tr class="total"><td colspan="{{.Span}}">Total</td><td class="hours">{{.Total}}</td></tr>
</tbody>
</table>
<p class="meta">Generated {{.Generated}}</p>
<script>` + printScript + `</script>
</body>
</html>
`))

type printRow struct {
	Cells []string
	Notes string
	Hours string
}

type printGroup struct {
	Label string
	Total string
	Rows  []printRow
}

type printView struct {
	Title     string
	Period    string
	Total     string
	Filters   string
	Generated string
	Columns   []string
	Span      int
	Groups    []printGroup
}

// hiddenColumn is the entry column repeated by the group header.
var hiddenColumn = map[report.GroupBy]string{
	report.GroupByDate:    "Date",
	report.GroupByClient:  "Client",
	report.GroupByProject: "Project",
	report.GroupByTask:    "Task",
	report.GroupByPerson:  "Person",
}

// WritePrint renders a standalone HTML page that keeps the group structure
// and opens the print dialog once loaded.
func WritePrint(w io.Writer, res report.Result, opts Options) error {
	if len(Flatten(res)) == 0 {
		return ErrEmpty
	}
	opts = opts.withDefaults()

	hidden := hiddenColumn[report.ParseGroupBy(string(res.GroupBy))]
	var columns []string
	var keep []int
	for i, c := range Columns[:len(Columns)-1] {
		if c == hidden {
			continue
		}
		columns = append(columns, c)
		keep = append(keep, i)
	}

	view := printView{
		Title:     opts.Title,
		Period:    res.Range.Label(),
		Total:     core.FormatHours(res.Total),
		Filters:   FilterSummary(res),
		Generated: opts.GeneratedAt.Format("2006-01-02 15:04"),
		Columns:   columns,
		Span:      len(columns) + 1,
	}
	for _, g := range res.Groups {
		pg := printGroup{Label: g.Label, Total: core.FormatHours(g.TotalHours)}
		for _, e := range g.Entries {
			r := rowOf(e)
			record := r.Record()
			cells := make([]string, len(keep))
			for i, idx := range keep {
				cells[i] = record[idx]
			}
			pg.Rows = append(pg.Rows, printRow{Cells: cells, Notes: r.Notes, Hours: core.FormatHours(r.Hours)})
		}
		view.Groups = append(view.Groups, pg)
	}

	if err := printTemplate.Execute(w, view); err != nil {
		return fmt.Errorf("render print view: %w", err)
	}
	return nil
}
