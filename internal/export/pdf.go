package export

import (
	"fmt"
	"io"

	"timesheets/internal/core"
	"timesheets/internal/report"

	"github.com/johnfercher/maroto/pkg/color"
	"github.com/johnfercher/maroto/pkg/consts"
	"github.com/johnfercher/maroto/pkg/pdf"
	"github.com/johnfercher/maroto/pkg/props"
)

const pageAlias = "{nb}"

var (
	pdfGrid     = []uint{2, 2, 3, 2, 2, 1}
	headerFill  = color.Color{Red: 45, Green: 55, Blue: 72}
	stripeFill  = color.Color{Red: 244, Green: 245, Blue: 247}
	footerColor = color.Color{Red: 110, Green: 110, Blue: 110}
)

// WritePDF renders a landscape A4 document of the flat rows. A document
// longer than one page is rendered again with a page footer.
func WritePDF(w io.Writer, res report.Result, opts Options) error {
	rows := Flatten(res)
	if len(rows) == 0 {
		return ErrEmpty
	}
	opts = opts.withDefaults()

	m, pages := buildPDF(res, rows, opts, false)
	if pages > 1 {
		m, _ = buildPDF(res, rows, opts, true)
	}

	buf, err := m.Output()
	if err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	if _, err := buf.WriteTo(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func buildPDF(res report.Result, rows []Row, opts Options, footer bool) (pdf.Maroto, int) {
	m := pdf.NewMaroto(consts.Landscape, consts.A4)
	m.SetPageMargins(12, 10, 12)

	if footer {
		generated := opts.GeneratedAt.Format("2006-01-02 15:04")
		m.SetAliasNbPages(pageAlias)
		m.RegisterFooter(func() {
			m.Row(8, func() {
				m.Col(12, func() {
					// GetCurrentPage is zero-based.
					m.Text(fmt.Sprintf("Generated %s · Page %d of %s", generated, m.GetCurrentPage()+1, pageAlias), props.Text{
						Top:   3,
						Size:  8,
						Align: consts.Center,
						Color: footerColor,
					})
				})
			})
		})
	}

	m.Row(12, func() {
		m.Col(12, func() {
			m.Text(opts.Title, props.Text{Size: 18, Style: consts.Bold})
		})
	})
	for _, line := range []string{
		"Period: " + res.Range.Label(),
		"Total hours: " + core.FormatHours(res.Total),
		FilterSummary(res),
	} {
		text := line
		m.Row(6, func() {
			m.Col(12, func() {
				m.Text(text, props.Text{Size: 10})
			})
		})
	}
	m.Row(4, func() {})

	m.SetBackgroundColor(headerFill)
	m.Row(8, func() {
		for i, c := range Columns {
			m.Col(pdfGrid[i], func() {
				m.Text(c, props.Text{Top: 2, Left: 1, Size: 9, Style: consts.Bold, Color: color.NewWhite(), Align: cellAlign(i)})
			})
		}
	})
	m.SetBackgroundColor(color.NewWhite())

	for n, r := range rows {
		if n%2 == 1 {
			m.SetBackgroundColor(stripeFill)
		}
		record := r.Record()
		m.Row(7, func() {
			for i, value := range record {
				m.Col(pdfGrid[i], func() {
					m.Text(value, props.Text{Top: 1.5, Left: 1, Size: 9, Align: cellAlign(i)})
				})
			}
		})
		if n%2 == 1 {
			m.SetBackgroundColor(color.NewWhite())
		}
	}

	m.Line(2)
	m.Row(8, func() {
		m.Col(10, func() {
			m.Text("Total", props.Text{Top: 1.5, Left: 1, Size: 10, Style: consts.Bold})
		})
		m.Col(2, func() {
			m.Text(core.FormatHours(res.Total), props.Text{Top: 1.5, Size: 10, Style: consts.Bold, Align: consts.Right})
		})
	})

	return m, m.GetCurrentPage() + 1
}

func cellAlign(col int) consts.Align {
	if col == len(Columns)-1 {
		return consts.Right
	}
	return consts.Left
}
