package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"timesheets/internal/cli"
	"timesheets/internal/export"
	applog "timesheets/internal/log"
	"timesheets/internal/report"

	"github.com/spf13/cobra"
)

type exportFlags struct {
	format          string
	timeframe       string
	start           string
	end             string
	groupBy         string
	clients         []string
	projects        []string
	tasks           []string
	users           []string
	includeArchived bool
	activeProjects  bool
	as              string
	out             string
	title           string
}

var exportOpts exportFlags

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the detailed report",
	Long: `Export the detailed report as seen by a user.

Examples:
  reportctl export --as u1 --timeframe month --format xlsx
  reportctl export --as u1 --timeframe custom --start 2024-03-01 --end 2024-03-31 --group-by project --out march.pdf --format pdf
  reportctl export --as u1 --clients c1,c2 --format csv --out -`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd.Context(), exportOpts, cmd.OutOrStdout())
	},
}

func init() {
	f := exportCmd.Flags()
	f.StringVarP(&exportOpts.format, "format", "f", "csv", "output format: csv, xlsx, pdf or html")
	f.StringVarP(&exportOpts.timeframe, "timeframe", "t", string(report.TimeframeMonth), "week, month, year, all or custom")
	f.StringVar(&exportOpts.start, "start", "", "custom range start (YYYY-MM-DD)")
	f.StringVar(&exportOpts.end, "end", "", "custom range end (YYYY-MM-DD)")
	f.StringVarP(&exportOpts.groupBy, "group-by", "g", string(report.GroupByDate), "date, client, project, task or person")
	f.StringSliceVar(&exportOpts.clients, "clients", nil, "client ids")
	f.StringSliceVar(&exportOpts.projects, "projects", nil, "project ids")
	f.StringSliceVar(&exportOpts.tasks, "tasks", nil, "task ids")
	f.StringSliceVar(&exportOpts.users, "users", nil, "user ids to include (admins only; ignored for other roles)")
	f.BoolVar(&exportOpts.includeArchived, "include-archived", false, "include archived clients, projects and tasks")
	f.BoolVar(&exportOpts.activeProjects, "active-projects", false, "only entries of active projects")
	f.StringVar(&exportOpts.as, "as", "", "id of the user running the report")
	f.StringVarP(&exportOpts.out, "out", "o", "", "output file, - for stdout (default: generated file name)")
	f.StringVar(&exportOpts.title, "title", "", "document title")
	_ = exportCmd.MarkFlagRequired("as")
}

// params maps the command flags to report parameters.
func (o exportFlags) params() report.Params {
	return report.Params{
		Timeframe:       report.ParseTimeframe(o.timeframe),
		StartDate:       o.start,
		EndDate:         o.end,
		IncludeArchived: o.includeArchived,
		GroupBy:         report.ParseGroupBy(o.groupBy),
		ActiveProjects:  o.activeProjects,
		Clients:         o.clients,
		Projects:        o.projects,
		Tasks:           o.tasks,
		Users:           o.users,
	}
}

func runExport(ctx context.Context, o exportFlags, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	format, err := export.ParseFormat(o.format)
	if err != nil {
		return err
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	caller, err := repo.GetUser(ctx, o.as)
	if err != nil {
		return fmt.Errorf("resolve user %q: %w", o.as, err)
	}

	svc := report.NewService(repo, report.WithTimeout(cfg.ReportTimeout))
	res, err := svc.Run(ctx, caller, o.params())
	if err != nil {
		return fmt.Errorf("run report: %w", err)
	}

	out := o.out
	if out == "" {
		out = export.Filename(res.Range, format)
	}

	var w io.Writer = stdout
	if out != "-" {
		file, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create %s: %w", out, err)
		}
		defer file.Close()
		w = file
	}

	opts := export.Options{Title: o.title, GeneratedAt: time.Now()}
	if err := export.Write(w, format, res, opts); err != nil {
		return fmt.Errorf("export %s: %w", format, err)
	}

	logger.Info("Report exported",
		applog.FieldExportFormat, string(format),
		applog.FieldEntryCount, res.Count,
		applog.FieldTotalHours, res.Total.StringFixed(2),
		"out", out)
	return nil
}
