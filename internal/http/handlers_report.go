package http

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"timesheets/internal/core"
	"timesheets/internal/export"
	"timesheets/internal/filters"
	applog "timesheets/internal/log"
	"timesheets/internal/report"
)

// runReport runs the report for caller and logs the outcome. Fetch
// failures are logged here; callers only decide what the client sees.
func (s *Server) runReport(ctx context.Context, caller core.User, p report.Params) (report.Result, error) {
	res, err := s.deps.Report.Run(ctx, caller, p)
	if err != nil {
		s.events.LogError(ctx, "Report run failed", err, applog.ComponentReport, applog.OpRun,
			applog.NewFields().WithCaller(caller.ID, string(caller.Role)))
		return res, err
	}
	s.appMetrics.reportRuns.Add(1)
	fields := applog.NewFields().
		WithCaller(caller.ID, string(caller.Role)).
		WithReport(string(res.Params.Timeframe), res.Range.Start, res.Range.End, string(res.GroupBy), res.Count, core.FormatHours(res.Total)).
		WithOperation(applog.OpRun).
		ToSlice()
	applog.FromContext(ctx).WithComponent(applog.ComponentReport).InfoContext(ctx, "Report run",
		append(fields, "seq", res.Seq, "groups", len(res.Groups))...)
	return res, nil
}

type reportResponse struct {
	report.Result
	// Stale is set when a run started later for the same caller already
	// finished; clients drop stale results.
	Stale bool `json:"stale"`
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request, caller core.User) {
	res, err := s.runReport(r.Context(), caller, report.ParseParams(r.URL.Query()))
	if err != nil {
		writeError(r.Context(), w, "run report", err)
		return
	}
	stale := !s.latestFor(caller.ID).Offer(res)
	NewAPIResponse().
		Header("Cache-Control", "no-store").
		Data(reportResponse{Result: res, Stale: stale}).
		Write(w)
}

// handleExport runs the report and streams it in the requested format. The
// document is rendered into memory first so an empty report still gets a
// JSON error instead of a truncated download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, caller core.User) {
	format, err := export.ParseFormat(r.PathValue("format"))
	if err != nil {
		NotFoundError(err.Error()).Write(w)
		return
	}

	res, err := s.runReport(r.Context(), caller, report.ParseParams(r.URL.Query()))
	if err != nil {
		writeError(r.Context(), w, "run report", err)
		return
	}

	var buf bytes.Buffer
	opts := export.Options{GeneratedAt: time.Now()}
	if err := export.Write(&buf, format, res, opts); err != nil {
		writeError(r.Context(), w, "export "+string(format), err)
		return
	}

	disposition := "inline"
	if format.Attachment() {
		disposition = "attachment"
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{
		"filename": export.Filename(res.Range, format),
	}))
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	w.Header().Set("Cache-Control", "no-store")
	if format == export.FormatPrint {
		// The print view carries its own inline style and print call.
		w.Header().Set("Content-Security-Policy", export.PrintCSP)
	}
	w.WriteHeader(http.StatusOK)
	n, _ := buf.WriteTo(w)

	s.appMetrics.exports.Add(1)
	s.events.LogExport(r.Context(), caller.ID, string(format), res.Count, n)
}

func (s *Server) handleFilterOptions(w http.ResponseWriter, r *http.Request, caller core.User) {
	tags, err := s.deps.Report.FilterOptions(r.Context(), report.ParseParams(r.URL.Query()).IncludeArchived)
	if err != nil {
		writeError(r.Context(), w, "filter options", err)
		return
	}
	NewAPIResponse().Data(tags).Write(w)
}

// handleFilterCandidates lists the chips that can still be picked for a
// dimension, given the current selection and search text.
//
//	GET /api/filters/candidates?dimension=projects&q=web&clients[]=c1&selected[]=p2
func (s *Server) handleFilterCandidates(w http.ResponseWriter, r *http.Request, caller core.User) {
	q := r.URL.Query()
	dim, ok := filters.ParseDimension(q.Get("dimension"))
	if !ok {
		BadRequestError(fmt.Sprintf("unknown dimension %q", q.Get("dimension"))).Write(w)
		return
	}

	options, err := s.deps.Report.FilterOptions(r.Context(), report.ParseParams(q).IncludeArchived)
	if err != nil {
		writeError(r.Context(), w, "filter candidates", err)
		return
	}
	available := map[filters.Dimension][]core.FilterTag{
		filters.Clients:  options.Clients,
		filters.Projects: options.Projects,
		filters.Tasks:    options.Tasks,
	}

	// selected[] holds the chips already picked in dim; for clients it
	// extends clients[].
	clientIDs := queryList(q, report.KeyClients)
	if dim == filters.Clients {
		clientIDs = append(clientIDs, queryList(q, "selected[]")...)
	}
	var st filters.State
	st.SetClients(pick(options.Clients, clientIDs))
	if dim != filters.Clients {
		for _, t := range pick(available[dim], queryList(q, "selected[]")) {
			st.Select(dim, t)
		}
	}
	st.Chips(dim).SetSearch(sanitizeInput(q.Get("q")))

	NewAPIResponse().Data(st.Candidates(dim, available[dim])).Write(w)
}

// queryList reads a repeated key with or without trailing brackets.
func queryList(q map[string][]string, key string) []string {
	bare := strings.TrimSuffix(key, "[]")
	var out []string
	for _, v := range append(append([]string(nil), q[bare]...), q[bare+"[]"]...) {
		if v = sanitizeInput(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// pick returns the tags with the given ids, in id order. Unknown ids are
// skipped.
func pick(tags []core.FilterTag, ids []string) []core.FilterTag {
	byID := make(map[string]core.FilterTag, len(tags))
	for _, t := range tags {
		byID[t.ID] = t
	}
	out := make([]core.FilterTag, 0, len(ids))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			out = append(out, t)
		}
	}
	return out
}
