package http

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"timesheets/internal/core"
	"timesheets/internal/filters"
	applog "timesheets/internal/log"
	"timesheets/internal/report"
)

var templateFuncs = template.FuncMap{
	"hours":     formatHours,
	"refName":   refName,
	"period":    periodLabel,
	"dateLabel": report.DateLabel,
	"list":      func(items ...string) []string { return items },
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	switch {
	case s.deps.DB == nil:
		checks["database"] = "not_configured"
	default:
		if err := s.deps.DB.Ping(ctx); err != nil {
			checks["database"] = fmt.Sprintf("failed: %v", err)
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["database"] = "ok"
		}
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}

	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	metric("report_runs_total", "counter", "Detailed report runs", s.appMetrics.reportRuns.Load())
	metric("report_exports_total", "counter", "Report exports served", s.appMetrics.exports.Load())
	metric("mutations_total", "counter", "Successful API mutations", s.appMetrics.mutations.Load())
	metric("rate_limit_hits_total", "counter", "Total rate limit hits", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", fmt.Sprintf("%.0f", time.Since(s.appMetrics.uptime).Seconds()))
}

// reportPage is the data of templates/report.html.
type reportPage struct {
	Caller    core.User
	Params    report.Params
	Query     string
	GroupBys  []report.GroupBy
	Result    *report.Result
	Error     string
	Filters   filters.State
	Menu      filters.MenuState
	Rows      int
	AutoRun   string
	Generated time.Time
}

// MenuOf returns the row menu position of an entry.
func (p reportPage) MenuOf(id string) string {
	return p.Menu.Position(id).String()
}

// handleIndex renders the report page. A page opened with report
// parameters in its URL runs the report once before rendering.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded",
			applog.FieldPath, r.URL.Path,
			applog.FieldComponent, applog.ComponentTemplate,
			"error_type", applog.ErrorTypeConfiguration)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	caller, status, err := s.resolveCaller(r)
	if err != nil {
		if status >= http.StatusInternalServerError {
			s.logger.ErrorContext(r.Context(), "Resolve caller failed", applog.FieldError, err)
			err = fmt.Errorf("internal error")
		}
		http.Error(w, err.Error(), status)
		return
	}

	q := r.URL.Query()
	params := report.ParseParams(q)
	page := reportPage{
		Caller:    caller,
		Params:    params,
		Query:     params.Encode(),
		GroupBys:  []report.GroupBy{report.GroupByDate, report.GroupByClient, report.GroupByProject, report.GroupByTask, report.GroupByPerson},
		Generated: time.Now(),
	}

	var auto report.AutoRun
	auto.Load(report.HasAny(q))
	if auto.Trigger() {
		res, err := s.runReport(r.Context(), caller, params)
		if err != nil {
			page.Error = "The report could not be loaded. Please try again."
		} else {
			page.Result = &res
			page.Filters = stateOf(res.Filters)
			page.Rows = res.Count
			if id := sanitizeInput(q.Get("menu")); id != "" {
				if idx, ok := entryIndex(res, id); ok {
					page.Menu.Open(id, filters.Placement(idx, res.Count))
				}
			}
		}
		auto.Finish()
	}
	page.AutoRun = auto.State().String()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := s.templates.ExecuteTemplate(w, "report.html", page); err != nil {
		s.logger.ErrorContext(r.Context(), "Report template execution failed",
			applog.FieldError, err,
			"template", "report.html",
			applog.FieldComponent, applog.ComponentTemplate)
	}
}

// stateOf rebuilds the filter bar from the chips restored for a run.
func stateOf(selected report.Tags) filters.State {
	var st filters.State
	st.SetClients(selected.Clients)
	for _, t := range selected.Projects {
		st.Select(filters.Projects, t)
	}
	for _, t := range selected.Tasks {
		st.Select(filters.Tasks, t)
	}
	return st
}

// entryIndex is the position of an entry in the flattened report.
func entryIndex(res report.Result, id string) (int, bool) {
	i := 0
	for _, g := range res.Groups {
		for _, e := range g.Entries {
			if e.ID == id {
				return i, true
			}
			i++
		}
	}
	return 0, false
}
