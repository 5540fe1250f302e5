package http

import (
	"errors"
	"fmt"
	"net/http"

	"timesheets/internal/core"
)

// handleTimesheetAction moves a timesheet through its lifecycle.
//
//	POST /api/timesheets/{id}/submit
//	POST /api/timesheets/{id}/approve
//	POST /api/timesheets/{id}/reject   {"reason": "..."}
//	POST /api/timesheets/{id}/resubmit
func (s *Server) handleTimesheetAction(w http.ResponseWriter, r *http.Request, caller core.User) {
	id, action := r.PathValue("id"), r.PathValue("action")
	ctx := r.Context()
	svc := s.deps.Timesheets

	var (
		ts  core.Timesheet
		err error
	)
	switch action {
	case "submit":
		ts, err = svc.Submit(ctx, caller, id)
	case "approve":
		ts, err = svc.Approve(ctx, caller, id)
	case "reject":
		p := NewRequestBodyParser(r)
		if err := p.Parse(); err != nil {
			writeError(ctx, w, "reject timesheet", err)
			return
		}
		ts, err = svc.Reject(ctx, caller, id, p.Get("reason"))
	case "resubmit":
		ts, err = svc.Resubmit(ctx, caller, id)
	default:
		NotFoundError(fmt.Sprintf("unknown timesheet action %q", action)).Write(w)
		return
	}
	if err != nil {
		writeError(ctx, w, action+" timesheet", err)
		return
	}

	s.mutated(r, caller, action+" timesheet", id)
	NewAPIResponse().Message("Timesheet " + string(ts.Status)).Data(ts).Write(w)
}

func (s *Server) handlePendingApprovals(w http.ResponseWriter, r *http.Request, caller core.User) {
	sheets, err := s.deps.Timesheets.PendingApprovals(r.Context(), caller)
	if err != nil {
		writeError(r.Context(), w, "pending approvals", err)
		return
	}
	if sheets == nil {
		sheets = []core.Timesheet{}
	}
	NewAPIResponse().Data(sheets).Write(w)
}

// handleEditEntry rewrites a time entry.
//
//	PUT /api/entries/{id} {"date": "2024-03-05", "hours": "7.5", "projectId": "p1", ...}
func (s *Server) handleEditEntry(w http.ResponseWriter, r *http.Request, caller core.User) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(r.Context(), w, "edit entry", err)
		return
	}
	e, err := parseEntry(r.PathValue("id"), p)
	if err == nil {
		err = validateEntry(e)
	}
	if err != nil {
		writeError(r.Context(), w, "edit entry", err)
		return
	}

	e, err = s.deps.Timesheets.EditEntry(r.Context(), caller, e)
	if err != nil {
		writeError(r.Context(), w, "edit entry", err)
		return
	}
	s.mutated(r, caller, "edit entry", e.ID)
	NewAPIResponse().Message("Entry updated").Data(e).Write(w)
}

// validateEntry reports domain validation failures as-is and anything else
// as bad input.
func validateEntry(e core.TimeEntry) error {
	err := e.Validate()
	if err == nil || errors.Is(err, core.ErrInvalidHours) ||
		errors.Is(err, core.ErrInvalidDay) || errors.Is(err, core.ErrInvalidMonth) {
		return err
	}
	return badInput("%v", err)
}

type preference struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Set   bool   `json:"set"`
}

func (s *Server) handleGetPreference(w http.ResponseWriter, r *http.Request, caller core.User) {
	key := r.PathValue("key")
	value, ok, err := s.deps.Preferences.Get(r.Context(), caller, key)
	if err != nil {
		writeError(r.Context(), w, "get preference", err)
		return
	}
	NewAPIResponse().Data(preference{Key: key, Value: value, Set: ok}).Write(w)
}

// handleSetPreference stores a preference of the caller.
//
//	PUT /api/preferences/last_viewed_week {"value": "2024-03-07"}
func (s *Server) handleSetPreference(w http.ResponseWriter, r *http.Request, caller core.User) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(r.Context(), w, "set preference", err)
		return
	}
	if !p.Has("value") {
		BadRequestError("value is required").Write(w)
		return
	}

	key := r.PathValue("key")
	value, err := s.deps.Preferences.Set(r.Context(), caller, key, p.Get("value"))
	if err != nil {
		writeError(r.Context(), w, "set preference", err)
		return
	}
	NewAPIResponse().Data(preference{Key: key, Value: value, Set: true}).Write(w)
}
