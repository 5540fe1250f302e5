package http

import (
	"net/http"

	"timesheets/internal/core"
	applog "timesheets/internal/log"
	"timesheets/internal/services"
)

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request, caller core.User) {
	projects, err := s.deps.Projects.Projects(r.Context())
	if err != nil {
		writeError(r.Context(), w, "list projects", err)
		return
	}
	NewAPIResponse().Data(projects).Write(w)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request, caller core.User) {
	tasks, err := s.deps.Bulk.Tasks(r.Context())
	if err != nil {
		writeError(r.Context(), w, "list tasks", err)
		return
	}
	NewAPIResponse().Data(tasks).Write(w)
}

// handlePinProject pins or unpins a project. The body may carry
// {"pinned": false}; it defaults to pinning.
func (s *Server) handlePinProject(w http.ResponseWriter, r *http.Request, caller core.User) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(r.Context(), w, "pin project", err)
		return
	}
	pinned, err := p.Bool("pinned", true)
	if err != nil {
		writeError(r.Context(), w, "pin project", err)
		return
	}

	id := r.PathValue("id")
	if err := s.deps.Projects.Pin(r.Context(), caller, id, pinned); err != nil {
		writeError(r.Context(), w, "pin project", err)
		return
	}
	s.mutated(r, caller, "pin project", id)
	msg := "Project pinned"
	if !pinned {
		msg = "Project unpinned"
	}
	NewAPIResponse().Message(msg).Write(w)
}

// handleArchiveProject archives or restores a project. The body may carry
// {"archived": false}; it defaults to archiving.
func (s *Server) handleArchiveProject(w http.ResponseWriter, r *http.Request, caller core.User) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(r.Context(), w, "archive project", err)
		return
	}
	archived, err := p.Bool("archived", true)
	if err != nil {
		writeError(r.Context(), w, "archive project", err)
		return
	}

	id := r.PathValue("id")
	if err := s.deps.Projects.Archive(r.Context(), caller, id, archived); err != nil {
		writeError(r.Context(), w, "archive project", err)
		return
	}
	s.mutated(r, caller, "archive project", id)
	msg := "Project archived"
	if !archived {
		msg = "Project restored"
	}
	NewAPIResponse().Message(msg).Write(w)
}

// handleBulkTasks archives or deletes tasks one by one.
//
//	POST /api/tasks/bulk {"action": "archive", "ids": ["t1", "t2"]}
//
// Partial failures answer 207 with per-item errors; when every item
// failed the answer is 409.
func (s *Server) handleBulkTasks(w http.ResponseWriter, r *http.Request, caller core.User) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(r.Context(), w, "bulk tasks", err)
		return
	}
	action, err := services.ParseBulkAction(p.Get("action"))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	ids, err := p.Strings("ids")
	if err != nil {
		writeError(r.Context(), w, "bulk tasks", err)
		return
	}

	res, err := s.deps.Bulk.BulkTasks(r.Context(), caller, action, ids)
	if err != nil {
		writeError(r.Context(), w, "bulk tasks", err)
		return
	}

	status := http.StatusOK
	switch {
	case res.OK():
	case res.SuccessCount > 0:
		status = http.StatusMultiStatus
	default:
		status = http.StatusConflict
	}
	if res.SuccessCount > 0 {
		s.appMetrics.mutations.Add(1)
	}
	NewAPIResponse().Status(status).Bulk(res).Write(w)
}

func (s *Server) handleArchiveMember(w http.ResponseWriter, r *http.Request, caller core.User) {
	id := r.PathValue("id")
	if err := s.deps.Bulk.ArchiveMember(r.Context(), caller, id); err != nil {
		writeError(r.Context(), w, "archive member", err)
		return
	}
	s.mutated(r, caller, "archive member", id)
	NewAPIResponse().Message("Member archived").Write(w)
}

// mutated counts and logs a successful single-item mutation.
func (s *Server) mutated(r *http.Request, caller core.User, op, id string) {
	s.appMetrics.mutations.Add(1)
	s.logger.InfoContext(r.Context(), "Mutation applied",
		applog.FieldOperation, op,
		"id", id,
		applog.FieldUserID, caller.ID,
		applog.FieldRole, string(caller.Role))
}
