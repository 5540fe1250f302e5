package http

import (
	"context"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"timesheets/internal/cache"
	"timesheets/internal/core"
	applog "timesheets/internal/log"
	"timesheets/internal/middleware/ratelimit"
	"timesheets/internal/middleware/security"
	"timesheets/internal/middleware/trace"
	"timesheets/internal/report"
	"timesheets/internal/services"
	appweb "timesheets/web"
)

// UserStore resolves the caller named by the identity header.
type UserStore interface {
	GetUser(ctx context.Context, id string) (core.User, error)
}

// ReportRunner runs the detailed report and lists its filter options.
type ReportRunner interface {
	Run(ctx context.Context, caller core.User, p report.Params) (report.Result, error)
	FilterOptions(ctx context.Context, includeArchived bool) (report.Tags, error)
}

// Pinger checks a backing store during readiness probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of the server. Report and Users are required.
type Deps struct {
	Users       UserStore
	Report      ReportRunner
	Timesheets  *services.TimesheetService
	Bulk        *services.BulkService
	Projects    *services.ProjectService
	Preferences *services.PreferenceService
	DB          Pinger
	Caches      *cache.Manager
	Logger      *applog.Logger
	RateLimit   ratelimit.Config
}

type Server struct {
	http.Server
	deps      Deps
	templates *template.Template
	logger    *applog.Logger
	events    *applog.StructuredLogger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	// newest report result per caller, for request fencing
	latest sync.Map

	appMetrics   *appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	uptime     time.Time
	reportRuns atomic.Int64
	exports    atomic.Int64
	mutations  atomic.Int64
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		deps:             deps,
		logger:           logger,
		events:           applog.NewStructuredLogger(logger),
		rateLimiter:      ratelimit.NewLimiter(deps.RateLimit),
		securityDetector: security.NewDetector(),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", applog.FieldError, err, applog.FieldComponent, applog.ComponentTemplate)
	}
	s.templates = t

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/report", s.authenticated(s.handleReport))
	mux.HandleFunc("GET /api/report/export/{format}", s.authenticated(s.handleExport))
	mux.HandleFunc("GET /api/filters/options", s.authenticated(s.handleFilterOptions))
	mux.HandleFunc("GET /api/filters/candidates", s.authenticated(s.handleFilterCandidates))

	mux.HandleFunc("GET /api/projects", s.authenticated(s.handleListProjects))
	mux.HandleFunc("POST /api/projects/{id}/pin", s.authenticated(s.handlePinProject))
	mux.HandleFunc("POST /api/projects/{id}/archive", s.authenticated(s.handleArchiveProject))
	mux.HandleFunc("GET /api/tasks", s.authenticated(s.handleListTasks))
	mux.HandleFunc("POST /api/tasks/bulk", s.authenticated(s.handleBulkTasks))
	mux.HandleFunc("POST /api/team/members/{id}/archive", s.authenticated(s.handleArchiveMember))
	mux.HandleFunc("GET /api/team/pending-approvals", s.authenticated(s.handlePendingApprovals))

	mux.HandleFunc("POST /api/timesheets/{id}/{action}", s.authenticated(s.handleTimesheetAction))
	mux.HandleFunc("PUT /api/entries/{id}", s.authenticated(s.handleEditEntry))
	mux.HandleFunc("GET /api/preferences/{key}", s.authenticated(s.handleGetPreference))
	mux.HandleFunc("PUT /api/preferences/{key}", s.authenticated(s.handleSetPreference))

	// Mutations are limited per caller, falling back to the client IP.
	limited := s.rateLimiter.Middleware(s.rateLimitKey, s.onRateLimit)(mux)
	scoped := applog.ContextMiddleware(logger, func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	})(limited)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.traceMiddleware.Middleware(s.securityDetector.Middleware(headers.Middleware(scoped))),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// callerHandler is an API handler running on behalf of a resolved user.
type callerHandler func(w http.ResponseWriter, r *http.Request, caller core.User)

// authenticated resolves the X-User-ID header to a user. Missing or unknown
// ids are rejected with 401, archived users with 403.
func (s *Server) authenticated(next callerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, status, err := s.resolveCaller(r)
		if err != nil {
			if status >= http.StatusInternalServerError {
				writeError(r.Context(), w, "authenticate", err)
				return
			}
			ErrorResponse(status, err.Error()).Write(w)
			return
		}
		next(w, r, caller)
	}
}

func (s *Server) resolveCaller(r *http.Request) (core.User, int, error) {
	id := callerID(r)
	if id == "" {
		return core.User{}, http.StatusUnauthorized, errors.New("missing " + HeaderUserID + " header")
	}
	user, err := s.deps.Users.GetUser(r.Context(), id)
	if errors.Is(err, core.ErrNotFound) {
		s.logger.WarnContext(r.Context(), "Unknown caller",
			applog.FieldUserID, id,
			applog.FieldComponent, applog.ComponentSecurity,
			"error_type", applog.ErrorTypeAuth)
		return core.User{}, http.StatusUnauthorized, errors.New("unknown user")
	}
	if err != nil {
		return core.User{}, http.StatusInternalServerError, err
	}
	if user.IsArchived {
		return core.User{}, http.StatusForbidden, errors.New("user is archived")
	}
	return user, http.StatusOK, nil
}

func (s *Server) rateLimitKey(r *http.Request) string {
	if id := callerID(r); id != "" {
		return "user:" + id
	}
	return "ip:" + s.securityDetector.ExtractClientIP(r)
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		applog.FieldUserID, callerID(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path,
		applog.FieldComponent, applog.ComponentRateLimit)
	ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
}

// latestFor returns the fencing slot of a caller.
func (s *Server) latestFor(userID string) *report.Latest {
	v, _ := s.latest.LoadOrStore(userID, &report.Latest{})
	return v.(*report.Latest)
}

// Shutdown gracefully shuts down the server and its background goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		if s.deps.Caches != nil {
			s.deps.Caches.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
