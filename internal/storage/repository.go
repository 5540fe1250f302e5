package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"timesheets/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, core.ErrNotFound)
	}
	return fmt.Errorf("get %s %s: %w", what, id, err)
}

func affected(n int64, err error, what, id string) error {
	if err != nil {
		return fmt.Errorf("update %s %s: %w", what, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, core.ErrNotFound)
	}
	return nil
}

// CreateClient stores c, assigning an id when it has none.
func (r *SQLiteRepository) CreateClient(ctx context.Context, c core.Client) (core.Client, error) {
	if err := c.Validate(); err != nil {
		return c, err
	}
	c.ID = newID(c.ID)
	if err := r.queries.CreateClient(ctx, Client{ID: c.ID, Name: c.Name, IsActive: c.IsActive, IsArchived: c.IsArchived}); err != nil {
		return c, fmt.Errorf("create client: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListClients(ctx context.Context, opts core.ListOptions) ([]core.Client, error) {
	rows, err := r.queries.ListClients(ctx, opts.IncludeArchived, opts.IDs)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	clients := make([]core.Client, len(rows))
	for i, c := range rows {
		clients[i] = core.Client{ID: c.ID, Name: c.Name, IsActive: c.IsActive, IsArchived: c.IsArchived}
	}
	return clients, nil
}

func (r *SQLiteRepository) CreateProject(ctx context.Context, p core.Project) (core.Project, error) {
	if err := p.Validate(); err != nil {
		return p, err
	}
	p.ID = newID(p.ID)
	err := r.queries.CreateProject(ctx, Project{
		ID:          p.ID,
		Name:        p.Name,
		ClientID:    nullString(p.ClientID),
		IsActive:    p.IsActive,
		IsArchived:  p.IsArchived,
		IsPinned:    p.IsPinned,
		BudgetHours: p.BudgetHours.String(),
	})
	if err != nil {
		return p, fmt.Errorf("create project: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) ListProjects(ctx context.Context, opts core.ListOptions) ([]core.Project, error) {
	rows, err := r.queries.ListProjects(ctx, opts.IncludeArchived, opts.IDs)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	projects := make([]core.Project, len(rows))
	for i, p := range rows {
		budget, err := decimal.NewFromString(p.BudgetHours)
		if err != nil {
			slog.WarnContext(ctx, "Invalid project budget", "project_id", p.ID, "value", p.BudgetHours)
			budget = decimal.Zero
		}
		projects[i] = core.Project{
			ID:          p.ID,
			Name:        p.Name,
			ClientID:    p.ClientID.String,
			IsActive:    p.IsActive,
			IsArchived:  p.IsArchived,
			IsPinned:    p.IsPinned,
			BudgetHours: budget,
		}
	}
	return projects, nil
}

func (r *SQLiteRepository) SetProjectPinned(ctx context.Context, id string, pinned bool) error {
	n, err := r.queries.SetProjectPinned(ctx, id, pinned)
	if err := affected(n, err, "project", id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Project pin updated", "project_id", id, "pinned", pinned)
	return nil
}

func (r *SQLiteRepository) SetProjectArchived(ctx context.Context, id string, archived bool) error {
	n, err := r.queries.SetProjectArchived(ctx, id, archived)
	if err := affected(n, err, "project", id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Project archive updated", "project_id", id, "archived", archived)
	return nil
}

func (r *SQLiteRepository) CreateTask(ctx context.Context, t core.Task) (core.Task, error) {
	if err := t.Validate(); err != nil {
		return t, err
	}
	t.ID = newID(t.ID)
	if err := r.queries.CreateTask(ctx, Task{ID: t.ID, Name: t.Name, IsBillable: t.IsBillable, IsArchived: t.IsArchived}); err != nil {
		return t, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) ListTasks(ctx context.Context, opts core.ListOptions) ([]core.Task, error) {
	rows, err := r.queries.ListTasks(ctx, opts.IncludeArchived, opts.IDs)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	tasks := make([]core.Task, len(rows))
	for i, t := range rows {
		tasks[i] = core.Task{ID: t.ID, Name: t.Name, IsBillable: t.IsBillable, IsArchived: t.IsArchived}
	}
	return tasks, nil
}

func (r *SQLiteRepository) ArchiveTask(ctx context.Context, id string) error {
	n, err := r.queries.ArchiveTask(ctx, id)
	return affected(n, err, "task", id)
}

func (r *SQLiteRepository) DeleteTask(ctx context.Context, id string) error {
	n, err := r.queries.DeleteTask(ctx, id)
	return affected(n, err, "task", id)
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	if err := u.Validate(); err != nil {
		return u, err
	}
	u.ID = newID(u.ID)
	err := r.queries.CreateUser(ctx, User{ID: u.ID, Name: u.Name, Email: u.Email, Role: string(u.Role), IsArchived: u.IsArchived})
	if err != nil {
		return u, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id string) (core.User, error) {
	u, err := r.queries.GetUser(ctx, id)
	if err != nil {
		return core.User{}, notFound(err, "user", id)
	}
	return core.User{ID: u.ID, Name: u.Name, Email: u.Email, Role: core.Role(u.Role), IsArchived: u.IsArchived}, nil
}

func (r *SQLiteRepository) ArchiveUser(ctx context.Context, id string) error {
	n, err := r.queries.ArchiveUser(ctx, id)
	return affected(n, err, "user", id)
}

// CreateTeam stores the team and its membership in one transaction.
func (r *SQLiteRepository) CreateTeam(ctx context.Context, t core.Team) (core.Team, error) {
	if t.Name == "" {
		return t, core.ErrEmptyName
	}
	t.ID = newID(t.ID)
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return t, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.CreateTeam(ctx, Team{ID: t.ID, Name: t.Name, ManagerID: t.ManagerID}); err != nil {
		return t, fmt.Errorf("create team: %w", err)
	}
	for _, member := range t.MemberIDs {
		if err := q.AddTeamMember(ctx, t.ID, member); err != nil {
			return t, fmt.Errorf("add team member %s: %w", member, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return t, fmt.Errorf("commit team: %w", err)
	}
	return t, nil
}

// TeamsManagedBy returns every team whose manager is managerID, with members.
func (r *SQLiteRepository) TeamsManagedBy(ctx context.Context, managerID string) ([]core.Team, error) {
	rows, err := r.queries.TeamsByManager(ctx, managerID)
	if err != nil {
		return nil, fmt.Errorf("list teams for manager %s: %w", managerID, err)
	}
	teams := make([]core.Team, 0, len(rows))
	for _, t := range rows {
		members, err := r.queries.TeamMembers(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("list members of team %s: %w", t.ID, err)
		}
		teams = append(teams, core.Team{ID: t.ID, Name: t.Name, ManagerID: t.ManagerID, MemberIDs: members})
	}
	return teams, nil
}

func (r *SQLiteRepository) CreateTimesheet(ctx context.Context, ts core.Timesheet) (core.Timesheet, error) {
	ts.ID = newID(ts.ID)
	if ts.Status == "" {
		ts.Status = core.StatusUnsubmitted
	}
	err := r.queries.CreateTimesheet(ctx, Timesheet{
		ID:        ts.ID,
		UserID:    ts.UserID,
		WeekStart: ts.WeekStart.WeekStart().String(),
		Status:    string(ts.Status),
	})
	if err != nil {
		return ts, fmt.Errorf("create timesheet: %w", err)
	}
	ts.WeekStart = ts.WeekStart.WeekStart()
	return ts, nil
}

func (r *SQLiteRepository) GetTimesheet(ctx context.Context, id string) (core.Timesheet, error) {
	row, err := r.queries.GetTimesheet(ctx, id)
	if err != nil {
		return core.Timesheet{}, notFound(err, "timesheet", id)
	}
	return toTimesheet(row), nil
}

// SaveTransition persists ts if its stored status is still prev. Approving
// locks every entry of the timesheet in the same transaction.
func (r *SQLiteRepository) SaveTransition(ctx context.Context, ts core.Timesheet, prev core.TimesheetStatus) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	n, err := q.UpdateTimesheetStatus(ctx, fromTimesheet(ts), string(prev))
	if err != nil {
		return fmt.Errorf("update timesheet %s: %w", ts.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("timesheet %s no longer %s: %w", ts.ID, prev, core.ErrInvalidTransition)
	}
	if ts.Status == core.StatusApproved {
		locked, err := q.LockTimesheetEntries(ctx, ts.ID, true)
		if err != nil {
			return fmt.Errorf("lock entries of timesheet %s: %w", ts.ID, err)
		}
		slog.DebugContext(ctx, "Locked timesheet entries", "timesheet_id", ts.ID, "count", locked)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit timesheet %s: %w", ts.ID, err)
	}

	slog.InfoContext(ctx, "Timesheet status changed",
		"timesheet_id", ts.ID,
		"from", prev,
		"to", ts.Status)
	return nil
}

// ListTimesheetsByStatus lists timesheets in status, restricted to userIDs
// unless it is nil.
func (r *SQLiteRepository) ListTimesheetsByStatus(ctx context.Context, status core.TimesheetStatus, userIDs []string) ([]core.Timesheet, error) {
	rows, err := r.queries.ListTimesheetsByStatus(ctx, string(status), userIDs)
	if err != nil {
		return nil, fmt.Errorf("list %s timesheets: %w", status, err)
	}
	out := make([]core.Timesheet, len(rows))
	for i, row := range rows {
		out[i] = toTimesheet(row)
	}
	return out, nil
}

func toTimesheet(row Timesheet) core.Timesheet {
	ts := core.Timesheet{
		ID:              row.ID,
		UserID:          row.UserID,
		Status:          core.TimesheetStatus(row.Status),
		ReviewerID:      row.ReviewerID.String,
		RejectionReason: row.RejectionReason,
	}
	if d, err := core.ParseDate(row.WeekStart); err == nil {
		ts.WeekStart = d
	}
	if row.SubmittedAt.Valid {
		t := row.SubmittedAt.Time
		ts.SubmittedAt = &t
	}
	if row.ReviewedAt.Valid {
		t := row.ReviewedAt.Time
		ts.ReviewedAt = &t
	}
	return ts
}

func fromTimesheet(ts core.Timesheet) Timesheet {
	row := Timesheet{
		ID:              ts.ID,
		UserID:          ts.UserID,
		WeekStart:       ts.WeekStart.String(),
		Status:          string(ts.Status),
		ReviewerID:      nullString(ts.ReviewerID),
		RejectionReason: ts.RejectionReason,
	}
	if ts.SubmittedAt != nil {
		row.SubmittedAt = sql.NullTime{Time: ts.SubmittedAt.UTC(), Valid: true}
	}
	if ts.ReviewedAt != nil {
		row.ReviewedAt = sql.NullTime{Time: ts.ReviewedAt.UTC(), Valid: true}
	}
	return row
}

// CreateTimeEntry stores e. Nil references are stored as NULL.
func (r *SQLiteRepository) CreateTimeEntry(ctx context.Context, e core.TimeEntry) (core.TimeEntry, error) {
	if err := e.Validate(); err != nil {
		return e, err
	}
	e.ID = newID(e.ID)
	err := r.queries.CreateTimeEntry(ctx, CreateTimeEntryParams{
		ID:          e.ID,
		Date:        e.Date.String(),
		Hours:       e.Hours.String(),
		ClientID:    refID(e.Client),
		ProjectID:   refID(e.Project),
		TaskID:      refID(e.Task),
		UserID:      refID(e.User),
		Notes:       e.Notes,
		IsBillable:  e.IsBillable,
		TimesheetID: nullString(e.TimesheetID),
	})
	if err != nil {
		return e, fmt.Errorf("create time entry: %w", err)
	}
	return e, nil
}

// ListEntries returns entries matching f, newest first.
func (r *SQLiteRepository) ListEntries(ctx context.Context, f core.EntryFilter) ([]core.TimeEntry, error) {
	var userIDs []string
	if f.UserIDs != nil {
		userIDs = dedupe(f.UserIDs)
	}
	start := time.Now()
	rows, err := r.queries.ListTimeEntries(ctx, EntryQuery{
		Start:              f.Start,
		End:                f.End,
		ClientIDs:          f.ClientIDs,
		ProjectIDs:         f.ProjectIDs,
		TaskIDs:            f.TaskIDs,
		UserIDs:            userIDs,
		ActiveProjectsOnly: f.ActiveProjectsOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("list time entries: %w", err)
	}
	entries, err := toEntries(rows)
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "Time entries loaded",
		"count", len(entries),
		"start", f.Start,
		"end", f.End,
		"duration_ms", time.Since(start).Milliseconds())
	return entries, nil
}

// GetTimeEntry returns one entry with its references resolved.
func (r *SQLiteRepository) GetTimeEntry(ctx context.Context, id string) (core.TimeEntry, error) {
	rows, err := r.queries.ListTimeEntries(ctx, EntryQuery{ID: id})
	if err != nil {
		return core.TimeEntry{}, fmt.Errorf("get time entry %s: %w", id, err)
	}
	if len(rows) == 0 {
		return core.TimeEntry{}, fmt.Errorf("time entry %s: %w", id, core.ErrNotFound)
	}
	entries, err := toEntries(rows)
	if err != nil {
		return core.TimeEntry{}, err
	}
	return entries[0], nil
}

// UpdateTimeEntry rewrites the editable fields of e. Entries of an approved
// timesheet are locked and fail with core.ErrLocked.
func (r *SQLiteRepository) UpdateTimeEntry(ctx context.Context, e core.TimeEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	n, err := r.queries.UpdateTimeEntry(ctx, UpdateTimeEntryParams{
		ID:         e.ID,
		Date:       e.Date.String(),
		Hours:      e.Hours.String(),
		ClientID:   refID(e.Client),
		ProjectID:  refID(e.Project),
		TaskID:     refID(e.Task),
		Notes:      e.Notes,
		IsBillable: e.IsBillable,
	})
	if err != nil {
		return fmt.Errorf("update time entry %s: %w", e.ID, err)
	}
	if n > 0 {
		return nil
	}
	if _, err := r.GetTimeEntry(ctx, e.ID); err != nil {
		return err
	}
	return fmt.Errorf("time entry %s: %w", e.ID, core.ErrLocked)
}

// EntriesForTimesheet returns the entries attached to a timesheet.
func (r *SQLiteRepository) EntriesForTimesheet(ctx context.Context, timesheetID string) ([]core.TimeEntry, error) {
	rows, err := r.queries.ListTimeEntries(ctx, EntryQuery{TimesheetID: timesheetID})
	if err != nil {
		return nil, fmt.Errorf("list entries of timesheet %s: %w", timesheetID, err)
	}
	return toEntries(rows)
}

func toEntries(rows []TimeEntryRow) ([]core.TimeEntry, error) {
	entries := make([]core.TimeEntry, len(rows))
	for i, row := range rows {
		date, err := core.ParseDate(row.Date)
		if err != nil {
			return nil, fmt.Errorf("entry %s: parse date %q: %w", row.ID, row.Date, err)
		}
		hours, err := decimal.NewFromString(row.Hours)
		if err != nil {
			return nil, fmt.Errorf("entry %s: parse hours %q: %w", row.ID, row.Hours, err)
		}
		entries[i] = core.TimeEntry{
			ID:          row.ID,
			Date:        date,
			Hours:       hours,
			Client:      toRef(row.ClientID, row.ClientName),
			Project:     toRef(row.ProjectID, row.ProjectName),
			Task:        toRef(row.TaskID, row.TaskName),
			User:        toRef(row.UserID, row.UserName),
			Notes:       row.Notes,
			IsBillable:  row.IsBillable,
			TimesheetID: row.TimesheetID.String,
			Locked:      row.Locked,
		}
	}
	return entries, nil
}

// PendingHoursForTask sums hours logged against a task that are not approved.
func (r *SQLiteRepository) PendingHoursForTask(ctx context.Context, taskID string) (decimal.Decimal, error) {
	return r.pendingHours(ctx, "e.task_id", taskID)
}

// PendingHoursForUser sums a user's hours that are not approved.
func (r *SQLiteRepository) PendingHoursForUser(ctx context.Context, userID string) (decimal.Decimal, error) {
	return r.pendingHours(ctx, "e.user_id", userID)
}

func (r *SQLiteRepository) pendingHours(ctx context.Context, column, id string) (decimal.Decimal, error) {
	values, err := r.queries.PendingHours(ctx, column, id)
	if err != nil {
		return decimal.Zero, fmt.Errorf("pending hours for %s: %w", id, err)
	}
	total := decimal.Zero
	for _, v := range values {
		h, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, fmt.Errorf("pending hours for %s: parse %q: %w", id, v, err)
		}
		total = total.Add(h)
	}
	return total, nil
}

func (r *SQLiteRepository) GetPreference(ctx context.Context, userID, key string) (string, error) {
	v, err := r.queries.GetPreference(ctx, userID, key)
	if err != nil {
		return "", notFound(err, "preference", key)
	}
	return v, nil
}

func (r *SQLiteRepository) SetPreference(ctx context.Context, userID, key, value string) error {
	if err := r.queries.SetPreference(ctx, userID, key, value); err != nil {
		return fmt.Errorf("set preference %s: %w", key, err)
	}
	return nil
}

func refID(ref *core.Ref) sql.NullString {
	if ref == nil {
		return sql.NullString{}
	}
	return nullString(ref.ID)
}

func toRef(id, name sql.NullString) *core.Ref {
	if !id.Valid || id.String == "" {
		return nil
	}
	return &core.Ref{ID: id.String, Name: name.String}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
