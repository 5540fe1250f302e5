package storage

import (
	"context"
	"database/sql"
	"strings"
)

// inClause renders "col IN (?, ?, ...)" for ids. An empty list renders a
// predicate that matches nothing.
func inClause(col string, ids []string) (string, []interface{}) {
	if len(ids) == 0 {
		return "1 = 0", nil
	}
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return col + " IN (" + strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ") + ")", args
}

// listWhere builds the WHERE clause shared by reference listings.
func listWhere(includeArchived bool, ids []string) (string, []interface{}) {
	if len(ids) > 0 {
		clause, args := inClause("id", ids)
		return " WHERE " + clause, args
	}
	if includeArchived {
		return "", nil
	}
	return " WHERE is_archived = 0", nil
}

const createClient = `INSERT INTO clients (id, name, is_active, is_archived) VALUES (?, ?, ?, ?)`

func (q *Queries) CreateClient(ctx context.Context, arg Client) error {
	_, err := q.db.ExecContext(ctx, createClient, arg.ID, arg.Name, arg.IsActive, arg.IsArchived)
	return err
}

func (q *Queries) ListClients(ctx context.Context, includeArchived bool, ids []string) ([]Client, error) {
	where, args := listWhere(includeArchived, ids)
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, name, is_active, is_archived FROM clients`+where+` ORDER BY name COLLATE NOCASE`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Client
	for rows.Next() {
		var i Client
		if err := rows.Scan(&i.ID, &i.Name, &i.IsActive, &i.IsArchived); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createProject = `INSERT INTO projects (id, name, client_id, is_active, is_archived, is_pinned, budget_hours)
VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateProject(ctx context.Context, arg Project) error {
	_, err := q.db.ExecContext(ctx, createProject,
		arg.ID, arg.Name, arg.ClientID, arg.IsActive, arg.IsArchived, arg.IsPinned, arg.BudgetHours)
	return err
}

func (q *Queries) ListProjects(ctx context.Context, includeArchived bool, ids []string) ([]Project, error) {
	where, args := listWhere(includeArchived, ids)
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, name, client_id, is_active, is_archived, is_pinned, budget_hours FROM projects`+where+
			` ORDER BY is_pinned DESC, name COLLATE NOCASE`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Project
	for rows.Next() {
		var i Project
		if err := rows.Scan(&i.ID, &i.Name, &i.ClientID, &i.IsActive, &i.IsArchived, &i.IsPinned, &i.BudgetHours); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const setProjectPinned = `UPDATE projects SET is_pinned = ? WHERE id = ?`

func (q *Queries) SetProjectPinned(ctx context.Context, id string, pinned bool) (int64, error) {
	res, err := q.db.ExecContext(ctx, setProjectPinned, pinned, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const setProjectArchived = `UPDATE projects SET is_archived = ?, is_active = NOT ? WHERE id = ?`

func (q *Queries) SetProjectArchived(ctx context.Context, id string, archived bool) (int64, error) {
	res, err := q.db.ExecContext(ctx, setProjectArchived, archived, archived, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const createTask = `INSERT INTO tasks (id, name, is_billable, is_archived) VALUES (?, ?, ?, ?)`

func (q *Queries) CreateTask(ctx context.Context, arg Task) error {
	_, err := q.db.ExecContext(ctx, createTask, arg.ID, arg.Name, arg.IsBillable, arg.IsArchived)
	return err
}

func (q *Queries) ListTasks(ctx context.Context, includeArchived bool, ids []string) ([]Task, error) {
	where, args := listWhere(includeArchived, ids)
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, name, is_billable, is_archived FROM tasks`+where+` ORDER BY name COLLATE NOCASE`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Task
	for rows.Next() {
		var i Task
		if err := rows.Scan(&i.ID, &i.Name, &i.IsBillable, &i.IsArchived); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const archiveTask = `UPDATE tasks SET is_archived = 1 WHERE id = ?`

func (q *Queries) ArchiveTask(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, archiveTask, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteTask = `DELETE FROM tasks WHERE id = ?`

func (q *Queries) DeleteTask(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTask, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const createUser = `INSERT INTO users (id, name, email, role, is_archived) VALUES (?, ?, ?, ?, ?)`

func (q *Queries) CreateUser(ctx context.Context, arg User) error {
	_, err := q.db.ExecContext(ctx, createUser, arg.ID, arg.Name, arg.Email, arg.Role, arg.IsArchived)
	return err
}

const getUser = `SELECT id, name, email, role, is_archived FROM users WHERE id = ?`

func (q *Queries) GetUser(ctx context.Context, id string) (User, error) {
	var i User
	err := q.db.QueryRowContext(ctx, getUser, id).Scan(&i.ID, &i.Name, &i.Email, &i.Role, &i.IsArchived)
	return i, err
}

const archiveUser = `UPDATE users SET is_archived = 1 WHERE id = ?`

func (q *Queries) ArchiveUser(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, archiveUser, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const createTeam = `INSERT INTO teams (id, name, manager_id) VALUES (?, ?, ?)`

func (q *Queries) CreateTeam(ctx context.Context, arg Team) error {
	_, err := q.db.ExecContext(ctx, createTeam, arg.ID, arg.Name, arg.ManagerID)
	return err
}

const addTeamMember = `INSERT OR IGNORE INTO team_members (team_id, user_id) VALUES (?, ?)`

func (q *Queries) AddTeamMember(ctx context.Context, teamID, userID string) error {
	_, err := q.db.ExecContext(ctx, addTeamMember, teamID, userID)
	return err
}

const teamsByManager = `SELECT id, name, manager_id FROM teams WHERE manager_id = ? ORDER BY name`

func (q *Queries) TeamsByManager(ctx context.Context, managerID string) ([]Team, error) {
	rows, err := q.db.QueryContext(ctx, teamsByManager, managerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Team
	for rows.Next() {
		var i Team
		if err := rows.Scan(&i.ID, &i.Name, &i.ManagerID); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const teamMembers = `SELECT user_id FROM team_members WHERE team_id = ? ORDER BY user_id`

func (q *Queries) TeamMembers(ctx context.Context, teamID string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, teamMembers, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const timesheetColumns = `id, user_id, week_start, status, submitted_at, reviewed_at, reviewer_id, rejection_reason`

func scanTimesheet(row interface{ Scan(...interface{}) error }) (Timesheet, error) {
	var i Timesheet
	err := row.Scan(&i.ID, &i.UserID, &i.WeekStart, &i.Status, &i.SubmittedAt, &i.ReviewedAt, &i.ReviewerID, &i.RejectionReason)
	return i, err
}

const createTimesheet = `INSERT INTO timesheets (id, user_id, week_start, status) VALUES (?, ?, ?, ?)`

func (q *Queries) CreateTimesheet(ctx context.Context, arg Timesheet) error {
	_, err := q.db.ExecContext(ctx, createTimesheet, arg.ID, arg.UserID, arg.WeekStart, arg.Status)
	return err
}

func (q *Queries) GetTimesheet(ctx context.Context, id string) (Timesheet, error) {
	return scanTimesheet(q.db.QueryRowContext(ctx, `SELECT `+timesheetColumns+` FROM timesheets WHERE id = ?`, id))
}

const updateTimesheetStatus = `UPDATE timesheets
SET status = ?, submitted_at = ?, reviewed_at = ?, reviewer_id = ?, rejection_reason = ?
WHERE id = ? AND status = ?`

// UpdateTimesheetStatus is a compare-and-set on the previous status.
func (q *Queries) UpdateTimesheetStatus(ctx context.Context, arg Timesheet, prevStatus string) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTimesheetStatus,
		arg.Status, arg.SubmittedAt, arg.ReviewedAt, arg.ReviewerID, arg.RejectionReason, arg.ID, prevStatus)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) ListTimesheetsByStatus(ctx context.Context, status string, userIDs []string) ([]Timesheet, error) {
	query := `SELECT ` + timesheetColumns + ` FROM timesheets WHERE status = ?`
	args := []interface{}{status}
	if userIDs != nil {
		clause, inArgs := inClause("user_id", userIDs)
		query += " AND " + clause
		args = append(args, inArgs...)
	}
	rows, err := q.db.QueryContext(ctx, query+` ORDER BY week_start DESC, user_id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Timesheet
	for rows.Next() {
		i, err := scanTimesheet(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const lockTimesheetEntries = `UPDATE time_entries SET locked = ? WHERE timesheet_id = ?`

func (q *Queries) LockTimesheetEntries(ctx context.Context, timesheetID string, locked bool) (int64, error) {
	res, err := q.db.ExecContext(ctx, lockTimesheetEntries, locked, timesheetID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const createTimeEntry = `INSERT INTO time_entries
(id, date, hours, client_id, project_id, task_id, user_id, notes, is_billable, timesheet_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTimeEntry(ctx context.Context, arg CreateTimeEntryParams) error {
	_, err := q.db.ExecContext(ctx, createTimeEntry,
		arg.ID, arg.Date, arg.Hours, arg.ClientID, arg.ProjectID, arg.TaskID, arg.UserID,
		arg.Notes, arg.IsBillable, arg.TimesheetID)
	return err
}

const entrySelect = `SELECT e.id, e.date, e.hours, e.notes, e.is_billable, e.timesheet_id, e.locked,
    e.client_id, c.name, e.project_id, p.name, e.task_id, t.name, e.user_id, u.name
FROM time_entries e
LEFT JOIN clients c ON c.id = e.client_id
LEFT JOIN projects p ON p.id = e.project_id
LEFT JOIN tasks t ON t.id = e.task_id
LEFT JOIN users u ON u.id = e.user_id`

// EntryQuery carries the optional predicates of ListTimeEntries. Nil slices
// are ignored; UserIDs distinguishes nil (unrestricted) from empty (none).
type EntryQuery struct {
	Start              string
	End                string
	ClientIDs          []string
	ProjectIDs         []string
	TaskIDs            []string
	UserIDs            []string
	ID                 string
	TimesheetID        string
	ActiveProjectsOnly bool
}

func (q *Queries) ListTimeEntries(ctx context.Context, arg EntryQuery) ([]TimeEntryRow, error) {
	var (
		where []string
		args  []interface{}
	)
	if arg.Start != "" {
		where = append(where, "e.date >= ?")
		args = append(args, arg.Start)
	}
	if arg.End != "" {
		where = append(where, "e.date <= ?")
		args = append(args, arg.End)
	}
	for _, f := range []struct {
		col string
		ids []string
	}{
		{"e.client_id", arg.ClientIDs},
		{"e.project_id", arg.ProjectIDs},
		{"e.task_id", arg.TaskIDs},
	} {
		if len(f.ids) == 0 {
			continue
		}
		clause, inArgs := inClause(f.col, f.ids)
		where = append(where, clause)
		args = append(args, inArgs...)
	}
	if arg.UserIDs != nil {
		clause, inArgs := inClause("e.user_id", arg.UserIDs)
		where = append(where, clause)
		args = append(args, inArgs...)
	}
	if arg.ID != "" {
		where = append(where, "e.id = ?")
		args = append(args, arg.ID)
	}
	if arg.TimesheetID != "" {
		where = append(where, "e.timesheet_id = ?")
		args = append(args, arg.TimesheetID)
	}
	if arg.ActiveProjectsOnly {
		where = append(where, "p.is_active = 1 AND p.is_archived = 0")
	}

	query := entrySelect
	if len(where) > 0 {
		query += "\nWHERE " + strings.Join(where, " AND ")
	}
	query += "\nORDER BY e.date DESC, e.created_at DESC, e.rowid DESC"

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TimeEntryRow
	for rows.Next() {
		var i TimeEntryRow
		if err := rows.Scan(
			&i.ID, &i.Date, &i.Hours, &i.Notes, &i.IsBillable, &i.TimesheetID, &i.Locked,
			&i.ClientID, &i.ClientName, &i.ProjectID, &i.ProjectName,
			&i.TaskID, &i.TaskName, &i.UserID, &i.UserName,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const updateTimeEntry = `UPDATE time_entries
SET date = ?, hours = ?, client_id = ?, project_id = ?, task_id = ?, notes = ?, is_billable = ?
WHERE id = ? AND locked = 0`

type UpdateTimeEntryParams struct {
	ID         string
	Date       string
	Hours      string
	ClientID   sql.NullString
	ProjectID  sql.NullString
	TaskID     sql.NullString
	Notes      string
	IsBillable bool
}

// UpdateTimeEntry rewrites an unlocked entry. Locked entries are left
// untouched and report zero rows.
func (q *Queries) UpdateTimeEntry(ctx context.Context, arg UpdateTimeEntryParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateTimeEntry,
		arg.Date, arg.Hours, arg.ClientID, arg.ProjectID, arg.TaskID, arg.Notes, arg.IsBillable, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// pendingHours lists the hours of entries whose timesheet is not approved,
// rejected ones included. Entries without a timesheet count as unsubmitted.
const pendingHours = `SELECT e.hours
FROM time_entries e
LEFT JOIN timesheets ts ON ts.id = e.timesheet_id
WHERE %s = ? AND (ts.id IS NULL OR ts.status <> 'approved')`

func (q *Queries) PendingHours(ctx context.Context, column, id string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, strings.Replace(pendingHours, "%s", column, 1), id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var hours []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		hours = append(hours, h)
	}
	return hours, rows.Err()
}

const getPreference = `SELECT value FROM user_preferences WHERE user_id = ? AND key = ?`

func (q *Queries) GetPreference(ctx context.Context, userID, key string) (string, error) {
	var value string
	err := q.db.QueryRowContext(ctx, getPreference, userID, key).Scan(&value)
	return value, err
}

const setPreference = `INSERT INTO user_preferences (user_id, key, value, updated_at)
VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (user_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

func (q *Queries) SetPreference(ctx context.Context, userID, key, value string) error {
	_, err := q.db.ExecContext(ctx, setPreference, userID, key, value)
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
