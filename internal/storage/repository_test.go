package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"timesheets/internal/core"

	"github.com/shopspring/decimal"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustEntry(t *testing.T, repo *SQLiteRepository, e core.TimeEntry) core.TimeEntry {
	t.Helper()
	created, err := repo.CreateTimeEntry(context.Background(), e)
	if err != nil {
		t.Fatalf("CreateTimeEntry: %v", err)
	}
	return created
}

func TestRunMigrations_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	repo.Close()

	version, err := RunMigrations(path)
	if err != nil {
		t.Fatalf("second RunMigrations: %v", err)
	}
	if version != 2 {
		t.Errorf("version = %d, want 2", version)
	}
}

func TestListClients_ArchivedVisibility(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	active, _ := repo.CreateClient(ctx, core.Client{Name: "Acme", IsActive: true})
	archived, _ := repo.CreateClient(ctx, core.Client{Name: "Old Co", IsArchived: true})

	tests := []struct {
		name string
		opts core.ListOptions
		want []string
	}{
		{"default hides archived", core.ListOptions{}, []string{active.ID}},
		{"include archived", core.ListOptions{IncludeArchived: true}, []string{active.ID, archived.ID}},
		{"explicit ids return archived", core.ListOptions{IDs: []string{archived.ID}}, []string{archived.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ListClients(ctx, tt.opts)
			if err != nil {
				t.Fatalf("ListClients: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d clients, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("client[%d] = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestListEntries_Filters(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	client, _ := repo.CreateClient(ctx, core.Client{Name: "Acme", IsActive: true})
	live, _ := repo.CreateProject(ctx, core.Project{Name: "Live", ClientID: client.ID, IsActive: true})
	dead, _ := repo.CreateProject(ctx, core.Project{Name: "Dead", ClientID: client.ID, IsArchived: true})
	u1, _ := repo.CreateUser(ctx, core.User{Name: "Ann", Role: core.RoleUser})
	u2, _ := repo.CreateUser(ctx, core.User{Name: "Bob", Role: core.RoleUser})

	hours := decimal.RequireFromString("1.5")
	mustEntry(t, repo, core.TimeEntry{Date: core.NewDate(2024, 1, 1), Hours: hours, Project: &core.Ref{ID: live.ID}, User: &core.Ref{ID: u1.ID}})
	mustEntry(t, repo, core.TimeEntry{Date: core.NewDate(2024, 1, 3), Hours: hours, Project: &core.Ref{ID: dead.ID}, User: &core.Ref{ID: u2.ID}})
	mustEntry(t, repo, core.TimeEntry{Date: core.NewDate(2024, 1, 2), Hours: hours, User: &core.Ref{ID: u2.ID}})

	tests := []struct {
		name      string
		filter    core.EntryFilter
		wantDates []string
	}{
		{"unrestricted newest first", core.EntryFilter{}, []string{"2024-01-03", "2024-01-02", "2024-01-01"}},
		{"date bounds", core.EntryFilter{Start: "2024-01-02", End: "2024-01-02"}, []string{"2024-01-02"}},
		{"user scope", core.EntryFilter{UserIDs: []string{u1.ID}}, []string{"2024-01-01"}},
		{"empty scope matches nothing", core.EntryFilter{UserIDs: []string{}}, nil},
		{"project filter", core.EntryFilter{ProjectIDs: []string{dead.ID}}, []string{"2024-01-03"}},
		{"active projects only", core.EntryFilter{ActiveProjectsOnly: true}, []string{"2024-01-01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ListEntries(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListEntries: %v", err)
			}
			if len(got) != len(tt.wantDates) {
				t.Fatalf("got %d entries, want %d", len(got), len(tt.wantDates))
			}
			for i, d := range tt.wantDates {
				if got[i].Date.String() != d {
					t.Errorf("entry[%d].Date = %s, want %s", i, got[i].Date, d)
				}
			}
		})
	}
}

func TestListEntries_DanglingReference(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	mustEntry(t, repo, core.TimeEntry{
		Date:   core.NewDate(2024, 2, 1),
		Hours:  decimal.NewFromInt(2),
		Client: &core.Ref{ID: "gone"},
	})

	got, err := repo.ListEntries(ctx, core.EntryFilter{})
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d entries, want 1", len(got))
	}
	e := got[0]
	if e.Client == nil || e.Client.ID != "gone" || e.Client.Name != "" {
		t.Errorf("Client = %+v, want dangling ref with id gone", e.Client)
	}
	if e.Project != nil {
		t.Errorf("Project = %+v, want nil", e.Project)
	}
	if !e.Hours.Equal(decimal.NewFromInt(2)) {
		t.Errorf("Hours = %s, want 2", e.Hours)
	}
}

func TestSaveTransition_ApproveLocksEntries(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	user, _ := repo.CreateUser(ctx, core.User{Name: "Ann", Role: core.RoleUser})
	ts, err := repo.CreateTimesheet(ctx, core.Timesheet{UserID: user.ID, WeekStart: core.NewDate(2024, 1, 3)})
	if err != nil {
		t.Fatalf("CreateTimesheet: %v", err)
	}
	if ts.WeekStart.String() != "2024-01-01" {
		t.Errorf("WeekStart = %s, want Monday 2024-01-01", ts.WeekStart)
	}
	mustEntry(t, repo, core.TimeEntry{Date: core.NewDate(2024, 1, 2), Hours: decimal.NewFromInt(8), User: &core.Ref{ID: user.ID}, TimesheetID: ts.ID})

	now := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	for _, next := range []core.TimesheetStatus{core.StatusSubmitted, core.StatusApproved} {
		prev := ts.Status
		if err := ts.Transition(next, "mgr", now); err != nil {
			t.Fatalf("Transition(%s): %v", next, err)
		}
		if err := repo.SaveTransition(ctx, ts, prev); err != nil {
			t.Fatalf("SaveTransition(%s): %v", next, err)
		}
	}

	stored, err := repo.GetTimesheet(ctx, ts.ID)
	if err != nil {
		t.Fatalf("GetTimesheet: %v", err)
	}
	if stored.Status != core.StatusApproved || stored.ReviewerID != "mgr" || stored.ReviewedAt == nil {
		t.Errorf("stored timesheet = %+v", stored)
	}

	entries, err := repo.EntriesForTimesheet(ctx, ts.ID)
	if err != nil {
		t.Fatalf("EntriesForTimesheet: %v", err)
	}
	if len(entries) != 1 || !entries[0].Locked {
		t.Errorf("entries = %+v, want one locked entry", entries)
	}

	edit := entries[0]
	edit.Hours = decimal.NewFromInt(1)
	if err := repo.UpdateTimeEntry(ctx, edit); !errors.Is(err, core.ErrLocked) {
		t.Errorf("UpdateTimeEntry on locked entry err = %v, want ErrLocked", err)
	}
	edit.ID = "missing"
	if err := repo.UpdateTimeEntry(ctx, edit); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("UpdateTimeEntry on missing entry err = %v, want ErrNotFound", err)
	}

	// A stale writer still believing the sheet is submitted must lose.
	err = repo.SaveTransition(ctx, ts, core.StatusSubmitted)
	if !errors.Is(err, core.ErrInvalidTransition) {
		t.Errorf("stale SaveTransition err = %v, want ErrInvalidTransition", err)
	}
}

func TestPendingHours(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	task, _ := repo.CreateTask(ctx, core.Task{Name: "Dev"})
	user, _ := repo.CreateUser(ctx, core.User{Name: "Ann", Role: core.RoleUser})
	approved, _ := repo.CreateTimesheet(ctx, core.Timesheet{UserID: user.ID, WeekStart: core.NewDate(2024, 1, 1), Status: core.StatusApproved})
	submitted, _ := repo.CreateTimesheet(ctx, core.Timesheet{UserID: user.ID, WeekStart: core.NewDate(2024, 1, 8), Status: core.StatusSubmitted})
	rejected, _ := repo.CreateTimesheet(ctx, core.Timesheet{UserID: user.ID, WeekStart: core.NewDate(2024, 1, 22), Status: core.StatusRejected})

	ref := &core.Ref{ID: task.ID}
	uref := &core.Ref{ID: user.ID}
	mustEntry(t, repo, core.TimeEntry{Date: core.NewDate(2024, 1, 1), Hours: decimal.NewFromInt(4), Task: ref, User: uref, TimesheetID: approved.ID})
	mustEntry(t, repo, core.TimeEntry{Date: core.NewDate(2024, 1, 8), Hours: decimal.RequireFromString("2.25"), Task: ref, User: uref, TimesheetID: submitted.ID})
	mustEntry(t, repo, core.TimeEntry{Date: core.NewDate(2024, 1, 15), Hours: decimal.NewFromInt(1), Task: ref, User: uref})
	// Rejected hours are still not approved.
	mustEntry(t, repo, core.TimeEntry{Date: core.NewDate(2024, 1, 23), Hours: decimal.RequireFromString("0.5"), Task: ref, User: uref, TimesheetID: rejected.ID})

	got, err := repo.PendingHoursForTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("PendingHoursForTask: %v", err)
	}
	if want := decimal.RequireFromString("3.75"); !got.Equal(want) {
		t.Errorf("pending task hours = %s, want %s", got, want)
	}

	got, err = repo.PendingHoursForUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("PendingHoursForUser: %v", err)
	}
	if want := decimal.RequireFromString("3.75"); !got.Equal(want) {
		t.Errorf("pending user hours = %s, want %s", got, want)
	}
}

func TestMutations_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for name, fn := range map[string]func() error{
		"archive task": func() error { return repo.ArchiveTask(ctx, "missing") },
		"delete task":  func() error { return repo.DeleteTask(ctx, "missing") },
		"archive user": func() error { return repo.ArchiveUser(ctx, "missing") },
		"pin project":  func() error { return repo.SetProjectPinned(ctx, "missing", true) },
		"get user":     func() error { _, err := repo.GetUser(ctx, "missing"); return err },
	} {
		t.Run(name, func(t *testing.T) {
			if err := fn(); !errors.Is(err, core.ErrNotFound) {
				t.Errorf("err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestPreferences(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, err := repo.GetPreference(ctx, "u1", "week"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("GetPreference before set: err = %v, want ErrNotFound", err)
	}
	for _, v := range []string{"2024-01-01", "2024-01-08"} {
		if err := repo.SetPreference(ctx, "u1", "week", v); err != nil {
			t.Fatalf("SetPreference: %v", err)
		}
	}
	got, err := repo.GetPreference(ctx, "u1", "week")
	if err != nil {
		t.Fatalf("GetPreference: %v", err)
	}
	if got != "2024-01-08" {
		t.Errorf("preference = %q, want 2024-01-08", got)
	}
}

func TestTeamsManagedBy(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	mgr, _ := repo.CreateUser(ctx, core.User{Name: "Mia", Role: core.RoleManager})
	u1, _ := repo.CreateUser(ctx, core.User{Name: "Ann", Role: core.RoleUser})
	u2, _ := repo.CreateUser(ctx, core.User{Name: "Bob", Role: core.RoleUser})
	if _, err := repo.CreateTeam(ctx, core.Team{Name: "Core", ManagerID: mgr.ID, MemberIDs: []string{u1.ID, u2.ID}}); err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}

	teams, err := repo.TeamsManagedBy(ctx, mgr.ID)
	if err != nil {
		t.Fatalf("TeamsManagedBy: %v", err)
	}
	if len(teams) != 1 || len(teams[0].MemberIDs) != 2 {
		t.Fatalf("teams = %+v, want one team with two members", teams)
	}
}

func TestUpdateTimeEntry(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	client, _ := repo.CreateClient(ctx, core.Client{Name: "Acme", IsActive: true})
	e := mustEntry(t, repo, core.TimeEntry{Date: core.NewDate(2024, 2, 1), Hours: decimal.NewFromInt(2)})

	e.Hours = decimal.RequireFromString("2.75")
	e.Notes = "pairing"
	e.Client = &core.Ref{ID: client.ID}
	if err := repo.UpdateTimeEntry(ctx, e); err != nil {
		t.Fatalf("UpdateTimeEntry: %v", err)
	}

	got, err := repo.GetTimeEntry(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetTimeEntry: %v", err)
	}
	if !got.Hours.Equal(e.Hours) || got.Notes != "pairing" {
		t.Errorf("entry = %+v", got)
	}
	if got.Client == nil || got.Client.Name != "Acme" {
		t.Errorf("Client = %+v, want Acme", got.Client)
	}
}
