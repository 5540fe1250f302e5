package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"timesheets/internal/cache"
	"timesheets/internal/core"

	"github.com/shopspring/decimal"
)

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) InvalidateOptions() { c.calls++ }

func TestParseBulkAction(t *testing.T) {
	tests := []struct {
		in      string
		want    BulkAction
		wantErr bool
	}{
		{"archive", BulkArchive, false},
		{" DELETE ", BulkDelete, false},
		{"purge", "", true},
	}
	for _, tt := range tests {
		got, err := ParseBulkAction(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseBulkAction(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestBulkResult_Message(t *testing.T) {
	tests := []struct {
		r    BulkResult
		want string
	}{
		{BulkResult{Action: BulkArchive, SuccessCount: 3, Errors: make([]ItemError, 2)}, "Archived 3, 2 failed"},
		{BulkResult{Action: BulkDelete, SuccessCount: 1}, "Deleted 1"},
		{BulkResult{Action: BulkArchive}, "Archived 0"},
	}
	for _, tt := range tests {
		if got := tt.r.Message(); got != tt.want {
			t.Errorf("Message() = %q, want %q", got, tt.want)
		}
	}
}

func TestBulkService_ArchiveTasksPartialFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	idle, err := f.repo.CreateTask(ctx, core.Task{Name: "Idle"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	tasks := cache.NewLRUCache[[]core.Task](4, time.Minute)
	inv := &countingInvalidator{}
	svc := NewBulkService(f.repo, tasks, inv)

	before, err := svc.Tasks(ctx)
	if err != nil {
		t.Fatalf("Tasks: %v", err)
	}
	if len(before) != 2 {
		t.Fatalf("got %d tasks, want 2", len(before))
	}

	res, err := svc.BulkTasks(ctx, f.manager, BulkArchive, []string{f.task.ID, idle.ID, idle.ID, "missing"})
	if err != nil {
		t.Fatalf("BulkTasks: %v", err)
	}
	if res.SuccessCount != 1 || len(res.Errors) != 2 {
		t.Fatalf("result = %+v", res)
	}
	if res.Message() != "Archived 1, 2 failed" {
		t.Errorf("Message() = %q", res.Message())
	}
	if res.Errors[0].ID != f.task.ID || res.Errors[0].Error != "cannot archive task with 6.50 pending hours" {
		t.Errorf("first error = %+v", res.Errors[0])
	}
	if inv.calls != 1 {
		t.Errorf("options invalidated %d times, want 1", inv.calls)
	}

	// The failed task is restored in the cached listing, the archived one is gone.
	cached, ok := tasks.Get(tasksKey)
	if !ok {
		t.Fatal("task listing missing from cache")
	}
	if len(cached) != 1 || cached[0].ID != f.task.ID {
		t.Errorf("cached tasks = %+v, want only %s", cached, f.task.ID)
	}
}

func TestBulkService_DeleteTasks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	idle, _ := f.repo.CreateTask(ctx, core.Task{Name: "Idle"})
	svc := NewBulkService(f.repo, nil, nil)

	res, err := svc.BulkTasks(ctx, f.admin, BulkDelete, []string{idle.ID})
	if err != nil {
		t.Fatalf("BulkTasks: %v", err)
	}
	if !res.OK() || res.Message() != "Deleted 1" {
		t.Errorf("result = %+v", res)
	}
	all, _ := f.repo.ListTasks(ctx, core.ListOptions{IncludeArchived: true})
	for _, task := range all {
		if task.ID == idle.ID {
			t.Error("deleted task still listed")
		}
	}
}

func TestBulkService_Guards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewBulkService(f.repo, nil, nil)

	if _, err := svc.BulkTasks(ctx, f.member, BulkArchive, []string{f.task.ID}); !errors.Is(err, core.ErrForbidden) {
		t.Errorf("user bulk err = %v, want ErrForbidden", err)
	}
	if _, err := svc.BulkTasks(ctx, f.admin, BulkArchive, []string{" ", ""}); !errors.Is(err, core.ErrNoItems) {
		t.Errorf("empty bulk err = %v, want ErrNoItems", err)
	}
}

func TestBulkService_ArchiveMember(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewBulkService(f.repo, nil, nil)

	err := svc.ArchiveMember(ctx, f.manager, f.member.ID)
	var pe *PendingHoursError
	if !errors.As(err, &pe) || !errors.Is(err, core.ErrPendingHours) {
		t.Fatalf("ArchiveMember with pending hours err = %v", err)
	}
	if !pe.Hours.Equal(decimal.RequireFromString("6.5")) {
		t.Errorf("pending hours = %s", pe.Hours)
	}

	tests := []struct {
		name   string
		caller core.User
		id     string
		want   error
	}{
		{"self", f.manager, f.manager.ID, core.ErrForbidden},
		{"not my team", f.manager, f.other.ID, core.ErrForbidden},
		{"plain user", f.member, f.other.ID, core.ErrForbidden},
		{"missing user", f.admin, "missing", core.ErrNotFound},
		{"admin archives idle user", f.admin, f.other.ID, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.ArchiveMember(ctx, tt.caller, tt.id); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	archived, err := f.repo.GetUser(ctx, f.other.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if !archived.IsArchived {
		t.Error("user not archived")
	}
}
