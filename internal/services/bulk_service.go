package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"timesheets/internal/cache"
	"timesheets/internal/core"
	"timesheets/internal/optimistic"

	"github.com/shopspring/decimal"
)

const (
	BulkArchive BulkAction = "archive"
	BulkDelete  BulkAction = "delete"
)

const tasksKey = "tasks:active"

type BulkAction string

// ParseBulkAction accepts "archive" or "delete".
func ParseBulkAction(s string) (BulkAction, error) {
	switch a := BulkAction(strings.ToLower(strings.TrimSpace(s))); a {
	case BulkArchive, BulkDelete:
		return a, nil
	}
	return "", fmt.Errorf("unknown bulk action %q", s)
}

func (a BulkAction) past() string {
	if a == BulkDelete {
		return "Deleted"
	}
	return "Archived"
}

// PendingHoursError rejects archiving or deleting something that still has
// hours awaiting approval. Its message is shown to users verbatim.
type PendingHoursError struct {
	Action  BulkAction
	Subject string
	Hours   decimal.Decimal
}

func (e *PendingHoursError) Error() string {
	return fmt.Sprintf("cannot %s %s with %s pending hours", e.Action, e.Subject, core.FormatHours(e.Hours))
}

func (e *PendingHoursError) Unwrap() error { return core.ErrPendingHours }

type ItemError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// BulkResult is the per-item outcome of a bulk operation.
type BulkResult struct {
	Action       BulkAction
	SuccessCount int
	Succeeded    []string
	Errors       []ItemError
}

func (r BulkResult) OK() bool { return len(r.Errors) == 0 }

// Message summarizes the outcome, e.g. "Archived 3, 2 failed".
func (r BulkResult) Message() string {
	msg := fmt.Sprintf("%s %d", r.Action.past(), r.SuccessCount)
	if len(r.Errors) > 0 {
		msg += fmt.Sprintf(", %d failed", len(r.Errors))
	}
	return msg
}

// BulkStore is the persistence bulk operations need.
type BulkStore interface {
	ListTasks(ctx context.Context, opts core.ListOptions) ([]core.Task, error)
	ArchiveTask(ctx context.Context, id string) error
	DeleteTask(ctx context.Context, id string) error
	ArchiveUser(ctx context.Context, id string) error
	GetUser(ctx context.Context, id string) (core.User, error)
	PendingHoursForTask(ctx context.Context, taskID string) (decimal.Decimal, error)
	PendingHoursForUser(ctx context.Context, userID string) (decimal.Decimal, error)
	TeamsManagedBy(ctx context.Context, managerID string) ([]core.Team, error)
}

// OptionsInvalidator drops cached report filter options.
type OptionsInvalidator interface {
	InvalidateOptions()
}

// BulkService archives or deletes tasks and archives team members, one
// item at a time. The cached task listing is updated optimistically and
// failed items are restored afterwards.
type BulkService struct {
	store   BulkStore
	tasks   cache.Cache[[]core.Task]
	options OptionsInvalidator
}

func NewBulkService(store BulkStore, tasks cache.Cache[[]core.Task], options OptionsInvalidator) *BulkService {
	return &BulkService{store: store, tasks: tasks, options: options}
}

// Tasks returns the active task listing, cached.
func (s *BulkService) Tasks(ctx context.Context) ([]core.Task, error) {
	if s.tasks != nil {
		if tasks, ok := s.tasks.Get(tasksKey); ok {
			return tasks, nil
		}
	}
	tasks, err := s.store.ListTasks(ctx, core.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	if s.tasks != nil {
		s.tasks.Set(tasksKey, tasks)
	}
	return tasks, nil
}

// BulkTasks applies action to every task in ids. Items with pending hours
// fail with a PendingHoursError; the rest are processed independently.
func (s *BulkService) BulkTasks(ctx context.Context, caller core.User, action BulkAction, ids []string) (BulkResult, error) {
	result := BulkResult{Action: action}
	if err := requireManager(caller, fmt.Sprintf("bulk %s tasks", action)); err != nil {
		return result, err
	}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return result, core.ErrNoItems
	}

	var u *optimistic.Update[[]core.Task]
	if s.tasks != nil {
		if _, err := s.Tasks(ctx); err != nil {
			slog.WarnContext(ctx, "Task listing unavailable, skipping optimistic update", "error", err)
		}
		u = optimistic.New[[]core.Task](optimistic.CacheStore[[]core.Task]{Cache: s.tasks, Key: tasksKey})
		remove := toSet(ids)
		u.Apply(func(tasks []core.Task) []core.Task {
			return filterTasks(tasks, func(t core.Task) bool {
				_, gone := remove[t.ID]
				return !gone
			})
		})
	}

	failed := map[string]struct{}{}
	for _, id := range ids {
		if err := s.taskItem(ctx, action, id); err != nil {
			failed[id] = struct{}{}
			result.Errors = append(result.Errors, ItemError{ID: id, Error: err.Error()})
			slog.WarnContext(ctx, "Bulk task item failed", "action", action, "task_id", id, "error", err)
			continue
		}
		result.SuccessCount++
		result.Succeeded = append(result.Succeeded, id)
	}

	if u != nil {
		_ = u.Reconcile(func(snapshot, current []core.Task) []core.Task {
			return filterTasks(snapshot, func(t core.Task) bool {
				if _, ok := failed[t.ID]; ok {
					return true
				}
				return containsTask(current, t.ID)
			})
		})
	}
	if result.SuccessCount > 0 && s.options != nil {
		s.options.InvalidateOptions()
	}

	slog.InfoContext(ctx, "Bulk task operation completed",
		"action", action,
		"requested", len(ids),
		"succeeded", result.SuccessCount,
		"failed", len(result.Errors),
		"actor_id", caller.ID)
	return result, nil
}

func (s *BulkService) taskItem(ctx context.Context, action BulkAction, id string) error {
	pending, err := s.store.PendingHoursForTask(ctx, id)
	if err != nil {
		return err
	}
	if pending.IsPositive() {
		return &PendingHoursError{Action: action, Subject: "task", Hours: pending}
	}
	if action == BulkDelete {
		return s.store.DeleteTask(ctx, id)
	}
	return s.store.ArchiveTask(ctx, id)
}

// ArchiveMember archives a user. Admins may archive anyone else; managers
// only members of the teams they manage.
func (s *BulkService) ArchiveMember(ctx context.Context, caller core.User, id string) error {
	if id == caller.ID {
		return fmt.Errorf("cannot archive yourself: %w", core.ErrForbidden)
	}
	switch caller.Role {
	case core.RoleAdmin:
	case core.RoleManager:
		teams, err := s.store.TeamsManagedBy(ctx, caller.ID)
		if err != nil {
			return fmt.Errorf("load teams: %w", err)
		}
		if !manages(teams, id) {
			return fmt.Errorf("archive member %s: %w", id, core.ErrForbidden)
		}
	default:
		return fmt.Errorf("archive member %s: %w", id, core.ErrForbidden)
	}

	if _, err := s.store.GetUser(ctx, id); err != nil {
		return err
	}
	pending, err := s.store.PendingHoursForUser(ctx, id)
	if err != nil {
		return err
	}
	if pending.IsPositive() {
		return &PendingHoursError{Action: BulkArchive, Subject: "member", Hours: pending}
	}
	if err := s.store.ArchiveUser(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Archived team member", "user_id", id, "actor_id", caller.ID)
	return nil
}

func manages(teams []core.Team, userID string) bool {
	for _, t := range teams {
		for _, m := range t.MemberIDs {
			if m == userID {
				return true
			}
		}
	}
	return false
}

func filterTasks(tasks []core.Task, keep func(core.Task) bool) []core.Task {
	out := make([]core.Task, 0, len(tasks))
	for _, t := range tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

func containsTask(tasks []core.Task, id string) bool {
	for _, t := range tasks {
		if t.ID == id {
			return true
		}
	}
	return false
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// uniqueIDs trims, drops blanks and duplicates, keeping first occurrence.
func uniqueIDs(ids []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
