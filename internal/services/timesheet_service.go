package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"timesheets/internal/amqp"
	"timesheets/internal/core"
)

// TimesheetStore is the persistence the lifecycle needs.
type TimesheetStore interface {
	GetTimesheet(ctx context.Context, id string) (core.Timesheet, error)
	SaveTransition(ctx context.Context, ts core.Timesheet, prev core.TimesheetStatus) error
	ListTimesheetsByStatus(ctx context.Context, status core.TimesheetStatus, userIDs []string) ([]core.Timesheet, error)
	TeamsManagedBy(ctx context.Context, managerID string) ([]core.Team, error)
	GetTimeEntry(ctx context.Context, id string) (core.TimeEntry, error)
	UpdateTimeEntry(ctx context.Context, e core.TimeEntry) error
}

// Publisher announces timesheet status changes.
type Publisher interface {
	PublishTimesheetEvent(ctx context.Context, e *amqp.TimesheetEvent) error
}

// TimesheetService orchestrates the timesheet lifecycle across SQLite and AMQP
type TimesheetService struct {
	store     TimesheetStore
	publisher Publisher
	now       func() time.Time
}

// NewTimesheetService wires the lifecycle. publisher may be nil, in which
// case events are skipped.
func NewTimesheetService(store TimesheetStore, publisher Publisher) *TimesheetService {
	return &TimesheetService{
		store:     store,
		publisher: publisher,
		now:       time.Now,
	}
}

// Submit sends the caller's own timesheet for approval.
func (s *TimesheetService) Submit(ctx context.Context, caller core.User, id string) (core.Timesheet, error) {
	return s.transition(ctx, caller, id, s.requireOwner, func(ts *core.Timesheet, at time.Time) error {
		return ts.Transition(core.StatusSubmitted, caller.ID, at)
	})
}

// Approve accepts a submitted timesheet and locks its entries.
func (s *TimesheetService) Approve(ctx context.Context, caller core.User, id string) (core.Timesheet, error) {
	return s.transition(ctx, caller, id, s.requireReviewer, func(ts *core.Timesheet, at time.Time) error {
		return ts.Transition(core.StatusApproved, caller.ID, at)
	})
}

// Reject sends a submitted timesheet back to its owner.
func (s *TimesheetService) Reject(ctx context.Context, caller core.User, id, reason string) (core.Timesheet, error) {
	if strings.TrimSpace(reason) == "" {
		return core.Timesheet{}, core.ErrReasonRequired
	}
	return s.transition(ctx, caller, id, s.requireReviewer, func(ts *core.Timesheet, at time.Time) error {
		return ts.Reject(caller.ID, reason, at)
	})
}

// Resubmit sends a rejected timesheet back for approval unchanged.
func (s *TimesheetService) Resubmit(ctx context.Context, caller core.User, id string) (core.Timesheet, error) {
	return s.transition(ctx, caller, id, s.requireOwner, func(ts *core.Timesheet, at time.Time) error {
		if ts.Status != core.StatusRejected {
			return fmt.Errorf("%w: only rejected timesheets can be resubmitted", core.ErrInvalidTransition)
		}
		return ts.Transition(core.StatusSubmitted, caller.ID, at)
	})
}

// MarkEdited moves a rejected timesheet back to unsubmitted after its owner
// changed an entry. Timesheets in any other state are returned unchanged.
func (s *TimesheetService) MarkEdited(ctx context.Context, caller core.User, id string) (core.Timesheet, error) {
	ts, err := s.store.GetTimesheet(ctx, id)
	if err != nil {
		return ts, fmt.Errorf("get timesheet: %w", err)
	}
	if ts.Status != core.StatusRejected {
		return ts, nil
	}
	return s.transition(ctx, caller, id, s.requireOwner, func(ts *core.Timesheet, at time.Time) error {
		return ts.Transition(core.StatusUnsubmitted, caller.ID, at)
	})
}

// EditEntry updates one of the caller's entries. Entries of approved
// timesheets are locked. Editing an entry of a rejected timesheet reverts
// the timesheet to unsubmitted.
func (s *TimesheetService) EditEntry(ctx context.Context, caller core.User, e core.TimeEntry) (core.TimeEntry, error) {
	current, err := s.store.GetTimeEntry(ctx, e.ID)
	if err != nil {
		return e, fmt.Errorf("get entry: %w", err)
	}
	if current.User == nil || current.User.ID != caller.ID {
		if caller.Role != core.RoleAdmin {
			return e, fmt.Errorf("edit entry %s: %w", e.ID, core.ErrForbidden)
		}
	}
	if current.Locked {
		return e, fmt.Errorf("edit entry %s: %w", e.ID, core.ErrLocked)
	}

	e.User = current.User
	e.TimesheetID = current.TimesheetID
	if err := s.store.UpdateTimeEntry(ctx, e); err != nil {
		return e, fmt.Errorf("update entry: %w", err)
	}

	if e.TimesheetID != "" {
		owner := caller
		if current.User != nil {
			owner = core.User{ID: current.User.ID, Role: core.RoleUser}
		}
		if _, err := s.MarkEdited(ctx, owner, e.TimesheetID); err != nil {
			return e, err
		}
	}
	return e, nil
}

// PendingApprovals lists submitted timesheets the caller can review:
// everything for admins, the members of their teams for managers.
func (s *TimesheetService) PendingApprovals(ctx context.Context, caller core.User) ([]core.Timesheet, error) {
	var userIDs []string
	switch caller.Role {
	case core.RoleAdmin:
	case core.RoleManager:
		members, err := s.teamMembers(ctx, caller.ID)
		if err != nil {
			return nil, err
		}
		userIDs = make([]string, 0, len(members))
		for id := range members {
			if id != caller.ID {
				userIDs = append(userIDs, id)
			}
		}
	default:
		return nil, fmt.Errorf("pending approvals: %w", core.ErrForbidden)
	}

	pending, err := s.store.ListTimesheetsByStatus(ctx, core.StatusSubmitted, userIDs)
	if err != nil {
		return nil, fmt.Errorf("list pending approvals: %w", err)
	}
	return pending, nil
}

func (s *TimesheetService) transition(
	ctx context.Context,
	caller core.User,
	id string,
	authorize func(context.Context, core.User, core.Timesheet) error,
	apply func(*core.Timesheet, time.Time) error,
) (core.Timesheet, error) {
	ts, err := s.store.GetTimesheet(ctx, id)
	if err != nil {
		return ts, fmt.Errorf("get timesheet: %w", err)
	}
	if err := authorize(ctx, caller, ts); err != nil {
		return ts, err
	}

	prev := ts.Status
	if err := apply(&ts, s.now().UTC()); err != nil {
		return ts, err
	}
	if err := s.store.SaveTransition(ctx, ts, prev); err != nil {
		return ts, fmt.Errorf("save timesheet: %w", err)
	}

	if err := s.publish(ctx, ts, caller.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish timesheet event",
			"timesheet_id", ts.ID,
			"status", ts.Status,
			"error", err)
		// Don't fail the request - the transition is saved locally
	}
	return ts, nil
}

func (s *TimesheetService) requireOwner(_ context.Context, caller core.User, ts core.Timesheet) error {
	if ts.UserID == caller.ID || caller.Role == core.RoleAdmin {
		return nil
	}
	return fmt.Errorf("timesheet %s belongs to another user: %w", ts.ID, core.ErrForbidden)
}

// requireReviewer allows admins, and managers of the owner's team. Nobody
// reviews their own timesheet.
func (s *TimesheetService) requireReviewer(ctx context.Context, caller core.User, ts core.Timesheet) error {
	if ts.UserID == caller.ID {
		return fmt.Errorf("cannot review own timesheet: %w", core.ErrForbidden)
	}
	switch caller.Role {
	case core.RoleAdmin:
		return nil
	case core.RoleManager:
		members, err := s.teamMembers(ctx, caller.ID)
		if err != nil {
			return err
		}
		if _, ok := members[ts.UserID]; ok {
			return nil
		}
	}
	return fmt.Errorf("review timesheet %s: %w", ts.ID, core.ErrForbidden)
}

func (s *TimesheetService) teamMembers(ctx context.Context, managerID string) (map[string]struct{}, error) {
	teams, err := s.store.TeamsManagedBy(ctx, managerID)
	if err != nil {
		return nil, fmt.Errorf("load teams: %w", err)
	}
	members := map[string]struct{}{}
	for _, t := range teams {
		for _, id := range t.MemberIDs {
			members[id] = struct{}{}
		}
	}
	return members, nil
}

func (s *TimesheetService) publish(ctx context.Context, ts core.Timesheet, actorID string) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping timesheet event")
		return nil
	}
	if err := s.publisher.PublishTimesheetEvent(ctx, amqp.NewTimesheetEvent(ts, actorID)); err != nil {
		return fmt.Errorf("publish %s: %w", amqp.RoutingKeyFor(ts.Status), err)
	}
	return nil
}
