package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	StatusUnsubmitted TimesheetStatus = "unsubmitted"
	StatusSubmitted   TimesheetStatus = "submitted"
	StatusApproved    TimesheetStatus = "approved"
	StatusRejected    TimesheetStatus = "rejected"
)

type TimesheetStatus string

// Timesheet is the week-scoped container of a user's entries.
type Timesheet struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	WeekStart       Date            `json:"weekStart"`
	Status          TimesheetStatus `json:"status"`
	SubmittedAt     *time.Time      `json:"submittedAt,omitempty"`
	ReviewedAt      *time.Time      `json:"reviewedAt,omitempty"`
	ReviewerID      string          `json:"reviewerId,omitempty"`
	RejectionReason string          `json:"rejectionReason,omitempty"`
}

var transitions = map[TimesheetStatus][]TimesheetStatus{
	StatusUnsubmitted: {StatusSubmitted},
	StatusSubmitted:   {StatusApproved, StatusRejected},
	StatusRejected:    {StatusSubmitted, StatusUnsubmitted},
}

func (s TimesheetStatus) Valid() bool {
	switch s {
	case StatusUnsubmitted, StatusSubmitted, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Pending reports whether hours in this state still await approval.
func (s TimesheetStatus) Pending() bool {
	return s == StatusUnsubmitted || s == StatusSubmitted
}

// CanTransition reports whether the lifecycle allows moving from s to next.
func (s TimesheetStatus) CanTransition(next TimesheetStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition moves the timesheet to next, stamping the review fields.
func (t *Timesheet) Transition(next TimesheetStatus, actorID string, at time.Time) error {
	if !t.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, next)
	}
	switch next {
	case StatusSubmitted:
		t.SubmittedAt = &at
		t.ReviewedAt = nil
		t.ReviewerID = ""
		t.RejectionReason = ""
	case StatusApproved, StatusRejected:
		t.ReviewedAt = &at
		t.ReviewerID = actorID
	case StatusUnsubmitted:
		t.SubmittedAt = nil
	}
	t.Status = next
	return nil
}

// Reject moves a submitted timesheet to rejected with a reason.
func (t *Timesheet) Reject(reviewerID, reason string, at time.Time) error {
	if err := t.Transition(StatusRejected, reviewerID, at); err != nil {
		return err
	}
	t.RejectionReason = strings.TrimSpace(reason)
	return nil
}
