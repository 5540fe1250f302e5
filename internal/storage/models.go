package storage

import (
	"database/sql"
)

type Client struct {
	ID         string
	Name       string
	IsActive   bool
	IsArchived bool
}

type Project struct {
	ID          string
	Name        string
	ClientID    sql.NullString
	IsActive    bool
	IsArchived  bool
	IsPinned    bool
	BudgetHours string
}

type Task struct {
	ID         string
	Name       string
	IsBillable bool
	IsArchived bool
}

type User struct {
	ID         string
	Name       string
	Email      string
	Role       string
	IsArchived bool
}

type Team struct {
	ID        string
	Name      string
	ManagerID string
}

type Timesheet struct {
	ID              string
	UserID          string
	WeekStart       string
	Status          string
	SubmittedAt     sql.NullTime
	ReviewedAt      sql.NullTime
	ReviewerID      sql.NullString
	RejectionReason string
}

// TimeEntryRow is a time entry joined with the names of its references.
type TimeEntryRow struct {
	ID          string
	Date        string
	Hours       string
	Notes       string
	IsBillable  bool
	TimesheetID sql.NullString
	Locked      bool
	ClientID    sql.NullString
	ClientName  sql.NullString
	ProjectID   sql.NullString
	ProjectName sql.NullString
	TaskID      sql.NullString
	TaskName    sql.NullString
	UserID      sql.NullString
	UserName    sql.NullString
}

type CreateTimeEntryParams struct {
	ID          string
	Date        string
	Hours       string
	ClientID    sql.NullString
	ProjectID   sql.NullString
	TaskID      sql.NullString
	UserID      sql.NullString
	Notes       string
	IsBillable  bool
	TimesheetID sql.NullString
}
