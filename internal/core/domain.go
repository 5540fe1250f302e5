package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleUser    Role = "user"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

type (
	Role string

	Date struct {
		time.Time
	}

	// Ref is a resolved reference to another document. A nil *Ref means the
	// reference was never set; a Ref with an empty Name points at a document
	// that no longer exists.
	Ref struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	Client struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		IsActive   bool   `json:"isActive"`
		IsArchived bool   `json:"isArchived"`
	}

	Project struct {
		ID          string          `json:"id"`
		Name        string          `json:"name"`
		ClientID    string          `json:"clientId,omitempty"`
		IsActive    bool            `json:"isActive"`
		IsArchived  bool            `json:"isArchived"`
		IsPinned    bool            `json:"isPinned"`
		BudgetHours decimal.Decimal `json:"budgetHours"`
	}

	Task struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		IsBillable bool   `json:"isBillable"`
		IsArchived bool   `json:"isArchived"`
	}

	User struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		Email      string `json:"email"`
		Role       Role   `json:"role"`
		IsArchived bool   `json:"isArchived"`
	}

	Team struct {
		ID        string   `json:"id"`
		Name      string   `json:"name"`
		ManagerID string   `json:"managerId"`
		MemberIDs []string `json:"memberIds"`
	}

	TimeEntry struct {
		ID          string          `json:"id"`
		Date        Date            `json:"date"`
		Hours       decimal.Decimal `json:"hours"`
		Client      *Ref            `json:"client,omitempty"`
		Project     *Ref            `json:"project,omitempty"`
		Task        *Ref            `json:"task,omitempty"`
		User        *Ref            `json:"user,omitempty"`
		Notes       string          `json:"notes,omitempty"`
		IsBillable  bool            `json:"isBillable"`
		TimesheetID string          `json:"timesheetId,omitempty"`
		Locked      bool            `json:"locked"`
	}

	// FilterTag is the chip shown for a selected report filter value.
	FilterTag struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		ClientID string `json:"clientId,omitempty"`
	}

	// ListOptions narrows reference listings. When IDs is non-empty only those
	// documents are returned, archived or not.
	ListOptions struct {
		IncludeArchived bool
		IDs             []string
	}

	// EntryFilter is the set of predicates pushed into the entries query.
	// Empty Start/End leave the date unbounded. A nil UserIDs means no
	// visibility restriction; a non-nil empty slice matches nothing.
	EntryFilter struct {
		Start              string
		End                string
		ClientIDs          []string
		ProjectIDs         []string
		TaskIDs            []string
		UserIDs            []string
		ActiveProjectsOnly bool
	}
)

var (
	ErrInvalidDay        = errors.New("invalid day")
	ErrInvalidMonth      = errors.New("invalid month")
	ErrInvalidHours      = errors.New("invalid hours")
	ErrEmptyName         = errors.New("empty name")
	ErrInvalidRole       = errors.New("invalid role")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrLocked            = errors.New("time entry is locked")
	ErrPendingHours      = errors.New("pending hours")
	ErrInvalidTransition = errors.New("invalid timesheet status transition")
	ErrReasonRequired    = errors.New("rejection reason is required")
	ErrNoItems           = errors.New("no items selected")
	ErrInvalidPreference = errors.New("invalid preference")
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleManager, RoleAdmin:
		return true
	}
	return false
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// WeekStart returns the Monday of the week containing d.
func (d Date) WeekStart() Date {
	offset := int(d.Weekday())
	if offset == 0 {
		offset = 7
	}
	return Date{Time: d.AddDate(0, 0, -offset+1)}
}

func (c Client) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (p Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if p.BudgetHours.IsNegative() {
		return ErrInvalidHours
	}
	return nil
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyName
	}
	if !u.Role.Valid() {
		return ErrInvalidRole
	}
	return nil
}

func (e TimeEntry) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if e.Hours.IsNegative() || e.Hours.GreaterThan(MaxEntryHours) {
		return ErrInvalidHours
	}
	if len(e.Notes) > 2000 {
		return errors.New("notes too long (max 2000 characters)")
	}
	return nil
}

// Tag returns the filter chip for a client.
func (c Client) Tag() FilterTag { return FilterTag{ID: c.ID, Name: c.Name} }

// Tag returns the filter chip for a project, carrying its client.
func (p Project) Tag() FilterTag { return FilterTag{ID: p.ID, Name: p.Name, ClientID: p.ClientID} }

// Tag returns the filter chip for a task.
func (t Task) Tag() FilterTag { return FilterTag{ID: t.ID, Name: t.Name} }
