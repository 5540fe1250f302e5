package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestWeekStart(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"2024-01-01", "2024-01-01"}, // Monday
		{"2024-01-03", "2024-01-01"},
		{"2024-01-07", "2024-01-01"}, // Sunday belongs to the previous Monday
		{"2024-01-08", "2024-01-08"},
	}
	for _, tc := range cases {
		d, err := ParseDate(tc.in)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.in, err)
		}
		if got := d.WeekStart().String(); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.in, tc.want, got)
		}
	}
}

func TestDateTextRoundTrip(t *testing.T) {
	var d Date
	if err := d.UnmarshalText([]byte("2024-02-29")); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	b, _ := d.MarshalText()
	if string(b) != "2024-02-29" {
		t.Fatalf("unexpected text %q", b)
	}
	if err := d.UnmarshalText([]byte("29/02/2024")); err == nil {
		t.Fatalf("expected error for non-ISO date")
	}
}

func TestTimeEntryValidate(t *testing.T) {
	good := TimeEntry{Date: NewDate(2025, 1, 1), Hours: decimal.RequireFromString("7.5")}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []TimeEntry{
		{Date: Date{}, Hours: decimal.NewFromInt(1)},
		{Date: NewDate(2025, 1, 1), Hours: decimal.NewFromInt(-1)},
		{Date: NewDate(2025, 1, 1), Hours: decimal.NewFromInt(25)},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestUserValidate(t *testing.T) {
	if err := (User{Name: "Ada", Role: RoleManager}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (User{Name: "Ada", Role: "owner"}).Validate(); err != ErrInvalidRole {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
	if err := (User{Name: " ", Role: RoleUser}).Validate(); err != ErrEmptyName {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
}

func TestProjectTagCarriesClient(t *testing.T) {
	tag := Project{ID: "p1", Name: "Website", ClientID: "c1"}.Tag()
	if tag.ID != "p1" || tag.Name != "Website" || tag.ClientID != "c1" {
		t.Fatalf("unexpected tag %+v", tag)
	}
}
