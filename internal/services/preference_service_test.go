package services

import (
	"context"
	"errors"
	"testing"

	"timesheets/internal/core"
)

func TestPreferenceService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewPreferenceService(f.repo)

	if _, ok, err := svc.Get(ctx, f.member, LastViewedWeekKey); err != nil || ok {
		t.Fatalf("Get before Set = ok %v, err %v", ok, err)
	}

	got, err := svc.Set(ctx, f.member, LastViewedWeekKey, "2024-03-07")
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got != "2024-03-04" {
		t.Errorf("normalized week = %s, want Monday 2024-03-04", got)
	}
	v, ok, err := svc.Get(ctx, f.member, LastViewedWeekKey)
	if err != nil || !ok || v != "2024-03-04" {
		t.Errorf("Get = %q, %v, %v", v, ok, err)
	}

	// Preferences are per user.
	if _, ok, _ := svc.Get(ctx, f.other, LastViewedWeekKey); ok {
		t.Error("preference leaked to another user")
	}

	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad key", "Bad Key", "x"},
		{"bad week", LastViewedWeekKey, "next week"},
		{"too long", "theme", string(make([]byte, 2000))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Set(ctx, f.member, tt.key, tt.value); !errors.Is(err, core.ErrInvalidPreference) {
				t.Errorf("err = %v, want ErrInvalidPreference", err)
			}
		})
	}
}
