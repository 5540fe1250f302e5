package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"timesheets/internal/core"
)

// LastViewedWeekKey stores the Monday of the week a user last looked at.
const LastViewedWeekKey = "last_viewed_week"

const maxPreferenceValue = 1024

var preferenceKey = regexp.MustCompile(`^[a-z][a-z0-9_.-]{0,63}$`)

type PreferenceStore interface {
	GetPreference(ctx context.Context, userID, key string) (string, error)
	SetPreference(ctx context.Context, userID, key, value string) error
}

// PreferenceService keeps small per-user settings.
type PreferenceService struct {
	store PreferenceStore
}

func NewPreferenceService(store PreferenceStore) *PreferenceService {
	return &PreferenceService{store: store}
}

// Get returns the caller's value for key. A missing value is "" with
// ok false.
func (s *PreferenceService) Get(ctx context.Context, caller core.User, key string) (value string, ok bool, err error) {
	if !preferenceKey.MatchString(key) {
		return "", false, fmt.Errorf("%w: key %q", core.ErrInvalidPreference, key)
	}
	v, err := s.store.GetPreference(ctx, caller.ID, key)
	if errors.Is(err, core.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set stores value under key and returns the normalized value. The
// last-viewed week is stored as the Monday of the given date.
func (s *PreferenceService) Set(ctx context.Context, caller core.User, key, value string) (string, error) {
	if !preferenceKey.MatchString(key) {
		return "", fmt.Errorf("%w: key %q", core.ErrInvalidPreference, key)
	}
	value = strings.TrimSpace(value)
	if len(value) > maxPreferenceValue {
		return "", fmt.Errorf("%w: value too long (max %d characters)", core.ErrInvalidPreference, maxPreferenceValue)
	}
	if key == LastViewedWeekKey {
		d, err := core.ParseDate(value)
		if err != nil {
			return "", fmt.Errorf("%w: %s must be a YYYY-MM-DD date", core.ErrInvalidPreference, key)
		}
		value = d.WeekStart().String()
	}
	if err := s.store.SetPreference(ctx, caller.ID, key, value); err != nil {
		return "", err
	}
	return value, nil
}
