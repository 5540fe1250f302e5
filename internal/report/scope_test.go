package report

import (
	"reflect"
	"testing"

	"timesheets/internal/core"
)

func TestScope(t *testing.T) {
	teams := []core.Team{
		{ID: "t1", ManagerID: "m", MemberIDs: []string{"u2", "u1"}},
		{ID: "t2", ManagerID: "m", MemberIDs: []string{"u1", "m"}},
	}

	tests := []struct {
		name     string
		caller   core.User
		teams    []core.Team
		explicit []string
		want     []string
	}{
		{"user sees self", core.User{ID: "u1", Role: core.RoleUser}, nil, nil, []string{"u1"}},
		{"user explicit ignored", core.User{ID: "u1", Role: core.RoleUser}, nil, []string{"u3"}, []string{"u1"}},
		{"manager sees team and self", core.User{ID: "m", Role: core.RoleManager}, teams, nil, []string{"m", "u1", "u2"}},
		{"manager without teams", core.User{ID: "m", Role: core.RoleManager}, nil, nil, []string{"m"}},
		{"manager explicit ignored", core.User{ID: "m", Role: core.RoleManager}, teams, []string{"u3"}, []string{"m", "u1", "u2"}},
		{"admin unrestricted", core.User{ID: "a", Role: core.RoleAdmin}, nil, nil, nil},
		{"admin explicit override", core.User{ID: "a", Role: core.RoleAdmin}, nil, []string{"u3", "u3"}, []string{"u3"}},
		{"unknown role falls back to self", core.User{ID: "x", Role: "guest"}, nil, nil, []string{"x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Scope(tt.caller, tt.teams, tt.explicit)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Scope() = %v, want %v", got, tt.want)
			}
		})
	}
}
