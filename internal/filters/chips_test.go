package filters

import (
	"testing"

	"timesheets/internal/core"
)

var (
	clientA = core.FilterTag{ID: "a", Name: "Acme"}
	clientB = core.FilterTag{ID: "b", Name: "Beta"}
	clientC = core.FilterTag{ID: "c", Name: "Core"}

	projA = core.FilterTag{ID: "pa", Name: "Alpha Site", ClientID: "a"}
	projB = core.FilterTag{ID: "pb", Name: "Beta App", ClientID: "b"}
	projC = core.FilterTag{ID: "pc", Name: "Core API", ClientID: "c"}

	allProjects = []core.FilterTag{projA, projB, projC}
)

func ids(tags []core.FilterTag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.ID
	}
	return out
}

func equalIDs(got []core.FilterTag, want ...string) bool {
	g := ids(got)
	if len(g) != len(want) {
		return false
	}
	for i := range g {
		if g[i] != want[i] {
			return false
		}
	}
	return true
}

func TestChips_Candidates(t *testing.T) {
	c := Chips{}
	c.Select(clientB)

	tests := []struct {
		search string
		want   []string
	}{
		{"", []string{"a", "c"}},
		{"CO", []string{"c"}},
		{"e", []string{"a", "c"}},
		{"beta", nil},
	}
	for _, tt := range tests {
		c.Search = tt.search
		if got := c.Candidates([]core.FilterTag{clientA, clientB, clientC}); !equalIDs(got, tt.want...) {
			t.Errorf("Candidates(%q) = %v, want %v", tt.search, ids(got), tt.want)
		}
	}
}

func TestChips_NoDuplicates(t *testing.T) {
	c := Chips{}
	if !c.Select(clientA) {
		t.Fatal("first select should succeed")
	}
	if c.Select(clientA) {
		t.Error("duplicate select should be refused")
	}
	if len(c.Selected) != 1 {
		t.Errorf("selected = %v", ids(c.Selected))
	}
}

func TestChips_Blur(t *testing.T) {
	available := []core.FilterTag{clientA, clientB}
	tests := []struct {
		search string
		want   string
	}{
		{"acme", "acme"},
		{"ACME", "ACME"},
		{"acm", ""},
		{"nothing", ""},
	}
	for _, tt := range tests {
		c := Chips{Search: tt.search, Open: true}
		c.Blur(available)
		if c.Search != tt.want {
			t.Errorf("Blur(%q) left %q, want %q", tt.search, c.Search, tt.want)
		}
		if c.Open {
			t.Error("Blur should close the dropdown")
		}
	}
}

func TestChips_Keys(t *testing.T) {
	available := []core.FilterTag{clientA, clientB, clientC}

	c := Chips{}
	c.SetSearch("e")
	if !c.Key(KeyEnter, available) {
		t.Fatal("Enter should select")
	}
	if !equalIDs(c.Selected, "a") {
		t.Errorf("Enter selected %v, want first candidate a", ids(c.Selected))
	}

	c.SetSearch("zzz")
	if c.Key(KeyEnter, available) {
		t.Error("Enter with no candidates should do nothing")
	}

	c.Key(KeyEscape, available)
	if c.Search != "" || c.Open {
		t.Errorf("Escape left search=%q open=%v", c.Search, c.Open)
	}
}

func TestChips_RemoveAndClear(t *testing.T) {
	c := Chips{}
	c.Select(clientA)
	c.Select(clientB)
	c.Select(clientC)
	c.Remove("b")
	if !equalIDs(c.Selected, "a", "c") {
		t.Errorf("after Remove = %v", ids(c.Selected))
	}
	c.Clear()
	if len(c.Selected) != 0 {
		t.Errorf("after Clear = %v", ids(c.Selected))
	}
}

func TestState_ProjectPruning(t *testing.T) {
	var s State
	s.Select(Projects, projC)
	s.Select(Projects, projA)

	s.Select(Clients, clientA)
	s.Select(Clients, clientB)

	if !equalIDs(s.Projects.Selected, "pa") {
		t.Errorf("projects = %v, want [pa]", ids(s.Projects.Selected))
	}

	s.Select(Projects, projB)
	s.SetClients([]core.FilterTag{clientB})
	if !equalIDs(s.Projects.Selected, "pb") {
		t.Errorf("after SetClients projects = %v, want [pb]", ids(s.Projects.Selected))
	}

	s.Remove(Clients, "b")
	if !equalIDs(s.Projects.Selected, "pb") {
		t.Errorf("no client selected keeps projects, got %v", ids(s.Projects.Selected))
	}
}

func TestState_SelectRefusesOrphanProject(t *testing.T) {
	var s State
	s.SetClients([]core.FilterTag{clientA})

	if s.Select(Projects, projC) {
		t.Error("project of an unselected client was accepted")
	}
	if !s.Select(Projects, projA) {
		t.Error("project of the selected client was refused")
	}
	if !equalIDs(s.Projects.Selected, "pa") {
		t.Errorf("projects = %v, want [pa]", ids(s.Projects.Selected))
	}
}

func TestState_ProjectCandidatesFollowClients(t *testing.T) {
	var s State
	if got := s.Candidates(Projects, allProjects); len(got) != 3 {
		t.Errorf("no clients selected: %v", ids(got))
	}
	s.Select(Clients, clientB)
	s.Select(Clients, clientC)
	if got := s.Candidates(Projects, allProjects); !equalIDs(got, "pb", "pc") {
		t.Errorf("candidates = %v, want [pb pc]", ids(got))
	}

	s.Projects.SetSearch("")
	s.Key(Projects, KeyEnter, allProjects)
	if !equalIDs(s.Projects.Selected, "pb") {
		t.Errorf("Enter on projects selected %v, want [pb]", ids(s.Projects.Selected))
	}
}

func TestParseDimension(t *testing.T) {
	if d, ok := ParseDimension(" Projects "); !ok || d != Projects {
		t.Errorf("ParseDimension = %s, %v", d, ok)
	}
	if _, ok := ParseDimension("users"); ok {
		t.Error("users is not a filter dimension")
	}
}
