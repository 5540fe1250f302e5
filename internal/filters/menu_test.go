package filters

import "testing"

func TestMenuState_SingleOpen(t *testing.T) {
	var m MenuState
	m.Open("p1", MenuOpenBelow)
	m.Open("p2", MenuOpenAbove)

	if m.Position("p1") != MenuClosed {
		t.Error("opening p2 should close p1")
	}
	if m.Position("p2") != MenuOpenAbove {
		t.Errorf("p2 = %s, want open-above", m.Position("p2"))
	}
	if id, ok := m.OpenID(); !ok || id != "p2" {
		t.Errorf("OpenID = %s, %v", id, ok)
	}

	m.CloseAll()
	if _, ok := m.OpenID(); ok {
		t.Error("CloseAll should close everything")
	}
}

func TestMenuState_Toggle(t *testing.T) {
	var m MenuState
	if pos := m.Toggle("p1", 0, 10); pos != MenuOpenBelow {
		t.Errorf("top row opens %s, want open-below", pos)
	}
	if pos := m.Toggle("p1", 0, 10); pos != MenuClosed {
		t.Errorf("second toggle = %s, want closed", pos)
	}
	if pos := m.Toggle("p9", 9, 10); pos != MenuOpenAbove {
		t.Errorf("bottom row opens %s, want open-above", pos)
	}
}

func TestPlacement(t *testing.T) {
	tests := []struct {
		index, rows int
		want        MenuPosition
	}{
		{0, 1, MenuOpenBelow},
		{1, 2, MenuOpenBelow},
		{6, 10, MenuOpenBelow},
		{7, 10, MenuOpenAbove},
		{9, 10, MenuOpenAbove},
	}
	for _, tt := range tests {
		if got := Placement(tt.index, tt.rows); got != tt.want {
			t.Errorf("Placement(%d, %d) = %s, want %s", tt.index, tt.rows, got, tt.want)
		}
	}
}
