package filters

const (
	MenuClosed MenuPosition = iota
	MenuOpenAbove
	MenuOpenBelow
)

// rowsBelowNeeded is how many rows a menu needs under its row to open
// downwards.
const rowsBelowNeeded = 3

type MenuPosition int

func (p MenuPosition) String() string {
	switch p {
	case MenuOpenAbove:
		return "open-above"
	case MenuOpenBelow:
		return "open-below"
	}
	return "closed"
}

// MenuState tracks the row action menus of a table by entity id. At most
// one menu is open at a time.
type MenuState struct {
	open map[string]MenuPosition
}

// Position returns the state of the menu of id.
func (m *MenuState) Position(id string) MenuPosition {
	if m.open == nil {
		return MenuClosed
	}
	return m.open[id]
}

// OpenID returns the id of the open menu, if any.
func (m *MenuState) OpenID() (string, bool) {
	for id := range m.open {
		return id, true
	}
	return "", false
}

// Open opens the menu of id at pos, closing any other menu.
func (m *MenuState) Open(id string, pos MenuPosition) {
	if pos == MenuClosed {
		m.Close(id)
		return
	}
	m.open = map[string]MenuPosition{id: pos}
}

// Toggle opens the menu of the row at index, placed by Placement, or
// closes it when it is already open.
func (m *MenuState) Toggle(id string, index, rows int) MenuPosition {
	if m.Position(id) != MenuClosed {
		m.Close(id)
		return MenuClosed
	}
	pos := Placement(index, rows)
	m.Open(id, pos)
	return pos
}

// Close closes the menu of id.
func (m *MenuState) Close(id string) {
	delete(m.open, id)
}

// CloseAll closes every menu.
func (m *MenuState) CloseAll() {
	m.open = nil
}

// Placement opens menus of rows near the bottom of a table upwards.
func Placement(index, rows int) MenuPosition {
	if rows-index-1 < rowsBelowNeeded && index >= rowsBelowNeeded {
		return MenuOpenAbove
	}
	return MenuOpenBelow
}
