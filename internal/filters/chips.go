// Package filters holds the state of the report's filter chips and row
// menus. Values are owned by the caller and passed explicitly.
package filters

import (
	"strings"

	"timesheets/internal/core"
)

const (
	Clients  Dimension = "clients"
	Projects Dimension = "projects"
	Tasks    Dimension = "tasks"
)

const (
	KeyEnter  Key = "enter"
	KeyEscape Key = "escape"
)

type (
	Dimension string
	Key       string
)

// ParseDimension maps s to a dimension. ok is false for unknown names.
func ParseDimension(s string) (Dimension, bool) {
	switch d := Dimension(strings.ToLower(strings.TrimSpace(s))); d {
	case Clients, Projects, Tasks:
		return d, true
	}
	return "", false
}

// Chips is the state of one filter dimension: the selected chips in
// selection order, the free-text search and whether the dropdown is open.
type Chips struct {
	Selected []core.FilterTag `json:"selected"`
	Search   string           `json:"search"`
	Open     bool             `json:"open"`
}

// IDs returns the selected ids in selection order.
func (c *Chips) IDs() []string {
	ids := make([]string, len(c.Selected))
	for i, t := range c.Selected {
		ids[i] = t.ID
	}
	return ids
}

func (c *Chips) has(id string) bool {
	for _, t := range c.Selected {
		if t.ID == id {
			return true
		}
	}
	return false
}

// Candidates lists the available tags that are not selected and match the
// search text, ignoring case.
func (c *Chips) Candidates(available []core.FilterTag) []core.FilterTag {
	search := strings.ToLower(strings.TrimSpace(c.Search))
	out := make([]core.FilterTag, 0, len(available))
	for _, t := range available {
		if c.has(t.ID) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(t.Name), search) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Select appends tag unless it is already selected.
func (c *Chips) Select(tag core.FilterTag) bool {
	if tag.ID == "" || c.has(tag.ID) {
		return false
	}
	c.Selected = append(c.Selected, tag)
	c.Search = ""
	return true
}

// Remove drops the chip with id.
func (c *Chips) Remove(id string) {
	kept := make([]core.FilterTag, 0, len(c.Selected))
	for _, t := range c.Selected {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	c.Selected = kept
}

// Clear drops every chip and the search text.
func (c *Chips) Clear() {
	c.Selected = nil
	c.Search = ""
}

// SetSearch updates the search text and opens the dropdown.
func (c *Chips) SetSearch(s string) {
	c.Search = s
	c.Open = true
}

// Blur closes the dropdown. Search text that names no available tag
// exactly (ignoring case) is discarded.
func (c *Chips) Blur(available []core.FilterTag) {
	c.Open = false
	search := strings.TrimSpace(c.Search)
	for _, t := range available {
		if strings.EqualFold(t.Name, search) {
			return
		}
	}
	c.Search = ""
}

// Key handles Enter and Escape. Enter selects the first candidate; Escape
// clears the search and closes the dropdown. It reports whether the
// selection changed.
func (c *Chips) Key(k Key, available []core.FilterTag) bool {
	switch k {
	case KeyEnter:
		candidates := c.Candidates(available)
		if len(candidates) == 0 {
			return false
		}
		return c.Select(candidates[0])
	case KeyEscape:
		c.Search = ""
		c.Open = false
	}
	return false
}
