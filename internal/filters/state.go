package filters

import "timesheets/internal/core"

// State is the filter bar of the report: one Chips per dimension. Project
// chips are tied to the selected clients.
type State struct {
	Clients  Chips `json:"clients"`
	Projects Chips `json:"projects"`
	Tasks    Chips `json:"tasks"`
}

// Chips returns the chip state of d.
func (s *State) Chips(d Dimension) *Chips {
	switch d {
	case Clients:
		return &s.Clients
	case Projects:
		return &s.Projects
	default:
		return &s.Tasks
	}
}

// Candidates lists what can still be picked for d. Projects are limited to
// those of the selected clients when any client is selected.
func (s *State) Candidates(d Dimension, available []core.FilterTag) []core.FilterTag {
	if d == Projects {
		available = s.projectsOfSelectedClients(available)
	}
	return s.Chips(d).Candidates(available)
}

// Select adds tag to d. Selecting a client prunes projects of other clients,
// and a project outside the selected clients is refused.
func (s *State) Select(d Dimension, tag core.FilterTag) bool {
	if d == Projects && len(s.projectsOfSelectedClients([]core.FilterTag{tag})) == 0 {
		return false
	}
	changed := s.Chips(d).Select(tag)
	if changed && d == Clients {
		s.pruneProjects()
	}
	return changed
}

// Remove drops id from d.
func (s *State) Remove(d Dimension, id string) {
	s.Chips(d).Remove(id)
	if d == Clients {
		s.pruneProjects()
	}
}

// SetClients replaces the client selection and prunes projects that no
// longer belong to a selected client.
func (s *State) SetClients(tags []core.FilterTag) {
	s.Clients.Selected = nil
	for _, t := range tags {
		s.Clients.Select(t)
	}
	s.pruneProjects()
}

// Key forwards a key press to d, using the same candidates Candidates shows.
func (s *State) Key(d Dimension, k Key, available []core.FilterTag) bool {
	if d == Projects {
		available = s.projectsOfSelectedClients(available)
	}
	changed := s.Chips(d).Key(k, available)
	if changed && d == Clients {
		s.pruneProjects()
	}
	return changed
}

// Blur forwards a focus loss to d.
func (s *State) Blur(d Dimension, available []core.FilterTag) {
	s.Chips(d).Blur(available)
}

// Clear resets every dimension.
func (s *State) Clear() {
	s.Clients.Clear()
	s.Projects.Clear()
	s.Tasks.Clear()
}

func (s *State) selectedClients() map[string]struct{} {
	ids := make(map[string]struct{}, len(s.Clients.Selected))
	for _, t := range s.Clients.Selected {
		ids[t.ID] = struct{}{}
	}
	return ids
}

func (s *State) projectsOfSelectedClients(projects []core.FilterTag) []core.FilterTag {
	clients := s.selectedClients()
	if len(clients) == 0 {
		return projects
	}
	out := make([]core.FilterTag, 0, len(projects))
	for _, p := range projects {
		if _, ok := clients[p.ClientID]; ok {
			out = append(out, p)
		}
	}
	return out
}

func (s *State) pruneProjects() {
	s.Projects.Selected = s.projectsOfSelectedClients(s.Projects.Selected)
}
