package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"timesheets/internal/cache"
	"timesheets/internal/core"
	"timesheets/internal/optimistic"
)

const projectsKey = "projects:active"

// ProjectStore is the persistence project actions need.
type ProjectStore interface {
	ListProjects(ctx context.Context, opts core.ListOptions) ([]core.Project, error)
	SetProjectPinned(ctx context.Context, id string, pinned bool) error
	SetProjectArchived(ctx context.Context, id string, archived bool) error
}

// ProjectService pins and archives projects, updating the cached listing
// before the write and restoring it if the write fails.
type ProjectService struct {
	store    ProjectStore
	projects cache.Cache[[]core.Project]
	options  OptionsInvalidator
}

func NewProjectService(store ProjectStore, projects cache.Cache[[]core.Project], options OptionsInvalidator) *ProjectService {
	if projects == nil {
		projects = cache.NewLRUCache[[]core.Project](1, 5*time.Minute)
	}
	return &ProjectService{store: store, projects: projects, options: options}
}

// Projects returns active projects, pinned first.
func (s *ProjectService) Projects(ctx context.Context) ([]core.Project, error) {
	if projects, ok := s.projects.Get(projectsKey); ok {
		return projects, nil
	}
	projects, err := s.store.ListProjects(ctx, core.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	s.projects.Set(projectsKey, projects)
	return projects, nil
}

// Pin marks a project as pinned or unpinned.
func (s *ProjectService) Pin(ctx context.Context, caller core.User, id string, pinned bool) error {
	if err := requireManager(caller, "pin project"); err != nil {
		return err
	}
	s.warm(ctx)

	err := optimistic.Do[[]core.Project](s.listing(), func(projects []core.Project) []core.Project {
		out := make([]core.Project, len(projects))
		copy(out, projects)
		for i := range out {
			if out[i].ID == id {
				out[i].IsPinned = pinned
			}
		}
		sortProjects(out)
		return out
	}, func() error {
		return s.store.SetProjectPinned(ctx, id, pinned)
	})
	if err != nil {
		return fmt.Errorf("pin project %s: %w", id, err)
	}
	slog.InfoContext(ctx, "Project pin changed", "project_id", id, "pinned", pinned, "actor_id", caller.ID)
	return nil
}

// Archive archives or restores a project. Archived projects leave the
// listing immediately; restored ones reappear on the next load.
func (s *ProjectService) Archive(ctx context.Context, caller core.User, id string, archived bool) error {
	if err := requireManager(caller, "archive project"); err != nil {
		return err
	}
	s.warm(ctx)

	err := optimistic.Do[[]core.Project](s.listing(), func(projects []core.Project) []core.Project {
		if !archived {
			return projects
		}
		out := make([]core.Project, 0, len(projects))
		for _, p := range projects {
			if p.ID != id {
				out = append(out, p)
			}
		}
		return out
	}, func() error {
		return s.store.SetProjectArchived(ctx, id, archived)
	})
	if err != nil {
		return fmt.Errorf("archive project %s: %w", id, err)
	}
	if !archived {
		s.projects.Delete(projectsKey)
	}
	if s.options != nil {
		s.options.InvalidateOptions()
	}
	slog.InfoContext(ctx, "Project archive changed", "project_id", id, "archived", archived, "actor_id", caller.ID)
	return nil
}

func (s *ProjectService) listing() optimistic.Store[[]core.Project] {
	return optimistic.CacheStore[[]core.Project]{Cache: s.projects, Key: projectsKey}
}

// warm loads the listing so the optimistic update has something to act on.
func (s *ProjectService) warm(ctx context.Context) {
	if _, err := s.Projects(ctx); err != nil {
		slog.WarnContext(ctx, "Project listing unavailable, skipping optimistic update", "error", err)
	}
}

func requireManager(caller core.User, action string) error {
	if caller.Role == core.RoleManager || caller.Role == core.RoleAdmin {
		return nil
	}
	return fmt.Errorf("%s: %w", action, core.ErrForbidden)
}

// sortProjects orders pinned projects first, then by name ignoring case.
func sortProjects(projects []core.Project) {
	sort.SliceStable(projects, func(i, j int) bool {
		if projects[i].IsPinned != projects[j].IsPinned {
			return projects[i].IsPinned
		}
		return strings.ToLower(projects[i].Name) < strings.ToLower(projects[j].Name)
	})
}
