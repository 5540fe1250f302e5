package report

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"timesheets/internal/cache"
	"timesheets/internal/core"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Store is the data the report reads.
type Store interface {
	ListClients(ctx context.Context, opts core.ListOptions) ([]core.Client, error)
	ListProjects(ctx context.Context, opts core.ListOptions) ([]core.Project, error)
	ListTasks(ctx context.Context, opts core.ListOptions) ([]core.Task, error)
	TeamsManagedBy(ctx context.Context, managerID string) ([]core.Team, error)
	ListEntries(ctx context.Context, f core.EntryFilter) ([]core.TimeEntry, error)
}

// Tags groups filter chips per dimension.
type Tags struct {
	Clients  []core.FilterTag `json:"clients"`
	Projects []core.FilterTag `json:"projects"`
	Tasks    []core.FilterTag `json:"tasks"`
}

// Result is one run of the detailed report.
type Result struct {
	Seq     uint64          `json:"seq"`
	Params  Params          `json:"params"`
	Range   DateRange       `json:"range"`
	GroupBy GroupBy         `json:"groupBy"`
	Groups  []Group         `json:"groups"`
	Total   decimal.Decimal `json:"total"`
	Count   int             `json:"count"`
	Filters Tags            `json:"filters"`
	Options Tags            `json:"options"`
}

// Empty reports whether the run matched no entries.
func (r Result) Empty() bool { return r.Count == 0 }

type Service struct {
	store   Store
	options cache.Cache[Tags]
	now     func() time.Time
	timeout time.Duration
	seq     atomic.Uint64
}

type Option func(*Service)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTimeout bounds each run.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithOptionsCache caches filter option listings.
func WithOptionsCache(c cache.Cache[Tags]) Option {
	return func(s *Service) { s.options = c }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes the report for caller. Filter options, team membership and
// the chips for URL-supplied ids load concurrently; the entries query is
// only issued once all three have settled.
func (s *Service) Run(ctx context.Context, caller core.User, p Params) (Result, error) {
	seq := s.seq.Add(1)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var (
		options  Tags
		teams    []core.Team
		selected Tags
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		options, err = s.FilterOptions(gctx, p.IncludeArchived)
		return err
	})
	if caller.Role == core.RoleManager {
		g.Go(func() error {
			var err error
			teams, err = s.store.TeamsManagedBy(gctx, caller.ID)
			if err != nil {
				return fmt.Errorf("resolve teams of %s: %w", caller.ID, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		var err error
		selected, err = s.restoreTags(gctx, p)
		return err
	})
	if err := g.Wait(); err != nil {
		return Result{Seq: seq}, fmt.Errorf("load report filters: %w", err)
	}

	// Archived items referenced from the URL stay selectable.
	options.Clients = mergeTags(options.Clients, selected.Clients)
	options.Projects = mergeTags(options.Projects, selected.Projects)
	options.Tasks = mergeTags(options.Tasks, selected.Tasks)

	rng := ResolveRange(p.Timeframe, p.StartDate, p.EndDate, s.now())
	filter := core.EntryFilter{
		ClientIDs:          p.Clients,
		ProjectIDs:         p.Projects,
		TaskIDs:            p.Tasks,
		UserIDs:            Scope(caller, teams, p.Users),
		ActiveProjectsOnly: p.ActiveProjects,
	}
	if rng.Valid {
		filter.Start, filter.End = rng.Start, rng.End
	}

	entries, err := s.store.ListEntries(ctx, filter)
	if err != nil {
		return Result{Seq: seq}, fmt.Errorf("load report entries: %w", err)
	}

	by := ParseGroupBy(string(p.GroupBy))
	res := Result{
		Seq:     seq,
		Params:  p,
		Range:   rng,
		GroupBy: by,
		Groups:  GroupEntries(entries, by),
		Total:   TotalHours(entries),
		Count:   len(entries),
		Filters: selected,
		Options: options,
	}

	return res, nil
}

func optionsKey(includeArchived bool) string {
	if includeArchived {
		return "options:all"
	}
	return "options:active"
}

// FilterOptions lists the selectable clients, projects and tasks.
func (s *Service) FilterOptions(ctx context.Context, includeArchived bool) (Tags, error) {
	key := optionsKey(includeArchived)
	if s.options != nil {
		if tags, ok := s.options.Get(key); ok {
			return tags, nil
		}
	}
	tags, err := s.loadTags(ctx, core.ListOptions{IncludeArchived: includeArchived})
	if err != nil {
		return Tags{}, err
	}
	if s.options != nil {
		s.options.Set(key, tags)
	}
	return tags, nil
}

// InvalidateOptions drops cached option listings after a mutation.
func (s *Service) InvalidateOptions() {
	if s.options == nil {
		return
	}
	s.options.Delete(optionsKey(true))
	s.options.Delete(optionsKey(false))
}

func (s *Service) loadTags(ctx context.Context, opts core.ListOptions) (Tags, error) {
	var tags Tags
	clients, err := s.store.ListClients(ctx, opts)
	if err != nil {
		return tags, fmt.Errorf("list client options: %w", err)
	}
	projects, err := s.store.ListProjects(ctx, opts)
	if err != nil {
		return tags, fmt.Errorf("list project options: %w", err)
	}
	tasks, err := s.store.ListTasks(ctx, opts)
	if err != nil {
		return tags, fmt.Errorf("list task options: %w", err)
	}
	for _, c := range clients {
		tags.Clients = append(tags.Clients, c.Tag())
	}
	for _, p := range projects {
		tags.Projects = append(tags.Projects, p.Tag())
	}
	for _, t := range tasks {
		tags.Tasks = append(tags.Tasks, t.Tag())
	}
	return tags, nil
}

// restoreTags resolves URL-supplied ids to chips, archived or not, keeping
// the order of the URL. Unknown ids are dropped.
func (s *Service) restoreTags(ctx context.Context, p Params) (Tags, error) {
	var tags Tags
	if len(p.Clients) > 0 {
		clients, err := s.store.ListClients(ctx, core.ListOptions{IDs: p.Clients})
		if err != nil {
			return tags, fmt.Errorf("restore client filters: %w", err)
		}
		byID := make(map[string]core.FilterTag, len(clients))
		for _, c := range clients {
			byID[c.ID] = c.Tag()
		}
		tags.Clients = ordered(p.Clients, byID)
	}
	if len(p.Projects) > 0 {
		projects, err := s.store.ListProjects(ctx, core.ListOptions{IDs: p.Projects})
		if err != nil {
			return tags, fmt.Errorf("restore project filters: %w", err)
		}
		byID := make(map[string]core.FilterTag, len(projects))
		for _, pr := range projects {
			byID[pr.ID] = pr.Tag()
		}
		tags.Projects = ordered(p.Projects, byID)
	}
	if len(p.Tasks) > 0 {
		tasks, err := s.store.ListTasks(ctx, core.ListOptions{IDs: p.Tasks})
		if err != nil {
			return tags, fmt.Errorf("restore task filters: %w", err)
		}
		byID := make(map[string]core.FilterTag, len(tasks))
		for _, t := range tasks {
			byID[t.ID] = t.Tag()
		}
		tags.Tasks = ordered(p.Tasks, byID)
	}
	return tags, nil
}

func ordered(ids []string, byID map[string]core.FilterTag) []core.FilterTag {
	out := make([]core.FilterTag, 0, len(ids))
	for _, id := range ids {
		if tag, ok := byID[id]; ok {
			out = append(out, tag)
		}
	}
	return out
}

func mergeTags(base, extra []core.FilterTag) []core.FilterTag {
	if len(extra) == 0 {
		return base
	}
	seen := make(map[string]struct{}, len(base))
	for _, t := range base {
		seen[t.ID] = struct{}{}
	}
	out := append([]core.FilterTag(nil), base...)
	for _, t := range extra {
		if _, ok := seen[t.ID]; !ok {
			out = append(out, t)
		}
	}
	return out
}
