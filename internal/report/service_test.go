package report

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"timesheets/internal/cache"
	"timesheets/internal/core"

	"github.com/shopspring/decimal"
)

type fakeStore struct {
	clients  []core.Client
	projects []core.Project
	tasks    []core.Task
	teams    map[string][]core.Team
	entries  []core.TimeEntry

	lastFilter core.EntryFilter
	listCalls  atomic.Int32
	teamsErr   error
}

func (f *fakeStore) ListClients(_ context.Context, opts core.ListOptions) ([]core.Client, error) {
	f.listCalls.Add(1)
	var out []core.Client
	for _, c := range f.clients {
		if visible(c.ID, c.IsArchived, opts) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) ListProjects(_ context.Context, opts core.ListOptions) ([]core.Project, error) {
	var out []core.Project
	for _, p := range f.projects {
		if visible(p.ID, p.IsArchived, opts) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) ListTasks(_ context.Context, opts core.ListOptions) ([]core.Task, error) {
	var out []core.Task
	for _, t := range f.tasks {
		if visible(t.ID, t.IsArchived, opts) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) TeamsManagedBy(_ context.Context, managerID string) ([]core.Team, error) {
	if f.teamsErr != nil {
		return nil, f.teamsErr
	}
	return f.teams[managerID], nil
}

func (f *fakeStore) ListEntries(_ context.Context, filter core.EntryFilter) ([]core.TimeEntry, error) {
	f.lastFilter = filter
	var out []core.TimeEntry
	for _, e := range f.entries {
		if filter.UserIDs != nil && (e.User == nil || !contains(filter.UserIDs, e.User.ID)) {
			continue
		}
		if filter.Start != "" && e.Date.String() < filter.Start {
			continue
		}
		if filter.End != "" && e.Date.String() > filter.End {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date.Time) })
	return out, nil
}

func visible(id string, archived bool, opts core.ListOptions) bool {
	if len(opts.IDs) > 0 {
		return contains(opts.IDs, id)
	}
	return opts.IncludeArchived || !archived
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func newFakeStore() *fakeStore {
	u := func(id string) *core.Ref { return &core.Ref{ID: id, Name: id} }
	h := decimal.NewFromInt
	return &fakeStore{
		clients: []core.Client{
			{ID: "c1", Name: "Acme", IsActive: true},
			{ID: "c2", Name: "Old Co", IsArchived: true},
		},
		projects: []core.Project{{ID: "p1", Name: "Site", ClientID: "c1", IsActive: true}},
		tasks:    []core.Task{{ID: "t1", Name: "Dev"}},
		teams: map[string][]core.Team{
			"m": {{ID: "team", ManagerID: "m", MemberIDs: []string{"u1", "u2"}}},
		},
		entries: []core.TimeEntry{
			{ID: "e1", Date: core.NewDate(2024, 3, 1), Hours: h(1), User: u("u1")},
			{ID: "e2", Date: core.NewDate(2024, 3, 2), Hours: h(2), User: u("u2")},
			{ID: "e3", Date: core.NewDate(2024, 3, 3), Hours: h(4), User: u("u3")},
		},
	}
}

func entryUsers(res Result) []string {
	var ids []string
	for _, g := range res.Groups {
		for _, e := range g.Entries {
			ids = append(ids, e.User.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

func TestService_RoleScopedVisibility(t *testing.T) {
	clock := WithClock(func() time.Time { return time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC) })
	all := Params{Timeframe: TimeframeMonth}

	tests := []struct {
		name   string
		caller core.User
		params Params
		want   []string
	}{
		{"manager sees team", core.User{ID: "m", Role: core.RoleManager}, all, []string{"u1", "u2"}},
		{"admin explicit user", core.User{ID: "a", Role: core.RoleAdmin}, Params{Timeframe: TimeframeMonth, Users: []string{"u3"}}, []string{"u3"}},
		{"admin sees all", core.User{ID: "a", Role: core.RoleAdmin}, all, []string{"u1", "u2", "u3"}},
		{"user sees self", core.User{ID: "u2", Role: core.RoleUser}, Params{Timeframe: TimeframeMonth, Users: []string{"u3"}}, []string{"u2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(newFakeStore(), clock)
			res, err := svc.Run(context.Background(), tt.caller, tt.params)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			got := entryUsers(res)
			if len(got) != len(tt.want) {
				t.Fatalf("users = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("users = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestService_Run(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, WithClock(func() time.Time { return time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC) }))

	p := Params{Timeframe: TimeframeMonth, GroupBy: GroupByPerson, Clients: []string{"c2"}}
	res, err := svc.Run(context.Background(), core.User{ID: "a", Role: core.RoleAdmin}, p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Range.Start != "2024-03-01" || res.Range.End != "2024-03-31" {
		t.Errorf("Range = %+v", res.Range)
	}
	if store.lastFilter.Start != "2024-03-01" || store.lastFilter.UserIDs != nil {
		t.Errorf("filter = %+v", store.lastFilter)
	}
	if !res.Total.Equal(decimal.NewFromInt(7)) || res.Count != 3 {
		t.Errorf("Total = %s, Count = %d", res.Total, res.Count)
	}
	if res.GroupBy != GroupByPerson || len(res.Groups) != 3 {
		t.Errorf("groups = %d by %s", len(res.Groups), res.GroupBy)
	}
	if len(res.Filters.Clients) != 1 || res.Filters.Clients[0].Name != "Old Co" {
		t.Errorf("restored client filters = %+v", res.Filters.Clients)
	}

	found := false
	for _, c := range res.Options.Clients {
		if c.ID == "c2" {
			found = true
		}
	}
	if !found {
		t.Error("archived client referenced by URL should be offered as an option")
	}
}

func TestService_InvalidCustomRangeSkipsDates(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)

	res, err := svc.Run(context.Background(), core.User{ID: "a", Role: core.RoleAdmin},
		Params{Timeframe: TimeframeCustom, StartDate: "2024-03-01"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Range.Valid {
		t.Error("range should be invalid")
	}
	if store.lastFilter.Start != "" || store.lastFilter.End != "" {
		t.Errorf("date predicates should be omitted, got %+v", store.lastFilter)
	}
	if res.Count != 3 {
		t.Errorf("Count = %d, want 3", res.Count)
	}
}

func TestService_FetchFailure(t *testing.T) {
	store := newFakeStore()
	store.teamsErr = errors.New("db down")
	svc := NewService(store)

	res, err := svc.Run(context.Background(), core.User{ID: "m", Role: core.RoleManager}, Params{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, store.teamsErr) {
		t.Errorf("err = %v, want wrapped teams error", err)
	}
	if res.Seq == 0 {
		t.Error("failed runs still carry a sequence number")
	}
}

func TestService_SequenceIncreases(t *testing.T) {
	svc := NewService(newFakeStore())
	admin := core.User{ID: "a", Role: core.RoleAdmin}

	first, _ := svc.Run(context.Background(), admin, Params{})
	second, _ := svc.Run(context.Background(), admin, Params{})
	if second.Seq <= first.Seq {
		t.Errorf("seq %d then %d, want increasing", first.Seq, second.Seq)
	}

	var latest Latest
	latest.Offer(second)
	if latest.Offer(first) {
		t.Error("stale run should not replace newer result")
	}
}

func TestService_OptionsCache(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, WithOptionsCache(cache.NewLRUCache[Tags](4, time.Minute)))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.FilterOptions(ctx, false); err != nil {
			t.Fatalf("FilterOptions: %v", err)
		}
	}
	if got := store.listCalls.Load(); got != 1 {
		t.Errorf("store hit %d times, want 1", got)
	}

	svc.InvalidateOptions()
	if _, err := svc.FilterOptions(ctx, false); err != nil {
		t.Fatalf("FilterOptions: %v", err)
	}
	if got := store.listCalls.Load(); got != 2 {
		t.Errorf("store hit %d times after invalidation, want 2", got)
	}
}
