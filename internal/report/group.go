package report

import (
	"sort"
	"strings"
	"time"

	"timesheets/internal/core"

	"github.com/shopspring/decimal"
)

const (
	GroupByDate    GroupBy = "date"
	GroupByClient  GroupBy = "client"
	GroupByProject GroupBy = "project"
	GroupByTask    GroupBy = "task"
	GroupByPerson  GroupBy = "person"
)

// Keys and labels of the buckets collecting entries with a missing reference.
const (
	NoClientKey    = "no-client"
	NoProjectKey   = "no-project"
	NoTaskKey      = "no-task"
	UnknownUserKey = "unknown"

	NoClientLabel    = "No client"
	NoProjectLabel   = "No project"
	NoTaskLabel      = "No task"
	UnknownUserLabel = "Unknown"
)

const dateLabelLayout = "Monday, Jan 2, 2006"

type GroupBy string

// ParseGroupBy maps s to a known dimension, defaulting to date.
func ParseGroupBy(s string) GroupBy {
	switch g := GroupBy(s); g {
	case GroupByDate, GroupByClient, GroupByProject, GroupByTask, GroupByPerson:
		return g
	}
	return GroupByDate
}

// Group is one bucket of a grouped report.
type Group struct {
	Key        string           `json:"key"`
	Label      string           `json:"label"`
	SortKey    string           `json:"-"`
	Entries    []core.TimeEntry `json:"entries"`
	TotalHours decimal.Decimal  `json:"totalHours"`
}

// GroupEntries buckets entries by the given dimension in a single pass.
// Entries keep their input order inside a group. Date groups are ordered
// newest first; every other dimension is ordered by label, ignoring case.
func GroupEntries(entries []core.TimeEntry, by GroupBy) []Group {
	by = ParseGroupBy(string(by))

	buckets := make(map[string]*Group)
	order := make([]string, 0)
	for _, e := range entries {
		key, label := groupKey(e, by)
		g, ok := buckets[key]
		if !ok {
			g = &Group{Key: key, Label: label, SortKey: sortKey(key, label, by), TotalHours: decimal.Zero}
			buckets[key] = g
			order = append(order, key)
		}
		g.Entries = append(g.Entries, e)
		g.TotalHours = g.TotalHours.Add(e.Hours)
	}

	groups := make([]Group, 0, len(order))
	for _, key := range order {
		groups = append(groups, *buckets[key])
	}

	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if by == GroupByDate {
			return a.SortKey > b.SortKey
		}
		if a.SortKey != b.SortKey {
			return a.SortKey < b.SortKey
		}
		return a.Key < b.Key
	})
	return groups
}

// TotalHours is the grand total of entries, computed independently of any
// grouping.
func TotalHours(entries []core.TimeEntry) decimal.Decimal {
	return core.SumHours(entries)
}

func groupKey(e core.TimeEntry, by GroupBy) (string, string) {
	switch by {
	case GroupByClient:
		return refKey(e.Client, NoClientKey, NoClientLabel)
	case GroupByProject:
		return refKey(e.Project, NoProjectKey, NoProjectLabel)
	case GroupByTask:
		return refKey(e.Task, NoTaskKey, NoTaskLabel)
	case GroupByPerson:
		return refKey(e.User, UnknownUserKey, UnknownUserLabel)
	default:
		return e.Date.String(), e.Date.Format(dateLabelLayout)
	}
}

// refKey keys a bucket on the referenced id. A reference whose document is
// gone keeps its own bucket but shows the fallback label.
func refKey(ref *core.Ref, fallbackKey, fallbackLabel string) (string, string) {
	if ref == nil || ref.ID == "" {
		return fallbackKey, fallbackLabel
	}
	if ref.Name == "" {
		return ref.ID, fallbackLabel
	}
	return ref.ID, ref.Name
}

func sortKey(key, label string, by GroupBy) string {
	if by == GroupByDate {
		return key
	}
	return strings.ToLower(label)
}

// DateLabel formats a YYYY-MM-DD key the way date groups are labelled.
func DateLabel(key string) string {
	t, err := time.Parse(time.DateOnly, key)
	if err != nil {
		return key
	}
	return t.Format(dateLabelLayout)
}
