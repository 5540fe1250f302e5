package report

import (
	"net/url"
	"strconv"
	"strings"
)

// Query-string keys of the detailed report.
const (
	KeyTimeframe       = "timeframe"
	KeyStartDate       = "start_date"
	KeyEndDate         = "end_date"
	KeyIncludeArchived = "include_archived"
	KeyGroupBy         = "group_by"
	KeyActiveProjects  = "active_projects"
	KeyClients         = "clients[]"
	KeyProjects        = "projects[]"
	KeyTasks           = "tasks[]"
	KeyUsers           = "user[]"
)

var paramKeys = []string{
	KeyTimeframe, KeyStartDate, KeyEndDate, KeyIncludeArchived, KeyGroupBy,
	KeyActiveProjects, KeyClients, KeyProjects, KeyTasks, KeyUsers,
}

// Params is the report request as carried in the page URL.
type Params struct {
	Timeframe       Timeframe `json:"timeframe,omitempty"`
	StartDate       string    `json:"startDate,omitempty"`
	EndDate         string    `json:"endDate,omitempty"`
	IncludeArchived bool      `json:"includeArchived,omitempty"`
	GroupBy         GroupBy   `json:"groupBy,omitempty"`
	ActiveProjects  bool      `json:"activeProjects,omitempty"`
	Clients         []string  `json:"clients,omitempty"`
	Projects        []string  `json:"projects,omitempty"`
	Tasks           []string  `json:"tasks,omitempty"`
	Users           []string  `json:"users,omitempty"`
}

// ParseParams reads report parameters from a query string. Repeated keys
// are accepted with or without the trailing brackets.
func ParseParams(v url.Values) Params {
	return Params{
		Timeframe:       Timeframe(strings.TrimSpace(v.Get(KeyTimeframe))),
		StartDate:       strings.TrimSpace(v.Get(KeyStartDate)),
		EndDate:         strings.TrimSpace(v.Get(KeyEndDate)),
		IncludeArchived: parseBool(v.Get(KeyIncludeArchived)),
		GroupBy:         GroupBy(strings.TrimSpace(v.Get(KeyGroupBy))),
		ActiveProjects:  parseBool(v.Get(KeyActiveProjects)),
		Clients:         list(v, KeyClients),
		Projects:        list(v, KeyProjects),
		Tasks:           list(v, KeyTasks),
		Users:           list(v, KeyUsers),
	}
}

// HasAny reports whether v carries any report parameter.
func HasAny(v url.Values) bool {
	for _, k := range paramKeys {
		if _, ok := v[k]; ok {
			return true
		}
		if _, ok := v[strings.TrimSuffix(k, "[]")]; ok {
			return true
		}
	}
	return false
}

// Values renders p as query values, omitting empty fields.
func (p Params) Values() url.Values {
	v := url.Values{}
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	set(KeyTimeframe, string(p.Timeframe))
	set(KeyStartDate, p.StartDate)
	set(KeyEndDate, p.EndDate)
	if p.IncludeArchived {
		v.Set(KeyIncludeArchived, "true")
	}
	set(KeyGroupBy, string(p.GroupBy))
	if p.ActiveProjects {
		v.Set(KeyActiveProjects, "true")
	}
	for k, ids := range map[string][]string{
		KeyClients:  p.Clients,
		KeyProjects: p.Projects,
		KeyTasks:    p.Tasks,
		KeyUsers:    p.Users,
	} {
		for _, id := range ids {
			v.Add(k, id)
		}
	}
	return v
}

// Encode renders p as a query string.
func (p Params) Encode() string {
	return p.Values().Encode()
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}

func list(v url.Values, key string) []string {
	raw := append(append([]string(nil), v[key]...), v[strings.TrimSuffix(key, "[]")]...)
	var out []string
	seen := make(map[string]struct{}, len(raw))
	for _, id := range raw {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
