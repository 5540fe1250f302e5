package report

import (
	"sort"

	"timesheets/internal/core"
)

// Scope computes the user ids whose entries the caller may see. A nil
// result means no restriction.
//
// Users only see themselves. Managers see the members of every team they
// manage plus themselves. Admins see everyone unless explicit ids are
// requested; explicit ids from anyone else are ignored.
func Scope(caller core.User, managed []core.Team, explicit []string) []string {
	switch caller.Role {
	case core.RoleAdmin:
		if len(explicit) == 0 {
			return nil
		}
		return uniqueSorted(explicit)
	case core.RoleManager:
		ids := []string{caller.ID}
		for _, team := range managed {
			if team.ManagerID != "" && team.ManagerID != caller.ID {
				continue
			}
			ids = append(ids, team.MemberIDs...)
		}
		return uniqueSorted(ids)
	default:
		return []string{caller.ID}
	}
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
