// Package auth decides which cast authors may trigger trades.
package auth

// AllowList is an immutable set of usernames. Matching is exact and
// case-sensitive.
type AllowList struct {
	users map[string]struct{}
}

// NewAllowList copies users into a new AllowList. Empty names are skipped.
func NewAllowList(users []string) *AllowList {
	a := &AllowList{users: make(map[string]struct{}, len(users))}
	for _, u := range users {
		if u != "" {
			a.users[u] = struct{}{}
		}
	}
	return a
}

func (a *AllowList) IsAuthorized(username string) bool {
	_, ok := a.users[username]
	return ok
}

// Users returns the configured names, for startup logging.
func (a *AllowList) Users() []string {
	out := make([]string, 0, len(a.users))
	for u := range a.users {
		out = append(out, u)
	}
	return out
}
