package adapter

import (
	"context"
	"sort"
	"strings"

	repository "guru-chat/internal/repository/port"
)

// StaticUserDirectory serves a fixed set of users. Used in development and tests.
type StaticUserDirectory struct {
	users map[string]repository.User
}

var _ repository.UserDirectory = (*StaticUserDirectory)(nil)

func NewStaticUserDirectory(users ...repository.User) *StaticUserDirectory {
	m := make(map[string]repository.User, len(users))
	for _, u := range users {
		m[u.ID] = u
	}
	return &StaticUserDirectory{users: m}
}

// SearchUsers matches a case-insensitive substring of the display name, or an id prefix.
func (d *StaticUserDirectory) SearchUsers(_ context.Context, query string) ([]repository.User, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, nil
	}
	var out []repository.User
	for _, u := range d.users {
		if strings.Contains(strings.ToLower(u.DisplayName), q) || strings.HasPrefix(u.ID, q) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayName != out[j].DisplayName {
			return out[i].DisplayName < out[j].DisplayName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (d *StaticUserDirectory) GetUsersByIDs(_ context.Context, ids []string) ([]repository.User, error) {
	var out []repository.User
	for _, id := range uniqueIDs(ids) {
		if u, ok := d.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}
