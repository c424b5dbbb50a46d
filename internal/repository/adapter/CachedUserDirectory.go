package adapter

import (
	"context"
	"encoding/json"
	"time"

	cache "guru-chat/internal/infrastructure/cache/port"
	"guru-chat/internal/infrastructure/logger"
	repository "guru-chat/internal/repository/port"
)

const userKeyPrefix = "chat:directory:user:"

// CachedUserDirectory is a read-through cache in front of another directory.
// Cache failures degrade to the backing directory; unknown ids are not cached.
type CachedUserDirectory struct {
	next  repository.UserDirectory
	cache cache.Cache
	ttl   time.Duration
}

var _ repository.UserDirectory = (*CachedUserDirectory)(nil)

func NewCachedUserDirectory(next repository.UserDirectory, c cache.Cache, ttl time.Duration) *CachedUserDirectory {
	return &CachedUserDirectory{next: next, cache: c, ttl: ttl}
}

func userKey(id string) string { return userKeyPrefix + id }

// SearchUsers is never cached, but warms the per-user entries it returns.
func (d *CachedUserDirectory) SearchUsers(ctx context.Context, query string) ([]repository.User, error) {
	users, err := d.next.SearchUsers(ctx, query)
	if err != nil {
		return nil, err
	}
	d.store(ctx, users)
	return users, nil
}

func (d *CachedUserDirectory) GetUsersByIDs(ctx context.Context, ids []string) ([]repository.User, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return []repository.User{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = userKey(id)
	}

	hits, err := d.cache.GetMany(ctx, keys...)
	if err != nil {
		logger.Warn().Err(err).Int("ids", len(ids)).Msg("directory cache: read failed")
		hits = nil
	}

	found := make(map[string]repository.User, len(ids))
	var missing []string
	for i, id := range ids {
		var u repository.User
		raw, ok := hits[keys[i]]
		if !ok || json.Unmarshal([]byte(raw), &u) != nil {
			missing = append(missing, id)
			continue
		}
		found[id] = u
	}

	if len(missing) > 0 {
		fetched, err := d.next.GetUsersByIDs(ctx, missing)
		if err != nil {
			return nil, err
		}
		d.store(ctx, fetched)
		for _, u := range fetched {
			found[u.ID] = u
		}
	}

	out := make([]repository.User, 0, len(found))
	for _, id := range ids {
		if u, ok := found[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (d *CachedUserDirectory) store(ctx context.Context, users []repository.User) {
	entries := make(map[string]string, len(users))
	for _, u := range users {
		b, err := json.Marshal(u)
		if err != nil {
			continue
		}
		entries[userKey(u.ID)] = string(b)
	}
	if err := d.cache.SetMany(ctx, entries, d.ttl); err != nil {
		logger.Warn().Err(err).Int("users", len(entries)).Msg("directory cache: write failed")
	}
}
