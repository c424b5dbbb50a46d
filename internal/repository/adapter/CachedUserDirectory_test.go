package adapter

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cacheadapter "guru-chat/internal/infrastructure/cache/adapter"
	"guru-chat/internal/infrastructure/logger"
	repository "guru-chat/internal/repository/port"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// countingDirectory records which ids reach the backing directory.
type countingDirectory struct {
	*StaticUserDirectory
	mu        sync.Mutex
	requested [][]string
	fail      bool
}

func (d *countingDirectory) GetUsersByIDs(ctx context.Context, ids []string) ([]repository.User, error) {
	d.mu.Lock()
	d.requested = append(d.requested, append([]string(nil), ids...))
	d.mu.Unlock()
	if d.fail {
		return nil, errors.New("directory down")
	}
	return d.StaticUserDirectory.GetUsersByIDs(ctx, ids)
}

func newCached(t *testing.T) (*CachedUserDirectory, *countingDirectory, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	backing := &countingDirectory{StaticUserDirectory: NewStaticUserDirectory(
		repository.User{ID: "5", DisplayName: "Ana"},
		repository.User{ID: "9", DisplayName: "Bea"},
	)}
	return NewCachedUserDirectory(backing, cacheadapter.NewRedisCache(client), time.Minute), backing, mr
}

func TestCachedDirectoryReadsThrough(t *testing.T) {
	d, backing, mr := newCached(t)
	ctx := context.Background()

	users, err := d.GetUsersByIDs(ctx, []string{"9", "5", "404"})
	require.NoError(t, err)
	assert.Equal(t, []string{"9", "5"}, []string{users[0].ID, users[1].ID})
	assert.True(t, mr.Exists("chat:directory:user:9"))
	assert.False(t, mr.Exists("chat:directory:user:404"))

	users, err = d.GetUsersByIDs(ctx, []string{"5", "9"})
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Len(t, backing.requested, 1, "second lookup is served from cache")

	_, err = d.GetUsersByIDs(ctx, []string{"5", "404"})
	require.NoError(t, err)
	assert.Equal(t, []string{"404"}, backing.requested[1])
}

func TestCachedDirectoryExpires(t *testing.T) {
	d, backing, mr := newCached(t)
	ctx := context.Background()

	_, err := d.GetUsersByIDs(ctx, []string{"5"})
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	_, err = d.GetUsersByIDs(ctx, []string{"5"})
	require.NoError(t, err)
	assert.Len(t, backing.requested, 2)
}

func TestCachedDirectoryDegradesWhenCacheDown(t *testing.T) {
	d, backing, mr := newCached(t)
	mr.Close()

	users, err := d.GetUsersByIDs(context.Background(), []string{"5"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Ana", users[0].DisplayName)
	assert.Len(t, backing.requested, 1)
}

func TestCachedDirectoryPropagatesDirectoryFailure(t *testing.T) {
	d, backing, _ := newCached(t)
	backing.fail = true

	_, err := d.GetUsersByIDs(context.Background(), []string{"5"})
	assert.Error(t, err)
}

func TestCachedDirectorySearchWarmsCache(t *testing.T) {
	d, backing, mr := newCached(t)

	users, err := d.SearchUsers(context.Background(), "be")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.True(t, mr.Exists("chat:directory:user:9"))

	_, err = d.GetUsersByIDs(context.Background(), []string{"9"})
	require.NoError(t, err)
	assert.Empty(t, backing.requested)
}
