package manager

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisTestRepo(t *testing.T) Repo {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisRepo(rdb, "5-10", 300)
}

func repos(t *testing.T) map[string]Repo {
	return map[string]Repo{
		"memory": NewMemoryRepo(),
		"redis":  newRedisTestRepo(t),
	}
}

func entry(id string, buyIn int64) QueueEntry {
	return QueueEntry{UserID: id, Name: id, BuyIn: buyIn, EnqueuedAt: time.Now().UTC().Truncate(time.Second)}
}

func TestRepoFIFO(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.Enqueue(ctx, entry("a", 200)))
			require.NoError(t, repo.Enqueue(ctx, entry("b", 300)))
			require.NoError(t, repo.Enqueue(ctx, entry("c", 400)))

			n, err := repo.Len(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(3), n)

			for _, want := range []string{"a", "b", "c"} {
				e, ok, err := repo.Pop(ctx)
				require.NoError(t, err)
				require.True(t, ok)
				assert.Equal(t, want, e.UserID)
			}

			_, ok, err := repo.Pop(ctx)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestRepoRejectsDuplicates(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.Enqueue(ctx, entry("a", 200)))
			assert.Error(t, repo.Enqueue(ctx, entry("a", 200)))

			// popped entries may enqueue again
			_, _, _ = repo.Pop(ctx)
			assert.NoError(t, repo.Enqueue(ctx, entry("a", 200)))
		})
	}
}

func TestRepoRemove(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.Enqueue(ctx, entry("a", 200)))
			require.NoError(t, repo.Enqueue(ctx, entry("b", 200)))

			require.NoError(t, repo.Remove(ctx, "a"))
			n, _ := repo.Len(ctx)
			assert.Equal(t, int64(1), n)

			e, ok, err := repo.Pop(ctx)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "b", e.UserID)

			// removing an absent user is a no-op
			assert.NoError(t, repo.Remove(ctx, "ghost"))
		})
	}
}

func TestRepoEntryRoundTrip(t *testing.T) {
	repo := newRedisTestRepo(t)
	ctx := context.Background()
	in := entry("a", 750)
	in.Handle = "@a"
	require.NoError(t, repo.Enqueue(ctx, in))

	out, ok, err := repo.Pop(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in, out)
}
