package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "z-book-ai-api/pkg/errors"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewClientFromRedis(rdb), mr
}

func TestCache_GetOrLoadSafe(t *testing.T) {
	t.Run("Should load once and serve later calls from cache", func(t *testing.T) {
		client, mr := newTestClient(t)
		cache := NewCache(client)
		ctx := context.Background()

		calls := 0
		loader := func() (interface{}, error) {
			calls++
			return map[string]string{"tone": "friendly"}, nil
		}

		first, err := cache.GetOrLoadSafe(ctx, "book:research:abc", time.Hour, loader)
		require.NoError(t, err)
		second, err := cache.GetOrLoadSafe(ctx, "book:research:abc", time.Hour, loader)
		require.NoError(t, err)

		assert.Equal(t, 1, calls)
		assert.JSONEq(t, `{"tone":"friendly"}`, string(first))
		assert.Equal(t, first, second)
		assert.True(t, mr.Exists("book:research:abc"))
		assert.Equal(t, time.Hour, mr.TTL("book:research:abc"))
	})

	t.Run("Should not cache loader failures", func(t *testing.T) {
		client, mr := newTestClient(t)
		cache := NewCache(client)
		boom := errors.New("model down")

		_, err := cache.GetOrLoadSafe(context.Background(), "book:research:x", time.Hour, func() (interface{}, error) {
			return nil, boom
		})
		require.ErrorIs(t, err, boom)
		assert.False(t, mr.Exists("book:research:x"))
	})

	t.Run("Should invalidate only research keys", func(t *testing.T) {
		client, mr := newTestClient(t)
		cache := NewCache(client)
		ctx := context.Background()
		require.NoError(t, cache.Set(ctx, "book:research:1", "a", time.Hour))
		require.NoError(t, cache.Set(ctx, "book:research:2", "b", time.Hour))
		require.NoError(t, cache.Set(ctx, "other:key", "c", time.Hour))

		n, err := cache.InvalidateResearch(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.True(t, mr.Exists("other:key"))
		assert.False(t, mr.Exists("book:research:1"))
	})
}

func TestDocumentLocker(t *testing.T) {
	t.Run("Should serialise holders of the same key", func(t *testing.T) {
		client, _ := newTestClient(t)
		locker := NewDocumentLocker(client, 5*time.Second, WithLockRetry(time.Millisecond))
		ctx := context.Background()

		var (
			mu      sync.Mutex
			inside  int
			maxSeen int
			wg      sync.WaitGroup
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				release, err := locker.Lock(ctx, "book:refs:1")
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				mu.Unlock()
				time.Sleep(2 * time.Millisecond)
				mu.Lock()
				inside--
				mu.Unlock()
				release()
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, maxSeen)
	})

	t.Run("Should report busy when the wait budget is exhausted", func(t *testing.T) {
		client, _ := newTestClient(t)
		locker := NewDocumentLocker(client, 5*time.Second,
			WithLockRetry(time.Millisecond), WithLockMaxWait(20*time.Millisecond))
		ctx := context.Background()

		release, err := locker.Lock(ctx, "book:refs:2")
		require.NoError(t, err)
		defer release()

		_, err = locker.Lock(ctx, "book:refs:2")
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeLockBusy))
	})

	t.Run("Should not release a lock taken over by another holder", func(t *testing.T) {
		client, mr := newTestClient(t)
		locker := NewDocumentLocker(client, time.Second)
		ctx := context.Background()

		release, err := locker.Lock(ctx, "book:refs:3")
		require.NoError(t, err)

		// 锁过期后被其他持有者接管
		mr.FastForward(2 * time.Second)
		require.NoError(t, mr.Set("lock:book:refs:3", "someone-else"))

		release()
		got, err := mr.Get("lock:book:refs:3")
		require.NoError(t, err)
		assert.Equal(t, "someone-else", got)
	})

	t.Run("Should stop waiting when the context is cancelled", func(t *testing.T) {
		client, _ := newTestClient(t)
		locker := NewDocumentLocker(client, 5*time.Second, WithLockRetry(time.Millisecond))

		release, err := locker.Lock(context.Background(), "book:refs:4")
		require.NoError(t, err)
		defer release()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err = locker.Lock(ctx, "book:refs:4")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestRateLimiter(t *testing.T) {
	t.Run("Should reject requests beyond the window limit", func(t *testing.T) {
		client, _ := newTestClient(t)
		limiter := NewRateLimiter(client)
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			ok, err := limiter.Allow(ctx, "llm:rpm:openai", 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, ok)
		}
		ok, err := limiter.Allow(ctx, "llm:rpm:openai", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Should give up waiting when the context ends", func(t *testing.T) {
		client, _ := newTestClient(t)
		limiter := NewRateLimiter(client)
		limiter.poll = time.Millisecond

		ok, err := limiter.Allow(context.Background(), "llm:rpm:slow", 1, time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, limiter.Wait(ctx, "llm:rpm:slow", 1, time.Minute), context.DeadlineExceeded)
	})
}
