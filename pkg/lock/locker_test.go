package lock

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseMutualExclusion(t *testing.T, locker Locker, key string) {
	t.Helper()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lease, err := locker.Acquire(context.Background(), key, 5*time.Second)
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			assert.NoError(t, lease.Release(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
}

func TestLocalLockerMutualExclusion(t *testing.T) {
	exerciseMutualExclusion(t, NewLocalLocker(), "counsel:session:1")
}

func TestLocalLockerIndependentKeys(t *testing.T) {
	l := NewLocalLocker()

	a, err := l.Acquire(context.Background(), "a", time.Second)
	require.NoError(t, err)
	b, err := l.Acquire(context.Background(), "b", time.Second)
	require.NoError(t, err)

	require.NoError(t, a.Release(context.Background()))
	require.NoError(t, b.Release(context.Background()))
}

func TestLocalLockerAcquireHonoursContext(t *testing.T) {
	l := NewLocalLocker()
	held, err := l.Acquire(context.Background(), "k", time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "k", time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, held.Release(context.Background()))

	again, err := l.Acquire(context.Background(), "k", time.Second)
	require.NoError(t, err)
	require.NoError(t, again.Release(context.Background()))
}

func TestLocalLeaseDoubleRelease(t *testing.T) {
	l := NewLocalLocker()
	lease, err := l.Acquire(context.Background(), "k", time.Second)
	require.NoError(t, err)

	require.NoError(t, lease.Release(context.Background()))
	assert.ErrorIs(t, lease.Release(context.Background()), ErrNotHeld)
	assert.Empty(t, l.slots)
}

func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisLockerMutualExclusion(t *testing.T) {
	rdb := redisClient(t)
	exerciseMutualExclusion(t, NewRedisLocker(rdb), "test:lock:"+uuid.NewString())
}

func TestRedisLeaseRefreshesTTL(t *testing.T) {
	rdb := redisClient(t)
	key := "test:lock:" + uuid.NewString()

	lease, err := NewRedisLocker(rdb).Acquire(context.Background(), key, 300*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(700 * time.Millisecond)
	exists, err := rdb.Exists(context.Background(), key).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)

	require.NoError(t, lease.Release(context.Background()))
	exists, err = rdb.Exists(context.Background(), key).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), exists)
}
