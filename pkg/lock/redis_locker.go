package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// Only the owner token may delete or extend the key.
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// RedisLocker is a single-instance Redis lock: SET NX PX to take it, compare-and-delete to release.
// The lease refreshes its TTL while held so a slow run does not lose the lock.
type RedisLocker struct {
	rdb          redis.UniversalClient
	pollInterval time.Duration
}

func NewRedisLocker(rdb redis.UniversalClient) *RedisLocker {
	return &RedisLocker{rdb: rdb, pollInterval: 100 * time.Millisecond}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	token := uuid.NewString()
	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			return l.newLease(key, token, ttl), nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) newLease(key, token string, ttl time.Duration) *redisLease {
	ctx, cancel := context.WithCancel(context.Background())
	lease := &redisLease{rdb: l.rdb, key: key, token: token, cancel: cancel, done: make(chan struct{})}
	go lease.keepAlive(ctx, ttl)
	return lease
}

type redisLease struct {
	rdb    redis.UniversalClient
	key    string
	token  string
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (le *redisLease) keepAlive(ctx context.Context, ttl time.Duration) {
	defer close(le.done)

	interval := ttl / 3
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := refreshScript.Run(ctx, le.rdb, []string{le.key}, le.token, ttl.Milliseconds()).Int()
			if err == nil && n == 0 {
				// Lost to expiry, another holder may own it now.
				return
			}
		}
	}
}

func (le *redisLease) Release(ctx context.Context) error {
	err := ErrNotHeld
	le.once.Do(func() {
		le.cancel()
		<-le.done

		n, runErr := releaseScript.Run(ctx, le.rdb, []string{le.key}, le.token).Int()
		switch {
		case runErr != nil:
			err = fmt.Errorf("release %s: %w", le.key, runErr)
		case n == 0:
			err = ErrNotHeld
		default:
			err = nil
		}
	})
	return err
}
