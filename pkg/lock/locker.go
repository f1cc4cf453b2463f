// Package lock provides per-key mutual exclusion, in process or across instances through Redis.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrNotHeld = errors.New("lock not held")

// Locker hands out exclusive leases on a key. Acquire blocks until the lease is granted or ctx ends.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

type Lease interface {
	Release(ctx context.Context) error
}

// LocalLocker serializes holders of the same key inside one process. ttl is ignored.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch      chan struct{}
	waiters int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]*slot)}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.waiters++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
		return &localLease{locker: l, key: key, slot: s}, nil
	case <-ctx.Done():
		l.forget(key, s)
		return nil, ctx.Err()
	}
}

// forget drops the slot once nobody holds or waits on it.
func (l *LocalLocker) forget(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.waiters--
	if s.waiters == 0 {
		delete(l.slots, key)
	}
}

type localLease struct {
	locker *LocalLocker
	key    string
	slot   *slot
	once   sync.Once
}

func (le *localLease) Release(ctx context.Context) error {
	released := false
	le.once.Do(func() {
		<-le.slot.ch
		le.locker.forget(le.key, le.slot)
		released = true
	})
	if !released {
		return ErrNotHeld
	}
	return nil
}
