package session

import (
	"context"
	"sync"

	"github.com/fixado/dialog/core"
)

// keyLocks hands out one exclusive lock per session key. Entries are
// reference counted and removed once the last holder or waiter releases, so
// the map does not grow with session churn.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	sem  chan struct{} // capacity 1; holding the token means holding the lock
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*lockEntry)}
}

func (k *keyLocks) entry(key string) *lockEntry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.locks[key]
	if !ok {
		e = &lockEntry{sem: make(chan struct{}, 1)}
		k.locks[key] = e
	}
	e.refs++
	return e
}

func (k *keyLocks) put(key string, e *lockEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
}

// Acquire blocks until the key's lock is held or ctx is done. The returned
// release function must be called exactly once.
func (k *keyLocks) Acquire(ctx context.Context, key string) (func(), error) {
	e := k.entry(key)
	select {
	case e.sem <- struct{}{}:
		return func() {
			<-e.sem
			k.put(key, e)
		}, nil
	case <-ctx.Done():
		k.put(key, e)
		return nil, core.ErrLockTimeout
	}
}

// TryAcquire takes the lock only when it is immediately free. Used by the
// background sweep so it never blocks behind an in-flight turn.
func (k *keyLocks) TryAcquire(key string) (func(), bool) {
	e := k.entry(key)
	select {
	case e.sem <- struct{}{}:
		return func() {
			<-e.sem
			k.put(key, e)
		}, true
	default:
		k.put(key, e)
		return nil, false
	}
}
