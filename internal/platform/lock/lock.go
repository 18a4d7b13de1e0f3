// Package lock provides per-key mutual exclusion for serializing aggregate
// mutations. The keyed in-process implementation covers a single instance;
// the Redis implementation covers multi-instance deployments.
package lock

import (
	"context"
	"sync"
)

// Locker serializes work per key. Acquire blocks until the key's lock is held
// or ctx is done; the returned release function must be called exactly once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Keyed is an in-process Locker backed by one mutex per live key. Entries are
// reference counted and removed when the last holder releases, so the map
// does not grow with the total number of keys ever seen.
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	ch   chan struct{}
	refs int
}

// NewKeyed creates an in-process keyed locker.
func NewKeyed() *Keyed {
	return &Keyed{locks: make(map[string]*entry)}
}

func (k *Keyed) Acquire(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		return func() { k.release(key, e) }, nil
	case <-ctx.Done():
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
		return nil, ctx.Err()
	}
}

func (k *Keyed) release(key string, e *entry) {
	<-e.ch
	k.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
}
