package app

import (
	"context"
	"sync"

	"github.com/neomorfeo/studiobook/internal/domain"
)

// ResourceLocker serializes availability checks and assignment writes for
// one resource on one day.
type ResourceLocker interface {
	Lock(ctx context.Context, key domain.ResourceKey) (unlock func(), err error)
}

// KeyedLocker is an in-process ResourceLocker. Entries are reference
// counted and dropped when the last holder unlocks.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	ch   chan struct{}
	refs int
}

// NewKeyedLocker creates an empty locker.
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{locks: make(map[string]*keyedLock)}
}

// Lock blocks until the key is free or ctx is done.
func (l *KeyedLocker) Lock(ctx context.Context, key domain.ResourceKey) (func(), error) {
	k := key.String()

	l.mu.Lock()
	entry, ok := l.locks[k]
	if !ok {
		entry = &keyedLock{ch: make(chan struct{}, 1)}
		l.locks[k] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(k, entry)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.ch
			l.release(k, entry)
		})
	}, nil
}

func (l *KeyedLocker) release(k string, entry *keyedLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, k)
	}
}
