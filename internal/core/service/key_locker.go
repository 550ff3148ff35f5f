package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/99minutos/geofence-system/internal/core/domain"
)

type keyLock struct {
	sem  chan struct{}
	refs int
}

// MemoryLocker is a process-local ports.KeyLocker with one lock per key.
// Entries are reference counted and removed once no caller holds or waits
// on them. Use the redis locker when several processes share one store.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*keyLock)}
}

// Acquire waits until key is free or ctx is done.
func (l *MemoryLocker) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{sem: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.sem <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-kl.sem
				l.unref(key, kl)
			})
		}, nil
	case <-ctx.Done():
		l.unref(key, kl)
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrLockTimeout, key, ctx.Err())
	}
}

// Len reports how many keys currently have holders or waiters.
func (l *MemoryLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func (l *MemoryLocker) unref(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}
