package lock

import (
	"context"
	"sync"
	"time"
)

// Locker serializes writers on a shared key. Progress updates use it to keep
// one writer per team and service date, so reads inside the critical section
// always see the latest tracking document.
type Locker interface {
	// Acquire blocks until the key is held or ctx is done. The returned
	// release func is idempotent.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// MemoryLocker is the single-process implementation. The ttl is ignored;
// a held lock is released only by its release func.
type MemoryLocker struct {
	mu   sync.Mutex
	sems map[string]chan struct{}
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{sems: map[string]chan struct{}{}}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	sem, ok := l.sems[key]
	if !ok {
		sem = make(chan struct{}, 1)
		l.sems[key] = sem
	}
	l.mu.Unlock()
	select {
	case sem <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-sem }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
