package flume

import (
	"sync"
)

// Lock is an exclusive lock with scoped acquisition. Shared operator state
// (zip slots, aggregation maps) is mutated only inside With, so a snapshot
// and the decision to emit it are computed as one atomic block.
type Lock struct {
	mu sync.Mutex
}

// With runs fn while holding the lock. The lock is released on every exit
// path, including panics.
func (l *Lock) With(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn()
}

// WithLock runs fn while holding l and returns its value.
func WithLock[T any](l *Lock, fn func() T) T {
	var out T
	l.With(func() {
		out = fn()
	})
	return out
}
