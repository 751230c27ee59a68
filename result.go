package flume

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Result is a single-resolution future. It starts pending and transitions
// exactly once to either success or error; the first resolver wins and the
// outcome is immutable afterwards.
//
// Callbacks registered with Subscribe fire in subscription order on the
// goroutine that resolves the result. Callbacks registered after resolution
// fire immediately on the subscribing goroutine.
type Result[T any] struct {
	mu       sync.Mutex
	resolved bool
	value    T
	err      error
	subs     []*Subscription[T]
	done     chan struct{}
}

// Subscription is a cancellable handle to a pair of result callbacks.
type Subscription[T any] struct {
	cancelled atomic.Bool
	onSuccess func(T)
	onError   func(error)
}

// Cancel prevents the subscription's callbacks from firing.
// It has no effect once a callback has already run.
func (s *Subscription[T]) Cancel() {
	s.cancelled.Store(true)
}

// NewResult creates a pending result.
func NewResult[T any]() *Result[T] {
	return &Result[T]{done: make(chan struct{})}
}

// SuccessResult creates a result already resolved with value.
func SuccessResult[T any](value T) *Result[T] {
	r := NewResult[T]()
	r.Succeed(value)
	return r
}

// ErrorResult creates a result already resolved with err.
func ErrorResult[T any](err error) *Result[T] {
	r := NewResult[T]()
	r.Fail(err)
	return r
}

// Succeed resolves the result with value. Returns false if the result was
// already resolved; losing resolution attempts have no effect.
func (r *Result[T]) Succeed(value T) bool {
	r.mu.Lock()
	if r.resolved {
		r.mu.Unlock()
		return false
	}
	r.resolved = true
	r.value = value
	subs := r.subs
	r.subs = nil
	close(r.done)
	r.mu.Unlock()

	for _, s := range subs {
		if s.cancelled.Load() || s.onSuccess == nil {
			continue
		}
		s.onSuccess(value)
	}
	return true
}

// Fail resolves the result with err. Returns false if the result was
// already resolved.
func (r *Result[T]) Fail(err error) bool {
	if err == nil {
		err = ErrUpstream
	}
	r.mu.Lock()
	if r.resolved {
		r.mu.Unlock()
		return false
	}
	r.resolved = true
	r.err = err
	subs := r.subs
	r.subs = nil
	close(r.done)
	r.mu.Unlock()

	for _, s := range subs {
		if s.cancelled.Load() || s.onError == nil {
			continue
		}
		s.onError(err)
	}
	return true
}

// Subscribe registers callbacks for the result's resolution. Either callback
// may be nil. If the result is already resolved the matching callback runs
// before Subscribe returns.
func (r *Result[T]) Subscribe(onSuccess func(T), onError func(error)) *Subscription[T] {
	sub := &Subscription[T]{onSuccess: onSuccess, onError: onError}

	r.mu.Lock()
	if !r.resolved {
		r.subs = append(r.subs, sub)
		r.mu.Unlock()
		return sub
	}
	value, err := r.value, r.err
	r.mu.Unlock()

	if err != nil {
		if onError != nil {
			onError(err)
		}
	} else if onSuccess != nil {
		onSuccess(value)
	}
	return sub
}

// SubscribeAny registers type-erased callbacks, letting code that cannot
// name T (such as pipeline stages) observe the resolution.
func (r *Result[T]) SubscribeAny(onSuccess func(any), onError func(error)) {
	r.Subscribe(func(v T) { onSuccess(v) }, onError)
}

// PeekAny returns the type-erased outcome and whether the result has
// resolved, without blocking.
func (r *Result[T]) PeekAny() (any, error, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.resolved {
		return nil, nil, false
	}
	return r.value, r.err, true
}

// Resolved reports whether the result has left the pending state.
func (r *Result[T]) Resolved() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolved
}

// Err returns the result's error, or nil while pending or on success.
func (r *Result[T]) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Await blocks until the result resolves or ctx is done.
func (r *Result[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-r.done:
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value, r.err
}

// Must blocks until the result resolves and returns its value,
// panicking on error. Intended for tests and examples.
func (r *Result[T]) Must() T {
	v, err := r.Await(context.Background())
	if err != nil {
		panic(err)
	}
	return v
}

// WithTimeout returns a derived result that races r against a timer.
// If r has not resolved after d, the derived result fails with ErrTimeout.
// A non-positive d means already expired, never "no timeout".
func (r *Result[T]) WithTimeout(d time.Duration) *Result[T] {
	out := NewResult[T]()
	if d <= 0 {
		out.Fail(newErrTimeout(d))
		return out
	}
	timer := time.AfterFunc(d, func() {
		out.Fail(newErrTimeout(d))
	})
	r.Subscribe(
		func(v T) {
			timer.Stop()
			out.Succeed(v)
		},
		func(err error) {
			timer.Stop()
			out.Fail(err)
		},
	)
	return out
}

// MergeResults returns a result that succeeds with all input values in input
// order once every input succeeds, or fails with the first failure. Remaining
// inputs are ignored after a failure, not cancelled.
func MergeResults[T any](results ...*Result[T]) *Result[[]T] {
	out := NewResult[[]T]()
	if len(results) == 0 {
		out.Succeed(nil)
		return out
	}

	values := make([]T, len(results))
	var remaining atomic.Int64
	remaining.Store(int64(len(results)))

	for i, r := range results {
		r.Subscribe(
			func(v T) {
				values[i] = v
				if remaining.Add(-1) == 0 {
					out.Succeed(values)
				}
			},
			func(err error) {
				out.Fail(err)
			},
		)
	}
	return out
}
