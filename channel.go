package flume

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/fluxward/flume/graph"
)

// Channel is an ordered, closable message queue with drain/error terminal
// states. Producers enqueue without blocking; consumers receive through
// pending Results or claim the channel with a bridge for exclusive,
// in-order consumption.
//
// Lifecycle: open → closed (no more enqueues, buffer drains) → drained,
// or → errored. Drained and errored are terminal.
type Channel[T any] struct {
	id        uuid.UUID
	permanent bool

	mu        chanMutex
	buf       []T
	closed    bool
	errored   bool
	cause     error
	receivers []*Result[T]
	taps      []*Channel[T]
	onClosed  []func()
	onDrained []func()
	onError   []func(error)
	drainDone bool

	emitter *graph.Node[T]
	consume *graph.Edge[T]
}

// chanMutex exists to keep the lock-order invariant visible: a channel's
// mutex is never held while resolving receiver results or delivering to
// tap channels downstream.
type chanMutex = Lock

// NewChannel creates an open, unbounded channel.
func NewChannel[T any]() *Channel[T] {
	c := &Channel[T]{
		id:      uuid.New(),
		emitter: graph.NewIdentity[T](),
	}
	c.consume = c.emitter.Link("receive", nil)
	return c
}

// NewPermanentChannel creates a channel that refuses close and error unless
// forced. Enqueue into a permanent channel never fails.
func NewPermanentChannel[T any]() *Channel[T] {
	c := NewChannel[T]()
	c.permanent = true
	return c
}

// ID returns the channel's identity, used in diagnostics.
func (c *Channel[T]) ID() uuid.UUID {
	return c.id
}

// Permanent reports whether close and error are guarded.
func (c *Channel[T]) Permanent() bool {
	return c.permanent
}

// Enqueue appends msg to the channel. The returned result is the
// backpressure signal: it resolves true once downstream has accepted the
// message, or fails with ErrChannelClosed (or the channel's error cause)
// when the channel no longer accepts messages.
func (c *Channel[T]) Enqueue(msg T) *Result[bool] {
	var (
		rcv   *Result[T]
		edges []*graph.Edge[T]
	)
	var refused *Result[bool]
	c.mu.With(func() {
		switch {
		case c.errored:
			refused = ErrorResult[bool](newErrUpstream(c.cause))
		case c.closed:
			refused = ErrorResult[bool](ErrChannelClosed)
		case len(c.receivers) > 0:
			rcv = c.receivers[0]
			c.receivers = c.receivers[1:]
		default:
			c.buf = append(c.buf, msg)
		}
		if refused == nil {
			// Snapshot under the lock so a concurrent Fork sees the
			// message either in its backlog or on its new edge, never both.
			edges = c.emitter.Edges()
		}
	})
	if refused != nil {
		return refused
	}
	if rcv != nil {
		rcv.Succeed(msg)
	}
	for _, e := range edges {
		e.Deliver(msg)
	}
	return SuccessResult(true)
}

// Receive returns a result for the next message: resolved immediately if one
// is buffered, resolved later by the enqueue that supplies it, or failed
// with ErrDrained / the channel's error cause when no message will come.
func (c *Channel[T]) Receive() *Result[T] {
	var out *Result[T]
	var fireDrain bool
	c.mu.With(func() {
		if len(c.buf) > 0 {
			msg := c.buf[0]
			c.buf = c.buf[1:]
			out = SuccessResult(msg)
			fireDrain = c.closed && len(c.buf) == 0
			return
		}
		if c.errored {
			out = ErrorResult[T](newErrUpstream(c.cause))
			return
		}
		if c.closed {
			out = ErrorResult[T](ErrDrained)
			return
		}
		out = NewResult[T]()
		c.receivers = append(c.receivers, out)
	})
	if fireDrain {
		c.fireDrained()
	}
	return out
}

// TryReceive pops the next buffered message without registering a waiter.
func (c *Channel[T]) TryReceive() (T, bool) {
	var (
		msg       T
		ok        bool
		fireDrain bool
	)
	c.mu.With(func() {
		if len(c.buf) == 0 {
			return
		}
		msg = c.buf[0]
		c.buf = c.buf[1:]
		ok = true
		fireDrain = c.closed && len(c.buf) == 0
	})
	if fireDrain {
		c.fireDrained()
	}
	return msg, ok
}

// Close stops accepting new messages; buffered messages remain receivable.
// Once the buffer empties the channel is drained. Returns false for
// permanent channels and channels already closed or errored.
func (c *Channel[T]) Close() bool {
	return c.close(false)
}

// ForceClose closes the channel even if it is permanent.
func (c *Channel[T]) ForceClose() bool {
	return c.close(true)
}

func (c *Channel[T]) close(force bool) bool {
	var (
		ok       bool
		waiting  []*Result[T]
		observed []func()
		taps     []*Channel[T]
		drained  bool
	)
	c.mu.With(func() {
		if (c.permanent && !force) || c.closed || c.errored {
			return
		}
		ok = true
		c.closed = true
		waiting = c.receivers
		c.receivers = nil
		observed = c.onClosed
		c.onClosed = nil
		taps = append(taps, c.taps...)
		drained = len(c.buf) == 0
	})
	if !ok {
		return false
	}
	for _, fn := range observed {
		fn()
	}
	for _, r := range waiting {
		r.Fail(ErrDrained)
	}
	for _, t := range taps {
		t.Close()
	}
	if drained {
		c.fireDrained()
	}
	return true
}

// Error moves the channel to the errored terminal state, discarding any
// buffered messages and failing all waiting receivers with the cause.
// Permanent channels refuse unless force is set.
func (c *Channel[T]) Error(cause error, force bool) bool {
	var (
		ok       bool
		waiting  []*Result[T]
		observed []func(error)
		taps     []*Channel[T]
	)
	c.mu.With(func() {
		if (c.permanent && !force) || c.errored || c.drainDone {
			return
		}
		ok = true
		c.errored = true
		c.cause = cause
		c.buf = nil
		waiting = c.receivers
		c.receivers = nil
		observed = c.onError
		c.onError = nil
		taps = append(taps, c.taps...)
	})
	if !ok {
		return false
	}
	for _, fn := range observed {
		fn(cause)
	}
	for _, r := range waiting {
		r.Fail(newErrUpstream(cause))
	}
	for _, t := range taps {
		t.Error(cause, force)
	}
	return true
}

// Closed reports whether the channel accepts no more enqueues.
func (c *Channel[T]) Closed() bool {
	return WithLock(&c.mu, func() bool { return c.closed || c.errored })
}

// Drained reports whether the channel is closed with an empty buffer.
func (c *Channel[T]) Drained() bool {
	return WithLock(&c.mu, func() bool { return c.closed && len(c.buf) == 0 })
}

// Errored reports whether the channel is in the errored terminal state.
func (c *Channel[T]) Errored() bool {
	return WithLock(&c.mu, func() bool { return c.errored })
}

// Cause returns the error placed on the channel, if any.
func (c *Channel[T]) Cause() error {
	return WithLock(&c.mu, func() error { return c.cause })
}

// Len returns the number of buffered messages.
func (c *Channel[T]) Len() int {
	return WithLock(&c.mu, func() int { return len(c.buf) })
}

// OnClosed registers fn to run once when the channel closes.
// Fires immediately if the channel is already closed.
func (c *Channel[T]) OnClosed(fn func()) {
	var now bool
	c.mu.With(func() {
		if c.closed || c.errored {
			now = true
			return
		}
		c.onClosed = append(c.onClosed, fn)
	})
	if now {
		fn()
	}
}

// OnDrained registers fn to run once when the channel drains.
// Fires immediately if the channel is already drained.
func (c *Channel[T]) OnDrained(fn func()) {
	var now bool
	c.mu.With(func() {
		if c.drainDone {
			now = true
			return
		}
		c.onDrained = append(c.onDrained, fn)
	})
	if now {
		fn()
	}
}

// OnError registers fn to run once if the channel errors.
// Fires immediately if the channel is already errored.
func (c *Channel[T]) OnError(fn func(error)) {
	var (
		now   bool
		cause error
	)
	c.mu.With(func() {
		if c.errored {
			now = true
			cause = c.cause
			return
		}
		c.onError = append(c.onError, fn)
	})
	if now {
		fn(cause)
	}
}

func (c *Channel[T]) fireDrained() {
	var observed []func()
	c.mu.With(func() {
		if c.drainDone || !(c.closed && len(c.buf) == 0) {
			return
		}
		c.drainDone = true
		observed = c.onDrained
		c.onDrained = nil
	})
	for _, fn := range observed {
		fn()
	}
}

// Fork creates an independent reader of the channel's stream: it receives a
// snapshot of the current backlog plus every future message, and carries its
// own claim, so forked consumers never race the original's.
func (c *Channel[T]) Fork() *Channel[T] {
	f := NewChannel[T]()
	var (
		backlog []T
		closed  bool
		errored bool
		cause   error
	)
	c.mu.With(func() {
		backlog = append(backlog, c.buf...)
		closed = c.closed
		errored = c.errored
		cause = c.cause
		if !closed && !errored {
			c.taps = append(c.taps, f)
			c.emitter.Link("fork "+f.id.String(), func(msg T) {
				f.Enqueue(msg)
			})
		}
	})
	for _, msg := range backlog {
		f.Enqueue(msg)
	}
	if errored {
		f.Error(cause, false)
	} else if closed {
		f.Close()
	}
	return f
}

// Tap creates an independent reader that observes only future messages.
func (c *Channel[T]) Tap() *Channel[T] {
	f := NewChannel[T]()
	var (
		closed  bool
		errored bool
		cause   error
	)
	c.mu.With(func() {
		closed = c.closed
		errored = c.errored
		cause = c.cause
		if !closed && !errored {
			c.taps = append(c.taps, f)
			c.emitter.Link("tap "+f.id.String(), func(msg T) {
				f.Enqueue(msg)
			})
		}
	})
	if errored {
		f.Error(cause, false)
	} else if closed {
		f.Close()
	}
	return f
}

// Emitter exposes the channel's propagation node for graph composition.
func (c *Channel[T]) Emitter() *graph.Node[T] {
	return c.emitter
}

// Claim acquires the exclusive-consumption claim on the channel's receive
// edge. Returns ErrAlreadyConsumed if another consumer holds the claim.
func (c *Channel[T]) Claim() (graph.Unconsume, error) {
	release, ok := c.consume.Consume()
	if !ok {
		return nil, ErrAlreadyConsumed
	}
	return release, nil
}

// Consumed reports whether an active consumer holds the channel's claim.
func (c *Channel[T]) Consumed() bool {
	return c.consume.Consumed()
}

// cancelReceive withdraws a waiting receive. If the receive is already being
// resolved by a concurrent enqueue, the message is pushed back to the front
// of the buffer so it is not lost.
func (c *Channel[T]) cancelReceive(r *Result[T]) {
	var queued bool
	c.mu.With(func() {
		for i, x := range c.receivers {
			if x == r {
				c.receivers = append(c.receivers[:i], c.receivers[i+1:]...)
				queued = true
				return
			}
		}
	})
	if queued {
		r.Fail(errReceiveCancelled)
		return
	}
	msg, err := r.Await(context.Background())
	if err == nil {
		c.unshift(msg)
	}
}

// unshift returns msg to the front of the buffer.
func (c *Channel[T]) unshift(msg T) {
	c.mu.With(func() {
		c.buf = append([]T{msg}, c.buf...)
	})
}

// ToSlice drains the channel into a slice, blocking until it is drained or
// errored. A drained channel yields its messages and a nil error.
func ToSlice[T any](c *Channel[T]) ([]T, error) {
	var out []T
	for {
		v, err := c.Receive().Await(context.Background())
		if err != nil {
			if errors.Is(err, ErrDrained) {
				return out, nil
			}
			return out, err
		}
		out = append(out, v)
	}
}
