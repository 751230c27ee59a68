package flume

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

// BridgeState tracks a bridge's progress through its lifecycle.
type BridgeState int32

const (
	// BridgeUnstarted means the bridge has not attempted its claim.
	BridgeUnstarted BridgeState = iota
	// BridgeClaiming means the bridge is acquiring the source claim.
	BridgeClaiming
	// BridgeRunning means the bridge is reading messages.
	BridgeRunning
	// BridgeAwaitingCallback means the bridge is waiting for an in-flight
	// callback result before reading the next message.
	BridgeAwaitingCallback
	// BridgeCompleted means the source drained or the destination closed.
	BridgeCompleted
	// BridgeErrored means the bridge terminated on an error.
	BridgeErrored
	// BridgeStopped means the predicate signalled on-false.
	BridgeStopped
)

func (s BridgeState) String() string {
	switch s {
	case BridgeUnstarted:
		return "unstarted"
	case BridgeClaiming:
		return "claiming"
	case BridgeRunning:
		return "running"
	case BridgeAwaitingCallback:
		return "awaiting-callback"
	case BridgeCompleted:
		return "completed"
	case BridgeErrored:
		return "errored"
	case BridgeStopped:
		return "stopped"
	}
	return "unknown"
}

// Terminal reports whether the state ends the bridge.
func (s BridgeState) Terminal() bool {
	return s == BridgeCompleted || s == BridgeErrored || s == BridgeStopped
}

// BridgeConfig configures an ordered bridge between two channels.
type BridgeConfig[T any] struct {
	// Description identifies the bridge in diagnostics and logs.
	Description string
	// Predicate is checked before each callback; a false result ends the
	// bridge in the Stopped state without invoking the callback.
	Predicate func(T) bool
	// Callback is invoked for every message, in arrival order.
	Callback func(T) *Result[bool]
	// OnComplete runs exactly once when the bridge terminates, with the
	// terminating error, if any.
	OnComplete func(error)
	// WaitOnCallback holds off the next read until a pending result
	// returned by Callback resolves.
	WaitOnCallback bool
	// Logger for bridge events (default logger when nil).
	Logger Logger
}

// Bridge is a handle on a running bridge: its state machine position and a
// result resolving when the bridge terminates.
type Bridge struct {
	state  atomic.Int32
	result *Result[bool]
}

// State returns the bridge's current state.
func (b *Bridge) State() BridgeState {
	return BridgeState(b.state.Load())
}

// Result resolves true when the bridge terminates cleanly, or with the
// terminating error.
func (b *Bridge) Result() *Result[bool] {
	return b.result
}

func (b *Bridge) setState(s BridgeState) {
	b.state.Store(int32(s))
}

// BridgeInOrder claims src and drives its messages, one at a time and in
// arrival order, through cfg.Callback. The bridge terminates when src
// drains or errors, when dst closes, or when the predicate signals on-false.
// Every terminal path releases the claim, runs OnComplete once, and closes
// (or errors) dst. dst may be nil for terminal sinks.
func BridgeInOrder[In, Out any](src *Channel[In], dst *Channel[Out], cfg BridgeConfig[In]) *Bridge {
	b := &Bridge{result: NewResult[bool]()}
	log := logger(cfg.Logger)

	b.setState(BridgeClaiming)
	release, err := src.Claim()
	if err != nil {
		b.setState(BridgeErrored)
		log.Warn("Bridge claim failed",
			"component", "bridge",
			"description", cfg.Description,
			"channel", src.ID(),
			"error", err)
		if dst != nil {
			dst.Error(err, false)
		}
		if cfg.OnComplete != nil {
			cfg.OnComplete(err)
		}
		b.result.Fail(err)
		return b
	}

	ctx, cancel := context.WithCancel(context.Background())
	if dst != nil {
		dst.OnClosed(cancel)
		dst.OnError(func(error) { cancel() })
	}

	go func() {
		defer cancel()
		final := BridgeCompleted
		var cause error

	loop:
		for {
			b.setState(BridgeRunning)
			r := src.Receive()
			msg, err := r.Await(ctx)
			if err != nil {
				switch {
				case errors.Is(err, context.Canceled):
					// dst closed between messages; put any in-flight
					// message back for a later consumer.
					src.cancelReceive(r)
				case errors.Is(err, ErrDrained):
				default:
					final = BridgeErrored
					cause = err
				}
				break loop
			}

			if ctx.Err() != nil {
				src.unshift(msg)
				break loop
			}
			if cfg.Predicate != nil && !cfg.Predicate(msg) {
				final = BridgeStopped
				break loop
			}
			if cfg.Callback == nil {
				continue
			}

			res := invokeBridgeCallback(cfg.Callback, msg)
			if res == nil {
				continue
			}
			if cfg.WaitOnCallback {
				b.setState(BridgeAwaitingCallback)
				if _, err := res.Await(ctx); err != nil && !errors.Is(err, context.Canceled) {
					final = BridgeErrored
					cause = err
					break loop
				}
			} else if err := res.Err(); err != nil {
				final = BridgeErrored
				cause = err
				break loop
			}
		}

		b.setState(final)
		if cfg.OnComplete != nil {
			cfg.OnComplete(cause)
		}
		release()
		if cause != nil {
			log.Warn("Bridge terminated on error",
				"component", "bridge",
				"description", cfg.Description,
				"channel", src.ID(),
				"error", cause)
			if dst != nil {
				dst.Error(cause, false)
			}
		} else if dst != nil {
			dst.Close()
		}
		if cause != nil {
			b.result.Fail(cause)
		} else {
			b.result.Succeed(true)
		}
	}()

	return b
}

func invokeBridgeCallback[T any](fn func(T) *Result[bool], msg T) (res *Result[bool]) {
	defer func() {
		if p := recover(); p != nil {
			res = ErrorResult[bool](fmt.Errorf("flume: bridge callback panic: %v", p))
		}
	}()
	return fn(msg)
}

// Join bridges src into dst with full backpressure: each message waits for
// dst to accept it before the next is read. Destination errors propagate
// back to src, so a consumer failure aborts the producer.
func Join[T any](src, dst *Channel[T]) *Bridge {
	dst.OnError(func(cause error) {
		src.Error(cause, false)
	})
	return BridgeInOrder(src, dst, BridgeConfig[T]{
		Description:    "join",
		Callback:       func(msg T) *Result[bool] { return dst.Enqueue(msg) },
		WaitOnCallback: true,
	})
}

// Siphon bridges src into dst one-way: destination errors and closes stop
// the siphon but never propagate back to src.
func Siphon[T any](src, dst *Channel[T]) *Bridge {
	return BridgeInOrder(src, dst, BridgeConfig[T]{
		Description: "siphon",
		Callback:    func(msg T) *Result[bool] { return dst.Enqueue(msg) },
	})
}

// ReceiveAll claims the channel and invokes fn for every message, in order,
// until the channel drains or errors.
func (c *Channel[T]) ReceiveAll(fn func(T)) *Bridge {
	return BridgeInOrder[T, T](c, nil, BridgeConfig[T]{
		Description: "receive-all",
		Callback: func(msg T) *Result[bool] {
			fn(msg)
			return nil
		},
	})
}
