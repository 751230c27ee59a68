package flume

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrChannelClosed indicates an enqueue into a closed channel.
	ErrChannelClosed = errors.New("flume: channel closed")
	// ErrDrained indicates a receive from a channel whose buffer is
	// exhausted and which accepts no further messages.
	ErrDrained = errors.New("flume: channel drained")
	// ErrAlreadyConsumed indicates a second consumer tried to claim a
	// channel that is already claimed by an active bridge.
	ErrAlreadyConsumed = errors.New("flume: channel already consumed")
	// ErrTimeout indicates a result's deadline elapsed before resolution.
	ErrTimeout = errors.New("flume: result timed out")
	// ErrAlreadyResolved indicates a resolution attempt on a resolved result.
	ErrAlreadyResolved = errors.New("flume: result already resolved")
	// ErrUpstream indicates an error placed on a source channel.
	ErrUpstream = errors.New("flume: upstream error")
	// ErrNoMessages indicates a seedless reduction over an empty channel.
	ErrNoMessages = errors.New("flume: no messages before close")

	// errReceiveCancelled fails a waiting receive withdrawn by its consumer.
	errReceiveCancelled = errors.New("flume: receive cancelled")
)

type errUpstream struct {
	cause error
}

func (e *errUpstream) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s", ErrUpstream.Error(), e.cause.Error())
	}
	return ErrUpstream.Error()
}

func (e *errUpstream) Unwrap() error {
	if e.cause == nil {
		return ErrUpstream
	}
	return fmt.Errorf("%w: %w", ErrUpstream, e.cause)
}

func newErrUpstream(err error) error {
	if err == nil {
		return ErrUpstream
	}
	if errors.Is(err, ErrUpstream) {
		return err
	}
	return &errUpstream{cause: err}
}

type errTimeout struct {
	after time.Duration
}

func (e *errTimeout) Error() string {
	return fmt.Sprintf("%s after %s", ErrTimeout.Error(), e.after)
}

func (e *errTimeout) Unwrap() error {
	return ErrTimeout
}

func newErrTimeout(after time.Duration) error {
	return &errTimeout{after: after}
}
