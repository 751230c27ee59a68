package flume

import (
	"fmt"
	"sync/atomic"
)

// Take emits the first n messages from src, then closes. The boundary
// message is still delivered: the counter is checked after each enqueue.
// Take(0, src) returns an immediately closed channel without claiming src.
func Take[T any](n int, src *Channel[T]) *Channel[T] {
	out := NewChannel[T]()
	if n <= 0 {
		out.Close()
		return out
	}
	var count atomic.Int64
	BridgeInOrder(src, out, BridgeConfig[T]{
		Description: fmt.Sprintf("take %d", n),
		Callback: func(msg T) *Result[bool] {
			res := out.Enqueue(msg)
			if count.Add(1) >= int64(n) {
				out.Close()
			}
			return res
		},
		WaitOnCallback: true,
	})
	return out
}

// TakeWhile emits messages from src until pred returns false; the first
// failing message is not emitted.
func TakeWhile[T any](pred func(T) bool, src *Channel[T]) *Channel[T] {
	out := NewChannel[T]()
	BridgeInOrder(src, out, BridgeConfig[T]{
		Description: "take-while",
		Predicate:   pred,
		Callback: func(msg T) *Result[bool] {
			return out.Enqueue(msg)
		},
		WaitOnCallback: true,
	})
	return out
}
