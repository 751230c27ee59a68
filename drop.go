package flume

import (
	"fmt"
)

// Drop consumes and discards the first n messages from src, then forwards
// the remainder.
func Drop[T any](n int, src *Channel[T]) *Channel[T] {
	out := NewChannel[T]()
	dropped := 0
	BridgeInOrder(src, out, BridgeConfig[T]{
		Description: fmt.Sprintf("drop %d", n),
		Callback: func(msg T) *Result[bool] {
			if dropped < n {
				dropped++
				return nil
			}
			return out.Enqueue(msg)
		},
		WaitOnCallback: true,
	})
	return out
}

// DropWhile discards messages while pred returns true, then forwards the
// first failing message and everything after it.
func DropWhile[T any](pred func(T) bool, src *Channel[T]) *Channel[T] {
	out := NewChannel[T]()
	dropping := true
	BridgeInOrder(src, out, BridgeConfig[T]{
		Description: "drop-while",
		Callback: func(msg T) *Result[bool] {
			if dropping {
				if pred(msg) {
					return nil
				}
				dropping = false
			}
			return out.Enqueue(msg)
		},
		WaitOnCallback: true,
	})
	return out
}
