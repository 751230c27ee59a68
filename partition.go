package flume

import (
	"fmt"
)

// Partition emits windows of n messages, advancing by step: sliding when
// step < n, tumbling when step == n, skipping step-n messages between
// windows when step > n. An incomplete trailing window is discarded when
// src closes. step <= 0 defaults to n.
func Partition[T any](n, step int, src *Channel[T]) *Channel[[]T] {
	return partition(n, step, src, false, "partition")
}

// PartitionAll behaves like Partition but emits the incomplete trailing
// window when src closes.
func PartitionAll[T any](n, step int, src *Channel[T]) *Channel[[]T] {
	return partition(n, step, src, true, "partition-all")
}

func partition[T any](n, step int, src *Channel[T], trailing bool, name string) *Channel[[]T] {
	out := NewChannel[[]T]()
	if n <= 0 {
		out.Close()
		return out
	}
	if step <= 0 {
		step = n
	}

	// Accumulator state is touched only by the bridge's sequential callbacks.
	acc := make([]T, 0, n)
	skip := 0

	BridgeInOrder(src, out, BridgeConfig[T]{
		Description: fmt.Sprintf("%s %d/%d", name, n, step),
		Callback: func(msg T) *Result[bool] {
			if skip > 0 {
				skip--
				return nil
			}
			acc = append(acc, msg)
			if len(acc) < n {
				return nil
			}
			window := make([]T, n)
			copy(window, acc)
			res := out.Enqueue(window)
			if step < n {
				next := make([]T, 0, n)
				acc = append(next, acc[step:]...)
			} else {
				acc = acc[:0]
				skip = step - n
			}
			return res
		},
		WaitOnCallback: true,
		OnComplete: func(err error) {
			if err == nil && trailing && len(acc) > 0 {
				out.Enqueue(append([]T(nil), acc...))
			}
		},
	})
	return out
}
