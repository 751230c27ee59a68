package flume

import (
	"sync/atomic"
)

// MergeChannels fans all inputs into a single output channel. The output
// closes only once every input has closed; an errored input errors the
// output.
func MergeChannels[T any](chs ...*Channel[T]) *Channel[T] {
	out := NewChannel[T]()
	if len(chs) == 0 {
		out.Close()
		return out
	}

	var open atomic.Int64
	open.Store(int64(len(chs)))

	for _, ch := range chs {
		BridgeInOrder[T, T](ch, nil, BridgeConfig[T]{
			Description: "merge",
			Callback: func(msg T) *Result[bool] {
				return out.Enqueue(msg)
			},
			WaitOnCallback: true,
			OnComplete: func(err error) {
				if err != nil {
					out.Error(err, false)
					return
				}
				if open.Add(-1) == 0 {
					out.Close()
				}
			},
		})
	}
	return out
}
