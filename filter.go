package flume

// Filter passes through messages from src for which handle returns true.
// The output closes after src drains.
func Filter[T any](src *Channel[T], handle func(T) bool) *Channel[T] {
	out := NewChannel[T]()
	BridgeInOrder(src, out, BridgeConfig[T]{
		Description: "filter",
		Callback: func(msg T) *Result[bool] {
			if !handle(msg) {
				return nil
			}
			return out.Enqueue(msg)
		},
		WaitOnCallback: true,
	})
	return out
}
