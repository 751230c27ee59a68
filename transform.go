package flume

// Transform applies handle to each message from src and emits the result.
// The output closes after src drains.
func Transform[In, Out any](src *Channel[In], handle func(In) Out) *Channel[Out] {
	out := NewChannel[Out]()
	BridgeInOrder(src, out, BridgeConfig[In]{
		Description: "transform",
		Callback: func(msg In) *Result[bool] {
			return out.Enqueue(handle(msg))
		},
		WaitOnCallback: true,
	})
	return out
}
