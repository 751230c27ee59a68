package flume

// Reduce folds src with f, seeding the accumulator from the first message.
// The returned result resolves with the final accumulation when src drains,
// or fails with ErrNoMessages if src closes without a message.
func Reduce[T any](f func(acc, msg T) T, src *Channel[T]) *Result[T] {
	out := NewResult[T]()
	var acc T
	seeded := false
	BridgeInOrder[T, T](src, nil, BridgeConfig[T]{
		Description: "reduce",
		Callback: func(msg T) *Result[bool] {
			if !seeded {
				acc = msg
				seeded = true
				return nil
			}
			acc = f(acc, msg)
			return nil
		},
		OnComplete: func(err error) {
			switch {
			case err != nil:
				out.Fail(err)
			case !seeded:
				out.Fail(ErrNoMessages)
			default:
				out.Succeed(acc)
			}
		},
	})
	return out
}

// ReduceFrom folds src with f starting from init. An empty source resolves
// with init.
func ReduceFrom[A, T any](f func(acc A, msg T) A, init A, src *Channel[T]) *Result[A] {
	out := NewResult[A]()
	acc := init
	BridgeInOrder[T, T](src, nil, BridgeConfig[T]{
		Description: "reduce-from",
		Callback: func(msg T) *Result[bool] {
			acc = f(acc, msg)
			return nil
		},
		OnComplete: func(err error) {
			if err != nil {
				out.Fail(err)
				return
			}
			out.Succeed(acc)
		},
	})
	return out
}

// Reductions emits every intermediate accumulation of folding src with f,
// seeding from the first message (which is emitted as the first
// accumulation).
func Reductions[T any](f func(acc, msg T) T, src *Channel[T]) *Channel[T] {
	out := NewChannel[T]()
	var acc T
	seeded := false
	BridgeInOrder(src, out, BridgeConfig[T]{
		Description: "reductions",
		Callback: func(msg T) *Result[bool] {
			if !seeded {
				acc = msg
				seeded = true
			} else {
				acc = f(acc, msg)
			}
			return out.Enqueue(acc)
		},
		WaitOnCallback: true,
	})
	return out
}

// ReductionsFrom emits init followed by every intermediate accumulation of
// folding src with f.
func ReductionsFrom[A, T any](f func(acc A, msg T) A, init A, src *Channel[T]) *Channel[A] {
	out := NewChannel[A]()
	out.Enqueue(init)
	acc := init
	BridgeInOrder(src, out, BridgeConfig[T]{
		Description: "reductions-from",
		Callback: func(msg T) *Result[bool] {
			acc = f(acc, msg)
			return out.Enqueue(acc)
		},
		WaitOnCallback: true,
	})
	return out
}
