package flume

import (
	"fmt"
	"sync/atomic"
)

// zipGate parks a slot's surplus arrival until the next emission clears it,
// propagating backpressure to that slot's bridge.
type zipGate[T any] struct {
	val T
	res *Result[bool]
}

// ZipAll combines the inputs in lock-step: a snapshot of all slots is
// emitted exactly when every input has contributed a new value since the
// previous emission, never a partial tuple. The output closes when any
// input drains, since no further complete tuple is possible.
func ZipAll[T any](chs ...*Channel[T]) *Channel[[]T] {
	return zip(-1, chs)
}

// Zip is ZipAll with a designated most-frequent input: a repeated arrival
// on that slot before the others have refilled triggers an eager emission
// of the prior snapshot, trading synchrony for freshness on the fast slot.
func Zip[T any](mostFrequent int, chs ...*Channel[T]) *Channel[[]T] {
	return zip(mostFrequent, chs)
}

func zip[T any](eager int, chs []*Channel[T]) *Channel[[]T] {
	out := NewChannel[[]T]()
	n := len(chs)
	if n == 0 {
		out.Close()
		return out
	}

	var (
		lock      Lock
		slots     = make([]T, n)
		filled    = make([]bool, n)
		parked    = make([]*zipGate[T], n)
		remaining = n
	)

	// emit snapshots all slots, resets the round, and seeds the next round
	// from parked arrivals. Caller holds the lock; the snapshot and the
	// decision to emit are one atomic block.
	emit := func() {
		snapshot := append([]T(nil), slots...)
		for j := range filled {
			filled[j] = false
		}
		remaining = n
		for j, g := range parked {
			if g != nil {
				parked[j] = nil
				slots[j] = g.val
				filled[j] = true
				remaining--
				g.res.Succeed(true)
			}
		}
		out.Enqueue(snapshot)
	}

	for i, ch := range chs {
		BridgeInOrder(ch, out, BridgeConfig[T]{
			Description: fmt.Sprintf("zip slot %d", i),
			Callback: func(msg T) *Result[bool] {
				var gate *Result[bool]
				lock.With(func() {
					if filled[i] {
						if i != eager {
							g := &zipGate[T]{val: msg, res: NewResult[bool]()}
							parked[i] = g
							gate = g.res
							return
						}
						emit()
					}
					slots[i] = msg
					filled[i] = true
					remaining--
					for remaining == 0 {
						emit()
					}
				})
				return gate
			},
			WaitOnCallback: true,
		})
	}
	return out
}

// CombineLatest emits a snapshot of the latest value per input on every
// arrival, once each input has contributed at least once. The output closes
// after all inputs have closed.
func CombineLatest[T any](chs ...*Channel[T]) *Channel[[]T] {
	out := NewChannel[[]T]()
	n := len(chs)
	if n == 0 {
		out.Close()
		return out
	}

	var (
		lock  Lock
		slots = make([]T, n)
		seen  = make([]bool, n)
		count int
		open  atomic.Int64
	)
	open.Store(int64(n))

	for i, ch := range chs {
		BridgeInOrder[T, []T](ch, nil, BridgeConfig[T]{
			Description: fmt.Sprintf("combine-latest slot %d", i),
			Callback: func(msg T) *Result[bool] {
				lock.With(func() {
					slots[i] = msg
					if !seen[i] {
						seen[i] = true
						count++
					}
					if count == n {
						out.Enqueue(append([]T(nil), slots...))
					}
				})
				return nil
			},
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
