package flume

import (
	"time"

	"github.com/fluxward/flume/scheduler"
)

// Sample emits the most recent message from src once per period, skipping
// periods in which nothing new arrived. The periodic task is cancelled when
// src drains or errors.
func Sample[T any](period time.Duration, tq scheduler.TaskQueue, src *Channel[T]) *Channel[T] {
	if tq == nil {
		tq = scheduler.Default
	}
	out := NewChannel[T]()

	var (
		lock   Lock
		latest T
		fresh  bool
	)
	cancel := tq.ScheduleRepeating(period, func(scheduler.CancelFunc) {
		lock.With(func() {
			if fresh {
				out.Enqueue(latest)
				fresh = false
			}
		})
	})

	BridgeInOrder(src, out, BridgeConfig[T]{
		Description: "sample",
		Callback: func(msg T) *Result[bool] {
			lock.With(func() {
				latest = msg
				fresh = true
			})
			return nil
		},
		OnComplete: func(error) {
			cancel()
		},
	})
	return out
}
