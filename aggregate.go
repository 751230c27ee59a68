package flume

import (
	"maps"
	"sync/atomic"
	"time"

	"github.com/fluxward/flume/scheduler"
)

// AggregateConfig configures key-based fan-in accumulation.
type AggregateConfig[T any, K comparable] struct {
	// Facet extracts the accumulation key from a message.
	Facet func(T) K
	// Flush, when set, is checked after each accumulation; a true result
	// hands the map off immediately.
	Flush func(map[K]T) bool
	// Period, when > 0, flushes the accumulated map on a fixed schedule.
	Period time.Duration
	// TaskQueue drives periodic flushes (scheduler.Default when nil).
	TaskQueue scheduler.TaskQueue
	// Logger for aggregation events (default logger when nil).
	Logger Logger
}

// Aggregate accumulates the latest message per facet key and emits the
// accumulated map as one batch. A flush happens when a key repeats before
// the map was handed off (the lapped condition; the new occurrence starts
// the next map), when the Flush predicate returns true, or on the periodic
// schedule. A non-empty residual map is flushed once when src closes.
func Aggregate[T any, K comparable](src *Channel[T], cfg AggregateConfig[T, K]) *Channel[map[K]T] {
	out := NewChannel[map[K]T]()

	var lock Lock
	acc := make(map[K]T)

	// flush hands off the accumulated map and starts a fresh one.
	// Caller holds the lock.
	flush := func() {
		if len(acc) == 0 {
			return
		}
		batch := acc
		acc = make(map[K]T)
		out.Enqueue(batch)
	}

	cancel := scheduler.CancelFunc(func() {})
	if cfg.Period > 0 {
		tq := cfg.TaskQueue
		if tq == nil {
			tq = scheduler.Default
		}
		cancel = tq.ScheduleRepeating(cfg.Period, func(scheduler.CancelFunc) {
			lock.With(flush)
		})
	}

	BridgeInOrder(src, out, BridgeConfig[T]{
		Description: "aggregate",
		Logger:      cfg.Logger,
		Callback: func(msg T) *Result[bool] {
			lock.With(func() {
				key := cfg.Facet(msg)
				if _, lapped := acc[key]; lapped {
					flush()
				}
				acc[key] = msg
				if cfg.Flush != nil && cfg.Flush(acc) {
					flush()
				}
			})
			return nil
		},
		OnComplete: func(err error) {
			if err == nil {
				lock.With(flush)
			}
			cancel()
		},
	})
	return out
}

// DistributeAggregateConfig configures the composed per-key aggregate view.
type DistributeAggregateConfig[T any, K comparable] struct {
	// Facet extracts the key used both to fan messages out and to fan the
	// generated streams back in.
	Facet func(T) K
	// Generator transforms each key's sub-stream. Nil passes the
	// sub-stream through unchanged. Generated messages must preserve
	// their facet key.
	Generator func(K, *Channel[T]) *Channel[T]
	// Period is the refresh interval of the combined snapshot.
	Period time.Duration
	// TaskQueue drives the periodic refresh (scheduler.Default when nil).
	TaskQueue scheduler.TaskQueue
	// Logger for the composed operators (default logger when nil).
	Logger Logger
}

// DistributeAggregate fans src out by key, runs each key's sub-stream
// through the generator, aggregates the generated streams back into one
// combined per-key snapshot, and re-emits the latest snapshot every period
// until src drains. On source close the view flushes once synchronously,
// then the periodic task is cancelled.
func DistributeAggregate[T any, K comparable](src *Channel[T], cfg DistributeAggregateConfig[T, K]) *Channel[map[K]T] {
	collected := NewChannel[T]()
	out := NewChannel[map[K]T]()

	var (
		fanIn   atomic.Int64
		cleared atomic.Bool
	)
	closeCollected := func() {
		if cleared.Load() && fanIn.Load() == 0 {
			collected.Close()
		}
	}

	dist := Distribute(src, DistributorConfig[T, K]{
		Facet:  cfg.Facet,
		Logger: cfg.Logger,
		Initializer: func(key K) *Channel[T] {
			sub := NewChannel[T]()
			gen := sub
			if cfg.Generator != nil {
				gen = cfg.Generator(key, sub)
			}
			fanIn.Add(1)
			BridgeInOrder[T, T](gen, nil, BridgeConfig[T]{
				Description: "distribute-aggregate fan-in",
				Logger:      cfg.Logger,
				Callback: func(msg T) *Result[bool] {
					return collected.Enqueue(msg)
				},
				WaitOnCallback: true,
				OnComplete: func(error) {
					fanIn.Add(-1)
					closeCollected()
				},
			})
			return sub
		},
		OnClearance: func() {
			cleared.Store(true)
			closeCollected()
		},
	})

	agg := Aggregate(collected, AggregateConfig[T, K]{
		Facet:  cfg.Facet,
		Logger: cfg.Logger,
		Flush: func(m map[K]T) bool {
			open := dist.ActiveKeys()
			return open > 0 && len(m) >= open
		},
	})

	tq := cfg.TaskQueue
	if tq == nil {
		tq = scheduler.Default
	}
	var (
		lock     Lock
		combined = make(map[K]T)
	)
	refresh := func() {
		if len(combined) > 0 {
			out.Enqueue(maps.Clone(combined))
		}
	}
	cancel := tq.ScheduleRepeating(cfg.Period, func(scheduler.CancelFunc) {
		lock.With(refresh)
	})

	BridgeInOrder(agg, out, BridgeConfig[map[K]T]{
		Description: "distribute-aggregate",
		Logger:      cfg.Logger,
		Callback: func(batch map[K]T) *Result[bool] {
			lock.With(func() {
				maps.Copy(combined, batch)
				refresh()
			})
			return nil
		},
		OnComplete: func(err error) {
			if err == nil {
				lock.With(refresh)
			}
			cancel()
		},
	})
	return out
}
