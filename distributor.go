package flume

import (
	"fmt"

	"github.com/fluxward/flume/graph"
)

// DistributorConfig configures key-based fan-out.
type DistributorConfig[T any, K comparable] struct {
	// Facet extracts the routing key from a message.
	Facet func(T) K
	// Initializer creates the sub-channel the first time a key is seen,
	// and again if the key recurs after its sub-channel closed.
	// Defaults to NewChannel.
	Initializer func(K) *Channel[T]
	// OnClearance runs once after the distributor has closed and every
	// sub-channel has reached a terminal state. Used to coordinate
	// teardown of derived aggregations.
	OnClearance func()
	// Logger for distribution events (default logger when nil).
	Logger Logger
}

// Distributor routes each message to a per-key sub-channel through a
// distributing router node. Sub-channels closed by their consumers are
// evicted; a later occurrence of the key re-runs the initializer.
type Distributor[T any, K comparable] struct {
	cfg    DistributorConfig[T, K]
	router *graph.Node[T]
	bridge *Bridge

	lock    Lock
	subs    map[K]*Channel[T]
	edges   map[K]*graph.Edge[T]
	active  int
	closed  bool
	cleared bool
}

// Distribute claims src and fans its messages out by facet key.
func Distribute[T any, K comparable](src *Channel[T], cfg DistributorConfig[T, K]) *Distributor[T, K] {
	d := &Distributor[T, K]{
		cfg:   cfg,
		subs:  make(map[K]*Channel[T]),
		edges: make(map[K]*graph.Edge[T]),
	}
	d.router = graph.NewRouter(d.route)
	d.bridge = BridgeInOrder[T, T](src, nil, BridgeConfig[T]{
		Description: "distributor",
		Logger:      cfg.Logger,
		Callback: func(msg T) *Result[bool] {
			d.router.Emit(msg)
			return nil
		},
		OnComplete: d.shutdown,
	})
	return d
}

// Sub returns the live sub-channel for key, if one exists.
func (d *Distributor[T, K]) Sub(key K) (*Channel[T], bool) {
	var (
		sub *Channel[T]
		ok  bool
	)
	d.lock.With(func() {
		sub, ok = d.subs[key]
	})
	return sub, ok
}

// ActiveKeys returns the number of sub-channels not yet terminal.
func (d *Distributor[T, K]) ActiveKeys() int {
	return WithLock(&d.lock, func() int { return d.active })
}

// Router exposes the distributing graph node.
func (d *Distributor[T, K]) Router() *graph.Node[T] {
	return d.router
}

// Result resolves when distribution terminates.
func (d *Distributor[T, K]) Result() *Result[bool] {
	return d.bridge.Result()
}

func (d *Distributor[T, K]) route(msg T) *graph.Edge[T] {
	key := d.cfg.Facet(msg)
	if e := WithLock(&d.lock, func() *graph.Edge[T] {
		sub, ok := d.subs[key]
		if ok && !sub.Closed() {
			return d.edges[key]
		}
		if ok {
			// Consumer closed the sub-channel: evict so the key re-arms.
			d.router.Unlink(d.edges[key])
			delete(d.subs, key)
			delete(d.edges, key)
		}
		return nil
	}); e != nil {
		return e
	}

	// Only the claiming bridge calls route, so creation cannot race itself.
	sub := d.newSub(key)
	e := d.router.Link(fmt.Sprintf("facet %v", key), func(m T) {
		sub.Enqueue(m)
	})
	d.lock.With(func() {
		d.subs[key] = sub
		d.edges[key] = e
		d.active++
	})
	sub.OnDrained(d.subDone)
	sub.OnError(func(error) { d.subDone() })
	return e
}

func (d *Distributor[T, K]) newSub(key K) *Channel[T] {
	if d.cfg.Initializer != nil {
		return d.cfg.Initializer(key)
	}
	return NewChannel[T]()
}

func (d *Distributor[T, K]) subDone() {
	var clear bool
	d.lock.With(func() {
		d.active--
		if d.closed && d.active == 0 && !d.cleared {
			d.cleared = true
			clear = true
		}
	})
	if clear && d.cfg.OnClearance != nil {
		d.cfg.OnClearance()
	}
}

func (d *Distributor[T, K]) shutdown(err error) {
	var (
		subs  []*Channel[T]
		clear bool
	)
	d.lock.With(func() {
		d.closed = true
		for _, s := range d.subs {
			subs = append(subs, s)
		}
		if d.active == 0 && !d.cleared {
			d.cleared = true
			clear = true
		}
	})
	for _, s := range subs {
		if err != nil {
			s.Error(err, false)
		} else {
			s.Close()
		}
	}
	if clear && d.cfg.OnClearance != nil {
		d.cfg.OnClearance()
	}
}
