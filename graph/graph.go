// Package graph implements the directed propagation graph underneath
// channels and bridges: propagator nodes connected by described edges,
// and the exclusive-consumption claim that gives a channel at most one
// active consumer.
package graph

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Kind identifies a propagator node's behavior.
type Kind int

const (
	// KindIdentity passes messages through unchanged.
	KindIdentity Kind = iota
	// KindTransform applies a transform function before propagating.
	KindTransform
	// KindTerminal delivers messages to a sink and propagates no further.
	KindTerminal
	// KindRouter selects a single downstream edge per message.
	KindRouter
)

// Unconsume releases an edge claim. It is idempotent and must be called on
// every termination path of the claiming consumer.
type Unconsume func()

// Edge connects a node to a downstream delivery function. The description
// exists for diagnostics; the claim flag enforces exclusive consumption.
type Edge[T any] struct {
	id          uuid.UUID
	description string
	sink        func(T)
	claimed     atomic.Bool
}

// Description returns the edge's diagnostic description.
func (e *Edge[T]) Description() string {
	return e.description
}

// String returns a diagnostic identifier for the edge.
func (e *Edge[T]) String() string {
	return e.description + " [" + e.id.String() + "]"
}

// Consume atomically claims the sole right to read along this edge.
// Returns false if the edge is already claimed. On success the returned
// Unconsume releases the claim; releasing is mandatory on every
// termination path.
func (e *Edge[T]) Consume() (Unconsume, bool) {
	if !e.claimed.CompareAndSwap(false, true) {
		return nil, false
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			e.claimed.Store(false)
		})
	}, true
}

// Consumed reports whether the edge is currently claimed.
func (e *Edge[T]) Consumed() bool {
	return e.claimed.Load()
}

// Deliver invokes the edge's downstream sink.
func (e *Edge[T]) Deliver(msg T) {
	if e.sink != nil {
		e.sink(msg)
	}
}

// Node is a propagator in the graph.
type Node[T any] struct {
	id        uuid.UUID
	kind      Kind
	transform func(T) T
	sink      func(T)
	route     func(T) *Edge[T]

	mu    sync.Mutex
	edges []*Edge[T]
}

// NewIdentity creates a pass-through node.
func NewIdentity[T any]() *Node[T] {
	return &Node[T]{id: uuid.New(), kind: KindIdentity}
}

// NewTransform creates a node that applies fn to each message before
// propagating it downstream.
func NewTransform[T any](fn func(T) T) *Node[T] {
	return &Node[T]{id: uuid.New(), kind: KindTransform, transform: fn}
}

// NewTerminal creates a sink node. Messages are delivered to sink and
// propagate no further.
func NewTerminal[T any](sink func(T)) *Node[T] {
	return &Node[T]{id: uuid.New(), kind: KindTerminal, sink: sink}
}

// NewRouter creates a distributing node. route selects the single edge a
// message is delivered on; a nil edge drops the message.
func NewRouter[T any](route func(T) *Edge[T]) *Node[T] {
	return &Node[T]{id: uuid.New(), kind: KindRouter, route: route}
}

// Kind returns the node's propagator kind.
func (n *Node[T]) Kind() Kind {
	return n.kind
}

// ID returns the node's identity.
func (n *Node[T]) ID() uuid.UUID {
	return n.id
}

// Link adds a downstream edge with the given description and delivery
// function, and returns it.
func (n *Node[T]) Link(description string, sink func(T)) *Edge[T] {
	e := &Edge[T]{id: uuid.New(), description: description, sink: sink}
	n.mu.Lock()
	n.edges = append(n.edges, e)
	n.mu.Unlock()
	return e
}

// Unlink removes a downstream edge.
func (n *Node[T]) Unlink(edge *Edge[T]) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, e := range n.edges {
		if e == edge {
			n.edges = append(n.edges[:i], n.edges[i+1:]...)
			return
		}
	}
}

// Edges returns a snapshot of the node's downstream edges.
func (n *Node[T]) Edges() []*Edge[T] {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*Edge[T], len(n.edges))
	copy(out, n.edges)
	return out
}

// Emit propagates msg through the node. Identity and transform nodes fan
// out to every edge, routers deliver on exactly one edge, terminals sink.
// No lock is held while downstream sinks run.
func (n *Node[T]) Emit(msg T) {
	switch n.kind {
	case KindTerminal:
		if n.sink != nil {
			n.sink(msg)
		}
		return
	case KindRouter:
		if e := n.route(msg); e != nil {
			e.Deliver(msg)
		}
		return
	case KindTransform:
		msg = n.transform(msg)
	}
	for _, e := range n.Edges() {
		e.Deliver(msg)
	}
}
