// Package registry provides named, shared channels: looking up a name
// returns the same channel for every caller, creating it lazily on first
// use. Registered channels are permanent so no consumer can tear down a
// channel other parts of the system share.
package registry

import (
	"sync"

	"github.com/fluxward/flume"
)

// Registry maps names to shared channels of one message type.
type Registry[T any] struct {
	mu       sync.Mutex
	channels map[string]*flume.Channel[T]
}

// New creates an empty registry.
func New[T any]() *Registry[T] {
	return &Registry[T]{channels: make(map[string]*flume.Channel[T])}
}

// Lookup returns the channel registered under name, creating a permanent
// channel on first lookup.
func (r *Registry[T]) Lookup(name string) *flume.Channel[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[name]
	if !ok {
		ch = flume.NewPermanentChannel[T]()
		r.channels[name] = ch
	}
	return ch
}

// Names returns the registered channel names.
func (r *Registry[T]) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.channels))
	for name := range r.channels {
		names = append(names, name)
	}
	return names
}

// Release force-closes and forgets the channel registered under name.
func (r *Registry[T]) Release(name string) {
	r.mu.Lock()
	ch, ok := r.channels[name]
	delete(r.channels, name)
	r.mu.Unlock()
	if ok {
		ch.ForceClose()
	}
}
