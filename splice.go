package flume

// Duplex is one endpoint of a bidirectional link built from two directional
// channels: enqueues travel on out, receives arrive on in. The two
// directions are independent queues; lifecycle transitions cross over via
// observer callbacks, not shared ownership.
type Duplex[T any] struct {
	in  *Channel[T]
	out *Channel[T]
}

// Splice links two directional channels into one logical bidirectional
// endpoint. Closing or erroring either direction closes the other.
func Splice[T any](in, out *Channel[T]) *Duplex[T] {
	in.OnClosed(func() { out.Close() })
	out.OnClosed(func() { in.Close() })
	in.OnError(func(cause error) { out.Error(cause, false) })
	out.OnError(func(cause error) { in.Error(cause, false) })
	return &Duplex[T]{in: in, out: out}
}

// ChannelPair creates two connected endpoints: messages enqueued on one are
// received on the other.
func ChannelPair[T any]() (*Duplex[T], *Duplex[T]) {
	a := NewChannel[T]()
	b := NewChannel[T]()
	return Splice(a, b), Splice(b, a)
}

// Enqueue sends msg on the outgoing direction.
func (d *Duplex[T]) Enqueue(msg T) *Result[bool] {
	return d.out.Enqueue(msg)
}

// Receive returns a result for the next incoming message.
func (d *Duplex[T]) Receive() *Result[T] {
	return d.in.Receive()
}

// In returns the incoming directional channel.
func (d *Duplex[T]) In() *Channel[T] {
	return d.in
}

// Out returns the outgoing directional channel.
func (d *Duplex[T]) Out() *Channel[T] {
	return d.out
}

// Close closes both directions.
func (d *Duplex[T]) Close() {
	d.out.Close()
	d.in.Close()
}

// Error errors both directions with cause.
func (d *Duplex[T]) Error(cause error, force bool) {
	d.out.Error(cause, force)
	d.in.Error(cause, force)
}
