package flume

// FromSlice creates a channel holding each element of slice in order,
// already closed. Receiving past the last element observes the drain.
func FromSlice[T any](slice []T) *Channel[T] {
	c := NewChannel[T]()
	for _, v := range slice {
		c.Enqueue(v)
	}
	c.Close()
	return c
}

// FromValues creates a closed channel holding each value in order.
func FromValues[T any](values ...T) *Channel[T] {
	return FromSlice(values)
}
