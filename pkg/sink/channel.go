package sink

import "sync"

// Event is a poor-mans sum type for values flowing through a Channel. Exactly one of
// Value or Err is meaningful: Err is set only on the final event of a failed session.
type Event[T any] struct {
	Value T
	Err   error
}

// Unwrap returns the error if the event carries one, otherwise the value.
func (e Event[T]) Unwrap() interface{} {
	if e.Err != nil {
		return e.Err
	}

	return e.Value
}

// Channel adapts the sink contract to a Go channel, for callers that want to consume
// conversion output as a stream. Sends block once the channel buffer is full, providing
// backpressure to the producer.
type Channel[T any] struct {
	events chan Event[T]
	closed bool
	sync.Mutex
}

// NewChannel creates a channel sink whose event channel has the given buffer size.
func NewChannel[T any](buffer int) *Channel[T] {
	return &Channel[T]{events: make(chan Event[T], buffer)}
}

// Events returns the stream of events. It is closed after Close, or after the error event
// produced by AddError, so ranging over it always terminates once the producer finishes.
func (c *Channel[T]) Events() <-chan Event[T] {
	return c.events
}

func (c *Channel[T]) Add(value T) error {
	c.Lock()
	defer c.Unlock()

	if c.closed {
		return closedError("add")
	}

	c.events <- Event[T]{Value: value}
	return nil
}

func (c *Channel[T]) AddError(err error) error {
	c.Lock()
	defer c.Unlock()

	if c.closed {
		return closedError("add error")
	}

	c.events <- Event[T]{Err: err}
	c.closed = true
	close(c.events)

	return nil
}

func (c *Channel[T]) Close() error {
	c.Lock()
	defer c.Unlock()

	if c.closed {
		return closedError("close")
	}

	c.closed = true
	close(c.events)

	return nil
}

// Drain consumes the channel until it closes, returning every value, or the error that
// ended the stream. Values received before an error are discarded.
func Drain[T any](events <-chan Event[T]) ([]T, error) {
	values := []T{}
	for event := range events {
		if event.Err != nil {
			return nil, event.Err
		}

		values = append(values, event.Value)
	}

	return values, nil
}
