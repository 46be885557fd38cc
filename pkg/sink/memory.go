package sink

import "sync"

// MemorySink is a reference implementation of a sink, recording everything it receives.
// It satisfies all requirements of a sink, including race-safety.
//
// Beyond offering a useful reference implementation, this can be used for testing
// converters without being coupled to a real destination.
type MemorySink[T any] struct {
	values []T
	err    error
	closed bool
	sync.Mutex
}

func NewMemorySink[T any]() *MemorySink[T] {
	return &MemorySink[T]{
		values: []T{},
	}
}

func (s *MemorySink[T]) Add(value T) error {
	s.Lock()
	defer s.Unlock()

	if s.closed {
		return closedError("add")
	}

	s.values = append(s.values, value)
	return nil
}

func (s *MemorySink[T]) AddError(err error) error {
	s.Lock()
	defer s.Unlock()

	if s.closed {
		return closedError("add error")
	}

	s.err, s.closed = err, true
	return nil
}

func (s *MemorySink[T]) Close() error {
	s.Lock()
	defer s.Unlock()

	if s.closed {
		return closedError("close")
	}

	s.closed = true
	return nil
}

// Values returns a copy of every value added so far, in order.
func (s *MemorySink[T]) Values() []T {
	s.Lock()
	defer s.Unlock()

	return append([]T(nil), s.values...)
}

// Err returns the error reported through AddError, if any.
func (s *MemorySink[T]) Err() error {
	s.Lock()
	defer s.Unlock()

	return s.err
}

// Closed is true once the sink has been closed, or has received an error.
func (s *MemorySink[T]) Closed() bool {
	s.Lock()
	defer s.Unlock()

	return s.closed
}
