package sink

import (
	"sync"

	"github.com/pkg/errors"
)

// BufferedSink groups values into batches before forwarding them to a downstream sink.
// Whenever the buffer fills, a batch of exactly bufferSize values is pushed downstream.
// Close flushes whatever remains before closing the downstream.
type BufferedSink[T any] struct {
	downstream Sink[[]T]
	buffer     []T
	bufferSize int
	closed     bool
	sync.Mutex
}

// NewBufferedSink wraps a batch sink with a buffer of the given size. Sizes below one
// are treated as one, forwarding every value in its own batch.
func NewBufferedSink[T any](downstream Sink[[]T], bufferSize int) *BufferedSink[T] {
	if bufferSize < 1 {
		bufferSize = 1
	}

	return &BufferedSink[T]{
		downstream: downstream,
		buffer:     make([]T, 0, bufferSize),
		bufferSize: bufferSize,
	}
}

func (s *BufferedSink[T]) Add(value T) error {
	s.Lock()
	defer s.Unlock()

	if s.closed {
		return closedError("add")
	}

	for _, batch := range s.enqueueAndOverflow([]T{value}, false) {
		if err := s.downstream.Add(batch); err != nil {
			return errors.Wrap(err, "failed to forward batch")
		}
	}

	return nil
}

// AddError forwards the error without flushing: buffered values belong to a session
// that has failed, and are dropped.
func (s *BufferedSink[T]) AddError(err error) error {
	s.Lock()
	defer s.Unlock()

	if s.closed {
		return closedError("add error")
	}

	s.closed, s.buffer = true, nil
	return s.downstream.AddError(err)
}

func (s *BufferedSink[T]) Close() error {
	s.Lock()
	defer s.Unlock()

	if s.closed {
		return closedError("close")
	}

	s.closed = true
	for _, batch := range s.enqueueAndOverflow(nil, true) {
		if err := s.downstream.Add(batch); err != nil {
			err = errors.Wrap(err, "failed to flush batch")
			if addErr := s.downstream.AddError(err); addErr != nil {
				return errors.Wrap(addErr, err.Error())
			}

			return err
		}
	}

	return s.downstream.Close()
}

// enqueueAndOverflow appends values to the buffer, returning chunks of bufferSize that
// have overflowed and need forwarding. If overflowAll is set, we clear everything out of
// the buffer and into the overflow batches.
func (s *BufferedSink[T]) enqueueAndOverflow(values []T, overflowAll bool) [][]T {
	s.buffer = append(s.buffer, values...)
	overflowBatches := make([][]T, 0, (len(s.buffer)+s.bufferSize-1)/s.bufferSize)

	for s.bufferSize <= len(s.buffer) {
		s.buffer, overflowBatches = s.buffer[s.bufferSize:], append(overflowBatches, s.buffer[0:s.bufferSize:s.bufferSize])
	}

	if overflowAll && len(s.buffer) > 0 {
		overflowBatches = append(overflowBatches, s.buffer)
		s.buffer = make([]T, 0, s.bufferSize)
	}

	return overflowBatches
}
