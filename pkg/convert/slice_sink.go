package convert

import (
	"errors"

	"github.com/lawrencejones/convsink/pkg/sink"

	pkgerrors "github.com/pkg/errors"
)

// Handler is the format-specific half of a chunked conversion. It owns the parse state
// that survives between chunks, and the downstream sink it publishes values to.
type Handler[In Bytes] interface {
	// Feed consumes chunk[start:end], resuming from wherever the previous call left off.
	// Every value that becomes fully determined is forwarded downstream before returning.
	// Partial tokens are kept internally until a later chunk completes them. Feed is never
	// called with an empty range.
	Feed(chunk In, start, end int) error

	// Finish is called at the end of input. It verifies nothing is left incomplete and
	// flushes any value still held back.
	Finish() error
}

// SliceSink implements the lifecycle shared by every chunked conversion input sink,
// delegating the parsing to a Handler. Malformed input is reported through the
// downstream's AddError, while misuse of the sink itself (closed, bad offsets) is
// returned to the caller.
type SliceSink[In Bytes, Out any] struct {
	downstream sink.Sink[Out]
	handler    Handler[In]
	closed     bool
	failed     bool // a format error has been reported downstream
}

var _ ChunkedConversionSink[[]byte] = &SliceSink[[]byte, any]{}

func NewSliceSink[In Bytes, Out any](downstream sink.Sink[Out], handler Handler[In]) *SliceSink[In, Out] {
	return &SliceSink[In, Out]{
		downstream: downstream,
		handler:    handler,
	}
}

func (s *SliceSink[In, Out]) Add(chunk In) error {
	return s.AddSlice(chunk, 0, len(chunk), false)
}

// AddSlice feeds chunk[start:end] to the handler. Empty slices are a no-op, unless isLast
// is set, in which case the input is still finalised.
//
// Slices are assumed to be contiguous and in input order. Overlapping or reordered
// slices are not detected, and produce undefined output.
func (s *SliceSink[In, Out]) AddSlice(chunk In, start, end int, isLast bool) error {
	if s.closed {
		return pkgerrors.Wrap(sink.ErrClosed, "add slice")
	}

	if start < 0 || end < start || end > len(chunk) {
		return &SliceBoundsError{Start: start, End: end, Len: len(chunk)}
	}

	// Once we've failed, the session is over as far as downstream is concerned. Discard
	// anything else we're given until the caller closes us.
	if start < end && !s.failed {
		if err := s.report(s.handler.Feed(chunk, start, end)); err != nil {
			return err
		}
	}

	if isLast {
		return s.Close()
	}

	return nil
}

// AddError forwards an upstream failure, ending the session.
func (s *SliceSink[In, Out]) AddError(err error) error {
	if s.closed {
		return pkgerrors.Wrap(sink.ErrClosed, "add error")
	}

	s.closed = true
	if s.failed {
		return nil
	}

	s.failed = true
	return s.downstream.AddError(err)
}

// Close signals the end of input. If the handler finds the input incomplete, the format
// error is reported downstream instead of closing it.
func (s *SliceSink[In, Out]) Close() error {
	if s.closed {
		return pkgerrors.Wrap(sink.ErrClosed, "close")
	}

	s.closed = true
	if s.failed {
		return nil
	}

	if err := s.handler.Finish(); err != nil {
		return s.report(err)
	}

	return s.downstream.Close()
}

// report routes format errors downstream, returning anything else to the caller.
func (s *SliceSink[In, Out]) report(err error) error {
	if err == nil {
		return nil
	}

	var formatErr *FormatError
	if !errors.As(err, &formatErr) {
		return err
	}

	s.failed = true
	return s.downstream.AddError(err)
}
