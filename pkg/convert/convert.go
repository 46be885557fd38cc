// Defines the protocol every converter follows, whether called once over a whole input
// or fed chunk by chunk. Chunked conversions carry their parse state across calls, and
// publish values to a downstream sink as soon as they are fully determined.
//
// Format-specific converters live under pkg/codec. They implement a Handler, leaving
// SliceSink to enforce the lifecycle every chunked input sink shares.
package convert

import (
	"github.com/lawrencejones/convsink/pkg/sink"
)

// Bytes constrains chunk types that can be addressed by offset without copying.
type Bytes interface {
	~[]byte | ~string
}

// ChunkedConversionSink is the input side of a chunked conversion. Chunks must be
// presented in input order, and be logically contiguous: the concatenation of every
// chunk[start:end] is the input that Convert would have received.
//
// Implementations are not safe for concurrent use. Callers sharing an input sink across
// goroutines must serialise their calls.
type ChunkedConversionSink[In any] interface {
	sink.Sink[In]

	// AddSlice consumes chunk[start:end] as the next piece of input. The chunk is only
	// borrowed for the duration of the call. When isLast is set, the sink is closed after
	// the slice has been processed.
	AddSlice(chunk In, start, end int, isLast bool) error
}

// ChunkedConverter creates input sinks bound to a downstream sink. Each call returns an
// independent, freshly initialised input sink.
type ChunkedConverter[In, Out any] interface {
	StartChunkedConversion(sink.Sink[Out]) ChunkedConversionSink[In]
}

// Converter transforms a whole input into a single output. Converters hold no mutable
// state and are safe to share across goroutines.
type Converter[In, Out any] interface {
	// Convert returns either the full output or an error, never a partial result
	Convert(In) (Out, error)

	ChunkedConverter[In, Out]
}

// SequenceConverter transforms a whole input into an ordered sequence of outputs, such as
// lines from text or documents from a stream of JSON.
type SequenceConverter[In, Out any] interface {
	Convert(In) ([]Out, error)

	ChunkedConverter[In, Out]
}
