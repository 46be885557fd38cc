package convert

import (
	"github.com/lawrencejones/convsink/pkg/sink"
)

// Fuse chains two converters, so the output of first becomes the input of second. In
// chunked mode the input sink of second is the downstream of first, so values flow
// through both state machines without being collected in between.
func Fuse[A, B, C any](first Converter[A, B], second Converter[B, C]) Converter[A, C] {
	return fused[A, B, C]{first: first, second: second}
}

type fused[A, B, C any] struct {
	first  Converter[A, B]
	second Converter[B, C]
}

func (f fused[A, B, C]) Convert(input A) (C, error) {
	mid, err := f.first.Convert(input)
	if err != nil {
		var empty C
		return empty, err
	}

	return f.second.Convert(mid)
}

func (f fused[A, B, C]) StartChunkedConversion(downstream sink.Sink[C]) ChunkedConversionSink[A] {
	return f.first.StartChunkedConversion(f.second.StartChunkedConversion(downstream))
}

// FuseSequence is Fuse for a second converter that produces many outputs.
func FuseSequence[A, B, C any](first Converter[A, B], second SequenceConverter[B, C]) SequenceConverter[A, C] {
	return fusedSequence[A, B, C]{first: first, second: second}
}

type fusedSequence[A, B, C any] struct {
	first  Converter[A, B]
	second SequenceConverter[B, C]
}

func (f fusedSequence[A, B, C]) Convert(input A) ([]C, error) {
	mid, err := f.first.Convert(input)
	if err != nil {
		return nil, err
	}

	return f.second.Convert(mid)
}

func (f fusedSequence[A, B, C]) StartChunkedConversion(downstream sink.Sink[C]) ChunkedConversionSink[A] {
	return f.first.StartChunkedConversion(f.second.StartChunkedConversion(downstream))
}
