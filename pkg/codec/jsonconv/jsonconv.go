// Implements JSON decoding as a chunked converter. The decoder accepts input in arbitrary
// pieces, split at any byte, and produces the same values encoding/json would decode
// into an interface{}.
//
// Parse progress is held in an explicit state machine, so a token split across chunks
// resumes exactly where it stopped, and no byte of input is examined twice.
package jsonconv

import (
	"github.com/lawrencejones/convsink/pkg/convert"
	"github.com/lawrencejones/convsink/pkg/sink"
)

// Decoder decodes a single JSON document. In chunked mode the document is forwarded
// downstream when the input is closed, as only then can trailing garbage be ruled out.
type Decoder struct {
	UseNumber bool // decode numbers as json.Number, rather than float64
}

var _ convert.Converter[[]byte, any] = Decoder{}

func (d Decoder) Convert(input []byte) (any, error) {
	values, err := convert.Collect[[]byte, any](d, input)
	if err != nil {
		return nil, err
	}

	return values[0], nil
}

func (d Decoder) StartChunkedConversion(downstream sink.Sink[any]) convert.ChunkedConversionSink[[]byte] {
	return convert.NewSliceSink[[]byte, any](downstream, newParser(downstream, d.UseNumber, false))
}

// StreamDecoder decodes a sequence of concatenated JSON documents, optionally separated
// by whitespace. Each document is forwarded downstream as soon as it is complete, in
// input order.
type StreamDecoder struct {
	UseNumber bool
}

var _ convert.SequenceConverter[[]byte, any] = StreamDecoder{}

func (d StreamDecoder) Convert(input []byte) ([]any, error) {
	return convert.Collect[[]byte, any](d, input)
}

func (d StreamDecoder) StartChunkedConversion(downstream sink.Sink[any]) convert.ChunkedConversionSink[[]byte] {
	return convert.NewSliceSink[[]byte, any](downstream, newParser(downstream, d.UseNumber, true))
}
