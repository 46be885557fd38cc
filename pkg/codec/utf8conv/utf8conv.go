// UTF-8 conversions between bytes and strings. Decoding in chunks holds back any
// multi-byte sequence cut by a chunk boundary, completing it from the next chunk.
package utf8conv

import (
	"strings"

	"github.com/lawrencejones/convsink/pkg/convert"
	"github.com/lawrencejones/convsink/pkg/sink"
)

// Decoder converts UTF-8 bytes to strings. Unless AllowMalformed is set, invalid bytes
// fail the conversion. When allowed, every invalid byte is replaced by U+FFFD, which
// gives the same output however the input is split.
type Decoder struct {
	AllowMalformed bool
}

var _ convert.Converter[[]byte, string] = Decoder{}

func (d Decoder) Convert(input []byte) (string, error) {
	texts, err := convert.Collect[[]byte, string](d, input)
	if err != nil {
		return "", err
	}

	return strings.Join(texts, ""), nil
}

// StartChunkedConversion returns an input sink that emits the text decoded from each
// slice as soon as the slice is added.
func (d Decoder) StartChunkedConversion(downstream sink.Sink[string]) convert.ChunkedConversionSink[[]byte] {
	return convert.NewSliceSink[[]byte, string](downstream, &decoder{downstream: downstream, allowMalformed: d.AllowMalformed})
}

// Encoder converts strings to UTF-8 bytes. Go strings are already UTF-8 encoded, so the
// chunked encoder forwards a copy of each slice.
type Encoder struct{}

var _ convert.Converter[string, []byte] = Encoder{}

func (e Encoder) Convert(input string) ([]byte, error) {
	return []byte(input), nil
}

func (e Encoder) StartChunkedConversion(downstream sink.Sink[[]byte]) convert.ChunkedConversionSink[string] {
	return convert.NewSliceSink[string, []byte](downstream, encoder{downstream: downstream})
}

type encoder struct {
	downstream sink.Sink[[]byte]
}

func (e encoder) Feed(chunk string, start, end int) error {
	return e.downstream.Add([]byte(chunk[start:end]))
}

func (e encoder) Finish() error {
	return nil
}
