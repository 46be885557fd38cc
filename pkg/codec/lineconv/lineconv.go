// Splits text into lines. Lines may be terminated by "\n", "\r\n" or a lone "\r", and the
// terminators are not included in the output.
package lineconv

import (
	"strings"

	"github.com/lawrencejones/convsink/pkg/convert"
	"github.com/lawrencejones/convsink/pkg/sink"
)

// Splitter converts text into the sequence of lines it contains. A final line without a
// terminator is still a line, but an empty input has none.
type Splitter struct{}

var _ convert.SequenceConverter[string, string] = Splitter{}

func (s Splitter) Convert(input string) ([]string, error) {
	return convert.Collect[string, string](s, input)
}

// StartChunkedConversion returns an input sink that forwards each line as soon as its
// terminator is seen. A "\r" ending a chunk is held until the next chunk shows whether it
// was part of a "\r\n".
func (s Splitter) StartChunkedConversion(downstream sink.Sink[string]) convert.ChunkedConversionSink[string] {
	return convert.NewSliceSink[string, string](downstream, &splitter{downstream: downstream})
}

type splitter struct {
	downstream sink.Sink[string]
	partial    strings.Builder // unterminated line from previous chunks
	skipLF     bool            // previous chunk ended with "\r"
}

func (s *splitter) Feed(chunk string, start, end int) error {
	idx := start
	if s.skipLF {
		s.skipLF = false
		if chunk[idx] == '\n' {
			idx++
		}
	}

	lineStart := idx
	for idx < end {
		next := strings.IndexAny(chunk[idx:end], "\r\n")
		if next < 0 {
			break
		}

		idx += next
		if err := s.line(chunk[lineStart:idx]); err != nil {
			return err
		}

		terminator := chunk[idx]
		idx++

		if terminator == '\r' {
			switch {
			case idx == end:
				s.skipLF = true
			case chunk[idx] == '\n':
				idx++
			}
		}

		lineStart = idx
	}

	s.partial.WriteString(chunk[lineStart:end])
	return nil
}

func (s *splitter) Finish() error {
	if s.partial.Len() == 0 {
		return nil
	}

	return s.line("")
}

// line emits the given text, prefixed by whatever was carried over from earlier chunks.
func (s *splitter) line(text string) error {
	if s.partial.Len() > 0 {
		s.partial.WriteString(text)
		text = s.partial.String()
		s.partial.Reset()
	}

	return s.downstream.Add(text)
}
