package convert

import (
	"github.com/lawrencejones/convsink/pkg/sink"

	"github.com/pkg/errors"
)

// Collect runs a chunked conversion over the given chunks, in order, marking the final
// chunk as the last. It returns every value produced, or the error that failed the
// conversion. With no chunks, the conversion is closed without input.
func Collect[In Bytes, Out any](converter ChunkedConverter[In, Out], chunks ...In) ([]Out, error) {
	var (
		values  []Out
		failure error
		done    bool
	)

	input := converter.StartChunkedConversion(
		sink.WithCallbacks(
			func(collected []Out) { values, done = collected, true },
			func(err error) { failure = err },
		),
	)

	if len(chunks) == 0 {
		if err := input.Close(); err != nil {
			return nil, err
		}
	}

	for idx, chunk := range chunks {
		if err := input.AddSlice(chunk, 0, len(chunk), idx == len(chunks)-1); err != nil {
			return nil, err
		}
	}

	if failure != nil {
		return nil, failure
	}

	if !done {
		return nil, errors.New("conversion finished without closing its sink")
	}

	return values, nil
}
