package file

import (
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/lawrencejones/convsink/pkg/serialize"
	"github.com/lawrencejones/convsink/pkg/sink"

	kitlog "github.com/go-kit/kit/log"
	"github.com/pkg/errors"
)

// Writer is a batch sink that serializes each value in a batch, writing the batch with a
// single call to the underlying writer.
type Writer struct {
	logger     kitlog.Logger
	out        io.Writer
	serializer serialize.Serializer
	closed     bool
	sync.Mutex
}

var _ sink.Sink[[]interface{}] = &Writer{}

func NewWriter(logger kitlog.Logger, out io.Writer, serializer serialize.Serializer) *Writer {
	return &Writer{logger: logger, out: out, serializer: serializer}
}

func (w *Writer) Add(values []interface{}) error {
	var buffer bytes.Buffer
	for _, value := range values {
		bytes, err := w.serializer.Marshal(value)
		if err != nil {
			return errors.Wrap(err, "failed to marshal value")
		}

		buffer.Write(bytes)
		buffer.WriteByte('\n')
	}

	w.Lock()
	defer w.Unlock()

	if w.closed {
		return errors.Wrap(sink.ErrClosed, "add")
	}

	_, err := w.out.Write(buffer.Bytes())
	return errors.Wrap(err, "failed to write values")
}

// AddError records the failure in the logs. Whatever was already written stays written.
func (w *Writer) AddError(err error) error {
	w.logger.Log("event", "conversion.error", "error", err)
	return w.Close()
}

func (w *Writer) Close() error {
	w.Lock()
	defer w.Unlock()

	if w.closed {
		return errors.Wrap(sink.ErrClosed, "close")
	}

	w.closed = true
	if file, ok := w.out.(*os.File); ok && file != os.Stdout && file != os.Stderr {
		return errors.Wrap(file.Close(), "failed to close file")
	}

	return nil
}
