// Push-based consumers of produced values. Every conversion, whether one-shot, chunked
// or driven by a scheduler, delivers its output through a Sink, which lets callers
// compose destinations (collect, stream, batch, instrument) independently of the
// converter producing the values.
package sink

import (
	"github.com/pkg/errors"
)

// Sink is a destination for produced values. A sink starts open and becomes closed after
// either Close or AddError, at which point every further call fails with an error
// wrapping ErrClosed.
//
// AddError reports a terminal failure through the same channel as values. Success and
// failure are mutually exclusive: a producer that has reported an error must not call
// Close, and a sink must never treat values received before an error as a completed
// result.
type Sink[T any] interface {
	Add(T) error
	AddError(error) error
	Close() error
}

// ErrClosed is returned, wrapped, whenever a sink is used after it was closed. Check for
// it with errors.Is.
var ErrClosed = errors.New("sink is closed")

func closedError(op string) error {
	return errors.Wrap(ErrClosed, op)
}
