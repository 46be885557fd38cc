package sink

import (
	"sync"
	"sync/atomic"
)

// ChunkedSinkAdapter accumulates every value it receives and hands the ordered
// collection to a completion callback when closed. The callback is the only observable
// effect of the adapter: it never fires before Close, and fires at most once even when
// Close is raced from several goroutines.
type ChunkedSinkAdapter[T any] struct {
	onDone  func([]T)
	onError func(error)
	values  []T
	closed  atomic.Bool
	mu      sync.Mutex
}

// WithCallback builds an adapter that calls onDone with the collected values once the
// sink is closed. Errors close the adapter without calling onDone.
func WithCallback[T any](onDone func([]T)) *ChunkedSinkAdapter[T] {
	return WithCallbacks[T](onDone, nil)
}

// WithCallbacks is like WithCallback, but also receives the error that terminated the
// session. For any session, exactly one of onDone or onError will fire, and only once.
func WithCallbacks[T any](onDone func([]T), onError func(error)) *ChunkedSinkAdapter[T] {
	return &ChunkedSinkAdapter[T]{
		onDone:  onDone,
		onError: onError,
		values:  []T{},
	}
}

func (a *ChunkedSinkAdapter[T]) Add(value T) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed.Load() {
		return closedError("add")
	}

	a.values = append(a.values, value)
	return nil
}

func (a *ChunkedSinkAdapter[T]) AddError(err error) error {
	if !a.closed.CompareAndSwap(false, true) {
		return closedError("add error")
	}

	a.release()
	if a.onError != nil {
		a.onError(err)
	}

	return nil
}

// Close claims the closed flag before calling onDone, so concurrent callers can never
// both observe an open adapter.
func (a *ChunkedSinkAdapter[T]) Close() error {
	if !a.closed.CompareAndSwap(false, true) {
		return closedError("close")
	}

	values := a.release()
	if a.onDone != nil {
		a.onDone(values)
	}

	return nil
}

// release hands over the collected values, dropping our reference to them. Waiting on
// the lock ensures any Add that observed the adapter as open has finished appending.
func (a *ChunkedSinkAdapter[T]) release() []T {
	a.mu.Lock()
	defer a.mu.Unlock()

	values := a.values
	a.values = nil

	return values
}
