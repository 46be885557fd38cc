package sink

import (
	"context"
	"sync"
)

// Result is a promise for the outcome of a conversion session. Get will block until the
// result is resolved, either with a value or an error.
type Result[T any] struct {
	ready chan struct{}
	once  sync.Once
	value T
	err   error
}

func NewResult[T any]() *Result[T] {
	return &Result[T]{ready: make(chan struct{})}
}

// Resolve fulfills the promise. Only the first resolution has any effect, so the first
// outcome of a session is the one every caller observes. It reports whether this call
// was the one to resolve the result.
func (r *Result[T]) Resolve(value T, err error) (resolved bool) {
	r.once.Do(func() {
		r.value, r.err = value, err
		close(r.ready)
		resolved = true
	})

	return resolved
}

// Done is closed once the result has been resolved.
func (r *Result[T]) Done() <-chan struct{} {
	return r.ready
}

func (r *Result[T]) Get(ctx context.Context) (T, error) {
	// If the result is ready, we should return it even if the context is done
	select {
	case <-r.ready:
		return r.value, r.err
	default:
	}
	select {
	case <-ctx.Done():
		var empty T
		return empty, ctx.Err()
	case <-r.ready:
		return r.value, r.err
	}
}
