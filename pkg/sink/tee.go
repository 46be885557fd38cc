package sink

// Tee forwards everything it receives to each of the given sinks, in order. It stops at
// the first sink to fail, returning its error.
func Tee[T any](sinks ...Sink[T]) Sink[T] {
	return tee[T](sinks)
}

type tee[T any] []Sink[T]

func (t tee[T]) Add(value T) error {
	for _, s := range t {
		if err := s.Add(value); err != nil {
			return err
		}
	}

	return nil
}

func (t tee[T]) AddError(err error) error {
	for _, s := range t {
		if addErr := s.AddError(err); addErr != nil {
			return addErr
		}
	}

	return nil
}

func (t tee[T]) Close() error {
	for _, s := range t {
		if err := s.Close(); err != nil {
			return err
		}
	}

	return nil
}
