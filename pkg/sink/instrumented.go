package sink

import (
	"sync/atomic"

	kitlog "github.com/go-kit/kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sinkValuesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convsink_sink_values_total",
			Help: "Count of values added to a sink, by sink name",
		},
		[]string{"sink"},
	)
	sinkErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convsink_sink_errors_total",
			Help: "Count of errors reported to a sink, by sink name",
		},
		[]string{"sink"},
	)
	sinkClosesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convsink_sink_closes_total",
			Help: "Count of sinks successfully closed, by sink name",
		},
		[]string{"sink"},
	)
)

type instrumentedSink[T any] struct {
	Sink[T]
	logger               kitlog.Logger
	values, errs, closes prometheus.Counter
	count                atomic.Int64
}

// Instrument wraps an existing sink, counting values, errors and closes in metrics and
// logging the terminal outcome of the session.
func Instrument[T any](logger kitlog.Logger, name string, s Sink[T]) Sink[T] {
	return &instrumentedSink[T]{
		Sink:   s,
		logger: kitlog.With(logger, "sink", name),
		values: sinkValuesTotal.WithLabelValues(name),
		errs:   sinkErrorsTotal.WithLabelValues(name),
		closes: sinkClosesTotal.WithLabelValues(name),
	}
}

func (s *instrumentedSink[T]) Add(value T) error {
	if err := s.Sink.Add(value); err != nil {
		return err
	}

	s.count.Add(1)
	s.values.Inc()

	return nil
}

func (s *instrumentedSink[T]) AddError(err error) error {
	s.logger.Log("event", "sink.error", "count", s.count.Load(), "error", err)
	if addErr := s.Sink.AddError(err); addErr != nil {
		return addErr
	}

	s.errs.Inc()
	return nil
}

func (s *instrumentedSink[T]) Close() (err error) {
	defer func() {
		s.logger.Log("event", "sink.close", "count", s.count.Load(), "error", err)
	}()

	if err = s.Sink.Close(); err != nil {
		return err
	}

	s.closes.Inc()
	return nil
}
