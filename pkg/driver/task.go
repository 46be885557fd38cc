package driver

import (
	"context"

	"github.com/lawrencejones/convsink/internal/telem"
	"github.com/lawrencejones/convsink/pkg/convert"
	"github.com/lawrencejones/convsink/pkg/sink"

	kitlog "github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opencensus.io/trace"
)

var (
	stepDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "convsink_driver_step_duration_seconds",
			Help:    "Time spent converting input within a single task step",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
		},
	)
	stepBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "convsink_driver_step_bytes",
			Help:    "Bytes of input handed to the converter within a single task step",
			Buckets: prometheus.ExponentialBuckets(64, 4, 12),
		},
	)
	yieldsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "convsink_driver_yields_total",
			Help: "Number of times a task yielded with input remaining",
		},
	)
)

// Runnable is something the Scheduler can advance in bounded bursts.
type Runnable interface {
	Step(ctx context.Context) (done bool)
}

// Task drives a chunked conversion of an in-memory input in bounded bursts of work. Each
// call to Step hands the converter whole chunks until either the input is exhausted or
// the budget has elapsed, at which point it yields. The converter only ever sees chunk
// boundaries, so pausing between steps makes no difference to what it produces.
//
// The values produced by the conversion are collected and resolved on Result, once the
// converter closes its output or reports an error.
type Task[In convert.Bytes, Out any] struct {
	id        string
	logger    kitlog.Logger
	converter convert.ChunkedConverter[In, Out]
	input     In
	opts      Options
	forward   []sink.Sink[Out]
	result    *sink.Result[[]Out]

	// Resumable state, carried between steps
	session convert.ChunkedConversionSink[In]
	offset  int
	done    bool
}

func NewTask[In convert.Bytes, Out any](logger kitlog.Logger, converter convert.ChunkedConverter[In, Out], input In, opts Options) *Task[In, Out] {
	id := uuid.New().String()

	return &Task[In, Out]{
		id:        id,
		logger:    kitlog.With(logger, "task_id", id),
		converter: converter,
		input:     input,
		opts:      opts.withDefaults(),
		result:    sink.NewResult[[]Out](),
	}
}

// Forward sends every value produced by the conversion to the given sink, along with the
// errors and close. It must be called before the first Step.
func (t *Task[In, Out]) Forward(downstream sink.Sink[Out]) *Task[In, Out] {
	t.forward = append(t.forward, downstream)
	return t
}

// ID uniquely identifies this task in logs.
func (t *Task[In, Out]) ID() string {
	return t.id
}

// Result resolves with the values produced by the conversion, or the first error.
func (t *Task[In, Out]) Result() *sink.Result[[]Out] {
	return t.result
}

// Offset is how far into the input the task has progressed.
func (t *Task[In, Out]) Offset() int {
	return t.offset
}

// Done is true once the final slice has been handed to the converter.
func (t *Task[In, Out]) Done() bool {
	return t.done
}

func (t *Task[In, Out]) Step(ctx context.Context) (done bool) {
	if t.done {
		return true
	}

	_, span, logger := telem.Logger(ctx, t.logger)(trace.StartSpan(ctx, "pkg/driver.Task.Step"))
	defer span.End()

	if t.session == nil {
		t.session = t.converter.StartChunkedConversion(t.output())
		logger.Log("event", "task.start", "msg", "starting conversion", "input_bytes", len(t.input))
	}

	started, from := t.opts.Now(), t.offset

	for {
		end := t.offset + t.opts.ChunkSize
		if end > len(t.input) {
			end = len(t.input)
		}

		isLast := end == len(t.input)
		if err := t.session.AddSlice(t.input, t.offset, end, isLast); err != nil {
			logger.Log("event", "task.error", "error", err, "offset", t.offset)
			t.result.Resolve(nil, err)
			t.done = true
			break
		}

		t.offset = end
		if isLast {
			t.done = true
			if !t.resolved() {
				t.result.Resolve(nil, errors.New("conversion finished without closing its sink"))
			}
			break
		}

		if t.opts.Now().Sub(started) >= t.opts.Budget {
			break
		}
	}

	elapsed := t.opts.Now().Sub(started)
	stepDurationSeconds.Observe(elapsed.Seconds())
	stepBytes.Observe(float64(t.offset - from))

	span.AddAttributes(
		trace.Int64Attribute("from", int64(from)),
		trace.Int64Attribute("to", int64(t.offset)),
		trace.BoolAttribute("done", t.done),
	)

	if t.done {
		logger.Log("event", "task.finish", "msg", "final slice submitted", "offset", t.offset)
	} else {
		yieldsTotal.Inc()
		level.Debug(logger).Log("event", "task.yield", "offset", t.offset, "elapsed", elapsed)
	}

	return t.done
}

func (t *Task[In, Out]) resolved() bool {
	select {
	case <-t.result.Done():
		return true
	default:
		return false
	}
}

// output builds the sink the converter writes into, resolving our result when the
// conversion completes.
func (t *Task[In, Out]) output() sink.Sink[Out] {
	collector := sink.WithCallbacks(
		func(values []Out) {
			t.result.Resolve(values, nil)
		},
		func(err error) {
			t.result.Resolve(nil, err)
		},
	)

	if len(t.forward) == 0 {
		return collector
	}

	return sink.Tee(append(t.forward, sink.Sink[Out](collector))...)
}
