package driver_test

import (
	"context"
	"sync"
	"time"

	"github.com/lawrencejones/convsink/pkg/convert"
	"github.com/lawrencejones/convsink/pkg/sink"
)

// fakeClock advances by tick every time it is read, so a step's elapsed time depends only
// on how many chunks it processed.
func fakeClock(tick time.Duration) func() time.Time {
	now := time.Unix(0, 0)
	return func() time.Time {
		current := now
		now = now.Add(tick)
		return current
	}
}

// fakeRunnable takes a fixed number of steps to finish, recording each step in a shared
// log.
type fakeRunnable struct {
	name  string
	steps int
	log   *stepLog
}

func (r *fakeRunnable) Step(ctx context.Context) bool {
	r.log.Append(r.name)
	r.steps--

	return r.steps <= 0
}

type stepLog struct {
	names []string
	sync.Mutex
}

func (l *stepLog) Append(name string) {
	l.Lock()
	defer l.Unlock()

	l.names = append(l.names, name)
}

func (l *stepLog) Names() []string {
	l.Lock()
	defer l.Unlock()

	return append([]string(nil), l.names...)
}

// closedConverter hands out input sinks that have already been closed, so every slice
// is rejected.
type closedConverter struct{}

func (closedConverter) StartChunkedConversion(sink.Sink[interface{}]) convert.ChunkedConversionSink[[]byte] {
	input := convert.NewSliceSink[[]byte, interface{}](sink.NewMemorySink[interface{}](), nopHandler{})
	input.Close()

	return input
}

type nopHandler struct{}

func (nopHandler) Feed([]byte, int, int) error { return nil }
func (nopHandler) Finish() error               { return nil }
