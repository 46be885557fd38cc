package driver

import (
	"context"
	"sync"

	"github.com/lawrencejones/convsink/internal/telem"

	kitlog "github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// Scheduler advances runnables in round-robin, one step at a time, so no single task can
// monopolise the goroutine that runs it. Tasks that yield are put to the back of the
// queue.
//
// Cancelling the context passed to Run or Start abandons whatever remains queued: those
// tasks are never resumed, so their results will never resolve.
type Scheduler struct {
	logger   kitlog.Logger
	queue    []Runnable
	wake     chan struct{}
	shutdown chan struct{}
	done     chan error
	sync.Mutex
}

func NewScheduler(logger kitlog.Logger) *Scheduler {
	return &Scheduler{
		logger:   logger,
		wake:     make(chan struct{}, 1),
		shutdown: make(chan struct{}),
		done:     make(chan error, 1), // buffered by 1, to ensure progress when reporting an error
	}
}

// Schedule adds the runnable to the back of the queue. It is safe to call from any
// goroutine, including from within a running step.
func (s *Scheduler) Schedule(r Runnable) {
	s.Lock()
	s.queue = append(s.queue, r)
	s.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Pending returns how many runnables are queued.
func (s *Scheduler) Pending() int {
	s.Lock()
	defer s.Unlock()

	return len(s.queue)
}

// Run steps queued runnables until the queue is empty, or the context expires.
func (s *Scheduler) Run(ctx context.Context) error {
	ctx, span, logger := telem.StartSpan(telem.WithLogger(ctx, s.logger), "pkg/driver.Scheduler.Run")
	defer span.End()

	for steps := 0; ; steps++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		r, ok := s.pop()
		if !ok {
			level.Debug(logger).Log("event", "scheduler.idle", "steps", steps)
			return nil
		}

		if done := r.Step(ctx); !done {
			s.Lock()
			s.queue = append(s.queue, r)
			s.Unlock()
		}
	}
}

// Start runs the scheduler until shutdown, waking whenever a new runnable is scheduled.
func (s *Scheduler) Start(ctx context.Context) error {
	defer func() {
		close(s.done)
	}()

	s.logger.Log("event", "start", "msg", "starting scheduler loop")
	for {
		if err := s.Run(ctx); err != nil {
			s.logger.Log("event", "finish", "msg", "context expired, abandoning queued tasks", "pending", s.Pending())
			return err
		}

		select {
		case <-ctx.Done():
			s.logger.Log("event", "finish", "msg", "context expired, abandoning queued tasks", "pending", s.Pending())
			return ctx.Err()
		case <-s.shutdown:
			// Anything scheduled since we last went idle is still owed a run
			s.logger.Log("event", "shutdown", "msg", "shutdown requested, draining queue before exit")
			return s.Run(ctx)
		case <-s.wake:
			// continue
		}
	}
}

// Shutdown asks a started scheduler to stop once its queue has drained, waiting for it
// to do so.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	close(s.shutdown)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-s.done:
		return err
	}
}

func (s *Scheduler) pop() (Runnable, bool) {
	s.Lock()
	defer s.Unlock()

	if len(s.queue) == 0 {
		return nil, false
	}

	r := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]

	return r, true
}
