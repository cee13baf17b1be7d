// Package dispatch runs best-effort side effects off the request path. A task's failure, panic or
// rejection is logged and counted, never returned to the operation that scheduled it.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"channel-service/internal/observability"
)

// ErrUnavailable is returned when the queue is full or closed.
var ErrUnavailable = errors.New("dispatch queue unavailable")

// Task is one detached unit of side-effect work.
type Task func(ctx context.Context) error

// Dispatcher schedules tasks. Callers log a returned error and carry on.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, task Task) error
}

type job struct {
	name string
	ctx  context.Context
	task Task
}

// Queue is a bounded worker pool.
type Queue struct {
	jobs    chan job
	timeout time.Duration
	log     *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewQueue starts workers goroutines draining a queue of size capacity.
func NewQueue(workers, capacity int, timeout time.Duration, log *zap.Logger) *Queue {
	if workers < 1 {
		workers = 1
	}
	if capacity < 1 {
		capacity = 1
	}
	q := &Queue{
		jobs:    make(chan job, capacity),
		timeout: timeout,
		log:     log.Named("dispatch"),
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
	return q
}

// Dispatch enqueues task without blocking. The task gets a context detached from ctx's cancellation
// so it outlives the request, but keeps ctx's values for tracing and request ids.
func (q *Queue) Dispatch(ctx context.Context, name string, task Task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		observability.IncDispatchTask(name, "rejected")
		return ErrUnavailable
	}
	select {
	case q.jobs <- job{name: name, ctx: context.WithoutCancel(ctx), task: task}:
		observability.SetDispatchQueueDepth(len(q.jobs))
		return nil
	default:
		observability.IncDispatchTask(name, "rejected")
		return ErrUnavailable
	}
}

func (q *Queue) work() {
	defer q.wg.Done()
	for j := range q.jobs {
		observability.SetDispatchQueueDepth(len(q.jobs))
		run(j.ctx, j.name, j.task, q.timeout, q.log)
	}
}

// Close stops accepting tasks and waits for queued ones to finish or ctx to end.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Inline runs each task synchronously inside the same error boundary. It is used when
// dispatch.workers is 0 and in tests that need side effects to have happened on return.
type Inline struct {
	Timeout time.Duration
	Log     *zap.Logger
}

func (d Inline) Dispatch(ctx context.Context, name string, task Task) error {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	run(context.WithoutCancel(ctx), name, task, d.Timeout, log)
	return nil
}

func run(ctx context.Context, name string, task Task, timeout time.Duration, log *zap.Logger) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	outcome := "ok"
	defer func() {
		if r := recover(); r != nil {
			outcome = "panic"
			log.Error("task panicked", zap.String("task", name), zap.String("panic", fmt.Sprint(r)))
		}
		observability.IncDispatchTask(name, outcome)
	}()
	if err := task(ctx); err != nil {
		outcome = "error"
		log.Warn("task failed", zap.String("task", name), zap.Error(err))
	}
}
