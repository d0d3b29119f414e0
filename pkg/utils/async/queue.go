package async

import (
	"context"
	"sync"
	"time"

	"github.com/secmon-lab/riskledger/pkg/utils/logging"
	"github.com/secmon-lab/riskledger/pkg/utils/metrics"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultQueueSize = 256
	DefaultWorkers   = 4
)

type task struct {
	ctx     context.Context
	name    string
	handler Handler
}

// Queue is a bounded Dispatcher backed by a fixed worker pool. When the
// buffer is full new tasks are dropped so callers never block.
type Queue struct {
	tasks   chan task
	workers int
	metrics *metrics.Metrics

	mu      sync.RWMutex
	closed  bool
	eg      *errgroup.Group
	started bool
}

// QueueOption configures a Queue
type QueueOption func(*Queue)

// WithWorkers sets the number of worker goroutines
func WithWorkers(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

// WithMetrics records task outcomes on m
func WithMetrics(m *metrics.Metrics) QueueOption {
	return func(q *Queue) {
		q.metrics = m
	}
}

// NewQueue creates a queue holding at most size pending tasks
func NewQueue(size int, opts ...QueueOption) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	q := &Queue{
		tasks:   make(chan task, size),
		workers: DefaultWorkers,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Start launches the workers. Calling Start twice has no effect.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.started = true

	q.eg = &errgroup.Group{}
	for i := 0; i < q.workers; i++ {
		q.eg.Go(func() error {
			for t := range q.tasks {
				q.execute(t)
			}
			return nil
		})
	}
}

// Dispatch enqueues handler without blocking
func (q *Queue) Dispatch(ctx context.Context, name string, handler Handler) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		logging.From(ctx).Warn("sidecar queue closed, dropping task", "task", name)
		q.metrics.IncrementSidecar(name, metrics.ResultDropped)
		return
	}

	select {
	case q.tasks <- task{ctx: detach(ctx), name: name, handler: handler}:
	default:
		logging.From(ctx).Warn("sidecar queue full, dropping task", "task", name, "capacity", cap(q.tasks))
		q.metrics.IncrementSidecar(name, metrics.ResultDropped)
	}
}

// Stop closes the queue and waits until pending tasks are drained or ctx ends
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.tasks)
	eg := q.eg
	q.mu.Unlock()

	if eg == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- eg.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of pending tasks
func (q *Queue) Len() int {
	return len(q.tasks)
}

func (q *Queue) execute(t task) {
	start := time.Now()
	result := run(t.ctx, t.name, t.handler)
	q.metrics.ObserveSidecar(t.name, start)

	switch result {
	case outcomeSuccess:
		q.metrics.IncrementSidecar(t.name, metrics.ResultSuccess)
	case outcomeFailure:
		q.metrics.IncrementSidecar(t.name, metrics.ResultFailure)
	case outcomePanic:
		q.metrics.IncrementSidecar(t.name, metrics.ResultPanic)
	}
}
