package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"draw-backend/internal/supabase"
)

// ErrQueueFull indicates the pool's buffer is saturated.
var ErrQueueFull = errors.New("worker queue full")

// Handler processes one claimed job.
type Handler func(ctx context.Context, job supabase.Job)

// Pool runs claimed jobs on a fixed number of goroutines.
type Pool struct {
	handler   Handler
	jobs      chan supabase.Job
	workers   int
	inflight  atomic.Int64
	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

func NewPool(workers, queueSize int, handler Handler) *Pool {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = workers
	}
	return &Pool{
		handler: handler,
		jobs:    make(chan supabase.Job, queueSize),
		workers: workers,
	}
}

// Start launches the workers. Jobs already buffered when ctx is cancelled
// still run to completion.
func (p *Pool) Start(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	p.startOnce.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.workerLoop(ctx)
		}
	})
}

func (p *Pool) workerLoop(ctx context.Context) {
	defer p.wg.Done()
	for job := range p.jobs {
		p.handler(ctx, job)
		p.inflight.Add(-1)
	}
}

// Stop drains buffered jobs and waits for the workers to exit.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		close(p.jobs)
		p.wg.Wait()
	})
}

// Enqueue hands a job to the pool without blocking.
func (p *Pool) Enqueue(job supabase.Job) error {
	p.inflight.Add(1)
	select {
	case p.jobs <- job:
		return nil
	default:
		p.inflight.Add(-1)
		return ErrQueueFull
	}
}

// Idle is the number of workers with no job running or waiting for them.
func (p *Pool) Idle() int {
	return max(p.workers-int(p.inflight.Load()), 0)
}
