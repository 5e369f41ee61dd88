// Package pool provides a bounded worker pool for background task
// execution. It replaces unbounded goroutine-per-task dispatch: when all
// workers are busy and the queue is full, submission is rejected rather
// than accepted without limit.
package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("pool is closed")
	// ErrQueueFull is returned when no worker or queue slot is available.
	ErrQueueFull = errors.New("pool queue is full")
)

// Task is a unit of background work.
type Task func(ctx context.Context)

// Config sizes the pool.
type Config struct {
	// MaxWorkers bounds concurrently running tasks.
	MaxWorkers int
	// QueueSize bounds tasks waiting for a worker.
	QueueSize int
	// IdleTimeout retires surplus idle workers.
	IdleTimeout time.Duration
	// PanicHandler observes recovered task panics.
	PanicHandler func(any)
}

// WorkerPool runs submitted tasks on at most MaxWorkers goroutines.
type WorkerPool struct {
	cfg   Config
	queue chan queued

	workers atomic.Int32
	active  atomic.Int32
	closed  atomic.Bool
	wg      sync.WaitGroup

	submitted atomic.Int64
	completed atomic.Int64
	rejected  atomic.Int64
}

type queued struct {
	task Task
	ctx  context.Context
}

// New creates a worker pool. Workers are spawned lazily on demand.
func New(cfg Config) *WorkerPool {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 1
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = time.Minute
	}
	return &WorkerPool{
		cfg:   cfg,
		queue: make(chan queued, cfg.QueueSize),
	}
}

// Submit enqueues a task without blocking. It returns ErrQueueFull when
// every worker is busy and the queue has no free slot, and ErrClosed
// after Close. ctx is passed through to the task unmodified.
func (p *WorkerPool) Submit(ctx context.Context, task Task) error {
	if p.closed.Load() {
		return ErrClosed
	}

	select {
	case p.queue <- queued{task: task, ctx: ctx}:
		p.submitted.Add(1)
		p.ensureWorker()
		return nil
	default:
		p.rejected.Add(1)
		return ErrQueueFull
	}
}

func (p *WorkerPool) ensureWorker() {
	for {
		current := p.workers.Load()
		if current >= int32(p.cfg.MaxWorkers) {
			return
		}
		if p.workers.CompareAndSwap(current, current+1) {
			p.wg.Add(1)
			go p.worker()
			return
		}
	}
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	defer p.workers.Add(-1)

	idle := time.NewTimer(p.cfg.IdleTimeout)
	defer idle.Stop()

	for {
		select {
		case q, ok := <-p.queue:
			if !ok {
				return
			}
			p.active.Add(1)
			p.run(q)
			p.active.Add(-1)
			p.completed.Add(1)

			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(p.cfg.IdleTimeout)

		case <-idle.C:
			// Keep the last worker alive so a queued task is never
			// stranded between retirement and the next Submit.
			if p.workers.Load() > 1 {
				return
			}
			idle.Reset(p.cfg.IdleTimeout)
		}
	}
}

func (p *WorkerPool) run(q queued) {
	defer func() {
		if r := recover(); r != nil {
			if p.cfg.PanicHandler != nil {
				p.cfg.PanicHandler(r)
			}
		}
	}()
	q.task(q.ctx)
}

// Close stops accepting tasks and waits for queued work to drain.
func (p *WorkerPool) Close() {
	if p.closed.Swap(true) {
		return
	}
	close(p.queue)
	p.wg.Wait()
}

// Stats reports pool counters.
func (p *WorkerPool) Stats() Stats {
	return Stats{
		Workers:   int(p.workers.Load()),
		Active:    int(p.active.Load()),
		Queued:    len(p.queue),
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Rejected:  p.rejected.Load(),
	}
}

// Stats are point-in-time pool counters.
type Stats struct {
	Workers   int   `json:"workers"`
	Active    int   `json:"active"`
	Queued    int   `json:"queued"`
	Submitted int64 `json:"submitted"`
	Completed int64 `json:"completed"`
	Rejected  int64 `json:"rejected"`
}
