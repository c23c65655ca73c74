package jobs

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/sulafhq/sulaf-backend/internal/logger"
)

// Task is one unit of background work.
type Task func(ctx context.Context)

// Pool runs tasks on a fixed number of workers fed by a bounded queue. Submit
// never blocks the caller: when the queue is full the task runs on its own
// goroutine instead, so API handlers stay responsive under burst.
type Pool struct {
	log     *logger.Logger
	name    string
	queue   chan Task
	workers int

	startOnce sync.Once
	wg        sync.WaitGroup

	mu      sync.Mutex
	baseCtx context.Context
}

func NewPool(baseLog *logger.Logger, name string, workers, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = workers * 4
	}
	return &Pool{
		log:     baseLog.With("pool", name),
		name:    name,
		queue:   make(chan Task, queueSize),
		workers: workers,
	}
}

// Start launches the workers. They drain the queue until ctx is cancelled.
// ctx also bounds every task, including overflow ones; it must outlive the
// requests that submit work.
func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		p.mu.Lock()
		p.baseCtx = ctx
		p.mu.Unlock()
		p.log.Info("Starting worker pool", "workers", p.workers, "queue", cap(p.queue))
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go func(worker int) {
				defer p.wg.Done()
				for {
					select {
					case <-ctx.Done():
						return
					case task := <-p.queue:
						p.runTask(ctx, worker, task)
					}
				}
			}(i)
		}
	})
}

// Submit queues the task, overflowing to a dedicated goroutine when full. It
// never blocks and never ties the task to the caller's context.
func (p *Pool) Submit(task Task) {
	select {
	case p.queue <- task:
	default:
		p.log.Warn("Worker queue full, running task on overflow goroutine")
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.runTask(p.taskContext(), -1, task)
		}()
	}
}

func (p *Pool) taskContext() context.Context {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.baseCtx != nil {
		return p.baseCtx
	}
	return context.Background()
}

// Wait blocks until all workers and overflow goroutines have returned. Only
// meaningful after the start context is cancelled.
func (p *Pool) Wait() { p.wg.Wait() }

func (p *Pool) runTask(ctx context.Context, worker int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("Recovered from panic in worker task",
				"worker", worker, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	task(ctx)
}
