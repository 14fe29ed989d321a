package workflow

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultPoolSize bounds how many workflows run at once when no size is configured.
const DefaultPoolSize = 16

// Pool runs workflow tasks on at most size goroutines at a time.
type Pool struct {
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
	logger *slog.Logger
}

func NewPool(size int64, logger *slog.Logger) *Pool {
	if size <= 0 {
		size = DefaultPoolSize
	}

	return &Pool{
		sem:    semaphore.NewWeighted(size),
		logger: logger.With("module", "workflow_pool"),
	}
}

// Go schedules task. The task context is detached from ctx's cancellation: callers that stop
// waiting never stop the task.
func (p *Pool) Go(ctx context.Context, task func(ctx context.Context)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}

	taskCtx := context.WithoutCancel(ctx)

	p.wg.Add(1)

	go func() {
		defer p.wg.Done()

		err := p.sem.Acquire(taskCtx, 1)
		if err != nil {
			p.logger.ErrorContext(taskCtx, "Failed to acquire worker slot", "error", err)

			return
		}
		defer p.sem.Release(1)

		defer func() {
			if r := recover(); r != nil {
				p.logger.ErrorContext(taskCtx, "Workflow task panicked", "panic", r)
			}
		}()

		task(taskCtx)
	}()

	return nil
}

// Wait blocks until every scheduled task has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Close rejects new tasks and waits for running ones, or for ctx to end.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})

	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.closed
}
