package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/getsentry/sentry-go"
	"golang.org/x/sync/semaphore"

	"github.com/socialchef/sizzle/internal/metrics"
)

// DefaultPoolCapacity is the number of step image tasks run at once.
const DefaultPoolCapacity = 5

var ErrPoolClosed = errors.New("worker pool is shut down")

// Executor runs submitted tasks. Submit must not block on task execution.
type Executor interface {
	Submit(task func()) error
}

// Pool is a fixed capacity executor. Submitted tasks wait for a free slot
// in their own goroutine so Submit returns immediately.
type Pool struct {
	sem      *semaphore.Weighted
	capacity int

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewPool(capacity int) *Pool {
	if capacity < 1 {
		capacity = DefaultPoolCapacity
	}
	return &Pool{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
	}
}

func (p *Pool) Capacity() int {
	return p.capacity
}

func (p *Pool) Submit(task func()) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.wg.Add(1)
	p.mu.Unlock()

	ctx := context.Background()
	metrics.AddInFlight(ctx, 1)

	go func() {
		defer p.wg.Done()
		defer metrics.AddInFlight(ctx, -1)

		if err := p.sem.Acquire(ctx, 1); err != nil {
			slog.Error("Failed to acquire pool slot", "error", err)
			return
		}
		defer p.sem.Release(1)

		run(task)
	}()
	return nil
}

// Shutdown stops accepting tasks and waits for running ones until ctx is done.
func (p *Pool) Shutdown(ctx context.Context) error {
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
		return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
	}
}

// SyncExecutor runs each task on the caller's goroutine.
type SyncExecutor struct{}

func (SyncExecutor) Submit(task func()) error {
	run(task)
	return nil
}

func run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Recovered panic in worker task", "panic", r, "stack", string(debug.Stack()))
			sentry.CurrentHub().Recover(r)
		}
	}()
	task()
}
