package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Dispatcher hands step image jobs to whatever executes them. It never blocks
// on image generation.
type Dispatcher interface {
	GenerateStepImageAsync(ctx context.Context, job StepImageJob) *Handle
}

// PoolDispatcher runs step image jobs in-process on an Executor.
type PoolDispatcher struct {
	exec      Executor
	generator *StepImageGenerator
}

func NewPoolDispatcher(exec Executor, generator *StepImageGenerator) *PoolDispatcher {
	return &PoolDispatcher{exec: exec, generator: generator}
}

// GenerateStepImageAsync submits the job and returns its handle. The task is
// detached from ctx cancellation so it outlives the request that started it.
func (d *PoolDispatcher) GenerateStepImageAsync(ctx context.Context, job StepImageJob) *Handle {
	h := newHandle(job.StepID)
	taskCtx := context.WithoutCancel(ctx)

	err := d.exec.Submit(func() {
		defer h.resolve(Result{Success: false, StepID: job.StepID, Error: "step image task panicked"})
		h.resolve(d.generator.Generate(taskCtx, job))
	})
	if err != nil {
		slog.Error("Failed to dispatch step image", "step_id", job.StepID, "error", err)
		h.resolve(failed(job.StepID, fmt.Errorf("dispatch step image: %w", err)))
	}
	return h
}

// WaitForAllImages collects one Result per handle, in handle order. The
// timeout applies to each handle separately and handles are waited on
// concurrently. Timed out tasks are reported as failed but keep running.
func WaitForAllImages(handles []*Handle, timeout time.Duration) []Result {
	if len(handles) == 0 {
		return []Result{}
	}

	funcs := make([]func(context.Context) (Result, error), len(handles))
	for i, h := range handles {
		funcs[i] = func(context.Context) (Result, error) {
			res, ok := h.Wait(timeout)
			if !ok {
				slog.Warn("Timed out waiting for step image", "step_id", h.StepID, "timeout", timeout)
			}
			return res, nil
		}
	}

	results, _ := RunParallelWithResults(context.Background(), funcs)
	return results
}
