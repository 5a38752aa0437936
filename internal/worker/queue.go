package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Enqueuer is the part of *asynq.Client the queue dispatcher needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueDispatcher publishes step image jobs to Redis for cmd/worker to
// consume. Handles resolve as soon as the job is enqueued.
type QueueDispatcher struct {
	client Enqueuer
}

func NewQueueDispatcher(client Enqueuer) *QueueDispatcher {
	return &QueueDispatcher{client: client}
}

func (d *QueueDispatcher) GenerateStepImageAsync(ctx context.Context, job StepImageJob) *Handle {
	h := newHandle(job.StepID)

	task, err := NewGenerateStepImageTask(job, h.ID)
	if err != nil {
		h.resolve(failed(job.StepID, fmt.Errorf("build step image task: %w", err)))
		return h
	}

	info, err := d.client.EnqueueContext(ctx, task)
	if err != nil {
		slog.Error("Failed to enqueue step image", "step_id", job.StepID, "error", err)
		h.resolve(failed(job.StepID, fmt.Errorf("enqueue step image: %w", err)))
		return h
	}

	slog.Info("Enqueued step image", "step_id", job.StepID, "task_id", info.ID, "queue", info.Queue)
	h.resolve(Result{Success: true, StepID: job.StepID, Queued: true})
	return h
}
