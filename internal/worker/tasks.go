package worker

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TypeGenerateStepImage = "generate:step_image"
)

// QueueStepImages is the asynq queue step image tasks are enqueued on.
const QueueStepImages = "images"

// NewGenerateStepImageTask creates a step image task. The pipeline retries
// the provider itself, so asynq does not retry the task again.
func NewGenerateStepImageTask(job StepImageJob, taskID string) (*asynq.Task, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeGenerateStepImage, data,
		asynq.MaxRetry(0),
		asynq.Queue(QueueStepImages),
		asynq.TaskID(taskID),
	), nil
}
