package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// StepImageProcessor consumes generate:step_image tasks in cmd/worker.
type StepImageProcessor struct {
	generator *StepImageGenerator
	metrics   *WorkerMetrics
}

func NewStepImageProcessor(generator *StepImageGenerator, m *WorkerMetrics) *StepImageProcessor {
	return &StepImageProcessor{generator: generator, metrics: m}
}

// Handlers returns the task type to handler map for Start.
func (p *StepImageProcessor) Handlers() map[string]asynq.HandlerFunc {
	return map[string]asynq.HandlerFunc{
		TypeGenerateStepImage: p.HandleGenerateStepImage,
	}
}

func (p *StepImageProcessor) HandleGenerateStepImage(ctx context.Context, t *asynq.Task) error {
	var job StepImageJob
	if err := json.Unmarshal(t.Payload(), &job); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	if job.StepID == 0 || job.RecipeID == 0 {
		return fmt.Errorf("step image task without step or recipe id: %w", asynq.SkipRetry)
	}

	slog.Info("Processing step image", "recipe_id", job.RecipeID, "step_id", job.StepID)

	start := time.Now()
	res := p.generator.Generate(ctx, job)

	status := "success"
	switch {
	case res.Skipped:
		status = "skipped"
	case !res.Success:
		status = "failed"
	}
	p.metrics.RecordJob(ctx, TypeGenerateStepImage, status, time.Since(start))

	if !res.Success {
		return fmt.Errorf("%w: %s", errors.Join(errStepImageFailed, asynq.SkipRetry), res.Error)
	}
	return nil
}

var errStepImageFailed = errors.New("step image generation failed")
