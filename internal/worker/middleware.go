package worker

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/socialchef/sizzle/internal/telemetry"
)

type taskInfo struct {
	id         string
	queue      string
	retryCount int
	job        *StepImageJob
}

func describeTask(ctx context.Context, t *asynq.Task) taskInfo {
	info := taskInfo{}
	info.id, _ = asynq.GetTaskID(ctx)
	info.queue, _ = asynq.GetQueueName(ctx)
	info.retryCount, _ = asynq.GetRetryCount(ctx)

	if t.Type() == TypeGenerateStepImage {
		var job StepImageJob
		if err := json.Unmarshal(t.Payload(), &job); err == nil {
			info.job = &job
		}
	}
	return info
}

// OTelMiddleware wraps asynq job handlers with a consumer span.
func OTelMiddleware(h asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		info := describeTask(ctx, t)

		ctx, span := telemetry.Tracer("worker").Start(ctx, "job:"+t.Type(), trace.WithSpanKind(trace.SpanKindConsumer))
		defer span.End()

		span.SetAttributes(
			attribute.String("job.id", info.id),
			attribute.String("job.type", t.Type()),
			attribute.String("job.queue", info.queue),
			attribute.Int("job.retry_count", info.retryCount),
		)
		if info.job != nil {
			span.SetAttributes(
				attribute.Int64("recipe.id", info.job.RecipeID),
				attribute.Int64("step.id", info.job.StepID),
			)
		}

		err := h.ProcessTask(ctx, t)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	})
}

// SentryMiddleware reports failed jobs to Sentry on a per-task hub.
func SentryMiddleware(h asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) (err error) {
		info := describeTask(ctx, t)

		hub := sentry.CurrentHub().Clone()
		hub.Scope().SetTag("task_type", t.Type())
		hub.Scope().SetTag("task_id", info.id)
		hub.Scope().SetTag("queue", info.queue)
		hub.Scope().SetTag("retry_count", strconv.Itoa(info.retryCount))
		if info.job != nil {
			hub.Scope().SetTag("recipe_id", strconv.FormatInt(info.job.RecipeID, 10))
			hub.Scope().SetTag("step_id", strconv.FormatInt(info.job.StepID, 10))
		}

		ctx = sentry.SetHubOnContext(ctx, hub)

		defer func() {
			if r := recover(); r != nil {
				hub.Recover(r)
				panic(r)
			}
		}()

		err = h.ProcessTask(ctx, t)
		if err != nil {
			hub.CaptureException(err)
		}
		return err
	})
}
