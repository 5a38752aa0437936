package worker

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

// NewServer creates an asynq server whose concurrency matches the in-process
// pool capacity, so both dispatch modes put the same load on the providers.
func NewServer(redisURL string, concurrency int) (*asynq.Server, error) {
	opt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	if concurrency < 1 {
		concurrency = DefaultPoolCapacity
	}

	return asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				QueueStepImages: 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				taskID, _ := asynq.GetTaskID(ctx)
				slog.Error("Task failed", "task_type", task.Type(), "task_id", taskID, "error", err)
			}),
		},
	), nil
}

// NewServeMux registers handlers behind the tracing and Sentry middleware.
func NewServeMux(handlers map[string]asynq.HandlerFunc) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Use(OTelMiddleware, SentryMiddleware)
	for taskType, handler := range handlers {
		mux.HandleFunc(taskType, handler)
	}
	return mux
}

// Start starts the server with the given handlers
func Start(srv *asynq.Server, handlers map[string]asynq.HandlerFunc) error {
	return srv.Start(NewServeMux(handlers))
}
