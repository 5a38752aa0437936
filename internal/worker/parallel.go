package worker

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// ParallelFunc is a function that can be executed in parallel.
type ParallelFunc func(ctx context.Context) error

// RunParallel executes funcs concurrently and waits for all of them.
// Every function runs to completion; the returned error joins all failures.
func RunParallel(ctx context.Context, funcs ...ParallelFunc) error {
	if len(funcs) == 0 {
		return nil
	}

	var g errgroup.Group
	errs := make([]error, len(funcs))
	for i, fn := range funcs {
		g.Go(func() error {
			errs[i] = fn(ctx)
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

// RunParallelWithResults executes funcs concurrently and returns their results
// in input order, plus the non-nil errors.
func RunParallelWithResults[T any](ctx context.Context, funcs []func(ctx context.Context) (T, error)) ([]T, []error) {
	if len(funcs) == 0 {
		return nil, nil
	}

	results := make([]T, len(funcs))
	errs := make([]error, len(funcs))

	var g errgroup.Group
	for i, fn := range funcs {
		g.Go(func() error {
			results[i], errs[i] = fn(ctx)
			return nil
		})
	}
	_ = g.Wait()

	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}
	return results, nonNil
}
