package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	meter = otel.Meter("sizzle/business")

	// Recipe metrics
	RecipesSavedTotal  metric.Int64Counter
	RecipeSaveDuration metric.Float64Histogram

	// Step image metrics
	StepImagesTotal         metric.Int64Counter
	ImageGenerationDuration metric.Float64Histogram
	DispatcherInFlight      metric.Int64UpDownCounter

	// External API metrics
	ExternalAPICallsTotal metric.Int64Counter
	ExternalAPIDuration   metric.Float64Histogram

	// AI metrics
	AIGenerationDuration metric.Float64Histogram

	// Provider fallback metrics
	ProviderFallbackTotal metric.Int64Counter
)

// Step image outcomes recorded on StepImagesTotal.
const (
	ImageOutcomeGenerated = "generated"
	ImageOutcomeSkipped   = "skipped"
	ImageOutcomeFailed    = "failed"
)

func Init() error {
	var err error

	RecipesSavedTotal, err = meter.Int64Counter(
		"recipe.saves.total",
		metric.WithDescription("Total number of recipe save attempts"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	RecipeSaveDuration, err = meter.Float64Histogram(
		"recipe.save.duration",
		metric.WithDescription("Duration of the recipe save transaction"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5),
	)
	if err != nil {
		return err
	}

	StepImagesTotal, err = meter.Int64Counter(
		"step_image.tasks.total",
		metric.WithDescription("Total number of step image tasks by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	ImageGenerationDuration, err = meter.Float64Histogram(
		"step_image.duration",
		metric.WithDescription("Duration of a step image task from prompt to upload"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 2, 5, 10, 20, 30, 60, 120),
	)
	if err != nil {
		return err
	}

	DispatcherInFlight, err = meter.Int64UpDownCounter(
		"step_image.in_flight",
		metric.WithDescription("Step image tasks submitted but not yet finished"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	ExternalAPICallsTotal, err = meter.Int64Counter(
		"external.api.calls.total",
		metric.WithDescription("Total number of external API calls"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	ExternalAPIDuration, err = meter.Float64Histogram(
		"external.api.duration",
		metric.WithDescription("Duration of external API calls"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 30),
	)
	if err != nil {
		return err
	}

	AIGenerationDuration, err = meter.Float64Histogram(
		"ai.generation.duration",
		metric.WithDescription("Duration of AI recipe generation"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 30, 60),
	)
	if err != nil {
		return err
	}

	ProviderFallbackTotal, err = meter.Int64Counter(
		"provider.fallback.total",
		metric.WithDescription("Total number of provider fallback events"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	return nil
}

// The Record helpers are no-ops until Init has run, so packages can be used
// from tests and CLIs without a meter provider.

func RecordRecipeSave(ctx context.Context, overwrite bool, err error, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.Bool("overwrite", overwrite),
		attribute.String("status", status(err)),
	)
	if RecipesSavedTotal != nil {
		RecipesSavedTotal.Add(ctx, 1, attrs)
	}
	if RecipeSaveDuration != nil {
		RecipeSaveDuration.Record(ctx, d.Seconds(), attrs)
	}
}

func RecordStepImage(ctx context.Context, outcome string, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	if StepImagesTotal != nil {
		StepImagesTotal.Add(ctx, 1, attrs)
	}
	if ImageGenerationDuration != nil && outcome == ImageOutcomeGenerated {
		ImageGenerationDuration.Record(ctx, d.Seconds(), attrs)
	}
}

func AddInFlight(ctx context.Context, delta int64) {
	if DispatcherInFlight != nil {
		DispatcherInFlight.Add(ctx, delta)
	}
}

func RecordExternalAPI(ctx context.Context, service string, err error, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("status", status(err)),
	)
	if ExternalAPICallsTotal != nil {
		ExternalAPICallsTotal.Add(ctx, 1, attrs)
	}
	if ExternalAPIDuration != nil {
		ExternalAPIDuration.Record(ctx, d.Seconds(), attrs)
	}
}

func RecordAIGeneration(ctx context.Context, provider string, d time.Duration) {
	if AIGenerationDuration != nil {
		AIGenerationDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("provider", provider)))
	}
}

func RecordFallback(ctx context.Context, from, to string) {
	if ProviderFallbackTotal != nil {
		ProviderFallbackTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("from", from),
			attribute.String("to", to),
		))
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
