package worker

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/socialchef/sizzle/internal/httpclient"
	"github.com/socialchef/sizzle/internal/logger"
	"github.com/socialchef/sizzle/internal/metrics"
	"github.com/socialchef/sizzle/internal/services/imagegen"
	"github.com/socialchef/sizzle/internal/services/storage"
	"github.com/socialchef/sizzle/internal/telemetry"
	"github.com/socialchef/sizzle/internal/utils"
)

// ExistingPrompt is reported as the prompt of a step whose image was already stored.
const ExistingPrompt = "existing"

// StepContext is what the prompt needs to know about a step beyond its instruction.
type StepContext struct {
	Ingredients       []string
	Equipment         []string
	Output            string
	DependencyOutputs []string
}

// StepStore is the persistence side of the pipeline: reading a step's
// context and writing the generated image back onto the step row.
type StepStore interface {
	StepImageContext(ctx context.Context, stepID int64) (*StepContext, error)
	UpdateRecipeStepImage(ctx context.Context, stepID int64, imageURL, prompt string) error
}

// Notifier is told about every finished step image.
type Notifier interface {
	ImageReady(ctx context.Context, recipeID int64, result Result) error
}

type StepImageGenerator struct {
	objects    storage.ObjectStore
	images     imagegen.Generator
	steps      StepStore
	notifier   Notifier
	httpClient *http.Client
	retry      utils.RetryConfig
}

type GeneratorOption func(*StepImageGenerator)

func WithRetryConfig(cfg utils.RetryConfig) GeneratorOption {
	return func(g *StepImageGenerator) { g.retry = cfg }
}

func WithNotifier(n Notifier) GeneratorOption {
	return func(g *StepImageGenerator) { g.notifier = n }
}

func WithDownloadClient(c *http.Client) GeneratorOption {
	return func(g *StepImageGenerator) { g.httpClient = c }
}

func NewStepImageGenerator(objects storage.ObjectStore, images imagegen.Generator, steps StepStore, opts ...GeneratorOption) *StepImageGenerator {
	g := &StepImageGenerator{
		objects:    objects,
		images:     images,
		steps:      steps,
		httpClient: httpclient.NewInstrumentedClient(120 * time.Second),
		retry:      utils.ImageRetryConfig(0),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate runs the check-existing, generate, upload and callback sequence
// for one step. Failures are reported in the Result, never returned.
func (g *StepImageGenerator) Generate(ctx context.Context, job StepImageJob) Result {
	ctx, span := telemetry.Tracer("worker").Start(ctx, "step_image.generate")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("recipe.id", job.RecipeID),
		attribute.Int64("step.id", job.StepID),
		attribute.Int("step.number", job.StepNumber),
	)

	start := time.Now()
	log := slog.With("recipe_id", job.RecipeID, "step_id", job.StepID, "step_number", job.StepNumber, logger.WithTraceContext(ctx))
	path := storage.StepImagePath(job.RecipeID, job.StepNumber)

	if job.CheckExisting {
		exists, err := g.objects.Exists(ctx, path)
		if err != nil {
			log.Warn("Existing image check failed, generating anyway", "path", path, "error", err)
		} else if exists {
			url := g.objects.PublicURL(path)
			log.Info("Step image already exists", "url", url)
			g.persist(ctx, log, job.StepID, url, ExistingPrompt)
			res := Result{Success: true, StepID: job.StepID, ImageURL: url, Prompt: ExistingPrompt, Skipped: true}
			metrics.RecordStepImage(ctx, metrics.ImageOutcomeSkipped, time.Since(start))
			g.notify(ctx, log, job.RecipeID, res)
			return res
		}
	}

	stepCtx, err := g.steps.StepImageContext(ctx, job.StepID)
	if err != nil {
		log.Warn("Failed to load step context, using instruction only", "error", err)
		stepCtx = &StepContext{}
	}

	prompt := imagegen.BuildStepPrompt(imagegen.StepPrompt{
		RecipeTitle:       job.RecipeTitle,
		Instruction:       job.Instruction,
		Ingredients:       stepCtx.Ingredients,
		Equipment:         stepCtx.Equipment,
		Output:            stepCtx.Output,
		DependencyOutputs: stepCtx.DependencyOutputs,
	})

	url, err := g.generateAndUpload(ctx, path, prompt)
	if err != nil {
		log.Error("Step image generation failed", "provider", g.images.Name(), "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordStepImage(ctx, metrics.ImageOutcomeFailed, time.Since(start))
		res := failed(job.StepID, err)
		res.Prompt = prompt
		g.notify(ctx, log, job.RecipeID, res)
		return res
	}

	g.persist(ctx, log, job.StepID, url, prompt)

	log.Info("Generated step image", "url", url, "duration", time.Since(start))
	metrics.RecordStepImage(ctx, metrics.ImageOutcomeGenerated, time.Since(start))
	res := Result{Success: true, StepID: job.StepID, ImageURL: url, Prompt: prompt}
	g.notify(ctx, log, job.RecipeID, res)
	return res
}

func (g *StepImageGenerator) generateAndUpload(ctx context.Context, path, prompt string) (string, error) {
	img, err := utils.WithRetry(ctx, func(ctx context.Context) (*imagegen.Image, error) {
		return g.images.Generate(ctx, imagegen.Request{Prompt: prompt})
	}, g.retry.Named("image.generate"))
	if err != nil {
		return "", err
	}

	data, contentType := img.Data, img.ContentType
	if len(data) == 0 {
		if img.URL == "" {
			return "", fmt.Errorf("%s returned neither image bytes nor a URL", g.images.Name())
		}
		type download struct {
			data        []byte
			contentType string
		}
		dl, err := utils.WithRetry(ctx, func(ctx context.Context) (download, error) {
			b, ct, err := httpclient.Download(ctx, g.httpClient, img.URL)
			return download{b, ct}, err
		}, g.retry.Named("image.download"))
		if err != nil {
			return "", fmt.Errorf("failed to download generated image: %w", err)
		}
		data, contentType = dl.data, dl.contentType
	}
	if contentType == "" || contentType == "application/octet-stream" || contentType == "binary/octet-stream" {
		contentType = "image/png"
	}

	return g.objects.Upload(ctx, path, data, contentType)
}

// persist writes the image back onto the step. A failure leaves the
// uploaded object unlinked and is only logged.
func (g *StepImageGenerator) persist(ctx context.Context, log *slog.Logger, stepID int64, url, prompt string) {
	if err := g.steps.UpdateRecipeStepImage(ctx, stepID, url, prompt); err != nil {
		log.Error("Failed to record step image", "url", url, "error", err)
	}
}

func (g *StepImageGenerator) notify(ctx context.Context, log *slog.Logger, recipeID int64, res Result) {
	if g.notifier == nil {
		return
	}
	if err := g.notifier.ImageReady(ctx, recipeID, res); err != nil {
		log.Warn("Failed to broadcast step image", "error", err)
	}
}
