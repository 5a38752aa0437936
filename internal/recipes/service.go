package recipes

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/socialchef/sizzle/internal/db"
	apperrors "github.com/socialchef/sizzle/internal/errors"
	"github.com/socialchef/sizzle/internal/metrics"
	"github.com/socialchef/sizzle/internal/worker"
)

// Store is the query set plus transactions. *db.Store satisfies it.
type Store interface {
	db.Querier
	ExecTx(ctx context.Context, fn func(db.Querier) error) error
}

// Service persists recipes into the normalised schema and hands their steps
// to the image dispatcher. It also serves as the dispatcher's StepStore.
type Service struct {
	store      Store
	dispatcher worker.Dispatcher
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// SetDispatcher wires the image dispatcher. The dispatcher's generator needs
// the service as its StepStore, so this happens after construction.
func (s *Service) SetDispatcher(d worker.Dispatcher) {
	s.dispatcher = d
}

type savedStep struct {
	id          int64
	number      int
	instruction string
}

type savedRecipe struct {
	id        int64
	title     string
	overwrite bool
	steps     []savedStep
}

// SaveRecipe writes r, replacing any recipe with the same title
// (case-insensitive) while keeping its id. All writes share one transaction.
// When autoGenerateImages is set, one image job per inserted step is
// dispatched after commit. A failed save returns 0 and the error.
func (s *Service) SaveRecipe(ctx context.Context, r *Recipe, autoGenerateImages bool) (int64, error) {
	if r == nil {
		return 0, Validate(nil)
	}
	r.Normalize()
	if err := Validate(r); err != nil {
		return 0, err
	}

	start := time.Now()
	var saved savedRecipe
	err := s.store.ExecTx(ctx, func(q db.Querier) error {
		var err error
		saved, err = writeRecipe(ctx, q, r)
		return err
	})
	metrics.RecordRecipeSave(ctx, saved.overwrite, err, time.Since(start))
	if err != nil {
		slog.Error("Failed to save recipe", "title", r.Title, "error", err)
		return 0, apperrors.NewPersistenceError("failed to save recipe", "RECIPE_SAVE_FAILED", err)
	}

	slog.Info("Saved recipe",
		"recipe_id", saved.id,
		"title", saved.title,
		"overwrite", saved.overwrite,
		"steps", len(saved.steps),
	)

	if autoGenerateImages {
		s.dispatchSteps(ctx, saved)
	}
	return saved.id, nil
}

func writeRecipe(ctx context.Context, q db.Querier, r *Recipe) (savedRecipe, error) {
	saved := savedRecipe{title: r.Title}

	existing, err := q.FindRecipeByTitle(ctx, r.Title)
	switch {
	case err == nil:
		saved.id = existing.ID
		saved.overwrite = true
		slog.Info("Overwriting existing recipe", "recipe_id", existing.ID, "title", r.Title)
		if err := clearRecipe(ctx, q, existing.ID); err != nil {
			return saved, err
		}
		if _, err := q.UpdateRecipe(ctx, db.UpdateRecipeParams{
			ID:          existing.ID,
			Title:       r.Title,
			Description: text(r.Description),
			PrepTime:    text(r.PrepTime.String()),
			CookTime:    text(r.CookTime.String()),
			Servings:    int32(r.Servings),
		}); err != nil {
			return saved, fmt.Errorf("update recipe %d: %w", existing.ID, err)
		}
	case db.IsNotFound(err):
		created, err := q.CreateRecipe(ctx, db.CreateRecipeParams{
			Title:       r.Title,
			Description: text(r.Description),
			PrepTime:    text(r.PrepTime.String()),
			CookTime:    text(r.CookTime.String()),
			Servings:    int32(r.Servings),
		})
		if err != nil {
			return saved, fmt.Errorf("insert recipe: %w", err)
		}
		saved.id = created.ID
		slog.Info("Inserted recipe", "recipe_id", created.ID, "title", r.Title)
	default:
		return saved, fmt.Errorf("look up recipe by title: %w", err)
	}

	ingredientRows, err := insertIngredients(ctx, q, saved.id, r.Ingredients)
	if err != nil {
		return saved, err
	}
	equipmentRows, err := insertEquipment(ctx, q, saved.id, r.Equipment)
	if err != nil {
		return saved, err
	}

	for _, step := range r.Steps {
		if step.Instruction == "" {
			slog.Warn("Skipping step without instruction", "recipe_id", saved.id, "step_number", step.StepNumber)
			continue
		}

		row, err := q.CreateStep(ctx, db.CreateStepParams{
			RecipeID:     saved.id,
			StepNumber:   int32(step.StepNumber),
			Instruction:  step.Instruction,
			Output:       text(step.Output),
			Dependencies: int32s(step.Dependencies),
		})
		if err != nil {
			return saved, fmt.Errorf("insert step %d: %w", step.StepNumber, err)
		}
		slog.Debug("Inserted step", "recipe_id", saved.id, "step_number", step.StepNumber, "step_id", row.ID)

		if err := linkStep(ctx, q, row.ID, step, ingredientRows, equipmentRows); err != nil {
			return saved, err
		}
		saved.steps = append(saved.steps, savedStep{id: row.ID, number: step.StepNumber, instruction: step.Instruction})
	}

	return saved, nil
}

// clearRecipe removes every child row of a recipe, joins first.
func clearRecipe(ctx context.Context, q db.Querier, recipeID int64) error {
	deletes := []struct {
		what string
		fn   func(context.Context, int64) error
	}{
		{"step ingredients", q.DeleteStepIngredientsByRecipe},
		{"step equipment", q.DeleteStepEquipmentByRecipe},
		{"steps", q.DeleteStepsByRecipe},
		{"recipe ingredients", q.DeleteRecipeIngredientsByRecipe},
		{"recipe equipment", q.DeleteRecipeEquipmentByRecipe},
	}
	for _, d := range deletes {
		if err := d.fn(ctx, recipeID); err != nil {
			return fmt.Errorf("delete %s of recipe %d: %w", d.what, recipeID, err)
		}
	}
	return nil
}

// insertIngredients returns the recipe_ingredients ids keyed by lowercased name.
func insertIngredients(ctx context.Context, q db.Querier, recipeID int64, ingredients []Ingredient) (map[string]int64, error) {
	rows := make(map[string]int64, len(ingredients))
	for _, ing := range ingredients {
		if ing.Name == "" {
			slog.Warn("Skipping ingredient without name", "recipe_id", recipeID)
			continue
		}
		key := strings.ToLower(ing.Name)
		if _, dup := rows[key]; dup {
			slog.Debug("Skipping duplicate ingredient", "recipe_id", recipeID, "name", ing.Name)
			continue
		}

		master, err := q.UpsertIngredient(ctx, ing.Name)
		if err != nil {
			return nil, fmt.Errorf("get or create ingredient %q: %w", ing.Name, err)
		}
		row, err := q.CreateRecipeIngredient(ctx, db.CreateRecipeIngredientParams{
			RecipeID:     recipeID,
			IngredientID: master.ID,
			Name:         ing.Name,
			Quantity:     text(ing.Quantity.String()),
			Unit:         text(ing.Unit),
		})
		if err != nil {
			return nil, fmt.Errorf("link ingredient %q: %w", ing.Name, err)
		}
		rows[key] = row.ID
	}
	return rows, nil
}

// insertEquipment returns the recipe_equipment ids keyed by lowercased name.
func insertEquipment(ctx context.Context, q db.Querier, recipeID int64, equipment []Equipment) (map[string]int64, error) {
	rows := make(map[string]int64, len(equipment))
	for _, eq := range equipment {
		if eq.Name == "" {
			slog.Warn("Skipping equipment without name", "recipe_id", recipeID)
			continue
		}
		key := strings.ToLower(eq.Name)
		if _, dup := rows[key]; dup {
			continue
		}

		master, err := q.UpsertEquipment(ctx, eq.Name)
		if err != nil {
			return nil, fmt.Errorf("get or create equipment %q: %w", eq.Name, err)
		}
		row, err := q.CreateRecipeEquipment(ctx, db.CreateRecipeEquipmentParams{
			RecipeID:    recipeID,
			EquipmentID: master.ID,
			Name:        eq.Name,
		})
		if err != nil {
			return nil, fmt.Errorf("link equipment %q: %w", eq.Name, err)
		}
		rows[key] = row.ID
	}
	return rows, nil
}

// linkStep resolves a step's references against this recipe's join rows only.
// Names that do not match a join row are dropped.
func linkStep(ctx context.Context, q db.Querier, stepID int64, step Step, ingredientRows, equipmentRows map[string]int64) error {
	linked := map[int64]bool{}
	for _, ref := range step.Ingredients {
		id, ok := ingredientRows[strings.ToLower(strings.TrimSpace(ref.Name))]
		if !ok || linked[id] {
			continue
		}
		if err := q.CreateStepIngredient(ctx, db.CreateStepIngredientParams{StepID: stepID, RecipeIngredientID: id}); err != nil {
			return fmt.Errorf("link step %d ingredient %q: %w", stepID, ref.Name, err)
		}
		linked[id] = true
	}

	linked = map[int64]bool{}
	for _, ref := range step.Equipment {
		id, ok := equipmentRows[strings.ToLower(strings.TrimSpace(ref.Name))]
		if !ok || linked[id] {
			continue
		}
		if err := q.CreateStepEquipment(ctx, db.CreateStepEquipmentParams{StepID: stepID, RecipeEquipmentID: id}); err != nil {
			return fmt.Errorf("link step %d equipment %q: %w", stepID, ref.Name, err)
		}
		linked[id] = true
	}
	return nil
}

func (s *Service) dispatchSteps(ctx context.Context, saved savedRecipe) []*worker.Handle {
	if s.dispatcher == nil {
		slog.Warn("No image dispatcher configured, skipping step images", "recipe_id", saved.id)
		return nil
	}
	handles := make([]*worker.Handle, 0, len(saved.steps))
	for _, st := range saved.steps {
		job := worker.NewStepImageJob(st.id, st.number, st.instruction, saved.id, saved.title)
		handles = append(handles, s.dispatcher.GenerateStepImageAsync(ctx, job))
	}
	slog.Info("Dispatched step images", "recipe_id", saved.id, "count", len(handles))
	return handles
}

// GenerateAllStepImages dispatches one image job per stored step of a recipe.
func (s *Service) GenerateAllStepImages(ctx context.Context, recipeID int64, checkExisting bool) ([]*worker.Handle, error) {
	if s.dispatcher == nil {
		return nil, apperrors.NewInternalError("image dispatcher is not configured", nil)
	}

	recipe, err := s.store.GetRecipe(ctx, recipeID)
	if err != nil {
		return nil, notFoundOr(err, "recipe", recipeID)
	}
	steps, err := s.store.ListSteps(ctx, recipeID)
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to list steps", "STEPS_LIST_FAILED", err)
	}

	handles := make([]*worker.Handle, 0, len(steps))
	for _, st := range steps {
		job := worker.NewStepImageJob(st.ID, int(st.StepNumber), st.Instruction, recipe.ID, recipe.Title)
		job.CheckExisting = checkExisting
		handles = append(handles, s.dispatcher.GenerateStepImageAsync(ctx, job))
	}
	slog.Info("Dispatched step images", "recipe_id", recipeID, "count", len(handles), "check_existing", checkExisting)
	return handles, nil
}

// UpdateRecipeStepImage records a generated image on its step and stamps
// image_generated_at.
func (s *Service) UpdateRecipeStepImage(ctx context.Context, stepID int64, imageURL, prompt string) error {
	err := s.store.UpdateStepImage(ctx, db.UpdateStepImageParams{
		ID:          stepID,
		ImageUrl:    text(imageURL),
		ImagePrompt: text(prompt),
	})
	if err != nil {
		return notFoundOr(err, "step", stepID)
	}
	slog.Info("Updated step image", "step_id", stepID)
	return nil
}

// StepImageContext loads the step's linked ingredient and equipment names,
// its output and the outputs of the steps it depends on.
func (s *Service) StepImageContext(ctx context.Context, stepID int64) (*worker.StepContext, error) {
	step, err := s.store.GetStep(ctx, stepID)
	if err != nil {
		return nil, notFoundOr(err, "step", stepID)
	}

	var (
		ingredients []db.StepIngredientLink
		equipment   []db.StepEquipmentLink
		steps       []db.RecipeStep
	)
	err = worker.RunParallel(ctx,
		func(ctx context.Context) (err error) {
			ingredients, err = s.store.ListStepIngredientLinks(ctx, step.RecipeID)
			return err
		},
		func(ctx context.Context) (err error) {
			equipment, err = s.store.ListStepEquipmentLinks(ctx, step.RecipeID)
			return err
		},
		func(ctx context.Context) (err error) {
			if len(step.Dependencies) == 0 {
				return nil
			}
			steps, err = s.store.ListSteps(ctx, step.RecipeID)
			return err
		},
	)
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to load step context", "STEP_CONTEXT_FAILED", err)
	}

	sc := &worker.StepContext{Output: step.Output.String}
	for _, l := range ingredients {
		if l.StepID == stepID {
			sc.Ingredients = append(sc.Ingredients, l.Name)
		}
	}
	for _, l := range equipment {
		if l.StepID == stepID {
			sc.Equipment = append(sc.Equipment, l.Name)
		}
	}
	for _, dep := range step.Dependencies {
		for _, other := range steps {
			if other.StepNumber == dep && other.Output.Valid && other.Output.String != "" {
				sc.DependencyOutputs = append(sc.DependencyOutputs, other.Output.String)
				break
			}
		}
	}
	return sc, nil
}

func notFoundOr(err error, what string, id int64) error {
	if db.IsNotFound(err) {
		return apperrors.NewNotFoundError(fmt.Sprintf("%s %d not found", what, id), strings.ToUpper(what)+"_NOT_FOUND", "")
	}
	return apperrors.NewPersistenceError(fmt.Sprintf("failed to load %s %d", what, id), strings.ToUpper(what)+"_LOAD_FAILED", err)
}

func text(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func int32s(in []int) []int32 {
	out := make([]int32, 0, len(in))
	for _, v := range in {
		out = append(out, int32(v))
	}
	return out
}
