package recipes

import (
	"context"

	"github.com/socialchef/sizzle/internal/db"
	apperrors "github.com/socialchef/sizzle/internal/errors"
	"github.com/socialchef/sizzle/internal/worker"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// RecipeDetail is a recipe with its join rows and steps.
type RecipeDetail struct {
	db.Recipe
	Ingredients []db.RecipeIngredient `json:"ingredients"`
	Equipment   []db.RecipeEquipment  `json:"equipment"`
	Steps       []StepDetail          `json:"steps"`
}

type StepDetail struct {
	db.RecipeStep
	Ingredients []db.StepIngredientLink `json:"ingredients"`
	Equipment   []db.StepEquipmentLink  `json:"equipment"`
}

// Page clamps limit and offset to sane values.
func Page(limit, offset int) (int32, int32) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return int32(limit), int32(offset)
}

// ListRecipes returns a page of recipes matching search on title or
// description, newest first, with the total match count.
func (s *Service) ListRecipes(ctx context.Context, search string, limit, offset int) ([]db.Recipe, int64, error) {
	l, o := Page(limit, offset)

	var (
		rows  []db.Recipe
		total int64
	)
	err := worker.RunParallel(ctx,
		func(ctx context.Context) (err error) {
			rows, err = s.store.ListRecipes(ctx, db.ListRecipesParams{Search: search, Limit: l, Offset: o})
			return err
		},
		func(ctx context.Context) (err error) {
			total, err = s.store.CountRecipes(ctx, search)
			return err
		},
	)
	if err != nil {
		return nil, 0, apperrors.NewPersistenceError("failed to list recipes", "RECIPES_LIST_FAILED", err)
	}
	if rows == nil {
		rows = []db.Recipe{}
	}
	return rows, total, nil
}

func (s *Service) GetRecipe(ctx context.Context, id int64) (*RecipeDetail, error) {
	recipe, err := s.store.GetRecipe(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "recipe", id)
	}

	detail := &RecipeDetail{Recipe: recipe}
	var (
		steps          []db.RecipeStep
		stepIngredient []db.StepIngredientLink
		stepEquipment  []db.StepEquipmentLink
	)
	err = worker.RunParallel(ctx,
		func(ctx context.Context) (err error) {
			detail.Ingredients, err = s.store.ListRecipeIngredients(ctx, id)
			return err
		},
		func(ctx context.Context) (err error) {
			detail.Equipment, err = s.store.ListRecipeEquipment(ctx, id)
			return err
		},
		func(ctx context.Context) (err error) {
			steps, err = s.store.ListSteps(ctx, id)
			return err
		},
		func(ctx context.Context) (err error) {
			stepIngredient, err = s.store.ListStepIngredientLinks(ctx, id)
			return err
		},
		func(ctx context.Context) (err error) {
			stepEquipment, err = s.store.ListStepEquipmentLinks(ctx, id)
			return err
		},
	)
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to load recipe", "RECIPE_LOAD_FAILED", err)
	}

	byStepIng := map[int64][]db.StepIngredientLink{}
	for _, l := range stepIngredient {
		byStepIng[l.StepID] = append(byStepIng[l.StepID], l)
	}
	byStepEq := map[int64][]db.StepEquipmentLink{}
	for _, l := range stepEquipment {
		byStepEq[l.StepID] = append(byStepEq[l.StepID], l)
	}

	detail.Steps = make([]StepDetail, 0, len(steps))
	for _, st := range steps {
		sd := StepDetail{
			RecipeStep:  st,
			Ingredients: byStepIng[st.ID],
			Equipment:   byStepEq[st.ID],
		}
		if sd.Ingredients == nil {
			sd.Ingredients = []db.StepIngredientLink{}
		}
		if sd.Equipment == nil {
			sd.Equipment = []db.StepEquipmentLink{}
		}
		detail.Steps = append(detail.Steps, sd)
	}
	if detail.Ingredients == nil {
		detail.Ingredients = []db.RecipeIngredient{}
	}
	if detail.Equipment == nil {
		detail.Equipment = []db.RecipeEquipment{}
	}
	return detail, nil
}

func (s *Service) ListIngredients(ctx context.Context, search string, limit, offset int) ([]db.Ingredient, int64, error) {
	l, o := Page(limit, offset)

	var (
		rows  []db.Ingredient
		total int64
	)
	err := worker.RunParallel(ctx,
		func(ctx context.Context) (err error) {
			rows, err = s.store.ListIngredients(ctx, db.ListIngredientsParams{Search: search, Limit: l, Offset: o})
			return err
		},
		func(ctx context.Context) (err error) {
			total, err = s.store.CountIngredients(ctx, search)
			return err
		},
	)
	if err != nil {
		return nil, 0, apperrors.NewPersistenceError("failed to list ingredients", "INGREDIENTS_LIST_FAILED", err)
	}
	if rows == nil {
		rows = []db.Ingredient{}
	}
	return rows, total, nil
}
