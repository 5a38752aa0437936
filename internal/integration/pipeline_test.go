//go:build integration

package integration

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialchef/sizzle/internal/api"
	"github.com/socialchef/sizzle/internal/recipes"
	"github.com/socialchef/sizzle/internal/worker"
)

func pancakes() recipes.Recipe {
	return recipes.Recipe{
		Title:       "Buttermilk Pancakes",
		Description: "Thick and fluffy pancakes for a slow weekend breakfast.",
		PrepTime:    "10 mins",
		CookTime:    "15 mins",
		Servings:    4,
		Ingredients: []recipes.Ingredient{
			{Name: "Flour", Quantity: "2", Unit: "cups"},
			{Name: "Buttermilk", Quantity: "2", Unit: "cups"},
			{Name: "Egg", Quantity: "2"},
		},
		Equipment: []recipes.Equipment{{Name: "Bowl"}, {Name: "Pan"}},
		Steps: []recipes.Step{
			{
				StepNumber:  1,
				Instruction: "Whisk the flour, buttermilk and eggs into a smooth batter.",
				Output:      "batter",
				Ingredients: []recipes.StepIngredient{{Name: "flour"}, {Name: "Buttermilk"}, {Name: "EGG"}},
				Equipment:   []recipes.Equipment{{Name: "bowl"}},
			},
			{
				StepNumber:   2,
				Instruction:  "Ladle the batter into a hot pan and cook until bubbles form, then flip.",
				Output:       "pancakes",
				Dependencies: []int{1},
				Ingredients:  []recipes.StepIngredient{{Name: "Sugar"}},
				Equipment:    []recipes.Equipment{{Name: "Pan"}},
			},
		},
	}
}

func TestSaveGenerateAndReadBack(t *testing.T) {
	h := newHarness(t, cannedProvider{})

	rec := h.do(t, http.MethodPost, "/api/recipes?auto_generate_images=false", pancakes())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode[api.SaveRecipeResponse](t, rec).RecipeID
	require.NotZero(t, id)
	assert.Zero(t, h.images.calls())

	rec = h.do(t, http.MethodGet, fmt.Sprintf("/api/recipes/%d", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[recipes.RecipeDetail](t, rec)
	assert.Equal(t, "Buttermilk Pancakes", detail.Title)
	assert.Len(t, detail.Ingredients, 3)
	assert.Len(t, detail.Equipment, 2)
	require.Len(t, detail.Steps, 2)
	assert.Len(t, detail.Steps[0].Ingredients, 3)
	assert.Len(t, detail.Steps[0].Equipment, 1)
	// Sugar is not a recipe ingredient, so the reference is dropped.
	assert.Empty(t, detail.Steps[1].Ingredients)

	rec = h.do(t, http.MethodPost, fmt.Sprintf("/api/recipes/%d/images", id), map[string]any{"wait_seconds": 20})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	results := decode[api.GenerateImagesResponse](t, rec).Results
	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Success, r.Error)
		assert.False(t, r.Skipped)
	}
	assert.Equal(t, 2, h.objects.count())
	assert.Contains(t, results[0].ImageURL, fmt.Sprintf("recipe_steps/recipe_%d_step_1.png", id))
	assert.Contains(t, results[1].Prompt, "batter")

	stored, err := h.service.GetRecipe(context.Background(), id)
	require.NoError(t, err)
	for _, st := range stored.Steps {
		assert.True(t, st.ImageUrl.Valid)
		assert.True(t, st.ImageGeneratedAt.Valid)
	}

	// A second run finds the uploaded objects and skips generation.
	rec = h.do(t, http.MethodPost, fmt.Sprintf("/api/recipes/%d/images", id), map[string]any{"wait_seconds": 20})
	require.Equal(t, http.StatusOK, rec.Code)
	for _, r := range decode[api.GenerateImagesResponse](t, rec).Results {
		assert.True(t, r.Skipped)
	}
	assert.Equal(t, 2, h.images.calls())
}

func TestResaveOverwritesInPlace(t *testing.T) {
	h := newHarness(t, cannedProvider{})
	ctx := context.Background()

	first, err := h.service.SaveRecipe(ctx, ptr(pancakes()), false)
	require.NoError(t, err)

	shorter := pancakes()
	shorter.Title = "buttermilk pancakes"
	shorter.Steps = shorter.Steps[:1]
	second, err := h.service.SaveRecipe(ctx, &shorter, false)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	detail, err := h.service.GetRecipe(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "buttermilk pancakes", detail.Title)
	assert.Len(t, detail.Steps, 1)
	assert.Len(t, detail.Ingredients, 3)

	rows, total, err := h.service.ListIngredients(ctx, "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, rows, 3)
}

func TestSaveDispatchesImagesAfterCommit(t *testing.T) {
	h := newHarness(t, cannedProvider{})

	id, err := h.service.SaveRecipe(context.Background(), ptr(pancakes()), true)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return h.objects.count() == 2 }, 20*time.Second, 50*time.Millisecond)
	require.Eventually(t, func() bool {
		detail, err := h.service.GetRecipe(context.Background(), id)
		if err != nil {
			return false
		}
		for _, st := range detail.Steps {
			if !st.ImageUrl.Valid {
				return false
			}
		}
		return true
	}, 20*time.Second, 50*time.Millisecond)
}

func TestParseSavesGeneratedRecipe(t *testing.T) {
	h := newHarness(t, cannedProvider{recipe: pancakes()})

	rec := h.do(t, http.MethodPost, "/api/recipes/parse", map[string]any{
		"query":                "fluffy buttermilk pancakes",
		"auto_generate_images": false,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[api.ParseRecipeResponse](t, rec)
	require.NotZero(t, resp.RecipeID)
	assert.True(t, resp.Quality.IsValid)

	rec = h.do(t, http.MethodGet, "/api/recipes?search=buttermilk", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[api.ListResponse[recipeRow]](t, rec)
	assert.Equal(t, int64(1), list.Total)
	require.Len(t, list.Items, 1)
	assert.True(t, strings.EqualFold(list.Items[0].Title, "Buttermilk Pancakes"))
}

func TestWaitResultsKeepHandleOrder(t *testing.T) {
	h := newHarness(t, cannedProvider{})
	ctx := context.Background()

	id, err := h.service.SaveRecipe(ctx, ptr(pancakes()), false)
	require.NoError(t, err)

	handles, err := h.service.GenerateAllStepImages(ctx, id, false)
	require.NoError(t, err)
	results := worker.WaitForAllImages(handles, 20*time.Second)
	require.Len(t, results, len(handles))
	for i, r := range results {
		assert.Equal(t, handles[i].StepID, r.StepID)
	}
}

type recipeRow struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

func ptr[T any](v T) *T { return &v }
