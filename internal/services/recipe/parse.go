package recipe

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/socialchef/sizzle/internal/recipes"
)

// ErrInvalidRecipe marks model output that could not be turned into a recipe.
var ErrInvalidRecipe = errors.New("invalid recipe response")

var requiredFields = []string{"title", "ingredients", "steps", "description"}

// ParseRecipe decodes the model's JSON answer. Markdown fences are stripped,
// required fields are enforced, missing step ids become their position and
// missing per-step lists become empty.
func ParseRecipe(content string) (*recipes.Recipe, error) {
	raw := stripFences(content)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("%w: not a JSON object: %v", ErrInvalidRecipe, err)
	}
	for _, f := range requiredFields {
		v, ok := fields[f]
		if !ok || string(v) == "null" {
			return nil, fmt.Errorf("%w: missing required field %q", ErrInvalidRecipe, f)
		}
	}

	var r recipes.Recipe
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecipe, err)
	}

	if r.Servings <= 0 {
		r.Servings = recipes.DefaultServings
	}
	if r.Ingredients == nil {
		r.Ingredients = []recipes.Ingredient{}
	}
	if r.Equipment == nil {
		r.Equipment = []recipes.Equipment{}
	}
	for i := range r.Steps {
		step := &r.Steps[i]
		if step.StepNumber <= 0 {
			step.StepNumber = i + 1
		}
		if strings.TrimSpace(step.Instruction) == "" {
			return nil, fmt.Errorf("%w: step %d has no instruction", ErrInvalidRecipe, step.StepNumber)
		}
		if step.Ingredients == nil {
			step.Ingredients = []recipes.StepIngredient{}
		}
		if step.Equipment == nil {
			step.Equipment = []recipes.Equipment{}
		}
	}
	return &r, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
