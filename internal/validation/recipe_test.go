package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/socialchef/sizzle/internal/recipes"
)

func TestDetectPlaceholders(t *testing.T) {
	tests := []struct {
		text     string
		expected bool
	}{
		{"N/A", true},
		{"unknown", true},
		{"Not Specified", true},
		{"[placeholder]", true},
		{"<TBD>", true},
		{"Ingredient Name", true},
		{"valid ingredient", false},
		{"Salt", false},
		{"", true},
		{"   ", true},
		{"xxx", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, DetectPlaceholders(tt.text), "DetectPlaceholders(%q)", tt.text)
	}
}

func TestValidateRecipe(t *testing.T) {
	config := DefaultRecipeValidationConfig()

	t.Run("High quality recipe", func(t *testing.T) {
		r := &recipes.Recipe{
			Title:       "Classic Pancakes",
			Description: "A delicious and fluffy pancake recipe for your breakfast.",
			PrepTime:    "10 mins",
			CookTime:    "15 mins",
			Ingredients: []recipes.Ingredient{
				{Name: "Flour", Quantity: "2 cups"},
				{Name: "Milk", Quantity: "1.5 cups"},
				{Name: "Egg", Quantity: "1"},
			},
			Steps: []recipes.Step{
				{StepNumber: 1, Instruction: "Mix all ingredients in a large bowl until smooth.", Output: "batter"},
				{StepNumber: 2, Instruction: "Heat a non-stick pan over medium heat and pour batter.", Output: "pancakes", Dependencies: []int{1}},
			},
		}

		result := ValidateRecipe(r, config)
		assert.True(t, result.IsValid, "issues: %v", result.Issues)
		assert.Equal(t, 100, result.QualityScore)
		assert.Empty(t, result.Issues)
	})

	t.Run("Placeholder detection", func(t *testing.T) {
		r := &recipes.Recipe{
			Title:       "N/A",
			Description: "TBD",
			Ingredients: []recipes.Ingredient{{Name: "unknown"}},
			Steps:       []recipes.Step{{StepNumber: 1, Instruction: "follow recipe"}},
		}

		result := ValidateRecipe(r, config)
		assert.False(t, result.IsValid)
		assert.True(t, result.HasPlaceholders)
	})

	t.Run("Empty recipe fails", func(t *testing.T) {
		result := ValidateRecipe(&recipes.Recipe{}, config)
		assert.False(t, result.IsValid)
		assert.Equal(t, 0, result.QualityScore)
		assert.False(t, result.HasPlaceholders)
	})

	t.Run("Nil recipe fails", func(t *testing.T) {
		result := ValidateRecipe(nil, config)
		assert.False(t, result.IsValid)
		assert.Equal(t, []string{"Recipe is missing"}, result.Issues)
	})

	t.Run("Minimum requirements not met", func(t *testing.T) {
		r := &recipes.Recipe{
			Title:       "Simple Toast",
			Description: "Toast bread.",
			Ingredients: []recipes.Ingredient{{Name: "Bread", Quantity: "1 slice"}},
			Steps:       []recipes.Step{{StepNumber: 1, Instruction: "Toast it."}},
		}

		result := ValidateRecipe(r, config)
		assert.False(t, result.IsValid)

		joined := strings.Join(result.Issues, "\n")
		assert.Contains(t, joined, "Too few ingredients")
		assert.Contains(t, joined, "Too few instructions")
		assert.Contains(t, joined, "Description is very short")
	})
}
