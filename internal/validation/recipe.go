package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/socialchef/sizzle/internal/recipes"
)

// RecipeValidationConfig sets the minimum bar for a generated recipe.
type RecipeValidationConfig struct {
	MinIngredients       int
	MinSteps             int
	MinDescriptionLength int
	MinQualityScore      int
}

func DefaultRecipeValidationConfig() RecipeValidationConfig {
	return RecipeValidationConfig{
		MinIngredients:       2,
		MinSteps:             2,
		MinDescriptionLength: 20,
		MinQualityScore:      60,
	}
}

// RecipeValidationResult scores a recipe from 0 to 100 and lists what is wrong with it.
type RecipeValidationResult struct {
	IsValid         bool     `json:"is_valid"`
	QualityScore    int      `json:"quality_score"`
	HasPlaceholders bool     `json:"has_placeholders"`
	Issues          []string `json:"issues"`
}

var placeholderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(n/?a|none|null|unknown|tbd|todo|not specified|not provided|placeholder|\.\.\.|-+)$`),
	regexp.MustCompile(`^\[.*\]$`),
	regexp.MustCompile(`^<.*>$`),
	regexp.MustCompile(`(?i)^x{2,}$`),
	regexp.MustCompile(`(?i)^(ingredient|equipment|recipe|step) ?(name|title)?$`),
}

// DetectPlaceholders reports whether text is empty or a filler value
// instead of real content.
func DetectPlaceholders(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return true
	}
	for _, p := range placeholderPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// ValidateRecipe scores a recipe. Title is worth 20 points, description 15,
// ingredients 25, steps 25, times 10 and the step graph 5.
func ValidateRecipe(r *recipes.Recipe, config RecipeValidationConfig) RecipeValidationResult {
	result := RecipeValidationResult{Issues: []string{}}
	if r == nil {
		result.Issues = append(result.Issues, "Recipe is missing")
		return result
	}

	score := 0
	placeholder := func(field, value string) bool {
		if DetectPlaceholders(value) {
			if strings.TrimSpace(value) != "" {
				result.HasPlaceholders = true
				result.Issues = append(result.Issues, fmt.Sprintf("%s contains a placeholder: %q", field, value))
			}
			return true
		}
		return false
	}

	if placeholder("Title", r.Title) {
		result.Issues = append(result.Issues, "Missing title")
	} else {
		score += 20
	}

	if !placeholder("Description", r.Description) {
		if len(strings.TrimSpace(r.Description)) >= config.MinDescriptionLength {
			score += 15
		} else {
			score += 5
			result.Issues = append(result.Issues, "Description is very short")
		}
	}

	realIngredients := 0
	for _, ing := range r.Ingredients {
		if !placeholder("Ingredient", ing.Name) {
			realIngredients++
		}
	}
	if realIngredients < config.MinIngredients {
		result.Issues = append(result.Issues, fmt.Sprintf("Too few ingredients (%d, need %d)", realIngredients, config.MinIngredients))
	}
	score += scaled(25, realIngredients, config.MinIngredients)

	realSteps, withOutput := 0, 0
	for _, step := range r.Steps {
		if placeholder(fmt.Sprintf("Step %d", step.StepNumber), step.Instruction) {
			continue
		}
		if len(strings.Fields(step.Instruction)) < 3 {
			result.Issues = append(result.Issues, fmt.Sprintf("Step %d instruction is too vague", step.StepNumber))
			continue
		}
		realSteps++
		if strings.TrimSpace(step.Output) != "" {
			withOutput++
		}
	}
	if realSteps < config.MinSteps {
		result.Issues = append(result.Issues, fmt.Sprintf("Too few instructions (%d, need %d)", realSteps, config.MinSteps))
	}
	score += scaled(25, realSteps, config.MinSteps)

	if r.PrepTime != "" {
		score += 5
	}
	if r.CookTime != "" {
		score += 5
	}
	if realSteps > 0 && withOutput == realSteps {
		score += 5
	}

	result.QualityScore = score
	result.IsValid = !result.HasPlaceholders &&
		realIngredients >= config.MinIngredients &&
		realSteps >= config.MinSteps &&
		score >= config.MinQualityScore
	return result
}

func scaled(points, have, want int) int {
	if want <= 0 || have >= want {
		return points
	}
	return points * have / want
}
