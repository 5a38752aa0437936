package validation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/socialchef/sizzle/internal/services/ai"
	"github.com/socialchef/sizzle/internal/services/openai"
)

// Confidence represents certainty in the validation result
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

const DefaultMaxQueryLength = 500

// QueryValidationResult contains the outcome of validation
type QueryValidationResult struct {
	IsValid    bool       `json:"is_valid"`
	Confidence Confidence `json:"confidence"`
	Reason     string     `json:"reason"`
}

// QueryValidationConfig defines settings for validation
type QueryValidationConfig struct {
	EnableAIValidation bool
	ValidationModel    string
	MaxQueryLength     int
}

// Chatter runs a single chat completion.
type Chatter interface {
	Chat(ctx context.Context, req openai.ChatRequest) (string, error)
}

var foodKeywords = []string{
	// cooking verbs
	"bake", "cook", "fry", "boil", "grill", "roast", "saute", "simmer", "steam", "braise", "poach",
	// dishes and meals
	"recipe", "dish", "meal", "breakfast", "lunch", "dinner", "dessert", "snack", "soup", "salad",
	"stew", "curry", "pasta", "pizza", "cake", "bread", "pie", "sauce", "omelette", "sandwich",
	// common ingredients
	"egg", "chicken", "beef", "pork", "fish", "tofu", "rice", "noodle", "potato", "tomato",
	"cheese", "butter", "flour", "sugar", "chocolate", "garlic", "onion", "vegetable", "bean",
	// diet words
	"vegan", "vegetarian", "gluten", "keto", "healthy", "quick", "easy",
}

var injectionMarkers = []string{
	"ignore previous", "ignore all previous", "system prompt", "disregard the above", "you are now",
}

// QuickValidateQuery performs a fast heuristic check without API calls
func QuickValidateQuery(query string, maxLength int) QueryValidationResult {
	if maxLength <= 0 {
		maxLength = DefaultMaxQueryLength
	}
	query = strings.TrimSpace(query)

	if query == "" {
		return QueryValidationResult{IsValid: false, Confidence: ConfidenceHigh, Reason: "No query provided"}
	}
	if n := utf8.RuneCountInString(query); n > maxLength {
		return QueryValidationResult{
			IsValid:    false,
			Confidence: ConfidenceHigh,
			Reason:     fmt.Sprintf("Query too long (%d chars). Keep it under %d chars.", n, maxLength),
		}
	}

	lower := strings.ToLower(query)
	for _, marker := range injectionMarkers {
		if strings.Contains(lower, marker) {
			return QueryValidationResult{IsValid: false, Confidence: ConfidenceHigh, Reason: "Query contains instructions aimed at the model"}
		}
	}

	for _, kw := range foodKeywords {
		if strings.Contains(lower, kw) {
			return QueryValidationResult{IsValid: true, Confidence: ConfidenceHigh, Reason: "Query passed quick validation"}
		}
	}

	return QueryValidationResult{
		IsValid:    true,
		Confidence: ConfidenceMedium,
		Reason:     "Query has no common food keywords",
	}
}

// AIValidateQuery uses an LLM to classify the query
func AIValidateQuery(ctx context.Context, query string, chatter Chatter, model string) (QueryValidationResult, error) {
	if chatter == nil {
		return QueryValidationResult{}, fmt.Errorf("chat client is required for AI validation")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}

	resp, err := chatter.Chat(ctx, openai.ChatRequest{
		Model:        model,
		SystemPrompt: ai.BuildQueryValidationPrompt(),
		UserContent:  query,
		JSONMode:     true,
	})
	if err != nil {
		return QueryValidationResult{
			IsValid:    false,
			Confidence: ConfidenceLow,
			Reason:     fmt.Sprintf("AI validation failed: %v", err),
		}, err
	}

	var parsed struct {
		IsRecipeRequest bool    `json:"is_recipe_request"`
		Confidence      float64 `json:"confidence"`
		Reason          string  `json:"reason"`
	}
	if err := json.Unmarshal([]byte(resp), &parsed); err != nil {
		return QueryValidationResult{
			IsValid:    false,
			Confidence: ConfidenceLow,
			Reason:     fmt.Sprintf("Failed to parse AI response: %v", err),
		}, err
	}

	return QueryValidationResult{
		IsValid:    parsed.IsRecipeRequest,
		Confidence: confidenceLevel(parsed.Confidence),
		Reason:     parsed.Reason,
	}, nil
}

func confidenceLevel(score float64) Confidence {
	switch {
	case score >= 0.8:
		return ConfidenceHigh
	case score >= 0.5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// ValidateQuery runs the quick check and consults the model only when the
// heuristics are unsure. An AI failure keeps the quick result.
func ValidateQuery(ctx context.Context, query string, config QueryValidationConfig, chatter Chatter) (QueryValidationResult, error) {
	quickResult := QuickValidateQuery(query, config.MaxQueryLength)

	if quickResult.Confidence == ConfidenceHigh {
		return quickResult, nil
	}
	if !config.EnableAIValidation || chatter == nil {
		return quickResult, nil
	}

	aiResult, err := AIValidateQuery(ctx, strings.TrimSpace(query), chatter, config.ValidationModel)
	if err != nil {
		return quickResult, nil
	}
	if aiResult.Confidence == ConfidenceLow {
		return quickResult, nil
	}
	return aiResult, nil
}
