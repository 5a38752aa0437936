package recipes

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/socialchef/sizzle/internal/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Normalize trims names and fills defaults. It does not drop anything;
// nameless entries are skipped at write time.
func (r *Recipe) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	if r.Servings == 0 {
		r.Servings = DefaultServings
	}
	for i := range r.Ingredients {
		r.Ingredients[i].Name = strings.TrimSpace(r.Ingredients[i].Name)
	}
	for i := range r.Equipment {
		r.Equipment[i].Name = strings.TrimSpace(r.Equipment[i].Name)
	}
	for i := range r.Steps {
		r.Steps[i].Instruction = strings.TrimSpace(r.Steps[i].Instruction)
	}
}

// Validate checks the fields a save cannot proceed without.
func Validate(r *Recipe) error {
	if r == nil {
		return apperrors.NewValidationError("recipe is required", "RECIPE_REQUIRED", "Send a recipe object in the request body")
	}

	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewValidationError(err.Error(), "RECIPE_INVALID", "")
	}

	first := verrs[0]
	switch {
	case first.Field() == "Title" && first.Tag() == "required":
		return apperrors.NewValidationError("recipe title is required", "RECIPE_TITLE_REQUIRED", "Provide a non-empty title")
	default:
		return apperrors.NewValidationError(
			fmt.Sprintf("invalid recipe field %s: failed %s", first.Namespace(), first.Tag()),
			"RECIPE_INVALID",
			"Check the recipe fields and try again",
		)
	}
}
