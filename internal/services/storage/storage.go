package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrUploadFailed = errors.New("upload failed")

// ObjectStore is the object storage collaborator used for generated step images.
type ObjectStore interface {
	// Upload writes data under path, overwriting any existing object, and
	// returns a publicly resolvable URL.
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
	Exists(ctx context.Context, path string) (bool, error)
	PublicURL(path string) string
}

// StepImagePath is the deterministic object key for a recipe step image, so
// regenerating a step overwrites the previous asset.
func StepImagePath(recipeID int64, stepNumber int) string {
	return fmt.Sprintf("recipe_steps/recipe_%d_step_%d.png", recipeID, stepNumber)
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
