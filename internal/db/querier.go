package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

type Querier interface {
	// Recipe writes
	FindRecipeByTitle(ctx context.Context, title string) (Recipe, error)
	CreateRecipe(ctx context.Context, arg CreateRecipeParams) (Recipe, error)
	UpdateRecipe(ctx context.Context, arg UpdateRecipeParams) (Recipe, error)
	DeleteStepIngredientsByRecipe(ctx context.Context, recipeID int64) error
	DeleteStepEquipmentByRecipe(ctx context.Context, recipeID int64) error
	DeleteStepsByRecipe(ctx context.Context, recipeID int64) error
	DeleteRecipeIngredientsByRecipe(ctx context.Context, recipeID int64) error
	DeleteRecipeEquipmentByRecipe(ctx context.Context, recipeID int64) error

	// Lookup tables
	UpsertIngredient(ctx context.Context, name string) (Ingredient, error)
	UpsertEquipment(ctx context.Context, name string) (Equipment, error)
	CreateRecipeIngredient(ctx context.Context, arg CreateRecipeIngredientParams) (RecipeIngredient, error)
	CreateRecipeEquipment(ctx context.Context, arg CreateRecipeEquipmentParams) (RecipeEquipment, error)

	// Steps
	CreateStep(ctx context.Context, arg CreateStepParams) (RecipeStep, error)
	CreateStepIngredient(ctx context.Context, arg CreateStepIngredientParams) error
	CreateStepEquipment(ctx context.Context, arg CreateStepEquipmentParams) error
	UpdateStepImage(ctx context.Context, arg UpdateStepImageParams) error

	// Reads
	GetRecipe(ctx context.Context, id int64) (Recipe, error)
	GetStep(ctx context.Context, id int64) (RecipeStep, error)
	ListRecipeIngredients(ctx context.Context, recipeID int64) ([]RecipeIngredient, error)
	ListRecipeEquipment(ctx context.Context, recipeID int64) ([]RecipeEquipment, error)
	ListSteps(ctx context.Context, recipeID int64) ([]RecipeStep, error)
	ListStepIngredientLinks(ctx context.Context, recipeID int64) ([]StepIngredientLink, error)
	ListStepEquipmentLinks(ctx context.Context, recipeID int64) ([]StepEquipmentLink, error)
	ListRecipes(ctx context.Context, arg ListRecipesParams) ([]Recipe, error)
	CountRecipes(ctx context.Context, search string) (int64, error)
	ListIngredients(ctx context.Context, arg ListIngredientsParams) ([]Ingredient, error)
	CountIngredients(ctx context.Context, search string) (int64, error)
}

var _ Querier = (*Queries)(nil)
