package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const recipeColumns = `id, title, description, prep_time, cook_time, servings, created_at, updated_at`

const stepColumns = `id, recipe_id, step_number, instruction, output, dependencies, image_url, image_prompt, image_generated_at`

func scanRecipe(row pgx.Row) (Recipe, error) {
	var i Recipe
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Description,
		&i.PrepTime,
		&i.CookTime,
		&i.Servings,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func scanStep(row pgx.Row) (RecipeStep, error) {
	var i RecipeStep
	err := row.Scan(
		&i.ID,
		&i.RecipeID,
		&i.StepNumber,
		&i.Instruction,
		&i.Output,
		&i.Dependencies,
		&i.ImageUrl,
		&i.ImagePrompt,
		&i.ImageGeneratedAt,
	)
	return i, err
}

const findRecipeByTitle = `-- name: FindRecipeByTitle :one
SELECT ` + recipeColumns + ` FROM recipes
WHERE lower(title) = lower($1)
ORDER BY id
LIMIT 1
FOR UPDATE
`

// FindRecipeByTitle locks the matching row so concurrent saves of the same title serialise.
func (q *Queries) FindRecipeByTitle(ctx context.Context, title string) (Recipe, error) {
	return scanRecipe(q.db.QueryRow(ctx, findRecipeByTitle, title))
}

const createRecipe = `-- name: CreateRecipe :one
INSERT INTO recipes (title, description, prep_time, cook_time, servings)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + recipeColumns

type CreateRecipeParams struct {
	Title       string      `json:"title"`
	Description pgtype.Text `json:"description"`
	PrepTime    pgtype.Text `json:"prep_time"`
	CookTime    pgtype.Text `json:"cook_time"`
	Servings    int32       `json:"servings"`
}

func (q *Queries) CreateRecipe(ctx context.Context, arg CreateRecipeParams) (Recipe, error) {
	return scanRecipe(q.db.QueryRow(ctx, createRecipe,
		arg.Title,
		arg.Description,
		arg.PrepTime,
		arg.CookTime,
		arg.Servings,
	))
}

const updateRecipe = `-- name: UpdateRecipe :one
UPDATE recipes
SET title = $2, description = $3, prep_time = $4, cook_time = $5, servings = $6, updated_at = now()
WHERE id = $1
RETURNING ` + recipeColumns

type UpdateRecipeParams struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	Description pgtype.Text `json:"description"`
	PrepTime    pgtype.Text `json:"prep_time"`
	CookTime    pgtype.Text `json:"cook_time"`
	Servings    int32       `json:"servings"`
}

func (q *Queries) UpdateRecipe(ctx context.Context, arg UpdateRecipeParams) (Recipe, error) {
	return scanRecipe(q.db.QueryRow(ctx, updateRecipe,
		arg.ID,
		arg.Title,
		arg.Description,
		arg.PrepTime,
		arg.CookTime,
		arg.Servings,
	))
}

const deleteStepIngredientsByRecipe = `-- name: DeleteStepIngredientsByRecipe :exec
DELETE FROM step_ingredients
WHERE step_id IN (SELECT id FROM recipe_steps WHERE recipe_id = $1)
`

func (q *Queries) DeleteStepIngredientsByRecipe(ctx context.Context, recipeID int64) error {
	_, err := q.db.Exec(ctx, deleteStepIngredientsByRecipe, recipeID)
	return err
}

const deleteStepEquipmentByRecipe = `-- name: DeleteStepEquipmentByRecipe :exec
DELETE FROM step_equipment
WHERE step_id IN (SELECT id FROM recipe_steps WHERE recipe_id = $1)
`

func (q *Queries) DeleteStepEquipmentByRecipe(ctx context.Context, recipeID int64) error {
	_, err := q.db.Exec(ctx, deleteStepEquipmentByRecipe, recipeID)
	return err
}

const deleteStepsByRecipe = `-- name: DeleteStepsByRecipe :exec
DELETE FROM recipe_steps WHERE recipe_id = $1
`

func (q *Queries) DeleteStepsByRecipe(ctx context.Context, recipeID int64) error {
	_, err := q.db.Exec(ctx, deleteStepsByRecipe, recipeID)
	return err
}

const deleteRecipeIngredientsByRecipe = `-- name: DeleteRecipeIngredientsByRecipe :exec
DELETE FROM recipe_ingredients WHERE recipe_id = $1
`

func (q *Queries) DeleteRecipeIngredientsByRecipe(ctx context.Context, recipeID int64) error {
	_, err := q.db.Exec(ctx, deleteRecipeIngredientsByRecipe, recipeID)
	return err
}

const deleteRecipeEquipmentByRecipe = `-- name: DeleteRecipeEquipmentByRecipe :exec
DELETE FROM recipe_equipment WHERE recipe_id = $1
`

func (q *Queries) DeleteRecipeEquipmentByRecipe(ctx context.Context, recipeID int64) error {
	_, err := q.db.Exec(ctx, deleteRecipeEquipmentByRecipe, recipeID)
	return err
}

// The no-op DO UPDATE makes RETURNING yield the existing row on conflict.
const upsertIngredient = `-- name: UpsertIngredient :one
INSERT INTO ingredients (name) VALUES ($1)
ON CONFLICT (name_key) DO UPDATE SET name = ingredients.name
RETURNING id, name
`

func (q *Queries) UpsertIngredient(ctx context.Context, name string) (Ingredient, error) {
	var i Ingredient
	err := q.db.QueryRow(ctx, upsertIngredient, name).Scan(&i.ID, &i.Name)
	return i, err
}

const upsertEquipment = `-- name: UpsertEquipment :one
INSERT INTO equipment (name) VALUES ($1)
ON CONFLICT (name_key) DO UPDATE SET name = equipment.name
RETURNING id, name
`

func (q *Queries) UpsertEquipment(ctx context.Context, name string) (Equipment, error) {
	var i Equipment
	err := q.db.QueryRow(ctx, upsertEquipment, name).Scan(&i.ID, &i.Name)
	return i, err
}

const createRecipeIngredient = `-- name: CreateRecipeIngredient :one
INSERT INTO recipe_ingredients (recipe_id, ingredient_id, name, quantity, unit)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, recipe_id, ingredient_id, name, quantity, unit
`

type CreateRecipeIngredientParams struct {
	RecipeID     int64       `json:"recipe_id"`
	IngredientID int64       `json:"ingredient_id"`
	Name         string      `json:"name"`
	Quantity     pgtype.Text `json:"quantity"`
	Unit         pgtype.Text `json:"unit"`
}

func (q *Queries) CreateRecipeIngredient(ctx context.Context, arg CreateRecipeIngredientParams) (RecipeIngredient, error) {
	var i RecipeIngredient
	err := q.db.QueryRow(ctx, createRecipeIngredient,
		arg.RecipeID,
		arg.IngredientID,
		arg.Name,
		arg.Quantity,
		arg.Unit,
	).Scan(&i.ID, &i.RecipeID, &i.IngredientID, &i.Name, &i.Quantity, &i.Unit)
	return i, err
}

const createRecipeEquipment = `-- name: CreateRecipeEquipment :one
INSERT INTO recipe_equipment (recipe_id, equipment_id, name)
VALUES ($1, $2, $3)
RETURNING id, recipe_id, equipment_id, name
`

type CreateRecipeEquipmentParams struct {
	RecipeID    int64  `json:"recipe_id"`
	EquipmentID int64  `json:"equipment_id"`
	Name        string `json:"name"`
}

func (q *Queries) CreateRecipeEquipment(ctx context.Context, arg CreateRecipeEquipmentParams) (RecipeEquipment, error) {
	var i RecipeEquipment
	err := q.db.QueryRow(ctx, createRecipeEquipment, arg.RecipeID, arg.EquipmentID, arg.Name).
		Scan(&i.ID, &i.RecipeID, &i.EquipmentID, &i.Name)
	return i, err
}

const createStep = `-- name: CreateStep :one
INSERT INTO recipe_steps (recipe_id, step_number, instruction, output, dependencies)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + stepColumns

type CreateStepParams struct {
	RecipeID     int64       `json:"recipe_id"`
	StepNumber   int32       `json:"step_number"`
	Instruction  string      `json:"instruction"`
	Output       pgtype.Text `json:"output"`
	Dependencies []int32     `json:"dependencies"`
}

func (q *Queries) CreateStep(ctx context.Context, arg CreateStepParams) (RecipeStep, error) {
	deps := arg.Dependencies
	if deps == nil {
		deps = []int32{}
	}
	return scanStep(q.db.QueryRow(ctx, createStep,
		arg.RecipeID,
		arg.StepNumber,
		arg.Instruction,
		arg.Output,
		deps,
	))
}

const createStepIngredient = `-- name: CreateStepIngredient :exec
INSERT INTO step_ingredients (step_id, ingredient_id) VALUES ($1, $2)
`

type CreateStepIngredientParams struct {
	StepID             int64 `json:"step_id"`
	RecipeIngredientID int64 `json:"recipe_ingredient_id"`
}

func (q *Queries) CreateStepIngredient(ctx context.Context, arg CreateStepIngredientParams) error {
	_, err := q.db.Exec(ctx, createStepIngredient, arg.StepID, arg.RecipeIngredientID)
	return err
}

const createStepEquipment = `-- name: CreateStepEquipment :exec
INSERT INTO step_equipment (step_id, equipment_id) VALUES ($1, $2)
`

type CreateStepEquipmentParams struct {
	StepID            int64 `json:"step_id"`
	RecipeEquipmentID int64 `json:"recipe_equipment_id"`
}

func (q *Queries) CreateStepEquipment(ctx context.Context, arg CreateStepEquipmentParams) error {
	_, err := q.db.Exec(ctx, createStepEquipment, arg.StepID, arg.RecipeEquipmentID)
	return err
}

const updateStepImage = `-- name: UpdateStepImage :exec
UPDATE recipe_steps
SET image_url = $2, image_prompt = $3, image_generated_at = now()
WHERE id = $1
`

type UpdateStepImageParams struct {
	ID          int64       `json:"id"`
	ImageUrl    pgtype.Text `json:"image_url"`
	ImagePrompt pgtype.Text `json:"image_prompt"`
}

func (q *Queries) UpdateStepImage(ctx context.Context, arg UpdateStepImageParams) error {
	tag, err := q.db.Exec(ctx, updateStepImage, arg.ID, arg.ImageUrl, arg.ImagePrompt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const getRecipe = `-- name: GetRecipe :one
SELECT ` + recipeColumns + ` FROM recipes WHERE id = $1
`

func (q *Queries) GetRecipe(ctx context.Context, id int64) (Recipe, error) {
	return scanRecipe(q.db.QueryRow(ctx, getRecipe, id))
}

const getStep = `-- name: GetStep :one
SELECT ` + stepColumns + ` FROM recipe_steps WHERE id = $1
`

func (q *Queries) GetStep(ctx context.Context, id int64) (RecipeStep, error) {
	return scanStep(q.db.QueryRow(ctx, getStep, id))
}

const listRecipeIngredients = `-- name: ListRecipeIngredients :many
SELECT id, recipe_id, ingredient_id, name, quantity, unit
FROM recipe_ingredients WHERE recipe_id = $1 ORDER BY id
`

func (q *Queries) ListRecipeIngredients(ctx context.Context, recipeID int64) ([]RecipeIngredient, error) {
	rows, err := q.db.Query(ctx, listRecipeIngredients, recipeID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (RecipeIngredient, error) {
		var i RecipeIngredient
		err := row.Scan(&i.ID, &i.RecipeID, &i.IngredientID, &i.Name, &i.Quantity, &i.Unit)
		return i, err
	})
}

const listRecipeEquipment = `-- name: ListRecipeEquipment :many
SELECT id, recipe_id, equipment_id, name
FROM recipe_equipment WHERE recipe_id = $1 ORDER BY id
`

func (q *Queries) ListRecipeEquipment(ctx context.Context, recipeID int64) ([]RecipeEquipment, error) {
	rows, err := q.db.Query(ctx, listRecipeEquipment, recipeID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (RecipeEquipment, error) {
		var i RecipeEquipment
		err := row.Scan(&i.ID, &i.RecipeID, &i.EquipmentID, &i.Name)
		return i, err
	})
}

const listSteps = `-- name: ListSteps :many
SELECT ` + stepColumns + ` FROM recipe_steps WHERE recipe_id = $1 ORDER BY step_number, id
`

func (q *Queries) ListSteps(ctx context.Context, recipeID int64) ([]RecipeStep, error) {
	rows, err := q.db.Query(ctx, listSteps, recipeID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (RecipeStep, error) {
		return scanStep(row)
	})
}

const listStepIngredientLinks = `-- name: ListStepIngredientLinks :many
SELECT si.step_id, ri.id, ri.name, ri.quantity, ri.unit
FROM step_ingredients si
JOIN recipe_ingredients ri ON ri.id = si.ingredient_id
WHERE ri.recipe_id = $1
ORDER BY si.id
`

func (q *Queries) ListStepIngredientLinks(ctx context.Context, recipeID int64) ([]StepIngredientLink, error) {
	rows, err := q.db.Query(ctx, listStepIngredientLinks, recipeID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (StepIngredientLink, error) {
		var i StepIngredientLink
		err := row.Scan(&i.StepID, &i.RecipeIngredientID, &i.Name, &i.Quantity, &i.Unit)
		return i, err
	})
}

const listStepEquipmentLinks = `-- name: ListStepEquipmentLinks :many
SELECT se.step_id, re.id, re.name
FROM step_equipment se
JOIN recipe_equipment re ON re.id = se.equipment_id
WHERE re.recipe_id = $1
ORDER BY se.id
`

func (q *Queries) ListStepEquipmentLinks(ctx context.Context, recipeID int64) ([]StepEquipmentLink, error) {
	rows, err := q.db.Query(ctx, listStepEquipmentLinks, recipeID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (StepEquipmentLink, error) {
		var i StepEquipmentLink
		err := row.Scan(&i.StepID, &i.RecipeEquipmentID, &i.Name)
		return i, err
	})
}

const listRecipes = `-- name: ListRecipes :many
SELECT ` + recipeColumns + ` FROM recipes
WHERE $1::text = '' OR title ILIKE '%' || $1::text || '%' OR description ILIKE '%' || $1::text || '%'
ORDER BY id DESC
LIMIT $2 OFFSET $3
`

type ListRecipesParams struct {
	Search string `json:"search"`
	Limit  int32  `json:"limit"`
	Offset int32  `json:"offset"`
}

func (q *Queries) ListRecipes(ctx context.Context, arg ListRecipesParams) ([]Recipe, error) {
	rows, err := q.db.Query(ctx, listRecipes, arg.Search, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Recipe, error) {
		return scanRecipe(row)
	})
}

const countRecipes = `-- name: CountRecipes :one
SELECT count(*) FROM recipes
WHERE $1::text = '' OR title ILIKE '%' || $1::text || '%' OR description ILIKE '%' || $1::text || '%'
`

func (q *Queries) CountRecipes(ctx context.Context, search string) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countRecipes, search).Scan(&count)
	return count, err
}

const listIngredients = `-- name: ListIngredients :many
SELECT id, name FROM ingredients
WHERE $1::text = '' OR name ILIKE '%' || $1::text || '%'
ORDER BY name
LIMIT $2 OFFSET $3
`

type ListIngredientsParams struct {
	Search string `json:"search"`
	Limit  int32  `json:"limit"`
	Offset int32  `json:"offset"`
}

func (q *Queries) ListIngredients(ctx context.Context, arg ListIngredientsParams) ([]Ingredient, error) {
	rows, err := q.db.Query(ctx, listIngredients, arg.Search, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Ingredient, error) {
		var i Ingredient
		err := row.Scan(&i.ID, &i.Name)
		return i, err
	})
}

const countIngredients = `-- name: CountIngredients :one
SELECT count(*) FROM ingredients
WHERE $1::text = '' OR name ILIKE '%' || $1::text || '%'
`

func (q *Queries) CountIngredients(ctx context.Context, search string) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countIngredients, search).Scan(&count)
	return count, err
}
