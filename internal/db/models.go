package db

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Recipe struct {
	ID          int64              `json:"id"`
	Title       string             `json:"title"`
	Description pgtype.Text        `json:"description"`
	PrepTime    pgtype.Text        `json:"prep_time"`
	CookTime    pgtype.Text        `json:"cook_time"`
	Servings    int32              `json:"servings"`
	CreatedAt   pgtype.Timestamptz `json:"created_at"`
	UpdatedAt   pgtype.Timestamptz `json:"updated_at"`
}

type Ingredient struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Equipment struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type RecipeIngredient struct {
	ID           int64       `json:"id"`
	RecipeID     int64       `json:"recipe_id"`
	IngredientID int64       `json:"ingredient_id"`
	Name         string      `json:"name"`
	Quantity     pgtype.Text `json:"quantity"`
	Unit         pgtype.Text `json:"unit"`
}

type RecipeEquipment struct {
	ID          int64  `json:"id"`
	RecipeID    int64  `json:"recipe_id"`
	EquipmentID int64  `json:"equipment_id"`
	Name        string `json:"name"`
}

type RecipeStep struct {
	ID               int64              `json:"id"`
	RecipeID         int64              `json:"recipe_id"`
	StepNumber       int32              `json:"step_number"`
	Instruction      string             `json:"instruction"`
	Output           pgtype.Text        `json:"output"`
	Dependencies     []int32            `json:"dependencies"`
	ImageUrl         pgtype.Text        `json:"image_url"`
	ImagePrompt      pgtype.Text        `json:"image_prompt"`
	ImageGeneratedAt pgtype.Timestamptz `json:"image_generated_at"`
}

// StepIngredientLink is a step_ingredients row joined with the recipe ingredient it points at.
type StepIngredientLink struct {
	StepID             int64       `json:"step_id"`
	RecipeIngredientID int64       `json:"recipe_ingredient_id"`
	Name               string      `json:"name"`
	Quantity           pgtype.Text `json:"quantity"`
	Unit               pgtype.Text `json:"unit"`
}

// StepEquipmentLink is a step_equipment row joined with the recipe equipment it points at.
type StepEquipmentLink struct {
	StepID            int64  `json:"step_id"`
	RecipeEquipmentID int64  `json:"recipe_equipment_id"`
	Name              string `json:"name"`
}
