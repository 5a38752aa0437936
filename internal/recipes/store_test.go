package recipes

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/socialchef/sizzle/internal/db"
)

// memoryStore is a map-backed Store. ExecTx restores a snapshot when fn fails.
type memoryStore struct {
	mu sync.Mutex
	memoryState

	failOn map[string]error
}

type memoryState struct {
	nextID            int64
	recipes           map[int64]db.Recipe
	ingredients       map[int64]db.Ingredient
	equipment         map[int64]db.Equipment
	recipeIngredients map[int64]db.RecipeIngredient
	recipeEquipment   map[int64]db.RecipeEquipment
	steps             map[int64]db.RecipeStep
	stepIngredients   []db.CreateStepIngredientParams
	stepEquipment     []db.CreateStepEquipmentParams
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		memoryState: memoryState{
			recipes:           map[int64]db.Recipe{},
			ingredients:       map[int64]db.Ingredient{},
			equipment:         map[int64]db.Equipment{},
			recipeIngredients: map[int64]db.RecipeIngredient{},
			recipeEquipment:   map[int64]db.RecipeEquipment{},
			steps:             map[int64]db.RecipeStep{},
		},
		failOn: map[string]error{},
	}
}

func (s memoryState) clone() memoryState {
	return memoryState{
		nextID:            s.nextID,
		recipes:           maps.Clone(s.recipes),
		ingredients:       maps.Clone(s.ingredients),
		equipment:         maps.Clone(s.equipment),
		recipeIngredients: maps.Clone(s.recipeIngredients),
		recipeEquipment:   maps.Clone(s.recipeEquipment),
		steps:             maps.Clone(s.steps),
		stepIngredients:   slices.Clone(s.stepIngredients),
		stepEquipment:     slices.Clone(s.stepEquipment),
	}
}

func (m *memoryStore) ExecTx(ctx context.Context, fn func(db.Querier) error) error {
	m.mu.Lock()
	snapshot := m.memoryState.clone()
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.memoryState = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memoryStore) fail(op string) error {
	return m.failOn[op]
}

func (m *memoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memoryStore) FindRecipeByTitle(_ context.Context, title string) (db.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("FindRecipeByTitle"); err != nil {
		return db.Recipe{}, err
	}
	for _, id := range sortedKeys(m.recipes) {
		if strings.EqualFold(m.recipes[id].Title, title) {
			return m.recipes[id], nil
		}
	}
	return db.Recipe{}, pgx.ErrNoRows
}

func (m *memoryStore) CreateRecipe(_ context.Context, arg db.CreateRecipeParams) (db.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateRecipe"); err != nil {
		return db.Recipe{}, err
	}
	r := db.Recipe{
		ID:          m.id(),
		Title:       arg.Title,
		Description: arg.Description,
		PrepTime:    arg.PrepTime,
		CookTime:    arg.CookTime,
		Servings:    arg.Servings,
	}
	m.recipes[r.ID] = r
	return r, nil
}

func (m *memoryStore) UpdateRecipe(_ context.Context, arg db.UpdateRecipeParams) (db.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateRecipe"); err != nil {
		return db.Recipe{}, err
	}
	r, ok := m.recipes[arg.ID]
	if !ok {
		return db.Recipe{}, pgx.ErrNoRows
	}
	r.Title, r.Description, r.PrepTime, r.CookTime, r.Servings = arg.Title, arg.Description, arg.PrepTime, arg.CookTime, arg.Servings
	m.recipes[r.ID] = r
	return r, nil
}

func (m *memoryStore) stepIDs(recipeID int64) map[int64]bool {
	ids := map[int64]bool{}
	for id, st := range m.steps {
		if st.RecipeID == recipeID {
			ids[id] = true
		}
	}
	return ids
}

func (m *memoryStore) DeleteStepIngredientsByRecipe(_ context.Context, recipeID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.stepIDs(recipeID)
	m.stepIngredients = slices.DeleteFunc(m.stepIngredients, func(p db.CreateStepIngredientParams) bool { return ids[p.StepID] })
	return nil
}

func (m *memoryStore) DeleteStepEquipmentByRecipe(_ context.Context, recipeID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.stepIDs(recipeID)
	m.stepEquipment = slices.DeleteFunc(m.stepEquipment, func(p db.CreateStepEquipmentParams) bool { return ids[p.StepID] })
	return nil
}

func (m *memoryStore) DeleteStepsByRecipe(_ context.Context, recipeID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	maps.DeleteFunc(m.steps, func(_ int64, st db.RecipeStep) bool { return st.RecipeID == recipeID })
	return nil
}

func (m *memoryStore) DeleteRecipeIngredientsByRecipe(_ context.Context, recipeID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	maps.DeleteFunc(m.recipeIngredients, func(_ int64, ri db.RecipeIngredient) bool { return ri.RecipeID == recipeID })
	return nil
}

func (m *memoryStore) DeleteRecipeEquipmentByRecipe(_ context.Context, recipeID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	maps.DeleteFunc(m.recipeEquipment, func(_ int64, re db.RecipeEquipment) bool { return re.RecipeID == recipeID })
	return nil
}

func (m *memoryStore) UpsertIngredient(_ context.Context, name string) (db.Ingredient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpsertIngredient"); err != nil {
		return db.Ingredient{}, err
	}
	for _, i := range m.ingredients {
		if strings.EqualFold(i.Name, name) {
			return i, nil
		}
	}
	i := db.Ingredient{ID: m.id(), Name: name}
	m.ingredients[i.ID] = i
	return i, nil
}

func (m *memoryStore) UpsertEquipment(_ context.Context, name string) (db.Equipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.equipment {
		if strings.EqualFold(e.Name, name) {
			return e, nil
		}
	}
	e := db.Equipment{ID: m.id(), Name: name}
	m.equipment[e.ID] = e
	return e, nil
}

func (m *memoryStore) CreateRecipeIngredient(_ context.Context, arg db.CreateRecipeIngredientParams) (db.RecipeIngredient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ri := db.RecipeIngredient{
		ID:           m.id(),
		RecipeID:     arg.RecipeID,
		IngredientID: arg.IngredientID,
		Name:         arg.Name,
		Quantity:     arg.Quantity,
		Unit:         arg.Unit,
	}
	m.recipeIngredients[ri.ID] = ri
	return ri, nil
}

func (m *memoryStore) CreateRecipeEquipment(_ context.Context, arg db.CreateRecipeEquipmentParams) (db.RecipeEquipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	re := db.RecipeEquipment{ID: m.id(), RecipeID: arg.RecipeID, EquipmentID: arg.EquipmentID, Name: arg.Name}
	m.recipeEquipment[re.ID] = re
	return re, nil
}

func (m *memoryStore) CreateStep(_ context.Context, arg db.CreateStepParams) (db.RecipeStep, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateStep"); err != nil {
		return db.RecipeStep{}, err
	}
	st := db.RecipeStep{
		ID:           m.id(),
		RecipeID:     arg.RecipeID,
		StepNumber:   arg.StepNumber,
		Instruction:  arg.Instruction,
		Output:       arg.Output,
		Dependencies: arg.Dependencies,
	}
	m.steps[st.ID] = st
	return st, nil
}

func (m *memoryStore) CreateStepIngredient(_ context.Context, arg db.CreateStepIngredientParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recipeIngredients[arg.RecipeIngredientID]; !ok {
		return fmt.Errorf("foreign key violation: recipe_ingredients %d", arg.RecipeIngredientID)
	}
	m.stepIngredients = append(m.stepIngredients, arg)
	return nil
}

func (m *memoryStore) CreateStepEquipment(_ context.Context, arg db.CreateStepEquipmentParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recipeEquipment[arg.RecipeEquipmentID]; !ok {
		return fmt.Errorf("foreign key violation: recipe_equipment %d", arg.RecipeEquipmentID)
	}
	m.stepEquipment = append(m.stepEquipment, arg)
	return nil
}

func (m *memoryStore) UpdateStepImage(_ context.Context, arg db.UpdateStepImageParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateStepImage"); err != nil {
		return err
	}
	st, ok := m.steps[arg.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	st.ImageUrl, st.ImagePrompt = arg.ImageUrl, arg.ImagePrompt
	st.ImageGeneratedAt.Valid = true
	m.steps[st.ID] = st
	return nil
}

func (m *memoryStore) GetRecipe(_ context.Context, id int64) (db.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recipes[id]
	if !ok {
		return db.Recipe{}, pgx.ErrNoRows
	}
	return r, nil
}

func (m *memoryStore) GetStep(_ context.Context, id int64) (db.RecipeStep, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.steps[id]
	if !ok {
		return db.RecipeStep{}, pgx.ErrNoRows
	}
	return st, nil
}

func (m *memoryStore) ListRecipeIngredients(_ context.Context, recipeID int64) ([]db.RecipeIngredient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.RecipeIngredient
	for _, id := range sortedKeys(m.recipeIngredients) {
		if ri := m.recipeIngredients[id]; ri.RecipeID == recipeID {
			out = append(out, ri)
		}
	}
	return out, nil
}

func (m *memoryStore) ListRecipeEquipment(_ context.Context, recipeID int64) ([]db.RecipeEquipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.RecipeEquipment
	for _, id := range sortedKeys(m.recipeEquipment) {
		if re := m.recipeEquipment[id]; re.RecipeID == recipeID {
			out = append(out, re)
		}
	}
	return out, nil
}

func (m *memoryStore) ListSteps(_ context.Context, recipeID int64) ([]db.RecipeStep, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.RecipeStep
	for _, st := range m.steps {
		if st.RecipeID == recipeID {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StepNumber != out[j].StepNumber {
			return out[i].StepNumber < out[j].StepNumber
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memoryStore) ListStepIngredientLinks(_ context.Context, recipeID int64) ([]db.StepIngredientLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.StepIngredientLink
	for _, p := range m.stepIngredients {
		ri := m.recipeIngredients[p.RecipeIngredientID]
		if ri.RecipeID == recipeID {
			out = append(out, db.StepIngredientLink{
				StepID:             p.StepID,
				RecipeIngredientID: ri.ID,
				Name:               ri.Name,
				Quantity:           ri.Quantity,
				Unit:               ri.Unit,
			})
		}
	}
	return out, nil
}

func (m *memoryStore) ListStepEquipmentLinks(_ context.Context, recipeID int64) ([]db.StepEquipmentLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.StepEquipmentLink
	for _, p := range m.stepEquipment {
		re := m.recipeEquipment[p.RecipeEquipmentID]
		if re.RecipeID == recipeID {
			out = append(out, db.StepEquipmentLink{StepID: p.StepID, RecipeEquipmentID: re.ID, Name: re.Name})
		}
	}
	return out, nil
}

func (m *memoryStore) ListRecipes(_ context.Context, arg db.ListRecipesParams) ([]db.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ListRecipes"); err != nil {
		return nil, err
	}
	matches := m.matchingRecipes(arg.Search)
	return page(matches, arg.Limit, arg.Offset), nil
}

func (m *memoryStore) CountRecipes(_ context.Context, search string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.matchingRecipes(search))), nil
}

func (m *memoryStore) matchingRecipes(search string) []db.Recipe {
	ids := sortedKeys(m.recipes)
	slices.Reverse(ids)
	var out []db.Recipe
	needle := strings.ToLower(search)
	for _, id := range ids {
		r := m.recipes[id]
		if needle == "" || strings.Contains(strings.ToLower(r.Title), needle) || strings.Contains(strings.ToLower(r.Description.String), needle) {
			out = append(out, r)
		}
	}
	return out
}

func (m *memoryStore) ListIngredients(_ context.Context, arg db.ListIngredientsParams) ([]db.Ingredient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.Ingredient
	for _, i := range m.ingredients {
		if arg.Search == "" || strings.Contains(strings.ToLower(i.Name), strings.ToLower(arg.Search)) {
			out = append(out, i)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return page(out, arg.Limit, arg.Offset), nil
}

func (m *memoryStore) CountIngredients(ctx context.Context, search string) (int64, error) {
	rows, err := m.ListIngredients(ctx, db.ListIngredientsParams{Search: search, Limit: 1 << 30})
	return int64(len(rows)), err
}

// counts returns the number of rows owned by recipeID in each child table.
func (m *memoryStore) counts(recipeID int64) (ingredients, equipment, steps, stepIngredients, stepEquipment int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ri := range m.recipeIngredients {
		if ri.RecipeID == recipeID {
			ingredients++
		}
	}
	for _, re := range m.recipeEquipment {
		if re.RecipeID == recipeID {
			equipment++
		}
	}
	ids := m.stepIDs(recipeID)
	steps = len(ids)
	for _, p := range m.stepIngredients {
		if ids[p.StepID] {
			stepIngredients++
		}
	}
	for _, p := range m.stepEquipment {
		if ids[p.StepID] {
			stepEquipment++
		}
	}
	return
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := slices.Collect(maps.Keys(m))
	slices.Sort(keys)
	return keys
}

func page[T any](rows []T, limit, offset int32) []T {
	if int(offset) >= len(rows) {
		return nil
	}
	rows = rows[offset:]
	if int(limit) < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

var errBoom = errors.New("connection reset by peer")

var _ Store = (*memoryStore)(nil)
