package recipes

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// DefaultServings is used when a recipe does not say how many it serves.
const DefaultServings = 4

// Recipe is a structured recipe as produced by the LLM or posted by a client.
// Servings, step numbers and dependencies are stored as int4; the validate
// bounds keep them far inside that range.
type Recipe struct {
	Title       string       `json:"title" validate:"required,max=500"`
	Description string       `json:"description,omitempty"`
	PrepTime    FlexString   `json:"prep_time,omitempty"`
	CookTime    FlexString   `json:"cook_time,omitempty"`
	Servings    int          `json:"servings,omitempty" validate:"gte=0,lte=1000"`
	Ingredients []Ingredient `json:"ingredients" validate:"dive"`
	Equipment   []Equipment  `json:"equipment" validate:"dive"`
	Steps       []Step       `json:"steps" validate:"dive"`
}

type Ingredient struct {
	Name     string     `json:"name"`
	Quantity FlexString `json:"quantity,omitempty"`
	Unit     string     `json:"unit,omitempty"`
}

type Equipment struct {
	Name string `json:"name"`
}

// StepIngredient names an ingredient of the recipe used in a step.
type StepIngredient struct {
	Name     string     `json:"name"`
	Quantity FlexString `json:"quantity,omitempty"`
}

type Step struct {
	StepNumber   int              `json:"step_number" validate:"gte=0,lte=1000"`
	Instruction  string           `json:"instruction"`
	Output       string           `json:"output,omitempty"`
	Dependencies []int            `json:"dependencies,omitempty" validate:"dive,gte=0,lte=1000"`
	Ingredients  []StepIngredient `json:"ingredients"`
	Equipment    []Equipment      `json:"equipment"`
}

// UnmarshalJSON accepts the camelCase time keys and string servings that
// LLM output tends to contain. Unparseable servings fall back to the default.
func (r *Recipe) UnmarshalJSON(data []byte) error {
	type plain Recipe
	aux := struct {
		*plain
		PrepTimeCamel FlexString      `json:"prepTime"`
		CookTimeCamel FlexString      `json:"cookTime"`
		Servings      json.RawMessage `json:"servings"`
	}{plain: (*plain)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if r.PrepTime == "" {
		r.PrepTime = aux.PrepTimeCamel
	}
	if r.CookTime == "" {
		r.CookTime = aux.CookTimeCamel
	}
	r.Servings = parseServings(aux.Servings)
	return nil
}

func parseServings(raw json.RawMessage) int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(n)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return v
		}
	}
	return DefaultServings
}

// UnmarshalJSON accepts "id" as an alias for step_number.
func (s *Step) UnmarshalJSON(data []byte) error {
	type plain Step
	aux := struct {
		*plain
		ID *int `json:"id"`
	}{plain: (*plain)(s)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if s.StepNumber == 0 && aux.ID != nil {
		s.StepNumber = *aux.ID
	}
	return nil
}

// FlexString holds a free-text value that may arrive as a JSON number.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string {
	return string(f)
}
