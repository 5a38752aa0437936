package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/socialchef/sizzle/internal/db"
	"github.com/socialchef/sizzle/internal/middleware"
	"github.com/socialchef/sizzle/internal/recipes"
	"github.com/socialchef/sizzle/internal/validation"
	"github.com/socialchef/sizzle/internal/worker"
)

type ParseRecipeRequest struct {
	Query              string `json:"query" validate:"required"`
	Save               *bool  `json:"save,omitempty"`
	AutoGenerateImages *bool  `json:"auto_generate_images,omitempty"`
}

type ParseRecipeResponse struct {
	Recipe   *recipes.Recipe                   `json:"recipe"`
	RecipeID int64                             `json:"recipe_id,omitempty"`
	Quality  validation.RecipeValidationResult `json:"quality"`
}

// HandleParseRecipe generates a structured recipe from a free-text query and,
// unless save is false, stores it and starts step image generation.
func (s *Server) HandleParseRecipe(w http.ResponseWriter, r *http.Request) {
	var req ParseRecipeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		badRequest(w, r, "query is required", "QUERY_REQUIRED")
		return
	}

	check, err := validation.ValidateQuery(r.Context(), req.Query, s.queryValidation, s.queryChecker)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !check.IsValid {
		badRequest(w, r, check.Reason, "QUERY_REJECTED")
		return
	}

	generated, err := s.provider.GenerateRecipe(r.Context(), req.Query)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := ParseRecipeResponse{
		Recipe:  generated,
		Quality: validation.ValidateRecipe(generated, validation.DefaultRecipeValidationConfig()),
	}
	if !resp.Quality.IsValid {
		slog.WarnContext(r.Context(), "Generated recipe failed quality checks",
			"title", generated.Title,
			"score", resp.Quality.QualityScore,
			"issues", resp.Quality.Issues)
	}

	if req.Save == nil || *req.Save {
		autoImages := req.AutoGenerateImages == nil || *req.AutoGenerateImages
		id, err := s.recipes.SaveRecipe(r.Context(), generated, autoImages)
		if err != nil {
			writeError(w, r, err)
			return
		}
		resp.RecipeID = id
		userID, _ := middleware.GetUserID(r.Context())
		slog.InfoContext(r.Context(), "Generated recipe saved", "recipe_id", id, "user_id", userID)
	}

	writeJSON(w, http.StatusOK, resp)
}

type SaveRecipeResponse struct {
	RecipeID int64 `json:"recipe_id"`
}

// HandleSaveRecipe stores the posted recipe, replacing any recipe with the
// same title.
func (s *Server) HandleSaveRecipe(w http.ResponseWriter, r *http.Request) {
	var body recipes.Recipe
	if !decodeJSON(w, r, &body) {
		return
	}

	id, err := s.recipes.SaveRecipe(r.Context(), &body, queryBool(r, "auto_generate_images", true))
	if err != nil {
		writeError(w, r, err)
		return
	}
	userID, _ := middleware.GetUserID(r.Context())
	slog.InfoContext(r.Context(), "Recipe saved via API", "recipe_id", id, "user_id", userID)
	writeJSON(w, http.StatusCreated, SaveRecipeResponse{RecipeID: id})
}

type ListResponse[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

func listResponse[T any](items []T, total int64, limit, offset int) ListResponse[T] {
	l, o := recipes.Page(limit, offset)
	return ListResponse[T]{Items: items, Total: total, Limit: int(l), Offset: int(o)}
}

func (s *Server) HandleListRecipes(w http.ResponseWriter, r *http.Request) {
	limit, offset := queryInt(r, "limit"), queryInt(r, "offset")
	rows, total, err := s.recipes.ListRecipes(r.Context(), r.URL.Query().Get("search"), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[db.Recipe](rows, total, limit, offset))
}

func (s *Server) HandleGetRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := recipeID(w, r)
	if !ok {
		return
	}
	detail, err := s.recipes.GetRecipe(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) HandleListIngredients(w http.ResponseWriter, r *http.Request) {
	limit, offset := queryInt(r, "limit"), queryInt(r, "offset")
	rows, total, err := s.recipes.ListIngredients(r.Context(), r.URL.Query().Get("search"), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[db.Ingredient](rows, total, limit, offset))
}

type GenerateImagesRequest struct {
	CheckExisting *bool `json:"check_existing,omitempty"`
	WaitSeconds   int   `json:"wait_seconds" validate:"gte=0"`
}

type DispatchedImage struct {
	HandleID string `json:"handle_id"`
	StepID   int64  `json:"step_id"`
}

type GenerateImagesResponse struct {
	RecipeID   int64             `json:"recipe_id"`
	Dispatched []DispatchedImage `json:"dispatched"`
	Results    []worker.Result   `json:"results,omitempty"`
}

// HandleGenerateImages dispatches an image job for every step of a stored
// recipe. With wait_seconds > 0 it blocks until each job finishes or the
// wait (capped by the dispatcher wait timeout) elapses.
func (s *Server) HandleGenerateImages(w http.ResponseWriter, r *http.Request) {
	id, ok := recipeID(w, r)
	if !ok {
		return
	}

	var req GenerateImagesRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		badRequest(w, r, "wait_seconds must not be negative", "INVALID_WAIT")
		return
	}

	checkExisting := req.CheckExisting == nil || *req.CheckExisting
	handles, err := s.recipes.GenerateAllStepImages(r.Context(), id, checkExisting)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := GenerateImagesResponse{RecipeID: id, Dispatched: make([]DispatchedImage, 0, len(handles))}
	for _, h := range handles {
		resp.Dispatched = append(resp.Dispatched, DispatchedImage{HandleID: h.ID, StepID: h.StepID})
	}

	status := http.StatusAccepted
	if req.WaitSeconds > 0 {
		wait := s.maxWait
		if req.WaitSeconds < int(s.maxWait/time.Second) {
			wait = time.Duration(req.WaitSeconds) * time.Second
		}
		resp.Results = worker.WaitForAllImages(handles, wait)
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

func recipeID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(w, r, "invalid recipe id", "INVALID_RECIPE_ID")
		return 0, false
	}
	return id, true
}
