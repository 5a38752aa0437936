package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/socialchef/sizzle/internal/config"
	"github.com/socialchef/sizzle/internal/db"
	apperrors "github.com/socialchef/sizzle/internal/errors"
	"github.com/socialchef/sizzle/internal/recipes"
	"github.com/socialchef/sizzle/internal/services/recipe"
	"github.com/socialchef/sizzle/internal/validation"
	"github.com/socialchef/sizzle/internal/worker"
)

// RecipeService is the recipe persistence surface the handlers use.
type RecipeService interface {
	SaveRecipe(ctx context.Context, r *recipes.Recipe, autoGenerateImages bool) (int64, error)
	ListRecipes(ctx context.Context, search string, limit, offset int) ([]db.Recipe, int64, error)
	GetRecipe(ctx context.Context, id int64) (*recipes.RecipeDetail, error)
	ListIngredients(ctx context.Context, search string, limit, offset int) ([]db.Ingredient, int64, error)
	GenerateAllStepImages(ctx context.Context, recipeID int64, checkExisting bool) ([]*worker.Handle, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	cfg      *config.Config
	recipes  RecipeService
	provider recipe.RecipeProvider
	db       Pinger

	queryChecker    validation.Chatter
	queryValidation validation.QueryValidationConfig
	maxWait         time.Duration
}

type Option func(*Server)

// WithQueryChecker enables model-backed validation of borderline parse queries.
func WithQueryChecker(chatter validation.Chatter, model string) Option {
	return func(s *Server) {
		s.queryChecker = chatter
		s.queryValidation.EnableAIValidation = chatter != nil
		s.queryValidation.ValidationModel = model
	}
}

func NewServer(cfg *config.Config, svc RecipeService, provider recipe.RecipeProvider, pinger Pinger, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		recipes:  svc,
		provider: provider,
		db:       pinger,
		maxWait:  cfg.Dispatcher.WaitTimeout,
	}
	if s.maxWait <= 0 {
		s.maxWait = 5 * time.Minute
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrorResponse is the JSON body of every non-2xx answer.
type ErrorResponse struct {
	Error    string `json:"error"`
	Type     string `json:"type,omitempty"`
	Code     string `json:"code,omitempty"`
	Recovery string `json:"recovery,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}

// writeError maps AppErrors to their status code. Anything else is a 500
// with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		slog.ErrorContext(r.Context(), "Unhandled error", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Type: string(apperrors.ErrorTypeInternal)})
		return
	}

	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if status >= 500 {
		slog.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "code", appErr.Code(), "error", err)
	}

	msg := appErr.Message
	if !appErr.IsOperational {
		msg = "internal server error"
	}
	writeJSON(w, status, ErrorResponse{
		Error:    msg,
		Type:     string(appErr.Type),
		Code:     appErr.Code(),
		Recovery: appErr.RecoverySuggestion(),
	})
}

func badRequest(w http.ResponseWriter, r *http.Request, msg, code string) {
	writeError(w, r, apperrors.NewValidationError(msg, code, ""))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		badRequest(w, r, "invalid request body: "+err.Error(), "INVALID_BODY")
		return false
	}
	return true
}

// queryBool reads a boolean query parameter, falling back to def when absent
// or unparseable.
func queryBool(r *http.Request, key string, def bool) bool {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}
