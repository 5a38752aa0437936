package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/riandyrn/otelchi"
	otelchimetric "github.com/riandyrn/otelchi/metric"
	"go.opentelemetry.io/otel"

	"github.com/socialchef/sizzle/internal/middleware"
	"github.com/socialchef/sizzle/internal/sentry"
)

// NewRouter mounts the API on a chi router. Reads are public; writes need a
// Supabase access token.
func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()

	r.Use(otelchi.Middleware(s.cfg.ServiceName,
		otelchi.WithChiRoutes(r),
		otelchi.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health"
		}),
	))

	metricCfg := otelchimetric.NewBaseConfig(s.cfg.ServiceName, otelchimetric.WithMeterProvider(otel.GetMeterProvider()))
	r.Use(otelchimetric.NewRequestDurationMillis(metricCfg))
	r.Use(otelchimetric.NewRequestInFlight(metricCfg))
	r.Use(otelchimetric.NewResponseSizeBytes(metricCfg))

	r.Use(chimiddleware.RequestID)
	r.Use(sentry.HTTPMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.HandleHealth)
	r.Get("/api-status", s.HandleAPIStatus)

	r.Route("/api", func(r chi.Router) {
		r.Get("/recipes", s.HandleListRecipes)
		r.Get("/recipes/{id}", s.HandleGetRecipe)
		r.Get("/ingredients", s.HandleListIngredients)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(s.cfg))
			r.Post("/recipes/parse", s.HandleParseRecipe)
			r.Post("/recipes", s.HandleSaveRecipe)
			r.Post("/recipes/{id}/images", s.HandleGenerateImages)
		})
	})

	return r
}
