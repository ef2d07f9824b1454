package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/people-service/app"
	"github.com/upb/people-service/handlers"
	"github.com/upb/people-service/models"
	"github.com/upb/people-service/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(corsOptions(deps.Config.CORS.AllowedOrigins)))

	checks := map[string]handlers.ReadinessCheck{}
	if deps.DB != nil {
		checks["database"] = deps.DB.HealthCheck
	}
	health := handlers.NewHealthHandler(deps.Logger, checks)
	peopleHandler := handlers.NewPeopleHandler(deps.People, deps.Logger)

	// Health check endpoints
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	r.Route("/people", func(r chi.Router) {
		// Jury list requires a verified caller in the proposers group
		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Use(deps.AuthMiddleware.RequireGroup(models.GroupProposers))
			r.Get("/jury-members", peopleHandler.HandleListJuryMembers)
		})

		// Service-to-service lookups; network policy restricts who reaches them
		r.Route("/internal/users", func(r chi.Router) {
			r.Post("/bulk", peopleHandler.HandleBulkGetUsers)
			r.Get("/{user_id}", peopleHandler.HandleGetUser)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	return r
}

// corsOptions allows credentials only when the origins are listed explicitly
func corsOptions(origins []string) cors.Options {
	wildcard := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			wildcard = true
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: !wildcard,
		MaxAge:           300,
	}
}
