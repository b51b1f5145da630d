package routes

import (
	"net/http"

	"github.com/fludio/fludiobe/app"
	"github.com/fludio/fludiobe/handlers"
	"github.com/fludio/fludiobe/internal/observability"
	"github.com/fludio/fludiobe/internal/policy"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()
	cfg := deps.Config

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.GetHead)
	if cfg.Server.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	}
	if cfg.Server.MaxBodyBytes > 0 {
		r.Use(middleware.RequestSize(cfg.Server.MaxBodyBytes))
	}

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	root := handlers.NewRootHandler()
	r.NotFound(root.HandleNotFound)
	r.MethodNotAllowed(root.HandleMethodNotAllowed)

	// Health check endpoints
	// A nil *postgres.DB must not reach the interface as a typed nil
	health := handlers.NewHealthHandler(nil, deps.Logger)
	if deps.DB != nil {
		health = handlers.NewHealthHandler(deps.DB, deps.Logger)
	}
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	r.Get("/", root.HandleRedirect)

	authHandler := handlers.NewAuthHandler(deps.Accounts, deps.Logger)
	simStateHandler := handlers.NewSimStateHandler(deps.SimStateService, deps.Logger)
	noteHandler := handlers.NewNoteHandler(deps.NoteService, deps.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/", root.HandleIndex)

		// Credential exchange endpoints take no bearer token
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register/", authHandler.HandleRegister)
			r.Post("/token/", authHandler.HandleObtainToken)
			r.Post("/token/refresh/", authHandler.HandleRefreshToken)

			r.With(deps.AuthMiddleware.Authenticate, deps.AuthMiddleware.RequireAuth).
				Get("/user/", authHandler.HandleCurrentUser)
		})

		// Simulation states (owner or superuser)
		r.Route("/simstates", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.Authenticate)
			r.Use(deps.PolicyMiddleware.Authorize(policy.Authenticated, policy.KindSimState))
			r.Get("/", simStateHandler.HandleList)
			r.Post("/", simStateHandler.HandleCreate)
			r.Get("/{id}/", simStateHandler.HandleGet)
			r.Put("/{id}/", simStateHandler.HandleUpdate)
			r.Patch("/{id}/", simStateHandler.HandleUpdate)
			r.Delete("/{id}/", simStateHandler.HandleDelete)
		})

		// Notes (reads open, writes superuser)
		r.Route("/notes", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.Authenticate)
			r.Use(deps.PolicyMiddleware.Authorize(policy.SuperuserOrReadOnly, policy.KindNote))
			r.Get("/", noteHandler.HandleList)
			r.Post("/", noteHandler.HandleCreate)
			r.Get("/{id}/", noteHandler.HandleGet)
			r.Put("/{id}/", noteHandler.HandleUpdate)
			r.Patch("/{id}/", noteHandler.HandleUpdate)
			r.Delete("/{id}/", noteHandler.HandleDelete)
		})
	})

	return r
}
