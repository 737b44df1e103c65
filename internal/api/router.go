package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"github.com/joestump/joe-gate/internal/auth"
	"github.com/joestump/joe-gate/internal/redirect"
	"github.com/joestump/joe-gate/internal/store"
)

// Deps holds all dependencies required to build the API router.
type Deps struct {
	AuthMiddleware *auth.Middleware
	LinkStore      store.LinkStoreIface
	Resolver       *redirect.Resolver
	AllowedOrigins []string
}

// NewAPIRouter creates a chi sub-router for /api/v1. /resolve is public;
// the link routes need the admin session flag.
func NewAPIRouter(deps Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.New(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: len(deps.AllowedOrigins) > 0,
	}).Handler)
	r.Use(jsonContentType)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found", "NOT_FOUND")
	})

	r.Get("/resolve", (&resolveAPIHandler{resolver: deps.Resolver}).Resolve)

	r.Group(func(r chi.Router) {
		r.Use(deps.AuthMiddleware.RequireAdminJSON)
		registerLinkRoutes(r, deps.LinkStore)
	})

	return r
}

// jsonContentType is a middleware that sets Content-Type: application/json on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
