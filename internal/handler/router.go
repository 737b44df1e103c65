package handler

import (
	"io/fs"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joestump/joe-gate/internal/api"
	"github.com/joestump/joe-gate/internal/auth"
	"github.com/joestump/joe-gate/internal/logging"
	"github.com/joestump/joe-gate/internal/redirect"
	"github.com/joestump/joe-gate/internal/store"
	"github.com/joestump/joe-gate/web"
)

// Deps holds all dependencies required to build the HTTP router.
type Deps struct {
	SessionManager *scs.SessionManager
	Verifier       auth.Verifier
	LinkStore      store.LinkStoreIface
	Resolver       *redirect.Resolver
	Gate           GateOptions
	Clock          clockwork.Clock
	AllowedOrigins []string
}

// NewRouter assembles the full chi router with all middleware and routes.
func NewRouter(deps Deps) http.Handler {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(logging.Middleware()...)
	r.Use(middleware.Recoverer)

	// Static assets (embedded). Use fs.Sub so the file server sees
	// css/app.css and js/gate.js directly, not static/css/... paths.
	staticSub, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		panic("failed to sub static FS: " + err.Error())
	}
	r.Handle("/static/*", http.StripPrefix("/static", http.FileServerFS(staticSub)))
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})

	// Everything below reads or writes the session.
	r.Group(func(r chi.Router) {
		r.Use(deps.SessionManager.LoadAndSave)

		flag := auth.NewScsFlag(deps.SessionManager)
		authMW := auth.NewMiddleware(flag)
		authHandlers := auth.NewHandlers(deps.Verifier, flag)

		gateHandler := NewGateHandler(deps.SessionManager, flag, deps.Resolver, deps.Gate, deps.Clock)
		r.Get("/", gateHandler.Index)
		r.Get("/gate", gateHandler.State)
		r.Post("/gate/advance", gateHandler.Advance)
		r.Post("/gate/claim", gateHandler.Claim)

		admin := NewAdminHandler(deps.SessionManager, flag, deps.LinkStore, deps.Resolver)
		r.Get("/admin/login", admin.LoginForm)
		r.Post("/admin/login", authHandlers.Login)
		r.Post("/admin/logout", authHandlers.Logout)

		r.Group(func(r chi.Router) {
			r.Use(authMW.RequireAdmin)
			r.Get("/admin", admin.Index)
			r.Post("/admin/links", admin.Create)
			r.Post("/admin/links/clear", admin.Clear)
			r.Get("/admin/links/{id}/edit", admin.Edit)
			r.Post("/admin/links/{id}", admin.Update)
			r.Post("/admin/links/{id}/delete", admin.Delete)
		})

		r.Mount("/api/v1", api.NewAPIRouter(api.Deps{
			AuthMiddleware: authMW,
			LinkStore:      deps.LinkStore,
			Resolver:       deps.Resolver,
			AllowedOrigins: deps.AllowedOrigins,
		}))

		// Any other GET lands on the gate, like a single-page app fallback.
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				http.NotFound(w, r)
				return
			}
			gateHandler.Index(w, r)
		})
	})

	return r
}
