package auth

import (
	"encoding/json"
	"net/http"
)

// Middleware guards admin routes on the session flag.
type Middleware struct {
	flag SessionStore
}

// NewMiddleware creates a new auth Middleware.
func NewMiddleware(flag SessionStore) *Middleware {
	return &Middleware{flag: flag}
}

// RequireAdmin redirects to / when the admin flag is not set. The check
// happens once on entry.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.flag.IsAdmin(r.Context()) {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdminJSON is RequireAdmin for API routes: it answers 401 with
// {"error","code"} instead of redirecting.
func (m *Middleware) RequireAdminJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.flag.IsAdmin(r.Context()) {
			writeUnauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "admin session required", "code": "UNAUTHORIZED"})
}
