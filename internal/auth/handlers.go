package auth

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"

	"github.com/joestump/joe-gate/internal/metrics"
)

// Handlers provides the admin login and logout endpoints. The login form
// itself is rendered by the web handlers.
type Handlers struct {
	verifier Verifier
	flag     SessionStore
}

// NewHandlers creates a new Handlers with the given dependencies.
func NewHandlers(v Verifier, flag SessionStore) *Handlers {
	return &Handlers{verifier: v, flag: flag}
}

// Login checks the submitted credentials. On success it sets the admin flag
// and redirects to /admin; otherwise it sends the visitor back to the form.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	creds := Credentials{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
	}
	if !h.verifier.Verify(r.Context(), creds) {
		metrics.AdminLoginsTotal.WithLabelValues("rejected").Inc()
		hlog.FromRequest(r).Warn().Str("username", creds.Username).Msg("admin login rejected")
		http.Redirect(w, r, "/admin/login?error=invalid", http.StatusSeeOther)
		return
	}
	if err := h.flag.SetAdmin(r.Context(), true); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("set admin flag")
		http.Error(w, "session error", http.StatusInternalServerError)
		return
	}
	metrics.AdminLoginsTotal.WithLabelValues("accepted").Inc()
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// Logout clears the admin flag and returns to the gate.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.flag.SetAdmin(r.Context(), false); err != nil {
		http.Error(w, "logout error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
