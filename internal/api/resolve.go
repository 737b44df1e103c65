package api

import (
	"net/http"

	"github.com/joestump/joe-gate/internal/redirect"
)

type resolveAPIHandler struct {
	resolver *redirect.Resolver
}

// Resolve previews where a visitor with the request's query would be sent.
// It does not count as a redirect.
// GET /api/v1/resolve?ref=...
func (h *resolveAPIHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	t := h.resolver.Lookup(r.Context(), r.URL.Query())
	writeJSON(w, http.StatusOK, ResolveResponse{URL: t.URL, Source: string(t.Source)})
}
