package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/joestump/joe-gate/internal/store"
)

// linksAPIHandler provides REST handlers for the admin link list.
type linksAPIHandler struct {
	links store.LinkStoreIface
}

// registerLinkRoutes registers link routes on r.
func registerLinkRoutes(r chi.Router, links store.LinkStoreIface) {
	h := &linksAPIHandler{links: links}
	r.Get("/links", h.List)
	r.Post("/links", h.Create)
	r.Delete("/links", h.Clear)
	r.Get("/links/active", h.Active)
	r.Put("/links/{id}", h.Update)
	r.Delete("/links/{id}", h.Delete)
}

// List returns links newest first. ?cursor and ?limit page through the list.
// GET /api/v1/links
func (h *linksAPIHandler) List(w http.ResponseWriter, r *http.Request) {
	cursor, limit := parsePagination(r)
	records := h.links.List(r.Context())

	start := 0
	if cursor != "" {
		after := decodeCursor(cursor)
		start = -1
		for i, rec := range records {
			if after != "" && rec.ID == after {
				start = i + 1
				break
			}
		}
		if start < 0 {
			writeError(w, http.StatusBadRequest, "unknown or expired cursor", "BAD_REQUEST")
			return
		}
	}

	resp := &LinkListResponse{Links: make([]LinkResponse, 0, limit)}
	end := min(start+limit, len(records))
	for i := start; i < end; i++ {
		resp.Links = append(resp.Links, toLinkResponse(records[i], i == 0))
	}
	if end < len(records) {
		next := encodeCursor(records[end-1].ID)
		resp.NextCursor = &next
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds a link; it becomes the active one.
// POST /api/v1/links
func (h *linksAPIHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return
	}
	rec, err := h.links.Add(r.Context(), req.Title, req.URL)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLinkResponse(*rec, true))
}

// Update replaces a link's title and url.
// PUT /api/v1/links/{id}
func (h *linksAPIHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return
	}
	rec, err := h.links.Update(r.Context(), chi.URLParam(r, "id"), req.Title, req.URL)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	head, _ := h.links.MostRecent(r.Context())
	writeJSON(w, http.StatusOK, toLinkResponse(*rec, head != nil && head.ID == rec.ID))
}

// Delete removes a link. Unknown ids succeed.
// DELETE /api/v1/links/{id}
func (h *linksAPIHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.links.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Clear removes every link.
// DELETE /api/v1/links
func (h *linksAPIHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.links.Clear(r.Context()); err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Active returns the most recent link, the one visitors are sent to.
// GET /api/v1/links/active
func (h *linksAPIHandler) Active(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.links.MostRecent(r.Context())
	if !ok {
		writeError(w, http.StatusNotFound, "no links stored", "NOT_FOUND")
		return
	}
	writeJSON(w, http.StatusOK, toLinkResponse(*rec, true))
}

func toLinkResponse(rec store.LinkRecord, active bool) LinkResponse {
	return LinkResponse{
		ID:        rec.ID,
		Title:     rec.Title,
		URL:       rec.URL,
		CreatedAt: rec.CreatedAt,
		Active:    active,
	}
}
