package handler

import (
	"errors"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/joestump/joe-gate/internal/auth"
	"github.com/joestump/joe-gate/internal/redirect"
	"github.com/joestump/joe-gate/internal/store"
)

// AdminHandler serves the admin link list.
type AdminHandler struct {
	sessions *scs.SessionManager
	flag     auth.SessionStore
	links    store.LinkStoreIface
	resolver *redirect.Resolver
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(sm *scs.SessionManager, flag auth.SessionStore, ls store.LinkStoreIface, res *redirect.Resolver) *AdminHandler {
	return &AdminHandler{sessions: sm, flag: flag, links: ls, resolver: res}
}

// LinkForm carries submitted values back into a form that failed validation.
type LinkForm struct {
	ID    string
	Title string
	URL   string
	Error string
}

// AdminPage is the template data for the admin link list.
type AdminPage struct {
	BasePage
	Links    []store.LinkRecord
	ActiveID string
	Fallback string // where visitors go when the list is empty
	Form     LinkForm
}

// AdminEditPage is the template data for the edit form.
type AdminEditPage struct {
	BasePage
	Form LinkForm
}

// AdminLoginPage is the template data for the login form.
type AdminLoginPage struct {
	BasePage
	Error string
}

// LoginForm renders GET /admin/login. Admins already signed in go straight to /admin.
func (h *AdminHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if h.flag.IsAdmin(r.Context()) {
		http.Redirect(w, r, "/admin", http.StatusFound)
		return
	}
	var msg string
	if r.URL.Query().Get("error") != "" {
		msg = "Invalid username or password."
	}
	render(w, "admin/login.html", AdminLoginPage{Error: msg})
}

// Index renders GET /admin.
func (h *AdminHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.renderIndex(w, r, http.StatusOK, LinkForm{})
}

func (h *AdminHandler) renderIndex(w http.ResponseWriter, r *http.Request, status int, form LinkForm) {
	links := h.links.List(r.Context())
	data := AdminPage{
		BasePage: h.basePage(r),
		Links:    links,
		Fallback: h.resolver.Lookup(r.Context(), nil).URL,
		Form:     form,
	}
	if len(links) > 0 {
		data.ActiveID = links[0].ID
	}
	renderStatus(w, status, "admin/index.html", data)
}

// Create handles POST /admin/links.
func (h *AdminHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	form := LinkForm{Title: r.PostFormValue("title"), URL: r.PostFormValue("url")}
	if _, err := h.links.Add(r.Context(), form.Title, form.URL); err != nil {
		var verr *store.ValidationError
		if errors.As(err, &verr) {
			form.Error = verr.Error()
			h.renderIndex(w, r, http.StatusUnprocessableEntity, form)
			return
		}
		h.fail(w, r, err, "Could not save the link.")
		return
	}
	h.done(w, r, "Link added. It is now the active redirect.")
}

// Edit renders GET /admin/links/{id}/edit.
func (h *AdminHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	for _, rec := range h.links.List(r.Context()) {
		if rec.ID == id {
			render(w, "admin/edit.html", AdminEditPage{
				BasePage: h.basePage(r),
				Form:     LinkForm{ID: rec.ID, Title: rec.Title, URL: rec.URL},
			})
			return
		}
	}
	setFlash(h.sessions, r.Context(), "error", "That link no longer exists.")
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// Update handles POST /admin/links/{id}.
func (h *AdminHandler) Update(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	form := LinkForm{ID: chi.URLParam(r, "id"), Title: r.PostFormValue("title"), URL: r.PostFormValue("url")}
	_, err := h.links.Update(r.Context(), form.ID, form.Title, form.URL)
	var verr *store.ValidationError
	switch {
	case err == nil:
		h.done(w, r, "Link updated.")
	case errors.As(err, &verr):
		form.Error = verr.Error()
		renderStatus(w, http.StatusUnprocessableEntity, "admin/edit.html", AdminEditPage{BasePage: h.basePage(r), Form: form})
	case errors.Is(err, store.ErrNotFound):
		setFlash(h.sessions, r.Context(), "error", "That link no longer exists.")
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
	default:
		h.fail(w, r, err, "Could not save the link.")
	}
}

// Delete handles POST /admin/links/{id}/delete.
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.links.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err, "Could not delete the link.")
		return
	}
	h.done(w, r, "Link deleted.")
}

// Clear handles POST /admin/links/clear.
func (h *AdminHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.links.Clear(r.Context()); err != nil {
		h.fail(w, r, err, "Could not clear the links.")
		return
	}
	h.done(w, r, "All links removed.")
}

func (h *AdminHandler) basePage(r *http.Request) BasePage {
	return BasePage{Admin: true, Flash: popFlash(h.sessions, r.Context())}
}

func (h *AdminHandler) done(w http.ResponseWriter, r *http.Request, msg string) {
	setFlash(h.sessions, r.Context(), "success", msg)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (h *AdminHandler) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	hlog.FromRequest(r).Error().Err(err).Msg("admin link change")
	setFlash(h.sessions, r.Context(), "error", msg)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}
