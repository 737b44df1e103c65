package handler

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/alexedwards/scs/v2"
	"github.com/rs/zerolog/log"

	"github.com/joestump/joe-gate/web"
)

// BasePage carries layout-level data available to every template.
type BasePage struct {
	Admin bool   // shows the admin nav and logout button
	Flash *Flash // nil when there is nothing to show
}

// pageCache maps a render key (e.g. "landing.html", "admin/index.html") to a
// compiled template set containing base.html + partials + that one page file.
// Each page gets its own set so {{define "content"}} blocks don't collide.
var (
	pageCache    map[string]*template.Template
	fragmentTmpl *template.Template
)

func init() {
	partials, err := fs.Glob(web.TemplateFS, "templates/partials/*.html")
	if err != nil {
		panic("glob partials: " + err.Error())
	}

	// Standalone set for fragment rendering (partials only).
	fragmentTmpl = template.Must(template.New("").ParseFS(web.TemplateFS, partials...))

	// Count how many page files share each basename to detect collisions.
	baseCount := map[string]int{}
	_ = fs.WalkDir(web.TemplateFS, "templates/pages", func(p string, d fs.DirEntry, e error) error {
		if e != nil || d.IsDir() || !strings.HasSuffix(p, ".html") {
			return e
		}
		baseCount[filepath.Base(p)]++
		return nil
	})

	pageCache = make(map[string]*template.Template)
	err = fs.WalkDir(web.TemplateFS, "templates/pages", func(p string, d fs.DirEntry, e error) error {
		if e != nil || d.IsDir() || !strings.HasSuffix(p, ".html") {
			return e
		}

		files := make([]string, 0, 2+len(partials))
		files = append(files, "templates/base.html")
		files = append(files, partials...)
		files = append(files, p)

		t, err := template.New("").ParseFS(web.TemplateFS, files...)
		if err != nil {
			return fmt.Errorf("parse %s: %w", p, err)
		}

		rel, _ := strings.CutPrefix(p, "templates/pages/")
		pageCache[rel] = t

		// Alias under bare basename when it is unique across all page files.
		base := filepath.Base(p)
		if baseCount[base] == 1 {
			pageCache[base] = t
		}
		return nil
	})
	if err != nil {
		panic("build page cache: " + err.Error())
	}
}

// Flash represents a one-time notification message shown to the admin.
type Flash struct {
	Type    string // "success", "error", "info"
	Message string
}

const (
	sessionFlashType = "flash_type"
	sessionFlashMsg  = "flash_msg"
)

func setFlash(sm *scs.SessionManager, ctx context.Context, typ, msg string) {
	sm.Put(ctx, sessionFlashType, typ)
	sm.Put(ctx, sessionFlashMsg, msg)
}

// popFlash returns and clears the pending flash, if any.
func popFlash(sm *scs.SessionManager, ctx context.Context) *Flash {
	msg := sm.PopString(ctx, sessionFlashMsg)
	typ := sm.PopString(ctx, sessionFlashType)
	if msg == "" {
		return nil
	}
	return &Flash{Type: typ, Message: msg}
}

// isHTMX returns true for requests sent by the page script, which asks for
// fragments the same way HTMX does.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON reports whether the client asked for a JSON response.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// render executes a full-page template (base layout + named page).
// tmpl is the render key, e.g. "landing.html" or "admin/index.html".
func render(w http.ResponseWriter, tmpl string, data any) {
	renderStatus(w, http.StatusOK, tmpl, data)
}

// renderStatus is render with an explicit status code. The page is rendered
// to a buffer first so a template error still yields a clean 500.
func renderStatus(w http.ResponseWriter, status int, tmpl string, data any) {
	t, ok := pageCache[tmpl]
	if !ok {
		http.Error(w, "template not found: "+tmpl, http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		log.Error().Err(err).Str("template", tmpl).Msg("render page")
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderFragment executes a named template from the global partials set.
func renderFragment(w http.ResponseWriter, tmpl string, data any) {
	var buf bytes.Buffer
	if err := fragmentTmpl.ExecuteTemplate(&buf, tmpl, data); err != nil {
		log.Error().Err(err).Str("template", tmpl).Msg("render fragment")
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
