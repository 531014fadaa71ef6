// Package ui renders embedded HTML templates. Every page receives the
// current user, the CSRF token and any pending flash messages alongside its
// own data, so handlers only supply what is page-specific.
package ui

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/feldrin/quill/internal/ctxkeys"
	"github.com/feldrin/quill/internal/flash"
	"github.com/feldrin/quill/internal/model"
)

//go:embed templates
var templatesFS embed.FS

// pages lists every page template; each is parsed together with the layout.
var pages = []string{
	"home",
	"register",
	"login",
	"account",
	"user_posts",
	"notfound",
}

var templates = func() map[string]*template.Template {
	parsed := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		parsed[page] = template.Must(template.ParseFS(
			templatesFS,
			"templates/layout.html",
			"templates/"+page+".html",
		))
	}
	return parsed
}()

// Page is the root template context for every rendered page.
type Page struct {
	Title       string
	AppName     string
	CurrentUser *model.User
	CSRFToken   string
	Flashes     []flash.Message
	Data        any
}

// Render writes the named page with a 200 status. Data carries the
// page-specific payload; the ambient fields come from the request.
func Render(w http.ResponseWriter, r *http.Request, name, title string, data any) {
	RenderStatus(w, r, http.StatusOK, name, title, data)
}

// RenderStatus writes the named page with an explicit status code. The
// flash-drain cookie must precede the status line, so every header write
// happens before WriteHeader.
func RenderStatus(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	tmpl, ok := templates[name]
	if !ok {
		slog.Error("unknown template", "name", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	appName := "Quill"
	cfg := ctxkeys.Config(r.Context())
	if cfg != nil && cfg.AppName != "" {
		appName = cfg.AppName
	}

	page := &Page{
		Title:       title,
		AppName:     appName,
		CurrentUser: ctxkeys.User(r.Context()),
		CSRFToken:   ctxkeys.CSRFToken(r.Context()),
		Flashes:     flash.Take(w, r),
		Data:        data,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	err := tmpl.ExecuteTemplate(w, "layout.html", page)
	if err != nil {
		slog.Error("render failed", "template", name, "error", err)
	}
}
