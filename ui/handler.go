package ui

import (
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/b0bbywan/go-portal-test/config"
	"github.com/b0bbywan/go-portal-test/logger"
)

//go:embed templates
var templatesFS embed.FS

func LoadTemplates() *template.Template {
	funcMap := template.FuncMap{
		"ago": func(t time.Time) string {
			if t.IsZero() {
				return "never"
			}
			return humanize.Time(t)
		},
		"orDash": func(s string) string {
			if s == "" {
				return "-"
			}
			return s
		},
	}

	tmpl := template.New("").Funcs(funcMap)
	return template.Must(tmpl.ParseFS(templatesFS,
		"templates/base.gohtml",
		"templates/pages/*.gohtml",
		"templates/sections/*.gohtml",
		"templates/components/*.gohtml",
	))
}

// Handler manages UI routes and rendering
type Handler struct {
	tmpl   *template.Template
	client *APIClient
}

func NewHandler(apiPort int) *Handler {
	return &Handler{
		tmpl:   LoadTemplates(),
		client: NewAPIClient(apiPort),
	}
}

// Dashboard renders the whole window page.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	serverInfo, err := h.client.GetServerInfo()
	if err != nil {
		logger.Error("[ui] failed to fetch server info: %v", err)
		http.Error(w, "Failed to load server information", http.StatusInternalServerError)
		return
	}

	data := DashboardView{
		Title:  config.AppName,
		Server: serverInfo,
	}
	if view, err := h.client.GetWindow(); err == nil {
		data.Window = convertWindow(*view, serverInfo.Backends)
	} else {
		logger.Warn("[ui] failed to fetch window: %v", err)
	}

	h.render(w, "dashboard", data)
}

// WindowSection renders the window fragment, reloaded on window.updated.
func (h *Handler) WindowSection(w http.ResponseWriter, r *http.Request) {
	serverInfo, err := h.client.GetServerInfo()
	if err != nil {
		logger.Error("[ui] failed to fetch server info: %v", err)
		http.Error(w, "Failed to load server information", http.StatusInternalServerError)
		return
	}
	view, err := h.client.GetWindow()
	if err != nil {
		logger.Error("[ui] failed to fetch window: %v", err)
		http.Error(w, "Failed to load window", http.StatusInternalServerError)
		return
	}
	h.render(w, "section-window", convertWindow(*view, serverInfo.Backends))
}

func (h *Handler) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.ExecuteTemplate(w, name, data); err != nil {
		logger.Error("[ui] template %s failed: %v", name, err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}
