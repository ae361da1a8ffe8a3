// Package panel serves a small web view over stored workflows: a listing,
// a detail page with the rendered diagram and validation report, a JSON
// API for edits, and a Server-Sent Events stream of session changes.
package panel

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/zyztek/suna-sub010/internal/store"
	"github.com/zyztek/suna-sub010/internal/streaming"
	"github.com/zyztek/suna-sub010/internal/validation"
)

// PanelDeps holds the dependencies for the panel server.
type PanelDeps struct {
	Store        store.Store
	Hub          streaming.Hub
	Validator    *validation.Validator
	HistoryLimit int
	Logger       *slog.Logger
}

// PanelServer serves the web panel.
type PanelServer struct {
	deps  PanelDeps
	pages map[string]*template.Template
}

// NewPanelServer creates a new PanelServer with parsed templates.
func NewPanelServer(deps PanelDeps) *PanelServer {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	if deps.Validator == nil {
		deps.Validator = validation.NewValidator(nil)
	}

	funcMap := template.FuncMap{
		"timeAgo":  timeAgo,
		"truncate": truncate,
		"json":     toJSON,
	}

	base := template.Must(template.New("panel").Funcs(funcMap).Parse(baseTemplate))

	// Each page clones the base so that its "content" block doesn't
	// collide with the others.
	pages := make(map[string]*template.Template, len(pageTemplates))
	for name, text := range pageTemplates {
		clone := template.Must(base.Clone())
		pages[name] = template.Must(clone.Parse(text))
	}

	return &PanelServer{deps: deps, pages: pages}
}

// Handler returns the HTTP handler for the panel routes.
func (s *PanelServer) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.handleWorkflows)
	r.Get("/workflows/{id}", s.handleWorkflowDetail)

	r.Route("/api/workflows", func(r chi.Router) {
		r.Get("/", s.handleListWorkflows)
		r.Get("/{id}", s.handleGetWorkflow)
		r.Delete("/{id}", s.handleDeleteWorkflow)
		r.Get("/{id}/diagram", s.handleDiagram)
		r.Get("/{id}/snapshots", s.handleSnapshots)
		r.Post("/{id}/edit", s.handleEdit)
	})

	r.Get("/sse/events", s.handleSSEGlobal)
	r.Get("/sse/workflows/{id}", s.handleSSEWorkflow)

	return r
}

// renderPage executes a page template by name.
func (s *PanelServer) renderPage(w http.ResponseWriter, page string, data any) {
	tmpl, ok := s.pages[page]
	if !ok {
		s.deps.Logger.Error("template not found", "page", page)
		http.Error(w, fmt.Sprintf("template %q not found", page), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		s.deps.Logger.Error("template render error", "page", page, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
