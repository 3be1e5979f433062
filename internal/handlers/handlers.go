package handlers

import (
	"embed"
	"html/template"
	"os"

	"github.com/felo/mailvault/internal/assets"
	"github.com/felo/mailvault/internal/config"
	"github.com/felo/mailvault/internal/db"
	"github.com/felo/mailvault/internal/render"
)

// Handlers holds all HTTP handlers and their dependencies
type Handlers struct {
	db        *db.DB
	cfg       *config.Config
	renderer  *render.Renderer
	freezer   *assets.Engine
	templates *template.Template
	sigChan   chan os.Signal
}

// New creates a new Handlers instance
func New(database *db.DB, cfg *config.Config, renderer *render.Renderer, freezer *assets.Engine) *Handlers {
	return &Handlers{
		db:       database,
		cfg:      cfg,
		renderer: renderer,
		freezer:  freezer,
	}
}

// SetShutdownChannel wires the channel the Shutdown handler signals
func (h *Handlers) SetShutdownChannel(sigChan chan os.Signal) {
	h.sigChan = sigChan
}

// LoadTemplates loads HTML templates from embedded filesystem
func (h *Handlers) LoadTemplates(embeddedFiles embed.FS) error {
	tmpl, err := template.ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return err
	}
	h.templates = tmpl
	return nil
}
