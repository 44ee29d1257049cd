package web

import (
	"log/slog"
	"net/http"

	"Headshot/internal/core/textures"
)

// exampleUUID is shown in the endpoint examples.
const exampleUUID = "853c80ef3c3749fdaa49938b674adae6"

// Handlers serves the landing page.
type Handlers struct {
	templates *Templates
	config    textures.Config
}

// NewHandlers creates Handlers that describe the limits in config.
func NewHandlers(templates *Templates, config textures.Config) *Handlers {
	return &Handlers{
		templates: templates,
		config:    config,
	}
}

// IndexPageData holds data for the landing page template.
type IndexPageData struct {
	ExampleUUID string

	MinSize     int
	MaxSize     int
	DefaultSize int

	MinScale     int
	MaxScale     int
	DefaultScale int

	// Seconds
	LocalCacheTime   int
	BrowserCacheTime int
}

func (h *Handlers) indexData() IndexPageData {
	return IndexPageData{
		ExampleUUID:      exampleUUID,
		MinSize:          h.config.MinSize,
		MaxSize:          h.config.MaxSize,
		DefaultSize:      h.config.DefaultSize,
		MinScale:         h.config.MinScale,
		MaxScale:         h.config.MaxScale,
		DefaultScale:     h.config.DefaultScale,
		LocalCacheTime:   int(h.config.LocalCacheTime.Seconds()),
		BrowserCacheTime: int(h.config.BrowserCacheTime.Seconds()),
	}
}

// IndexHandler handles GET / and renders the landing page.
func (h *Handlers) IndexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if err := h.templates.Render(w, "index.html", h.indexData()); err != nil {
		slog.Error("[WEB] failed to render index page", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
