package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/materialize-demo/pkg/blogsite/media"
)

// MediaHandler renders media player fragments
type MediaHandler struct{}

// NewMediaHandler creates a new media handler
func NewMediaHandler() *MediaHandler {
	return &MediaHandler{}
}

// Routes returns the routes for media
func (h *MediaHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/render", h.Render)
	return r
}

// Render returns the player markup for ?type=video|audio&url=...
func (h *MediaHandler) Render(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	url := q.Get("url")
	if url == "" {
		badRequest(w, r, "Missing required 'url' parameter")
		return
	}

	ref := &media.Reference{Type: media.Type(q.Get("type")), FileURL: url}
	render.HTML(w, r, string(media.Render(ref)))
}
