package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/tendant/materialize-demo/pkg/blogsite"
	"github.com/tendant/materialize-demo/pkg/blogsite/api"
	"github.com/tendant/materialize-demo/pkg/blogsite/config"
)

// HTTPServer serves the blog site API and its rendered pages
type HTTPServer struct {
	service blogsite.Service
	config  *config.ServerConfig
}

// NewHTTPServer creates a new HTTP server wrapper
func NewHTTPServer(service blogsite.Service, serverConfig *config.ServerConfig) *HTTPServer {
	return &HTTPServer{
		service: service,
		config:  serverConfig,
	}
}

// Routes sets up the HTTP routes
func (s *HTTPServer) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(api.RequestIDMiddleware)
	r.Use(api.LoggingMiddleware(nil))
	r.Use(api.RecoveryMiddleware)
	r.Use(middleware.RealIP)
	r.Use(api.AllowedHostsMiddleware(s.config.HostAllowed))
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS for development
	if s.config.Debug {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
		}))
	}

	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleHome)

	r.Route(s.config.APIPrefix, func(r chi.Router) {
		// Room for the multipart envelope around the largest image.
		r.Use(api.RequestSizeLimitMiddleware(api.DefaultMaxUploadSize + 1<<20))

		r.Mount("/pages", api.NewPagesHandler(s.service).Routes())
		r.Mount("/images", api.NewImagesHandler(s.service).Routes())
		r.Mount("/media", api.NewMediaHandler().Routes())
		r.Get("/config", s.handleGetConfig)
	})

	return r
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{
		"status":          "healthy",
		"environment":     s.config.Environment,
		"default_storage": s.config.DefaultStorageBackend,
	})
}

// handleHome renders the first live root page, which is the blog's front page.
func (s *HTTPServer) handleHome(w http.ResponseWriter, r *http.Request) {
	roots, err := s.service.ListRoots(r.Context())
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "internal_error", "Failed to list pages")
		return
	}

	for _, page := range roots {
		if !page.Live {
			continue
		}
		html, err := s.service.RenderPage(r.Context(), page.ID)
		if err != nil {
			s.writeError(w, r, http.StatusInternalServerError, "internal_error", "Failed to render page")
			return
		}
		render.HTML(w, r, string(html))
		return
	}

	s.writeError(w, r, http.StatusNotFound, "not_found", "No published home page")
}

// ConfigResponse describes the running configuration without secrets
type ConfigResponse struct {
	Environment     string   `json:"environment"`
	Debug           bool     `json:"debug"`
	DatabaseType    string   `json:"database_type"`
	DefaultStorage  string   `json:"default_storage_backend"`
	StorageBackends []string `json:"available_storage_backends"`
	AllowedHosts    []string `json:"allowed_hosts"`
	EmailBackend    string   `json:"email_backend"`
	EventLogging    bool     `json:"enable_event_logging"`
}

func (s *HTTPServer) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	backends := make([]string, len(s.config.StorageBackends))
	for i, backend := range s.config.StorageBackends {
		backends[i] = backend.Name + " (" + backend.Type + ")"
	}

	render.JSON(w, r, ConfigResponse{
		Environment:     s.config.Environment,
		Debug:           s.config.Debug,
		DatabaseType:    s.config.DatabaseType,
		DefaultStorage:  s.config.DefaultStorageBackend,
		StorageBackends: backends,
		AllowedHosts:    s.config.AllowedHosts,
		EmailBackend:    s.config.EmailBackend,
		EventLogging:    s.config.EnableEventLogging,
	})
}

func (s *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	render.Status(r, status)
	render.JSON(w, r, api.ErrorResponse{Error: api.ErrorBody{
		Code:      code,
		Message:   message,
		RequestID: api.RequestIDFromContext(r.Context()),
	}})
}
