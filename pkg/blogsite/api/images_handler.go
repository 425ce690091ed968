package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/materialize-demo/pkg/blogsite"
)

// DefaultMaxUploadSize bounds multipart image uploads
const DefaultMaxUploadSize = 32 << 20

// ImageResponse is the response body for an image
type ImageResponse struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	FileName       string    `json:"file_name"`
	MimeType       string    `json:"mime_type"`
	FileSize       int64     `json:"file_size"`
	StorageBackend string    `json:"storage_backend"`
	URL            string    `json:"url"`
	CreatedAt      time.Time `json:"created_at"`
}

func newImageResponse(ctx context.Context, service blogsite.Service, image *blogsite.Image) (*ImageResponse, error) {
	url, err := service.ImageURL(ctx, image.ID)
	if err != nil {
		return nil, err
	}
	return &ImageResponse{
		ID:             image.ID.String(),
		Title:          image.Title,
		FileName:       image.FileName,
		MimeType:       image.MimeType,
		FileSize:       image.FileSize,
		StorageBackend: image.StorageBackend,
		URL:            url,
		CreatedAt:      image.CreatedAt,
	}, nil
}

// ImagesHandler handles HTTP requests for uploaded images
type ImagesHandler struct {
	service       blogsite.Service
	maxUploadSize int64
}

// NewImagesHandler creates a new images handler
func NewImagesHandler(service blogsite.Service) *ImagesHandler {
	return &ImagesHandler{
		service:       service,
		maxUploadSize: DefaultMaxUploadSize,
	}
}

// Routes returns the routes for images
func (h *ImagesHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.UploadImage)
	r.Get("/", h.ListImages)
	r.Get("/{id}", h.GetImage)
	r.Get("/{id}/file", h.DownloadImage)
	r.Delete("/{id}", h.DeleteImage)

	return r
}

// UploadImage stores the multipart "file" field as a new image. Optional
// form fields: title, storage_backend.
func (h *ImagesHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		badRequest(w, r, "Invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, r, "Missing file field")
		return
	}
	defer file.Close()

	// Clients that do not know the type send application/octet-stream; let
	// the file extension decide in that case.
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "application/octet-stream" {
		mimeType = ""
	}

	image, err := h.service.UploadImage(r.Context(), blogsite.UploadImageRequest{
		Title:          r.FormValue("title"),
		FileName:       header.Filename,
		MimeType:       mimeType,
		StorageBackend: r.FormValue("storage_backend"),
	}, file)
	if err != nil {
		writeError(w, r, "Failed to upload image", err)
		return
	}

	resp, err := newImageResponse(r.Context(), h.service, image)
	if err != nil {
		writeError(w, r, "Failed to resolve image URL", err)
		return
	}

	slog.Info("Image uploaded", "image_id", image.ID, "size", image.FileSize, "backend", image.StorageBackend)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, resp)
}

// ListImages lists every image, newest first
func (h *ImagesHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	images, err := h.service.ListImages(r.Context())
	if err != nil {
		writeError(w, r, "Failed to list images", err)
		return
	}

	resp := make([]*ImageResponse, 0, len(images))
	for _, image := range images {
		out, err := newImageResponse(r.Context(), h.service, image)
		if err != nil {
			writeError(w, r, "Failed to resolve image URL", err)
			return
		}
		resp = append(resp, out)
	}
	render.JSON(w, r, resp)
}

// GetImage retrieves image metadata by ID
func (h *ImagesHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, ok := imageID(w, r)
	if !ok {
		return
	}

	image, err := h.service.GetImage(r.Context(), id)
	if err != nil {
		writeError(w, r, "Failed to get image", err)
		return
	}

	resp, err := newImageResponse(r.Context(), h.service, image)
	if err != nil {
		writeError(w, r, "Failed to resolve image URL", err)
		return
	}
	render.JSON(w, r, resp)
}

// DownloadImage streams the image file
func (h *ImagesHandler) DownloadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := imageID(w, r)
	if !ok {
		return
	}

	rc, image, err := h.service.DownloadImage(r.Context(), id)
	if err != nil {
		writeError(w, r, "Failed to download image", err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", image.MimeType)
	if image.FileSize > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(image.FileSize, 10))
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", image.FileName))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, rc); err != nil {
		slog.Error("Failed to stream image", "image_id", id, "error", err)
	}
}

// DeleteImage deletes an image and its file
func (h *ImagesHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id, ok := imageID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteImage(r.Context(), id); err != nil {
		writeError(w, r, "Failed to delete image", err)
		return
	}

	slog.Info("Image deleted", "image_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func imageID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		slog.Warn("Invalid image ID", "image_id", idStr, "error", err)
		badRequest(w, r, "Invalid image ID")
		return uuid.Nil, false
	}
	return id, true
}
