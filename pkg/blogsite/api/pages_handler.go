package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/materialize-demo/pkg/blogsite"
	"github.com/tendant/materialize-demo/pkg/blogsite/blocks"
)

// DateLayout is the wire format of post dates
const DateLayout = "2006-01-02"

// CreatePageRequest is the request body for creating a page
type CreatePageRequest struct {
	ParentID string `json:"parent_id,omitempty"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	Slug     string `json:"slug,omitempty"`

	Author            string `json:"author,omitempty"`
	BackgroundImageID string `json:"background_image_id,omitempty"`
	UserImageID       string `json:"user_image_id,omitempty"`
	Intro             string `json:"intro,omitempty"`

	Date        string        `json:"date,omitempty"`
	Description string        `json:"description,omitempty"`
	Body        blocks.Stream `json:"body,omitempty"`

	Parallax1ID string `json:"parallax1_id,omitempty"`
	Parallax2ID string `json:"parallax2_id,omitempty"`
}

// UpdatePageRequest is the request body for updating a page. Absent fields
// are left unchanged; an empty image id clears the reference.
type UpdatePageRequest struct {
	Title *string `json:"title,omitempty"`
	Slug  *string `json:"slug,omitempty"`

	Author            *string `json:"author,omitempty"`
	BackgroundImageID *string `json:"background_image_id,omitempty"`
	UserImageID       *string `json:"user_image_id,omitempty"`
	Intro             *string `json:"intro,omitempty"`

	Date        *string        `json:"date,omitempty"`
	Description *string        `json:"description,omitempty"`
	Body        *blocks.Stream `json:"body,omitempty"`

	Parallax1ID *string `json:"parallax1_id,omitempty"`
	Parallax2ID *string `json:"parallax2_id,omitempty"`
}

// ContextResponse is the rendering context of a page
type ContextResponse struct {
	Page            *blogsite.Page   `json:"page"`
	HomeID          string           `json:"home_id,omitempty"`
	Author          string           `json:"author,omitempty"`
	UserImage       *ImageResponse   `json:"user_image,omitempty"`
	BackgroundImage *ImageResponse   `json:"background_image,omitempty"`
	Parallax1       *ImageResponse   `json:"parallax1,omitempty"`
	Parallax2       *ImageResponse   `json:"parallax2,omitempty"`
	BlogPages       []*blogsite.Page `json:"blog_pages,omitempty"`
}

// PagesHandler handles HTTP requests for the page tree
type PagesHandler struct {
	service blogsite.Service
}

// NewPagesHandler creates a new pages handler
func NewPagesHandler(service blogsite.Service) *PagesHandler {
	return &PagesHandler{service: service}
}

// Routes returns the routes for pages
func (h *PagesHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreatePage)
	r.Get("/", h.ListRoots)
	r.Get("/{id}", h.GetPage)
	r.Put("/{id}", h.UpdatePage)
	r.Delete("/{id}", h.DeletePage)

	r.Post("/{id}/publish", h.PublishPage)
	r.Post("/{id}/unpublish", h.UnpublishPage)

	r.Get("/{id}/children", h.ListChildren)
	r.Get("/{id}/context", h.GetContext)
	r.Get("/{id}/html", h.RenderPage)

	return r
}

// CreatePage creates a new draft page
func (h *PagesHandler) CreatePage(w http.ResponseWriter, r *http.Request) {
	var req CreatePageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, "Invalid request body: "+err.Error())
		return
	}

	createReq := blogsite.CreatePageRequest{
		Type:        blogsite.PageType(req.Type),
		Title:       req.Title,
		Slug:        req.Slug,
		Author:      req.Author,
		Intro:       req.Intro,
		Description: req.Description,
		Body:        req.Body,
	}

	var err error
	ids := []struct {
		field string
		raw   string
		dst   **uuid.UUID
	}{
		{"parent_id", req.ParentID, &createReq.ParentID},
		{"background_image_id", req.BackgroundImageID, &createReq.BackgroundImageID},
		{"user_image_id", req.UserImageID, &createReq.UserImageID},
		{"parallax1_id", req.Parallax1ID, &createReq.Parallax1ID},
		{"parallax2_id", req.Parallax2ID, &createReq.Parallax2ID},
	}
	for _, id := range ids {
		if *id.dst, err = parseOptionalID(id.raw); err != nil {
			badRequest(w, r, fmt.Sprintf("Invalid %s", id.field))
			return
		}
	}
	if createReq.Date, err = parseOptionalDate(req.Date); err != nil {
		badRequest(w, r, "Invalid date, expected YYYY-MM-DD")
		return
	}

	page, err := h.service.CreatePage(r.Context(), createReq)
	if err != nil {
		writeError(w, r, "Failed to create page", err)
		return
	}

	slog.Info("Page created", "page_id", page.ID, "type", page.Type)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, page)
}

// GetPage retrieves a page by ID
func (h *PagesHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	id, ok := pageID(w, r)
	if !ok {
		return
	}

	page, err := h.service.GetPage(r.Context(), id)
	if err != nil {
		writeError(w, r, "Failed to get page", err)
		return
	}
	render.JSON(w, r, page)
}

// ListRoots lists the pages at the top of the tree
func (h *PagesHandler) ListRoots(w http.ResponseWriter, r *http.Request) {
	pages, err := h.service.ListRoots(r.Context())
	if err != nil {
		writeError(w, r, "Failed to list pages", err)
		return
	}
	render.JSON(w, r, nonNil(pages))
}

// UpdatePage changes the fields present in the request body
func (h *PagesHandler) UpdatePage(w http.ResponseWriter, r *http.Request) {
	id, ok := pageID(w, r)
	if !ok {
		return
	}

	var req UpdatePageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, "Invalid request body: "+err.Error())
		return
	}

	updateReq := blogsite.UpdatePageRequest{
		ID:          id,
		Title:       req.Title,
		Slug:        req.Slug,
		Author:      req.Author,
		Intro:       req.Intro,
		Description: req.Description,
		Body:        req.Body,
	}

	var err error
	ids := []struct {
		field string
		raw   *string
		dst   **uuid.UUID
	}{
		{"background_image_id", req.BackgroundImageID, &updateReq.BackgroundImageID},
		{"user_image_id", req.UserImageID, &updateReq.UserImageID},
		{"parallax1_id", req.Parallax1ID, &updateReq.Parallax1ID},
		{"parallax2_id", req.Parallax2ID, &updateReq.Parallax2ID},
	}
	for _, ref := range ids {
		if *ref.dst, err = parseImageUpdate(ref.raw); err != nil {
			badRequest(w, r, fmt.Sprintf("Invalid %s", ref.field))
			return
		}
	}
	if req.Date != nil {
		if updateReq.Date, err = parseOptionalDate(*req.Date); err != nil || updateReq.Date == nil {
			badRequest(w, r, "Invalid date, expected YYYY-MM-DD")
			return
		}
	}

	page, err := h.service.UpdatePage(r.Context(), updateReq)
	if err != nil {
		writeError(w, r, "Failed to update page", err)
		return
	}

	slog.Info("Page updated", "page_id", page.ID)
	render.JSON(w, r, page)
}

// DeletePage deletes a page and its children
func (h *PagesHandler) DeletePage(w http.ResponseWriter, r *http.Request) {
	id, ok := pageID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeletePage(r.Context(), id); err != nil {
		writeError(w, r, "Failed to delete page", err)
		return
	}

	slog.Info("Page deleted", "page_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// PublishPage makes a page live
func (h *PagesHandler) PublishPage(w http.ResponseWriter, r *http.Request) {
	h.setLive(w, r, true)
}

// UnpublishPage takes a page offline
func (h *PagesHandler) UnpublishPage(w http.ResponseWriter, r *http.Request) {
	h.setLive(w, r, false)
}

func (h *PagesHandler) setLive(w http.ResponseWriter, r *http.Request, live bool) {
	id, ok := pageID(w, r)
	if !ok {
		return
	}

	var page *blogsite.Page
	var err error
	if live {
		page, err = h.service.PublishPage(r.Context(), id)
	} else {
		page, err = h.service.UnpublishPage(r.Context(), id)
	}
	if err != nil {
		writeError(w, r, "Failed to change page status", err)
		return
	}

	slog.Info("Page status changed", "page_id", id, "live", live)
	render.JSON(w, r, page)
}

// ListChildren lists the children of a page. Pass live=true to only list
// published pages.
func (h *PagesHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	id, ok := pageID(w, r)
	if !ok {
		return
	}

	liveOnly := false
	if raw := r.URL.Query().Get("live"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(w, r, "Invalid live parameter")
			return
		}
		liveOnly = parsed
	}

	pages, err := h.service.ListChildren(r.Context(), id, liveOnly)
	if err != nil {
		writeError(w, r, "Failed to list children", err)
		return
	}
	render.JSON(w, r, nonNil(pages))
}

// GetContext returns what the page template receives
func (h *PagesHandler) GetContext(w http.ResponseWriter, r *http.Request) {
	id, ok := pageID(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	pc, err := h.service.GetContext(ctx, id)
	if err != nil {
		writeError(w, r, "Failed to get page context", err)
		return
	}

	resp := ContextResponse{
		Page:      pc.Page,
		Author:    pc.Author,
		BlogPages: pc.BlogPages,
	}
	if pc.Home != nil {
		resp.HomeID = pc.Home.ID.String()
	}
	images := []struct {
		src *blogsite.Image
		dst **ImageResponse
	}{
		{pc.UserImage, &resp.UserImage},
		{pc.BackgroundImage, &resp.BackgroundImage},
		{pc.Parallax1, &resp.Parallax1},
		{pc.Parallax2, &resp.Parallax2},
	}
	for _, img := range images {
		if img.src == nil {
			continue
		}
		out, err := newImageResponse(ctx, h.service, img.src)
		if err != nil {
			writeError(w, r, "Failed to resolve image URL", err)
			return
		}
		*img.dst = out
	}

	render.JSON(w, r, resp)
}

// RenderPage returns the page as an HTML document
func (h *PagesHandler) RenderPage(w http.ResponseWriter, r *http.Request) {
	id, ok := pageID(w, r)
	if !ok {
		return
	}

	out, err := h.service.RenderPage(r.Context(), id)
	if err != nil {
		writeError(w, r, "Failed to render page", err)
		return
	}
	render.HTML(w, r, string(out))
}

func pageID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		slog.Warn("Invalid page ID", "page_id", idStr, "error", err)
		badRequest(w, r, "Invalid page ID")
		return uuid.Nil, false
	}
	return id, true
}

func parseOptionalID(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// parseImageUpdate maps an absent field to nil and an empty one to
// uuid.Nil, which clears the reference.
func parseImageUpdate(raw *string) (*uuid.UUID, error) {
	if raw == nil {
		return nil, nil
	}
	if *raw == "" {
		id := uuid.Nil
		return &id, nil
	}
	return parseOptionalID(*raw)
}

func parseOptionalDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse(DateLayout, raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
