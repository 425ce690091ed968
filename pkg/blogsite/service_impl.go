package blogsite

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/tendant/materialize-demo/pkg/blogsite/blocks"
	"github.com/tendant/materialize-demo/pkg/blogsite/richtext"
)

// service implements the Service interface
type service struct {
	repository     Repository
	blobStores     map[string]BlobStore
	defaultStore   string
	eventSink      EventSink
	renderer       PageRenderer
	imageURLPrefix string
	now            func() time.Time
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore adds a blob storage backend. The first backend added
// becomes the default unless WithDefaultBlobStore says otherwise.
func WithBlobStore(name string, store BlobStore) Option {
	return func(s *service) {
		if s.blobStores == nil {
			s.blobStores = make(map[string]BlobStore)
		}
		s.blobStores[name] = store
		if s.defaultStore == "" {
			s.defaultStore = name
		}
	}
}

// WithDefaultBlobStore selects the backend new images are written to
func WithDefaultBlobStore(name string) Option {
	return func(s *service) {
		s.defaultStore = name
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithPageRenderer sets the renderer used by RenderPage
func WithPageRenderer(renderer PageRenderer) Option {
	return func(s *service) {
		s.renderer = renderer
	}
}

// WithImageURLPrefix sets the API prefix used to build image URLs for
// backends that cannot serve files directly (default "/api/v1")
func WithImageURLPrefix(prefix string) Option {
	return func(s *service) {
		s.imageURLPrefix = strings.TrimRight(prefix, "/")
	}
}

// WithClock overrides the time source, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		blobStores:     make(map[string]BlobStore),
		imageURLPrefix: "/api/v1",
		now:            time.Now,
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.defaultStore != "" {
		if _, ok := s.blobStores[s.defaultStore]; !ok {
			return nil, fmt.Errorf("default blob store %q: %w", s.defaultStore, ErrStorageBackendNotFound)
		}
	}
	if s.eventSink == nil {
		s.eventSink = NewNoopEventSink()
	}

	return s, nil
}

// Page operations

func (s *service) CreatePage(ctx context.Context, req CreatePageRequest) (*Page, error) {
	if !req.Type.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPageType, req.Type)
	}

	var parent *Page
	if req.ParentID != nil {
		p, err := s.repository.GetPage(ctx, *req.ParentID)
		if err != nil {
			return nil, fmt.Errorf("parent page: %w", err)
		}
		parent = p
	}
	if err := CanCreateAt(parent, req.Type); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	page := &Page{
		ID:                uuid.New(),
		ParentID:          req.ParentID,
		Type:              req.Type,
		Title:             strings.TrimSpace(req.Title),
		Slug:              strings.TrimSpace(req.Slug),
		Author:            strings.TrimSpace(req.Author),
		BackgroundImageID: req.BackgroundImageID,
		UserImageID:       req.UserImageID,
		Intro:             req.Intro,
		Date:              req.Date,
		Description:       req.Description,
		Body:              req.Body,
		Parallax1ID:       req.Parallax1ID,
		Parallax2ID:       req.Parallax2ID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if page.Slug == "" {
		page.Slug = Slugify(page.Title)
	}
	if page.Type.IsPost() && page.Date == nil {
		today := truncateToDay(now)
		page.Date = &today
	}

	if err := s.cleanPage(ctx, page, nil); err != nil {
		return nil, err
	}

	if err := s.repository.CreatePage(ctx, page); err != nil {
		return nil, &PageError{PageID: page.ID, Op: "create", Err: err}
	}

	if err := s.eventSink.PageCreated(ctx, page); err != nil {
		slog.Warn("Event sink failed", "event", "page_created", "page_id", page.ID, "error", err)
	}

	return page, nil
}

func (s *service) GetPage(ctx context.Context, id uuid.UUID) (*Page, error) {
	return s.repository.GetPage(ctx, id)
}

func (s *service) UpdatePage(ctx context.Context, req UpdatePageRequest) (*Page, error) {
	page, err := s.repository.GetPage(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	stored := page.ImageIDs()

	if req.Title != nil {
		page.Title = strings.TrimSpace(*req.Title)
	}
	if req.Slug != nil {
		page.Slug = strings.TrimSpace(*req.Slug)
		if page.Slug == "" {
			page.Slug = Slugify(page.Title)
		}
	}
	if req.Author != nil {
		page.Author = strings.TrimSpace(*req.Author)
	}
	if req.BackgroundImageID != nil {
		page.BackgroundImageID = nilIfZero(*req.BackgroundImageID)
	}
	if req.UserImageID != nil {
		page.UserImageID = nilIfZero(*req.UserImageID)
	}
	if req.Intro != nil {
		page.Intro = *req.Intro
	}
	if req.Date != nil {
		page.Date = req.Date
	}
	if req.Description != nil {
		page.Description = *req.Description
	}
	if req.Body != nil {
		page.Body = *req.Body
	}
	if req.Parallax1ID != nil {
		page.Parallax1ID = nilIfZero(*req.Parallax1ID)
	}
	if req.Parallax2ID != nil {
		page.Parallax2ID = nilIfZero(*req.Parallax2ID)
	}

	if err := s.cleanPage(ctx, page, stored); err != nil {
		return nil, err
	}

	page.UpdatedAt = s.now().UTC()
	if err := s.repository.UpdatePage(ctx, page); err != nil {
		return nil, &PageError{PageID: page.ID, Op: "update", Err: err}
	}

	if err := s.eventSink.PageUpdated(ctx, page); err != nil {
		slog.Warn("Event sink failed", "event", "page_updated", "page_id", page.ID, "error", err)
	}

	return page, nil
}

// DeletePage removes the page and everything below it.
func (s *service) DeletePage(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repository.GetPage(ctx, id); err != nil {
		return err
	}

	children, err := s.repository.ListChildren(ctx, id, false)
	if err != nil {
		return &PageError{PageID: id, Op: "delete", Err: err}
	}
	for _, child := range children {
		if err := s.DeletePage(ctx, child.ID); err != nil {
			return err
		}
	}

	if err := s.repository.DeletePage(ctx, id); err != nil {
		return &PageError{PageID: id, Op: "delete", Err: err}
	}

	if err := s.eventSink.PageDeleted(ctx, id); err != nil {
		slog.Warn("Event sink failed", "event", "page_deleted", "page_id", id, "error", err)
	}
	return nil
}

func (s *service) ListChildren(ctx context.Context, parentID uuid.UUID, liveOnly bool) ([]*Page, error) {
	if _, err := s.repository.GetPage(ctx, parentID); err != nil {
		return nil, err
	}
	return s.repository.ListChildren(ctx, parentID, liveOnly)
}

func (s *service) ListRoots(ctx context.Context) ([]*Page, error) {
	return s.repository.ListRoots(ctx)
}

// Publishing

// PublishPage makes the page live. The first publication time is recorded
// once and kept across later unpublish/publish cycles.
func (s *service) PublishPage(ctx context.Context, id uuid.UUID) (*Page, error) {
	return s.setLive(ctx, id, true)
}

func (s *service) UnpublishPage(ctx context.Context, id uuid.UUID) (*Page, error) {
	return s.setLive(ctx, id, false)
}

func (s *service) setLive(ctx context.Context, id uuid.UUID, live bool) (*Page, error) {
	page, err := s.repository.GetPage(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	page.Live = live
	if live && page.FirstPublishedAt == nil {
		page.FirstPublishedAt = &now
	}
	page.UpdatedAt = now

	op := "unpublish"
	if live {
		op = "publish"
	}
	if err := s.repository.UpdatePage(ctx, page); err != nil {
		return nil, &PageError{PageID: id, Op: op, Err: err}
	}

	if live {
		err = s.eventSink.PagePublished(ctx, page)
	} else {
		err = s.eventSink.PageUnpublished(ctx, page)
	}
	if err != nil {
		slog.Warn("Event sink failed", "event", "page_"+op+"ed", "page_id", page.ID, "error", err)
	}
	return page, nil
}

// Rendering

// GetContext gathers what the page template needs: for a home page its live
// posts, newest first; for a post the author and user image of its home page.
func (s *service) GetContext(ctx context.Context, id uuid.UUID) (*PageContext, error) {
	page, err := s.repository.GetPage(ctx, id)
	if err != nil {
		return nil, err
	}

	pc := &PageContext{Page: page}

	home := page
	if page.Type != PageTypeBloggerHome {
		home = nil
		if page.ParentID != nil {
			parent, err := s.repository.GetPage(ctx, *page.ParentID)
			if err != nil && !errors.Is(err, ErrPageNotFound) {
				return nil, err
			}
			if parent != nil && parent.Type == PageTypeBloggerHome {
				home = parent
			}
		}
	}

	if home != nil {
		pc.Home = home
		pc.Author = home.Author
		if pc.UserImage, err = s.optionalImage(ctx, home.UserImageID); err != nil {
			return nil, err
		}
	}

	switch page.Type {
	case PageTypeBloggerHome:
		if pc.BackgroundImage, err = s.optionalImage(ctx, page.BackgroundImageID); err != nil {
			return nil, err
		}
		if pc.BlogPages, err = s.repository.ListChildren(ctx, page.ID, true); err != nil {
			return nil, err
		}
	case PageTypeParallax:
		if pc.Parallax1, err = s.optionalImage(ctx, page.Parallax1ID); err != nil {
			return nil, err
		}
		if pc.Parallax2, err = s.optionalImage(ctx, page.Parallax2ID); err != nil {
			return nil, err
		}
	}

	return pc, nil
}

func (s *service) RenderPage(ctx context.Context, id uuid.UUID) (template.HTML, error) {
	if s.renderer == nil {
		return "", errors.New("no page renderer configured")
	}

	pc, err := s.GetContext(ctx, id)
	if err != nil {
		return "", err
	}

	out, err := s.renderer.Render(ctx, pc, s)
	if err != nil {
		return "", &PageError{PageID: id, Op: "render", Err: err}
	}
	return out, nil
}

// optionalImage loads an image reference that may be unset or point at a
// deleted image; both cases yield nil.
func (s *service) optionalImage(ctx context.Context, id *uuid.UUID) (*Image, error) {
	if id == nil {
		return nil, nil
	}
	img, err := s.repository.GetImage(ctx, *id)
	if errors.Is(err, ErrImageNotFound) {
		return nil, nil
	}
	return img, err
}

// cleanPage validates page fields for its type and normalizes rich text and
// the body stream in place. Image ids listed in stored were already on the
// page and are not checked again, so references to deleted images stay
// editable and render as unset.
func (s *service) cleanPage(ctx context.Context, page *Page, stored []uuid.UUID) error {
	if page.Title == "" {
		return validationError("title is required")
	}
	if page.Slug == "" {
		return validationError("slug cannot be derived from title %q", page.Title)
	}
	if page.Slug != Slugify(page.Slug) {
		return validationError("slug %q may only contain lowercase letters, digits and hyphens", page.Slug)
	}
	if err := s.checkSlugFree(ctx, page); err != nil {
		return err
	}

	if page.Type == PageTypeBloggerHome {
		if page.Author == "" {
			return validationError("author is required")
		}
		if utf8.RuneCountInString(page.Author) > AuthorMaxLength {
			return validationError("author must be at most %d characters", AuthorMaxLength)
		}
		if page.Description != "" || page.Date != nil || len(page.Body) > 0 {
			return validationError("date, description and body only apply to posts")
		}
	} else {
		if page.Author != "" || page.BackgroundImageID != nil || page.UserImageID != nil || page.Intro != "" {
			return validationError("author, images and intro only apply to %s pages", PageTypeBloggerHome)
		}
	}
	if page.Type != PageTypeParallax && (page.Parallax1ID != nil || page.Parallax2ID != nil) {
		return validationError("parallax images only apply to %s pages", PageTypeParallax)
	}

	page.Intro = richtext.Clean(page.Intro)
	page.Description = richtext.Clean(page.Description)

	if page.Type.IsPost() {
		body, err := blocks.Validate(page.Body, page.Type.AllowedBlocks())
		if err != nil {
			return err
		}
		page.Body = body
	}

	for _, imageID := range page.ImageIDs() {
		if slices.Contains(stored, imageID) {
			continue
		}
		if _, err := s.repository.GetImage(ctx, imageID); err != nil {
			if errors.Is(err, ErrImageNotFound) {
				return fmt.Errorf("%w: image %s does not exist", ErrValidation, imageID)
			}
			return err
		}
	}
	return nil
}

func (s *service) checkSlugFree(ctx context.Context, page *Page) error {
	var siblings []*Page
	var err error
	if page.ParentID == nil {
		siblings, err = s.repository.ListRoots(ctx)
	} else {
		siblings, err = s.repository.ListChildren(ctx, *page.ParentID, false)
	}
	if err != nil {
		return err
	}

	for _, sibling := range siblings {
		if sibling.ID != page.ID && sibling.Slug == page.Slug {
			return fmt.Errorf("%w: %q", ErrSlugInUse, page.Slug)
		}
	}
	return nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func nilIfZero(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
