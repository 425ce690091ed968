package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/materialize-demo/pkg/blogsite"
	"github.com/tendant/materialize-demo/pkg/blogsite/blocks"
)

// Repository implements blogsite.Repository using in-memory storage
type Repository struct {
	mu     sync.RWMutex
	pages  map[uuid.UUID]*blogsite.Page
	images map[uuid.UUID]*blogsite.Image
}

// New creates a new in-memory repository
func New() blogsite.Repository {
	return &Repository{
		pages:  make(map[uuid.UUID]*blogsite.Page),
		images: make(map[uuid.UUID]*blogsite.Image),
	}
}

// copyPage returns a deep enough copy that callers cannot mutate stored state
func copyPage(p *blogsite.Page) *blogsite.Page {
	c := *p
	if p.Body != nil {
		c.Body = make(blocks.Stream, len(p.Body))
		for i, b := range p.Body {
			b.Value = append([]byte(nil), b.Value...)
			c.Body[i] = b
		}
	}
	return &c
}

// Page operations

func (r *Repository) CreatePage(ctx context.Context, page *blogsite.Page) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pages[page.ID] = copyPage(page)
	return nil
}

func (r *Repository) GetPage(ctx context.Context, id uuid.UUID) (*blogsite.Page, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	page, exists := r.pages[id]
	if !exists || page.DeletedAt != nil {
		return nil, blogsite.ErrPageNotFound
	}
	return copyPage(page), nil
}

func (r *Repository) UpdatePage(ctx context.Context, page *blogsite.Page) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.pages[page.ID]
	if !exists || existing.DeletedAt != nil {
		return blogsite.ErrPageNotFound
	}
	r.pages[page.ID] = copyPage(page)
	return nil
}

func (r *Repository) DeletePage(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	page, exists := r.pages[id]
	if !exists || page.DeletedAt != nil {
		return blogsite.ErrPageNotFound
	}

	now := time.Now().UTC()
	page.DeletedAt = &now
	page.Live = false
	page.UpdatedAt = now
	return nil
}

func (r *Repository) ListChildren(ctx context.Context, parentID uuid.UUID, liveOnly bool) ([]*blogsite.Page, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*blogsite.Page
	for _, page := range r.pages {
		if page.DeletedAt != nil || page.ParentID == nil || *page.ParentID != parentID {
			continue
		}
		if liveOnly && !page.Live {
			continue
		}
		result = append(result, copyPage(page))
	}

	sortByPublication(result)
	return result, nil
}

func (r *Repository) ListRoots(ctx context.Context) ([]*blogsite.Page, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*blogsite.Page
	for _, page := range r.pages {
		if page.DeletedAt == nil && page.ParentID == nil {
			result = append(result, copyPage(page))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// sortByPublication orders pages by first publication, newest first, with
// unpublished pages last, newest created first.
func sortByPublication(pages []*blogsite.Page) {
	sort.SliceStable(pages, func(i, j int) bool {
		a, b := pages[i].FirstPublishedAt, pages[j].FirstPublishedAt
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.After(*b)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return pages[i].CreatedAt.After(pages[j].CreatedAt)
	})
}

// Image operations

func (r *Repository) CreateImage(ctx context.Context, image *blogsite.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	imageCopy := *image
	r.images[image.ID] = &imageCopy
	return nil
}

func (r *Repository) GetImage(ctx context.Context, id uuid.UUID) (*blogsite.Image, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	image, exists := r.images[id]
	if !exists {
		return nil, blogsite.ErrImageNotFound
	}
	imageCopy := *image
	return &imageCopy, nil
}

func (r *Repository) ListImages(ctx context.Context) ([]*blogsite.Image, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*blogsite.Image, 0, len(r.images))
	for _, image := range r.images {
		imageCopy := *image
		result = append(result, &imageCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *Repository) DeleteImage(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.images[id]; !exists {
		return blogsite.ErrImageNotFound
	}
	delete(r.images, id)
	return nil
}
