package blogsite

import (
	"context"
	"html/template"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/materialize-demo/pkg/blogsite/blocks"
)

// BlobStore defines the interface for image file storage backends
type BlobStore interface {
	// Upload stores the content of reader under objectKey
	Upload(ctx context.Context, objectKey string, reader io.Reader, mimeType string) error

	// Download opens the object for reading
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete removes the object
	Delete(ctx context.Context, objectKey string) error

	// URL returns a URL clients can fetch the object from directly, or
	// ErrDirectAccessRequired when the backend cannot provide one
	URL(ctx context.Context, objectKey string) (string, error)

	// Stat retrieves metadata for an object
	Stat(ctx context.Context, objectKey string) (*ObjectMeta, error)
}

// ObjectMeta contains metadata about an object in storage
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
}

// Repository defines the interface for page and image persistence
type Repository interface {
	// Page operations
	CreatePage(ctx context.Context, page *Page) error
	GetPage(ctx context.Context, id uuid.UUID) (*Page, error)
	UpdatePage(ctx context.Context, page *Page) error
	DeletePage(ctx context.Context, id uuid.UUID) error
	// ListChildren returns the children of parentID ordered by first
	// publication, most recent first, with never-published pages last in
	// reverse creation order.
	ListChildren(ctx context.Context, parentID uuid.UUID, liveOnly bool) ([]*Page, error)
	ListRoots(ctx context.Context) ([]*Page, error)

	// Image operations
	CreateImage(ctx context.Context, image *Image) error
	GetImage(ctx context.Context, id uuid.UUID) (*Image, error)
	ListImages(ctx context.Context) ([]*Image, error)
	DeleteImage(ctx context.Context, id uuid.UUID) error
}

// EventSink defines the interface for lifecycle notifications
type EventSink interface {
	PageCreated(ctx context.Context, page *Page) error
	PageUpdated(ctx context.Context, page *Page) error
	PagePublished(ctx context.Context, page *Page) error
	PageUnpublished(ctx context.Context, page *Page) error
	PageDeleted(ctx context.Context, pageID uuid.UUID) error
	ImageUploaded(ctx context.Context, image *Image) error
	ImageDeleted(ctx context.Context, imageID uuid.UUID) error
}

// PageRenderer turns a page and its context into a full HTML document.
type PageRenderer interface {
	Render(ctx context.Context, pc *PageContext, images blocks.ImageResolver) (template.HTML, error)
}
