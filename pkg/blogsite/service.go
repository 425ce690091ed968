package blogsite

import (
	"context"
	"html/template"
	"io"

	"github.com/google/uuid"
	"github.com/tendant/materialize-demo/pkg/blogsite/blocks"
)

// Service defines the main interface for managing and rendering the site
type Service interface {
	// Page operations
	CreatePage(ctx context.Context, req CreatePageRequest) (*Page, error)
	GetPage(ctx context.Context, id uuid.UUID) (*Page, error)
	UpdatePage(ctx context.Context, req UpdatePageRequest) (*Page, error)
	DeletePage(ctx context.Context, id uuid.UUID) error
	ListChildren(ctx context.Context, parentID uuid.UUID, liveOnly bool) ([]*Page, error)
	ListRoots(ctx context.Context) ([]*Page, error)

	// Publishing
	PublishPage(ctx context.Context, id uuid.UUID) (*Page, error)
	UnpublishPage(ctx context.Context, id uuid.UUID) (*Page, error)

	// Rendering
	GetContext(ctx context.Context, id uuid.UUID) (*PageContext, error)
	RenderPage(ctx context.Context, id uuid.UUID) (template.HTML, error)

	// Image operations
	UploadImage(ctx context.Context, req UploadImageRequest, reader io.Reader) (*Image, error)
	GetImage(ctx context.Context, id uuid.UUID) (*Image, error)
	ListImages(ctx context.Context) ([]*Image, error)
	DeleteImage(ctx context.Context, id uuid.UUID) error
	ImageURL(ctx context.Context, id uuid.UUID) (string, error)
	DownloadImage(ctx context.Context, id uuid.UUID) (io.ReadCloser, *Image, error)

	// ResolveImage lets the service act as the image resolver of block
	// renderers.
	blocks.ImageResolver
}
