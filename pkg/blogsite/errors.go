package blogsite

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tendant/materialize-demo/pkg/blogsite/blocks"
)

// Error types
var (
	// ErrPageNotFound indicates a page was not found
	ErrPageNotFound = errors.New("page not found")

	// ErrImageNotFound indicates an image was not found
	ErrImageNotFound = errors.New("image not found")

	// ErrStorageBackendNotFound indicates a storage backend was not found
	ErrStorageBackendNotFound = errors.New("storage backend not found")

	// ErrInvalidPageType indicates an unknown page type
	ErrInvalidPageType = errors.New("invalid page type")

	// ErrInvalidParent indicates a page cannot be placed below the requested parent
	ErrInvalidParent = errors.New("invalid parent page")

	// ErrInvalidBlock indicates a body block is malformed or not allowed for the page type
	ErrInvalidBlock = blocks.ErrInvalidBlock

	// ErrValidation indicates a field failed validation
	ErrValidation = errors.New("validation failed")

	// ErrSlugInUse indicates a sibling page already uses the slug
	ErrSlugInUse = errors.New("slug already in use")

	// ErrUnsupportedImage indicates an upload that is not an accepted image format
	ErrUnsupportedImage = errors.New("unsupported image format")

	// ErrDirectAccessRequired indicates a blob store cannot hand out URLs and
	// files must be streamed through the service
	ErrDirectAccessRequired = errors.New("direct access required")

	// ErrObjectNotFound indicates a blob is missing from its store
	ErrObjectNotFound = errors.New("object not found")
)

// PageError represents an error related to page operations
type PageError struct {
	PageID uuid.UUID
	Op     string
	Err    error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page operation %s failed for page %s: %v", e.Op, e.PageID, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

// ImageError represents an error related to image operations
type ImageError struct {
	ImageID uuid.UUID
	Op      string
	Err     error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("image operation %s failed for image %s: %v", e.Op, e.ImageID, e.Err)
}

func (e *ImageError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to storage operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
