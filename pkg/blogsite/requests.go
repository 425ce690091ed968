package blogsite

import (
	"time"

	"github.com/google/uuid"
	"github.com/tendant/materialize-demo/pkg/blogsite/blocks"
)

// CreatePageRequest contains parameters for creating a page
type CreatePageRequest struct {
	ParentID *uuid.UUID
	Type     PageType
	Title    string
	Slug     string // derived from Title when empty

	Author            string
	BackgroundImageID *uuid.UUID
	UserImageID       *uuid.UUID
	Intro             string

	Date        *time.Time // defaults to today
	Description string
	Body        blocks.Stream

	Parallax1ID *uuid.UUID
	Parallax2ID *uuid.UUID
}

// UpdatePageRequest contains the fields to change on a page. Nil fields are
// left untouched.
type UpdatePageRequest struct {
	ID    uuid.UUID
	Title *string
	Slug  *string

	Author            *string
	BackgroundImageID *uuid.UUID
	UserImageID       *uuid.UUID
	Intro             *string

	Date        *time.Time
	Description *string
	Body        *blocks.Stream

	Parallax1ID *uuid.UUID
	Parallax2ID *uuid.UUID
}

// UploadImageRequest contains parameters for uploading an image
type UploadImageRequest struct {
	Title          string
	FileName       string
	MimeType       string // detected from FileName when empty
	StorageBackend string // default backend when empty
}
