package blogsite

import (
	"time"

	"github.com/google/uuid"
	"github.com/tendant/materialize-demo/pkg/blogsite/blocks"
)

// PageType identifies the kind of a page in the tree.
type PageType string

// Page type constants
const (
	PageTypeBloggerHome     PageType = "blogger_home"
	PageTypeBlog            PageType = "blog"
	PageTypeParallax        PageType = "parallax"
	PageTypeDynamicParallax PageType = "dynamic_parallax"
)

// PageTypes lists every known page type.
func PageTypes() []PageType {
	return []PageType{PageTypeBloggerHome, PageTypeBlog, PageTypeParallax, PageTypeDynamicParallax}
}

// IsValid reports whether t is a known page type.
func (t PageType) IsValid() bool {
	switch t {
	case PageTypeBloggerHome, PageTypeBlog, PageTypeParallax, PageTypeDynamicParallax:
		return true
	}
	return false
}

// IsPost reports whether t is one of the post types living under a
// blogger home page.
func (t PageType) IsPost() bool {
	return t == PageTypeBlog || t == PageTypeParallax || t == PageTypeDynamicParallax
}

// AuthorMaxLength bounds the home page author field.
const AuthorMaxLength = 255

// Page is a node of the page tree. Which fields are meaningful depends on
// Type: Author, the two profile images and Intro belong to blogger home
// pages; Date, Description and Body to posts; Parallax1ID and Parallax2ID
// to parallax pages only.
type Page struct {
	ID               uuid.UUID  `json:"id"`
	ParentID         *uuid.UUID `json:"parent_id,omitempty"`
	Type             PageType   `json:"type"`
	Title            string     `json:"title"`
	Slug             string     `json:"slug"`
	Live             bool       `json:"live"`
	FirstPublishedAt *time.Time `json:"first_published_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty"`

	// Blogger home fields
	Author            string     `json:"author,omitempty"`
	BackgroundImageID *uuid.UUID `json:"background_image_id,omitempty"`
	UserImageID       *uuid.UUID `json:"user_image_id,omitempty"`
	Intro             string     `json:"intro,omitempty"`

	// Post fields
	Date        *time.Time    `json:"date,omitempty"`
	Description string        `json:"description,omitempty"`
	Body        blocks.Stream `json:"body,omitempty"`

	// Parallax page fields
	Parallax1ID *uuid.UUID `json:"parallax1_id,omitempty"`
	Parallax2ID *uuid.UUID `json:"parallax2_id,omitempty"`
}

// ImageIDs returns every image the page references through its own fields
// and its body.
func (p *Page) ImageIDs() []uuid.UUID {
	var ids []uuid.UUID
	for _, id := range []*uuid.UUID{p.BackgroundImageID, p.UserImageID, p.Parallax1ID, p.Parallax2ID} {
		if id != nil {
			ids = append(ids, *id)
		}
	}
	return append(ids, p.Body.ImageIDs()...)
}

// Image is an uploaded picture stored in one of the blob stores.
type Image struct {
	ID             uuid.UUID `json:"id"`
	Title          string    `json:"title"`
	FileName       string    `json:"file_name"`
	MimeType       string    `json:"mime_type"`
	FileSize       int64     `json:"file_size"`
	ObjectKey      string    `json:"object_key"`
	StorageBackend string    `json:"storage_backend"`
	CreatedAt      time.Time `json:"created_at"`
}

// PageContext is everything a page template needs beyond the page itself.
type PageContext struct {
	Page *Page
	// Home is the blogger home page the page belongs to; the page itself for
	// home pages, nil for an orphaned post.
	Home            *Page
	Author          string
	UserImage       *Image
	BackgroundImage *Image
	Parallax1       *Image
	Parallax2       *Image
	// BlogPages holds the live children of a home page, most recently
	// published first.
	BlogPages []*Page
}
