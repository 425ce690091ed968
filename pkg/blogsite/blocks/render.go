package blocks

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"

	"github.com/google/uuid"
	"github.com/tendant/materialize-demo/pkg/blogsite/media"
	"github.com/tendant/materialize-demo/pkg/blogsite/richtext"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var blockTemplates = template.Must(template.New("blocks").ParseFS(templateFS, "templates/*.tmpl"))

// ErrImageUnavailable may be returned by an ImageResolver for images that no
// longer exist. Such images are left out of the output instead of failing
// the render.
var ErrImageUnavailable = errors.New("image unavailable")

// ImageRef is what templates need to display a stored image.
type ImageRef struct {
	URL   string
	Title string
}

// ImageResolver looks up display information for image ids referenced by
// blocks.
type ImageResolver interface {
	ResolveImage(ctx context.Context, id uuid.UUID) (ImageRef, error)
}

// ImageResolverFunc adapts a function to ImageResolver.
type ImageResolverFunc func(ctx context.Context, id uuid.UUID) (ImageRef, error)

// ResolveImage calls f.
func (f ImageResolverFunc) ResolveImage(ctx context.Context, id uuid.UUID) (ImageRef, error) {
	return f(ctx, id)
}

// Renderer turns streams into HTML. Images are resolved through the
// configured resolver; without one, image content is omitted.
type Renderer struct {
	images ImageResolver
}

// NewRenderer creates a block renderer.
func NewRenderer(images ImageResolver) *Renderer {
	return &Renderer{images: images}
}

// Render renders every block of s in order.
func (r *Renderer) Render(ctx context.Context, s Stream) (template.HTML, error) {
	var buf bytes.Buffer
	for i, b := range s {
		if err := r.renderBlock(ctx, &buf, b); err != nil {
			return "", &BlockError{Index: i, Type: b.Type, Err: err}
		}
		buf.WriteByte('\n')
	}
	return template.HTML(buf.String()), nil
}

// RenderBlock renders a single block.
func (r *Renderer) RenderBlock(ctx context.Context, b Block) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.renderBlock(ctx, &buf, b); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

func (r *Renderer) renderBlock(ctx context.Context, buf *bytes.Buffer, b Block) error {
	v, err := b.Decode()
	if err != nil {
		return err
	}

	var name string
	var data interface{}

	switch val := v.(type) {
	case Heading:
		name = "heading"
		data = struct {
			Level int
			Text  string
		}{b.Type.Level(), string(val)}
	case Paragraph:
		name, data = "paragraph", richtext.Sanitize(string(val))
	case Markdown:
		name, data = "markdown", richtext.Markdown(string(val))
	case Link:
		name, data = "link", val
	case Collection:
		name, data = "collection", val
	case Gallery:
		refs := make([]ImageRef, 0, len(val.Images))
		for _, id := range val.Images {
			ref, ok, err := r.resolve(ctx, id)
			if err != nil {
				return err
			}
			if ok {
				refs = append(refs, ref)
			}
		}
		name, data = "gallery", refs
	case Parallax:
		ref, ok, err := r.resolve(ctx, val.Image)
		if err != nil {
			return err
		}
		var image *ImageRef
		if ok {
			image = &ref
		}
		name = "parallax"
		data = struct {
			Height int
			Image  *ImageRef
		}{val.Height, image}
	case Card:
		var image *ImageRef
		if val.Image != nil {
			ref, ok, err := r.resolve(ctx, *val.Image)
			if err != nil {
				return err
			}
			if ok {
				image = &ref
			}
		}
		name = "card"
		data = struct {
			Title string
			Text  string
			Image *ImageRef
			Links []Link
		}{val.Title, val.Text, image, val.Links}
	case media.Reference:
		name = "media"
		data = struct {
			Video  bool
			Player template.HTML
		}{val.Type == media.TypeVideo, media.Render(&val)}
	default:
		return fmt.Errorf("%w: no template for %q", ErrInvalidBlock, b.Type)
	}

	return blockTemplates.ExecuteTemplate(buf, name, data)
}

func (r *Renderer) resolve(ctx context.Context, id uuid.UUID) (ImageRef, bool, error) {
	if r.images == nil {
		return ImageRef{}, false, nil
	}
	ref, err := r.images.ResolveImage(ctx, id)
	if errors.Is(err, ErrImageUnavailable) {
		return ImageRef{}, false, nil
	}
	if err != nil {
		return ImageRef{}, false, fmt.Errorf("failed to resolve image %s: %w", id, err)
	}
	return ref, true, nil
}
