// Package site renders whole pages of the blog with Materialize markup.
package site

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/materialize-demo/pkg/blogsite"
	"github.com/tendant/materialize-demo/pkg/blogsite/blocks"
	"github.com/tendant/materialize-demo/pkg/blogsite/richtext"
)

//go:embed templates/*.tmpl
var embeddedTemplates embed.FS

// TemplatesFS exposes the embedded page templates.
func TemplatesFS() fs.FS {
	return embeddedTemplates
}

// Default Materialize assets.
const (
	DefaultStylesheet = "https://cdnjs.cloudflare.com/ajax/libs/materialize/1.0.0/css/materialize.min.css"
	DefaultScript     = "https://cdnjs.cloudflare.com/ajax/libs/materialize/1.0.0/js/materialize.min.js"
)

// Assets are the stylesheet and script every page links.
type Assets struct {
	Stylesheet string
	Script     string
}

// Renderer renders pages. It implements blogsite.PageRenderer.
type Renderer struct {
	pages      map[blogsite.PageType]*template.Template
	assets     Assets
	pageURL    func(*blogsite.Page) string
	dateFormat string
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithAssets overrides the Materialize stylesheet and script URLs.
func WithAssets(assets Assets) Option {
	return func(r *Renderer) {
		r.assets = assets
	}
}

// WithPageURL sets how links to other pages are built.
func WithPageURL(fn func(*blogsite.Page) string) Option {
	return func(r *Renderer) {
		r.pageURL = fn
	}
}

// WithDateFormat sets the layout used for post dates.
func WithDateFormat(layout string) Option {
	return func(r *Renderer) {
		r.dateFormat = layout
	}
}

// PageURLWithPrefix links pages through the HTML endpoint of the API mounted
// at prefix.
func PageURLWithPrefix(prefix string) func(*blogsite.Page) string {
	return func(p *blogsite.Page) string {
		return fmt.Sprintf("%s/pages/%s/html", prefix, p.ID)
	}
}

// New parses the embedded templates and returns a renderer.
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{
		assets:     Assets{Stylesheet: DefaultStylesheet, Script: DefaultScript},
		pageURL:    PageURLWithPrefix(""),
		dateFormat: "January 2, 2006",
	}
	for _, option := range options {
		option(r)
	}

	funcs := template.FuncMap{
		"formatDate": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.Format(r.dateFormat)
		},
	}
	base, err := template.New("layout").Funcs(funcs).ParseFS(embeddedTemplates, "templates/layout.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	r.pages = make(map[blogsite.PageType]*template.Template)
	for _, pt := range blogsite.PageTypes() {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(embeddedTemplates, "templates/"+string(pt)+".tmpl"); err != nil {
			return nil, fmt.Errorf("parse %s template: %w", pt, err)
		}
		r.pages[pt] = t
	}
	return r, nil
}

// postSummary is one entry of the home page post list.
type postSummary struct {
	Page        *blogsite.Page
	URL         string
	Description template.HTML
}

// view is the data every page template receives.
type view struct {
	Page      *blogsite.Page
	Assets    Assets
	HomeTitle string
	HomeURL   string
	Author    string

	UserImage       *blocks.ImageRef
	BackgroundImage *blocks.ImageRef
	Parallax1       *blocks.ImageRef
	Parallax2       *blocks.ImageRef

	Intro       template.HTML
	Description template.HTML
	Body        template.HTML
	Posts       []postSummary
}

// Render renders the page described by pc as a full HTML document.
func (r *Renderer) Render(ctx context.Context, pc *blogsite.PageContext, images blocks.ImageResolver) (template.HTML, error) {
	if pc == nil || pc.Page == nil {
		return "", errors.New("page context is empty")
	}
	page := pc.Page

	tmpl, ok := r.pages[page.Type]
	if !ok {
		return "", fmt.Errorf("%w: %q", blogsite.ErrInvalidPageType, page.Type)
	}

	v := view{
		Page:        page,
		Assets:      r.assets,
		HomeTitle:   page.Title,
		Author:      pc.Author,
		Intro:       richtext.Sanitize(page.Intro),
		Description: richtext.Sanitize(page.Description),
	}
	if pc.Home != nil {
		v.HomeTitle = pc.Home.Title
		if pc.Home.ID != page.ID {
			v.HomeURL = r.pageURL(pc.Home)
		}
	}

	var err error
	if v.UserImage, err = resolve(ctx, images, pc.UserImage); err != nil {
		return "", err
	}
	if v.BackgroundImage, err = resolve(ctx, images, pc.BackgroundImage); err != nil {
		return "", err
	}
	if v.Parallax1, err = resolve(ctx, images, pc.Parallax1); err != nil {
		return "", err
	}
	if v.Parallax2, err = resolve(ctx, images, pc.Parallax2); err != nil {
		return "", err
	}

	if len(page.Body) > 0 {
		if v.Body, err = blocks.NewRenderer(images).Render(ctx, page.Body); err != nil {
			return "", err
		}
	}

	for _, post := range pc.BlogPages {
		v.Posts = append(v.Posts, postSummary{
			Page:        post,
			URL:         r.pageURL(post),
			Description: richtext.Sanitize(post.Description),
		})
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", v); err != nil {
		return "", fmt.Errorf("execute %s template: %w", page.Type, err)
	}
	return template.HTML(buf.String()), nil
}

func resolve(ctx context.Context, images blocks.ImageResolver, img *blogsite.Image) (*blocks.ImageRef, error) {
	if img == nil || images == nil {
		return nil, nil
	}
	ref, err := images.ResolveImage(ctx, img.ID)
	if errors.Is(err, blocks.ErrImageUnavailable) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve image %s: %w", img.ID, err)
	}
	return &ref, nil
}

// StaticImages resolves images from a fixed table. It is useful for
// previews and tests where no storage is configured.
type StaticImages map[uuid.UUID]blocks.ImageRef

// ResolveImage implements blocks.ImageResolver.
func (s StaticImages) ResolveImage(ctx context.Context, id uuid.UUID) (blocks.ImageRef, error) {
	ref, ok := s[id]
	if !ok {
		return blocks.ImageRef{}, blocks.ErrImageUnavailable
	}
	return ref, nil
}
