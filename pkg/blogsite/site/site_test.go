package site_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/materialize-demo/pkg/blogsite"
	"github.com/tendant/materialize-demo/pkg/blogsite/blocks"
	"github.com/tendant/materialize-demo/pkg/blogsite/media"
	"github.com/tendant/materialize-demo/pkg/blogsite/site"
)

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func newRenderer(t *testing.T) *site.Renderer {
	t.Helper()
	r, err := site.New(site.WithPageURL(site.PageURLWithPrefix("/api/v1")))
	require.NoError(t, err)
	return r
}

func TestRenderer_Home(t *testing.T) {
	ctx := context.Background()
	avatar := &blogsite.Image{ID: uuid.New(), Title: "Ada"}
	banner := &blogsite.Image{ID: uuid.New(), Title: "Banner"}
	images := site.StaticImages{
		avatar.ID: {URL: "/img/ada.png", Title: "Ada"},
		banner.ID: {URL: "/img/banner.jpg", Title: "Banner"},
	}

	date := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	home := &blogsite.Page{ID: uuid.New(), Type: blogsite.PageTypeBloggerHome, Title: "Ada's Blog", Author: "Ada", Intro: "<p>Hello <script>x()</script>there</p>"}
	post := &blogsite.Page{ID: uuid.New(), ParentID: &home.ID, Type: blogsite.PageTypeBlog, Title: "First", Date: &date, Description: "<p>About <b>things</b></p>"}

	pc := &blogsite.PageContext{
		Page: home, Home: home, Author: "Ada",
		UserImage: avatar, BackgroundImage: banner,
		BlogPages: []*blogsite.Page{post},
	}

	out, err := newRenderer(t).Render(ctx, pc, images)
	require.NoError(t, err)
	doc := parse(t, string(out))

	assert.Equal(t, "Ada's Blog | Ada", doc.Find("title").Text())
	assert.Equal(t, "/img/banner.jpg", doc.Find(".home-banner img").AttrOr("src", ""))
	assert.Equal(t, "/img/ada.png", doc.Find("img.author-image").AttrOr("src", ""))
	assert.Equal(t, "Ada", doc.Find("h5.author").Text())
	assert.Equal(t, 0, doc.Find("script:not([src])").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), "x()")
	}).Length())

	cards := doc.Find(".blog-page")
	require.Equal(t, 1, cards.Length())
	assert.Equal(t, "/api/v1/pages/"+post.ID.String()+"/html", cards.Find(".card-title a").AttrOr("href", ""))
	assert.Equal(t, "March 9, 2024", cards.Find(".post-date").Text())
	assert.Equal(t, "things", cards.Find(".description b").Text())
}

func TestRenderer_HomeWithoutPosts(t *testing.T) {
	home := &blogsite.Page{ID: uuid.New(), Type: blogsite.PageTypeBloggerHome, Title: "Empty", Author: "Bo"}
	out, err := newRenderer(t).Render(context.Background(), &blogsite.PageContext{Page: home, Home: home, Author: "Bo"}, nil)
	require.NoError(t, err)

	doc := parse(t, string(out))
	assert.Equal(t, 1, doc.Find(".no-posts").Length())
	assert.Equal(t, 0, doc.Find(".home-banner img").Length())
}

func TestRenderer_BlogPage(t *testing.T) {
	home := &blogsite.Page{ID: uuid.New(), Type: blogsite.PageTypeBloggerHome, Title: "Home", Author: "Ada"}
	avatar := &blogsite.Image{ID: uuid.New()}
	post := &blogsite.Page{
		ID: uuid.New(), ParentID: &home.ID, Type: blogsite.PageTypeBlog, Title: "Post",
		Body: blocks.Stream{
			blocks.MustBlock(blocks.KindH3, "Section"),
			blocks.MustBlock(blocks.KindMedia, media.Reference{Type: media.TypeAudio, FileURL: "/song.MP3"}),
		},
	}
	pc := &blogsite.PageContext{Page: post, Home: home, Author: "Ada", UserImage: avatar}
	images := site.StaticImages{avatar.ID: {URL: "/img/ada.png", Title: "Ada"}}

	out, err := newRenderer(t).Render(context.Background(), pc, images)
	require.NoError(t, err)
	doc := parse(t, string(out))

	assert.Equal(t, "/api/v1/pages/"+home.ID.String()+"/html", doc.Find("a.brand-logo").AttrOr("href", ""))
	assert.Equal(t, "Post", doc.Find("h1.header").Text())
	assert.Contains(t, doc.Find(".byline").Text(), "Ada")
	assert.Equal(t, "/img/ada.png", doc.Find(".byline img").AttrOr("src", ""))
	assert.Equal(t, "Section", doc.Find(".body h3").Text())
	assert.Equal(t, "audio/mp3", doc.Find(".body audio source").AttrOr("type", ""))
}

func TestRenderer_ParallaxPage(t *testing.T) {
	home := &blogsite.Page{ID: uuid.New(), Type: blogsite.PageTypeBloggerHome, Title: "Home"}
	top := &blogsite.Image{ID: uuid.New()}
	bottom := &blogsite.Image{ID: uuid.New()}
	page := &blogsite.Page{ID: uuid.New(), ParentID: &home.ID, Type: blogsite.PageTypeParallax, Title: "Views"}

	// bottom image was deleted from storage after the context was loaded
	images := site.StaticImages{top.ID: {URL: "/img/top.jpg"}}
	pc := &blogsite.PageContext{Page: page, Home: home, Parallax1: top, Parallax2: bottom}

	out, err := newRenderer(t).Render(context.Background(), pc, images)
	require.NoError(t, err)
	doc := parse(t, string(out))

	assert.Equal(t, "/img/top.jpg", doc.Find(".parallax-1 img").AttrOr("src", ""))
	assert.Equal(t, 1, doc.Find(".parallax-2").Length())
	assert.Equal(t, 0, doc.Find(".parallax-2 img").Length())
}

func TestRenderer_DynamicParallaxPage(t *testing.T) {
	home := &blogsite.Page{ID: uuid.New(), Type: blogsite.PageTypeBloggerHome, Title: "Home"}
	img := uuid.New()
	page := &blogsite.Page{
		ID: uuid.New(), ParentID: &home.ID, Type: blogsite.PageTypeDynamicParallax, Title: "Scroll",
		Body: blocks.Stream{blocks.MustBlock(blocks.KindParallax, blocks.Parallax{Image: img, Height: 300})},
	}
	images := site.StaticImages{img: {URL: "/img/p.jpg", Title: "P"}}

	out, err := newRenderer(t).Render(context.Background(), &blogsite.PageContext{Page: page, Home: home}, images)
	require.NoError(t, err)
	doc := parse(t, string(out))

	container := doc.Find(".body .parallax-container")
	require.Equal(t, 1, container.Length())
	assert.Contains(t, container.AttrOr("style", ""), "300px")
	assert.Equal(t, "/img/p.jpg", container.Find("img").AttrOr("src", ""))
}

func TestRenderer_Errors(t *testing.T) {
	r := newRenderer(t)

	_, err := r.Render(context.Background(), nil, nil)
	assert.Error(t, err)

	_, err = r.Render(context.Background(), &blogsite.PageContext{Page: &blogsite.Page{Type: "bogus"}}, nil)
	assert.ErrorIs(t, err, blogsite.ErrInvalidPageType)
}

func TestWithAssets(t *testing.T) {
	r, err := site.New(site.WithAssets(site.Assets{Stylesheet: "/static/m.css", Script: "/static/m.js"}))
	require.NoError(t, err)

	home := &blogsite.Page{ID: uuid.New(), Type: blogsite.PageTypeBloggerHome, Title: "Home"}
	out, err := r.Render(context.Background(), &blogsite.PageContext{Page: home, Home: home}, nil)
	require.NoError(t, err)

	doc := parse(t, string(out))
	assert.Equal(t, "/static/m.css", doc.Find("link[rel=stylesheet]").AttrOr("href", ""))
	assert.Equal(t, "/static/m.js", doc.Find("script[src]").AttrOr("src", ""))
}
