package seed_test

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/materialize-demo/pkg/blogsite"
	"github.com/tendant/materialize-demo/pkg/blogsite/repo/memory"
	"github.com/tendant/materialize-demo/pkg/blogsite/seed"
	"github.com/tendant/materialize-demo/pkg/blogsite/site"
	memorystorage "github.com/tendant/materialize-demo/pkg/blogsite/storage/memory"
)

func newService(t *testing.T) blogsite.Service {
	t.Helper()
	renderer, err := site.New()
	require.NoError(t, err)

	svc, err := blogsite.New(
		blogsite.WithRepository(memory.New()),
		blogsite.WithBlobStore("memory", memorystorage.New()),
		blogsite.WithPageRenderer(renderer),
	)
	require.NoError(t, err)
	return svc
}

func TestLoad(t *testing.T) {
	fx, err := seed.Load(strings.NewReader(`
images:
  - key: me
    file: me.gif
home:
  title: Home
  author: Ada
  user_image: me
posts:
  - type: blog
    title: First
    date: 2024-05-01
    body:
      - type: h3
        value: Hello
`))
	require.NoError(t, err)

	assert.Equal(t, "Ada", fx.Home.Author)
	require.Len(t, fx.Posts, 1)
	assert.Equal(t, "2024-05-01", fx.Posts[0].Date)
	require.Len(t, fx.Posts[0].Body, 1)
	assert.Equal(t, "h3", fx.Posts[0].Body[0].Type)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "unknown field",
			doc:  "home:\n  title: Home\n  colour: red\n",
			want: "colour",
		},
		{
			name: "unknown image key",
			doc:  "home:\n  title: Home\n  user_image: missing\n",
			want: `unknown image key "missing"`,
		},
		{
			name: "duplicate image key",
			doc:  "images:\n  - {key: a, file: a.gif}\n  - {key: a, file: b.gif}\n",
			want: `duplicate image key "a"`,
		},
		{
			name: "image without file",
			doc:  "images:\n  - key: a\n",
			want: "need a key and a file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := seed.Load(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestApplyDemo(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	fx, files, err := seed.Demo()
	require.NoError(t, err)

	res, err := seed.Apply(ctx, svc, fx, files)
	require.NoError(t, err)

	require.NotNil(t, res.Home)
	assert.True(t, res.Home.Live)
	assert.Equal(t, "materialize-blog", res.Home.Slug)
	require.NotNil(t, res.Home.UserImageID)
	assert.Equal(t, res.Images["avatar"].ID, *res.Home.UserImageID)

	require.Len(t, res.Posts, 3)
	assert.Equal(t, blogsite.PageTypeBlog, res.Posts[0].Type)
	assert.True(t, res.Posts[0].Live)
	assert.False(t, res.Posts[2].Live)
	require.NotNil(t, res.Posts[1].Parallax1ID)
	assert.Equal(t, res.Images["banner"].ID, *res.Posts[1].Parallax1ID)

	live, err := svc.ListChildren(ctx, res.Home.ID, true)
	require.NoError(t, err)
	assert.Len(t, live, 2)

	html, err := svc.RenderPage(ctx, res.Home.ID)
	require.NoError(t, err)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Find(".blog-page").Length())
	assert.Equal(t, "Jane Doe", strings.TrimSpace(doc.Find("h5.author").Text()))
}

func TestApplyResolvesBlockImages(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	fx, err := seed.Load(strings.NewReader(`
images:
  - key: pic
    file: pic.gif
    title: Picture
home:
  title: Home
  author: Ada
posts:
  - type: blog
    title: Gallery
    live: true
    body:
      - type: gallery
        value:
          images: ["@pic"]
`))
	require.NoError(t, err)

	files := fstest.MapFS{"pic.gif": {Data: []byte("GIF89a")}}
	res, err := seed.Apply(ctx, svc, fx, files)
	require.NoError(t, err)

	require.Len(t, res.Posts, 1)
	body := res.Posts[0].Body
	require.Len(t, body, 1)
	assert.Contains(t, string(body[0].Value), res.Images["pic"].ID.String())
	assert.NotEmpty(t, body[0].ID)
}

func TestApplyErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing image file", func(t *testing.T) {
		fx, err := seed.Load(strings.NewReader("images:\n  - {key: a, file: a.gif}\nhome:\n  title: Home\n  author: Ada\n"))
		require.NoError(t, err)

		_, err = seed.Apply(ctx, newService(t), fx, fstest.MapFS{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `image "a"`)
	})

	t.Run("unknown block image reference", func(t *testing.T) {
		fx, err := seed.Load(strings.NewReader(`
home:
  title: Home
  author: Ada
posts:
  - type: blog
    title: Post
    body:
      - type: gallery
        value:
          images: ["@nope"]
`))
		require.NoError(t, err)

		_, err = seed.Apply(ctx, newService(t), fx, fstest.MapFS{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown image reference "@nope"`)
	})

	t.Run("invalid date", func(t *testing.T) {
		fx, err := seed.Load(strings.NewReader("home:\n  title: Home\n  author: Ada\nposts:\n  - {type: blog, title: Post, date: soon}\n"))
		require.NoError(t, err)

		_, err = seed.Apply(ctx, newService(t), fx, fstest.MapFS{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid date")
	})

	t.Run("home without author", func(t *testing.T) {
		fx, err := seed.Load(strings.NewReader("home:\n  title: Home\n"))
		require.NoError(t, err)

		_, err = seed.Apply(ctx, newService(t), fx, fstest.MapFS{})
		assert.ErrorIs(t, err, blogsite.ErrValidation)
	})
}
