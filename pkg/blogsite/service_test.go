package blogsite_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/materialize-demo/pkg/blogsite"
	"github.com/tendant/materialize-demo/pkg/blogsite/blocks"
	"github.com/tendant/materialize-demo/pkg/blogsite/repo/memory"
	"github.com/tendant/materialize-demo/pkg/blogsite/site"
	memorystorage "github.com/tendant/materialize-demo/pkg/blogsite/storage/memory"
)

// tickingClock advances one minute on every call so publication order is
// deterministic.
type tickingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

func TestServiceCreation(t *testing.T) {
	tests := []struct {
		name        string
		options     []blogsite.Option
		expectError bool
	}{
		{
			name:        "no options should fail",
			options:     []blogsite.Option{},
			expectError: true,
		},
		{
			name: "with repository should succeed",
			options: []blogsite.Option{
				blogsite.WithRepository(memory.New()),
			},
		},
		{
			name: "with repository and blob store should succeed",
			options: []blogsite.Option{
				blogsite.WithRepository(memory.New()),
				blogsite.WithBlobStore("memory", memorystorage.New()),
			},
		},
		{
			name: "unknown default blob store should fail",
			options: []blogsite.Option{
				blogsite.WithRepository(memory.New()),
				blogsite.WithDefaultBlobStore("s3"),
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := blogsite.New(tt.options...)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

func setupTestService(t *testing.T, extra ...blogsite.Option) blogsite.Service {
	t.Helper()

	clock := &tickingClock{now: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	renderer, err := site.New()
	require.NoError(t, err)

	options := []blogsite.Option{
		blogsite.WithRepository(memory.New()),
		blogsite.WithBlobStore("memory", memorystorage.New()),
		blogsite.WithEventSink(blogsite.NewNoopEventSink()),
		blogsite.WithPageRenderer(renderer),
		blogsite.WithClock(clock.Now),
	}
	svc, err := blogsite.New(append(options, extra...)...)
	require.NoError(t, err)
	require.NotNil(t, svc)

	return svc
}

func createHome(t *testing.T, svc blogsite.Service) *blogsite.Page {
	t.Helper()
	home, err := svc.CreatePage(context.Background(), blogsite.CreatePageRequest{
		Type:   blogsite.PageTypeBloggerHome,
		Title:  "Ada's Blog",
		Author: "Ada Lovelace",
	})
	require.NoError(t, err)
	return home
}

func createPost(t *testing.T, svc blogsite.Service, home *blogsite.Page, typ blogsite.PageType, title string) *blogsite.Page {
	t.Helper()
	post, err := svc.CreatePage(context.Background(), blogsite.CreatePageRequest{
		ParentID: &home.ID,
		Type:     typ,
		Title:    title,
	})
	require.NoError(t, err)
	return post
}

func uploadImage(t *testing.T, svc blogsite.Service, name string) *blogsite.Image {
	t.Helper()
	img, err := svc.UploadImage(context.Background(), blogsite.UploadImageRequest{FileName: name}, strings.NewReader("image-bytes"))
	require.NoError(t, err)
	return img
}

func TestCreatePage_Hierarchy(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	home := createHome(t, svc)
	post := createPost(t, svc, home, blogsite.PageTypeBlog, "Post")
	missing := uuid.New()

	tests := []struct {
		name    string
		req     blogsite.CreatePageRequest
		wantErr error
	}{
		{"post at root", blogsite.CreatePageRequest{Type: blogsite.PageTypeBlog, Title: "Root post"}, blogsite.ErrInvalidParent},
		{"home below home", blogsite.CreatePageRequest{ParentID: &home.ID, Type: blogsite.PageTypeBloggerHome, Title: "Nested", Author: "x"}, blogsite.ErrInvalidParent},
		{"post below post", blogsite.CreatePageRequest{ParentID: &post.ID, Type: blogsite.PageTypeParallax, Title: "Nested"}, blogsite.ErrInvalidParent},
		{"unknown type", blogsite.CreatePageRequest{Type: "landing", Title: "Landing"}, blogsite.ErrInvalidPageType},
		{"missing parent", blogsite.CreatePageRequest{ParentID: &missing, Type: blogsite.PageTypeBlog, Title: "Orphan"}, blogsite.ErrPageNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := svc.CreatePage(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, page)
		})
	}

	for _, typ := range home.Type.SubpageTypes() {
		t.Run("home accepts "+string(typ), func(t *testing.T) {
			page, err := svc.CreatePage(ctx, blogsite.CreatePageRequest{ParentID: &home.ID, Type: typ, Title: "Child " + string(typ)})
			require.NoError(t, err)
			assert.Equal(t, home.ID, *page.ParentID)
		})
	}
}

func TestCreatePage_Validation(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	home := createHome(t, svc)
	date := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	missingImage := uuid.New()

	tests := []struct {
		name    string
		req     blogsite.CreatePageRequest
		wantErr error
	}{
		{"home without author", blogsite.CreatePageRequest{Type: blogsite.PageTypeBloggerHome, Title: "Nobody"}, blogsite.ErrValidation},
		{"author too long", blogsite.CreatePageRequest{Type: blogsite.PageTypeBloggerHome, Title: "Long", Author: strings.Repeat("é", blogsite.AuthorMaxLength+1)}, blogsite.ErrValidation},
		{"home with date", blogsite.CreatePageRequest{Type: blogsite.PageTypeBloggerHome, Title: "Dated", Author: "x", Date: &date}, blogsite.ErrValidation},
		{"post with author", blogsite.CreatePageRequest{ParentID: &home.ID, Type: blogsite.PageTypeBlog, Title: "Authored", Author: "x"}, blogsite.ErrValidation},
		{"parallax images on blog", blogsite.CreatePageRequest{ParentID: &home.ID, Type: blogsite.PageTypeBlog, Title: "Para", Parallax1ID: &missingImage}, blogsite.ErrValidation},
		{"missing title", blogsite.CreatePageRequest{ParentID: &home.ID, Type: blogsite.PageTypeBlog}, blogsite.ErrValidation},
		{"bad slug", blogsite.CreatePageRequest{ParentID: &home.ID, Type: blogsite.PageTypeBlog, Title: "Slug", Slug: "Not A Slug"}, blogsite.ErrValidation},
		{"unknown image", blogsite.CreatePageRequest{ParentID: &home.ID, Type: blogsite.PageTypeParallax, Title: "Img", Parallax1ID: &missingImage}, blogsite.ErrValidation},
		{
			"h1 in body",
			blogsite.CreatePageRequest{ParentID: &home.ID, Type: blogsite.PageTypeBlog, Title: "H1", Body: blocks.Stream{blocks.MustBlock(blocks.KindH1, "Big")}},
			blogsite.ErrInvalidBlock,
		},
		{
			"parallax block on blog",
			blogsite.CreatePageRequest{ParentID: &home.ID, Type: blogsite.PageTypeBlog, Title: "PB", Body: blocks.Stream{blocks.MustBlock(blocks.KindParallax, blocks.Parallax{Image: uuid.New()})}},
			blogsite.ErrInvalidBlock,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := svc.CreatePage(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, page)
		})
	}
}

func TestCreatePage_Defaults(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	home := createHome(t, svc)

	assert.Equal(t, "ada-s-blog", home.Slug)
	assert.False(t, home.Live)
	assert.Nil(t, home.Date)

	post, err := svc.CreatePage(ctx, blogsite.CreatePageRequest{
		ParentID:    &home.ID,
		Type:        blogsite.PageTypeBlog,
		Title:       "Hello, World!",
		Description: `<p onclick="x()">Short <em>intro</em></p>`,
		Body: blocks.Stream{
			blocks.MustBlock(blocks.KindH3, "Start"),
			blocks.MustBlock(blocks.KindParagraph, "<p>text</p>"),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "hello-world", post.Slug)
	require.NotNil(t, post.Date)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *post.Date)
	assert.Equal(t, "<p>Short <em>intro</em></p>", post.Description)
	for _, b := range post.Body {
		assert.NotEmpty(t, b.ID)
	}

	_, err = svc.CreatePage(ctx, blogsite.CreatePageRequest{ParentID: &home.ID, Type: blogsite.PageTypeParallax, Title: "Hello world"})
	assert.ErrorIs(t, err, blogsite.ErrSlugInUse)

	dyn, err := svc.CreatePage(ctx, blogsite.CreatePageRequest{
		ParentID: &home.ID,
		Type:     blogsite.PageTypeDynamicParallax,
		Title:    "Scroll",
		Body:     blocks.Stream{blocks.MustBlock(blocks.KindParallax, blocks.Parallax{Image: uploadImage(t, svc, "p.jpg").ID})},
	})
	require.NoError(t, err)
	assert.Len(t, dyn.Body, 1)
}

func TestUpdatePage(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	home := createHome(t, svc)
	avatar := uploadImage(t, svc, "avatar.png")

	title := "Renamed"
	updated, err := svc.UpdatePage(ctx, blogsite.UpdatePageRequest{ID: home.ID, Title: &title, UserImageID: &avatar.ID})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "ada-s-blog", updated.Slug)
	require.NotNil(t, updated.UserImageID)
	assert.Equal(t, avatar.ID, *updated.UserImageID)

	cleared := uuid.Nil
	updated, err = svc.UpdatePage(ctx, blogsite.UpdatePageRequest{ID: home.ID, UserImageID: &cleared})
	require.NoError(t, err)
	assert.Nil(t, updated.UserImageID)

	empty := ""
	_, err = svc.UpdatePage(ctx, blogsite.UpdatePageRequest{ID: home.ID, Author: &empty})
	assert.ErrorIs(t, err, blogsite.ErrValidation)

	_, err = svc.UpdatePage(ctx, blogsite.UpdatePageRequest{ID: uuid.New(), Title: &title})
	assert.ErrorIs(t, err, blogsite.ErrPageNotFound)
}

func TestUpdatePage_DeletedImageReference(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	avatar := uploadImage(t, svc, "avatar.png")
	home, err := svc.CreatePage(ctx, blogsite.CreatePageRequest{
		Type:        blogsite.PageTypeBloggerHome,
		Title:       "Ada's Blog",
		Author:      "Ada Lovelace",
		UserImageID: &avatar.ID,
	})
	require.NoError(t, err)
	post := createPost(t, svc, home, blogsite.PageTypeBlog, "Post")
	body := blocks.Stream{blocks.MustBlock(blocks.KindGallery, blocks.Gallery{Images: []uuid.UUID{avatar.ID}})}
	_, err = svc.UpdatePage(ctx, blogsite.UpdatePageRequest{ID: post.ID, Body: &body})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteImage(ctx, avatar.ID))

	title := "Renamed"
	updated, err := svc.UpdatePage(ctx, blogsite.UpdatePageRequest{ID: home.ID, Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	require.NotNil(t, updated.UserImageID)
	assert.Equal(t, avatar.ID, *updated.UserImageID)

	_, err = svc.UpdatePage(ctx, blogsite.UpdatePageRequest{ID: post.ID, Title: &title})
	require.NoError(t, err)

	pc, err := svc.GetContext(ctx, home.ID)
	require.NoError(t, err)
	assert.Nil(t, pc.UserImage)

	// pointing a field at a missing image is still rejected
	missing := uuid.New()
	_, err = svc.UpdatePage(ctx, blogsite.UpdatePageRequest{ID: home.ID, BackgroundImageID: &missing})
	assert.ErrorIs(t, err, blogsite.ErrValidation)
}

func TestPublishing(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	home := createHome(t, svc)
	post := createPost(t, svc, home, blogsite.PageTypeBlog, "Post")

	published, err := svc.PublishPage(ctx, post.ID)
	require.NoError(t, err)
	assert.True(t, published.Live)
	require.NotNil(t, published.FirstPublishedAt)
	first := *published.FirstPublishedAt

	unpublished, err := svc.UnpublishPage(ctx, post.ID)
	require.NoError(t, err)
	assert.False(t, unpublished.Live)
	assert.Equal(t, first, *unpublished.FirstPublishedAt)

	again, err := svc.PublishPage(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, first, *again.FirstPublishedAt)

	_, err = svc.PublishPage(ctx, uuid.New())
	assert.ErrorIs(t, err, blogsite.ErrPageNotFound)
}

func TestGetContext(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	avatar := uploadImage(t, svc, "avatar.png")
	banner := uploadImage(t, svc, "banner.jpg")
	home, err := svc.CreatePage(ctx, blogsite.CreatePageRequest{
		Type: blogsite.PageTypeBloggerHome, Title: "Home", Author: "Ada",
		UserImageID: &avatar.ID, BackgroundImageID: &banner.ID,
	})
	require.NoError(t, err)

	first := createPost(t, svc, home, blogsite.PageTypeBlog, "First")
	second := createPost(t, svc, home, blogsite.PageTypeParallax, "Second")
	draft := createPost(t, svc, home, blogsite.PageTypeDynamicParallax, "Draft")
	_, err = svc.PublishPage(ctx, first.ID)
	require.NoError(t, err)
	_, err = svc.PublishPage(ctx, second.ID)
	require.NoError(t, err)

	t.Run("home lists live posts newest first", func(t *testing.T) {
		pc, err := svc.GetContext(ctx, home.ID)
		require.NoError(t, err)

		assert.Equal(t, home.ID, pc.Home.ID)
		assert.Equal(t, "Ada", pc.Author)
		require.NotNil(t, pc.BackgroundImage)
		assert.Equal(t, banner.ID, pc.BackgroundImage.ID)

		var ids []uuid.UUID
		for _, p := range pc.BlogPages {
			ids = append(ids, p.ID)
		}
		assert.Equal(t, []uuid.UUID{second.ID, first.ID}, ids)
		assert.NotContains(t, ids, draft.ID)
	})

	t.Run("post inherits author from home", func(t *testing.T) {
		pc, err := svc.GetContext(ctx, draft.ID)
		require.NoError(t, err)

		assert.Equal(t, "Ada", pc.Author)
		require.NotNil(t, pc.UserImage)
		assert.Equal(t, avatar.ID, pc.UserImage.ID)
		assert.Nil(t, pc.BlogPages)
		assert.Nil(t, pc.BackgroundImage)
	})

	t.Run("deleted images resolve to nil", func(t *testing.T) {
		require.NoError(t, svc.DeleteImage(ctx, avatar.ID))

		pc, err := svc.GetContext(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ada", pc.Author)
		assert.Nil(t, pc.UserImage)
	})
}

func TestDeletePage_RemovesChildren(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	home := createHome(t, svc)
	post := createPost(t, svc, home, blogsite.PageTypeBlog, "Post")

	require.NoError(t, svc.DeletePage(ctx, home.ID))

	_, err := svc.GetPage(ctx, home.ID)
	assert.ErrorIs(t, err, blogsite.ErrPageNotFound)
	_, err = svc.GetPage(ctx, post.ID)
	assert.ErrorIs(t, err, blogsite.ErrPageNotFound)
	assert.ErrorIs(t, svc.DeletePage(ctx, home.ID), blogsite.ErrPageNotFound)

	roots, err := svc.ListRoots(ctx)
	require.NoError(t, err)
	assert.Empty(t, roots)
}

func TestImages(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	img, err := svc.UploadImage(ctx, blogsite.UploadImageRequest{FileName: "Sunset Beach.JPG"}, strings.NewReader("jpeg-data"))
	require.NoError(t, err)
	assert.Equal(t, "Sunset Beach", img.Title)
	assert.Equal(t, "image/jpeg", img.MimeType)
	assert.Equal(t, int64(len("jpeg-data")), img.FileSize)
	assert.Equal(t, "memory", img.StorageBackend)
	assert.True(t, strings.HasPrefix(img.ObjectKey, "original_images/"))

	url, err := svc.ImageURL(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/images/"+img.ID.String()+"/file", url)

	rc, got, err := svc.DownloadImage(ctx, img.ID)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "jpeg-data", string(data))
	assert.Equal(t, img.ID, got.ID)

	ref, err := svc.ResolveImage(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, url, ref.URL)

	t.Run("unsupported", func(t *testing.T) {
		_, err := svc.UploadImage(ctx, blogsite.UploadImageRequest{FileName: "notes.txt"}, strings.NewReader("x"))
		assert.ErrorIs(t, err, blogsite.ErrUnsupportedImage)

		_, err = svc.UploadImage(ctx, blogsite.UploadImageRequest{FileName: "a.png", MimeType: "text/plain"}, strings.NewReader("x"))
		assert.ErrorIs(t, err, blogsite.ErrUnsupportedImage)

		_, err = svc.UploadImage(ctx, blogsite.UploadImageRequest{FileName: "a.png", StorageBackend: "s3"}, strings.NewReader("x"))
		assert.ErrorIs(t, err, blogsite.ErrStorageBackendNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, svc.DeleteImage(ctx, img.ID))

		_, err := svc.GetImage(ctx, img.ID)
		assert.ErrorIs(t, err, blogsite.ErrImageNotFound)
		_, err = svc.ResolveImage(ctx, img.ID)
		assert.ErrorIs(t, err, blocks.ErrImageUnavailable)
		assert.ErrorIs(t, svc.DeleteImage(ctx, img.ID), blogsite.ErrImageNotFound)
	})
}

func TestRenderPage(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	home := createHome(t, svc)
	post := createPost(t, svc, home, blogsite.PageTypeBlog, "Readable")
	_, err := svc.PublishPage(ctx, post.ID)
	require.NoError(t, err)

	out, err := svc.RenderPage(ctx, home.ID)
	require.NoError(t, err)
	assert.Contains(t, string(out), "Readable")
	assert.Contains(t, string(out), "/pages/"+post.ID.String()+"/html")

	_, err = svc.RenderPage(ctx, uuid.New())
	assert.ErrorIs(t, err, blogsite.ErrPageNotFound)

	bare, err := blogsite.New(blogsite.WithRepository(memory.New()))
	require.NoError(t, err)
	_, err = bare.RenderPage(ctx, home.ID)
	assert.Error(t, err)
}

type failingSink struct{}

var errSink = errors.New("sink down")

func (failingSink) PageCreated(context.Context, *blogsite.Page) error     { return errSink }
func (failingSink) PageUpdated(context.Context, *blogsite.Page) error     { return errSink }
func (failingSink) PagePublished(context.Context, *blogsite.Page) error   { return errSink }
func (failingSink) PageUnpublished(context.Context, *blogsite.Page) error { return errSink }
func (failingSink) PageDeleted(context.Context, uuid.UUID) error          { return errSink }
func (failingSink) ImageUploaded(context.Context, *blogsite.Image) error  { return errSink }
func (failingSink) ImageDeleted(context.Context, uuid.UUID) error         { return errSink }

func TestEventSinkFailuresAreNotFatal(t *testing.T) {
	svc := setupTestService(t, blogsite.WithEventSink(failingSink{}))
	ctx := context.Background()

	home := createHome(t, svc)
	_, err := svc.PublishPage(ctx, home.ID)
	require.NoError(t, err)
	_, err = svc.UnpublishPage(ctx, home.ID)
	require.NoError(t, err)
	img := uploadImage(t, svc, "a.gif")
	require.NoError(t, svc.DeleteImage(ctx, img.ID))
	require.NoError(t, svc.DeletePage(ctx, home.ID))
}

type recordingSink struct {
	blogsite.NoopEventSink
	events []string
}

func (r *recordingSink) PagePublished(_ context.Context, page *blogsite.Page) error {
	r.events = append(r.events, "published:"+page.Slug)
	return nil
}

func (r *recordingSink) PageUnpublished(_ context.Context, page *blogsite.Page) error {
	r.events = append(r.events, "unpublished:"+page.Slug)
	return nil
}

func TestPublishing_Events(t *testing.T) {
	sink := &recordingSink{}
	svc := setupTestService(t, blogsite.WithEventSink(sink))
	ctx := context.Background()
	home := createHome(t, svc)

	_, err := svc.PublishPage(ctx, home.ID)
	require.NoError(t, err)
	_, err = svc.UnpublishPage(ctx, home.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"published:ada-s-blog", "unpublished:ada-s-blog"}, sink.events)
}

func TestLoggingEventSink_Unpublished(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	svc := setupTestService(t, blogsite.WithEventSink(blogsite.NewLoggingEventSink(logger)))
	ctx := context.Background()
	home := createHome(t, svc)

	_, err := svc.UnpublishPage(ctx, home.ID)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Page unpublished")
	assert.NotContains(t, buf.String(), "Page published")
}
