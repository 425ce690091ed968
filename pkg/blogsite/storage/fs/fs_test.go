package fs_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/materialize-demo/pkg/blogsite"
	"github.com/tendant/materialize-demo/pkg/blogsite/storage/fs"
)

// smallest valid GIF, enough for content sniffing
var gif = []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00\x00\x00\x00\xff\xff\xff!\xf9\x04\x01\x00\x00\x00\x00,\x00\x00\x00\x00\x01\x00\x01\x00\x00\x02\x02D\x01\x00;")

func TestFilesystemBackend(t *testing.T) {
	ctx := context.Background()
	baseDir := t.TempDir()

	backend, err := fs.New(fs.Config{BaseDir: baseDir, URLPrefix: "/media/"})
	require.NoError(t, err)

	key := "original_images/ab/cdef_dot.gif"

	t.Run("Upload", func(t *testing.T) {
		require.NoError(t, backend.Upload(ctx, key, bytes.NewReader(gif), "image/gif"))
		_, err := os.Stat(filepath.Join(baseDir, "original_images", "ab", "cdef_dot.gif"))
		assert.NoError(t, err)
	})

	t.Run("Download", func(t *testing.T) {
		rc, err := backend.Download(ctx, key)
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, gif, data)
	})

	t.Run("Stat", func(t *testing.T) {
		meta, err := backend.Stat(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, int64(len(gif)), meta.Size)
		assert.Equal(t, "image/gif", meta.ContentType)
		assert.Len(t, meta.ETag, 32)
	})

	t.Run("URL", func(t *testing.T) {
		url, err := backend.URL(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "/media/original_images/ab/cdef_dot.gif", url)
	})

	t.Run("Delete cleans empty directories", func(t *testing.T) {
		require.NoError(t, backend.Delete(ctx, key))
		_, err := os.Stat(filepath.Join(baseDir, "original_images"))
		assert.True(t, os.IsNotExist(err))
		_, err = os.Stat(baseDir)
		assert.NoError(t, err)

		assert.ErrorIs(t, backend.Delete(ctx, key), blogsite.ErrObjectNotFound)
		_, err = backend.Download(ctx, key)
		assert.ErrorIs(t, err, blogsite.ErrObjectNotFound)
	})

	t.Run("Rejects escaping keys", func(t *testing.T) {
		err := backend.Upload(ctx, "../outside.txt", bytes.NewReader([]byte("x")), "text/plain")
		assert.Error(t, err)
	})
}

func TestFilesystemBackend_NoURLPrefix(t *testing.T) {
	backend, err := fs.New(fs.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	_, err = backend.URL(context.Background(), "a/b.jpg")
	assert.ErrorIs(t, err, blogsite.ErrDirectAccessRequired)
}

func TestFilesystemBackend_RequiresBaseDir(t *testing.T) {
	_, err := fs.New(fs.Config{})
	assert.Error(t, err)
}
