package blogsite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/tendant/materialize-demo/pkg/blogsite/blocks"
	"github.com/tendant/materialize-demo/pkg/blogsite/objectkey"
)

// imageMimeTypes maps accepted file extensions to their mime types.
var imageMimeTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// ImageMimeType returns the mime type for an accepted image file name.
func ImageMimeType(fileName string) (string, bool) {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(fileName), "."))
	mt, ok := imageMimeTypes[ext]
	return mt, ok
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (s *service) UploadImage(ctx context.Context, req UploadImageRequest, reader io.Reader) (*Image, error) {
	fileName := path.Base(strings.ReplaceAll(strings.TrimSpace(req.FileName), "\\", "/"))
	if fileName == "" || fileName == "." || fileName == "/" {
		return nil, validationError("file name is required")
	}

	expected, ok := ImageMimeType(fileName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, fileName)
	}
	mimeType := expected
	if req.MimeType != "" {
		mt, _, err := mime.ParseMediaType(req.MimeType)
		if err != nil || !strings.HasPrefix(mt, "image/") {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, req.MimeType)
		}
		mimeType = mt
	}

	backendName := req.StorageBackend
	if backendName == "" {
		backendName = s.defaultStore
	}
	store, err := s.getBackend(backendName)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = strings.TrimSuffix(fileName, path.Ext(fileName))
	}

	image := &Image{
		ID:             uuid.New(),
		Title:          title,
		FileName:       fileName,
		MimeType:       mimeType,
		StorageBackend: backendName,
		CreatedAt:      s.now().UTC(),
	}
	image.ObjectKey = objectkey.Generate(image.ID, fileName)

	counter := &countingReader{r: reader}
	if err := store.Upload(ctx, image.ObjectKey, counter, mimeType); err != nil {
		return nil, &StorageError{Backend: backendName, Key: image.ObjectKey, Op: "upload", Err: err}
	}
	image.FileSize = counter.n

	if err := s.repository.CreateImage(ctx, image); err != nil {
		if delErr := store.Delete(ctx, image.ObjectKey); delErr != nil {
			slog.Error("Failed to remove orphaned image file", "key", image.ObjectKey, "error", delErr)
		}
		return nil, &ImageError{ImageID: image.ID, Op: "create", Err: err}
	}

	if err := s.eventSink.ImageUploaded(ctx, image); err != nil {
		slog.Warn("Event sink failed", "event", "image_uploaded", "image_id", image.ID, "error", err)
	}
	return image, nil
}

func (s *service) GetImage(ctx context.Context, id uuid.UUID) (*Image, error) {
	return s.repository.GetImage(ctx, id)
}

func (s *service) ListImages(ctx context.Context) ([]*Image, error) {
	return s.repository.ListImages(ctx)
}

// DeleteImage removes the image record and its file. Pages that still point
// at the image render as if the reference were unset.
func (s *service) DeleteImage(ctx context.Context, id uuid.UUID) error {
	image, err := s.repository.GetImage(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repository.DeleteImage(ctx, id); err != nil {
		return &ImageError{ImageID: id, Op: "delete", Err: err}
	}

	if store, err := s.getBackend(image.StorageBackend); err == nil {
		if err := store.Delete(ctx, image.ObjectKey); err != nil && !errors.Is(err, ErrObjectNotFound) {
			slog.Error("Failed to delete image file", "image_id", id, "key", image.ObjectKey, "error", err)
		}
	}

	if err := s.eventSink.ImageDeleted(ctx, id); err != nil {
		slog.Warn("Event sink failed", "event", "image_deleted", "image_id", id, "error", err)
	}
	return nil
}

// ImageURL returns the backend's direct URL for the image, falling back to
// the service's own file endpoint.
func (s *service) ImageURL(ctx context.Context, id uuid.UUID) (string, error) {
	image, err := s.repository.GetImage(ctx, id)
	if err != nil {
		return "", err
	}
	return s.imageURL(ctx, image)
}

func (s *service) imageURL(ctx context.Context, image *Image) (string, error) {
	store, err := s.getBackend(image.StorageBackend)
	if err != nil {
		return "", err
	}

	url, err := store.URL(ctx, image.ObjectKey)
	if errors.Is(err, ErrDirectAccessRequired) {
		return fmt.Sprintf("%s/images/%s/file", s.imageURLPrefix, image.ID), nil
	}
	if err != nil {
		return "", &StorageError{Backend: image.StorageBackend, Key: image.ObjectKey, Op: "url", Err: err}
	}
	return url, nil
}

func (s *service) DownloadImage(ctx context.Context, id uuid.UUID) (io.ReadCloser, *Image, error) {
	image, err := s.repository.GetImage(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	store, err := s.getBackend(image.StorageBackend)
	if err != nil {
		return nil, nil, err
	}

	rc, err := store.Download(ctx, image.ObjectKey)
	if err != nil {
		return nil, nil, &StorageError{Backend: image.StorageBackend, Key: image.ObjectKey, Op: "download", Err: err}
	}
	return rc, image, nil
}

// ResolveImage implements blocks.ImageResolver.
func (s *service) ResolveImage(ctx context.Context, id uuid.UUID) (blocks.ImageRef, error) {
	image, err := s.repository.GetImage(ctx, id)
	if errors.Is(err, ErrImageNotFound) {
		return blocks.ImageRef{}, blocks.ErrImageUnavailable
	}
	if err != nil {
		return blocks.ImageRef{}, err
	}

	url, err := s.imageURL(ctx, image)
	if err != nil {
		return blocks.ImageRef{}, err
	}
	return blocks.ImageRef{URL: url, Title: image.Title}, nil
}

func (s *service) getBackend(name string) (BlobStore, error) {
	store, ok := s.blobStores[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrStorageBackendNotFound, name)
	}
	return store, nil
}
