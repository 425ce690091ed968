package memory

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"sync"
	"time"

	"github.com/tendant/materialize-demo/pkg/blogsite"
)

type object struct {
	data      []byte
	mimeType  string
	updatedAt time.Time
}

// Backend is an in-memory implementation of the blogsite.BlobStore interface
type Backend struct {
	mu      sync.RWMutex
	objects map[string]object
}

// New creates a new in-memory storage backend
func New() blogsite.BlobStore {
	return &Backend{
		objects: make(map[string]object),
	}
}

// Upload stores content in memory
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader, mimeType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[objectKey] = object{data: data, mimeType: mimeType, updatedAt: time.Now()}
	return nil
}

// Download returns a reader over a copy of the stored content
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, exists := b.objects[objectKey]
	if !exists {
		return nil, blogsite.ErrObjectNotFound
	}

	data := make([]byte, len(obj.data))
	copy(data, obj.data)
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes content from memory
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[objectKey]; !exists {
		return blogsite.ErrObjectNotFound
	}
	delete(b.objects, objectKey)
	return nil
}

// URL is not available for the memory backend
func (b *Backend) URL(ctx context.Context, objectKey string) (string, error) {
	return "", blogsite.ErrDirectAccessRequired
}

// Stat retrieves metadata for an object in memory
func (b *Backend) Stat(ctx context.Context, objectKey string) (*blogsite.ObjectMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, exists := b.objects[objectKey]
	if !exists {
		return nil, blogsite.ErrObjectNotFound
	}

	sum := md5.Sum(obj.data)
	return &blogsite.ObjectMeta{
		Key:         objectKey,
		Size:        int64(len(obj.data)),
		ContentType: obj.mimeType,
		UpdatedAt:   obj.updatedAt,
		ETag:        hex.EncodeToString(sum[:]),
	}, nil
}
