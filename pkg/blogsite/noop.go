package blogsite

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

// PageCreated does nothing and returns nil
func (n *NoopEventSink) PageCreated(ctx context.Context, page *Page) error {
	return nil
}

// PageUpdated does nothing and returns nil
func (n *NoopEventSink) PageUpdated(ctx context.Context, page *Page) error {
	return nil
}

// PagePublished does nothing and returns nil
func (n *NoopEventSink) PagePublished(ctx context.Context, page *Page) error {
	return nil
}

// PageUnpublished does nothing and returns nil
func (n *NoopEventSink) PageUnpublished(ctx context.Context, page *Page) error {
	return nil
}

// PageDeleted does nothing and returns nil
func (n *NoopEventSink) PageDeleted(ctx context.Context, pageID uuid.UUID) error {
	return nil
}

// ImageUploaded does nothing and returns nil
func (n *NoopEventSink) ImageUploaded(ctx context.Context, image *Image) error {
	return nil
}

// ImageDeleted does nothing and returns nil
func (n *NoopEventSink) ImageDeleted(ctx context.Context, imageID uuid.UUID) error {
	return nil
}

// LoggingEventSink writes every event to a structured logger
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink creates an event sink that logs to logger, or to the
// default logger when nil
func NewLoggingEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventSink{logger: logger}
}

func (l *LoggingEventSink) PageCreated(ctx context.Context, page *Page) error {
	l.logger.InfoContext(ctx, "Page created", "page_id", page.ID, "type", page.Type, "slug", page.Slug)
	return nil
}

func (l *LoggingEventSink) PageUpdated(ctx context.Context, page *Page) error {
	l.logger.InfoContext(ctx, "Page updated", "page_id", page.ID)
	return nil
}

func (l *LoggingEventSink) PagePublished(ctx context.Context, page *Page) error {
	l.logger.InfoContext(ctx, "Page published", "page_id", page.ID)
	return nil
}

func (l *LoggingEventSink) PageUnpublished(ctx context.Context, page *Page) error {
	l.logger.InfoContext(ctx, "Page unpublished", "page_id", page.ID)
	return nil
}

func (l *LoggingEventSink) PageDeleted(ctx context.Context, pageID uuid.UUID) error {
	l.logger.InfoContext(ctx, "Page deleted", "page_id", pageID)
	return nil
}

func (l *LoggingEventSink) ImageUploaded(ctx context.Context, image *Image) error {
	l.logger.InfoContext(ctx, "Image uploaded", "image_id", image.ID, "backend", image.StorageBackend, "size", image.FileSize)
	return nil
}

func (l *LoggingEventSink) ImageDeleted(ctx context.Context, imageID uuid.UUID) error {
	l.logger.InfoContext(ctx, "Image deleted", "image_id", imageID)
	return nil
}
