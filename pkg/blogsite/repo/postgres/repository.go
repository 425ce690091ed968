package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/materialize-demo/pkg/blogsite"
)

// Schema creates the tables used by the repository. Every statement is
// idempotent.
//
//go:embed schema.sql
var Schema string

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements blogsite.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) blogsite.Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) blogsite.Repository {
	return &Repository{db: pool}
}

// Migrate applies Schema.
func Migrate(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "slug") {
				return blogsite.ErrSlugInUse
			}
			return fmt.Errorf("duplicate entry")
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

const pageColumns = `
	id, parent_id, page_type, title, slug, live, first_published_at,
	created_at, updated_at, deleted_at,
	author, background_image_id, user_image_id, intro,
	post_date, description, body,
	parallax1_id, parallax2_id`

func scanPage(row pgx.Row) (*blogsite.Page, error) {
	var page blogsite.Page
	err := row.Scan(
		&page.ID, &page.ParentID, &page.Type, &page.Title, &page.Slug, &page.Live, &page.FirstPublishedAt,
		&page.CreatedAt, &page.UpdatedAt, &page.DeletedAt,
		&page.Author, &page.BackgroundImageID, &page.UserImageID, &page.Intro,
		&page.Date, &page.Description, &page.Body,
		&page.Parallax1ID, &page.Parallax2ID)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (r *Repository) queryPages(ctx context.Context, operation, query string, args ...interface{}) ([]*blogsite.Page, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError(operation, err)
	}
	defer rows.Close()

	var result []*blogsite.Page
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, r.handlePostgresError(operation, err)
		}
		result = append(result, page)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError(operation, err)
	}
	return result, nil
}

// Page operations

func (r *Repository) CreatePage(ctx context.Context, page *blogsite.Page) error {
	query := `
		INSERT INTO pages (` + pageColumns + `
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err := r.db.Exec(ctx, query,
		page.ID, page.ParentID, page.Type, page.Title, page.Slug, page.Live, page.FirstPublishedAt,
		page.CreatedAt, page.UpdatedAt, page.DeletedAt,
		page.Author, page.BackgroundImageID, page.UserImageID, page.Intro,
		page.Date, page.Description, page.Body,
		page.Parallax1ID, page.Parallax2ID)
	if err != nil {
		return r.handlePostgresError("create page", err)
	}
	return nil
}

func (r *Repository) GetPage(ctx context.Context, id uuid.UUID) (*blogsite.Page, error) {
	query := `SELECT ` + pageColumns + ` FROM pages WHERE id = $1 AND deleted_at IS NULL`

	page, err := scanPage(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, blogsite.ErrPageNotFound
		}
		return nil, r.handlePostgresError("get page", err)
	}
	return page, nil
}

func (r *Repository) UpdatePage(ctx context.Context, page *blogsite.Page) error {
	query := `
		UPDATE pages SET
			parent_id = $2, page_type = $3, title = $4, slug = $5, live = $6,
			first_published_at = $7, updated_at = $8,
			author = $9, background_image_id = $10, user_image_id = $11, intro = $12,
			post_date = $13, description = $14, body = $15,
			parallax1_id = $16, parallax2_id = $17
		WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.db.Exec(ctx, query,
		page.ID, page.ParentID, page.Type, page.Title, page.Slug, page.Live,
		page.FirstPublishedAt, page.UpdatedAt,
		page.Author, page.BackgroundImageID, page.UserImageID, page.Intro,
		page.Date, page.Description, page.Body,
		page.Parallax1ID, page.Parallax2ID)
	if err != nil {
		return r.handlePostgresError("update page", err)
	}
	if tag.RowsAffected() == 0 {
		return blogsite.ErrPageNotFound
	}
	return nil
}

func (r *Repository) DeletePage(ctx context.Context, id uuid.UUID) error {
	// Soft delete: the row stays for history, the page leaves the tree
	query := `UPDATE pages SET deleted_at = NOW(), updated_at = NOW(), live = FALSE
		WHERE id = $1 AND deleted_at IS NULL`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return r.handlePostgresError("delete page", err)
	}
	if tag.RowsAffected() == 0 {
		return blogsite.ErrPageNotFound
	}
	return nil
}

func (r *Repository) ListChildren(ctx context.Context, parentID uuid.UUID, liveOnly bool) ([]*blogsite.Page, error) {
	query := `SELECT ` + pageColumns + ` FROM pages
		WHERE parent_id = $1 AND deleted_at IS NULL AND (live OR NOT $2)
		ORDER BY first_published_at DESC NULLS LAST, created_at DESC`
	return r.queryPages(ctx, "list children", query, parentID, liveOnly)
}

func (r *Repository) ListRoots(ctx context.Context) ([]*blogsite.Page, error) {
	query := `SELECT ` + pageColumns + ` FROM pages
		WHERE parent_id IS NULL AND deleted_at IS NULL
		ORDER BY created_at`
	return r.queryPages(ctx, "list roots", query)
}

// Image operations

func (r *Repository) CreateImage(ctx context.Context, image *blogsite.Image) error {
	query := `
		INSERT INTO images (
			id, title, file_name, mime_type, file_size, object_key, storage_backend, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		image.ID, image.Title, image.FileName, image.MimeType, image.FileSize,
		image.ObjectKey, image.StorageBackend, image.CreatedAt)
	if err != nil {
		return r.handlePostgresError("create image", err)
	}
	return nil
}

const imageColumns = `id, title, file_name, mime_type, file_size, object_key, storage_backend, created_at`

func scanImage(row pgx.Row) (*blogsite.Image, error) {
	var image blogsite.Image
	err := row.Scan(&image.ID, &image.Title, &image.FileName, &image.MimeType, &image.FileSize,
		&image.ObjectKey, &image.StorageBackend, &image.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &image, nil
}

func (r *Repository) GetImage(ctx context.Context, id uuid.UUID) (*blogsite.Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images WHERE id = $1`

	image, err := scanImage(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, blogsite.ErrImageNotFound
		}
		return nil, r.handlePostgresError("get image", err)
	}
	return image, nil
}

func (r *Repository) ListImages(ctx context.Context) ([]*blogsite.Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, r.handlePostgresError("list images", err)
	}
	defer rows.Close()

	var result []*blogsite.Image
	for rows.Next() {
		image, err := scanImage(rows)
		if err != nil {
			return nil, r.handlePostgresError("list images", err)
		}
		result = append(result, image)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list images", err)
	}
	return result, nil
}

func (r *Repository) DeleteImage(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM images WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("delete image", err)
	}
	if tag.RowsAffected() == 0 {
		return blogsite.ErrImageNotFound
	}
	return nil
}
