package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const pageColumns = `id, title, slug, status, content, parent_id, tags, sidebar_info, author_id, created_at, updated_at`

// SQLPageRepository is a concrete implementation of the page repository
// backed by sqlx.
type SQLPageRepository struct {
	db *sqlx.DB
}

// NewSQLPageRepository creates a new SQLPageRepository.
func NewSQLPageRepository(db *sqlx.DB) *SQLPageRepository {
	return &SQLPageRepository{db: db}
}

// CreatePage inserts a new page. The repository assigns the opaque id and
// both timestamps; the caller's page is updated in place with them.
func (r *SQLPageRepository) CreatePage(ctx context.Context, page *Page) error {
	page.ID = uuid.NewString()
	now := time.Now().UTC()
	page.CreatedAt = now
	page.UpdatedAt = now

	query := `INSERT INTO pages (` + pageColumns + `)
		VALUES (:id, :title, :slug, :status, :content, :parent_id, :tags, :sidebar_info, :author_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, page); err != nil {
		if isDuplicateErr(err) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("failed to execute create page query: %w", err)
	}
	return nil
}

// UpdatePage updates an existing page. author_id and created_at are set
// once at creation and never rewritten here.
func (r *SQLPageRepository) UpdatePage(ctx context.Context, page *Page) error {
	page.UpdatedAt = time.Now().UTC()

	query := `UPDATE pages SET title = :title, slug = :slug, status = :status, content = :content,
		parent_id = :parent_id, tags = :tags, sidebar_info = :sidebar_info, updated_at = :updated_at
		WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, page)
	if err != nil {
		if isDuplicateErr(err) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("failed to update page: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePage removes a page by its ID.
func (r *SQLPageRepository) DeletePage(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM pages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete page: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetPageByID retrieves a single page by its ID.
func (r *SQLPageRepository) GetPageByID(ctx context.Context, id string) (*Page, error) {
	var page Page
	query := `SELECT ` + pageColumns + ` FROM pages WHERE id = ?`
	if err := r.db.GetContext(ctx, &page, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get page by id: %w", err)
	}
	return &page, nil
}

// GetPageBySlug retrieves a single page by its slug. When publishedOnly is
// set, draft pages are treated as not found.
func (r *SQLPageRepository) GetPageBySlug(ctx context.Context, slug string, publishedOnly bool) (*Page, error) {
	var page Page
	query := `SELECT ` + pageColumns + ` FROM pages WHERE slug = ?`
	args := []interface{}{slug}
	if publishedOnly {
		query += ` AND status = ?`
		args = append(args, StatusPublished)
	}
	if err := r.db.GetContext(ctx, &page, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get page by slug: %w", err)
	}
	return &page, nil
}

// FindIDBySlug performs the advisory existence check used by slug
// uniqueness validation. A missing slug returns ("", nil); the unique
// constraint remains the authoritative guard.
func (r *SQLPageRepository) FindIDBySlug(ctx context.Context, slug string) (string, error) {
	var id string
	err := r.db.GetContext(ctx, &id, `SELECT id FROM pages WHERE slug = ? LIMIT 1`, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to check slug existence: %w", err)
	}
	return id, nil
}

// ListPages retrieves all pages for the admin list, most recently touched
// first.
func (r *SQLPageRepository) ListPages(ctx context.Context) ([]*Page, error) {
	var pages []*Page
	query := `SELECT ` + pageColumns + ` FROM pages ORDER BY updated_at DESC, created_at DESC`
	if err := r.db.SelectContext(ctx, &pages, query); err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	return pages, nil
}

// ListParentOptions retrieves every page as a parent-selector option,
// ordered by title.
func (r *SQLPageRepository) ListParentOptions(ctx context.Context) ([]*PageRef, error) {
	var refs []*PageRef
	query := `SELECT id, title, slug, status, parent_id, created_at, updated_at FROM pages ORDER BY title`
	if err := r.db.SelectContext(ctx, &refs, query); err != nil {
		return nil, fmt.Errorf("failed to list parent options: %w", err)
	}
	return refs, nil
}

// ListPublishedRoots retrieves published pages without a parent, ordered
// by title.
func (r *SQLPageRepository) ListPublishedRoots(ctx context.Context) ([]*PageRef, error) {
	var refs []*PageRef
	query := `SELECT id, title, slug, status, parent_id, created_at, updated_at FROM pages
		WHERE parent_id IS NULL AND status = ? ORDER BY title`
	if err := r.db.SelectContext(ctx, &refs, query, StatusPublished); err != nil {
		return nil, fmt.Errorf("failed to list root pages: %w", err)
	}
	return refs, nil
}

// ListChildren retrieves the published children of a page.
func (r *SQLPageRepository) ListChildren(ctx context.Context, parentID string) ([]*PageRef, error) {
	var refs []*PageRef
	query := `SELECT id, title, slug, status, parent_id, created_at, updated_at FROM pages
		WHERE parent_id = ? AND status = ?`
	if err := r.db.SelectContext(ctx, &refs, query, parentID, StatusPublished); err != nil {
		return nil, fmt.Errorf("failed to list child pages: %w", err)
	}
	return refs, nil
}

// ListByTag retrieves published pages carrying the given tag, most
// recently updated first. Tags live in a JSON text column, so the match
// looks for the quoted tag literal.
func (r *SQLPageRepository) ListByTag(ctx context.Context, tag string) ([]*Page, error) {
	var pages []*Page
	pattern := `%"` + tag + `"%`
	query := `SELECT ` + pageColumns + ` FROM pages
		WHERE status = ? AND tags LIKE ? ORDER BY updated_at DESC`
	if err := r.db.SelectContext(ctx, &pages, query, StatusPublished, pattern); err != nil {
		return nil, fmt.Errorf("failed to list pages by tag: %w", err)
	}
	return pages, nil
}

// SearchCandidates retrieves the published candidate set for the fallback
// search engine: case-insensitive substring match on title or content.
func (r *SQLPageRepository) SearchCandidates(ctx context.Context, query string, limit int) ([]*Page, error) {
	var pages []*Page
	pattern := "%" + strings.ToLower(query) + "%"
	q := `SELECT ` + pageColumns + ` FROM pages
		WHERE status = ? AND (LOWER(title) LIKE ? OR LOWER(content) LIKE ?) LIMIT ?`
	if err := r.db.SelectContext(ctx, &pages, q, StatusPublished, pattern, pattern, limit); err != nil {
		return nil, fmt.Errorf("failed to query search candidates: %w", err)
	}
	return pages, nil
}

// isDuplicateErr detects unique-constraint violations for both supported
// drivers.
func isDuplicateErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}
