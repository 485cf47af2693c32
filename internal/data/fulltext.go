package data

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// FullTextRow is one ranked row from the server-side full-text search.
type FullTextRow struct {
	Title     string    `db:"title"`
	Slug      string    `db:"slug"`
	UpdatedAt time.Time `db:"updated_at"`
	Snippet   string    `db:"snippet"`
}

// FullTextIndex exposes the optional server-side full-text search
// capability. Only the mysql driver provides it; on sqlite every search
// returns ErrUnavailable and callers fall through to the in-process
// ranking engine.
type FullTextIndex struct {
	db        *sqlx.DB
	available bool
}

// NewFullTextIndex prepares the capability for the connected store. For
// mysql the fulltext index is created best-effort; failure to create it
// only disables this path, it is not fatal.
func NewFullTextIndex(db *sqlx.DB) *FullTextIndex {
	idx := &FullTextIndex{db: db}
	if db.DriverName() != "mysql" {
		return idx
	}
	_, err := db.Exec(`CREATE FULLTEXT INDEX idx_pages_fulltext ON pages (title, content)`)
	if err == nil || isDuplicateIndexErr(err) {
		idx.available = true
	}
	return idx
}

// Available reports whether the server-side search path can be used.
func (f *FullTextIndex) Available() bool {
	return f.available
}

// Search runs the server-side full-text query and returns ranked rows.
func (f *FullTextIndex) Search(ctx context.Context, query string, limit int) ([]FullTextRow, error) {
	if !f.available {
		return nil, ErrUnavailable
	}
	var rows []FullTextRow
	q := `SELECT title, slug, updated_at, SUBSTRING(content, 1, 180) AS snippet FROM pages
		WHERE status = ? AND MATCH(title, content) AGAINST (? IN NATURAL LANGUAGE MODE)
		LIMIT ?`
	if err := f.db.SelectContext(ctx, &rows, q, StatusPublished, query, limit); err != nil {
		return nil, fmt.Errorf("full-text search failed: %w", err)
	}
	return rows, nil
}

func isDuplicateIndexErr(err error) bool {
	// MySQL error 1061: duplicate key name.
	return err != nil && strings.Contains(err.Error(), "Duplicate key name")
}
