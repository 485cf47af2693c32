package data

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Page status values. Only published pages are visible to anonymous readers.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Page represents a single wiki page in the database.
type Page struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Slug        string    `db:"slug"`
	Status      string    `db:"status"`
	Content     string    `db:"content"`
	ParentID    *string   `db:"parent_id"`
	Tags        TagList   `db:"tags"`
	SidebarInfo []byte    `db:"sidebar_info"`
	AuthorID    string    `db:"author_id"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// PageRef is the projection used for lists, parent selectors and
// breadcrumb hops.
type PageRef struct {
	ID        string    `db:"id"`
	Title     string    `db:"title"`
	Slug      string    `db:"slug"`
	Status    string    `db:"status"`
	ParentID  *string   `db:"parent_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Profile carries the role attribute for an authenticated identity.
type Profile struct {
	ID   string `db:"id"`
	Role string `db:"role"`
}

// TagList stores a page's tags as a JSON array in a TEXT column. Order is
// preserved for display; matching ignores order.
type TagList []string

// Value implements driver.Valuer.
func (t TagList) Value() (driver.Value, error) {
	if len(t) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal([]string(t))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tags: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (t *TagList) Scan(src interface{}) error {
	if src == nil {
		*t = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported tags column type %T", src)
	}
	if len(data) == 0 {
		*t = nil
		return nil
	}
	var tags []string
	if err := json.Unmarshal(data, &tags); err != nil {
		return fmt.Errorf("failed to unmarshal tags: %w", err)
	}
	*t = tags
	return nil
}
