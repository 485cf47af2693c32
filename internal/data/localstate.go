package data

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const (
	maxRecentVisits       = 20
	maxRecentSearchClicks = 3

	visitsKey       = "recent_visits"
	searchClicksKey = "recent_search_clicks"
)

// Visit is one entry of the recently-visited ring buffer.
type Visit struct {
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	VisitedAt time.Time `json:"visited_at"`
}

// SearchClick is one entry of the recent-search-click ring buffer.
type SearchClick struct {
	Slug      string     `json:"slug"`
	Title     string     `json:"title"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	ClickedAt time.Time  `json:"clicked_at"`
}

// LocalState persists small site-local ring buffers (recently visited
// pages, recent search clicks) in a side-car SQLite database, outside the
// remote page store. Reads and writes are read-modify-write on a single
// key; concurrent processes sharing the file race with last-write-wins.
type LocalState struct {
	db *sqlx.DB
}

// NewLocalState opens (and if necessary initializes) the state database at
// the given file path.
func NewLocalState(filePath string) (*LocalState, error) {
	db, err := sqlx.Connect("sqlite", filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to local state db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode on state db: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS local_state (
		key TEXT PRIMARY KEY,
		value BLOB
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create state schema: %w", err)
	}

	return &LocalState{db: db}, nil
}

// RecordVisit pushes a page to the front of the recently-visited list,
// removing any previous entry for the same slug and trimming to the bound.
func (s *LocalState) RecordVisit(slug, title string) error {
	var visits []Visit
	if err := s.read(visitsKey, &visits); err != nil {
		return err
	}

	next := make([]Visit, 0, len(visits)+1)
	next = append(next, Visit{Slug: slug, Title: title, VisitedAt: time.Now().UTC()})
	for _, v := range visits {
		if v.Slug == slug {
			continue
		}
		next = append(next, v)
	}
	if len(next) > maxRecentVisits {
		next = next[:maxRecentVisits]
	}
	return s.write(visitsKey, next)
}

// RecentVisits returns the newest-first visit list, at most limit entries
// (limit <= 0 returns the full bounded list).
func (s *LocalState) RecentVisits(limit int) ([]Visit, error) {
	var visits []Visit
	if err := s.read(visitsKey, &visits); err != nil {
		return nil, err
	}
	if limit > 0 && len(visits) > limit {
		visits = visits[:limit]
	}
	return visits, nil
}

// RecordSearchClick pushes a search result navigation to the front of the
// recent-search-click list, deduplicated by slug and trimmed to the bound.
func (s *LocalState) RecordSearchClick(slug, title string, updatedAt *time.Time) error {
	var clicks []SearchClick
	if err := s.read(searchClicksKey, &clicks); err != nil {
		return err
	}

	next := make([]SearchClick, 0, len(clicks)+1)
	next = append(next, SearchClick{Slug: slug, Title: title, UpdatedAt: updatedAt, ClickedAt: time.Now().UTC()})
	for _, c := range clicks {
		if c.Slug == slug {
			continue
		}
		next = append(next, c)
	}
	if len(next) > maxRecentSearchClicks {
		next = next[:maxRecentSearchClicks]
	}
	return s.write(searchClicksKey, next)
}

// RecentSearchClicks returns the newest-first recent-search-click list.
func (s *LocalState) RecentSearchClicks() ([]SearchClick, error) {
	var clicks []SearchClick
	if err := s.read(searchClicksKey, &clicks); err != nil {
		return nil, err
	}
	return clicks, nil
}

// Close closes the database connection.
func (s *LocalState) Close() error {
	return s.db.Close()
}

func (s *LocalState) read(key string, dest interface{}) error {
	var value []byte
	err := s.db.Get(&value, `SELECT value FROM local_state WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read local state %q: %w", key, err)
	}
	if len(value) == 0 {
		return nil
	}
	if err := json.Unmarshal(value, dest); err != nil {
		// Corrupt state degrades to an empty list rather than failing reads.
		return nil
	}
	return nil
}

func (s *LocalState) write(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal local state %q: %w", key, err)
	}
	query := `INSERT OR REPLACE INTO local_state (key, value) VALUES (?, ?)`
	if _, err := s.db.Exec(query, key, data); err != nil {
		return fmt.Errorf("failed to write local state %q: %w", key, err)
	}
	return nil
}
