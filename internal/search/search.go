// Package search scores and orders wiki pages for the client-fallback
// search path, and post-processes rows returned by the server-side
// full-text search when that path is available.
package search

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MinQueryLength gates search: shorter queries never reach the store.
	MinQueryLength = 3

	// MaxResults caps the rendered result list.
	MaxResults = 20

	exactTitleScore  = 300.0
	titleMatchScore  = 220.0
	contentHitScore  = 10.0
	recencyPerDay    = 0.001
	excerptLead      = 60
	excerptLength    = 180
)

// ErrQueryTooShort is returned for queries below MinQueryLength.
var ErrQueryTooShort = errors.New("search: query shorter than minimum length")

// Candidate is a page considered by the fallback ranking engine.
type Candidate struct {
	Title     string
	Slug      string
	Content   string
	UpdatedAt time.Time
}

// Hit is a ranked search result. The internal score is dropped before the
// hit is handed to rendering.
type Hit struct {
	Title     string
	Slug      string
	UpdatedAt time.Time
	Excerpt   string
}

var tagRe = regexp.MustCompile(`<[^>]+>`)

// Validate checks the minimum-length gate. Callers must not issue any
// store query when it fails.
func Validate(query string) error {
	if len([]rune(strings.TrimSpace(query))) < MinQueryLength {
		return ErrQueryTooShort
	}
	return nil
}

// Rank scores the candidate set against the query and returns the top
// results ordered by descending score. Ties keep input order.
func Rank(query string, candidates []Candidate) []Hit {
	q := strings.ToLower(query)

	type scored struct {
		hit   Hit
		score float64
	}
	results := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		title := strings.ToLower(c.Title)
		content := strings.ToLower(c.Content)

		var score float64
		if title == q {
			score += exactTitleScore
		}
		if idx := strings.Index(title, q); idx >= 0 {
			score += titleMatchScore - float64(idx)
		}
		score += float64(strings.Count(content, q)) * contentHitScore
		if !c.UpdatedAt.IsZero() {
			days := float64(c.UpdatedAt.UnixMilli()) / float64(24*time.Hour/time.Millisecond)
			score += days * recencyPerDay
		}

		results = append(results, scored{
			hit: Hit{
				Title:     c.Title,
				Slug:      c.Slug,
				UpdatedAt: c.UpdatedAt,
				Excerpt:   Excerpt(c.Content, q),
			},
			score: score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
	if len(results) > MaxResults {
		results = results[:MaxResults]
	}

	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = r.hit
	}
	return hits
}

// Excerpt extracts a context window around the first case-insensitive
// occurrence of query in content, with markup tags stripped. No match
// yields the empty string.
func Excerpt(content, query string) string {
	q := strings.ToLower(query)
	lower := strings.ToLower(content)
	idx := strings.Index(lower, q)
	if idx < 0 {
		return ""
	}

	// The window is byte-indexed; snap both edges to rune boundaries so a
	// multibyte character never gets split.
	start := idx - excerptLead
	if start < 0 {
		start = 0
	}
	for start > 0 && !utf8.RuneStart(content[start]) {
		start--
	}
	end := start + excerptLength
	if end > len(content) {
		end = len(content)
	}
	for end < len(content) && !utf8.RuneStart(content[end]) {
		end++
	}
	excerpt := tagRe.ReplaceAllString(content[start:end], "")
	if start > 0 {
		excerpt = "..." + excerpt
	}
	if idx+len(q) < len(content) {
		excerpt += "..."
	}
	return excerpt
}

// Row is a server-side full-text search result.
type Row struct {
	Title     string
	Slug      string
	UpdatedAt time.Time
	Snippet   string
}

// PromoteTitleMatches moves rows whose title contains the query ahead of
// the rest while keeping the server's relative order within both groups.
// This is a stable partition, not a re-score.
func PromoteTitleMatches(query string, rows []Row) []Row {
	q := strings.ToLower(query)
	out := make([]Row, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		im := strings.Contains(strings.ToLower(out[i].Title), q)
		jm := strings.Contains(strings.ToLower(out[j].Title), q)
		return im && !jm
	})
	if len(out) > MaxResults {
		out = out[:MaxResults]
	}
	return out
}
