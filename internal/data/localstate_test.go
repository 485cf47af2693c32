//go:build unit

package data

import (
	"fmt"
	"testing"
	"time"
)

// newTestState creates an in-memory local state store.
func newTestState(t *testing.T) (*LocalState, func()) {
	t.Helper()
	s, err := NewLocalState("file::memory:")
	if err != nil {
		t.Fatalf("failed to create test state store: %v", err)
	}
	teardown := func() {
		s.Close()
	}
	return s, teardown
}

func TestRecentVisits(t *testing.T) {
	t.Run("revisit moves to front without duplicate", func(t *testing.T) {
		s, teardown := newTestState(t)
		defer teardown()

		for _, slug := range []string{"a", "b", "a"} {
			if err := s.RecordVisit(slug, "Title "+slug); err != nil {
				t.Fatalf("RecordVisit(%q) failed: %v", slug, err)
			}
		}

		visits, err := s.RecentVisits(0)
		if err != nil {
			t.Fatalf("RecentVisits failed: %v", err)
		}
		if len(visits) != 2 {
			t.Fatalf("expected 2 visits, got %d", len(visits))
		}
		if visits[0].Slug != "a" || visits[1].Slug != "b" {
			t.Errorf("expected order [a b], got [%s %s]", visits[0].Slug, visits[1].Slug)
		}
	})

	t.Run("bounded at 20", func(t *testing.T) {
		s, teardown := newTestState(t)
		defer teardown()

		for i := 0; i < 30; i++ {
			if err := s.RecordVisit(fmt.Sprintf("page-%d", i), "t"); err != nil {
				t.Fatal(err)
			}
		}
		visits, err := s.RecentVisits(0)
		if err != nil {
			t.Fatal(err)
		}
		if len(visits) != 20 {
			t.Errorf("expected list capped at 20, got %d", len(visits))
		}
		if visits[0].Slug != "page-29" {
			t.Errorf("expected newest first, got %q", visits[0].Slug)
		}
	})

	t.Run("limit applies", func(t *testing.T) {
		s, teardown := newTestState(t)
		defer teardown()

		for i := 0; i < 10; i++ {
			if err := s.RecordVisit(fmt.Sprintf("page-%d", i), "t"); err != nil {
				t.Fatal(err)
			}
		}
		visits, err := s.RecentVisits(5)
		if err != nil {
			t.Fatal(err)
		}
		if len(visits) != 5 {
			t.Errorf("expected 5 visits, got %d", len(visits))
		}
	})
}

func TestRecentSearchClicks(t *testing.T) {
	s, teardown := newTestState(t)
	defer teardown()

	now := time.Now().UTC()
	for _, slug := range []string{"one", "two", "three", "four", "two"} {
		if err := s.RecordSearchClick(slug, "Title "+slug, &now); err != nil {
			t.Fatalf("RecordSearchClick(%q) failed: %v", slug, err)
		}
	}

	clicks, err := s.RecentSearchClicks()
	if err != nil {
		t.Fatalf("RecentSearchClicks failed: %v", err)
	}
	if len(clicks) != 3 {
		t.Fatalf("expected list capped at 3, got %d", len(clicks))
	}
	wantOrder := []string{"two", "four", "three"}
	for i, w := range wantOrder {
		if clicks[i].Slug != w {
			t.Errorf("position %d = %q, want %q", i, clicks[i].Slug, w)
		}
	}
}
