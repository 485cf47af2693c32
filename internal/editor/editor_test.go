//go:build unit

package editor

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"go-wiki-cms/internal/data"
	"go-wiki-cms/internal/infobox"
)

func TestSlugLockCoupling(t *testing.T) {
	t.Run("locked title edits recompute the slug", func(t *testing.T) {
		c := New()
		if err := c.NewPage(); err != nil {
			t.Fatal(err)
		}
		if err := c.SetTitle("Orta Çağ Tarihi"); err != nil {
			t.Fatal(err)
		}
		if got := c.Form().Slug; got != "orta-cag-tarihi" {
			t.Errorf("slug = %q, want %q", got, "orta-cag-tarihi")
		}
	})

	t.Run("manual slug edit disables the lock", func(t *testing.T) {
		c := New()
		c.NewPage()
		c.SetTitle("First Title")
		if err := c.SetSlug("custom-slug"); err != nil {
			t.Fatal(err)
		}
		if c.SlugLocked() {
			t.Error("manual slug edit must disable the lock")
		}
		c.SetTitle("Second Title")
		if got := c.Form().Slug; got != "custom-slug" {
			t.Errorf("unlocked slug must not follow the title, got %q", got)
		}
	})

	t.Run("selection re-derives the lock", func(t *testing.T) {
		c := New()
		matching := &data.Page{Title: "Dragon Lore", Slug: "dragon-lore", Status: data.StatusDraft}
		if err := c.Select(matching); err != nil {
			t.Fatal(err)
		}
		if !c.SlugLocked() {
			t.Error("stored slug equal to slugified title must re-enable the lock")
		}

		custom := &data.Page{Title: "Dragon Lore", Slug: "old-dragon-page", Status: data.StatusDraft}
		c.Select(custom)
		if c.SlugLocked() {
			t.Error("custom stored slug must leave the lock disabled")
		}
	})
}

func TestDirtyTracking(t *testing.T) {
	c := New()
	c.NewPage()
	if c.Dirty() {
		t.Fatal("fresh form must start clean")
	}

	edits := []func() error{
		func() error { return c.SetTitle("t") },
		func() error { return c.SetStatus(data.StatusDraft) },
		func() error { return c.SetContent("<p>x</p>") },
		func() error { return c.SetParent("p1") },
		func() error { return c.SetTags("a, b") },
		func() error { return c.SetSections([]infobox.Section{{Title: "s"}}) },
	}
	for i, edit := range edits {
		c.NewPage()
		if err := edit(); err != nil {
			t.Fatalf("edit %d failed: %v", i, err)
		}
		if !c.Dirty() {
			t.Errorf("edit %d must set the dirty flag", i)
		}
	}

	c.Discard()
	if c.Dirty() {
		t.Error("discard must clear the dirty flag")
	}
	if c.State() != StateIdle {
		t.Error("discard must return to idle")
	}
}

func TestBeginSaveSnapshot(t *testing.T) {
	c := New()
	c.NewPage()
	c.SetTitle("  Dragon Lore  ")
	c.SetStatus(data.StatusDraft)
	c.SetContent("<p>tales</p>")
	c.SetTags(" history ,, lore ,  ")
	c.SetSections([]infobox.Section{{Title: "Facts", Fields: []infobox.Field{{Key: "Era", Value: "Old"}}}})

	req, err := c.BeginSave()
	if err != nil {
		t.Fatal(err)
	}
	if req.Title != "Dragon Lore" {
		t.Errorf("title must be trimmed, got %q", req.Title)
	}
	if req.Slug != "dragon-lore" {
		t.Errorf("blank slug must derive from the title, got %q", req.Slug)
	}
	if !reflect.DeepEqual(req.Tags, []string{"history", "lore"}) {
		t.Errorf("tags = %v, want [history lore]", req.Tags)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(req.Sidebar, &obj); err != nil {
		t.Errorf("sidebar must encode as a bare object for one section: %v", err)
	}
	if c.State() != StateSaving {
		t.Error("BeginSave must enter the saving state")
	}

	// The triggering control is disabled while saving: a second save or an
	// edit must be refused.
	if _, err := c.BeginSave(); !errors.Is(err, ErrBusy) {
		t.Errorf("overlapping save must be refused, got %v", err)
	}
	if err := c.SetTitle("x"); !errors.Is(err, ErrNotEditing) {
		t.Errorf("edit while saving must be refused, got %v", err)
	}
}

func TestCompleteSave(t *testing.T) {
	t.Run("success returns to idle and clears dirtiness", func(t *testing.T) {
		c := New()
		c.NewPage()
		c.SetTitle("Page")
		if _, err := c.BeginSave(); err != nil {
			t.Fatal(err)
		}
		c.CompleteSave(nil)
		if c.State() != StateIdle || c.Dirty() {
			t.Errorf("state = %v dirty = %v, want idle and clean", c.State(), c.Dirty())
		}
	})

	t.Run("failure resumes editing with edits intact", func(t *testing.T) {
		c := New()
		c.NewPage()
		c.SetTitle("Page")
		if _, err := c.BeginSave(); err != nil {
			t.Fatal(err)
		}
		c.CompleteSave(errors.New("store down"))
		if c.State() != StateEditing {
			t.Errorf("state = %v, want editing", c.State())
		}
		if !c.Dirty() {
			t.Error("failed save must keep the dirty flag so the user can retry")
		}
		if c.Form().Title != "Page" {
			t.Error("failed save must keep the form contents")
		}
	})
}

func TestDeleteFlow(t *testing.T) {
	newSelected := func(t *testing.T) *Controller {
		t.Helper()
		c := New()
		if err := c.Select(&data.Page{ID: "p1", Title: "Doomed", Slug: "doomed", Status: data.StatusDraft}); err != nil {
			t.Fatal(err)
		}
		return c
	}

	t.Run("requires a selection", func(t *testing.T) {
		c := New()
		c.NewPage()
		if err := c.BeginDelete(); !errors.Is(err, ErrNoSelection) {
			t.Errorf("delete in new-page mode = %v, want ErrNoSelection", err)
		}
	})

	t.Run("requires confirmation", func(t *testing.T) {
		c := newSelected(t)
		if err := c.BeginDelete(); err != nil {
			t.Fatal(err)
		}
		if c.State() != StateConfirmingDelete {
			t.Fatalf("state = %v, want confirming", c.State())
		}
		if err := c.ConfirmDelete(false); err != nil {
			t.Fatal(err)
		}
		if c.State() != StateEditing {
			t.Error("declined confirmation must resume editing")
		}
	})

	t.Run("confirmed delete completes to idle", func(t *testing.T) {
		c := newSelected(t)
		c.BeginDelete()
		if err := c.ConfirmDelete(true); err != nil {
			t.Fatal(err)
		}
		if c.State() != StateDeleting {
			t.Fatalf("state = %v, want deleting", c.State())
		}
		c.CompleteDelete(nil)
		if c.State() != StateIdle || c.PageID() != "" {
			t.Error("completed delete must clear the selection")
		}
	})

	t.Run("failed delete resumes editing", func(t *testing.T) {
		c := newSelected(t)
		c.BeginDelete()
		c.ConfirmDelete(true)
		c.CompleteDelete(errors.New("store down"))
		if c.State() != StateEditing {
			t.Errorf("state = %v, want editing", c.State())
		}
	})
}

func TestSelectLoadsSidebarBuilder(t *testing.T) {
	c := New()
	page := &data.Page{
		ID:          "p1",
		Title:       "Kingdom",
		Slug:        "kingdom",
		Status:      data.StatusPublished,
		Tags:        data.TagList{"history", "lore"},
		SidebarInfo: []byte(`{"title":"Facts","fields":{"Ruler":"Elara"}}`),
	}
	if err := c.Select(page); err != nil {
		t.Fatal(err)
	}
	f := c.Form()
	if f.TagsText != "history, lore" {
		t.Errorf("tags text = %q", f.TagsText)
	}
	if len(f.Sections) != 1 || f.Sections[0].Title != "Facts" {
		t.Fatalf("sections = %+v", f.Sections)
	}
	if f.Sections[0].Fields[0].Key != "Ruler" {
		t.Errorf("legacy field map must load in order, got %+v", f.Sections[0].Fields)
	}

	// Opaque raw markup loads as an empty builder rather than failing.
	raw := &data.Page{ID: "p2", Title: "Raw", Slug: "raw", SidebarInfo: []byte("<table>old</table>")}
	if err := c.Select(raw); err != nil {
		t.Fatal(err)
	}
	if len(c.Form().Sections) != 0 {
		t.Error("unstructured sidebar must load as an empty builder")
	}
}

func TestSplitTags(t *testing.T) {
	got := SplitTags(" a, ,b ,, c ")
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitTags = %v, want %v", got, want)
	}
	if SplitTags("   ") != nil {
		t.Error("blank input must yield no tags")
	}
}
