// Package editor models the admin editor as an explicit state machine.
// All user actions are pure transitions on a Controller; persistence and
// presentation stay outside. This keeps dirty tracking, the slug/title
// lock coupling and the delete confirmation flow testable without any
// rendering surface.
package editor

import (
	"encoding/json"
	"errors"
	"strings"

	"go-wiki-cms/internal/data"
	"go-wiki-cms/internal/infobox"
	"go-wiki-cms/internal/slug"
)

// State enumerates the controller's phases.
type State int

const (
	// StateIdle means no page is being edited.
	StateIdle State = iota
	// StateEditing means a page (or a new-page form) is open.
	StateEditing
	// StateSaving means a save operation is in flight; the triggering
	// control is disabled meanwhile.
	StateSaving
	// StateConfirmingDelete means a destructive delete awaits explicit
	// confirmation.
	StateConfirmingDelete
	// StateDeleting means a delete operation is in flight.
	StateDeleting
)

var (
	// ErrNotEditing is returned for edits or saves outside the editing state.
	ErrNotEditing = errors.New("editor: no page is being edited")
	// ErrNoSelection is returned when delete is requested in new-page mode.
	ErrNoSelection = errors.New("editor: no existing page selected")
	// ErrBusy is returned when an operation is already in flight.
	ErrBusy = errors.New("editor: operation in flight")
	// ErrNotConfirming is returned when a confirmation answer arrives
	// without a pending confirmation.
	ErrNotConfirming = errors.New("editor: no confirmation pending")
)

// Form is the editable field set of the editor.
type Form struct {
	Title    string
	Slug     string
	Status   string
	Content  string
	ParentID string
	TagsText string
	Sections []infobox.Section
}

// SaveRequest is the typed snapshot handed to the persistence layer when a
// save begins.
type SaveRequest struct {
	PageID   string
	Title    string
	Slug     string
	Status   string
	Content  string
	ParentID *string
	Tags     []string
	Sidebar  json.RawMessage
}

// Controller tracks the selected page, the form, dirtiness and the
// slug-lock flag.
type Controller struct {
	state    State
	pageID   string
	form     Form
	slugLock bool
	dirty    bool
}

// New creates an idle controller.
func New() *Controller {
	return &Controller{state: StateIdle}
}

// State returns the current phase.
func (c *Controller) State() State { return c.state }

// Dirty reports whether unsaved edits exist. Hosts intercept navigation
// while this is set.
func (c *Controller) Dirty() bool { return c.dirty }

// SlugLocked reports whether the slug follows the title.
func (c *Controller) SlugLocked() bool { return c.slugLock }

// Form returns a copy of the current form.
func (c *Controller) Form() Form { return c.form }

// PageID returns the id of the selected page, or "" in new-page mode.
func (c *Controller) PageID() string { return c.pageID }

// NewPage opens an empty new-page form. The slug lock starts enabled.
func (c *Controller) NewPage() error {
	if c.state == StateSaving || c.state == StateDeleting {
		return ErrBusy
	}
	c.state = StateEditing
	c.pageID = ""
	c.form = Form{Status: data.StatusDraft}
	c.slugLock = true
	c.dirty = false
	return nil
}

// Select opens an existing page for editing. The slug lock is re-derived
// by checking whether the stored slug equals the slugified title. A
// sidebar payload that is not structured data loads as an empty builder.
func (c *Controller) Select(page *data.Page) error {
	if c.state == StateSaving || c.state == StateDeleting {
		return ErrBusy
	}
	sections, err := infobox.Decode(page.SidebarInfo)
	if err != nil {
		sections = nil
	}
	c.state = StateEditing
	c.pageID = page.ID
	parentID := ""
	if page.ParentID != nil {
		parentID = *page.ParentID
	}
	c.form = Form{
		Title:    page.Title,
		Slug:     page.Slug,
		Status:   page.Status,
		Content:  page.Content,
		ParentID: parentID,
		TagsText: strings.Join(page.Tags, ", "),
		Sections: sections,
	}
	c.slugLock = page.Slug == slug.Make(page.Title)
	c.dirty = false
	return nil
}

// SetTitle edits the title. While the slug lock is enabled the slug is
// recomputed from the new title.
func (c *Controller) SetTitle(title string) error {
	if c.state != StateEditing {
		return ErrNotEditing
	}
	c.form.Title = title
	if c.slugLock {
		c.form.Slug = slug.Make(strings.TrimSpace(title))
	}
	c.dirty = true
	return nil
}

// SetSlug edits the slug manually, which disables the lock.
func (c *Controller) SetSlug(s string) error {
	if c.state != StateEditing {
		return ErrNotEditing
	}
	c.form.Slug = s
	c.slugLock = false
	c.dirty = true
	return nil
}

// SetSlugLock toggles the lock. Re-enabling it recomputes the slug from
// the current title.
func (c *Controller) SetSlugLock(on bool) error {
	if c.state != StateEditing {
		return ErrNotEditing
	}
	c.slugLock = on
	if on {
		c.form.Slug = slug.Make(strings.TrimSpace(c.form.Title))
	}
	return nil
}

// SetStatus edits the status field.
func (c *Controller) SetStatus(status string) error {
	return c.edit(func(f *Form) { f.Status = status })
}

// SetContent edits the rich-text content.
func (c *Controller) SetContent(content string) error {
	return c.edit(func(f *Form) { f.Content = content })
}

// SetParent edits the parent reference ("" means none).
func (c *Controller) SetParent(parentID string) error {
	return c.edit(func(f *Form) { f.ParentID = parentID })
}

// SetTags edits the raw comma-separated tag text.
func (c *Controller) SetTags(tagsText string) error {
	return c.edit(func(f *Form) { f.TagsText = tagsText })
}

// SetSections replaces the infobox builder sections.
func (c *Controller) SetSections(sections []infobox.Section) error {
	return c.edit(func(f *Form) { f.Sections = sections })
}

func (c *Controller) edit(apply func(*Form)) error {
	if c.state != StateEditing {
		return ErrNotEditing
	}
	apply(&c.form)
	c.dirty = true
	return nil
}

// BeginSave snapshots the form into a SaveRequest and enters the saving
// state. The slug falls back to the slugified title when blank; tags are
// split on commas, trimmed and cleared of empties; the infobox builder is
// encoded into its storage shape. Content validation (empty title,
// unresolvable slug, role restrictions, slug uniqueness) belongs to the
// persistence service, which runs before any write.
func (c *Controller) BeginSave() (*SaveRequest, error) {
	if c.state == StateSaving || c.state == StateDeleting {
		return nil, ErrBusy
	}
	if c.state != StateEditing {
		return nil, ErrNotEditing
	}

	title := strings.TrimSpace(c.form.Title)
	finalSlug := strings.TrimSpace(c.form.Slug)
	if finalSlug == "" {
		finalSlug = slug.Make(title)
	}

	sidebar, err := infobox.Encode(c.form.Sections)
	if err != nil {
		return nil, err
	}

	var parentID *string
	if p := strings.TrimSpace(c.form.ParentID); p != "" {
		parentID = &p
	}

	req := &SaveRequest{
		PageID:   c.pageID,
		Title:    title,
		Slug:     finalSlug,
		Status:   c.form.Status,
		Content:  c.form.Content,
		ParentID: parentID,
		Tags:     SplitTags(c.form.TagsText),
		Sidebar:  sidebar,
	}
	c.state = StateSaving
	return req, nil
}

// CompleteSave records the outcome of a save. Success returns to idle with
// the dirty flag cleared; failure returns to editing with the edits (and
// the dirty flag) intact so the user can retry.
func (c *Controller) CompleteSave(err error) {
	if c.state != StateSaving {
		return
	}
	if err != nil {
		c.state = StateEditing
		return
	}
	c.state = StateIdle
	c.pageID = ""
	c.form = Form{}
	c.dirty = false
}

// BeginDelete requests deletion of the selected page and waits for
// confirmation.
func (c *Controller) BeginDelete() error {
	if c.state == StateSaving || c.state == StateDeleting {
		return ErrBusy
	}
	if c.state != StateEditing {
		return ErrNotEditing
	}
	if c.pageID == "" {
		return ErrNoSelection
	}
	c.state = StateConfirmingDelete
	return nil
}

// ConfirmDelete answers the pending confirmation. Declining (including via
// an escape gesture) resumes editing.
func (c *Controller) ConfirmDelete(confirmed bool) error {
	if c.state != StateConfirmingDelete {
		return ErrNotConfirming
	}
	if !confirmed {
		c.state = StateEditing
		return nil
	}
	c.state = StateDeleting
	return nil
}

// CompleteDelete records the outcome of a delete.
func (c *Controller) CompleteDelete(err error) {
	if c.state != StateDeleting {
		return
	}
	if err != nil {
		c.state = StateEditing
		return
	}
	c.state = StateIdle
	c.pageID = ""
	c.form = Form{}
	c.dirty = false
}

// Discard drops unsaved edits and returns to idle.
func (c *Controller) Discard() {
	if c.state == StateSaving || c.state == StateDeleting {
		return
	}
	c.state = StateIdle
	c.pageID = ""
	c.form = Form{}
	c.dirty = false
}

// SplitTags turns comma-separated free text into a tag list: split,
// trimmed, empties removed. Order is preserved for display.
func SplitTags(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	parts := strings.Split(text, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
