package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go-wiki-cms/internal/data"
	"go-wiki-cms/internal/editor"
	"go-wiki-cms/internal/infobox"
	"go-wiki-cms/internal/logger"
	"go-wiki-cms/internal/middleware"
	"go-wiki-cms/internal/service"
	"go-wiki-cms/internal/storage"
	"go-wiki-cms/internal/view"

	"github.com/go-chi/chi/v5"
)

// AdminHandler serves the authoring surface: the filterable page list, the
// editor form, save, delete and image upload.
type AdminHandler struct {
	pageService *service.PageService
	store       *storage.Store
	view        *view.View
	log         logger.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(ps *service.PageService, store *storage.Store, v *view.View, log logger.Logger) *AdminHandler {
	return &AdminHandler{pageService: ps, store: store, view: v, log: log}
}

// listHandler renders the admin page list, narrowed by the q filter when
// present.
func (h *AdminHandler) listHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	pages, err := h.pageService.ListPages(r.Context())
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to retrieve pages", Code: http.StatusInternalServerError}
	}
	query := r.URL.Query().Get("q")

	viewData := map[string]interface{}{
		"UserInfo": middleware.GetUserInfo(r.Context()),
		"Pages":    service.FilterPages(pages, query),
		"Query":    query,
	}
	if err := h.view.Render(w, r, "list.html", viewData); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to render page list", Code: http.StatusInternalServerError}
	}
	return nil
}

// newHandler renders an empty editor form.
func (h *AdminHandler) newHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	c := editor.New()
	if err := c.NewPage(); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to open editor", Code: http.StatusInternalServerError}
	}
	return h.renderEditor(w, r, c, "")
}

// editHandler loads an existing page into the editor form.
func (h *AdminHandler) editHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id := chi.URLParam(r, "id")
	page, err := h.pageService.GetPage(r.Context(), id)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return &middleware.AppError{Error: err, Message: "Page not found", Code: http.StatusNotFound}
		}
		return &middleware.AppError{Error: err, Message: "Failed to load page", Code: http.StatusInternalServerError}
	}

	c := editor.New()
	if err := c.Select(page); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to open editor", Code: http.StatusInternalServerError}
	}
	return h.renderEditor(w, r, c, "")
}

// saveHandler applies the posted form to a fresh editor controller and
// persists the resulting save request. Validation failures re-render the
// form with the message and the user's edits intact.
func (h *AdminHandler) saveHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if err := r.ParseForm(); err != nil {
		return &middleware.AppError{Error: err, Message: "Invalid form", Code: http.StatusBadRequest}
	}

	c, appErr := h.controllerFromForm(r)
	if appErr != nil {
		return appErr
	}

	req, err := c.BeginSave()
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to prepare save", Code: http.StatusInternalServerError}
	}

	userInfo := middleware.GetUserInfo(r.Context())
	actor := service.Actor{ID: userInfo.Subject, Role: userInfo.Role}

	page, err := h.pageService.SavePage(r.Context(), actor, req)
	c.CompleteSave(err)
	if err != nil {
		if msg, ok := saveErrorMessage(err); ok {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return h.renderEditor(w, r, c, msg)
		}
		if errors.Is(err, service.ErrPublishForbidden) {
			return &middleware.AppError{Error: err, Message: "Only admins may publish pages", Code: http.StatusForbidden}
		}
		return &middleware.AppError{Error: err, Message: "Failed to save page", Code: http.StatusInternalServerError}
	}

	http.Redirect(w, r, "/admin/edit/"+page.ID, http.StatusSeeOther)
	return nil
}

// saveErrorMessage maps recoverable validation failures to the message
// shown above the form.
func saveErrorMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, service.ErrTitleRequired):
		return "A title is required.", true
	case errors.Is(err, service.ErrSlugRequired):
		return "A slug is required.", true
	case errors.Is(err, service.ErrSlugInvalid):
		return "The slug may only contain lowercase letters, digits, hyphens and underscores.", true
	case errors.Is(err, data.ErrDuplicateSlug):
		return "Another page already uses this slug.", true
	}
	return "", false
}

// controllerFromForm rebuilds the editor state from the posted form.
func (h *AdminHandler) controllerFromForm(r *http.Request) (*editor.Controller, *middleware.AppError) {
	c := editor.New()
	if pageID := r.FormValue("page_id"); pageID != "" {
		page, err := h.pageService.GetPage(r.Context(), pageID)
		if err != nil {
			if errors.Is(err, data.ErrNotFound) {
				return nil, &middleware.AppError{Error: err, Message: "Page not found", Code: http.StatusNotFound}
			}
			return nil, &middleware.AppError{Error: err, Message: "Failed to load page", Code: http.StatusInternalServerError}
		}
		if err := c.Select(page); err != nil {
			return nil, &middleware.AppError{Error: err, Message: "Failed to open editor", Code: http.StatusInternalServerError}
		}
	} else if err := c.NewPage(); err != nil {
		return nil, &middleware.AppError{Error: err, Message: "Failed to open editor", Code: http.StatusInternalServerError}
	}

	c.SetTitle(r.FormValue("title"))
	if r.FormValue("slug_lock") == "on" {
		c.SetSlugLock(true)
	} else {
		c.SetSlug(r.FormValue("slug"))
	}
	c.SetStatus(r.FormValue("status"))
	c.SetContent(r.FormValue("content"))
	c.SetParent(r.FormValue("parent_id"))
	c.SetTags(r.FormValue("tags"))

	// The infobox builder keeps its sections in a hidden JSON field.
	if raw := r.FormValue("sections_json"); raw != "" {
		var sections []infobox.Section
		if err := json.Unmarshal([]byte(raw), &sections); err == nil {
			c.SetSections(sections)
		} else {
			h.log.Error(err, "Ignoring malformed infobox builder payload")
		}
	}
	return c, nil
}

// renderEditor renders the editor form from the controller state.
func (h *AdminHandler) renderEditor(w http.ResponseWriter, r *http.Request, c *editor.Controller, errMsg string) *middleware.AppError {
	parents, err := h.pageService.ParentOptions(r.Context(), c.PageID())
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to load parent options", Code: http.StatusInternalServerError}
	}

	form := c.Form()
	sectionsJSON, err := json.Marshal(form.Sections)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to encode infobox sections", Code: http.StatusInternalServerError}
	}

	viewData := map[string]interface{}{
		"UserInfo":     middleware.GetUserInfo(r.Context()),
		"PageID":       c.PageID(),
		"Form":         form,
		"SlugLocked":   c.SlugLocked(),
		"Parents":      parents,
		"SectionsJSON": string(sectionsJSON),
		"Error":        errMsg,
	}
	if err := h.view.Render(w, r, "edit.html", viewData); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to render editor", Code: http.StatusInternalServerError}
	}
	return nil
}

// deleteHandler removes a page. The form must carry the explicit
// confirmation flag; without it the request bounces back to the editor.
func (h *AdminHandler) deleteHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		return &middleware.AppError{Error: err, Message: "Invalid form", Code: http.StatusBadRequest}
	}
	if r.FormValue("confirm") != "true" {
		http.Redirect(w, r, "/admin/edit/"+id, http.StatusSeeOther)
		return nil
	}

	userInfo := middleware.GetUserInfo(r.Context())
	actor := service.Actor{ID: userInfo.Subject, Role: userInfo.Role}

	if err := h.pageService.DeletePage(r.Context(), actor, id); err != nil {
		if errors.Is(err, service.ErrDeleteForbidden) {
			return &middleware.AppError{Error: err, Message: "Only admins may delete pages", Code: http.StatusForbidden}
		}
		if errors.Is(err, data.ErrNotFound) {
			return &middleware.AppError{Error: err, Message: "Page not found", Code: http.StatusNotFound}
		}
		return &middleware.AppError{Error: err, Message: "Failed to delete page", Code: http.StatusInternalServerError}
	}

	http.Redirect(w, r, "/admin", http.StatusSeeOther)
	return nil
}

// uploadHandler stores an editor image upload and answers with its public
// URL as JSON for the rich-text widget.
func (h *AdminHandler) uploadHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxUploadSize)
	if err := r.ParseMultipartForm(storage.MaxUploadSize); err != nil {
		return &middleware.AppError{Error: err, Message: "Upload too large", Code: http.StatusRequestEntityTooLarge}
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return &middleware.AppError{Error: err, Message: "No image file provided", Code: http.StatusBadRequest}
	}
	defer file.Close()

	img, err := h.store.Upload(file, header.Filename)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to process image", Code: http.StatusBadRequest}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"url":    img.URL,
		"width":  img.Width,
		"height": img.Height,
	}); err != nil {
		h.log.Error(err, "Failed to write upload response")
	}
	return nil
}
