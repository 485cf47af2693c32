package handler

import (
	"errors"
	"net/http"

	"go-wiki-cms/internal/config"
	"go-wiki-cms/internal/data"
	"go-wiki-cms/internal/logger"
	"go-wiki-cms/internal/middleware"
	"go-wiki-cms/internal/service"
	"go-wiki-cms/internal/view"

	"github.com/go-chi/chi/v5"
)

// homeListLimit caps each list on the welcome view.
const homeListLimit = 5

// PageHandler serves the reader-facing pages: the welcome view, the wiki
// page view and tag listings.
type PageHandler struct {
	pageService *service.PageService
	view        *view.View
	site        config.SiteConfig
	log         logger.Logger
}

// NewPageHandler creates a new PageHandler with the given dependencies.
func NewPageHandler(ps *service.PageService, v *view.View, site config.SiteConfig, log logger.Logger) *PageHandler {
	return &PageHandler{
		pageService: ps,
		view:        v,
		site:        site,
		log:         log,
	}
}

// indexHandler renders the welcome view: published top-level pages plus
// the local recent-activity lists.
func (h *PageHandler) indexHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	roots, err := h.pageService.PublishedRoots(r.Context())
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to load pages", Code: http.StatusInternalServerError}
	}
	recent, err := h.pageService.RecentPages(r.Context(), homeListLimit)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to load pages", Code: http.StatusInternalServerError}
	}
	visits, clicks := h.pageService.RecentActivity(homeListLimit)

	data := map[string]interface{}{
		"Site":         h.site,
		"UserInfo":     middleware.GetUserInfo(r.Context()),
		"Roots":        roots,
		"RecentPages":  recent,
		"RecentVisits": visits,
		"SearchClicks": clicks,
	}
	if err := h.view.Render(w, r, "index.html", data); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to render welcome page", Code: http.StatusInternalServerError}
	}
	return nil
}

// viewHandler renders a published page by slug: content, infobox,
// breadcrumb trail and child pages. Draft pages are not found here.
func (h *PageHandler) viewHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	slug := chi.URLParam(r, "slug")

	pv, err := h.pageService.ViewPage(r.Context(), slug)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return &middleware.AppError{Error: err, Message: "Page not found", Code: http.StatusNotFound}
		}
		return &middleware.AppError{Error: err, Message: "Failed to load page", Code: http.StatusInternalServerError}
	}

	viewData := map[string]interface{}{
		"Site":        h.site,
		"UserInfo":    middleware.GetUserInfo(r.Context()),
		"Page":        pv.Page,
		"HTML":        pv.HTML,
		"Sections":    pv.Sections,
		"RawSidebar":  pv.RawSidebar,
		"Breadcrumbs": pv.Breadcrumbs,
		"Children":    pv.Children,
	}
	if err := h.view.Render(w, r, "view.html", viewData); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to render page", Code: http.StatusInternalServerError}
	}
	return nil
}

// tagHandler lists the published pages carrying a tag.
func (h *PageHandler) tagHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	tag := chi.URLParam(r, "tag")

	pages, err := h.pageService.ListByTag(r.Context(), tag)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to load tagged pages", Code: http.StatusInternalServerError}
	}

	viewData := map[string]interface{}{
		"Site":     h.site,
		"UserInfo": middleware.GetUserInfo(r.Context()),
		"Tag":      tag,
		"Pages":    pages,
	}
	if err := h.view.Render(w, r, "tag.html", viewData); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to render tag page", Code: http.StatusInternalServerError}
	}
	return nil
}
