package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go-wiki-cms/internal/config"
	"go-wiki-cms/internal/logger"
	"go-wiki-cms/internal/middleware"
	"go-wiki-cms/internal/search"
	"go-wiki-cms/internal/service"
	"go-wiki-cms/internal/session"
	"go-wiki-cms/internal/view"
)

// SearchHandler serves the reader search page, the live-suggest API and
// records result clicks.
type SearchHandler struct {
	pageService *service.PageService
	view        *view.View
	site        config.SiteConfig
	sessions    session.Manager
	guard       *search.Session
	log         logger.Logger
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(ps *service.PageService, v *view.View, site config.SiteConfig, sm session.Manager, log logger.Logger) *SearchHandler {
	return &SearchHandler{pageService: ps, view: v, site: site, sessions: sm, guard: search.NewSession(), log: log}
}

// searchHandler renders search results for the q parameter. Queries below
// the minimum length render the form with a hint instead of hitting the
// store.
func (h *SearchHandler) searchHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	query := r.URL.Query().Get("q")

	viewData := map[string]interface{}{
		"Site":      h.site,
		"UserInfo":  middleware.GetUserInfo(r.Context()),
		"Query":     query,
		"MinLength": search.MinQueryLength,
	}

	if query != "" {
		hits, err := h.pageService.Search(r.Context(), query)
		switch {
		case errors.Is(err, search.ErrQueryTooShort):
			viewData["TooShort"] = true
		case err != nil:
			return &middleware.AppError{Error: err, Message: "Search failed", Code: http.StatusInternalServerError}
		default:
			viewData["Hits"] = hits
			viewData["Searched"] = true
		}
	}

	if err := h.view.Render(w, r, "search.html", viewData); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to render search page", Code: http.StatusInternalServerError}
	}
	return nil
}

// suggestHandler serves the live search box as JSON. Keystrokes fire
// overlapping requests without cancelling earlier ones, so responses are
// token-guarded per client: one that finishes after the same client began
// a newer query answers 204 and the client drops it.
func (h *SearchHandler) suggestHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	query := r.URL.Query().Get("q")
	client := h.clientKey(r)
	token := h.guard.Begin(client)

	hits, err := h.pageService.Search(r.Context(), query)
	if err != nil {
		if errors.Is(err, search.ErrQueryTooShort) {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}
		return &middleware.AppError{Error: err, Message: "Search failed", Code: http.StatusInternalServerError}
	}

	if !h.guard.Accept(client, token) {
		w.WriteHeader(http.StatusNoContent)
		return nil
	}

	type suggestion struct {
		Title   string `json:"title"`
		Slug    string `json:"slug"`
		Excerpt string `json:"excerpt,omitempty"`
	}
	out := make([]suggestion, len(hits))
	for i, hit := range hits {
		out[i] = suggestion{Title: hit.Title, Slug: hit.Slug, Excerpt: hit.Excerpt}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		h.log.Error(err, "Failed to write suggestions")
	}
	return nil
}

// clientKey identifies one reader's query stream for the suggest guard.
// The session token is stable per browser; requests without a session yet
// fall back to the remote address.
func (h *SearchHandler) clientKey(r *http.Request) string {
	if tok := h.sessions.Token(r.Context()); tok != "" {
		return tok
	}
	return r.RemoteAddr
}

// clickHandler records a navigation from the search results and forwards
// the reader to the page. Recording is best effort; the redirect always
// happens.
func (h *SearchHandler) clickHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if err := r.ParseForm(); err != nil {
		return &middleware.AppError{Error: err, Message: "Invalid form", Code: http.StatusBadRequest}
	}
	slug := r.FormValue("slug")
	if slug == "" {
		return &middleware.AppError{Error: errors.New("missing slug"), Message: "Invalid form", Code: http.StatusBadRequest}
	}
	title := r.FormValue("title")

	var updatedAt *time.Time
	if raw := r.FormValue("updated_at"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			u := t.UTC()
			updatedAt = &u
		}
	}
	h.pageService.RecordSearchClick(slug, title, updatedAt)

	http.Redirect(w, r, "/wiki/"+slug, http.StatusFound)
	return nil
}
