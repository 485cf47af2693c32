//go:build unit

package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"go-wiki-cms/internal/config"
	"go-wiki-cms/internal/data"
	"go-wiki-cms/internal/logger"
	"go-wiki-cms/internal/middleware"
	"go-wiki-cms/internal/service"
	"go-wiki-cms/internal/view"
	"go-wiki-cms/web"
)

// fakeSessions satisfies session.Manager without cookies or a store.
type fakeSessions struct {
	values map[string]string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{values: map[string]string{}}
}

func (f *fakeSessions) LoadAndSave(next http.Handler) http.Handler { return next }
func (f *fakeSessions) Put(ctx context.Context, key string, val interface{}) {
	if s, ok := val.(string); ok {
		f.values[key] = s
	}
}
func (f *fakeSessions) GetString(ctx context.Context, key string) string { return f.values[key] }
func (f *fakeSessions) PopString(ctx context.Context, key string) string {
	v := f.values[key]
	delete(f.values, key)
	return v
}
func (f *fakeSessions) Destroy(ctx context.Context) error {
	f.values = map[string]string{}
	return nil
}
func (f *fakeSessions) Remove(ctx context.Context, key string)        { delete(f.values, key) }
func (f *fakeSessions) RememberMe(ctx context.Context, remember bool) {}
func (f *fakeSessions) Token(ctx context.Context) string              { return "" }

// stubRepo serves a fixed page set.
type stubRepo struct {
	pages map[string]*data.Page
}

func (s *stubRepo) CreatePage(ctx context.Context, page *data.Page) error { return nil }
func (s *stubRepo) UpdatePage(ctx context.Context, page *data.Page) error { return nil }
func (s *stubRepo) DeletePage(ctx context.Context, id string) error       { return nil }

func (s *stubRepo) GetPageByID(ctx context.Context, id string) (*data.Page, error) {
	for _, p := range s.pages {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, data.ErrNotFound
}

func (s *stubRepo) GetPageBySlug(ctx context.Context, slug string, publishedOnly bool) (*data.Page, error) {
	p, ok := s.pages[slug]
	if !ok || (publishedOnly && p.Status != data.StatusPublished) {
		return nil, data.ErrNotFound
	}
	return p, nil
}

func (s *stubRepo) FindIDBySlug(ctx context.Context, slug string) (string, error) {
	if p, ok := s.pages[slug]; ok {
		return p.ID, nil
	}
	return "", nil
}

func (s *stubRepo) ListPages(ctx context.Context) ([]*data.Page, error) {
	var out []*data.Page
	for _, p := range s.pages {
		out = append(out, p)
	}
	return out, nil
}

func (s *stubRepo) ListParentOptions(ctx context.Context) ([]*data.PageRef, error) {
	return nil, nil
}

func (s *stubRepo) ListPublishedRoots(ctx context.Context) ([]*data.PageRef, error) {
	var out []*data.PageRef
	for _, p := range s.pages {
		if p.Status == data.StatusPublished && p.ParentID == nil {
			out = append(out, &data.PageRef{ID: p.ID, Title: p.Title, Slug: p.Slug})
		}
	}
	return out, nil
}

func (s *stubRepo) ListChildren(ctx context.Context, parentID string) ([]*data.PageRef, error) {
	return nil, nil
}

func (s *stubRepo) ListByTag(ctx context.Context, tag string) ([]*data.Page, error) {
	var out []*data.Page
	for _, p := range s.pages {
		for _, t := range p.Tags {
			if t == tag {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (s *stubRepo) SearchCandidates(ctx context.Context, query string, limit int) ([]*data.Page, error) {
	var out []*data.Page
	q := strings.ToLower(query)
	for _, p := range s.pages {
		if strings.Contains(strings.ToLower(p.Title), q) || strings.Contains(strings.ToLower(p.Content), q) {
			out = append(out, p)
		}
	}
	return out, nil
}

type nopLogger struct{}

func (nopLogger) Debug(string)                                {}
func (nopLogger) Info(string)                                 {}
func (nopLogger) Warn(string)                                 {}
func (nopLogger) Error(error, string)                         {}
func (nopLogger) Fatal(error, string)                         {}
func (l nopLogger) With(map[string]interface{}) logger.Logger { return l }

// setupTest wires the router over a stub store with authorization allowing
// everything, so tests exercise routing, handlers and templates.
func setupTest(t *testing.T, pages map[string]*data.Page) http.Handler {
	t.Helper()

	viewService, err := view.New(web.TemplateFS)
	if err != nil {
		t.Fatalf("failed to parse templates: %v", err)
	}

	log := nopLogger{}
	site := config.SiteConfig{Name: "Test Wiki", BaseURL: "http://wiki.test"}
	pageService := service.NewPageService(&stubRepo{pages: pages}, nil, nil, nil, log)

	allowAll := func(next http.Handler) http.Handler { return next }

	h := Handlers{
		Page:   NewPageHandler(pageService, viewService, site, log),
		Admin:  NewAdminHandler(pageService, nil, viewService, log),
		Search: NewSearchHandler(pageService, viewService, site, newFakeSessions(), log),
		Auth:   NewAuthHandler(nil, newFakeSessions(), nil, log),
		Seo:    NewSeoHandler(pageService, site),
	}
	wrap := middleware.Error(log, viewService)
	return NewRouter(h, newFakeSessions(), allowAll, wrap, web.StaticFS, t.TempDir())
}

func fixturePages() map[string]*data.Page {
	now := time.Now().UTC()
	return map[string]*data.Page{
		"dragon-lore": {
			ID: "p1", Title: "Dragon Lore", Slug: "dragon-lore",
			Status: data.StatusPublished, Content: "<p>Tales of dragon fire.</p>",
			Tags: data.TagList{"lore"}, CreatedAt: now, UpdatedAt: now,
		},
		"secret-draft": {
			ID: "p2", Title: "Secret Draft", Slug: "secret-draft",
			Status: data.StatusDraft, Content: "<p>wip</p>",
			CreatedAt: now, UpdatedAt: now,
		},
	}
}

func TestViewHandlerServesPublishedPage(t *testing.T) {
	router := setupTest(t, fixturePages())

	req := httptest.NewRequest(http.MethodGet, "/wiki/dragon-lore", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Dragon Lore") || !strings.Contains(body, "Tales of dragon fire.") {
		t.Errorf("page body missing expected content:\n%s", body)
	}
}

func TestViewHandlerHidesDrafts(t *testing.T) {
	router := setupTest(t, fixturePages())

	req := httptest.NewRequest(http.MethodGet, "/wiki/secret-draft", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("draft page status = %d, want 404", rec.Code)
	}
}

func TestSearchHandlerShortQuery(t *testing.T) {
	router := setupTest(t, fixturePages())

	req := httptest.NewRequest(http.MethodGet, "/search?q=ab", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "at least 3 characters") {
		t.Errorf("short query must render the hint:\n%s", rec.Body.String())
	}
}

func TestSearchHandlerFindsPages(t *testing.T) {
	router := setupTest(t, fixturePages())

	req := httptest.NewRequest(http.MethodGet, "/search?q=dragon", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Dragon Lore") {
		t.Errorf("search results missing hit:\n%s", rec.Body.String())
	}
}

func TestSuggestHandler(t *testing.T) {
	router := setupTest(t, fixturePages())

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=dragon", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, want application/json", ct)
	}
	if !strings.Contains(rec.Body.String(), `"slug":"dragon-lore"`) {
		t.Errorf("suggestions missing hit:\n%s", rec.Body.String())
	}

	// Short queries answer 204 without touching the store.
	req = httptest.NewRequest(http.MethodGet, "/api/search?q=ab", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("short query status = %d, want 204", rec.Code)
	}
}

// slowRepo delays candidate queries so suggest requests overlap.
type slowRepo struct {
	stubRepo
	delay time.Duration
}

func (s *slowRepo) SearchCandidates(ctx context.Context, query string, limit int) ([]*data.Page, error) {
	time.Sleep(s.delay)
	return s.stubRepo.SearchCandidates(ctx, query, limit)
}

func TestSuggestTokensScopedPerClient(t *testing.T) {
	viewService, err := view.New(web.TemplateFS)
	if err != nil {
		t.Fatalf("failed to parse templates: %v", err)
	}
	repo := &slowRepo{stubRepo: stubRepo{pages: fixturePages()}, delay: 150 * time.Millisecond}
	pageService := service.NewPageService(repo, nil, nil, nil, nopLogger{})
	h := NewSearchHandler(pageService, viewService, config.SiteConfig{Name: "Test Wiki"}, newFakeSessions(), nopLogger{})

	// Two readers suggest at the same time; neither may see the other's
	// query invalidate their own in-flight one.
	var wg sync.WaitGroup
	codes := make([]int, 2)
	for i, addr := range []string{"10.0.0.1:1111", "10.0.0.2:2222"} {
		wg.Add(1)
		go func(i int, addr string) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/api/search?q=dragon", nil)
			req.RemoteAddr = addr
			rec := httptest.NewRecorder()
			if appErr := h.suggestHandler(rec, req); appErr != nil {
				t.Errorf("suggest failed: %v", appErr.Error)
			}
			codes[i] = rec.Code
		}(i, addr)
	}
	wg.Wait()

	for i, code := range codes {
		if code != http.StatusOK {
			t.Errorf("client %d status = %d, want 200 (unrelated clients must not invalidate each other)", i, code)
		}
	}
}

func TestViewHandlerRendersLegacySidebar(t *testing.T) {
	now := time.Now().UTC()
	pages := fixturePages()
	pages["legacy-keep"] = &data.Page{
		ID: "p3", Title: "Legacy Keep", Slug: "legacy-keep",
		Status: data.StatusPublished, Content: "<p>body</p>",
		SidebarInfo: []byte("<table><tr><td>legacy-sidebar-value</td></tr></table>"),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	router := setupTest(t, pages)

	req := httptest.NewRequest(http.MethodGet, "/wiki/legacy-keep", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "legacy-sidebar-value") {
		t.Errorf("unstructured sidebar markup must be rendered:\n%s", rec.Body.String())
	}
}

func TestClickHandlerRedirects(t *testing.T) {
	router := setupTest(t, fixturePages())

	form := url.Values{"slug": {"dragon-lore"}, "title": {"Dragon Lore"}}
	req := httptest.NewRequest(http.MethodPost, "/search/click", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/wiki/dragon-lore" {
		t.Errorf("redirect = %q, want /wiki/dragon-lore", loc)
	}
}

func TestSitemapListsPublishedOnly(t *testing.T) {
	router := setupTest(t, fixturePages())

	req := httptest.NewRequest(http.MethodGet, "/sitemap.xml", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "http://wiki.test/wiki/dragon-lore") {
		t.Errorf("sitemap missing published page:\n%s", body)
	}
	if strings.Contains(body, "secret-draft") {
		t.Errorf("sitemap must not list drafts:\n%s", body)
	}
}
