// Package service provides the business logic of the wiki: page
// persistence with validation and role checks, hierarchy resolution,
// search orchestration and the reader view assembly. Handlers stay thin;
// repositories stay dumb.
package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go-wiki-cms/internal/data"
	"go-wiki-cms/internal/editor"
	"go-wiki-cms/internal/infobox"
	"go-wiki-cms/internal/logger"
	"go-wiki-cms/internal/render"
	"go-wiki-cms/internal/search"
	"go-wiki-cms/internal/slug"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Breadcrumb resolution stops after this many parent hops so that a cyclic
// or absurdly deep hierarchy cannot hang the reader view.
const maxAncestorHops = 12

// Rendered page HTML is cached per slug; saves and deletes invalidate
// eagerly, the TTL only bounds staleness across processes.
const renderCacheTTL = 15 * time.Minute

// fallbackCandidateLimit bounds the candidate set pulled for the
// in-process ranking engine.
const fallbackCandidateLimit = 100

var (
	// ErrTitleRequired is returned when a save carries an empty title.
	ErrTitleRequired = errors.New("service: title is required")
	// ErrSlugRequired is returned when neither the slug field nor the
	// title yields a usable slug.
	ErrSlugRequired = errors.New("service: slug is required")
	// ErrSlugInvalid is returned when a manually entered slug contains
	// characters outside the slug alphabet.
	ErrSlugInvalid = errors.New("service: slug may only contain lowercase letters, digits, hyphens and underscores")
	// ErrPublishForbidden is returned when a non-admin tries to save a
	// page with published status.
	ErrPublishForbidden = errors.New("service: only admins may publish pages")
	// ErrDeleteForbidden is returned when a non-admin tries to delete.
	ErrDeleteForbidden = errors.New("service: only admins may delete pages")
)

// Actor identifies the authenticated user performing a write.
type Actor struct {
	ID   string
	Role string
}

// PageRepository defines the page store operations the service needs.
type PageRepository interface {
	CreatePage(ctx context.Context, page *data.Page) error
	UpdatePage(ctx context.Context, page *data.Page) error
	DeletePage(ctx context.Context, id string) error
	GetPageByID(ctx context.Context, id string) (*data.Page, error)
	GetPageBySlug(ctx context.Context, slug string, publishedOnly bool) (*data.Page, error)
	FindIDBySlug(ctx context.Context, slug string) (string, error)
	ListPages(ctx context.Context) ([]*data.Page, error)
	ListParentOptions(ctx context.Context) ([]*data.PageRef, error)
	ListPublishedRoots(ctx context.Context) ([]*data.PageRef, error)
	ListChildren(ctx context.Context, parentID string) ([]*data.PageRef, error)
	ListByTag(ctx context.Context, tag string) ([]*data.Page, error)
	SearchCandidates(ctx context.Context, query string, limit int) ([]*data.Page, error)
}

// FullTextSearcher is the optional server-side search capability. Search
// returns data.ErrUnavailable when the capability is absent.
type FullTextSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]data.FullTextRow, error)
}

// ActivityStore records and serves the local recent-activity ring buffers.
type ActivityStore interface {
	RecordVisit(slug, title string) error
	RecentVisits(limit int) ([]data.Visit, error)
	RecordSearchClick(slug, title string, updatedAt *time.Time) error
	RecentSearchClicks() ([]data.SearchClick, error)
}

// RenderCache caches rendered page HTML keyed by slug.
type RenderCache interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
}

// PageView is the fully assembled reader view of a page. Sections and
// RawSidebar are mutually exclusive: RawSidebar carries a sanitized copy
// of a sidebar payload that is not structured data.
type PageView struct {
	Page        *data.Page
	HTML        string
	Sections    []infobox.Section
	RawSidebar  string
	Breadcrumbs []*data.PageRef
	Children    []*data.PageRef
}

// PageService provides the business logic for managing and reading pages.
type PageService struct {
	repo     PageRepository
	fulltext FullTextSearcher
	activity ActivityStore
	cache    RenderCache
	renderer *render.Pipeline
	collator *collate.Collator
	log      logger.Logger
}

// NewPageService creates a PageService. fulltext, activity and cache may
// be nil; the corresponding features degrade gracefully.
func NewPageService(repo PageRepository, fulltext FullTextSearcher, activity ActivityStore, cache RenderCache, log logger.Logger) *PageService {
	return &PageService{
		repo:     repo,
		fulltext: fulltext,
		activity: activity,
		cache:    cache,
		renderer: render.New(),
		collator: collate.New(language.Turkish),
		log:      log,
	}
}

// SavePage validates and persists a save request. Checks run in a fixed
// order: title, slug, publish permission, slug uniqueness. Only after all
// pass does the store see a write. The advisory uniqueness check keeps a
// friendly error for the common case; the store's unique constraint
// remains authoritative and surfaces as data.ErrDuplicateSlug too.
func (s *PageService) SavePage(ctx context.Context, actor Actor, req *editor.SaveRequest) (*data.Page, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, ErrTitleRequired
	}
	if req.Slug == "" {
		return nil, ErrSlugRequired
	}
	if req.Slug != slug.Make(req.Slug) {
		return nil, ErrSlugInvalid
	}
	if req.Status == data.StatusPublished && actor.Role != data.RoleAdmin {
		return nil, ErrPublishForbidden
	}

	existingID, err := s.repo.FindIDBySlug(ctx, req.Slug)
	if err != nil {
		return nil, err
	}
	if existingID != "" && existingID != req.PageID {
		return nil, data.ErrDuplicateSlug
	}

	var page *data.Page
	if req.PageID == "" {
		page = &data.Page{AuthorID: actor.ID}
	} else {
		page, err = s.repo.GetPageByID(ctx, req.PageID)
		if err != nil {
			return nil, err
		}
	}

	oldSlug := page.Slug
	page.Title = strings.TrimSpace(req.Title)
	page.Slug = req.Slug
	page.Status = req.Status
	page.Content = req.Content
	page.ParentID = req.ParentID
	page.Tags = req.Tags
	page.SidebarInfo = req.Sidebar

	if req.PageID == "" {
		err = s.repo.CreatePage(ctx, page)
	} else {
		err = s.repo.UpdatePage(ctx, page)
	}
	if err != nil {
		return nil, err
	}

	s.invalidate(page.Slug)
	if oldSlug != "" && oldSlug != page.Slug {
		s.invalidate(oldSlug)
	}
	return page, nil
}

// DeletePage removes a page. Only admins may delete; the handler layer is
// responsible for having collected an explicit confirmation first.
func (s *PageService) DeletePage(ctx context.Context, actor Actor, id string) error {
	if actor.Role != data.RoleAdmin {
		return ErrDeleteForbidden
	}
	page, err := s.repo.GetPageByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeletePage(ctx, id); err != nil {
		return err
	}
	s.invalidate(page.Slug)
	return nil
}

// GetPage retrieves a page by id for the editor.
func (s *PageService) GetPage(ctx context.Context, id string) (*data.Page, error) {
	return s.repo.GetPageByID(ctx, id)
}

// ViewPage assembles the reader view for a published page: rendered
// content (cached by slug), decoded infobox, breadcrumb chain and child
// list. The visit is recorded best-effort.
func (s *PageService) ViewPage(ctx context.Context, pageSlug string) (*PageView, error) {
	page, err := s.repo.GetPageBySlug(ctx, pageSlug, true)
	if err != nil {
		return nil, err
	}

	view := &PageView{Page: page, HTML: s.renderContent(page)}

	sections, err := infobox.Decode(page.SidebarInfo)
	switch {
	case err == nil:
		view.Sections = sections
	case errors.Is(err, infobox.ErrNotStructured):
		// Legacy pages store the sidebar as opaque markup; show it as is,
		// sanitized.
		view.RawSidebar = s.renderer.Sanitize(string(page.SidebarInfo))
	}

	// A failed hop yields a partial breadcrumb trail, never a failed view.
	view.Breadcrumbs = s.AncestorChain(ctx, page)

	children, err := s.Children(ctx, page.ID)
	if err != nil {
		s.log.Error(err, "failed to list child pages")
	} else {
		view.Children = children
	}

	if s.activity != nil {
		if err := s.activity.RecordVisit(page.Slug, page.Title); err != nil {
			s.log.Error(err, "failed to record page visit")
		}
	}
	return view, nil
}

func (s *PageService) renderContent(page *data.Page) string {
	if s.cache != nil {
		if cached, err := s.cache.Get(page.Slug); err == nil && cached != nil {
			return string(cached)
		}
	}
	html := s.renderer.Render(page.Content)
	if s.cache != nil {
		if err := s.cache.Set(page.Slug, []byte(html), renderCacheTTL); err != nil {
			s.log.Error(err, "failed to cache rendered page")
		}
	}
	return html
}

func (s *PageService) invalidate(pageSlug string) {
	if s.cache == nil || pageSlug == "" {
		return
	}
	if err := s.cache.Delete(pageSlug); err != nil {
		s.log.Error(err, "failed to invalidate rendered page cache")
	}
}

// AncestorChain resolves the breadcrumb trail for a page, ordered from the
// root down to the direct parent. Resolution walks at most maxAncestorHops
// parent links; a lookup failure truncates the chain at the hops resolved
// so far.
func (s *PageService) AncestorChain(ctx context.Context, page *data.Page) []*data.PageRef {
	var chain []*data.PageRef
	parentID := page.ParentID
	for hops := 0; parentID != nil && *parentID != "" && hops < maxAncestorHops; hops++ {
		parent, err := s.repo.GetPageByID(ctx, *parentID)
		if err != nil {
			if !errors.Is(err, data.ErrNotFound) {
				s.log.Error(err, "failed to resolve breadcrumb ancestor")
			}
			break
		}
		chain = append(chain, &data.PageRef{
			ID:        parent.ID,
			Title:     parent.Title,
			Slug:      parent.Slug,
			Status:    parent.Status,
			ParentID:  parent.ParentID,
			CreatedAt: parent.CreatedAt,
			UpdatedAt: parent.UpdatedAt,
		})
		parentID = parent.ParentID
	}

	// The walk collects child-to-root; breadcrumbs read root-to-child.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Children lists the published children of a page, ordered by title under
// Turkish collation so dotted and dotless forms sort as readers expect.
func (s *PageService) Children(ctx context.Context, pageID string) ([]*data.PageRef, error) {
	children, err := s.repo.ListChildren(ctx, pageID)
	if err != nil {
		return nil, err
	}
	s.sortByTitle(children)
	return children, nil
}

// PublishedRoots lists published top-level pages for the welcome view.
func (s *PageService) PublishedRoots(ctx context.Context) ([]*data.PageRef, error) {
	roots, err := s.repo.ListPublishedRoots(ctx)
	if err != nil {
		return nil, err
	}
	s.sortByTitle(roots)
	return roots, nil
}

func (s *PageService) sortByTitle(refs []*data.PageRef) {
	sort.SliceStable(refs, func(i, j int) bool {
		return s.collator.CompareString(refs[i].Title, refs[j].Title) < 0
	})
}

// ListPages retrieves all pages for the admin list, newest activity first.
func (s *PageService) ListPages(ctx context.Context) ([]*data.Page, error) {
	return s.repo.ListPages(ctx)
}

// RecentPages returns the most recently touched published pages for the
// welcome view.
func (s *PageService) RecentPages(ctx context.Context, limit int) ([]*data.Page, error) {
	pages, err := s.repo.ListPages(ctx)
	if err != nil {
		return nil, err
	}
	var out []*data.Page
	for _, p := range pages {
		if p.Status != data.StatusPublished {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// ParentOptions lists the pages selectable as a parent for the page with
// the given id. The page itself is excluded; deeper cycles are cut at read
// time by the breadcrumb hop bound instead.
func (s *PageService) ParentOptions(ctx context.Context, excludeID string) ([]*data.PageRef, error) {
	refs, err := s.repo.ListParentOptions(ctx)
	if err != nil {
		return nil, err
	}
	if excludeID == "" {
		return refs, nil
	}
	out := refs[:0]
	for _, r := range refs {
		if r.ID != excludeID {
			out = append(out, r)
		}
	}
	return out, nil
}

// ListByTag lists published pages carrying a tag.
func (s *PageService) ListByTag(ctx context.Context, tag string) ([]*data.Page, error) {
	return s.repo.ListByTag(ctx, tag)
}

// FilterPages narrows a page list to entries whose title or slug contains
// the query, case-insensitively. An empty query returns the input as is.
func FilterPages(pages []*data.Page, query string) []*data.Page {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return pages
	}
	var out []*data.Page
	for _, p := range pages {
		if strings.Contains(strings.ToLower(p.Title), q) || strings.Contains(strings.ToLower(p.Slug), q) {
			out = append(out, p)
		}
	}
	return out
}

// Search runs a reader search. Queries below the minimum length are
// rejected before any store access. The server-side full-text path is
// preferred when it yields rows; those get title matches promoted to the
// front. When that path is unavailable, fails or comes back empty, the
// in-process ranking engine scores a substring candidate set instead.
func (s *PageService) Search(ctx context.Context, query string) ([]search.Hit, error) {
	if err := search.Validate(query); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)

	if s.fulltext != nil {
		rows, err := s.fulltext.Search(ctx, query, search.MaxResults)
		if err == nil && len(rows) > 0 {
			return fullTextHits(query, rows), nil
		}
		if err != nil && !errors.Is(err, data.ErrUnavailable) {
			s.log.Error(err, "full-text search failed, falling back to local ranking")
		}
	}

	candidates, err := s.repo.SearchCandidates(ctx, query, fallbackCandidateLimit)
	if err != nil {
		return nil, err
	}
	scored := make([]search.Candidate, len(candidates))
	for i, p := range candidates {
		scored[i] = search.Candidate{
			Title:     p.Title,
			Slug:      p.Slug,
			Content:   p.Content,
			UpdatedAt: p.UpdatedAt,
		}
	}
	return search.Rank(query, scored), nil
}

func fullTextHits(query string, rows []data.FullTextRow) []search.Hit {
	promoted := make([]search.Row, len(rows))
	for i, r := range rows {
		promoted[i] = search.Row{Title: r.Title, Slug: r.Slug, UpdatedAt: r.UpdatedAt, Snippet: r.Snippet}
	}
	promoted = search.PromoteTitleMatches(query, promoted)

	hits := make([]search.Hit, len(promoted))
	for i, r := range promoted {
		hits[i] = search.Hit{Title: r.Title, Slug: r.Slug, UpdatedAt: r.UpdatedAt, Excerpt: r.Snippet}
	}
	return hits
}

// RecordSearchClick notes a navigation from the search results, best
// effort.
func (s *PageService) RecordSearchClick(pageSlug, title string, updatedAt *time.Time) {
	if s.activity == nil {
		return
	}
	if err := s.activity.RecordSearchClick(pageSlug, title, updatedAt); err != nil {
		s.log.Error(err, "failed to record search click")
	}
}

// RecentActivity returns the recently visited pages and recent search
// clicks for the welcome view. Either list may be empty; failures degrade
// to empty lists.
func (s *PageService) RecentActivity(visitLimit int) ([]data.Visit, []data.SearchClick) {
	if s.activity == nil {
		return nil, nil
	}
	visits, err := s.activity.RecentVisits(visitLimit)
	if err != nil {
		s.log.Error(err, "failed to load recent visits")
	}
	clicks, err := s.activity.RecentSearchClicks()
	if err != nil {
		s.log.Error(err, "failed to load recent search clicks")
	}
	return visits, clicks
}
