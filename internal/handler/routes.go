package handler

import (
	"io/fs"
	"net/http"

	appmiddleware "go-wiki-cms/internal/middleware"
	"go-wiki-cms/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handlers bundles the route handlers the router mounts.
type Handlers struct {
	Page   *PageHandler
	Admin  *AdminHandler
	Search *SearchHandler
	Auth   *AuthHandler
	Seo    *SeoHandler
}

// NewRouter creates and configures the chi router. Every dynamic route
// runs behind the session and authorization middlewares; handler errors
// flow through the error wrapper into the error page.
func NewRouter(
	h Handlers,
	sessions session.Manager,
	authorize func(http.Handler) http.Handler,
	wrap func(appmiddleware.AppHandler) http.Handler,
	staticFS fs.FS,
	uploadsDir string,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Static assets and stored uploads bypass sessions entirely.
	r.Handle("/static/*", http.FileServer(http.FS(staticFS)))
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploadsDir))))

	r.Group(func(r chi.Router) {
		r.Use(sessions.LoadAndSave)
		r.Use(authorize)

		// Reader surface.
		r.Method(http.MethodGet, "/", wrap(h.Page.indexHandler))
		r.Method(http.MethodGet, "/wiki/{slug}", wrap(h.Page.viewHandler))
		r.Method(http.MethodGet, "/tag/{tag}", wrap(h.Page.tagHandler))
		r.Method(http.MethodGet, "/search", wrap(h.Search.searchHandler))
		r.Method(http.MethodGet, "/api/search", wrap(h.Search.suggestHandler))
		r.Method(http.MethodPost, "/search/click", wrap(h.Search.clickHandler))

		// Crawler surface.
		r.Get("/robots.txt", h.Seo.robotsHandler)
		r.Get("/sitemap.xml", h.Seo.sitemapHandler)

		// Authentication.
		r.Get("/auth/login", h.Auth.handleLogin)
		r.Get("/auth/callback", h.Auth.handleCallback)
		r.Get("/auth/logout", h.Auth.handleLogout)

		// Authoring surface; role checks happen in the authorizer and the
		// service layer.
		r.Method(http.MethodGet, "/admin", wrap(h.Admin.listHandler))
		r.Method(http.MethodGet, "/admin/new", wrap(h.Admin.newHandler))
		r.Method(http.MethodGet, "/admin/edit/{id}", wrap(h.Admin.editHandler))
		r.Method(http.MethodPost, "/admin/save", wrap(h.Admin.saveHandler))
		r.Method(http.MethodPost, "/admin/delete/{id}", wrap(h.Admin.deleteHandler))
		r.Method(http.MethodPost, "/admin/upload", wrap(h.Admin.uploadHandler))
	})

	return r
}
