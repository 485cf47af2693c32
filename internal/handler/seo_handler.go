package handler

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"

	"go-wiki-cms/internal/config"
	"go-wiki-cms/internal/data"
	"go-wiki-cms/internal/service"
)

// SeoHandler serves the crawler surface: robots.txt and a sitemap built
// from the published pages.
type SeoHandler struct {
	pageService *service.PageService
	site        config.SiteConfig
}

// NewSeoHandler creates a new SeoHandler.
func NewSeoHandler(ps *service.PageService, site config.SiteConfig) *SeoHandler {
	return &SeoHandler{pageService: ps, site: site}
}

// robotsHandler serves robots.txt pointing crawlers at the sitemap and
// away from the authoring surface.
func (h *SeoHandler) robotsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "User-agent: *")
	fmt.Fprintln(w, "Disallow: /admin")
	fmt.Fprintln(w, "Allow: /")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Sitemap: "+h.baseURL()+"/sitemap.xml")
}

const sitemapDateFormat = "2006-01-02"

type sitemapURL struct {
	XMLName xml.Name `xml:"url"`
	Loc     string   `xml:"loc"`
	LastMod string   `xml:"lastmod"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// sitemapHandler generates sitemap.xml from the published pages. Drafts
// never appear.
func (h *SeoHandler) sitemapHandler(w http.ResponseWriter, r *http.Request) {
	pages, err := h.pageService.ListPages(r.Context())
	if err != nil {
		http.Error(w, "Failed to retrieve pages for sitemap", http.StatusInternalServerError)
		return
	}

	sitemap := urlSet{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for _, page := range pages {
		if page.Status != data.StatusPublished {
			continue
		}
		sitemap.URLs = append(sitemap.URLs, sitemapURL{
			Loc:     h.baseURL() + "/wiki/" + page.Slug,
			LastMod: page.UpdatedAt.Format(sitemapDateFormat),
		})
	}

	w.Header().Set("Content-Type", "application/xml")
	w.Write([]byte(xml.Header))
	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")
	if err := encoder.Encode(sitemap); err != nil {
		http.Error(w, "Failed to generate sitemap XML", http.StatusInternalServerError)
		return
	}
}

func (h *SeoHandler) baseURL() string {
	return strings.TrimRight(h.site.BaseURL, "/")
}
