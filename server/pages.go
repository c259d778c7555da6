package server

import (
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/viant/afs"

	"github.com/ezbizservices/seo-mcp/internal/collection"
)

// pageRoutes maps marketing-site paths to page files under the pages dir.
var pageRoutes = map[string]string{
	"/":                       "index.html",
	"/docs":                   "docs.html",
	"/signup":                 "signup.html",
	"/pricing":                "pricing.html",
	"/tools/keyword-research": "tools/keyword-research.html",
	"/tools/analyze-serp":     "tools/analyze-serp.html",
	"/tools/check-backlinks":  "tools/check-backlinks.html",
	"/tools/optimize-content": "tools/optimize-content.html",
}

var blogSlugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

type pageService struct {
	dir    string
	fs     afs.Service
	cache  *collection.SyncMap[string, []byte]
	server *Server
}

func (s *Server) registerPages(router chi.Router) {
	if s.pagesDir == "" {
		return
	}
	pages := &pageService{
		dir:    s.pagesDir,
		fs:     afs.New(),
		cache:  collection.NewSyncMap[string, []byte](),
		server: s,
	}
	for route, file := range pageRoutes {
		router.Get(route, pages.pageHandler(file))
	}
	router.Get("/blog", pages.pageHandler("blog/index.html"))
	router.Get("/blog/", pages.pageHandler("blog/index.html"))
	router.Get("/blog/{slug}", pages.handleBlogPost)
	router.Get("/sitemap.xml", pages.staticHandler("static/sitemap.xml"))
	router.Get("/robots.txt", pages.staticHandler("static/robots.txt"))
	router.Get("/static/*", pages.handleStatic)
}

// load fetches a page file, rewriting asset versions and injecting the nav
// script, and caches the result for the life of the process.
func (p *pageService) load(r *http.Request, name string) ([]byte, error) {
	if cached, ok := p.cache.Get(name); ok {
		return cached, nil
	}
	data, err := p.fs.DownloadWithURL(r.Context(), path.Join(p.dir, name))
	if err != nil {
		return nil, err
	}
	content := string(data)
	content = assetVersionPattern.ReplaceAllString(content, "style.css?v=3")
	if strings.Contains(content, "</body>") {
		content = strings.Replace(content, "</body>", "<script src=\"/static/nav.js\"></script>\n</body>", 1)
	}
	result := []byte(content)
	p.cache.Put(name, result)
	return result, nil
}

var assetVersionPattern = regexp.MustCompile(`style\.css\?v=\d+`)

func (p *pageService) pageHandler(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		content, err := p.load(r, name)
		if err != nil {
			p.server.logger.Error("page load failed", "page", name, "error", err)
			http.Error(w, "Page not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(content)
	}
}

func (p *pageService) handleBlogPost(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if !blogSlugPattern.MatchString(slug) {
		http.Error(w, "Post not found", http.StatusNotFound)
		return
	}
	p.pageHandler("blog/" + slug + ".html")(w, r)
}

func (p *pageService) handleStatic(w http.ResponseWriter, r *http.Request) {
	name := path.Clean(strings.TrimPrefix(r.URL.Path, "/"))
	if strings.Contains(name, "..") {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	p.staticHandler(name)(w, r)
}

func (p *pageService) staticHandler(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := p.fs.DownloadWithURL(r.Context(), path.Join(p.dir, name))
		if err != nil {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		mimeType := mime.TypeByExtension(filepath.Ext(name))
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", mimeType)
		w.Header().Set("Cache-Control", "public, max-age=3600")
		_, _ = w.Write(data)
	}
}
