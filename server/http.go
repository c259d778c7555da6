package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Middleware wraps an http.Handler with cross-cutting behavior.
type Middleware func(next http.Handler) http.Handler

// ChainMiddlewareHandlers applies mws to h with the first middleware
// outermost.
func ChainMiddlewareHandlers(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Handler assembles the full HTTP surface: the protocol endpoint, OAuth
// bridge, key management API, discovery documents and the marketing site.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Recoverer)
	router.Use(s.corsHandler)
	router.Use(originValidationMiddleware(s.corsConfig.AllowOrigins))

	router.Get("/health", s.handleHealth)

	if s.bridge != nil {
		s.bridge.RegisterRoutes(router)
	}

	if s.store != nil {
		router.Post("/api/keys/signup", s.handleSignup)
		router.Post("/api/keys/provision", s.handleProvision)
		router.Get("/api/keys/usage", s.handleUsage)
	}
	router.Get("/api/pricing", s.handlePricing)

	router.Get("/.well-known/mcp/server-card.json", s.handleServerCard)

	// Protocol endpoint. Scanners also POST initialize at the root.
	mcp := ChainMiddlewareHandlers(http.HandlerFunc(s.handleMCP), protocolVersionMiddleware())
	router.Handle("/mcp", mcp)
	router.Post("/", s.handleRootPost)

	s.registerPages(router)
	return router
}

// handleRootPost forwards protocol POSTs arriving at the root, while plain
// browser traffic falls through to the marketing site.
func (s *Server) handleRootPost(w http.ResponseWriter, r *http.Request) {
	s.handleMCP(w, r)
}
