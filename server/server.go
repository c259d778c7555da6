package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ezbizservices/seo-mcp/keystore"
	"github.com/ezbizservices/seo-mcp/schema"
	"github.com/ezbizservices/seo-mcp/server/auth"
	"github.com/ezbizservices/seo-mcp/server/oauth"
	"github.com/ezbizservices/seo-mcp/tools"
)

const (
	defaultInitializeTimeout = 30 * time.Second
	defaultMaxBodyBytes      = 4 << 20
)

// Server owns the session table and routes protocol traffic through the
// tiered auth gate.
type Server struct {
	info            schema.Implementation
	instructions    *string
	protocolVersion string
	loggerName      string

	gate     *auth.Gate
	store    keystore.Store
	tools    *tools.Registry
	registry *Registry
	bridge   *oauth.Bridge

	logger *slog.Logger

	publicURL           string
	upgradeURL          string
	resourceMetadataURL string
	adminSecret         string
	pagesDir            string

	corsConfig        *Cors
	corsHandler       Middleware
	initializeTimeout time.Duration
	maxBodyBytes      int64
	started           time.Time
}

// New creates a Server instance.
func New(options ...Option) (*Server, error) {
	s := &Server{
		info: schema.Implementation{
			Name:    "ezbiz-seo-marketing",
			Version: "1.0.0",
		},
		loggerName:        "server",
		protocolVersion:   schema.LatestProtocolVersion,
		logger:            slog.Default(),
		publicURL:         "https://seo.ezbizservices.com",
		initializeTimeout: defaultInitializeTimeout,
		maxBodyBytes:      defaultMaxBodyBytes,
		started:           time.Now(),
	}
	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}
	if s.gate == nil {
		return nil, errors.New("no auth gate specified")
	}
	if s.tools == nil {
		return nil, errors.New("no tool registry specified")
	}
	if s.registry == nil {
		s.registry = NewRegistry(s.logger)
	}
	if s.corsConfig == nil {
		s.corsConfig = defaultCors()
	}
	if s.corsHandler == nil {
		handler := &corsHandler{Cors: s.corsConfig}
		s.corsHandler = handler.Middleware
	}
	if s.upgradeURL == "" {
		s.upgradeURL = s.publicURL + "/pricing"
	}
	if s.bridge != nil && s.resourceMetadataURL == "" {
		s.resourceMetadataURL = s.publicURL + "/.well-known/oauth-protected-resource"
	}
	return s, nil
}

// Registry exposes the session table, primarily for the health surface and
// tests.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Shutdown drains every live session so no transport is left half-open.
func (s *Server) Shutdown(ctx context.Context) {
	s.logger.Info("shutting down", "active_sessions", s.registry.Len())
	s.registry.Drain(ctx)
}

var toolDisplayNames = map[string]string{
	"site_audit":    "Site Audit",
	"content_brief": "Content Brief",
}

// upgradeMessage is the refusal text for a capability outside the caller's
// tier. The refusal is delivered as a successful tool result so clients
// surface it to the user verbatim.
func (s *Server) upgradeMessage(tool string) string {
	name := toolDisplayNames[tool]
	if name == "" {
		name = tool
	}
	return fmt.Sprintf("🔒 %s requires a Pro or Business tier subscription.\n\nUpgrade at %s to unlock advanced SEO tools including full site audits, content briefs, and more.", name, s.upgradeURL)
}
