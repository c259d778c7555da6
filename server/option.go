package server

import (
	"log/slog"
	"time"

	"github.com/ezbizservices/seo-mcp/keystore"
	"github.com/ezbizservices/seo-mcp/schema"
	"github.com/ezbizservices/seo-mcp/server/auth"
	"github.com/ezbizservices/seo-mcp/server/oauth"
	"github.com/ezbizservices/seo-mcp/tools"
)

// Option is a function that configures the server.
type Option func(s *Server) error

// WithGate sets the auth gate every billable operation passes through.
func WithGate(gate *auth.Gate) Option {
	return func(s *Server) error {
		s.gate = gate
		return nil
	}
}

// WithKeystore exposes the key management API backed by store.
func WithKeystore(store keystore.Store) Option {
	return func(s *Server) error {
		s.store = store
		return nil
	}
}

// WithTools sets the tool registry.
func WithTools(registry *tools.Registry) Option {
	return func(s *Server) error {
		s.tools = registry
		return nil
	}
}

// WithBridge mounts the OAuth authorization-code bridge.
func WithBridge(bridge *oauth.Bridge) Option {
	return func(s *Server) error {
		s.bridge = bridge
		s.resourceMetadataURL = bridge.MetadataURL()
		return nil
	}
}

// WithCORS adds a new CORS handler to the server.
func WithCORS(cors *Cors) Option {
	return func(s *Server) error {
		s.corsConfig = cors
		handler := &corsHandler{Cors: cors}
		s.corsHandler = handler.Middleware
		return nil
	}
}

// WithImplementation sets the server implementation.
func WithImplementation(implementation schema.Implementation) Option {
	return func(s *Server) error {
		s.info = implementation
		return nil
	}
}

// WithInstructions sets the instructions returned from initialize.
func WithInstructions(instructions string) Option {
	return func(s *Server) error {
		s.instructions = &instructions
		return nil
	}
}

// WithLogger sets the process logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// WithLoggerName sets the logger name.
func WithLoggerName(name string) Option {
	return func(s *Server) error {
		s.loggerName = name
		return nil
	}
}

// WithPublicURL sets the externally visible base URL used in signup and
// upgrade links.
func WithPublicURL(url string) Option {
	return func(s *Server) error {
		s.publicURL = url
		return nil
	}
}

// WithAdminSecret guards the provisioning API.
func WithAdminSecret(secret string) Option {
	return func(s *Server) error {
		s.adminSecret = secret
		return nil
	}
}

// WithPagesDir serves the marketing site from dir.
func WithPagesDir(dir string) Option {
	return func(s *Server) error {
		s.pagesDir = dir
		return nil
	}
}

// WithInitializeTimeout bounds the initialize handshake.
func WithInitializeTimeout(timeout time.Duration) Option {
	return func(s *Server) error {
		s.initializeTimeout = timeout
		return nil
	}
}
