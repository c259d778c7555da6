package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ezbizservices/seo-mcp/internal/collection"
	"github.com/ezbizservices/seo-mcp/server/auth"
)

// Session is one established protocol conversation. It exists only after a
// successful initialize handshake and is addressed by the Mcp-Session-Id
// header on every subsequent request.
type Session struct {
	ID         string
	Credential string
	Tier       auth.Tier
	Transport  *StreamTransport
	Handler    *Handler
	CreatedAt  time.Time
}

// Registry is the concurrent session table.
type Registry struct {
	sessions *collection.SyncMap[string, *Session]
	logger   *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sessions: collection.NewSyncMap[string, *Session](),
		logger:   logger,
	}
}

// Create mints an id for session and publishes it. The session is visible to
// concurrent lookups before Create returns.
func (r *Registry) Create(session *Session) *Session {
	session.ID = uuid.NewString()
	session.CreatedAt = time.Now()
	r.sessions.Put(session.ID, session)
	r.logger.Info("session created", "session_id", session.ID, "tier", session.Tier)
	return session
}

// Get returns the session for id.
func (r *Registry) Get(id string) (*Session, bool) {
	return r.sessions.Get(id)
}

// Delete closes and removes the session. The first delete wins; repeats
// report false so callers can answer "not found".
func (r *Registry) Delete(id string) bool {
	session, ok := r.sessions.Get(id)
	if !ok {
		return false
	}
	if !r.sessions.Delete(id) {
		return false
	}
	session.Transport.Close()
	r.logger.Info("session closed", "session_id", id)
	return true
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	return r.sessions.Size()
}

// Drain closes every session. Used on shutdown so no transport is left
// half-open.
func (r *Registry) Drain(ctx context.Context) {
	var ids []string
	r.sessions.Range(func(id string, _ *Session) bool {
		ids = append(ids, id)
		return true
	})
	for _, id := range ids {
		r.Delete(id)
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
	r.logger.Info("session registry drained", "closed", len(ids))
}
