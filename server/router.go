package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/viant/jsonrpc"

	"github.com/ezbizservices/seo-mcp/schema"
	"github.com/ezbizservices/seo-mcp/server/auth"
)

// SessionIDHeader addresses an established session on every request after
// the initialize handshake.
const SessionIDHeader = "Mcp-Session-Id"

// messageProbe is the minimal decode needed to route a POST body.
type messageProbe struct {
	Jsonrpc string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Id      json.RawMessage `json:"id"`
}

func classifyBody(body []byte) (bodyKind, *messageProbe) {
	probe := &messageProbe{}
	if err := json.Unmarshal(body, probe); err != nil || probe.Method == "" {
		return bodyInvalid, probe
	}
	if len(probe.Id) == 0 || string(probe.Id) == "null" {
		return bodyNotification, probe
	}
	return bodyRequest, probe
}

// handleMCP serves the protocol endpoint: POST carries messages, GET attaches
// the event stream, DELETE closes the session.
func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get(SessionIDHeader)
	hasSession := sessionID != ""
	session, known := (*Session)(nil), false
	if hasSession {
		session, known = s.registry.Get(sessionID)
	}

	var body []byte
	kind, probe := bodyInvalid, (*messageProbe)(nil)
	if r.Method == http.MethodPost {
		var err error
		body, err = io.ReadAll(io.LimitReader(r.Body, s.maxBodyBytes))
		if err != nil {
			s.writeRPCError(w, http.StatusBadRequest, jsonrpc.NewParsingError("failed to read request body", nil), nil)
			return
		}
		kind, probe = classifyBody(body)
	}

	rpcMethod := ""
	if probe != nil {
		rpcMethod = probe.Method
	}
	switch route(r.Method, hasSession, known, kind, rpcMethod) {
	case actionReject:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	case actionParseError:
		s.writeRPCError(w, http.StatusBadRequest, jsonrpc.NewParsingError("invalid JSON-RPC message", body), nil)
	case actionInitialize:
		s.handleInitialize(w, r, body, probe)
	case actionRequireSession:
		message := "Bad request: send a POST with initialize to start a session."
		if r.Method == http.MethodGet {
			message = "Bad request: GET requires a valid mcp-session-id. Start with POST."
		}
		s.writeRPCError(w, http.StatusBadRequest, schema.NewSessionRequired(message), probeID(probe))
	case actionSessionNotFound:
		s.writeRPCError(w, http.StatusNotFound, schema.NewSessionNotFound(sessionID), probeID(probe))
	case actionDispatch:
		s.dispatch(w, r, session, body, probe)
	case actionNotify:
		s.deliverNotification(w, r, session, body)
	case actionAttachStream:
		s.logger.Debug("stream attached", "session_id", sessionID)
		if err := session.Transport.ServeStream(w, r); err != nil {
			s.logger.Debug("stream ended", "session_id", sessionID, "error", err)
		}
	case actionCloseSession:
		s.registry.Delete(sessionID)
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleInitialize authenticates the caller, runs the handshake and commits
// the session only on success. The session id header is set before the body
// so clients always see both together.
func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request, body []byte, probe *messageProbe) {
	credential := auth.ExtractCredential(r)
	resolution, err := s.gate.Resolve(r.Context(), credential)
	if err != nil {
		s.writeUnauthorized(w, err, probeID(probe))
		return
	}

	request := &jsonrpc.Request{}
	if err := json.Unmarshal(body, request); err != nil {
		s.writeRPCError(w, http.StatusBadRequest, jsonrpc.NewParsingError(fmt.Sprintf("failed to parse request: %v", err), body), probeID(probe))
		return
	}

	streamTransport := newStreamTransport()
	handler := s.newHandler(streamTransport)

	ctx, cancel := context.WithTimeout(r.Context(), s.initializeTimeout)
	defer cancel()
	response := &jsonrpc.Response{Jsonrpc: jsonrpc.Version, Id: request.Id}
	handler.Serve(ctx, request, response)
	if response.Error != nil {
		// Handshake failed: the transport never becomes a session.
		streamTransport.Close()
		s.writeResponse(w, http.StatusBadRequest, response)
		return
	}

	session := s.registry.Create(&Session{
		Credential: credential,
		Tier:       resolution.Tier,
		Transport:  streamTransport,
		Handler:    handler,
	})
	w.Header().Set(SessionIDHeader, session.ID)
	s.writeResponse(w, http.StatusOK, response)
}

// dispatch delivers a request to an established session. The credential was
// proven at session creation and is not re-validated here; tool calls only
// re-confirm that the caller still presents one, then bill against the
// session's identity at its frozen tier.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, session *Session, body []byte, probe *messageProbe) {
	request := &jsonrpc.Request{}
	if err := json.Unmarshal(body, request); err != nil {
		s.writeRPCError(w, http.StatusBadRequest, jsonrpc.NewParsingError(fmt.Sprintf("failed to parse request: %v", err), body), probeID(probe))
		return
	}

	ctx := r.Context()
	if request.Method == schema.MethodToolsCall {
		if auth.ExtractCredential(r) == "" {
			rpcErr := schema.NewUnauthorized("API key required for tool calls. Get a free key at " + s.publicURL)
			s.writeUnauthorizedError(w, rpcErr, probeID(probe))
			return
		}
		ctx = withCallAuth(ctx, session.Credential, session.Tier)
	}

	response := &jsonrpc.Response{Jsonrpc: jsonrpc.Version, Id: request.Id}
	session.Handler.Serve(ctx, request, response)
	s.writeResponse(w, http.StatusOK, response)
}

func (s *Server) deliverNotification(w http.ResponseWriter, r *http.Request, session *Session, body []byte) {
	notification := &jsonrpc.Notification{}
	if err := json.Unmarshal(body, notification); err != nil {
		s.writeRPCError(w, http.StatusBadRequest, jsonrpc.NewParsingError(fmt.Sprintf("failed to parse notification: %v", err), body), nil)
		return
	}
	session.Handler.OnNotification(r.Context(), notification)
	w.WriteHeader(http.StatusAccepted)
}

// writeUnauthorized maps a gate failure to a 401. Unexpected keystore
// failures are the server's fault and answer 500 instead.
func (s *Server) writeUnauthorized(w http.ResponseWriter, err error, id interface{}) {
	switch {
	case errors.Is(err, auth.ErrCredentialMissing):
		s.writeUnauthorizedError(w, schema.NewUnauthorized("API key required. Get a free key at "+s.publicURL), id)
	case errors.Is(err, auth.ErrCredentialInvalid):
		s.writeUnauthorizedError(w, schema.NewUnauthorized("Invalid API key"), id)
	default:
		s.logger.Error("credential resolution failed", "error", err)
		s.writeRPCError(w, http.StatusInternalServerError, jsonrpc.NewInternalError("Internal server error", nil), id)
	}
}

// writeUnauthorizedError answers 401 and advertises the OAuth metadata so
// OAuth-capable clients can start the PKCE flow.
func (s *Server) writeUnauthorizedError(w http.ResponseWriter, rpcErr *jsonrpc.Error, id interface{}) {
	if s.resourceMetadataURL != "" {
		w.Header().Set("WWW-Authenticate", fmt.Sprintf("Bearer resource_metadata=%q", s.resourceMetadataURL))
	}
	s.writeRPCError(w, http.StatusUnauthorized, rpcErr, id)
}

func (s *Server) writeRPCError(w http.ResponseWriter, status int, rpcErr *jsonrpc.Error, id interface{}) {
	response := &jsonrpc.Response{Jsonrpc: jsonrpc.Version, Id: id, Error: rpcErr}
	s.writeResponse(w, status, response)
}

func (s *Server) writeResponse(w http.ResponseWriter, status int, response *jsonrpc.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Debug("response write failed", "error", err)
	}
}

func probeID(probe *messageProbe) interface{} {
	if probe == nil || len(probe.Id) == 0 {
		return nil
	}
	return json.RawMessage(probe.Id)
}
