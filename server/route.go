package server

import (
	"net/http"

	"github.com/ezbizservices/seo-mcp/schema"
)

// bodyKind classifies a decoded POST body.
type bodyKind int

const (
	bodyInvalid bodyKind = iota
	bodyRequest
	bodyNotification
)

// routeAction is the outcome of routing one HTTP request against the session
// table. The decision is a pure function of its inputs; all side effects
// (session creation, dispatch, teardown) happen in the router afterwards.
type routeAction int

const (
	// actionReject: unsupported HTTP method.
	actionReject routeAction = iota
	// actionParseError: POST body is not a JSON-RPC message.
	actionParseError
	// actionInitialize: POST initialize without a live session; opens a
	// fresh one.
	actionInitialize
	// actionRequireSession: the request needs an established session and a
	// fresh handshake is the remedy.
	actionRequireSession
	// actionSessionNotFound: the request addressed a session that does not
	// exist and a handshake would not make the operation meaningful.
	actionSessionNotFound
	// actionDispatch: deliver the request to the session's handler.
	actionDispatch
	// actionNotify: deliver the notification to the session's handler.
	actionNotify
	// actionAttachStream: attach the GET event stream to the session.
	actionAttachStream
	// actionCloseSession: tear the session down.
	actionCloseSession
)

// route decides what to do with a request. hasSession reports whether an
// Mcp-Session-Id header was present, sessionKnown whether it named a live
// session. For POSTs, kind and rpcMethod describe the decoded body.
func route(httpMethod string, hasSession, sessionKnown bool, kind bodyKind, rpcMethod string) routeAction {
	switch httpMethod {
	case http.MethodPost:
		switch kind {
		case bodyInvalid:
			return actionParseError
		case bodyRequest:
			if rpcMethod == schema.MethodInitialize {
				// A known session id keeps its transport; only an absent or
				// stale id opens a fresh session.
				if hasSession && sessionKnown {
					return actionDispatch
				}
				return actionInitialize
			}
			if !hasSession || !sessionKnown {
				return actionRequireSession
			}
			return actionDispatch
		case bodyNotification:
			if !hasSession || !sessionKnown {
				return actionRequireSession
			}
			return actionNotify
		}
		return actionParseError
	case http.MethodGet:
		if !hasSession || !sessionKnown {
			return actionRequireSession
		}
		return actionAttachStream
	case http.MethodDelete:
		if !hasSession {
			return actionRequireSession
		}
		if !sessionKnown {
			// Closing an unknown session is "not found", not "go initialize":
			// a handshake would only create a different session.
			return actionSessionNotFound
		}
		return actionCloseSession
	}
	return actionReject
}
