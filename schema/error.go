package schema

import "github.com/viant/jsonrpc"

const (
	// SessionRequired signals a request that needs an established session but
	// carried none (or an unknown one on a method where a fresh handshake is
	// the remedy). Clients recover by sending an initializing POST.
	SessionRequired = -32000
	// Unauthorized signals a missing or invalid credential.
	Unauthorized = -32001
	// SessionNotFound signals an operation against a session id that does not
	// exist (closed, expired or never created).
	SessionNotFound = -32002
)

// NewSessionRequired creates a "must initialize first" error.
func NewSessionRequired(message string) *jsonrpc.Error {
	return jsonrpc.NewError(SessionRequired, message, nil)
}

// NewUnauthorized creates an authentication failure error.
func NewUnauthorized(message string) *jsonrpc.Error {
	return jsonrpc.NewError(Unauthorized, message, nil)
}

// NewSessionNotFound creates a session lookup failure error.
func NewSessionNotFound(id string) *jsonrpc.Error {
	return jsonrpc.NewError(SessionNotFound, "Session not found", map[string]interface{}{"sessionId": id})
}

func NewUnknownTool(toolName string) *jsonrpc.Error {
	return jsonrpc.NewError(jsonrpc.InvalidParams, "Unknown tool: "+toolName, nil)
}
