// Package server multiplexes MCP sessions over streamable HTTP and guards
// every billable operation behind the tiered auth gate.
//
// One HTTP endpoint carries the whole protocol: POST delivers JSON-RPC
// messages, GET attaches a server-to-client event stream, DELETE closes the
// session. Sessions are keyed by the Mcp-Session-Id header and exist only
// after a successful initialize handshake.
//
// Callers construct a server via server.New and expose it over HTTP or stdio:
//
//	s, _ := server.New(server.WithGate(gate), server.WithTools(registry))
//	log.Fatal(http.ListenAndServe(":8080", s.Handler()))
package server
