// Package oauth implements the authorization-code + PKCE bridge that lets
// OAuth-capable MCP clients obtain a bearer credential for the server. Issued
// tokens wrap an existing API key and are resolved through the same auth gate
// as directly-presented keys; the bridge never bypasses it.
package oauth
