package server

import (
	"net/http"

	"github.com/ezbizservices/seo-mcp/schema"
)

// protocolVersionMiddleware validates the MCP-Protocol-Version header and sets
// the response header to the server's supported version.
func protocolVersionMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			version := r.Header.Get("MCP-Protocol-Version")
			if version != "" && version != schema.LatestProtocolVersion {
				http.Error(w, "invalid MCP-Protocol-Version", http.StatusBadRequest)
				return
			}
			// Absent version means the client predates the header; assume latest.
			w.Header().Set("MCP-Protocol-Version", schema.LatestProtocolVersion)
			next.ServeHTTP(w, r)
		})
	}
}
