package server

import (
	"encoding/json"
	"net/http"
	"time"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"server":         s.info.Name,
		"version":        s.info.Version,
		"uptime":         time.Since(s.started).Seconds(),
		"activeSessions": s.registry.Len(),
	})
}

// handleServerCard publishes the tool catalog for scanners that discover
// capabilities without opening an authenticated session.
func (s *Server) handleServerCard(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":            s.info.Name,
		"version":         s.info.Version,
		"protocolVersion": s.protocolVersion,
		"endpoint":        s.publicURL + "/mcp",
		"tools":           s.tools.List(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Debug("json write failed", "error", err)
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
