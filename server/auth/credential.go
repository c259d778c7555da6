package auth

import (
	"net/http"
	"strings"
)

// Credential extraction precedence, highest first. Proxies and older clients
// disagree on where the key travels, so all spellings below are accepted:
//
//	1. Authorization: Bearer <credential>
//	2. X-API-Key header
//	3. ApiKey header
//	4. query parameters api_key, apiKey, apikey
const (
	HeaderAPIKey    = "X-API-Key"
	HeaderAPIKeyAlt = "ApiKey"
)

var queryKeySpellings = []string{"api_key", "apiKey", "apikey"}

// ExtractCredential normalizes every accepted credential location into a
// single logical credential string. Empty means no credential was presented.
func ExtractCredential(r *http.Request) string {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		if token, ok := bearerToken(header); ok {
			return token
		}
	}
	if key := strings.TrimSpace(r.Header.Get(HeaderAPIKey)); key != "" {
		return key
	}
	if key := strings.TrimSpace(r.Header.Get(HeaderAPIKeyAlt)); key != "" {
		return key
	}
	query := r.URL.Query()
	for _, spelling := range queryKeySpellings {
		if key := strings.TrimSpace(query.Get(spelling)); key != "" {
			return key
		}
	}
	return ""
}

func bearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):]), true
	}
	return "", false
}
