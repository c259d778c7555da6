package oauth

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ezbizservices/seo-mcp/server/auth"
)

// Config configures the bridge.
type Config struct {
	// Issuer is the external base URL of this server, e.g.
	// "https://seo.ezbizservices.com".
	Issuer     string
	ServerName string
	// TokenSecret signs issued bearer tokens; the auth gate must share it.
	TokenSecret []byte
	TokenTTL    time.Duration
	CodeTTL     time.Duration
	Logger      *slog.Logger
}

// Bridge implements the authorization-code + PKCE surface.
type Bridge struct {
	config Config
	gate   *auth.Gate
	codes  *codeStore
	tokens *TokenIssuer
	logger *slog.Logger
}

// New creates a Bridge that validates API keys through gate.
func New(config Config, gate *auth.Gate) *Bridge {
	if config.CodeTTL <= 0 {
		config.CodeTTL = 5 * time.Minute
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		config: config,
		gate:   gate,
		codes:  newCodeStore(),
		tokens: NewTokenIssuer(config.Issuer, config.TokenSecret, config.TokenTTL),
		logger: logger,
	}
}

// MetadataURL is advertised in WWW-Authenticate challenges so OAuth-capable
// clients can discover the bridge after an authentication failure.
func (b *Bridge) MetadataURL() string {
	return b.config.Issuer + "/.well-known/oauth-authorization-server"
}

// RegisterRoutes mounts the discovery and exchange endpoints. All of them are
// reachable without credentials.
func (b *Bridge) RegisterRoutes(r chi.Router) {
	r.Get("/.well-known/oauth-authorization-server", b.handleMetadata)
	r.Get("/.well-known/oauth-protected-resource", b.handleProtectedResource)
	r.Get("/oauth/authorize", b.handleAuthorize)
	r.Post("/oauth/authorize", b.handleAuthorize)
	r.Post("/oauth/token", b.handleToken)
	r.Post("/oauth/register", b.handleRegister)
}

func (b *Bridge) handleMetadata(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"issuer":                                b.config.Issuer,
		"authorization_endpoint":                b.config.Issuer + "/oauth/authorize",
		"token_endpoint":                        b.config.Issuer + "/oauth/token",
		"registration_endpoint":                 b.config.Issuer + "/oauth/register",
		"response_types_supported":              []string{"code"},
		"grant_types_supported":                 []string{"authorization_code"},
		"code_challenge_methods_supported":      []string{CodeChallengeMethodS256},
		"token_endpoint_auth_methods_supported": []string{"none"},
	})
}

func (b *Bridge) handleProtectedResource(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"resource":              b.config.Issuer,
		"resource_name":         b.config.ServerName,
		"authorization_servers": []string{b.config.Issuer},
	})
}

// handleRegister implements just enough of RFC 7591 dynamic registration for
// public MCP clients: no secret, redirect URIs echoed back.
func (b *Bridge) handleRegister(w http.ResponseWriter, r *http.Request) {
	var request struct {
		ClientName   string   `json:"client_name"`
		RedirectURIs []string `json:"redirect_uris"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_client_metadata", "malformed registration request")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"client_id":                  uuid.NewString(),
		"client_id_issued_at":        time.Now().Unix(),
		"client_name":                request.ClientName,
		"redirect_uris":              request.RedirectURIs,
		"token_endpoint_auth_method": "none",
		"grant_types":                []string{"authorization_code"},
		"response_types":             []string{"code"},
	})
}

var consentTemplate = template.Must(template.New("consent").Parse(`<!doctype html>
<html><head><title>{{.ServerName}} — Authorize</title></head>
<body>
<h1>Connect to {{.ServerName}}</h1>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
<form method="post" action="/oauth/authorize">
  <input type="hidden" name="response_type" value="code">
  <input type="hidden" name="client_id" value="{{.ClientID}}">
  <input type="hidden" name="redirect_uri" value="{{.RedirectURI}}">
  <input type="hidden" name="state" value="{{.State}}">
  <input type="hidden" name="code_challenge" value="{{.CodeChallenge}}">
  <input type="hidden" name="code_challenge_method" value="S256">
  <label>API key <input type="password" name="api_key" autofocus></label>
  <button type="submit">Authorize</button>
</form>
<p>No key yet? <a href="/signup">Sign up free</a>.</p>
</body></html>`))

// handleAuthorize issues a short-lived single-use code bound to the client's
// proof-key challenge. The key owner proves identity by submitting their API
// key; without one the consent form is rendered.
func (b *Bridge) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "malformed request")
		return
	}
	redirectURI := r.Form.Get("redirect_uri")
	challenge := r.Form.Get("code_challenge")
	method := r.Form.Get("code_challenge_method")
	if redirectURI == "" || challenge == "" {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "redirect_uri and code_challenge are required")
		return
	}
	if _, err := url.ParseRequestURI(redirectURI); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "redirect_uri is not a valid URI")
		return
	}
	if method != "" && method != CodeChallengeMethodS256 {
		b.redirectError(w, r, redirectURI, "invalid_request", "only S256 code_challenge_method is supported")
		return
	}

	apiKey := r.Form.Get("api_key")
	if apiKey == "" {
		b.renderConsent(w, r, "")
		return
	}
	resolution, err := b.gate.Resolve(r.Context(), apiKey)
	if err != nil {
		b.renderConsent(w, r, "That API key was not recognized.")
		return
	}

	now := time.Now()
	pending := &pendingAuthorization{
		Code:          uuid.NewString(),
		CodeChallenge: challenge,
		RedirectURI:   redirectURI,
		ClientID:      r.Form.Get("client_id"),
		APIKey:        resolution.Key,
		CreatedAt:     now,
		ExpiresAt:     now.Add(b.config.CodeTTL),
	}
	b.codes.Put(pending)
	b.logger.Info("authorization code issued", "client_id", pending.ClientID, "tier", resolution.Tier)

	target, _ := url.Parse(redirectURI)
	query := target.Query()
	query.Set("code", pending.Code)
	if state := r.Form.Get("state"); state != "" {
		query.Set("state", state)
	}
	target.RawQuery = query.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

// handleToken redeems a code exactly once. Unknown, replayed or expired codes
// and verifier mismatches all answer invalid_grant.
func (b *Bridge) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "malformed request")
		return
	}
	if grant := r.Form.Get("grant_type"); grant != "authorization_code" {
		writeOAuthError(w, http.StatusBadRequest, "unsupported_grant_type", "only authorization_code is supported")
		return
	}
	code := r.Form.Get("code")
	verifier := r.Form.Get("code_verifier")
	if code == "" || verifier == "" {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "code and code_verifier are required")
		return
	}

	pending, ok := b.codes.Redeem(code)
	if !ok {
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "authorization code is unknown or already redeemed")
		return
	}
	if pending.expired(time.Now()) {
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "authorization code expired")
		return
	}
	if !VerifyS256(verifier, pending.CodeChallenge) {
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "code_verifier does not match challenge")
		return
	}

	resolution, err := b.gate.Resolve(r.Context(), pending.APIKey)
	if err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "key behind this code is no longer valid")
		return
	}
	token, expiresIn, err := b.tokens.Issue(resolution.Key, resolution.Email)
	if err != nil {
		b.logger.Error("token signing failed", "error", err)
		writeOAuthError(w, http.StatusInternalServerError, "server_error", "failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   expiresIn,
	})
}

func (b *Bridge) renderConsent(w http.ResponseWriter, r *http.Request, errorMessage string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = consentTemplate.Execute(w, map[string]string{
		"ServerName":    b.config.ServerName,
		"ClientID":      r.Form.Get("client_id"),
		"RedirectURI":   r.Form.Get("redirect_uri"),
		"State":         r.Form.Get("state"),
		"CodeChallenge": r.Form.Get("code_challenge"),
		"Error":         errorMessage,
	})
}

func (b *Bridge) redirectError(w http.ResponseWriter, r *http.Request, redirectURI, code, description string) {
	target, err := url.Parse(redirectURI)
	if err != nil {
		writeOAuthError(w, http.StatusBadRequest, code, description)
		return
	}
	query := target.Query()
	query.Set("error", code)
	query.Set("error_description", description)
	if state := r.Form.Get("state"); state != "" {
		query.Set("state", state)
	}
	target.RawQuery = query.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeOAuthError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, map[string]string{
		"error":             code,
		"error_description": description,
	})
}

// PendingCount reports in-flight authorization exchanges (used by tests and
// the health surface).
func (b *Bridge) PendingCount() int {
	return b.codes.Size()
}
