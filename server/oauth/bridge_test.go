package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/ezbizservices/seo-mcp/keystore"
	"github.com/ezbizservices/seo-mcp/server/auth"
)

type bridgeEnv struct {
	server *httptest.Server
	bridge *Bridge
	gate   *auth.Gate
	apiKey string
}

func newBridgeEnv(t *testing.T, codeTTL time.Duration) *bridgeEnv {
	t.Helper()
	store := keystore.NewMemoryStore()
	record, err := store.Create(context.Background(), "Casey", "casey@example.com", "pro")
	require.NoError(t, err)

	secret := []byte("bridge-test-secret")
	gate := auth.NewGate(store, auth.WithTokenSecret(secret))
	bridge := New(Config{
		Issuer:      "https://seo.example.com",
		ServerName:  "test server",
		TokenSecret: secret,
		CodeTTL:     codeTTL,
	}, gate)

	router := chi.NewRouter()
	bridge.RegisterRoutes(router)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &bridgeEnv{server: server, bridge: bridge, gate: gate, apiKey: record.Key}
}

func (e *bridgeEnv) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:    "test-client",
		RedirectURL: "http://localhost:9876/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:   e.server.URL + "/oauth/authorize",
			TokenURL:  e.server.URL + "/oauth/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// authorize submits the consent form with the API key and returns the code
// from the redirect.
func (e *bridgeEnv) authorize(t *testing.T, config *oauth2.Config, verifier, apiKey string) string {
	t.Helper()
	authURL := config.AuthCodeURL("state-123", oauth2.S256ChallengeOption(verifier))
	form := url.Values{"api_key": {apiKey}}

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	response, err := client.Post(authURL, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	defer response.Body.Close()
	require.Equal(t, http.StatusFound, response.StatusCode)

	location, err := url.Parse(response.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "state-123", location.Query().Get("state"))
	code := location.Query().Get("code")
	require.NotEmpty(t, code)
	return code
}

func TestAuthorizationCodeFlow(t *testing.T) {
	env := newBridgeEnv(t, 0)
	config := env.oauthConfig()
	verifier := oauth2.GenerateVerifier()

	code := env.authorize(t, config, verifier, env.apiKey)
	assert.Equal(t, 1, env.bridge.PendingCount())

	token, err := config.Exchange(context.Background(), code, oauth2.VerifierOption(verifier))
	require.NoError(t, err)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.NotEmpty(t, token.AccessToken)
	assert.Equal(t, 0, env.bridge.PendingCount())

	// The issued token resolves through the gate to the key's identity.
	resolution, err := env.gate.Resolve(context.Background(), token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, env.apiKey, resolution.Key)
	assert.Equal(t, auth.TierPro, resolution.Tier)
}

func TestCodeIsSingleUse(t *testing.T) {
	env := newBridgeEnv(t, 0)
	config := env.oauthConfig()
	verifier := oauth2.GenerateVerifier()

	code := env.authorize(t, config, verifier, env.apiKey)
	_, err := config.Exchange(context.Background(), code, oauth2.VerifierOption(verifier))
	require.NoError(t, err)

	_, err = config.Exchange(context.Background(), code, oauth2.VerifierOption(verifier))
	assert.Error(t, err, "a replayed code must be refused")
}

func TestWrongVerifierRejected(t *testing.T) {
	env := newBridgeEnv(t, 0)
	config := env.oauthConfig()

	code := env.authorize(t, config, oauth2.GenerateVerifier(), env.apiKey)
	_, err := config.Exchange(context.Background(), code, oauth2.VerifierOption(oauth2.GenerateVerifier()))
	assert.Error(t, err)

	// A failed proof still consumes the code.
	assert.Equal(t, 0, env.bridge.PendingCount())
}

func TestExpiredCodeRejected(t *testing.T) {
	env := newBridgeEnv(t, time.Nanosecond)
	config := env.oauthConfig()
	verifier := oauth2.GenerateVerifier()

	code := env.authorize(t, config, verifier, env.apiKey)
	time.Sleep(5 * time.Millisecond)
	_, err := config.Exchange(context.Background(), code, oauth2.VerifierOption(verifier))
	assert.Error(t, err)
}

func TestAuthorizeWithoutKeyRendersConsent(t *testing.T) {
	env := newBridgeEnv(t, 0)
	config := env.oauthConfig()
	authURL := config.AuthCodeURL("s", oauth2.S256ChallengeOption(oauth2.GenerateVerifier()))

	response, err := http.Get(authURL)
	require.NoError(t, err)
	defer response.Body.Close()

	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Contains(t, response.Header.Get("Content-Type"), "text/html")
	assert.Equal(t, 0, env.bridge.PendingCount(), "no code is minted before the key is proven")
}

func TestAuthorizeWithInvalidKeyReprompts(t *testing.T) {
	env := newBridgeEnv(t, 0)
	config := env.oauthConfig()
	authURL := config.AuthCodeURL("s", oauth2.S256ChallengeOption(oauth2.GenerateVerifier()))

	form := url.Values{"api_key": {"seo_wrong"}}
	response, err := http.Post(authURL, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	defer response.Body.Close()

	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Contains(t, response.Header.Get("Content-Type"), "text/html")
	assert.Equal(t, 0, env.bridge.PendingCount())
}

func TestAuthorizeRequiresChallenge(t *testing.T) {
	env := newBridgeEnv(t, 0)

	response, err := http.Get(env.server.URL + "/oauth/authorize?redirect_uri=http://localhost/cb")
	require.NoError(t, err)
	defer response.Body.Close()
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
}

func TestTokenRejectsUnsupportedGrant(t *testing.T) {
	env := newBridgeEnv(t, 0)

	form := url.Values{"grant_type": {"client_credentials"}}
	response, err := http.Post(env.server.URL+"/oauth/token", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	defer response.Body.Close()

	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(response.Body).Decode(&body))
	assert.Equal(t, "unsupported_grant_type", body["error"])
}

func TestMetadataDocuments(t *testing.T) {
	env := newBridgeEnv(t, 0)

	response, err := http.Get(env.server.URL + "/.well-known/oauth-authorization-server")
	require.NoError(t, err)
	defer response.Body.Close()
	require.Equal(t, http.StatusOK, response.StatusCode)

	var metadata map[string]interface{}
	require.NoError(t, json.NewDecoder(response.Body).Decode(&metadata))
	assert.Equal(t, "https://seo.example.com", metadata["issuer"])
	assert.Equal(t, "https://seo.example.com/oauth/authorize", metadata["authorization_endpoint"])
	assert.Equal(t, []interface{}{"S256"}, metadata["code_challenge_methods_supported"])

	resource, err := http.Get(env.server.URL + "/.well-known/oauth-protected-resource")
	require.NoError(t, err)
	defer resource.Body.Close()
	require.Equal(t, http.StatusOK, resource.StatusCode)
}

func TestDynamicRegistration(t *testing.T) {
	env := newBridgeEnv(t, 0)

	payload := `{"client_name":"Test IDE","redirect_uris":["http://localhost:9876/callback"]}`
	response, err := http.Post(env.server.URL+"/oauth/register", "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	defer response.Body.Close()
	require.Equal(t, http.StatusCreated, response.StatusCode)

	var registration struct {
		ClientID     string   `json:"client_id"`
		AuthMethod   string   `json:"token_endpoint_auth_method"`
		RedirectURIs []string `json:"redirect_uris"`
	}
	require.NoError(t, json.NewDecoder(response.Body).Decode(&registration))
	assert.NotEmpty(t, registration.ClientID)
	assert.Equal(t, "none", registration.AuthMethod)
	assert.Equal(t, []string{"http://localhost:9876/callback"}, registration.RedirectURIs)
}
