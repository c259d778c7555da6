package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezbizservices/seo-mcp/keystore"
	"github.com/ezbizservices/seo-mcp/schema"
	"github.com/ezbizservices/seo-mcp/server/auth"
	"github.com/ezbizservices/seo-mcp/server/oauth"
	"github.com/ezbizservices/seo-mcp/tools"
)

type fakeSearcher struct{}

func (fakeSearcher) Search(_ context.Context, query string, limit int) ([]tools.SearchResult, error) {
	results := make([]tools.SearchResult, 0, limit)
	for i := 0; i < limit; i++ {
		results = append(results, tools.SearchResult{
			Title:   fmt.Sprintf("result %d for %s", i, query),
			URL:     fmt.Sprintf("https://example.com/%d", i),
			Snippet: "snippet",
		})
	}
	return results, nil
}

type fakeFetcher struct{}

func (fakeFetcher) Fetch(_ context.Context, pageURL string) (*tools.Page, error) {
	return &tools.Page{
		URL:         pageURL,
		Title:       "Example Page",
		Description: "An example page",
		H1:          []string{"Example"},
		H2:          []string{"Section"},
		TextContent: "example content about keywords",
		HasSSL:      true,
	}, nil
}

type fakeAnalyzer struct{}

func (fakeAnalyzer) Analyze(_ context.Context, _, _ string, _ int) (string, error) {
	return "analysis report", nil
}

type testEnv struct {
	server  *httptest.Server
	srv     *Server
	store   keystore.Store
	freeKey string
	proKey  string
	secret  []byte
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := keystore.NewMemoryStore()
	free, err := store.Create(context.Background(), "Free User", "free@example.com", "free")
	require.NoError(t, err)
	pro, err := store.Create(context.Background(), "Pro User", "pro@example.com", "pro")
	require.NoError(t, err)

	secret := []byte("test-secret")
	gate := auth.NewGate(store, auth.WithTokenSecret(secret))
	registry, err := tools.Default(&tools.Deps{
		Search:  fakeSearcher{},
		Fetch:   fakeFetcher{},
		Analyze: fakeAnalyzer{},
	})
	require.NoError(t, err)

	bridge := oauth.New(oauth.Config{
		Issuer:      "https://seo.example.com",
		ServerName:  "test",
		TokenSecret: secret,
	}, gate)

	srv, err := New(
		WithGate(gate),
		WithKeystore(store),
		WithTools(registry),
		WithBridge(bridge),
		WithAdminSecret("admin-secret"),
	)
	require.NoError(t, err)

	httpServer := httptest.NewServer(srv.Handler())
	t.Cleanup(httpServer.Close)
	return &testEnv{
		server:  httpServer,
		srv:     srv,
		store:   store,
		freeKey: free.Key,
		proKey:  pro.Key,
		secret:  secret,
	}
}

type rpcResponse struct {
	Jsonrpc string          `json:"jsonrpc"`
	Id      interface{}     `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (e *testEnv) post(t *testing.T, apiKey, sessionID string, message map[string]interface{}) (*http.Response, *rpcResponse) {
	t.Helper()
	body, err := json.Marshal(message)
	require.NoError(t, err)
	request, err := http.NewRequest(http.MethodPost, e.server.URL+"/mcp", bytes.NewReader(body))
	require.NoError(t, err)
	request.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		request.Header.Set("X-API-Key", apiKey)
	}
	if sessionID != "" {
		request.Header.Set(SessionIDHeader, sessionID)
	}
	response, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	data, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	_ = response.Body.Close()
	decoded := &rpcResponse{}
	if len(data) > 0 {
		_ = json.Unmarshal(data, decoded)
	}
	return response, decoded
}

func (e *testEnv) initialize(t *testing.T, apiKey string) string {
	t.Helper()
	response, decoded := e.post(t, apiKey, "", map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params": map[string]interface{}{
			"protocolVersion": schema.LatestProtocolVersion,
			"clientInfo":      map[string]string{"name": "test", "version": "0.1"},
		},
	})
	require.Equal(t, http.StatusOK, response.StatusCode)
	require.Nil(t, decoded.Error)
	sessionID := response.Header.Get(SessionIDHeader)
	require.NotEmpty(t, sessionID)
	return sessionID
}

func (e *testEnv) usage(t *testing.T, key string) int64 {
	t.Helper()
	record, err := e.store.Validate(context.Background(), key)
	require.NoError(t, err)
	return record.UsageFor(keystore.MonthKey(time.Now()))
}

func TestInitializeWithoutCredential(t *testing.T) {
	env := newTestEnv(t)
	response, decoded := env.post(t, "", "", map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params":  map[string]interface{}{},
	})
	assert.Equal(t, http.StatusUnauthorized, response.StatusCode)
	assert.Equal(t, schema.Unauthorized, decoded.Error.Code)
	assert.Contains(t, response.Header.Get("WWW-Authenticate"), "resource_metadata")
}

func TestInitializeInvalidCredential(t *testing.T) {
	env := newTestEnv(t)
	response, decoded := env.post(t, "seo_bogus", "", map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params":  map[string]interface{}{},
	})
	assert.Equal(t, http.StatusUnauthorized, response.StatusCode)
	assert.Equal(t, schema.Unauthorized, decoded.Error.Code)
}

func TestInitializeHandshake(t *testing.T) {
	env := newTestEnv(t)
	response, decoded := env.post(t, env.freeKey, "", map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params": map[string]interface{}{
			"protocolVersion": schema.LatestProtocolVersion,
		},
	})
	assert.Equal(t, http.StatusOK, response.StatusCode)
	require.Nil(t, decoded.Error)
	assert.NotEmpty(t, response.Header.Get(SessionIDHeader))

	result := &schema.InitializeResult{}
	require.NoError(t, json.Unmarshal(decoded.Result, result))
	assert.Equal(t, schema.LatestProtocolVersion, result.ProtocolVersion)
	assert.NotNil(t, result.Capabilities.Tools)

	// Handshake must not count against the monthly quota.
	assert.Equal(t, int64(0), env.usage(t, env.freeKey))
}

func TestPostWithoutSession(t *testing.T) {
	env := newTestEnv(t)
	response, decoded := env.post(t, env.freeKey, "", map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "tools/list",
	})
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	assert.Equal(t, schema.SessionRequired, decoded.Error.Code)
}

func TestPostWithUnknownSession(t *testing.T) {
	env := newTestEnv(t)
	response, decoded := env.post(t, env.freeKey, "does-not-exist", map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "tools/list",
	})
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	assert.Equal(t, schema.SessionRequired, decoded.Error.Code)
}

func TestGetWithoutSession(t *testing.T) {
	env := newTestEnv(t)
	request, err := http.NewRequest(http.MethodGet, env.server.URL+"/mcp", nil)
	require.NoError(t, err)
	response, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	defer response.Body.Close()
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)

	decoded := &rpcResponse{}
	require.NoError(t, json.NewDecoder(response.Body).Decode(decoded))
	assert.Equal(t, schema.SessionRequired, decoded.Error.Code)
}

func TestDeleteSession(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.initialize(t, env.freeKey)

	request, err := http.NewRequest(http.MethodDelete, env.server.URL+"/mcp", nil)
	require.NoError(t, err)
	request.Header.Set(SessionIDHeader, sessionID)
	response, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	_ = response.Body.Close()
	assert.Equal(t, http.StatusNoContent, response.StatusCode)

	// The second delete observes an already-removed session.
	response, err = http.DefaultClient.Do(request.Clone(context.Background()))
	require.NoError(t, err)
	defer response.Body.Close()
	assert.Equal(t, http.StatusNotFound, response.StatusCode)
	decoded := &rpcResponse{}
	require.NoError(t, json.NewDecoder(response.Body).Decode(decoded))
	assert.Equal(t, schema.SessionNotFound, decoded.Error.Code)
}

func TestToolsList(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.initialize(t, env.freeKey)
	response, decoded := env.post(t, "", sessionID, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "tools/list",
	})
	assert.Equal(t, http.StatusOK, response.StatusCode)
	require.Nil(t, decoded.Error)

	result := &schema.ListToolsResult{}
	require.NoError(t, json.Unmarshal(decoded.Result, result))
	assert.Len(t, result.Tools, 6)
	assert.Equal(t, "keyword_research", result.Tools[0].Name)
}

func TestToolCallRequiresCredential(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.initialize(t, env.freeKey)
	response, decoded := env.post(t, "", sessionID, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      3,
		"method":  "tools/call",
		"params": map[string]interface{}{
			"name":      "keyword_research",
			"arguments": map[string]interface{}{"seed_keyword": "crm"},
		},
	})
	assert.Equal(t, http.StatusUnauthorized, response.StatusCode)
	assert.Equal(t, schema.Unauthorized, decoded.Error.Code)
	assert.Equal(t, int64(0), env.usage(t, env.freeKey))
}

func TestToolCallRecordsUsage(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.initialize(t, env.freeKey)
	response, decoded := env.post(t, env.freeKey, sessionID, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      3,
		"method":  "tools/call",
		"params": map[string]interface{}{
			"name":      "keyword_research",
			"arguments": map[string]interface{}{"seed_keyword": "crm"},
		},
	})
	assert.Equal(t, http.StatusOK, response.StatusCode)
	require.Nil(t, decoded.Error)

	result := &schema.CallToolResult{}
	require.NoError(t, json.Unmarshal(decoded.Result, result))
	require.Len(t, result.Content, 1)
	assert.Equal(t, "analysis report", result.Content[0].Text)
	assert.Equal(t, int64(1), env.usage(t, env.freeKey))
}

func TestToolCallEntitlementRefusal(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.initialize(t, env.freeKey)
	response, decoded := env.post(t, env.freeKey, sessionID, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      4,
		"method":  "tools/call",
		"params": map[string]interface{}{
			"name":      "site_audit",
			"arguments": map[string]interface{}{"url": "https://example.com"},
		},
	})
	// A declined capability is a successful call carrying an upgrade
	// message, never a protocol error.
	assert.Equal(t, http.StatusOK, response.StatusCode)
	require.Nil(t, decoded.Error)

	result := &schema.CallToolResult{}
	require.NoError(t, json.Unmarshal(decoded.Result, result))
	require.Len(t, result.Content, 1)
	assert.Contains(t, result.Content[0].Text, "Site Audit requires a Pro or Business tier")
	assert.Equal(t, int64(0), env.usage(t, env.freeKey), "refused calls must not count")
}

func TestProTierToolCall(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.initialize(t, env.proKey)
	response, decoded := env.post(t, env.proKey, sessionID, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      5,
		"method":  "tools/call",
		"params": map[string]interface{}{
			"name":      "site_audit",
			"arguments": map[string]interface{}{"url": "https://example.com"},
		},
	})
	assert.Equal(t, http.StatusOK, response.StatusCode)
	require.Nil(t, decoded.Error)
	result := &schema.CallToolResult{}
	require.NoError(t, json.Unmarshal(decoded.Result, result))
	assert.Equal(t, "analysis report", result.Content[0].Text)
	assert.Equal(t, int64(1), env.usage(t, env.proKey))
}

func TestTierFrozenForSessionLifetime(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.initialize(t, env.freeKey)

	// Upgrading the key mid-session must not change the open session's
	// entitlements.
	require.NoError(t, env.store.Upgrade(context.Background(), "free@example.com", "pro"))

	response, decoded := env.post(t, env.freeKey, sessionID, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      7,
		"method":  "tools/call",
		"params": map[string]interface{}{
			"name":      "site_audit",
			"arguments": map[string]interface{}{"url": "https://example.com"},
		},
	})
	assert.Equal(t, http.StatusOK, response.StatusCode)
	require.Nil(t, decoded.Error)

	result := &schema.CallToolResult{}
	require.NoError(t, json.Unmarshal(decoded.Result, result))
	require.Len(t, result.Content, 1)
	assert.Contains(t, result.Content[0].Text, "requires a Pro or Business tier")
	assert.Equal(t, int64(0), env.usage(t, env.freeKey))
}

func TestKnownSessionDoesNotRevalidateCredential(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.initialize(t, env.freeKey)

	// The credential was proven at session creation; a call carrying an
	// unprovisioned key still dispatches and bills the session's identity.
	response, decoded := env.post(t, "seo_never_provisioned", sessionID, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      8,
		"method":  "tools/call",
		"params": map[string]interface{}{
			"name":      "keyword_research",
			"arguments": map[string]interface{}{"seed_keyword": "crm"},
		},
	})
	assert.Equal(t, http.StatusOK, response.StatusCode)
	require.Nil(t, decoded.Error)

	result := &schema.CallToolResult{}
	require.NoError(t, json.Unmarshal(decoded.Result, result))
	require.Len(t, result.Content, 1)
	assert.Equal(t, "analysis report", result.Content[0].Text)
	assert.Equal(t, int64(1), env.usage(t, env.freeKey), "usage lands on the session's key")
}

func TestReinitializeKeepsSession(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.initialize(t, env.freeKey)
	require.Equal(t, 1, env.srv.Registry().Len())

	response, decoded := env.post(t, env.freeKey, sessionID, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      9,
		"method":  "initialize",
		"params": map[string]interface{}{
			"protocolVersion": schema.LatestProtocolVersion,
		},
	})
	assert.Equal(t, http.StatusOK, response.StatusCode)
	require.Nil(t, decoded.Error)

	result := &schema.InitializeResult{}
	require.NoError(t, json.Unmarshal(decoded.Result, result))
	assert.Equal(t, schema.LatestProtocolVersion, result.ProtocolVersion)

	// No second session was minted and the original is still live.
	assert.Equal(t, 1, env.srv.Registry().Len())
	_, ok := env.srv.Registry().Get(sessionID)
	assert.True(t, ok)
}

func TestToolCallEmitsLogNotifications(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.initialize(t, env.freeKey)

	_, decoded := env.post(t, env.freeKey, sessionID, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      10,
		"method":  "tools/call",
		"params": map[string]interface{}{
			"name":      "keyword_research",
			"arguments": map[string]interface{}{"seed_keyword": "crm"},
		},
	})
	require.Nil(t, decoded.Error)

	session, ok := env.srv.Registry().Get(sessionID)
	require.True(t, ok)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	go func() {
		time.Sleep(50 * time.Millisecond)
		session.Transport.Close()
	}()
	require.NoError(t, session.Transport.ServeStream(recorder, request))

	body := recorder.Body.String()
	assert.Contains(t, body, "notifications/message")
	assert.Contains(t, body, "keyword_research")
}

func TestSetLevelFiltersNotifications(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.initialize(t, env.freeKey)

	_, decoded := env.post(t, "", sessionID, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      11,
		"method":  "logging/setLevel",
		"params":  map[string]interface{}{"level": "error"},
	})
	require.Nil(t, decoded.Error)

	_, decoded = env.post(t, env.freeKey, sessionID, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      12,
		"method":  "tools/call",
		"params": map[string]interface{}{
			"name":      "keyword_research",
			"arguments": map[string]interface{}{"seed_keyword": "crm"},
		},
	})
	require.Nil(t, decoded.Error)

	session, ok := env.srv.Registry().Get(sessionID)
	require.True(t, ok)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	go func() {
		time.Sleep(50 * time.Millisecond)
		session.Transport.Close()
	}()
	require.NoError(t, session.Transport.ServeStream(recorder, request))

	assert.NotContains(t, recorder.Body.String(), "notifications/message",
		"info events are filtered once the client asks for errors only")
}

func TestConcurrentUsageIncrements(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.initialize(t, env.freeKey)

	const calls = 50
	var wg sync.WaitGroup
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			response, decoded := env.post(t, env.freeKey, sessionID, map[string]interface{}{
				"jsonrpc": "2.0",
				"id":      100 + i,
				"method":  "tools/call",
				"params": map[string]interface{}{
					"name":      "keyword_research",
					"arguments": map[string]interface{}{"seed_keyword": "crm"},
				},
			})
			assert.Equal(t, http.StatusOK, response.StatusCode)
			assert.Nil(t, decoded.Error)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(calls), env.usage(t, env.freeKey), "no concurrent increment may be lost")
}

func TestUnknownMethod(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.initialize(t, env.freeKey)
	response, decoded := env.post(t, "", sessionID, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      6,
		"method":  "resources/list",
	})
	assert.Equal(t, http.StatusOK, response.StatusCode)
	require.NotNil(t, decoded.Error)
	assert.Equal(t, -32601, decoded.Error.Code)
}

func TestParseError(t *testing.T) {
	env := newTestEnv(t)
	request, err := http.NewRequest(http.MethodPost, env.server.URL+"/mcp", bytes.NewReader([]byte("not json")))
	require.NoError(t, err)
	response, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	defer response.Body.Close()
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.initialize(t, env.freeKey)

	response, err := http.Get(env.server.URL + "/health")
	require.NoError(t, err)
	defer response.Body.Close()
	assert.Equal(t, http.StatusOK, response.StatusCode)

	var health map[string]interface{}
	require.NoError(t, json.NewDecoder(response.Body).Decode(&health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, float64(1), health["activeSessions"])
}

func TestServerCard(t *testing.T) {
	env := newTestEnv(t)
	response, err := http.Get(env.server.URL + "/.well-known/mcp/server-card.json")
	require.NoError(t, err)
	defer response.Body.Close()
	assert.Equal(t, http.StatusOK, response.StatusCode)

	var card struct {
		Tools []schema.Tool `json:"tools"`
	}
	require.NoError(t, json.NewDecoder(response.Body).Decode(&card))
	assert.Len(t, card.Tools, 6)
}

func TestSignupAndUsageAPI(t *testing.T) {
	env := newTestEnv(t)

	payload, _ := json.Marshal(map[string]string{"name": "New User", "email": "new@example.com"})
	response, err := http.Post(env.server.URL+"/api/keys/signup", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer response.Body.Close()
	require.Equal(t, http.StatusOK, response.StatusCode)

	var signup struct {
		Key  string `json:"key"`
		Tier string `json:"tier"`
	}
	require.NoError(t, json.NewDecoder(response.Body).Decode(&signup))
	assert.NotEmpty(t, signup.Key)
	assert.Equal(t, "free", signup.Tier)

	// Signing up again recovers the existing key.
	response2, err := http.Post(env.server.URL+"/api/keys/signup", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer response2.Body.Close()
	var recovered struct {
		Key       string `json:"key"`
		Recovered bool   `json:"recovered"`
	}
	require.NoError(t, json.NewDecoder(response2.Body).Decode(&recovered))
	assert.Equal(t, signup.Key, recovered.Key)
	assert.True(t, recovered.Recovered)

	usageResponse, err := http.Get(env.server.URL + "/api/keys/usage?key=" + signup.Key)
	require.NoError(t, err)
	defer usageResponse.Body.Close()
	assert.Equal(t, http.StatusOK, usageResponse.StatusCode)
}

func TestProvisionRequiresAdminSecret(t *testing.T) {
	env := newTestEnv(t)
	payload, _ := json.Marshal(map[string]string{"email": "vip@example.com", "tier": "business"})

	request, _ := http.NewRequest(http.MethodPost, env.server.URL+"/api/keys/provision", bytes.NewReader(payload))
	response, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	_ = response.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, response.StatusCode)

	request, _ = http.NewRequest(http.MethodPost, env.server.URL+"/api/keys/provision", bytes.NewReader(payload))
	request.Header.Set("X-Admin-Secret", "admin-secret")
	response, err = http.DefaultClient.Do(request)
	require.NoError(t, err)
	defer response.Body.Close()
	assert.Equal(t, http.StatusOK, response.StatusCode)

	var provisioned struct {
		Key  string `json:"key"`
		Tier string `json:"tier"`
	}
	require.NoError(t, json.NewDecoder(response.Body).Decode(&provisioned))
	assert.Equal(t, "business", provisioned.Tier)
	assert.NotEmpty(t, provisioned.Key)
}
