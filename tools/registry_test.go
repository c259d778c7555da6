package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezbizservices/seo-mcp/schema"
)

type stubSearcher struct{}

func (stubSearcher) Search(_ context.Context, query string, limit int) ([]SearchResult, error) {
	return []SearchResult{{Title: "t", URL: "https://example.com/a", Snippet: query}}, nil
}

type stubFetcher struct{}

func (stubFetcher) Fetch(_ context.Context, pageURL string) (*Page, error) {
	return &Page{URL: pageURL, Title: "t", TextContent: "words on a page"}, nil
}

type stubAnalyzer struct{}

func (stubAnalyzer) Analyze(_ context.Context, _, _ string, _ int) (string, error) {
	return "report", nil
}

func stubDeps() *Deps {
	return &Deps{Search: stubSearcher{}, Fetch: stubFetcher{}, Analyze: stubAnalyzer{}}
}

func TestDefaultRegistry(t *testing.T) {
	registry, err := Default(stubDeps())
	require.NoError(t, err)

	listed := registry.List()
	names := make([]string, 0, len(listed))
	for _, tool := range listed {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{
		"keyword_research",
		"analyze_serp",
		"check_backlinks",
		"optimize_content",
		"site_audit",
		"content_brief",
	}, names)

	for _, tool := range listed {
		assert.NotEmpty(t, tool.Description, tool.Name)
		assert.Equal(t, "object", tool.InputSchema.Type, tool.Name)
		assert.NotEmpty(t, tool.InputSchema.Properties, tool.Name)
	}
}

func TestInputSchemaRequiredFields(t *testing.T) {
	registry, err := Default(stubDeps())
	require.NoError(t, err)

	testCases := []struct {
		tool     string
		required []string
	}{
		{tool: "keyword_research", required: []string{"seed_keyword"}},
		{tool: "analyze_serp", required: []string{"query"}},
		{tool: "check_backlinks", required: []string{"url"}},
		{tool: "optimize_content", required: []string{"url", "target_keyword"}},
		{tool: "site_audit", required: []string{"url"}},
		{tool: "content_brief", required: []string{"topic", "target_keyword"}},
	}
	for _, testCase := range testCases {
		definition, ok := registry.Get(testCase.tool)
		require.True(t, ok, testCase.tool)
		assert.Equal(t, testCase.required, definition.Tool.InputSchema.Required, testCase.tool)
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	registry := NewRegistry()
	def := &Definition{Tool: schema.Tool{Name: "keyword_research"}}
	require.NoError(t, registry.Register(def))
	assert.Error(t, registry.Register(def))

	assert.Error(t, registry.Register(&Definition{Tool: schema.Tool{}}), "nameless tools are refused")
}

func TestKeywordResearchProducesReport(t *testing.T) {
	registry, err := Default(stubDeps())
	require.NoError(t, err)
	definition, ok := registry.Get("keyword_research")
	require.True(t, ok)

	result, err := definition.Handle(context.Background(), map[string]interface{}{
		"seed_keyword": "crm software",
	})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "report", result.Content[0].Text)
}

func TestDecodeArguments(t *testing.T) {
	var input struct {
		URL        string `json:"url"`
		NumResults int    `json:"num_results"`
	}
	err := decodeArguments(map[string]interface{}{
		"url":         "https://example.com",
		"num_results": float64(7),
	}, &input)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", input.URL)
	assert.Equal(t, 7, input.NumResults)
}
