package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ezbizservices/seo-mcp/schema"
)

type analyzeSERPInput struct {
	Query      string `json:"query" description:"Search query to analyze"`
	NumResults *int   `json:"num_results,omitempty" description:"Number of results to analyze (max 10)"`
}

const analyzeSERPInstruction = `You are an expert SEO analyst. Analyze the search engine results page (SERP) for the given query.

Structure your report as:
## SERP Analysis: "[query]"

### Search Intent
- Primary intent type (informational/commercial/transactional/navigational)
- User expectations when searching this query

### Top Results Overview
For each of the top results, note:
- Domain authority indicators (is it a major brand, niche site, forum?)
- Content type (article, product page, video, tool, etc.)
- Title tag optimization quality
- Meta description effectiveness

### Content Patterns
- Average word count of ranking pages
- Common H1/H2 patterns
- Content structure patterns (listicles, how-tos, comparisons)
- Schema markup usage

### Technical Patterns
- SSL adoption rate
- Average page load time
- Mobile optimization indicators

### Ranking Opportunity Assessment
- Difficulty estimate (easy/medium/hard/very hard)
- Content gaps in current results
- Specific angle to take to compete
- Minimum content requirements to rank

### Actionable Recommendations
- Exact title tag to use
- Content outline (H2 structure)
- Key topics to cover
- Differentiation strategy

Be specific — reference actual data from the results.`

func newAnalyzeSERP(deps *Deps) (*Definition, error) {
	return definition(
		"analyze_serp",
		"Analyze search engine results for a query — top ranking pages, content patterns, SERP features, and ranking opportunity assessment.",
		&analyzeSERPInput{},
		func(ctx context.Context, arguments map[string]interface{}) (*schema.CallToolResult, error) {
			var input analyzeSERPInput
			if err := decodeArguments(arguments, &input); err != nil {
				return nil, err
			}
			report, err := analyzeSERP(ctx, deps, &input)
			if err != nil {
				return nil, err
			}
			return schema.NewTextResult(report), nil
		},
	)
}

func analyzeSERP(ctx context.Context, deps *Deps, input *analyzeSERPInput) (string, error) {
	logger := deps.logger()
	limit := 10
	if input.NumResults != nil && *input.NumResults > 0 && *input.NumResults < limit {
		limit = *input.NumResults
	}
	logger.Info("starting SERP analysis", "query", input.Query, "limit", limit)

	results, err := deps.Search.Search(ctx, input.Query, limit)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return fmt.Sprintf("No search results found for %q. The query may be too specific or there may be a temporary search issue.", input.Query), nil
	}
	if len(results) > limit {
		results = results[:limit]
	}

	type pageDetail struct {
		ActualTitle string            `json:"actualTitle"`
		Description string            `json:"description"`
		H1          []string          `json:"h1"`
		H2          []string          `json:"h2"`
		HasSSL      bool              `json:"hasSSL"`
		LoadTimeMs  int64             `json:"loadTimeMs"`
		ImageCount  int               `json:"imageCount"`
		MetaTags    map[string]string `json:"metaTags,omitempty"`
		OGTags      map[string]string `json:"ogTags,omitempty"`
		SchemaOrg   bool              `json:"schemaOrg"`
		WordCount   int               `json:"wordCount"`
		TextPreview string            `json:"textPreview"`
	}
	type serpEntry struct {
		Position int         `json:"position"`
		URL      string      `json:"url"`
		Title    string      `json:"title"`
		Snippet  string      `json:"snippet"`
		Page     *pageDetail `json:"page"`
	}

	entries := make([]serpEntry, len(results))
	var wg sync.WaitGroup
	for i, result := range results {
		entries[i] = serpEntry{Position: i + 1, URL: result.URL, Title: result.Title, Snippet: result.Snippet}
		wg.Add(1)
		go func(i int, pageURL string) {
			defer wg.Done()
			page, err := deps.Fetch.Fetch(ctx, pageURL)
			if err != nil {
				return
			}
			entries[i].Page = &pageDetail{
				ActualTitle: page.Title,
				Description: page.Description,
				H1:          head(page.H1, 3),
				H2:          head(page.H2, 6),
				HasSSL:      page.HasSSL,
				LoadTimeMs:  page.LoadTimeMs,
				ImageCount:  page.Images,
				MetaTags:    page.MetaTags,
				OGTags:      page.OGTags,
				SchemaOrg:   page.SchemaOrg > 0,
				WordCount:   page.WordCount(),
				TextPreview: truncate(page.TextContent, 400),
			}
		}(i, result.URL)
	}
	wg.Wait()

	var evidence strings.Builder
	fmt.Fprintf(&evidence, "Query: %q\n\n", input.Query)
	fmt.Fprintf(&evidence, "SERP Results (%d analyzed):\n%s\n", len(entries), toJSON(entries))
	evidence.WriteString("\nProvide a detailed SERP analysis with actionable ranking recommendations.")

	report, err := deps.Analyze.Analyze(ctx, analyzeSERPInstruction, evidence.String(), 3000)
	if err != nil {
		return "", err
	}
	logger.Info("SERP analysis complete", "query", input.Query, "results_analyzed", len(entries))
	return report, nil
}
