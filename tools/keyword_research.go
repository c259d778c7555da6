package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ezbizservices/seo-mcp/schema"
)

type keywordResearchInput struct {
	SeedKeyword string `json:"seed_keyword" description:"Primary keyword or topic to research"`
	Industry    string `json:"industry,omitempty" description:"Business industry or niche"`
	Location    string `json:"location,omitempty" description:"Target geographic location"`
}

const keywordResearchInstruction = `You are an expert SEO keyword researcher. Analyze the search results and page content to provide detailed keyword research.

Structure your report as:
## Keyword Research: [seed keyword]

### Primary Keyword Analysis
- Search intent (informational/commercial/transactional/navigational)
- Estimated competition level (low/medium/high) based on result quality
- Content type dominating results (blog posts, product pages, videos, etc.)

### Related Keywords & Variations
List 15-20 related keywords grouped by:
- Long-tail variations (3-5 words)
- Question-based keywords (what, how, why, best)
- Commercial intent keywords (buy, price, review, comparison)
- Informational keywords (guide, tutorial, tips)

### Content Gap Opportunities
Identify 3-5 topics where existing content is weak or missing.

### Content Strategy Recommendations
- Recommended content types to create
- Suggested article titles (5-7)
- Internal linking opportunities

Be specific and data-driven. Reference actual patterns you see in the search results.`

func newKeywordResearch(deps *Deps) (*Definition, error) {
	return definition(
		"keyword_research",
		"Research keyword opportunities for a business — search volume indicators, difficulty estimates, related terms, and content suggestions.",
		&keywordResearchInput{},
		func(ctx context.Context, arguments map[string]interface{}) (*schema.CallToolResult, error) {
			var input keywordResearchInput
			if err := decodeArguments(arguments, &input); err != nil {
				return nil, err
			}
			report, err := keywordResearch(ctx, deps, &input)
			if err != nil {
				return nil, err
			}
			return schema.NewTextResult(report), nil
		},
	)
}

func keywordResearch(ctx context.Context, deps *Deps, input *keywordResearchInput) (string, error) {
	logger := deps.logger()
	logger.Info("starting keyword_research", "seed_keyword", input.SeedKeyword, "industry", input.Industry)

	industry := ""
	if input.Industry != "" {
		industry = " " + input.Industry
	}
	location := ""
	if input.Location != "" {
		location = " " + input.Location
	}
	queries := []string{
		input.SeedKeyword + industry + location,
		input.SeedKeyword + " alternatives related terms",
		fmt.Sprintf("best %s%s %d", input.SeedKeyword, industry, time.Now().Year()),
		input.SeedKeyword + " tips guide how to",
	}
	results := searchAll(ctx, deps, queries, 8)

	pages := fetchAll(ctx, deps, resultURLs(results), 6)
	type pageSummary struct {
		URL         string   `json:"url"`
		Title       string   `json:"title"`
		Description string   `json:"description"`
		H1          []string `json:"h1"`
		H2          []string `json:"h2"`
		TextPreview string   `json:"textPreview"`
	}
	summaries := make([]pageSummary, 0, len(pages))
	for _, page := range pages {
		summaries = append(summaries, pageSummary{
			URL:         page.URL,
			Title:       page.Title,
			Description: page.Description,
			H1:          head(page.H1, 3),
			H2:          head(page.H2, 8),
			TextPreview: truncate(page.TextContent, 600),
		})
	}

	var searchContext strings.Builder
	for i, result := range results {
		if i >= 20 {
			break
		}
		fmt.Fprintf(&searchContext, "- %q — %s\n", result.Title, result.Snippet)
	}

	var evidence strings.Builder
	fmt.Fprintf(&evidence, "Seed Keyword: %s\n", input.SeedKeyword)
	if input.Industry != "" {
		fmt.Fprintf(&evidence, "Industry: %s\n", input.Industry)
	}
	if input.Location != "" {
		fmt.Fprintf(&evidence, "Target Location: %s\n", input.Location)
	}
	fmt.Fprintf(&evidence, "\nSearch Results (%d total):\n%s\n", len(results), searchContext.String())
	fmt.Fprintf(&evidence, "Top-Ranking Page Analysis:\n%s\n", toJSON(summaries))
	evidence.WriteString("\nProvide a comprehensive keyword research report with actionable recommendations.")

	report, err := deps.Analyze.Analyze(ctx, keywordResearchInstruction, evidence.String(), 3000)
	if err != nil {
		return "", err
	}
	logger.Info("keyword research complete",
		"seed_keyword", input.SeedKeyword,
		"results_found", len(results),
		"pages_analyzed", len(summaries))
	return report, nil
}
