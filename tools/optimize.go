package tools

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ezbizservices/seo-mcp/schema"
)

type optimizeContentInput struct {
	URL           string `json:"url" description:"URL of the page to optimize"`
	TargetKeyword string `json:"target_keyword" description:"Primary keyword to optimize for"`
}

const optimizeContentInstruction = `You are an expert on-page SEO optimizer. Analyze the page and provide detailed optimization recommendations.

Structure your report as:
## Content Optimization: [target keyword]
**Page:** [url]

### SEO Score: X/100
Give an overall score based on the metrics below.

### Title Tag Analysis
- Current title, character count, keyword presence
- Specific recommended title (aim for 50-60 chars, keyword near front)

### Meta Description Analysis
- Current description, character count, keyword presence
- Specific recommended meta description (150-160 chars, compelling CTA)

### Content Analysis
- Word count vs competitor average
- Keyword density assessment (target 1-2%)
- Content structure quality (headings, paragraphs, lists)
- Readability assessment

### Heading Structure
- H1 analysis (should be exactly 1, include keyword)
- H2 structure (logical flow, keyword variations)
- Recommended heading structure

### Technical SEO
- SSL status
- Page load time assessment
- Schema markup status
- Image optimization (alt tags, count)

### Internal & External Linking
- Internal link count and quality
- External link count and quality
- Recommended links to add

### Competitor Comparison
- How this page compares to top-ranking pages
- Content gaps vs competitors
- Unique advantages

### Priority Action Items
Numbered list of specific changes, ordered by impact:
1. [Highest impact change]
2. [Next highest]
...

Be extremely specific. Don't say "improve title" — say exactly what the new title should be.`

func newOptimizeContent(deps *Deps) (*Definition, error) {
	return definition(
		"optimize_content",
		"Analyze and optimize content for SEO — keyword density, readability, structure, meta tags, and actionable improvement suggestions.",
		&optimizeContentInput{},
		func(ctx context.Context, arguments map[string]interface{}) (*schema.CallToolResult, error) {
			var input optimizeContentInput
			if err := decodeArguments(arguments, &input); err != nil {
				return nil, err
			}
			report, err := optimizeContent(ctx, deps, &input)
			if err != nil {
				return nil, err
			}
			return schema.NewTextResult(report), nil
		},
	)
}

func optimizeContent(ctx context.Context, deps *Deps, input *optimizeContentInput) (string, error) {
	logger := deps.logger()
	logger.Info("starting content optimization", "url", input.URL, "target_keyword", input.TargetKeyword)

	targetPage, err := deps.Fetch.Fetch(ctx, input.URL)
	if err != nil {
		return fmt.Sprintf("Could not fetch %s: %v. Make sure the URL is accessible.", input.URL, err), nil
	}

	serpResults, err := deps.Search.Search(ctx, input.TargetKeyword, 8)
	if err != nil {
		logger.Warn("SERP lookup failed", "keyword", input.TargetKeyword, "error", err)
	}

	type competitorSummary struct {
		URL        string   `json:"url"`
		Title      string   `json:"title"`
		Desc       string   `json:"description"`
		H1         []string `json:"h1"`
		H2         []string `json:"h2"`
		WordCount  int      `json:"wordCount"`
		Images     int      `json:"images"`
		HasSchema  bool     `json:"hasSchema"`
		LoadTimeMs int64    `json:"loadTimeMs"`
	}
	var competitors []competitorSummary
	for i, result := range serpResults {
		if i >= 4 || result.URL == input.URL {
			continue
		}
		page, err := deps.Fetch.Fetch(ctx, result.URL)
		if err != nil {
			continue
		}
		competitors = append(competitors, competitorSummary{
			URL:        result.URL,
			Title:      page.Title,
			Desc:       page.Description,
			H1:         head(page.H1, 2),
			H2:         page.H2,
			WordCount:  page.WordCount(),
			Images:     page.Images,
			HasSchema:  page.SchemaOrg > 0,
			LoadTimeMs: page.LoadTimeMs,
		})
	}

	metrics := onPageMetrics(targetPage, input.URL, input.TargetKeyword)

	var serpContext strings.Builder
	for _, result := range serpResults {
		fmt.Fprintf(&serpContext, "- [%s](%s): %s\n", result.Title, result.URL, result.Snippet)
	}

	var evidence strings.Builder
	fmt.Fprintf(&evidence, "Target URL: %s\nTarget Keyword: %q\n\n", input.URL, input.TargetKeyword)
	fmt.Fprintf(&evidence, "Current Page Metrics:\n%s\n\n", toJSON(metrics))
	fmt.Fprintf(&evidence, "Page Content Preview (first 2000 chars):\n%s\n\n", truncate(targetPage.TextContent, 2000))
	fmt.Fprintf(&evidence, "Competitor Pages Ranking for %q:\n%s\n\n", input.TargetKeyword, toJSON(competitors))
	fmt.Fprintf(&evidence, "SERP Context:\n%s\n", serpContext.String())
	evidence.WriteString("\nProvide a detailed content optimization report with specific, actionable recommendations.")

	report, err := deps.Analyze.Analyze(ctx, optimizeContentInstruction, evidence.String(), 3500)
	if err != nil {
		return "", err
	}
	logger.Info("content optimization complete",
		"url", input.URL,
		"target_keyword", input.TargetKeyword,
		"word_count", metrics["wordCount"],
		"keyword_density", metrics["keywordDensity"])
	return report, nil
}

// onPageMetrics computes the deterministic signal set the analyzer reasons
// over: keyword placement, density, headings, links and technical flags.
func onPageMetrics(page *Page, pageURL, targetKeyword string) map[string]interface{} {
	wordCount := page.WordCount()
	keywordLower := strings.ToLower(targetKeyword)
	textLower := strings.ToLower(page.TextContent)
	keywordCount := strings.Count(textLower, keywordLower)
	density := 0.0
	if wordCount > 0 {
		density = float64(keywordCount) / float64(wordCount) * 100
	}

	containsKeyword := func(items []string) bool {
		for _, item := range items {
			if strings.Contains(strings.ToLower(item), keywordLower) {
				return true
			}
		}
		return false
	}

	base, _ := url.Parse(pageURL)
	internal, external := 0, 0
	for _, link := range page.Links {
		resolved, err := url.Parse(link.Href)
		if err != nil {
			continue
		}
		if base != nil {
			resolved = base.ResolveReference(resolved)
		}
		switch {
		case base != nil && resolved.Hostname() == base.Hostname():
			internal++
		case strings.HasPrefix(resolved.Scheme, "http"):
			external++
		}
	}

	return map[string]interface{}{
		"wordCount":            wordCount,
		"keywordCount":         keywordCount,
		"keywordDensity":       fmt.Sprintf("%.2f%%", density),
		"titleLength":          len(page.Title),
		"keywordInTitle":       strings.Contains(strings.ToLower(page.Title), keywordLower),
		"descriptionLength":    len(page.Description),
		"keywordInDescription": strings.Contains(strings.ToLower(page.Description), keywordLower),
		"h1Tags":               page.H1,
		"keywordInH1":          containsKeyword(page.H1),
		"h2Tags":               page.H2,
		"keywordInH2":          containsKeyword(page.H2),
		"imageCount":           page.Images,
		"hasSSL":               page.HasSSL,
		"loadTimeMs":           page.LoadTimeMs,
		"internalLinks":        internal,
		"externalLinks":        external,
		"hasSchemaMarkup":      page.SchemaOrg > 0,
		"ogTags":               page.OGTags,
		"metaTags":             page.MetaTags,
	}
}
