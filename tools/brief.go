package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/ezbizservices/seo-mcp/schema"
)

type contentBriefInput struct {
	Topic         string `json:"topic" description:"Content topic (e.g., 'best CRM for small businesses')"`
	TargetKeyword string `json:"target_keyword" description:"Primary keyword to rank for"`
	ContentType   string `json:"content_type,omitempty" description:"Content format (default: 'blog post', options: 'landing page', 'pillar page', 'comparison')"`
}

const contentBriefInstruction = `You are an expert content strategist. Build a production-ready content brief from the SERP and competitor evidence.

Structure your report as:
## Content Brief: [topic]
**Target keyword:** [keyword] · **Format:** [content type]

### Title Options
5 title options, each under 60 characters with the keyword near the front.

### Target Specs
- Recommended total word count (justified by competitor average)
- Keyword targets: primary, 3-5 secondary, 5-8 semantic variations
- Meta description draft (150-160 chars)

### Full Outline
H2/H3 outline with a word-count budget per section and, for each section:
- What to cover
- Keywords to work in
- Evidence from competitor pages worth referencing

### Differentiation Strategy
- What every ranking page already covers (table stakes)
- 2-3 angles no competitor covers well
- Unique data, visuals or tools worth adding

### Sources & Internal Links
- Competitor pages worth studying
- Suggested internal link anchors

Be concrete: real numbers, real headings, real phrasing — never placeholders.`

func newContentBrief(deps *Deps) (*Definition, error) {
	return definition(
		"content_brief",
		"🔒 [Pro] Generate a production-ready content brief — analyzes top-ranking pages, provides title options, full outline with word counts, keyword targets, and differentiation strategy.",
		&contentBriefInput{},
		func(ctx context.Context, arguments map[string]interface{}) (*schema.CallToolResult, error) {
			var input contentBriefInput
			if err := decodeArguments(arguments, &input); err != nil {
				return nil, err
			}
			report, err := generateContentBrief(ctx, deps, &input)
			if err != nil {
				return nil, err
			}
			return schema.NewTextResult(report), nil
		},
	)
}

func generateContentBrief(ctx context.Context, deps *Deps, input *contentBriefInput) (string, error) {
	logger := deps.logger()
	contentType := input.ContentType
	if contentType == "" {
		contentType = "blog post"
	}
	logger.Info("starting content brief", "topic", input.Topic, "target_keyword", input.TargetKeyword)

	queries := []string{
		input.TargetKeyword,
		input.Topic,
		input.TargetKeyword + " guide",
	}
	results := searchAll(ctx, deps, queries, 6)

	pages := fetchAll(ctx, deps, resultURLs(results), 5)
	type rankingPage struct {
		URL       string   `json:"url"`
		Title     string   `json:"title"`
		Desc      string   `json:"description"`
		H1        []string `json:"h1"`
		H2        []string `json:"h2"`
		WordCount int      `json:"wordCount"`
		HasSchema bool     `json:"hasSchema"`
	}
	ranking := make([]rankingPage, 0, len(pages))
	totalWords := 0
	for _, page := range pages {
		words := page.WordCount()
		totalWords += words
		ranking = append(ranking, rankingPage{
			URL:       page.URL,
			Title:     page.Title,
			Desc:      page.Description,
			H1:        head(page.H1, 2),
			H2:        page.H2,
			WordCount: words,
			HasSchema: page.SchemaOrg > 0,
		})
	}
	averageWords := 0
	if len(ranking) > 0 {
		averageWords = totalWords / len(ranking)
	}

	var serpContext strings.Builder
	for _, result := range results {
		fmt.Fprintf(&serpContext, "- %q (%s): %s\n", result.Title, result.URL, result.Snippet)
	}

	var evidence strings.Builder
	fmt.Fprintf(&evidence, "Topic: %s\nTarget Keyword: %q\nContent Type: %s\n\n", input.Topic, input.TargetKeyword, contentType)
	fmt.Fprintf(&evidence, "SERP Results (%d):\n%s\n", len(results), serpContext.String())
	fmt.Fprintf(&evidence, "Top-Ranking Page Analysis (avg %d words):\n%s\n", averageWords, toJSON(ranking))
	evidence.WriteString("\nProduce a complete, production-ready content brief.")

	report, err := deps.Analyze.Analyze(ctx, contentBriefInstruction, evidence.String(), 3500)
	if err != nil {
		return "", err
	}
	logger.Info("content brief complete",
		"topic", input.Topic,
		"pages_analyzed", len(ranking),
		"competitor_avg_words", averageWords)
	return report, nil
}
