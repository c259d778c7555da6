package tools

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ezbizservices/seo-mcp/schema"
)

type siteAuditInput struct {
	URL   string `json:"url" description:"Website URL to audit (e.g., 'https://example.com')"`
	Focus string `json:"focus,omitempty" description:"Specific audit focus (e.g., 'page speed', 'schema markup', 'mobile')"`
}

const siteAuditInstruction = `You are an expert technical SEO auditor. Audit the crawled site data and produce a prioritized fix plan.

Structure your report as:
## Site Audit: [domain]

### Audit Summary
- Overall site health score (0-100)
- Pages crawled and coverage notes
- Top 3 issues by impact

### Technical Foundations
- SSL adoption across crawled pages
- Page load times (flag anything over 3000ms)
- Schema markup coverage and types
- Meta tag completeness (titles, descriptions)

### Content Structure
- H1 correctness per page (exactly one, descriptive)
- Heading hierarchy quality
- Thin pages (low word count)
- Duplicate or near-duplicate titles/descriptions

### Internal Linking
- Link depth and orphan-page risk
- Anchor text quality
- Navigation consistency across pages

### Prioritized Fix Plan
Numbered list ordered by impact, each with:
1. The issue and the exact pages affected
2. The specific fix
3. Expected impact (high/medium/low)

When an audit focus is given, lead with findings for that focus.
Be specific — name actual pages and actual values from the crawl data.`

func newSiteAudit(deps *Deps) (*Definition, error) {
	return definition(
		"site_audit",
		"🔒 [Pro] Full technical SEO audit of a website — crawls multiple pages, checks SSL, speed, schema, headings, linking structure, and provides a prioritized fix plan.",
		&siteAuditInput{},
		func(ctx context.Context, arguments map[string]interface{}) (*schema.CallToolResult, error) {
			var input siteAuditInput
			if err := decodeArguments(arguments, &input); err != nil {
				return nil, err
			}
			report, err := auditSite(ctx, deps, &input)
			if err != nil {
				return nil, err
			}
			return schema.NewTextResult(report), nil
		},
	)
}

const auditCrawlLimit = 6

func auditSite(ctx context.Context, deps *Deps, input *siteAuditInput) (string, error) {
	logger := deps.logger()
	logger.Info("starting site audit", "url", input.URL, "focus", input.Focus)

	base, err := url.Parse(input.URL)
	if err != nil || base.Hostname() == "" {
		return fmt.Sprintf("Invalid URL: %s. Please provide a full URL like https://example.com", input.URL), nil
	}

	root, err := deps.Fetch.Fetch(ctx, input.URL)
	if err != nil {
		return fmt.Sprintf("Could not fetch %s: %v. Make sure the site is accessible.", input.URL, err), nil
	}

	// Crawl same-host pages discovered on the root, breadth-one.
	crawlURLs := []string{}
	seen := map[string]bool{input.URL: true}
	for _, link := range root.Links {
		resolved, err := url.Parse(link.Href)
		if err != nil {
			continue
		}
		resolved = base.ResolveReference(resolved)
		if resolved.Hostname() != base.Hostname() {
			continue
		}
		resolved.Fragment = ""
		target := resolved.String()
		if seen[target] {
			continue
		}
		seen[target] = true
		crawlURLs = append(crawlURLs, target)
		if len(crawlURLs) >= auditCrawlLimit-1 {
			break
		}
	}
	pages := append([]*Page{root}, fetchAll(ctx, deps, crawlURLs, auditCrawlLimit-1)...)

	type pageAudit struct {
		URL         string   `json:"url"`
		Title       string   `json:"title"`
		TitleLength int      `json:"titleLength"`
		Description string   `json:"description"`
		DescLength  int      `json:"descriptionLength"`
		H1          []string `json:"h1"`
		H1Count     int      `json:"h1Count"`
		H2Count     int      `json:"h2Count"`
		WordCount   int      `json:"wordCount"`
		HasSSL      bool     `json:"hasSSL"`
		LoadTimeMs  int64    `json:"loadTimeMs"`
		SchemaOrg   int      `json:"schemaOrgBlocks"`
		Images      int      `json:"images"`
		Links       int      `json:"links"`
	}
	audits := make([]pageAudit, 0, len(pages))
	for _, page := range pages {
		audits = append(audits, pageAudit{
			URL:         page.URL,
			Title:       page.Title,
			TitleLength: len(page.Title),
			Description: page.Description,
			DescLength:  len(page.Description),
			H1:          page.H1,
			H1Count:     len(page.H1),
			H2Count:     len(page.H2),
			WordCount:   page.WordCount(),
			HasSSL:      page.HasSSL,
			LoadTimeMs:  page.LoadTimeMs,
			SchemaOrg:   page.SchemaOrg,
			Images:      page.Images,
			Links:       len(page.Links),
		})
	}

	var evidence strings.Builder
	fmt.Fprintf(&evidence, "Site: %s\nDomain: %s\n", input.URL, base.Hostname())
	if input.Focus != "" {
		fmt.Fprintf(&evidence, "Audit focus: %s\n", input.Focus)
	}
	fmt.Fprintf(&evidence, "\nCrawled Pages (%d):\n%s\n", len(audits), toJSON(audits))
	evidence.WriteString("\nProvide a full technical SEO audit with a prioritized fix plan.")

	report, err := deps.Analyze.Analyze(ctx, siteAuditInstruction, evidence.String(), 3500)
	if err != nil {
		return "", err
	}
	logger.Info("site audit complete", "url", input.URL, "pages_crawled", len(audits))
	return report, nil
}
