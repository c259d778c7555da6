package tools

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ezbizservices/seo-mcp/schema"
)

type checkBacklinksInput struct {
	URL            string `json:"url" description:"Website URL to analyze"`
	CompetitorURLs string `json:"competitor_urls,omitempty" description:"Comma-separated competitor URLs for comparison"`
}

const checkBacklinksInstruction = `You are an expert SEO backlink analyst. Analyze the backlink profile and link building opportunities for a website.

Structure your report as:
## Backlink Analysis: [domain]

### Current Backlink Profile
- Estimated referring domains found
- Link quality assessment (high/medium/low quality sites)
- Anchor text patterns
- Link types (editorial, directory, social, forum, etc.)

### Referring Domains Analysis
For each confirmed referring domain:
- Domain quality indicators
- Link context (where on the page, in what content)
- Anchor text used
- Follow/nofollow likelihood

### Competitor Comparison
When competitor data is present:
- How competitors' backlink profiles compare
- Links competitors have that the target doesn't
- Shared linking domains

### Link Building Opportunities
- 5-7 specific link building strategies for this site
- Potential outreach targets based on competitor links
- Content types that attract links in this niche
- Quick wins (directories, profiles, mentions without links)

### Risk Assessment
- Any potentially toxic or spammy referring domains
- Over-optimization of anchor text
- Link velocity concerns

Be specific and reference actual data from the analysis.`

func newCheckBacklinks(deps *Deps) (*Definition, error) {
	return definition(
		"check_backlinks",
		"Analyze a website's backlink profile — referring domains, anchor text patterns, link quality indicators, and link building opportunities.",
		&checkBacklinksInput{},
		func(ctx context.Context, arguments map[string]interface{}) (*schema.CallToolResult, error) {
			var input checkBacklinksInput
			if err := decodeArguments(arguments, &input); err != nil {
				return nil, err
			}
			report, err := checkBacklinks(ctx, deps, &input)
			if err != nil {
				return nil, err
			}
			return schema.NewTextResult(report), nil
		},
	)
}

func checkBacklinks(ctx context.Context, deps *Deps, input *checkBacklinksInput) (string, error) {
	logger := deps.logger()
	logger.Info("starting backlink analysis", "url", input.URL)

	parsed, err := url.Parse(input.URL)
	if err != nil || parsed.Hostname() == "" {
		return fmt.Sprintf("Invalid URL: %s. Please provide a full URL like https://example.com", input.URL), nil
	}
	domain := parsed.Hostname()

	queries := []string{
		fmt.Sprintf("%q -site:%s", domain, domain),
		"link:" + domain,
		fmt.Sprintf("%q review mention", domain),
		fmt.Sprintf("inurl:%s -site:%s", domain, domain),
	}
	results := searchAll(ctx, deps, queries, 8)

	// One mention per referring domain; the target itself never counts.
	seen := map[string]bool{domain: true}
	var mentions []SearchResult
	for _, result := range results {
		resultURL, err := url.Parse(result.URL)
		if err != nil || resultURL.Hostname() == "" {
			continue
		}
		host := resultURL.Hostname()
		if seen[host] {
			continue
		}
		seen[host] = true
		mentions = append(mentions, result)
	}

	targetPage, err := deps.Fetch.Fetch(ctx, input.URL)
	if err != nil {
		logger.Debug("target fetch failed", "url", input.URL, "error", err)
		targetPage = nil
	}

	type referringPage struct {
		URL             string      `json:"url"`
		Title           string      `json:"title"`
		Snippet         string      `json:"snippet"`
		HasLinkToTarget *bool       `json:"hasLinkToTarget"`
		AnchorText      []string    `json:"anchorText"`
		DomainIndicator interface{} `json:"domainAuthIndicators"`
	}
	referrers := make([]referringPage, 0, 5)
	for _, mention := range head5(mentions) {
		entry := referringPage{URL: mention.URL, Title: mention.Title, Snippet: mention.Snippet}
		page, err := deps.Fetch.Fetch(ctx, mention.URL)
		if err == nil {
			linksToTarget := false
			var anchors []string
			for _, link := range page.Links {
				if strings.Contains(link.Href, domain) {
					linksToTarget = true
					if len(anchors) < 3 {
						anchors = append(anchors, link.Text)
					}
				}
			}
			entry.HasLinkToTarget = &linksToTarget
			entry.AnchorText = anchors
			entry.DomainIndicator = map[string]interface{}{
				"hasSSL":     page.HasSSL,
				"hasSchema":  page.SchemaOrg > 0,
				"loadTimeMs": page.LoadTimeMs,
			}
		}
		referrers = append(referrers, entry)
	}

	type competitorProfile struct {
		URL           string         `json:"url"`
		Domain        string         `json:"domain"`
		MentionsFound int            `json:"mentionsFound"`
		TopMentions   []SearchResult `json:"topMentions"`
	}
	var competitors []competitorProfile
	if input.CompetitorURLs != "" {
		for i, competitorURL := range strings.Split(input.CompetitorURLs, ",") {
			if i >= 3 {
				break
			}
			competitorURL = strings.TrimSpace(competitorURL)
			if competitorURL == "" {
				continue
			}
			competitorParsed, err := url.Parse(competitorURL)
			if err != nil || competitorParsed.Hostname() == "" {
				continue
			}
			competitorDomain := competitorParsed.Hostname()
			competitorResults, err := deps.Search.Search(ctx,
				fmt.Sprintf("%q -site:%s", competitorDomain, competitorDomain), 5)
			if err != nil {
				continue
			}
			top := competitorResults
			if len(top) > 3 {
				top = top[:3]
			}
			competitors = append(competitors, competitorProfile{
				URL:           competitorURL,
				Domain:        competitorDomain,
				MentionsFound: len(competitorResults),
				TopMentions:   top,
			})
		}
	}

	var evidence strings.Builder
	fmt.Fprintf(&evidence, "Target URL: %s\nDomain: %s\n\n", input.URL, domain)
	evidence.WriteString("Target Site Info:\n")
	if targetPage != nil {
		fmt.Fprintf(&evidence, "- Title: %s\n- Description: %s\n- SSL: %v\n- Load time: %dms\n",
			targetPage.Title, targetPage.Description, targetPage.HasSSL, targetPage.LoadTimeMs)
	} else {
		evidence.WriteString("Could not fetch target site\n")
	}
	fmt.Fprintf(&evidence, "\nMentions/Backlinks Found (%d unique domains):\n", len(mentions))
	for _, mention := range mentions {
		fmt.Fprintf(&evidence, "- %s (%s): %s\n", mention.Title, mention.URL, mention.Snippet)
	}
	fmt.Fprintf(&evidence, "\nReferring Page Analysis:\n%s\n", toJSON(referrers))
	if len(competitors) > 0 {
		fmt.Fprintf(&evidence, "\nCompetitor Analysis:\n%s\n", toJSON(competitors))
	}
	evidence.WriteString("\nProvide a detailed backlink analysis with actionable link building recommendations.")

	report, err := deps.Analyze.Analyze(ctx, checkBacklinksInstruction, evidence.String(), 3000)
	if err != nil {
		return "", err
	}
	logger.Info("backlink analysis complete",
		"domain", domain,
		"mentions_found", len(mentions),
		"competitors_analyzed", len(competitors))
	return report, nil
}

func head5(mentions []SearchResult) []SearchResult {
	if len(mentions) > 5 {
		return mentions[:5]
	}
	return mentions
}
