package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/ezbizservices/seo-mcp/tools"
)

const searchEndpoint = "https://html.duckduckgo.com/html/"

// Searcher runs queries against the DuckDuckGo HTML endpoint, which needs no
// API key and serves parseable results.
type Searcher struct {
	client   *http.Client
	endpoint string
}

func NewSearcher(client *http.Client) *Searcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Searcher{client: client, endpoint: searchEndpoint}
}

// Search returns up to limit organic results for query.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]tools.SearchResult, error) {
	form := url.Values{"q": {query}}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	request.Header.Set("User-Agent", userAgent)

	response, err := s.client.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search: status %d", response.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(response.Body, maxPageBytes))
	if err != nil {
		return nil, err
	}
	results := parseResults(body)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// parseResults extracts result anchors and snippets from the results markup.
func parseResults(body []byte) []tools.SearchResult {
	root, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil
	}
	var results []tools.SearchResult
	var walk func(node *html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && node.Data == "a" && hasClass(node, "result__a") {
			href := resolveRedirect(attr(node, "href"))
			title := strings.TrimSpace(textOf(node))
			if href != "" && title != "" {
				results = append(results, tools.SearchResult{
					Title:   title,
					URL:     href,
					Snippet: nearestSnippet(node),
				})
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	return results
}

func hasClass(node *html.Node, class string) bool {
	for _, field := range strings.Fields(attr(node, "class")) {
		if field == class {
			return true
		}
	}
	return false
}

// resolveRedirect unwraps the tracking redirect around result URLs.
func resolveRedirect(href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		if decoded, err := url.QueryUnescape(target); err == nil {
			return decoded
		}
		return target
	}
	if parsed.Scheme == "" {
		return "https:" + href
	}
	return href
}

// nearestSnippet looks for the snippet element within the same result block.
func nearestSnippet(anchor *html.Node) string {
	block := anchor
	for block != nil && !(block.Type == html.ElementNode && hasClass(block, "result")) {
		block = block.Parent
	}
	if block == nil {
		return ""
	}
	var snippet string
	var walk func(node *html.Node)
	walk = func(node *html.Node) {
		if snippet != "" {
			return
		}
		if node.Type == html.ElementNode && hasClass(node, "result__snippet") {
			snippet = strings.TrimSpace(textOf(node))
			return
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(block)
	return snippet
}
