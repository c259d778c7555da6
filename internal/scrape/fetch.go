// Package scrape implements the web search and page fetch capabilities the
// SEO tools build on, using plain HTTP plus HTML parsing.
package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/ezbizservices/seo-mcp/tools"
)

const (
	maxPageBytes = 2 << 20
	userAgent    = "Mozilla/5.0 (compatible; seo-analysis-bot/1.0)"
)

// Fetcher retrieves pages and extracts the signals the tools analyze.
type Fetcher struct {
	client *http.Client
}

func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{client: client}
}

// Fetch downloads pageURL and parses it into the analyzable page shape.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*tools.Page, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	request.Header.Set("User-Agent", userAgent)
	request.Header.Set("Accept", "text/html,application/xhtml+xml")

	start := time.Now()
	response, err := f.client.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()
	if response.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch %s: status %d", pageURL, response.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(response.Body, maxPageBytes))
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	page, err := parsePage(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	page.URL = pageURL
	page.HasSSL = strings.HasPrefix(pageURL, "https://")
	page.LoadTime = elapsed
	page.LoadTimeMs = elapsed.Milliseconds()
	return page, nil
}

// parsePage walks the HTML tree once, collecting titles, headings, meta
// tags, links, image and JSON-LD counts and the visible text.
func parsePage(body []byte) (*tools.Page, error) {
	root, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	page := &tools.Page{
		MetaTags: map[string]string{},
		OGTags:   map[string]string{},
	}
	var text strings.Builder
	var walk func(node *html.Node, skipText bool)
	walk = func(node *html.Node, skipText bool) {
		if node.Type == html.ElementNode {
			switch node.Data {
			case "script", "style", "noscript":
				if node.Data == "script" && attr(node, "type") == "application/ld+json" {
					page.SchemaOrg++
				}
				return
			case "title":
				if page.Title == "" {
					page.Title = strings.TrimSpace(textOf(node))
				}
				return
			case "meta":
				name := attr(node, "name")
				property := attr(node, "property")
				content := attr(node, "content")
				switch {
				case strings.HasPrefix(property, "og:"):
					page.OGTags[property] = content
				case name != "":
					page.MetaTags[name] = content
					if name == "description" && page.Description == "" {
						page.Description = content
					}
				}
			case "h1":
				page.H1 = append(page.H1, strings.TrimSpace(textOf(node)))
			case "h2":
				page.H2 = append(page.H2, strings.TrimSpace(textOf(node)))
			case "a":
				if href := attr(node, "href"); href != "" {
					page.Links = append(page.Links, tools.Link{
						Href: href,
						Text: strings.TrimSpace(textOf(node)),
					})
				}
			case "img":
				page.Images++
			}
		}
		if node.Type == html.TextNode && !skipText {
			trimmed := strings.TrimSpace(node.Data)
			if trimmed != "" {
				text.WriteString(trimmed)
				text.WriteByte(' ')
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child, skipText)
		}
	}
	walk(root, false)
	page.TextContent = strings.TrimSpace(text.String())
	return page, nil
}

func attr(node *html.Node, name string) string {
	for _, a := range node.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func textOf(node *html.Node) string {
	var builder strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			builder.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(node)
	return builder.String()
}
