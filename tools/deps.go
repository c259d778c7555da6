package tools

import (
	"context"
	"log/slog"
	"time"
)

// SearchResult is one organic search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Link is one anchor discovered on a fetched page.
type Link struct {
	Href string `json:"href"`
	Text string `json:"text"`
}

// Page is the analyzable shape of a fetched web page.
type Page struct {
	URL         string            `json:"url"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	H1          []string          `json:"h1"`
	H2          []string          `json:"h2"`
	TextContent string            `json:"textContent"`
	Links       []Link            `json:"links"`
	MetaTags    map[string]string `json:"metaTags,omitempty"`
	OGTags      map[string]string `json:"ogTags,omitempty"`
	SchemaOrg   int               `json:"schemaOrg"`
	Images      int               `json:"images"`
	HasSSL      bool              `json:"hasSSL"`
	LoadTime    time.Duration     `json:"-"`
	LoadTimeMs  int64             `json:"loadTimeMs"`
}

// WordCount counts whitespace-separated tokens in the page text.
func (p *Page) WordCount() int {
	count := 0
	inWord := false
	for _, r := range p.TextContent {
		switch r {
		case ' ', '\t', '\n', '\r':
			inWord = false
		default:
			if !inWord {
				count++
			}
			inWord = true
		}
	}
	return count
}

// Searcher runs a web search.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// Fetcher retrieves and parses a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// Analyzer turns gathered evidence into a narrative report.
type Analyzer interface {
	Analyze(ctx context.Context, instruction, evidence string, maxTokens int) (string, error)
}

// Deps carries the capabilities every tool builds on.
type Deps struct {
	Search  Searcher
	Fetch   Fetcher
	Analyze Analyzer
	Logger  *slog.Logger
}

func (d *Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}
