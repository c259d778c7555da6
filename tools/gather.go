package tools

import (
	"context"
	"encoding/json"
	"sync"
	"unicode/utf8"
)

// searchAll runs each query and merges the hits, deduplicated by URL in
// first-seen order.
func searchAll(ctx context.Context, deps *Deps, queries []string, perQuery int) []SearchResult {
	seen := map[string]bool{}
	var merged []SearchResult
	for _, query := range queries {
		results, err := deps.Search.Search(ctx, query, perQuery)
		if err != nil {
			deps.logger().Warn("search failed", "query", query, "error", err)
			continue
		}
		for _, result := range results {
			if seen[result.URL] {
				continue
			}
			seen[result.URL] = true
			merged = append(merged, result)
		}
	}
	return merged
}

// fetchAll retrieves up to limit pages concurrently, preserving input order.
// Unfetchable pages are dropped rather than failing the whole gather.
func fetchAll(ctx context.Context, deps *Deps, urls []string, limit int) []*Page {
	if len(urls) > limit {
		urls = urls[:limit]
	}
	pages := make([]*Page, len(urls))
	var wg sync.WaitGroup
	for i, pageURL := range urls {
		wg.Add(1)
		go func(i int, pageURL string) {
			defer wg.Done()
			page, err := deps.Fetch.Fetch(ctx, pageURL)
			if err != nil {
				deps.logger().Debug("page fetch failed", "url", pageURL, "error", err)
				return
			}
			pages[i] = page
		}(i, pageURL)
	}
	wg.Wait()
	result := pages[:0]
	for _, page := range pages {
		if page != nil {
			result = append(result, page)
		}
	}
	return result
}

func resultURLs(results []SearchResult) []string {
	urls := make([]string, len(results))
	for i, result := range results {
		urls[i] = result.URL
	}
	return urls
}

func toJSON(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func head(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
