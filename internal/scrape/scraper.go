// Package scrape fetches single pages as markdown through a chain of
// hosted scrapers, falling through to the next on failure.
package scrape

import "context"

// Result holds a scraped page with the scraper that produced it.
type Result struct {
	URL         string
	Title       string
	Description string
	Markdown    string
	Source      string // e.g. "jina", "firecrawl"
}

// Scraper fetches a single URL and returns its content.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Result, error)
	Name() string
}
