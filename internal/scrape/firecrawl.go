package scrape

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-research/pkg/firecrawl"
)

// FirecrawlAdapter wraps a Firecrawl client as a Scraper for single-page
// scrapes with client-side rendering.
type FirecrawlAdapter struct {
	client  firecrawl.Client
	waitFor int
}

// NewFirecrawlAdapter creates a FirecrawlAdapter. waitFor is milliseconds
// to let the page render; 0 lets Firecrawl decide.
func NewFirecrawlAdapter(client firecrawl.Client, waitFor int) *FirecrawlAdapter {
	return &FirecrawlAdapter{client: client, waitFor: waitFor}
}

// Name implements Scraper.
func (f *FirecrawlAdapter) Name() string { return "firecrawl" }

// Scrape fetches a single URL via Firecrawl's scrape API.
func (f *FirecrawlAdapter) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	resp, err := f.client.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:             targetURL,
		Formats:         []string{"markdown"},
		OnlyMainContent: true,
		WaitFor:         f.waitFor,
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, eris.New("firecrawl: scrape not successful")
	}
	return &Result{
		URL:         firstNonEmpty(resp.Data.Metadata.SourceURL, targetURL),
		Title:       resp.Data.Metadata.Title,
		Description: resp.Data.Metadata.Description,
		Markdown:    resp.Data.Markdown,
		Source:      "firecrawl",
	}, nil
}
