package source

import (
	"context"
	"strings"

	"github.com/sells-group/prospect-research/internal/model"
	"github.com/sells-group/prospect-research/internal/scrape"
)

// BrowserAdapter renders the homepage in a hosted headless browser, which
// captures client-side content the Reader misses.
type BrowserAdapter struct {
	scraper scrape.Scraper
}

// NewBrowserAdapter creates a BrowserAdapter over a rendering scraper.
func NewBrowserAdapter(s scrape.Scraper) *BrowserAdapter {
	return &BrowserAdapter{scraper: s}
}

func (a *BrowserAdapter) Name() model.SourceName { return model.SourceBrowser }

func (a *BrowserAdapter) Fetch(ctx context.Context, q model.CompanyQuery) model.RawSourceResult {
	return run(ctx, a.Name(), func(ctx context.Context) (model.Payload, error) {
		if q.Domain == "" {
			return nil, ErrNoDomain
		}
		r, err := a.scraper.Scrape(ctx, q.URL())
		if err != nil {
			return nil, err
		}
		md := truncate(strings.TrimSpace(r.Markdown), maxWebsiteMarkdown)
		if md == "" {
			return nil, ErrNoData
		}
		return &model.BrowserPayload{URL: r.URL, Title: r.Title, Markdown: md}, nil
	})
}
