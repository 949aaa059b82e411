package source

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sells-group/prospect-research/internal/model"
	"github.com/sells-group/prospect-research/internal/scrape"
)

const maxWebsiteMarkdown = 20000

// WebsiteAdapter reads the company homepage through the scrape chain
// (Jina Reader, then Firecrawl once the Reader's circuit opens or fails).
type WebsiteAdapter struct {
	chain *scrape.Chain
}

// NewWebsiteAdapter creates a WebsiteAdapter.
func NewWebsiteAdapter(chain *scrape.Chain) *WebsiteAdapter {
	return &WebsiteAdapter{chain: chain}
}

func (a *WebsiteAdapter) Name() model.SourceName { return model.SourceWebsite }

func (a *WebsiteAdapter) Fetch(ctx context.Context, q model.CompanyQuery) model.RawSourceResult {
	return run(ctx, a.Name(), func(ctx context.Context) (model.Payload, error) {
		if q.Domain == "" {
			return nil, ErrNoDomain
		}
		r, err := a.chain.Scrape(ctx, q.URL())
		if err != nil {
			return nil, err
		}

		p := &model.WebsitePayload{
			URL:         r.URL,
			Title:       r.Title,
			Description: r.Description,
			Markdown:    r.Markdown,
			FetchedVia:  r.Source,
		}
		if looksLikeHTML(r.Markdown) {
			fillFromHTML(p, r.Markdown)
		}
		p.Markdown = truncate(strings.TrimSpace(p.Markdown), maxWebsiteMarkdown)
		if p.Markdown == "" && p.Description == "" {
			return nil, ErrNoData
		}
		return p, nil
	})
}

func looksLikeHTML(s string) bool {
	head := strings.ToLower(strings.TrimSpace(truncate(s, 512)))
	return strings.HasPrefix(head, "<!doctype html") || strings.Contains(head, "<html") || strings.Contains(head, "<head")
}

// fillFromHTML replaces raw HTML content with its visible text and fills the
// title and description from <title> and meta tags when missing.
func fillFromHTML(p *model.WebsitePayload, html string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return
	}
	if p.Title == "" {
		p.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if p.Description == "" {
		p.Description = metaContent(doc, `meta[name="description"]`, `meta[property="og:description"]`)
	}
	doc.Find("script, style, noscript, nav, footer").Remove()
	p.Markdown = collapseWhitespace(doc.Find("body").Text())
}

func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// collapseWhitespace joins non-blank lines, each with inner runs of
// whitespace collapsed.
func collapseWhitespace(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if f := strings.Fields(line); len(f) > 0 {
			lines = append(lines, strings.Join(f, " "))
		}
	}
	return strings.Join(lines, "\n")
}
