package source

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/sells-group/prospect-research/internal/fetcher"
	"github.com/sells-group/prospect-research/internal/model"
)

// rssItem is one <item> of an RSS 2.0 feed.
type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	PubDate string `xml:"pubDate"`
	Source  struct {
		Name string `xml:",chardata"`
		URL  string `xml:"url,attr"`
	} `xml:"source"`
}

// NewsAdapter reads recent headlines from a news-search RSS feed.
type NewsAdapter struct {
	fetcher fetcher.Fetcher
	feedURL string
	locale  string
	max     int
}

// NewNewsAdapter creates a NewsAdapter. locale is a BCP 47 tag such as
// "en-AU" and selects the feed edition.
func NewNewsAdapter(f fetcher.Fetcher, feedURL, locale string, maxArticles int) *NewsAdapter {
	if maxArticles <= 0 {
		maxArticles = 10
	}
	return &NewsAdapter{fetcher: f, feedURL: feedURL, locale: locale, max: maxArticles}
}

func (a *NewsAdapter) Name() model.SourceName { return model.SourceNews }

func (a *NewsAdapter) Fetch(ctx context.Context, q model.CompanyQuery) model.RawSourceResult {
	return run(ctx, a.Name(), func(ctx context.Context) (model.Payload, error) {
		body, err := a.fetcher.Download(ctx, a.feedFor(q))
		if err != nil {
			return nil, err
		}
		defer body.Close() //nolint:errcheck

		items, err := fetcher.CollectXML[rssItem](ctx, body, "item", a.max)
		if err != nil && len(items) == 0 {
			return nil, err
		}

		p := &model.NewsPayload{}
		for _, it := range items {
			title := cleanHeadline(it.Title, it.Source.Name)
			if title == "" {
				continue
			}
			p.Articles = append(p.Articles, model.Article{
				Title:     title,
				URL:       strings.TrimSpace(it.Link),
				Source:    strings.TrimSpace(it.Source.Name),
				Published: parsePubDate(it.PubDate),
			})
		}
		if len(p.Articles) == 0 {
			return nil, ErrNoData
		}
		sort.SliceStable(p.Articles, func(i, j int) bool {
			return p.Articles[i].Published.After(p.Articles[j].Published)
		})
		return p, nil
	})
}

// feedFor builds the search feed URL with the edition parameters Google
// News expects (hl, gl, ceid).
func (a *NewsAdapter) feedFor(q model.CompanyQuery) string {
	v := url.Values{}
	v.Set("q", `"`+q.DisplayName()+`"`)
	if a.locale != "" {
		lang, country, _ := strings.Cut(a.locale, "-")
		v.Set("hl", a.locale)
		if country != "" {
			v.Set("gl", strings.ToUpper(country))
			v.Set("ceid", strings.ToUpper(country)+":"+lang)
		}
	}
	sep := "?"
	if strings.Contains(a.feedURL, "?") {
		sep = "&"
	}
	return a.feedURL + sep + v.Encode()
}

// cleanHeadline drops the " - Publisher" suffix feeds append to titles.
func cleanHeadline(title, source string) string {
	title = strings.TrimSpace(title)
	if source = strings.TrimSpace(source); source != "" {
		title = strings.TrimSpace(strings.TrimSuffix(title, " - "+source))
	}
	return title
}

func parsePubDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
