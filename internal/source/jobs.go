package source

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-research/internal/fetcher"
	"github.com/sells-group/prospect-research/internal/model"
	"github.com/sells-group/prospect-research/internal/scrape"
	"github.com/sells-group/prospect-research/pkg/jina"
)

const maxJobListings = 15

var (
	careersPaths = []string{"/careers", "/jobs", "/careers/", "/about/careers", "/join-us"}
	// DefaultJobBoards are searched when the careers page yields nothing.
	DefaultJobBoards = []string{"seek.com.au", "au.indeed.com", "linkedin.com/jobs"}
	jobCardSelectors = strings.Join([]string{
		".job-listing", ".job-item", ".job-card", ".job", ".position", ".opening",
		".careers-listing li", ".vacancy", "[class*=job-title]", "[data-job-id]",
	}, ", ")
)

// JobsAdapter finds open roles on the company careers page, falling back
// to a job-board search.
type JobsAdapter struct {
	fetcher fetcher.Fetcher
	search  jina.Client
	boards  []string
}

// NewJobsAdapter creates a JobsAdapter. search may be nil to disable the
// job-board fallback.
func NewJobsAdapter(f fetcher.Fetcher, search jina.Client, boards []string) *JobsAdapter {
	if len(boards) == 0 {
		boards = DefaultJobBoards
	}
	return &JobsAdapter{fetcher: f, search: search, boards: boards}
}

func (a *JobsAdapter) Name() model.SourceName { return model.SourceJobs }

func (a *JobsAdapter) Fetch(ctx context.Context, q model.CompanyQuery) model.RawSourceResult {
	return run(ctx, a.Name(), func(ctx context.Context) (model.Payload, error) {
		log := zap.L().With(zap.String("company", q.DisplayName()), zap.String("source", "jobs"))

		var lastErr error
		if q.Domain != "" && a.fetcher != nil {
			for _, path := range careersPaths {
				if ctx.Err() != nil {
					break
				}
				pageURL := q.URL() + path
				page, err := a.fetcher.FetchPage(ctx, pageURL)
				if err != nil {
					lastErr = err
					continue
				}
				if blocked, kind := scrape.DetectBlock(page.Body); blocked {
					log.Debug("jobs: careers page blocked", zap.String("url", pageURL), zap.String("block", string(kind)))
					continue
				}
				listings := parseJobListings(page.Body, page.URL)
				if len(listings) > 0 {
					return &model.JobsPayload{CareersURL: page.URL, Listings: capListings(listings)}, nil
				}
			}
		}

		if a.search != nil {
			opts := make([]jina.SearchOption, 0, len(a.boards))
			for _, b := range a.boards {
				opts = append(opts, jina.WithSiteFilter(b))
			}
			resp, err := a.search.Search(ctx, `"`+q.DisplayName()+`" jobs`, opts...)
			if err != nil {
				return nil, err
			}
			var listings []model.JobListing
			for _, r := range resp.Data {
				if r.Title == "" {
					continue
				}
				listings = append(listings, model.JobListing{
					Title:       r.Title,
					URL:         r.URL,
					Description: truncate(firstNonEmpty(r.Description, r.Content), 300),
					Board:       hostOf(r.URL),
				})
			}
			if len(listings) > 0 {
				return &model.JobsPayload{Listings: capListings(listings)}, nil
			}
			return nil, ErrNoData
		}

		if lastErr != nil {
			return nil, lastErr
		}
		return nil, ErrNoData
	})
}

// jobPosting is the subset of schema.org JobPosting we read.
type jobPosting struct {
	Type        any               `json:"@type"`
	Title       string            `json:"title"`
	DatePosted  string            `json:"datePosted"`
	Description string            `json:"description"`
	URL         string            `json:"url"`
	JobLocation any               `json:"jobLocation"`
	Graph       []json.RawMessage `json:"@graph"`
}

// parseJobListings extracts listings from JSON-LD JobPosting blocks, then
// from common job-card markup.
func parseJobListings(body []byte, pageURL string) []model.JobListing {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	var out []model.JobListing
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		out = append(out, decodeJobPostings([]byte(s.Text()))...)
	})
	if len(out) > 0 {
		return out
	}

	seen := make(map[string]bool)
	doc.Find(jobCardSelectors).Each(func(_ int, s *goquery.Selection) {
		title := strings.TrimSpace(s.Find("h2, h3, h4, .title, [class*=title]").First().Text())
		if title == "" {
			title = strings.TrimSpace(s.Find("a").First().Text())
		}
		if title == "" {
			title = collapseWhitespace(s.Text())
		}
		title = truncate(strings.Join(strings.Fields(title), " "), 120)
		if title == "" || seen[title] {
			return
		}
		seen[title] = true

		l := model.JobListing{Title: title}
		if href, ok := s.Find("a").First().Attr("href"); ok {
			l.URL = resolveURL(pageURL, href)
		} else if href, ok := s.Attr("href"); ok {
			l.URL = resolveURL(pageURL, href)
		}
		l.Location = strings.TrimSpace(s.Find(".location, [class*=location]").First().Text())
		out = append(out, l)
	})
	return out
}

func decodeJobPostings(raw []byte) []model.JobListing {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}

	var items []json.RawMessage
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil
		}
	} else {
		items = []json.RawMessage{raw}
	}

	var out []model.JobListing
	for _, item := range items {
		var jp jobPosting
		if err := json.Unmarshal(item, &jp); err != nil {
			continue
		}
		if len(jp.Graph) > 0 {
			for _, g := range jp.Graph {
				out = append(out, decodeJobPostings(g)...)
			}
			continue
		}
		if !isType(jp.Type, "JobPosting") || jp.Title == "" {
			continue
		}
		out = append(out, model.JobListing{
			Title:       strings.TrimSpace(jp.Title),
			URL:         jp.URL,
			Posted:      jp.DatePosted,
			Location:    jobLocation(jp.JobLocation),
			Description: truncate(stripTags(jp.Description), 300),
		})
	}
	return out
}

func isType(v any, want string) bool {
	switch t := v.(type) {
	case string:
		return t == want
	case []any:
		for _, x := range t {
			if s, ok := x.(string); ok && s == want {
				return true
			}
		}
	}
	return false
}

// jobLocation reads addressLocality/addressRegion from a Place or list of Places.
func jobLocation(v any) string {
	switch t := v.(type) {
	case []any:
		if len(t) > 0 {
			return jobLocation(t[0])
		}
	case map[string]any:
		addr, _ := t["address"].(map[string]any)
		if addr == nil {
			return ""
		}
		var parts []string
		for _, k := range []string{"addressLocality", "addressRegion"} {
			if s, ok := addr[k].(string); ok && s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

func stripTags(s string) string {
	if !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func resolveURL(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

func capListings(ls []model.JobListing) []model.JobListing {
	if len(ls) > maxJobListings {
		return ls[:maxJobListings]
	}
	return ls
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
