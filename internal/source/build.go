package source

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/prospect-research/internal/config"
	"github.com/sells-group/prospect-research/internal/fetcher"
	"github.com/sells-group/prospect-research/internal/model"
	"github.com/sells-group/prospect-research/internal/resilience"
	"github.com/sells-group/prospect-research/internal/scrape"
	"github.com/sells-group/prospect-research/pkg/abr"
	"github.com/sells-group/prospect-research/pkg/apollo"
	"github.com/sells-group/prospect-research/pkg/firecrawl"
	"github.com/sells-group/prospect-research/pkg/google"
	"github.com/sells-group/prospect-research/pkg/jina"
	"github.com/sells-group/prospect-research/pkg/perplexity"
)

// unconfigured stands in for an adapter whose backend has no credentials,
// so the gap still shows up in the bundle's error manifest.
type unconfigured struct {
	name   model.SourceName
	reason string
}

func (u unconfigured) Name() model.SourceName { return u.name }

func (u unconfigured) Fetch(context.Context, model.CompanyQuery) model.RawSourceResult {
	return model.Failed(u.name, u.reason, time.Now().UTC(), 0)
}

// Build constructs the adapters enabled in cfg, in canonical source order.
func Build(cfg *config.Config) ([]Adapter, error) {
	enabled, err := enabledSources(cfg.Sources.Enabled)
	if err != nil {
		return nil, err
	}

	retry := resilience.RetryFromSettings(cfg.Resilience.MaxAttempts, cfg.Resilience.InitialBackoffMs)

	jc := jina.NewClient(cfg.Jina.Key,
		jina.WithBaseURL(cfg.Jina.BaseURL),
		jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL),
		jina.WithMaxAttempts(retry.MaxAttempts),
		jina.WithBackoff(retry.InitialBackoff),
	)

	var fc firecrawl.Client
	if cfg.Firecrawl.Key != "" {
		fc = firecrawl.NewClient(cfg.Firecrawl.Key, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL))
	}

	var pc perplexity.Client
	if cfg.Perplexity.Key != "" {
		pc = perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
		)
	}

	httpf := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:    cfg.Fetcher.UserAgent,
		Timeout:      time.Duration(cfg.Fetcher.TimeoutSecs) * time.Second,
		MaxAttempts:  retry.MaxAttempts,
		MaxBodyBytes: cfg.Fetcher.MaxBodyBytes,
		HostRate:     rate.Limit(cfg.Fetcher.RequestsPerSecond),
		BaseBackoff:  retry.InitialBackoff,
	})

	var adapters []Adapter
	for _, src := range enabled {
		var a Adapter
		switch src {
		case model.SourceWebsite:
			var fallback scrape.Scraper
			if fc != nil {
				fallback = scrape.NewFirecrawlAdapter(fc, 0)
			}
			a = NewWebsiteAdapter(scrape.NewChain(
				scrape.NewJinaAdapter(jc, resilience.CircuitFromSettings(cfg.Resilience.CircuitThreshold, cfg.Resilience.CircuitResetSecs)),
				fallback,
			))
		case model.SourceLinkedIn:
			a = NewLinkedInAdapter(jc, pc)
		case model.SourceContacts:
			if cfg.Apollo.Key == "" {
				a = unconfigured{src, "not configured: contacts API key missing"}
				break
			}
			a = NewContactsAdapter(apollo.NewClient(cfg.Apollo.Key,
				apollo.WithBaseURL(cfg.Apollo.BaseURL),
				apollo.WithRateLimit(cfg.Apollo.RateLimit, 1),
			), cfg.Google.Region)
		case model.SourceSearch:
			a = NewSearchAdapter(jc)
		case model.SourceBrowser:
			if fc == nil {
				a = unconfigured{src, "not configured: firecrawl API key missing"}
				break
			}
			a = NewBrowserAdapter(scrape.NewFirecrawlAdapter(fc, 2000))
		case model.SourceJobs:
			a = NewJobsAdapter(httpf, jc, DefaultJobBoards)
		case model.SourceNews:
			a = NewNewsAdapter(httpf, cfg.News.FeedURL, cfg.News.Locale, cfg.News.MaxArticles)
		case model.SourceRegistry:
			if cfg.ABR.GUID == "" {
				a = unconfigured{src, "not configured: ABN Lookup GUID missing"}
				break
			}
			a = NewRegistryAdapter(abr.NewClient(cfg.ABR.GUID, abr.WithBaseURL(cfg.ABR.BaseURL)))
		case model.SourcePlaces:
			if cfg.Google.Key == "" {
				a = unconfigured{src, "not configured: Google Places API key missing"}
				break
			}
			a = NewPlacesAdapter(google.NewClient(cfg.Google.Key,
				google.WithBaseURL(cfg.Google.BaseURL),
				google.WithRegion(cfg.Google.Region),
			))
		}
		adapters = append(adapters, a)
	}

	zap.L().Debug("source: adapters built", zap.Int("count", len(adapters)))
	return adapters, nil
}

func enabledSources(names []string) ([]model.SourceName, error) {
	if len(names) == 0 {
		return model.AllSources, nil
	}
	want := make(map[model.SourceName]bool, len(names))
	for _, n := range names {
		src, ok := model.ParseSourceName(n)
		if !ok {
			return nil, eris.Errorf("source: unknown source %q", n)
		}
		want[src] = true
	}
	var out []model.SourceName
	for _, src := range model.AllSources {
		if want[src] {
			out = append(out, src)
		}
	}
	return out, nil
}
