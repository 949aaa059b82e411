package source

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-research/internal/fetcher"
	"github.com/sells-group/prospect-research/internal/model"
	"github.com/sells-group/prospect-research/internal/scrape"
	"github.com/sells-group/prospect-research/pkg/abr"
	"github.com/sells-group/prospect-research/pkg/apollo"
	"github.com/sells-group/prospect-research/pkg/jina"
	"github.com/sells-group/prospect-research/pkg/perplexity"
)

type fakeJina struct {
	read   func(ctx context.Context, u string) (*jina.ReadResponse, error)
	search func(ctx context.Context, q string, opts ...jina.SearchOption) (*jina.SearchResponse, error)

	mu      sync.Mutex
	queries []string
}

func (f *fakeJina) Read(ctx context.Context, u string) (*jina.ReadResponse, error) {
	if f.read == nil {
		return nil, eris.New("read not stubbed")
	}
	return f.read(ctx, u)
}

func (f *fakeJina) Search(ctx context.Context, q string, opts ...jina.SearchOption) (*jina.SearchResponse, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if f.search == nil {
		return nil, eris.New("search not stubbed")
	}
	return f.search(ctx, q, opts...)
}

type fakePerplexity struct {
	text   string
	err    error
	prompt string
}

func (f *fakePerplexity) ChatCompletion(_ context.Context, req perplexity.ChatCompletionRequest) (*perplexity.ChatCompletionResponse, error) {
	if len(req.Messages) > 0 {
		f.prompt = req.Messages[0].Content
	}
	if f.err != nil {
		return nil, f.err
	}
	return &perplexity.ChatCompletionResponse{
		Choices: []perplexity.Choice{{Message: perplexity.Message{Role: "assistant", Content: f.text}}},
	}, nil
}

type fakeApollo struct {
	people []apollo.Person
	err    error
	req    apollo.PeopleSearchRequest
}

func (f *fakeApollo) SearchPeople(_ context.Context, req apollo.PeopleSearchRequest) (*apollo.PeopleSearchResponse, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &apollo.PeopleSearchResponse{People: f.people}, nil
}

type fakeABR struct {
	names      []abr.Name
	namesErr   error
	details    *abr.Details
	detailsErr error
	detailsFor string
}

func (f *fakeABR) MatchingNames(context.Context, string) ([]abr.Name, error) {
	return f.names, f.namesErr
}

func (f *fakeABR) Details(_ context.Context, abn string) (*abr.Details, error) {
	f.detailsFor = abn
	return f.details, f.detailsErr
}

type fakeScraper struct {
	name   string
	result *scrape.Result
	err    error
}

func (f *fakeScraper) Scrape(context.Context, string) (*scrape.Result, error) {
	return f.result, f.err
}

func (f *fakeScraper) Name() string { return f.name }

// fakeFetcher serves canned pages keyed by URL; anything else is a 404.
type fakeFetcher struct {
	pages map[string]string
}

func (f *fakeFetcher) Download(ctx context.Context, u string) (io.ReadCloser, error) {
	p, err := f.FetchPage(ctx, u)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(string(p.Body))), nil
}

func (f *fakeFetcher) FetchPage(_ context.Context, u string) (*fetcher.Page, error) {
	body, ok := f.pages[u]
	if !ok {
		return nil, &fetcher.StatusError{URL: u, StatusCode: 404}
	}
	return &fetcher.Page{URL: u, StatusCode: 200, ContentType: "text/html", Body: []byte(body)}, nil
}

// stubAdapter is a scripted Adapter for orchestrator tests.
type stubAdapter struct {
	name  model.SourceName
	delay time.Duration
	fail  string
	panic bool
	calls int32
	mu    sync.Mutex
}

func (s *stubAdapter) Name() model.SourceName { return s.name }

func (s *stubAdapter) Fetch(ctx context.Context, q model.CompanyQuery) model.RawSourceResult {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.panic {
		panic("boom")
	}
	return run(ctx, s.name, func(ctx context.Context) (model.Payload, error) {
		if s.delay > 0 {
			select {
			case <-time.After(s.delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if s.fail != "" {
			return nil, eris.New(s.fail)
		}
		return stubPayload(s.name, q), nil
	})
}

func (s *stubAdapter) callCount() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func stubPayload(src model.SourceName, q model.CompanyQuery) model.Payload {
	switch src {
	case model.SourceWebsite:
		return &model.WebsitePayload{URL: q.URL(), Title: q.DisplayName(), Markdown: "homepage"}
	case model.SourceNews:
		return &model.NewsPayload{Articles: []model.Article{{Title: q.DisplayName() + " expands"}}}
	case model.SourceSearch:
		return &model.SearchPayload{Query: q.DisplayName(), Results: []model.SearchHit{{Title: "hit"}}}
	default:
		return &model.PlacesPayload{Name: q.DisplayName()}
	}
}
