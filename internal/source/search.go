package source

import (
	"context"
	"strings"

	"github.com/sells-group/prospect-research/internal/model"
	"github.com/sells-group/prospect-research/pkg/jina"
)

const maxSearchResults = 8

// SearchAdapter runs a web search for the company through Jina Search.
type SearchAdapter struct {
	client jina.Client
}

// NewSearchAdapter creates a SearchAdapter.
func NewSearchAdapter(client jina.Client) *SearchAdapter {
	return &SearchAdapter{client: client}
}

func (a *SearchAdapter) Name() model.SourceName { return model.SourceSearch }

func (a *SearchAdapter) Fetch(ctx context.Context, q model.CompanyQuery) model.RawSourceResult {
	return run(ctx, a.Name(), func(ctx context.Context) (model.Payload, error) {
		query := searchQuery(q)
		resp, err := a.client.Search(ctx, query)
		if err != nil {
			return nil, err
		}

		p := &model.SearchPayload{Query: query}
		for _, r := range resp.Data {
			if r.URL == "" && r.Title == "" {
				continue
			}
			snippet := r.Description
			if snippet == "" {
				snippet = truncate(strings.TrimSpace(r.Content), 300)
			}
			p.Results = append(p.Results, model.SearchHit{Title: r.Title, URL: r.URL, Snippet: snippet})
			if len(p.Results) == maxSearchResults {
				break
			}
		}
		if len(p.Results) == 0 {
			return nil, ErrNoData
		}
		return p, nil
	})
}

func searchQuery(q model.CompanyQuery) string {
	if q.Domain != "" && q.Name != "" {
		return `"` + q.Name + `" ` + q.Domain
	}
	if q.Domain != "" {
		return q.Domain
	}
	return `"` + q.Name + `" company`
}
