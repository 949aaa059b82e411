package workflow

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-research/internal/analysis"
	"github.com/sells-group/prospect-research/internal/docstore"
	"github.com/sells-group/prospect-research/internal/llm"
	"github.com/sells-group/prospect-research/internal/metrics"
	"github.com/sells-group/prospect-research/internal/model"
	"github.com/sells-group/prospect-research/internal/source"
	"github.com/sells-group/prospect-research/internal/store"
)

// scriptedAdapter succeeds with a canned payload unless fail is set.
type scriptedAdapter struct {
	name model.SourceName
	fail string
}

func (a *scriptedAdapter) Name() model.SourceName { return a.name }

func (a *scriptedAdapter) Fetch(_ context.Context, q model.CompanyQuery) model.RawSourceResult {
	now := time.Now().UTC()
	if a.fail != "" {
		return model.Failed(a.name, a.fail, now, time.Millisecond)
	}
	return model.Succeeded(payloadFor(a.name, q), now, time.Millisecond)
}

func payloadFor(src model.SourceName, q model.CompanyQuery) model.Payload {
	switch src {
	case model.SourceWebsite:
		return &model.WebsitePayload{URL: q.URL(), Title: q.DisplayName(), Description: "Freight and warehousing.", Markdown: "We run warehouses on NetSuite and ship with Shopify."}
	case model.SourceLinkedIn:
		return &model.LinkedInPayload{Industry: "Logistics", EmployeeCount: "51-200", Description: "3PL provider."}
	case model.SourceContacts:
		return &model.ContactsPayload{Contacts: []model.Contact{{Name: "Jane Citizen", Title: "CEO", Seniority: "c_suite"}}}
	case model.SourceSearch:
		return &model.SearchPayload{Query: q.DisplayName(), Results: []model.SearchHit{{Title: q.DisplayName() + " wins award", Snippet: "award"}}}
	case model.SourceBrowser:
		return &model.BrowserPayload{URL: q.URL(), Title: q.DisplayName(), Markdown: "Customer service is our priority."}
	case model.SourceJobs:
		return &model.JobsPayload{Listings: []model.JobListing{{Title: "Warehouse Supervisor"}}}
	case model.SourceNews:
		return &model.NewsPayload{Articles: []model.Article{{Title: q.DisplayName() + " opens depot", Source: "Daily"}}}
	case model.SourceRegistry:
		return &model.RegistryPayload{Records: []model.RegistryRecord{{Number: "11111111111", Name: "ACME PTY LTD", Status: "Active"}}}
	default:
		return &model.PlacesPayload{Name: q.DisplayName(), Address: "1 Dock Rd", Rating: 4.5, RatingCount: 10}
	}
}

// adapters returns one adapter per source; failing maps a source to its
// error detail.
func adapters(failing map[model.SourceName]string) []source.Adapter {
	out := make([]source.Adapter, 0, len(model.AllSources))
	for _, src := range model.AllSources {
		out = append(out, &scriptedAdapter{name: src, fail: failing[src]})
	}
	return out
}

func allFailing(detail string) map[model.SourceName]string {
	m := map[model.SourceName]string{}
	for _, src := range model.AllSources {
		m[src] = detail
	}
	return m
}

const researchJSON = `{
  "company_background": "Acme is a logistics company.",
  "recent_developments": "- Opened a depot",
  "technology_signals": "- NetSuite",
  "decision_makers": "- Jane Citizen, CEO",
  "pain_points": "- Warehouse scaling"
}`

// fakeLLM answers research and profile prompts, or fails with err.
type fakeLLM struct {
	err error

	mu      sync.Mutex
	prompts []string
}

func (f *fakeLLM) Configured() bool { return true }

func (f *fakeLLM) Complete(_ context.Context, prompt string, _ llm.Options) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if strings.Contains(prompt, "prospect profile") {
		var rows []string
		for _, field := range model.ProfileTableFields {
			rows = append(rows, `"`+field+`": "AI `+field+`"`)
		}
		return `{"table": {` + strings.Join(rows, ", ") + `},
		  "openers": [{"topic": "Depot", "message": "Congrats on the depot.", "relevance": 88}],
		  "strategy": "1. Email Jane."}`, nil
	}
	return researchJSON, nil
}

func (f *fakeLLM) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

// flakyDocs wraps a docstore and fails writes while writeErr is set.
type flakyDocs struct {
	docstore.Store

	mu       sync.Mutex
	writeErr error
}

func (d *flakyDocs) Write(ctx context.Context, id string, kind model.DocumentKind, content string) (string, error) {
	d.mu.Lock()
	err := d.writeErr
	d.mu.Unlock()
	if err != nil {
		return "", err
	}
	return d.Store.Write(ctx, id, kind, content)
}

func (d *flakyDocs) setWriteErr(err error) {
	d.mu.Lock()
	d.writeErr = err
	d.mu.Unlock()
}

type testEnv struct {
	ctrl    *Controller
	store   *store.SQLiteStore
	docs    *flakyDocs
	root    string
	metrics *metrics.Metrics
}

type envOpts struct {
	failing   map[model.SourceName]string
	llm       analysis.Completer
	aiEnabled bool
	orchOpts  []source.Option
}

func newEnv(t *testing.T, o envOpts) *testEnv {
	t.Helper()
	dir := t.TempDir()

	st, err := store.NewSQLite(filepath.Join(dir, "prospects.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	root := filepath.Join(dir, "docs")
	fsDocs, err := docstore.NewFS(root)
	require.NoError(t, err)
	docs := &flakyDocs{Store: fsDocs}

	m := metrics.New()
	orch := source.NewOrchestrator(adapters(o.failing), source.Config{MaxConcurrent: 4, AdapterTimeout: time.Second}, o.orchOpts...)
	engine := analysis.NewEngine(o.llm, o.aiEnabled, analysis.WithMetrics(m))

	return &testEnv{
		ctrl:    New(st, docs, orch, engine, WithMetrics(m)),
		store:   st,
		docs:    docs,
		root:    root,
		metrics: m,
	}
}

var errDiskFull = eris.New("write /docs: no space left on device")
